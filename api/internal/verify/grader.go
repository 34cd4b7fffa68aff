package verify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strconv"

	"golang.org/x/sync/errgroup"
)

// Grader проверяет шаги, классифицирует ошибки, сверяет вердикты и
// агрегирует результат. Сам по себе без состояния, безопасен для
// конкурентного использования.
type Grader struct {
	policy         Policy
	tax            *Taxonomy
	log            *slog.Logger
	maxSuggestions int
	parallelism    int

	check    func(from, to string) StepCheck
	classify func(from, to string) Classification
}

type Option func(*Grader)

func WithPolicy(p Policy) Option { return func(g *Grader) { g.policy = p } }

func WithTaxonomy(t *Taxonomy) Option {
	return func(g *Grader) {
		if t != nil {
			g.tax = t
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(g *Grader) {
		if l != nil {
			g.log = l
		}
	}
}

func WithMaxSuggestions(n int) Option { return func(g *Grader) { g.maxSuggestions = n } }

// WithParallelism ограничивает число шагов (и задач в батче), проверяемых одновременно.
func WithParallelism(n int) Option {
	return func(g *Grader) {
		if n > 0 {
			g.parallelism = n
		}
	}
}

func NewGrader(opts ...Option) *Grader {
	g := &Grader{
		policy:         ExternalFirst,
		tax:            MustTaxonomy(DefaultLocale),
		log:            slog.Default(),
		maxSuggestions: DefaultMaxSuggestions,
		parallelism:    runtime.GOMAXPROCS(0),
		check:          CheckStep,
		classify:       ClassifyDetail,
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

func (g *Grader) Policy() Policy      { return g.policy }
func (g *Grader) Taxonomy() *Taxonomy { return g.tax }

// ForLocale returns a copy of g that renders feedback in another locale.
func (g *Grader) ForLocale(locale string) (*Grader, error) {
	if locale == "" || locale == g.tax.Locale {
		return g, nil
	}
	t, err := LoadTaxonomy(locale)
	if err != nil {
		return nil, err
	}
	cp := *g
	cp.tax = t
	return &cp, nil
}

// GradeSteps проверяет шаги параллельно (по одной задаче на шаг), ждёт все
// и агрегирует. Шаги изменяются на месте: Rule, Check, Category, Final, Record.
func (g *Grader) GradeSteps(ctx context.Context, steps []*SolutionStep) (ValidationResult, error) {
	for i, s := range steps {
		if s == nil {
			return ValidationResult{}, fmt.Errorf("step %d: %w", i+1, ErrNilStep)
		}
	}
	if err := ctx.Err(); err != nil {
		return ValidationResult{}, err
	}

	eg := new(errgroup.Group)
	eg.SetLimit(g.parallelism)
	for i, s := range steps {
		eg.Go(func() error {
			g.gradeStep(i, s)
			return nil
		})
	}
	_ = eg.Wait()

	for i, s := range steps {
		stepsGraded.WithLabelValues(s.Rule.String(), strconv.FormatBool(s.Final)).Inc()
		if s.Category != nil {
			stepCategories.WithLabelValues(string(*s.Category)).Inc()
		}
		if s.Check != nil && s.Check.Recovered {
			stepPanics.Inc()
			g.log.Warn("step evaluation panicked", "step", i+1, "from", s.From, "to", s.To, "error", s.Check.FromError)
		}
		if r := s.Record; r.Disagreement {
			stepDisagreements.WithLabelValues(r.Source).Inc()
			g.log.Info("rule and external verdicts disagree",
				"step", i+1, "rule", r.Rule.String(), "external", *r.External,
				"final", r.Final, "policy", r.Policy)
		}
	}

	res, err := Aggregate(steps, AggregateOptions{Taxonomy: g.tax, MaxSuggestions: g.maxSuggestions})
	if err != nil {
		return ValidationResult{}, err
	}
	outcome := "incorrect"
	switch {
	case res.ErrorType == ErrorTypeNoSolution:
		outcome = ErrorTypeNoSolution
	case res.IsCorrect:
		outcome = "correct"
	}
	problemsGraded.WithLabelValues(outcome).Inc()
	problemConfidence.Observe(res.Confidence)
	return res, nil
}

func (g *Grader) GradeProblem(ctx context.Context, p *Problem) (ValidationResult, error) {
	if p == nil {
		return ValidationResult{}, errors.New("verify: nil problem")
	}
	res, err := g.GradeSteps(ctx, p.Steps)
	if err != nil {
		return ValidationResult{}, fmt.Errorf("problem %q: %w", p.ID, err)
	}
	g.log.Debug("problem graded", "problem_id", p.ID, "steps", len(p.Steps),
		"is_correct", res.IsCorrect, "confidence", res.Confidence)
	return res, nil
}

// GradeBatch grades problems in parallel; results are in input order.
func (g *Grader) GradeBatch(ctx context.Context, problems []*Problem) ([]ValidationResult, error) {
	out := make([]ValidationResult, len(problems))
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.parallelism)
	for i, p := range problems {
		eg.Go(func() error {
			res, err := g.GradeProblem(gctx, p)
			if err != nil {
				return fmt.Errorf("problem %d: %w", i+1, err)
			}
			out[i] = res
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (g *Grader) gradeStep(i int, s *SolutionStep) {
	check := g.safeCheck(s.From, s.To)
	s.Rule = check.Verdict
	s.Check = &check
	s.Category, s.Evidence = nil, ""
	if check.Verdict == Incorrect {
		cls := g.safeClassify(s.From, s.To)
		cat := cls.Category
		s.Category = &cat
		s.Evidence = cls.Evidence
	}
	rec := ReconcileStep(i, s.Rule, s.External, g.policy)
	s.Final = rec.Final
	s.Record = &rec
}

// safeCheck: паника в разборе шага превращается в indeterminate и не роняет задачу.
func (g *Grader) safeCheck(from, to string) (sc StepCheck) {
	defer func() {
		if r := recover(); r != nil {
			sc = StepCheck{
				Verdict:   Indeterminate,
				Method:    MethodNone,
				FromError: fmt.Sprint(r),
				Recovered: true,
			}
		}
	}()
	return g.check(from, to)
}

func (g *Grader) safeClassify(from, to string) (c Classification) {
	defer func() {
		if r := recover(); r != nil {
			c = Classification{Category: Unknown, Evidence: fmt.Sprintf("classifier failed: %v", r)}
		}
	}()
	return g.classify(from, to)
}
