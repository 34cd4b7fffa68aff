package verify

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	ErrorTypeNoSolution   = "no_solution"
	ErrorTypeStepAnalysis = "step_analysis"

	DefaultMaxSuggestions = 6
)

// Источник отказа шага в StepFeedback.Source.
const (
	FeedbackRule         = "rule"
	FeedbackExternal     = "external"
	FeedbackInconclusive = "inconclusive"
)

type AggregateOptions struct {
	Taxonomy       *Taxonomy // nil → DefaultLocale
	MaxSuggestions int       // <= 0 → DefaultMaxSuggestions
}

// Aggregate сводит итоговые вердикты шагов в результат по задаче.
// Шаги должны быть уже сверены (Record != nil). Пустой список — не ошибка,
// а результат no_solution.
func Aggregate(steps []*SolutionStep, opts AggregateOptions) (ValidationResult, error) {
	tax := opts.Taxonomy
	if tax == nil {
		tax = MustTaxonomy(DefaultLocale)
	}
	maxSug := opts.MaxSuggestions
	if maxSug <= 0 {
		maxSug = DefaultMaxSuggestions
	}
	msg := tax.Messages

	if len(steps) == 0 {
		return ValidationResult{
			IsCorrect:        false,
			Confidence:       1.0,
			ErrorType:        ErrorTypeNoSolution,
			ErrorDescription: msg.NoSolution,
			Suggestions:      []string{},
		}, nil
	}
	for i, s := range steps {
		if s == nil {
			return ValidationResult{}, fmt.Errorf("step %d: %w", i+1, ErrNilStep)
		}
		if s.Record == nil {
			return ValidationResult{}, fmt.Errorf("step %d: %w", i+1, ErrStepNotReconciled)
		}
	}

	var (
		sum          = summarize(steps)
		notes        []string
		incorrect    []int
		feedback     []StepFeedback
		suggestions  = []string{}
		seen         = map[string]bool{}
		catCounts    = map[ErrorCategory]int{}
		anyRuleKnown = sum.RuleVerifiedSteps > 0
	)

	for i, s := range steps {
		n := i + 1
		if s.Final {
			continue
		}
		incorrect = append(incorrect, n)

		cat := Unknown
		if s.Category != nil {
			cat = *s.Category
		}
		catCounts[cat]++
		entry := tax.Entry(cat)

		source, note := failureSource(s, n, entry.Label, msg)
		notes = append(notes, note)

		fb := StepFeedback{
			StepNumber:  n,
			From:        s.From,
			To:          s.To,
			Category:    cat,
			Label:       entry.Label,
			Explanation: entry.Explanation,
			Suggestions: append([]string(nil), entry.Suggestions...),
			Source:      source,
		}
		if s.Rule == Incorrect && s.Check != nil && s.Check.FromValue != nil {
			fb.Expected = s.Check.FromValue.String()
		}
		feedback = append(feedback, fb)

		for _, sg := range entry.Suggestions {
			if len(suggestions) >= maxSug {
				break
			}
			if !seen[sg] {
				seen[sg] = true
				suggestions = append(suggestions, sg)
			}
		}
	}

	res := ValidationResult{
		IsCorrect:   len(incorrect) == 0,
		Confidence:  confidence(sum.CorrectSteps, sum.TotalSteps, anyRuleKnown),
		Suggestions: suggestions,
		Steps:       feedback,
		Summary:     sum,
	}

	var desc string
	if res.IsCorrect {
		desc = msg.AllCorrect
		res.Praise = msg.Praise
	} else {
		res.ErrorType = ErrorTypeStepAnalysis
		desc = fmt.Sprintf(msg.IncorrectSteps, strings.Join(notes, "; "))
		res.ErrorSummary = fmt.Sprintf(msg.ErrorSummary, joinInts(incorrect))
		res.CategorySummary = categorySummary(tax, catCounts)
	}
	if len(sum.DisagreementSteps) > 0 {
		winner := msg.SourceExternal
		if steps[sum.DisagreementSteps[0]-1].Record.Source == SourceRule {
			winner = msg.SourceRule
		}
		desc += " " + fmt.Sprintf(msg.DisagreementNote, joinInts(sum.DisagreementSteps), winner)
	}
	res.ErrorDescription = desc
	return res, nil
}

// failureSource: правила нашли ошибку → rule; иначе решил внешний вердикт;
// иначе проверить не удалось.
func failureSource(s *SolutionStep, n int, label string, msg taxonomyMessages) (string, string) {
	switch {
	case s.Rule == Incorrect:
		return FeedbackRule, fmt.Sprintf(msg.StepRule, n, strings.ToLower(label))
	case s.Record.Source == SourceExternal && s.Rule == Correct:
		return FeedbackExternal, fmt.Sprintf(msg.StepExternalDisputed, n)
	case s.Record.Source == SourceExternal:
		return FeedbackExternal, fmt.Sprintf(msg.StepExternal, n)
	default:
		return FeedbackInconclusive, fmt.Sprintf(msg.StepInconclusive, n)
	}
}

func confidence(correct, total int, anyRuleKnown bool) float64 {
	if total == 0 {
		return 1.0
	}
	c := float64(correct) / float64(total)
	if !anyRuleKnown && c < 0.5 {
		return 0.5
	}
	return c
}

func summarize(steps []*SolutionStep) VerificationSummary {
	sum := VerificationSummary{TotalSteps: len(steps)}
	both := 0
	for i, s := range steps {
		n := i + 1
		if s.Final {
			sum.CorrectSteps++
		}
		if s.Rule.Determinate() {
			sum.RuleVerifiedSteps++
		}
		if s.External != nil {
			sum.ExternalSteps++
		}
		if s.Check != nil && s.Check.Recovered {
			sum.RecoveredStepFails++
		}
		r := s.Record
		switch {
		case r.Disagreement:
			both++
			sum.DisagreementSteps = append(sum.DisagreementSteps, n)
		case r.Agreed:
			both++
			sum.Agreements++
		}
		if r.Source == SourceFailClosed {
			sum.InconclusiveSteps = append(sum.InconclusiveSteps, n)
		}
	}
	if both > 0 {
		sum.AgreementRate = float64(sum.Agreements) / float64(both)
	}
	return sum
}

func categorySummary(tax *Taxonomy, counts map[ErrorCategory]int) string {
	var parts []string
	for _, c := range Categories {
		if counts[c] == 0 {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s (%d)", tax.Entry(c).Label, counts[c]))
	}
	return strings.Join(parts, ", ")
}

func joinInts(xs []int) string {
	s := make([]string, len(xs))
	for i, x := range xs {
		s[i] = strconv.Itoa(x)
	}
	return strings.Join(s, ", ")
}
