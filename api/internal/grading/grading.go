// Package grading связывает распознавание, внешнего судью и движок проверки
// в один запрос: текст или фото → задачи → вердикты → результат.
package grading

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"homework-grader/api/internal/ocr"
	"homework-grader/api/internal/store"
	"homework-grader/api/internal/util"
	"homework-grader/api/internal/verify"
)

const (
	SourceAPI = "api"
	SourceBot = "bot"
	SourceCLI = "cli"

	// сегментация без судьи
	SegmenterRules = "rules"
)

var ErrNoInput = errors.New("nothing to grade")

// AnswerSaver — журнал проверенных задач (store.GradeRepo).
type AnswerSaver interface {
	Save(ctx context.Context, rec *store.GradeRecord) error
}

// SegmentCache — кэш разборов судьи (store.SegmentRepo).
type SegmentCache interface {
	Find(ctx context.Context, inputHash, judge, model string, maxAge time.Duration) ([]ocr.ParsedProblem, error)
	Upsert(ctx context.Context, inputHash, judge, model string, ps []ocr.ParsedProblem) error
}

type Service struct {
	Grader     *verify.Grader
	Recognizer ocr.Recognizer // nil: фото только через судью
	OCROptions ocr.Options
	Answers    AnswerSaver  // nil: без журнала
	Segments   SegmentCache // nil: без кэша
	CacheAge   time.Duration
	Limiter    *rate.Limiter // общий лимит вызовов судьи; nil — без лимита
	Log        *slog.Logger
}

func (s *Service) waitJudge(ctx context.Context) error {
	if s.Limiter == nil {
		return nil
	}
	return s.Limiter.Wait(ctx)
}

func (s *Service) logger() *slog.Logger {
	if s.Log != nil {
		return s.Log
	}
	return slog.Default()
}

type Request struct {
	RequestID string
	Source    string
	ChatID    int64
	Locale    string
	Judge     ocr.Judge // nil: только правила
	// AskJudge: запросить у судьи вердикты для шагов без external_verdict
	AskJudge bool
	Problems []*verify.Problem
}

type Graded struct {
	Problem *verify.Problem         `json:"problem"`
	Result  verify.ValidationResult `json:"result"`
}

type Outcome struct {
	RequestID string   `json:"request_id"`
	Judge     string   `json:"judge"`
	Segmenter string   `json:"segmenter,omitempty"`
	Degraded  []string `json:"degraded,omitempty"`
	Problems  []Graded `json:"problems"`
}

// Grade проверяет задачи запроса. Сбой судьи не ошибка: шаги остаются без
// внешнего вердикта, причина попадает в Outcome.Degraded.
func (s *Service) Grade(ctx context.Context, req Request) (*Outcome, error) {
	if len(req.Problems) == 0 {
		return nil, ErrNoInput
	}
	g, err := s.Grader.ForLocale(req.Locale)
	if err != nil {
		return nil, err
	}
	out := &Outcome{RequestID: req.RequestID, Judge: judgeName(req.Judge)}
	if out.RequestID == "" {
		out.RequestID = uuid.NewString()
	}
	log := s.logger().With("request_id", out.RequestID, "judge", out.Judge)

	if req.Judge != nil && req.AskJudge {
		out.Degraded = append(out.Degraded, s.askJudge(ctx, log, req.Judge, req.Problems, g.Taxonomy().Locale)...)
	}

	results, err := g.GradeBatch(ctx, req.Problems)
	if err != nil {
		return nil, err
	}
	out.Problems = make([]Graded, len(results))
	for i, res := range results {
		out.Problems[i] = Graded{Problem: req.Problems[i], Result: res}
	}
	s.save(ctx, log, req, g, out)
	return out, nil
}

// askJudge параллельно запрашивает вердикты по задачам, где их не хватает.
func (s *Service) askJudge(ctx context.Context, log *slog.Logger, j ocr.Judge, problems []*verify.Problem, locale string) []string {
	errs := make([]string, len(problems))
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(4)
	for i, p := range problems {
		if p == nil || !missingVerdicts(p) {
			continue
		}
		eg.Go(func() error {
			var js []ocr.StepJudgment
			err := s.waitJudge(gctx)
			if err == nil {
				js, err = j.JudgeSteps(gctx, ocr.NewJudgeRequest(p, locale))
			}
			if err != nil {
				judgeFailures.WithLabelValues(j.Name(), "judge").Inc()
				log.Warn("judge failed, grading with rules only", "problem_id", p.ID, "error", err)
				errs[i] = fmt.Sprintf("%s: judge: %v", problemLabel(p, i), err)
				return nil
			}
			n := ocr.ApplyJudgments(p.Steps, js)
			log.Debug("judge verdicts applied", "problem_id", p.ID, "applied", n, "steps", len(p.Steps))
			return nil
		})
	}
	_ = eg.Wait()

	var out []string
	for _, e := range errs {
		if e != "" {
			out = append(out, e)
		}
	}
	return out
}

func (s *Service) save(ctx context.Context, log *slog.Logger, req Request, g *verify.Grader, out *Outcome) {
	if s.Answers == nil {
		return
	}
	for _, gp := range out.Problems {
		rec := &store.GradeRecord{
			RequestID:   out.RequestID,
			ProblemID:   gp.Problem.ID,
			ProblemText: gp.Problem.Text,
			Source:      req.Source,
			ChatID:      req.ChatID,
			Judge:       out.Judge,
			Locale:      g.Taxonomy().Locale,
			Policy:      g.Policy().String(),
			Steps:       gp.Problem.Steps,
			Result:      gp.Result,
		}
		if err := s.Answers.Save(ctx, rec); err != nil {
			log.Error("save graded answer", "problem_id", gp.Problem.ID, "error", err)
		}
	}
}

// SegmentText режет текст решения на задачи: судьёй, если он есть, иначе
// (или при его сбое) по строкам с "=". Второе значение — кто резал.
func (s *Service) SegmentText(ctx context.Context, j ocr.Judge, text string) ([]*verify.Problem, string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, SegmenterRules
	}
	if j != nil {
		ps, err := s.cachedSegment(ctx, j, []byte(text), func(ctx context.Context) ([]ocr.ParsedProblem, error) {
			return j.Segment(ctx, text)
		})
		if err == nil && len(ps) > 0 {
			return toProblems(ps), j.Name()
		}
		if err != nil {
			judgeFailures.WithLabelValues(j.Name(), "segment").Inc()
			s.logger().Warn("judge segmentation failed, falling back to rules", "judge", j.Name(), "error", err)
		}
	}
	return verify.ParseSolution(text), SegmenterRules
}

// SegmentImage: судья, умеющий читать фото, иначе OCR + SegmentText.
func (s *Service) SegmentImage(ctx context.Context, j ocr.Judge, image []byte, mime string) ([]*verify.Problem, string, error) {
	if len(image) == 0 {
		return nil, "", ErrNoInput
	}
	var visionErr error
	if is, ok := j.(ocr.ImageSegmenter); ok {
		ps, err := s.cachedSegment(ctx, j, image, func(ctx context.Context) ([]ocr.ParsedProblem, error) {
			return is.SegmentImage(ctx, image, mime)
		})
		if err == nil && len(ps) > 0 {
			return toProblems(ps), j.Name(), nil
		}
		if err == nil {
			err = errors.New("no problems found")
		}
		judgeFailures.WithLabelValues(j.Name(), "segment_image").Inc()
		s.logger().Warn("judge could not read the photo", "judge", j.Name(), "error", err)
		visionErr = err
	}
	if s.Recognizer == nil {
		if visionErr != nil {
			return nil, "", fmt.Errorf("read photo: %w", visionErr)
		}
		return nil, "", errors.New("no OCR engine configured")
	}
	text, err := s.Recognizer.Recognize(ctx, image, s.OCROptions)
	if err != nil {
		return nil, "", fmt.Errorf("%s ocr: %w", s.Recognizer.Name(), err)
	}
	ps, by := s.SegmentText(ctx, j, text)
	if len(ps) == 0 {
		return nil, by, ErrNoInput
	}
	return ps, s.Recognizer.Name() + "+" + by, nil
}

func (s *Service) cachedSegment(ctx context.Context, j ocr.Judge, input []byte, run func(context.Context) ([]ocr.ParsedProblem, error)) ([]ocr.ParsedProblem, error) {
	call := func(ctx context.Context) ([]ocr.ParsedProblem, error) {
		if err := s.waitJudge(ctx); err != nil {
			return nil, err
		}
		return run(ctx)
	}
	if s.Segments == nil {
		return call(ctx)
	}
	hash := util.SHA256Hex(input)
	if ps, err := s.Segments.Find(ctx, hash, j.Name(), j.GetModel(), s.CacheAge); err == nil && len(ps) > 0 {
		return ps, nil
	}
	ps, err := call(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.Segments.Upsert(ctx, hash, j.Name(), j.GetModel(), ps); err != nil {
		s.logger().Warn("segment cache upsert", "error", err)
	}
	return ps, nil
}

func toProblems(ps []ocr.ParsedProblem) []*verify.Problem {
	out := make([]*verify.Problem, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.ToProblem())
	}
	return out
}

func missingVerdicts(p *verify.Problem) bool {
	for _, s := range p.Steps {
		if s != nil && s.External == nil {
			return true
		}
	}
	return false
}

func judgeName(j ocr.Judge) string {
	if j == nil {
		return SegmenterRules
	}
	return j.Name()
}

func problemLabel(p *verify.Problem, i int) string {
	if p.ID != "" {
		return p.ID
	}
	return fmt.Sprintf("problem_%d", i+1)
}
