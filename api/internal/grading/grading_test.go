package grading

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"homework-grader/api/internal/ocr"
	"homework-grader/api/internal/store"
	"homework-grader/api/internal/verify"
)

type fakeJudge struct {
	segment    []ocr.ParsedProblem
	segmentErr error
	judgments  []ocr.StepJudgment
	judgeErr   error

	mu       sync.Mutex
	segCalls int
}

func (f *fakeJudge) Name() string     { return "fake" }
func (f *fakeJudge) GetModel() string { return "fake-1" }
func (f *fakeJudge) Segment(context.Context, string) ([]ocr.ParsedProblem, error) {
	f.mu.Lock()
	f.segCalls++
	f.mu.Unlock()
	return f.segment, f.segmentErr
}
func (f *fakeJudge) JudgeSteps(context.Context, ocr.JudgeRequest) ([]ocr.StepJudgment, error) {
	return f.judgments, f.judgeErr
}

type visionJudge struct {
	fakeJudge
	vision    []ocr.ParsedProblem
	visionErr error
}

func (v *visionJudge) SegmentImage(context.Context, []byte, string) ([]ocr.ParsedProblem, error) {
	return v.vision, v.visionErr
}

type fakeOCR struct {
	text string
	err  error
}

func (f fakeOCR) Name() string { return "ocr" }
func (f fakeOCR) Recognize(context.Context, []byte, ocr.Options) (string, error) {
	return f.text, f.err
}

type memAnswers struct {
	mu   sync.Mutex
	recs []*store.GradeRecord
}

func (m *memAnswers) Save(_ context.Context, rec *store.GradeRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs = append(m.recs, rec)
	return nil
}

type memSegments struct {
	m map[string][]ocr.ParsedProblem
}

func (c *memSegments) Find(_ context.Context, hash, judge, model string, _ time.Duration) ([]ocr.ParsedProblem, error) {
	if ps, ok := c.m[hash+judge+model]; ok {
		return ps, nil
	}
	return nil, store.ErrNotFound
}

func (c *memSegments) Upsert(_ context.Context, hash, judge, model string, ps []ocr.ParsedProblem) error {
	c.m[hash+judge+model] = ps
	return nil
}

func quietService() *Service {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &Service{Grader: verify.NewGrader(verify.WithLogger(log)), Log: log}
}

func boolPtr(b bool) *bool { return &b }

func TestGrade_JudgeFillsMissingVerdicts(t *testing.T) {
	s := quietService()
	answers := &memAnswers{}
	s.Answers = answers

	j := &fakeJudge{judgments: []ocr.StepJudgment{{Index: 0, Correct: true}, {Index: 1, Correct: false}}}
	p := &verify.Problem{ID: "problem_1", Steps: []*verify.SolutionStep{
		{From: "3 + 4", To: "7"},
		{From: "7 * 2", To: "14"},
	}}
	out, err := s.Grade(context.Background(), Request{Source: SourceAPI, Judge: j, AskJudge: true, Problems: []*verify.Problem{p}})
	require.NoError(t, err)

	assert.NotEmpty(t, out.RequestID)
	assert.Equal(t, "fake", out.Judge)
	assert.Empty(t, out.Degraded)
	require.Len(t, out.Problems, 1)

	// правила верны, судья против: external_first отдаёт шаг судье
	res := out.Problems[0].Result
	assert.False(t, res.IsCorrect)
	assert.Equal(t, []int{2}, res.Summary.DisagreementSteps)

	require.Len(t, answers.recs, 1)
	rec := answers.recs[0]
	assert.Equal(t, out.RequestID, rec.RequestID)
	assert.Equal(t, "external_first", rec.Policy)
	assert.Equal(t, "en", rec.Locale)
	assert.Equal(t, SourceAPI, rec.Source)
}

func TestGrade_JudgeFailureDegrades(t *testing.T) {
	s := quietService()
	j := &fakeJudge{judgeErr: errors.New("quota")}
	p := &verify.Problem{Steps: []*verify.SolutionStep{{From: "15 - (-4)", To: "11"}}}

	out, err := s.Grade(context.Background(), Request{RequestID: "r1", Judge: j, AskJudge: true, Problems: []*verify.Problem{p}})
	require.NoError(t, err)
	assert.Equal(t, "r1", out.RequestID)
	require.Len(t, out.Degraded, 1)
	assert.Contains(t, out.Degraded[0], "quota")

	res := out.Problems[0].Result
	assert.False(t, res.IsCorrect)
	require.Len(t, res.Steps, 1)
	assert.Equal(t, verify.SignError, res.Steps[0].Category)
}

func TestGrade_KeepsGivenVerdictsAndLocale(t *testing.T) {
	s := quietService()
	j := &fakeJudge{judgeErr: errors.New("must not be called")}
	p := &verify.Problem{Steps: []*verify.SolutionStep{{From: "2 + 2", To: "4", External: boolPtr(true)}}}

	out, err := s.Grade(context.Background(), Request{Locale: "zh", Judge: j, AskJudge: true, Problems: []*verify.Problem{p}})
	require.NoError(t, err)
	assert.Empty(t, out.Degraded)
	assert.True(t, out.Problems[0].Result.IsCorrect)

	_, err = s.Grade(context.Background(), Request{Locale: "xx", Problems: []*verify.Problem{p}})
	assert.Error(t, err)
	_, err = s.Grade(context.Background(), Request{})
	assert.ErrorIs(t, err, ErrNoInput)
}

func TestSegmentText(t *testing.T) {
	s := quietService()

	ps, by := s.SegmentText(context.Background(), nil, "1. 3 + 4 = 7\n2) 7 * 2 = 14")
	assert.Equal(t, SegmenterRules, by)
	assert.Len(t, ps, 2)

	j := &fakeJudge{segmentErr: errors.New("down")}
	ps, by = s.SegmentText(context.Background(), j, "3 + 4 = 7")
	assert.Equal(t, SegmenterRules, by)
	require.Len(t, ps, 1)

	j = &fakeJudge{segment: []ocr.ParsedProblem{{ID: "problem_1", Steps: []ocr.ParsedStep{{From: "3+4", To: "7"}}}}}
	s.Segments = &memSegments{m: map[string][]ocr.ParsedProblem{}}
	for i := 0; i < 2; i++ {
		ps, by = s.SegmentText(context.Background(), j, "3+4=7")
		assert.Equal(t, "fake", by)
		require.Len(t, ps, 1)
	}
	assert.Equal(t, 1, j.segCalls, "second call is served from cache")
}

func TestSegmentImage(t *testing.T) {
	img := []byte{0xFF, 0xD8, 0xFF}

	s := quietService()
	_, _, err := s.SegmentImage(context.Background(), nil, nil, "")
	assert.ErrorIs(t, err, ErrNoInput)
	_, _, err = s.SegmentImage(context.Background(), nil, img, "")
	assert.Error(t, err, "no judge and no OCR")

	v := &visionJudge{vision: []ocr.ParsedProblem{{ID: "problem_1", Steps: []ocr.ParsedStep{{From: "1/2+1/2", To: "1"}}}}}
	ps, by, err := s.SegmentImage(context.Background(), v, img, "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "fake", by)
	require.Len(t, ps, 1)

	v = &visionJudge{visionErr: errors.New("blurry")}
	s.Recognizer = fakeOCR{text: "5 * 3 = 15"}
	ps, by, err = s.SegmentImage(context.Background(), v, img, "")
	require.NoError(t, err)
	assert.Equal(t, "ocr+rules", by)
	require.Len(t, ps, 1)
	assert.Equal(t, "5 * 3", ps[0].Steps[0].From)

	s.Recognizer = fakeOCR{err: errors.New("401")}
	_, _, err = s.SegmentImage(context.Background(), nil, img, "")
	assert.Error(t, err)
}

func TestGrade_LimiterRefusalDegrades(t *testing.T) {
	s := quietService()
	// нулевой burst: Wait отказывает сразу, судья не вызывается
	s.Limiter = rate.NewLimiter(0, 0)
	j := &fakeJudge{
		segment:   []ocr.ParsedProblem{{ID: "p1", Steps: []ocr.ParsedStep{{From: "2 + 2", To: "4"}}}},
		judgments: []ocr.StepJudgment{{Index: 0, Correct: false}},
	}

	ps, by := s.SegmentText(context.Background(), j, "2 + 2 = 4")
	assert.Equal(t, SegmenterRules, by)
	assert.Zero(t, j.segCalls)
	require.Len(t, ps, 1)

	out, err := s.Grade(context.Background(), Request{Judge: j, AskJudge: true, Problems: ps})
	require.NoError(t, err)
	require.Len(t, out.Degraded, 1)
	assert.True(t, out.Problems[0].Result.IsCorrect, "rules decide when the judge is throttled")
}
