package verify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietGrader(opts ...Option) *Grader {
	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	return NewGrader(opts...)
}

func fractionProblem(last string) *Problem {
	return &Problem{
		ID:   "p1",
		Text: "11/16 + 4/9 + 5/16",
		Steps: []*SolutionStep{
			{From: "11/16 + 4/9 + 5/16", To: "16/16 + 4/9"},
			{From: "16/16 + 4/9", To: last},
		},
	}
}

func TestGrader_FractionScenario(t *testing.T) {
	g := quietGrader()

	res, err := g.GradeProblem(context.Background(), fractionProblem("13/9"))
	require.NoError(t, err)
	assert.True(t, res.IsCorrect)
	assert.Equal(t, 1.0, res.Confidence)
	assert.Equal(t, 2, res.Summary.RuleVerifiedSteps)

	p := fractionProblem("67/144")
	res, err = g.GradeProblem(context.Background(), p)
	require.NoError(t, err)
	assert.False(t, res.IsCorrect)
	assert.Equal(t, 0.5, res.Confidence)

	step := p.Steps[1]
	assert.Equal(t, Incorrect, step.Rule)
	assert.False(t, step.Final)
	require.NotNil(t, step.Category)
	assert.Contains(t, []ErrorCategory{CalculationError, FractionError}, *step.Category)

	require.Len(t, res.Steps, 1)
	assert.Equal(t, 2, res.Steps[0].StepNumber)
	assert.Equal(t, "13/9", res.Steps[0].Expected)
	assert.Equal(t, FeedbackRule, res.Steps[0].Source)
}

func TestGrader_SignScenario(t *testing.T) {
	g := quietGrader()
	steps := []*SolutionStep{{From: "15 - (-4)", To: "11"}}
	res, err := g.GradeSteps(context.Background(), steps)
	require.NoError(t, err)
	assert.False(t, res.IsCorrect)
	require.NotNil(t, steps[0].Category)
	assert.Equal(t, SignError, *steps[0].Category)
	assert.NotEmpty(t, steps[0].Evidence)
	assert.Equal(t, "19", res.Steps[0].Expected)
}

func TestGrader_FailClosed(t *testing.T) {
	g := quietGrader()
	steps := []*SolutionStep{{From: "@@@", To: "1"}}
	res, err := g.GradeSteps(context.Background(), steps)
	require.NoError(t, err)
	assert.Equal(t, Indeterminate, steps[0].Rule)
	assert.Nil(t, steps[0].Category)
	assert.False(t, steps[0].Final)
	assert.False(t, res.IsCorrect)
	assert.Equal(t, 0.5, res.Confidence)
	assert.Contains(t, res.ErrorDescription, "inconclusive")
}

func TestGrader_ExternalVerdictWins(t *testing.T) {
	steps := []*SolutionStep{{From: "15 - (-4)", To: "11", External: boolPtr(true)}}
	res, err := quietGrader().GradeSteps(context.Background(), steps)
	require.NoError(t, err)
	assert.True(t, res.IsCorrect)
	assert.True(t, steps[0].Record.Disagreement)
	assert.Equal(t, []int{1}, res.Summary.DisagreementSteps)

	steps = []*SolutionStep{{From: "15 - (-4)", To: "11", External: boolPtr(true)}}
	res, err = quietGrader(WithPolicy(RuleFirst)).GradeSteps(context.Background(), steps)
	require.NoError(t, err)
	assert.False(t, res.IsCorrect)
	assert.Equal(t, SourceRule, steps[0].Record.Source)
}

func TestGrader_RecoversPanickingStep(t *testing.T) {
	g := quietGrader()
	g.check = func(from, to string) StepCheck {
		if from == "boom" {
			panic("parser exploded")
		}
		return CheckStep(from, to)
	}
	steps := []*SolutionStep{
		{From: "1 + 1", To: "2"},
		{From: "boom", To: "1"},
		{From: "2 * 3", To: "6"},
	}
	res, err := g.GradeSteps(context.Background(), steps)
	require.NoError(t, err)

	assert.Equal(t, Correct, steps[0].Rule)
	assert.Equal(t, Indeterminate, steps[1].Rule)
	assert.True(t, steps[1].Check.Recovered)
	assert.Equal(t, Correct, steps[2].Rule)
	assert.False(t, res.IsCorrect)
	assert.Equal(t, 1, res.Summary.RecoveredStepFails)
	assert.InDelta(t, 2.0/3.0, res.Confidence, 1e-12)
}

func TestGrader_NilStep(t *testing.T) {
	_, err := quietGrader().GradeSteps(context.Background(), []*SolutionStep{nil})
	assert.True(t, errors.Is(err, ErrNilStep))
}

func TestGrader_EmptySolution(t *testing.T) {
	res, err := quietGrader().GradeSteps(context.Background(), nil)
	require.NoError(t, err)
	assert.False(t, res.IsCorrect)
	assert.Equal(t, ErrorTypeNoSolution, res.ErrorType)
	assert.Equal(t, 1.0, res.Confidence)
}

func TestGrader_Batch(t *testing.T) {
	g := quietGrader(WithParallelism(2))
	problems := []*Problem{
		fractionProblem("13/9"),
		fractionProblem("67/144"),
		{ID: "empty"},
		{ID: "sign", Steps: []*SolutionStep{{From: "15 - (-4)", To: "19"}}},
	}
	out, err := g.GradeBatch(context.Background(), problems)
	require.NoError(t, err)
	require.Len(t, out, 4)
	assert.True(t, out[0].IsCorrect)
	assert.False(t, out[1].IsCorrect)
	assert.Equal(t, ErrorTypeNoSolution, out[2].ErrorType)
	assert.True(t, out[3].IsCorrect)

	_, err = g.GradeBatch(context.Background(), []*Problem{nil})
	assert.Error(t, err)
}

func TestGrader_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := quietGrader().GradeSteps(ctx, []*SolutionStep{{From: "1", To: "1"}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGrader_ForLocale(t *testing.T) {
	g := quietGrader()
	zh, err := g.ForLocale("zh")
	require.NoError(t, err)
	assert.Equal(t, "zh", zh.Taxonomy().Locale)
	assert.Equal(t, "en", g.Taxonomy().Locale)

	same, err := g.ForLocale("")
	require.NoError(t, err)
	assert.Same(t, g, same)

	_, err = g.ForLocale("xx")
	assert.Error(t, err)
}

func TestGrader_GradedStepsSurviveJSON(t *testing.T) {
	g := quietGrader()
	steps := []*SolutionStep{
		{From: "15 - (-4)", To: "11"},
		{From: "16/16 + 4/9", To: "13/9"},
		{From: "0.1 + 0.2", To: "0.3"},
	}
	_, err := g.GradeSteps(context.Background(), steps)
	require.NoError(t, err)

	raw, err := json.Marshal(steps)
	require.NoError(t, err)

	var back []*SolutionStep
	require.NoError(t, json.Unmarshal(raw, &back))
	require.Len(t, back, len(steps))

	for i, s := range steps {
		got := back[i]
		assert.Equal(t, s.Rule, got.Rule, "step %d", i+1)
		assert.Equal(t, s.Category, got.Category, "step %d", i+1)
		require.NotNil(t, got.Check, "step %d", i+1)
		require.NotNil(t, got.Check.FromValue, "step %d", i+1)
		assert.True(t, s.Check.FromValue.Equal(*got.Check.FromValue), "step %d", i+1)
		assert.Equal(t, s.Check.FromValue.IsExact(), got.Check.FromValue.IsExact(), "step %d", i+1)
	}
	assert.True(t, back[0].Check.FromValue.Equal(IntNumber(19)))
	assert.Equal(t, "13/9", back[1].Check.FromValue.String())
}

func TestNumber_UnmarshalJSON(t *testing.T) {
	cases := []struct {
		in    string
		want  string
		exact bool
	}{
		{`"19"`, "19", true},
		{`"-13/9"`, "-13/9", true},
		{`"0.30000000000000004"`, "0.30000000000000004", false},
		{`"1e+30"`, "1e+30", false},
		{`42`, "42", true},
	}
	for _, c := range cases {
		var n Number
		require.NoError(t, json.Unmarshal([]byte(c.in), &n), c.in)
		assert.Equal(t, c.want, n.String(), c.in)
		assert.Equal(t, c.exact, n.IsExact(), c.in)
	}

	var n Number
	assert.Error(t, json.Unmarshal([]byte(`"abc"`), &n))
	assert.Error(t, json.Unmarshal([]byte(`"1/0"`), &n))
	assert.Error(t, json.Unmarshal([]byte(`true`), &n))
}
