package ocr

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homework-grader/api/internal/verify"
)

type fakeJudge struct{ name string }

func (f *fakeJudge) Name() string     { return f.name }
func (f *fakeJudge) GetModel() string { return f.name + "-model" }
func (f *fakeJudge) Segment(context.Context, string) ([]ParsedProblem, error) {
	return nil, nil
}
func (f *fakeJudge) JudgeSteps(context.Context, JudgeRequest) ([]StepJudgment, error) {
	return nil, nil
}

func TestEngines_GetEngine(t *testing.T) {
	g, o := &fakeJudge{name: "gemini"}, &fakeJudge{name: "gpt"}
	engs := &Engines{Gemini: g, OpenAI: o, Default: "gemini"}

	j, err := engs.GetEngine("")
	require.NoError(t, err)
	assert.Same(t, g, j)

	j, err = engs.GetEngine("OpenAI")
	require.NoError(t, err)
	assert.Same(t, o, j)

	_, err = engs.GetEngine("rules")
	assert.True(t, errors.Is(err, ErrNoJudge))

	_, err = engs.GetEngine("mistral")
	assert.Error(t, err)

	_, err = (&Engines{}).GetEngine("gpt")
	assert.True(t, errors.Is(err, ErrNoJudge))
}

func TestManager(t *testing.T) {
	def := &fakeJudge{name: "gemini"}
	m := NewManager(def)
	assert.Same(t, def, m.Get(1))

	other := &fakeJudge{name: "gpt"}
	m.Set(1, other)
	assert.Same(t, other, m.Get(1))

	m.Set(2, nil)
	assert.Nil(t, m.Get(2))
	assert.Same(t, def, m.Get(3))
}

func TestDecodeSegment(t *testing.T) {
	raw := "```json\n" + `{"problems":[
	  {"problem_id":"","problem_text":" 11/16 + 4/9 + 5/16 ","steps":[
	    {"from":"11/16 + 4/9 + 5/16","to":"16/16 + 4/9","correct":true},
	    {"from":" ","to":"13/9"},
	    {"from":"16/16 + 4/9","to":"13/9"}
	  ]}]}` + "\n```"
	ps, err := DecodeSegment(raw)
	require.NoError(t, err)
	require.Len(t, ps, 1)
	assert.Equal(t, "problem_1", ps[0].ID)
	assert.Equal(t, "11/16 + 4/9 + 5/16", ps[0].Text)
	require.Len(t, ps[0].Steps, 2)

	p := ps[0].ToProblem()
	require.Len(t, p.Steps, 2)
	require.NotNil(t, p.Steps[0].External)
	assert.True(t, *p.Steps[0].External)
	assert.Nil(t, p.Steps[1].External)

	_, err = DecodeSegment("not json")
	assert.Error(t, err)
	_, err = DecodeSegment("  ")
	assert.Error(t, err)
}

func TestApplyJudgments(t *testing.T) {
	keep := true
	steps := []*verify.SolutionStep{
		{From: "1+1", To: "2"},
		{From: "2+2", To: "5", External: &keep},
		{From: "3+3", To: "6"},
	}
	js, err := DecodeJudgments(`{"steps":[{"index":0,"correct":true},{"index":1,"correct":false},{"index":7,"correct":false},{"index":2,"correct":false,"comment":"?"}]}`)
	require.NoError(t, err)

	n := ApplyJudgments(steps, js)
	assert.Equal(t, 2, n)
	assert.True(t, *steps[0].External)
	assert.True(t, *steps[1].External, "existing verdict is kept")
	assert.False(t, *steps[2].External)
}

func TestNewJudgeRequest(t *testing.T) {
	p := &verify.Problem{Text: "15 - (-4)", Steps: []*verify.SolutionStep{{From: "15 - (-4)", To: "11"}}}
	in := NewJudgeRequest(p, "zh")
	assert.Equal(t, "zh", in.Locale)
	assert.Equal(t, []StepPair{{From: "15 - (-4)", To: "11"}}, in.Steps)
}
