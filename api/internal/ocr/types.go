package ocr

import (
	"encoding/json"
	"fmt"
	"strings"

	"homework-grader/api/internal/util"
	"homework-grader/api/internal/verify"
)

// Options — опции распознавания текста (OCR).
type Options struct {
	Langs []string // ["ru","en","zh"]
	Model string   // "handwritten" | "page"
}

// ParsedStep — шаг решения, как его выделил LLM. Correct — мнение модели, может отсутствовать.
type ParsedStep struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Correct *bool  `json:"correct,omitempty"`
}

type ParsedProblem struct {
	ID    string       `json:"problem_id"`
	Text  string       `json:"problem_text"`
	Steps []ParsedStep `json:"steps"`
}

// ToProblem переводит разбор LLM в задачу движка проверки. Вердикт модели
// становится внешним вердиктом шага.
func (p ParsedProblem) ToProblem() *verify.Problem {
	out := &verify.Problem{ID: p.ID, Text: p.Text, Steps: make([]*verify.SolutionStep, 0, len(p.Steps))}
	for _, s := range p.Steps {
		st := &verify.SolutionStep{From: s.From, To: s.To}
		if s.Correct != nil {
			v := *s.Correct
			st.External = &v
		}
		out.Steps = append(out.Steps, st)
	}
	return out
}

type StepPair struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// JudgeRequest — вход для внешней оценки уже выделенных шагов.
type JudgeRequest struct {
	ProblemText string     `json:"problem_text,omitempty"`
	Steps       []StepPair `json:"steps"`
	Locale      string     `json:"locale,omitempty"`
}

func NewJudgeRequest(p *verify.Problem, locale string) JudgeRequest {
	in := JudgeRequest{ProblemText: p.Text, Locale: locale, Steps: make([]StepPair, len(p.Steps))}
	for i, s := range p.Steps {
		in.Steps[i] = StepPair{From: s.From, To: s.To}
	}
	return in
}

type StepJudgment struct {
	Index   int    `json:"index"`
	Correct bool   `json:"correct"`
	Comment string `json:"comment,omitempty"`
}

// ApplyJudgments проставляет внешние вердикты шагам, у которых их ещё нет.
// Индексы вне диапазона игнорируются. Возвращает число применённых вердиктов.
func ApplyJudgments(steps []*verify.SolutionStep, js []StepJudgment) int {
	n := 0
	for _, j := range js {
		if j.Index < 0 || j.Index >= len(steps) || steps[j.Index] == nil || steps[j.Index].External != nil {
			continue
		}
		v := j.Correct
		steps[j.Index].External = &v
		n++
	}
	return n
}

// DecodeSegment разбирает JSON ответа сегментации (допускаются ```-обёртки).
func DecodeSegment(raw string) ([]ParsedProblem, error) {
	txt := util.StripCodeFences(raw)
	if txt == "" {
		return nil, fmt.Errorf("segment: empty response")
	}
	var out struct {
		Problems []ParsedProblem `json:"problems"`
	}
	if err := json.Unmarshal([]byte(txt), &out); err != nil {
		return nil, fmt.Errorf("segment: bad JSON: %w", err)
	}
	return ApplySegmentPolicy(out.Problems), nil
}

func DecodeJudgments(raw string) ([]StepJudgment, error) {
	txt := util.StripCodeFences(raw)
	if txt == "" {
		return nil, fmt.Errorf("judge: empty response")
	}
	var out struct {
		Steps []StepJudgment `json:"steps"`
	}
	if err := json.Unmarshal([]byte(txt), &out); err != nil {
		return nil, fmt.Errorf("judge: bad JSON: %w", err)
	}
	return out.Steps, nil
}

func trimAll(s string) string { return strings.TrimSpace(s) }
