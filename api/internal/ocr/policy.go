package ocr

import "fmt"

// ApplySegmentPolicy чистит ответ сегментации: пустые шаги выбрасываются,
// задачи без id получают problem_N, задачи без шагов остаются (это no_solution).
func ApplySegmentPolicy(problems []ParsedProblem) []ParsedProblem {
	out := make([]ParsedProblem, 0, len(problems))
	for i, p := range problems {
		p.ID = trimAll(p.ID)
		if p.ID == "" {
			p.ID = fmt.Sprintf("problem_%d", i+1)
		}
		p.Text = trimAll(p.Text)

		steps := make([]ParsedStep, 0, len(p.Steps))
		for _, s := range p.Steps {
			s.From, s.To = trimAll(s.From), trimAll(s.To)
			if s.From == "" || s.To == "" {
				continue
			}
			steps = append(steps, s)
		}
		p.Steps = steps
		out = append(out, p)
	}
	return out
}
