package verify

import (
	"fmt"
	"regexp"
	"strings"
)

var problemHeader = regexp.MustCompile(`^\s*(\d+)\s*(?:[.)．](?:\s+|$)|、\s*)(.*)$`)

// ParseChain разбивает цепочку "a = b = c" на шаги (a→b), (b→c).
// Строка, начинающаяся с "=", продолжает предыдущее выражение prev.
func ParseChain(line, prev string) []*SolutionStep {
	line = strings.TrimSpace(strings.NewReplacer("＝", "=", "≈", "=").Replace(line))
	if !strings.Contains(line, "=") {
		return nil
	}
	parts := strings.Split(line, "=")
	exprs := make([]string, 0, len(parts))
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			if i == 0 && prev != "" {
				exprs = append(exprs, prev)
			}
			continue
		}
		exprs = append(exprs, p)
	}
	var steps []*SolutionStep
	for i := 0; i+1 < len(exprs); i++ {
		steps = append(steps, &SolutionStep{From: exprs[i], To: exprs[i+1]})
	}
	return steps
}

// ParseSolution — сегментация без LLM: строки "N." открывают задачу, строки
// с "=" дают шаги. Текст без заголовков считается одной задачей.
func ParseSolution(text string) []*Problem {
	var (
		problems []*Problem
		cur      *Problem
		prev     string
	)
	start := func(id, body string) {
		cur = &Problem{ID: id, Text: strings.TrimSpace(body)}
		problems = append(problems, cur)
		prev = strings.TrimSpace(strings.TrimRight(strings.TrimSpace(body), "=＝"))
	}

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "```") {
			continue
		}
		if m := problemHeader.FindStringSubmatch(line); m != nil {
			body := m[2]
			start(fmt.Sprintf("problem_%s", m[1]), body)
			// "1. 3 + 4 = 7" — решение прямо в заголовке
			if steps := ParseChain(body, ""); len(steps) > 0 {
				cur.Text = strings.TrimSpace(strings.Split(body, "=")[0])
				cur.Steps = append(cur.Steps, steps...)
				prev = steps[len(steps)-1].To
			}
			continue
		}
		if cur == nil {
			start("problem_1", "")
		}
		steps := ParseChain(line, prev)
		if len(steps) == 0 {
			continue
		}
		cur.Steps = append(cur.Steps, steps...)
		prev = steps[len(steps)-1].To
	}
	return problems
}
