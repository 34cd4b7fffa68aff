// Package report рендерит результат проверки для людей: бот и CLI.
package report

import (
	"fmt"
	"strings"

	"homework-grader/api/internal/verify"
)

// Format: plain для терминала, Markdown для Telegram (legacy Markdown).
type Format int

const (
	Plain Format = iota
	Markdown
)

type Section struct {
	Title  string
	Result verify.ValidationResult
}

// Render собирает отчёт по нескольким задачам.
func Render(f Format, sections ...Section) string {
	var b strings.Builder
	for i, s := range sections {
		if i > 0 {
			b.WriteString("\n")
		}
		writeSection(&b, f, s)
	}
	return strings.TrimRight(b.String(), "\n")
}

func writeSection(b *strings.Builder, f Format, s Section) {
	r := s.Result
	mark := "❌"
	if r.IsCorrect {
		mark = "✅"
	}
	if s.Title != "" {
		fmt.Fprintf(b, "%s %s (%.0f%%)\n", mark, bold(f, s.Title), r.Confidence*100)
	} else {
		fmt.Fprintf(b, "%s (%.0f%%)\n", mark, r.Confidence*100)
	}

	if r.IsCorrect && r.Praise != "" {
		fmt.Fprintf(b, "%s\n", text(f, r.Praise))
	}
	if r.ErrorDescription != "" {
		fmt.Fprintf(b, "%s\n", text(f, r.ErrorDescription))
	}
	if r.CategorySummary != "" {
		fmt.Fprintf(b, "%s\n", text(f, r.CategorySummary))
	}
	for _, sf := range r.Steps {
		fmt.Fprintf(b, "  %d. %s → %s", sf.StepNumber, code(f, sf.From), code(f, sf.To))
		if sf.Label != "" {
			fmt.Fprintf(b, ": %s", text(f, sf.Label))
		}
		b.WriteString("\n")
		if sf.Expected != "" {
			fmt.Fprintf(b, "     = %s\n", code(f, sf.Expected))
		}
		if sf.Explanation != "" {
			fmt.Fprintf(b, "     %s\n", text(f, sf.Explanation))
		}
	}
	for _, sug := range r.Suggestions {
		fmt.Fprintf(b, "• %s\n", text(f, sug))
	}
}

func text(f Format, s string) string {
	if f == Markdown {
		return Escape(s)
	}
	return s
}

func bold(f Format, s string) string {
	if f == Markdown {
		return "*" + Escape(s) + "*"
	}
	return s
}

func code(f Format, s string) string {
	if f == Markdown {
		return "`" + strings.ReplaceAll(s, "`", "'") + "`"
	}
	return s
}

// Escape: лёгкое экранирование для Markdown.
func Escape(s string) string {
	s = strings.ReplaceAll(s, "`", "'")
	s = strings.ReplaceAll(s, "_", "\\_")
	s = strings.ReplaceAll(s, "*", "\\*")
	s = strings.ReplaceAll(s, "[", "\\[")
	return s
}
