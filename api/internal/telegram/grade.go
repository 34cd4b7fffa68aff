package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"homework-grader/api/internal/grading"
	"homework-grader/api/internal/report"
	"homework-grader/api/internal/verify"
)

func (r *Router) gradeText(ctx context.Context, chatID int64, text string) {
	j := r.Judges.Get(chatID)
	problems, _ := r.Service.SegmentText(ctx, j, text)
	r.gradeAndReply(ctx, chatID, problems)
}

func (r *Router) gradeImage(ctx context.Context, chatID int64, img []byte, mime string) {
	j := r.Judges.Get(chatID)
	problems, by, err := r.Service.SegmentImage(ctx, j, img, mime)
	if err != nil {
		r.logger().Warn("photo segmentation failed", "chat_id", chatID, "error", err)
		r.SendError(chatID, fmt.Errorf("не удалось прочитать фото: %w", err))
		return
	}
	r.logger().Debug("photo segmented", "chat_id", chatID, "by", by, "problems", len(problems))
	r.gradeAndReply(ctx, chatID, problems)
}

func (r *Router) gradeAndReply(ctx context.Context, chatID int64, problems []*verify.Problem) {
	if !hasSteps(problems) {
		r.send(chatID, "Не нашёл шагов решения. Пиши шаги через \"=\", например: 3 + 4 = 7")
		return
	}
	j := r.Judges.Get(chatID)
	out, err := r.Service.Grade(ctx, grading.Request{
		Source:   grading.SourceBot,
		ChatID:   chatID,
		Locale:   getLocale(chatID),
		Judge:    j,
		AskJudge: j != nil,
		Problems: problems,
	})
	if errors.Is(err, context.DeadlineExceeded) {
		r.send(chatID, "⏱ Проверка заняла слишком много времени, попробуй ещё раз.")
		return
	}
	if err != nil {
		r.SendError(chatID, err)
		return
	}
	r.sendMarkdown(chatID, formatOutcome(out))
}

func formatOutcome(out *grading.Outcome) string {
	sections := make([]report.Section, 0, len(out.Problems))
	for _, g := range out.Problems {
		title := g.Problem.Text
		if title == "" {
			title = g.Problem.ID
		}
		sections = append(sections, report.Section{Title: title, Result: g.Result})
	}
	text := report.Render(report.Markdown, sections...)
	if len(out.Degraded) > 0 {
		text += "\n\n" + report.Escape("⚠️ Внешняя проверка недоступна, результат только по правилам.")
	}
	return strings.TrimSpace(text)
}

func hasSteps(problems []*verify.Problem) bool {
	for _, p := range problems {
		if p != nil && len(p.Steps) > 0 {
			return true
		}
	}
	return false
}
