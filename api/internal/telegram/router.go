package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"homework-grader/api/internal/grading"
	"homework-grader/api/internal/ocr"
	"homework-grader/api/internal/util"
	"homework-grader/api/internal/verify"
)

// botAPI — то, что роутеру нужно от *tgbotapi.BotAPI.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

type Router struct {
	Bot     botAPI
	Judges  *ocr.Manager // выбранный судья по чатам
	Engines *ocr.Engines
	Service *grading.Service
	Log     *slog.Logger

	// таймаут на проверку одного сообщения
	Timeout time.Duration
}

const helpText = `Пришли решение текстом или фото, я проверю каждый шаг.
Формат текста: по задаче на строку, шаги через "=":
1. 11/16 + 4/9 + 5/16 = 16/16 + 4/9 = 13/9
2. 15 - (-4) = 19
Команды: /engine, /lang, /health, /help`

func (r *Router) logger() *slog.Logger {
	if r.Log != nil {
		return r.Log
	}
	return slog.Default()
}

func (r *Router) HandleUpdate(upd tgbotapi.Update) {
	// callback-кнопки
	if upd.CallbackQuery != nil {
		r.handleCallback(*upd.CallbackQuery)
		return
	}
	if upd.Message == nil {
		return
	}
	msg := upd.Message
	cid := msg.Chat.ID

	switch {
	case msg.IsCommand():
		r.HandleCommand(msg)
	case len(msg.Photo) > 0:
		r.onPhoto(*msg)
	case msg.Document != nil && util.IsImageMIME(msg.Document.MimeType):
		r.onImageDocument(*msg)
	case strings.TrimSpace(msg.Text) != "":
		ctx, cancel := r.context()
		defer cancel()
		r.gradeText(ctx, cid, msg.Text)
	}
}

func (r *Router) HandleCommand(msg *tgbotapi.Message) {
	cid := msg.Chat.ID
	switch msg.Command() {
	case "start", "help":
		r.send(cid, helpText)
	case "health":
		r.send(cid, "✅ OK")
	case "engine":
		r.handleEngineCommand(cid, msg.CommandArguments())
	case "lang":
		r.handleLangCommand(cid, msg.CommandArguments())
	default:
		r.send(cid, "Неизвестная команда")
	}
}

// handleEngineCommand парсит команду /engine и переключает судью для чата.
// Форматы:
//
//	/engine
//	/engine gemini [model]
//	/engine gpt [model]
//	/engine rules
func (r *Router) handleEngineCommand(chatID int64, args string) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		msg := tgbotapi.NewMessage(chatID, "Текущий судья: "+r.currentJudge(chatID)+"\nВыбери:")
		msg.ReplyMarkup = makeEngineKeyboard()
		_, _ = r.Bot.Send(msg)
		return
	}
	var model string
	if len(fields) > 1 {
		model = fields[1]
	}
	r.send(chatID, r.switchEngine(chatID, fields[0], model))
}

// Вспомогательный интерфейс: некоторые судьи умеют переключать модель.
type modelSetter interface{ SetModel(string) }

func (r *Router) switchEngine(chatID int64, name, model string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "rules" || name == "none" {
		r.Judges.Set(chatID, nil)
		return "✅ Проверка только правилами."
	}
	j, err := r.Engines.GetEngine(name)
	if err != nil {
		return fmt.Sprintf("❌ %s: %v. Доступны: gemini | gpt | rules", name, err)
	}
	if model != "" {
		if ms, ok := j.(modelSetter); ok {
			ms.SetModel(model)
		}
	}
	r.Judges.Set(chatID, j)
	return "✅ Судья: " + j.Name() + " (" + j.GetModel() + ")."
}

func (r *Router) currentJudge(chatID int64) string {
	if j := r.Judges.Get(chatID); j != nil {
		return j.Name() + " (" + j.GetModel() + ")"
	}
	return "rules"
}

func (r *Router) handleLangCommand(chatID int64, args string) {
	locale := strings.ToLower(strings.TrimSpace(args))
	if locale == "" {
		msg := tgbotapi.NewMessage(chatID, "Язык отчёта:")
		msg.ReplyMarkup = makeLangKeyboard()
		_, _ = r.Bot.Send(msg)
		return
	}
	r.send(chatID, r.switchLocale(chatID, locale))
}

func (r *Router) switchLocale(chatID int64, locale string) string {
	if _, err := verify.LoadTaxonomy(locale); err != nil {
		return fmt.Sprintf("❌ Нет языка %q. Доступны: %s", locale, strings.Join(verify.Locales(), ", "))
	}
	setLocale(chatID, locale)
	return "✅ Язык отчёта: " + locale
}

func (r *Router) context() (context.Context, context.CancelFunc) {
	t := r.Timeout
	if t <= 0 {
		t = 3 * time.Minute
	}
	return context.WithTimeout(context.Background(), t)
}

func (r *Router) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	_, _ = r.Bot.Send(msg)
}

func (r *Router) sendMarkdown(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, util.Truncate(text, 3900))
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := r.Bot.Send(msg); err != nil {
		// битая разметка: шлём как есть
		r.logger().Warn("markdown send failed, retrying as plain text", "chat_id", chatID, "error", err)
		r.send(chatID, util.Truncate(text, 3900))
	}
}

func (r *Router) SendError(chatID int64, err error) {
	r.send(chatID, fmt.Sprintf("Ошибка: %v", err))
}
