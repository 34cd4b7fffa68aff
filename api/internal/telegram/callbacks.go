package telegram

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func (r *Router) handleCallback(cb tgbotapi.CallbackQuery) {
	if cb.Message == nil {
		return
	}
	cid := cb.Message.Chat.ID
	_, _ = r.Bot.Request(tgbotapi.NewCallback(cb.ID, "")) // ack

	var reply string
	switch {
	case strings.HasPrefix(cb.Data, cbEngine):
		reply = r.switchEngine(cid, strings.TrimPrefix(cb.Data, cbEngine), "")
	case strings.HasPrefix(cb.Data, cbLang):
		reply = r.switchLocale(cid, strings.TrimPrefix(cb.Data, cbLang))
	default:
		return
	}
	// убрать клавиатуру
	edit := tgbotapi.NewEditMessageReplyMarkup(cid, cb.Message.MessageID, tgbotapi.InlineKeyboardMarkup{})
	_, _ = r.Bot.Send(edit)
	r.send(cid, reply)
}
