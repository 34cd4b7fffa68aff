package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"homework-grader/api/internal/verify"
)

const (
	cbEngine = "engine:"
	cbLang   = "lang:"
)

// Кнопки выбора судьи
func makeEngineKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("Gemini", cbEngine+"gemini"),
		tgbotapi.NewInlineKeyboardButtonData("GPT", cbEngine+"gpt"),
		tgbotapi.NewInlineKeyboardButtonData("Только правила", cbEngine+"rules"),
	))
}

// Кнопки выбора языка отчёта
func makeLangKeyboard() tgbotapi.InlineKeyboardMarkup {
	var row []tgbotapi.InlineKeyboardButton
	for _, l := range verify.Locales() {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(l, cbLang+l))
	}
	return tgbotapi.NewInlineKeyboardMarkup(row)
}
