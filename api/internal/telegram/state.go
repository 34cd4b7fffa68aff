package telegram

import (
	"sync"
	"time"
)

const (
	sheetQuiet    = 1200 * time.Millisecond
	maxSheetPages = 10
	maxPageBytes  = 20 << 20
	maxPixels     = 18_000_000
)

// solutionSheet — страницы одного решения, ещё не отправленные на проверку.
type solutionSheet struct {
	chatID int64

	mu    sync.Mutex
	pages [][]byte
	mime  string
	flush *time.Timer
}

var (
	sheets     sync.Map // sheetKey -> *solutionSheet
	chatLocale sync.Map // chatID -> string
)

func setLocale(chatID int64, locale string) { chatLocale.Store(chatID, locale) }

func getLocale(chatID int64) string {
	if v, ok := chatLocale.Load(chatID); ok {
		if s, _ := v.(string); s != "" {
			return s
		}
	}
	return ""
}
