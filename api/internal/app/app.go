// Package app собирает зависимости для бинарников: судьи, БД, сервис проверки.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	"golang.org/x/time/rate"

	"homework-grader/api/internal/config"
	"homework-grader/api/internal/grading"
	"homework-grader/api/internal/ocr"
	"homework-grader/api/internal/ocr/gemini"
	"homework-grader/api/internal/ocr/gpt"
	"homework-grader/api/internal/ocr/yandex"
	"homework-grader/api/internal/store"
	"homework-grader/api/internal/verify"
)

// Engines создаёт только тех судей, для которых задан ключ.
func Engines(cfg *config.Config) *ocr.Engines {
	engs := &ocr.Engines{Default: cfg.LLMDefault}
	if cfg.GeminiAPIKey != "" {
		engs.Gemini = gemini.New(cfg.GeminiAPIKey, cfg.GeminiModel)
	}
	if cfg.OpenAIAPIKey != "" {
		engs.OpenAI = gpt.New(cfg.OpenAIAPIKey, cfg.OpenAIModel).WithBaseURL(cfg.OpenAIBaseURL)
	}
	return engs
}

// DefaultJudge — судья по умолчанию или nil (только правила).
func DefaultJudge(engs *ocr.Engines) ocr.Judge {
	j, err := engs.GetEngine("")
	if err != nil {
		return nil
	}
	return j
}

// Recognizer — Yandex OCR, если заданы ключи облака.
func Recognizer(cfg *config.Config) ocr.Recognizer {
	if cfg.YCOAuthToken == "" || cfg.YCFolderID == "" {
		return nil
	}
	return yandex.New(cfg.YCOAuthToken, cfg.YCFolderID)
}

// OpenDB открывает Postgres через pgx и создаёт схему. Пустой DSN — без БД.
func OpenDB(ctx context.Context, dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, nil
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}
	// connection pool tune (нагрузка до ~20 rps)
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(1 * time.Hour)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db.Ping: %w", err)
	}
	if err := store.EnsureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("schema: %w", err)
	}
	return db, nil
}

// NewService собирает сервис проверки; db может быть nil.
func NewService(cfg *config.Config, db *sql.DB, logger *slog.Logger) (*grading.Service, error) {
	opts, err := cfg.GraderOptions(logger)
	if err != nil {
		return nil, err
	}
	svc := &grading.Service{
		Grader:     verify.NewGrader(opts...),
		Recognizer: Recognizer(cfg),
		OCROptions: ocr.Options{Langs: []string{"ru", "en"}, Model: "handwritten"},
		CacheAge:   cfg.AnswerMaxAge,
		Log:        logger,
	}
	if cfg.JudgeRPS > 0 {
		svc.Limiter = rate.NewLimiter(rate.Limit(cfg.JudgeRPS), max(1, int(cfg.JudgeRPS)))
	}
	if db != nil {
		svc.Answers = store.NewGradeRepo(db)
		svc.Segments = store.NewSegmentRepo(db)
	}
	return svc, nil
}

type purger interface {
	PurgeOlderThan(ctx context.Context, olderThan time.Duration) (int64, error)
}

// StartPurger раз в every чистит журнал ответов и кэш разборов от записей
// старше olderThan. Останавливается вместе с ctx.
func StartPurger(ctx context.Context, db *sql.DB, every, olderThan time.Duration, logger *slog.Logger) {
	if db == nil || every <= 0 || olderThan <= 0 {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}
	repos := map[string]purger{
		"graded_answers": store.NewGradeRepo(db),
		"segment_cache":  store.NewSegmentRepo(db),
	}
	go func() {
		t := time.NewTicker(every)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				purgeOnce(ctx, logger, olderThan, repos)
			}
		}
	}()
}

func purgeOnce(ctx context.Context, logger *slog.Logger, olderThan time.Duration, repos map[string]purger) int64 {
	var total int64
	for name, r := range repos {
		n, err := r.PurgeOlderThan(ctx, olderThan)
		if err != nil {
			logger.Warn("purge failed", "table", name, "error", err)
			continue
		}
		if n > 0 {
			logger.Info("purged old rows", "table", name, "rows", n)
		}
		total += n
	}
	return total
}

// ResolveDSN: DATABASE_URL, иначе собираем из POSTGRES_* / PG*.
// Если не задано ни то, ни другое — пустая строка (работаем без БД).
func ResolveDSN() string {
	if v := strings.TrimSpace(os.Getenv("DATABASE_URL")); v != "" {
		return v
	}
	if os.Getenv("POSTGRES_PASSWORD") == "" && os.Getenv("PGHOST") == "" {
		return ""
	}
	user := getenvDefault("POSTGRES_USER", "grader")
	pass := os.Getenv("POSTGRES_PASSWORD")
	host := getenvDefault("PGHOST", "db")
	port := getenvDefault("PGPORT", "5432")
	db := getenvDefault("POSTGRES_DB", "grader")

	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(user, pass),
		Host:     net.JoinHostPort(host, port),
		Path:     "/" + db,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

func getenvDefault(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

// SafeDSNSummary — DSN для логов, без пароля.
func SafeDSNSummary(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "dsn: parse error"
	}
	user := u.User.Username()
	host := u.Host
	port := ""
	if h, p, err := net.SplitHostPort(u.Host); err == nil {
		host, port = h, p
	}
	db := strings.TrimPrefix(u.Path, "/")
	if port == "" {
		return fmt.Sprintf("host=%s db=%s user=%s", host, db, user)
	}
	return fmt.Sprintf("host=%s port=%s db=%s user=%s", host, port, db, user)
}

// Pinger для /healthz; без БД всегда здоров.
func Pinger(db *sql.DB) func(context.Context) error {
	if db == nil {
		return nil
	}
	return db.PingContext
}
