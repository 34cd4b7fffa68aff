package config

import (
	"log"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"homework-grader/api/internal/verify"
)

type Config struct {
	Port string

	// движок проверки
	Locale          string
	ReconcilePolicy string // external_first | rule_first
	MaxSuggestions  int
	StepParallelism int

	DatabaseURL  string
	AnswerMaxAge time.Duration
	Retention    time.Duration // старше — удаляем из журнала и кэша

	// внешние судьи; пустой ключ — судья выключен
	LLMDefault    string  // gemini | gpt | rules
	JudgeRPS      float64 // 0 — без лимита
	GeminiAPIKey  string
	GeminiModel   string
	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string

	// бот
	TelegramBotToken string
	WebhookURL       string
	YCOAuthToken     string
	YCFolderID       string
}

func mustEnv(k string) string {
	v := os.Getenv(k)
	if v == "" {
		log.Fatalf("missing required env %s", k)
	}
	return v
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getInt(k string, def int) int {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("config: %s=%q is not an integer, using %d", k, v, def)
		return def
	}
	return n
}

func getFloat(k string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 {
		log.Printf("config: bad %s=%q, using %v", k, v, def)
		return def
	}
	return f
}

func getDuration(k string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("config: %s=%q is not a duration, using %s", k, v, def)
		return def
	}
	return d
}

// Load читает конфигурацию HTTP-сервиса и CLI. Ключи судей необязательны.
func Load() *Config {
	c := &Config{
		Port: getEnv("PORT", "8000"),

		Locale:          getEnv("GRADER_LOCALE", verify.DefaultLocale),
		ReconcilePolicy: getEnv("GRADER_RECONCILE_POLICY", verify.ExternalFirst.String()),
		MaxSuggestions:  getInt("GRADER_MAX_SUGGESTIONS", verify.DefaultMaxSuggestions),
		StepParallelism: getInt("GRADER_STEP_PARALLELISM", 0),

		DatabaseURL:  os.Getenv("DATABASE_URL"),
		AnswerMaxAge: getDuration("GRADER_ANSWER_MAX_AGE", 24*time.Hour),
		Retention:    getDuration("GRADER_RETENTION", 30*24*time.Hour),

		JudgeRPS:      getFloat("GRADER_JUDGE_RPS", 0),
		GeminiAPIKey:  os.Getenv("GEMINI_API_KEY"),
		GeminiModel:   getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		OpenAIAPIKey:  os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL: os.Getenv("OPENAI_BASE_URL"),

		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		WebhookURL:       os.Getenv("WEBHOOK_URL"),
		YCOAuthToken:     os.Getenv("YC_OAUTH_TOKEN"),
		YCFolderID:       os.Getenv("YC_FOLDER_ID"),
	}
	c.LLMDefault = getEnv("LLM_DEFAULT", c.defaultJudge())
	return c
}

// LoadBot — то же, но токен бота обязателен.
func LoadBot() *Config {
	c := Load()
	c.TelegramBotToken = mustEnv("TELEGRAM_BOT_TOKEN")
	return c
}

func (c *Config) defaultJudge() string {
	switch {
	case c.GeminiAPIKey != "":
		return "gemini"
	case c.OpenAIAPIKey != "":
		return "gpt"
	}
	return "rules"
}

// GraderOptions собирает опции движка из конфигурации.
func (c *Config) GraderOptions(logger *slog.Logger) ([]verify.Option, error) {
	policy, err := verify.ParsePolicy(c.ReconcilePolicy)
	if err != nil {
		return nil, err
	}
	tax, err := verify.LoadTaxonomy(c.Locale)
	if err != nil {
		return nil, err
	}
	opts := []verify.Option{
		verify.WithPolicy(policy),
		verify.WithTaxonomy(tax),
		verify.WithMaxSuggestions(c.MaxSuggestions),
	}
	if c.StepParallelism > 0 {
		opts = append(opts, verify.WithParallelism(c.StepParallelism))
	}
	if logger != nil {
		opts = append(opts, verify.WithLogger(logger))
	}
	return opts, nil
}
