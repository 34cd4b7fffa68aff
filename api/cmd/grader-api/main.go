package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"homework-grader/api/internal/app"
	"homework-grader/api/internal/config"
	"homework-grader/api/internal/handle"
	"homework-grader/api/internal/httpserver"
	"homework-grader/api/internal/store"
)

func main() {
	cfg := config.Load()

	if p := strings.TrimSpace(os.Getenv("PORT")); p != "" {
		cfg.Port = p
	} else if strings.TrimSpace(cfg.Port) == "" {
		cfg.Port = "8000"
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	dsn := app.ResolveDSN()
	db, err := app.OpenDB(context.Background(), dsn)
	if err != nil {
		log.Fatal(err)
	}
	if db != nil {
		defer db.Close()
		log.Printf("db connected: %s", app.SafeDSNSummary(dsn))
	} else {
		log.Printf("DATABASE_URL is empty: answer log disabled")
	}

	svc, err := app.NewService(cfg, db, logger)
	if err != nil {
		log.Fatal(err)
	}
	engines := app.Engines(cfg)
	h := handle.New(engines, svc).WithLogger(logger)
	if db != nil {
		h.WithAnswers(store.NewGradeRepo(db), cfg.AnswerMaxAge)
		app.StartPurger(context.Background(), db, time.Hour, cfg.Retention, logger)
	}

	mux := httpserver.NewMux("ok", app.Pinger(db))
	h.Register(mux)

	log.Printf("grader: policy=%s locale=%s judge=%s", svc.Grader.Policy(), svc.Grader.Taxonomy().Locale, cfg.LLMDefault)
	log.Fatal(httpserver.StartHTTP(":"+cfg.Port, mux))
}
