package app

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homework-grader/api/internal/config"
	"homework-grader/api/internal/verify"
)

func TestResolveDSN(t *testing.T) {
	for _, k := range []string{"DATABASE_URL", "POSTGRES_USER", "POSTGRES_PASSWORD", "PGHOST", "PGPORT", "POSTGRES_DB"} {
		t.Setenv(k, "")
	}
	assert.Empty(t, ResolveDSN())

	t.Setenv("POSTGRES_PASSWORD", "s3cr3t")
	dsn := ResolveDSN()
	assert.Equal(t, "postgres://grader:s3cr3t@db:5432/grader?sslmode=disable", dsn)
	assert.Equal(t, "host=db port=5432 db=grader user=grader", SafeDSNSummary(dsn))

	t.Setenv("DATABASE_URL", "postgres://u:p@pg.local/answers")
	assert.Equal(t, "postgres://u:p@pg.local/answers", ResolveDSN())
	assert.Equal(t, "host=pg.local db=answers user=u", SafeDSNSummary(ResolveDSN()))
}

func TestEngines_OnlyConfigured(t *testing.T) {
	engs := Engines(&config.Config{LLMDefault: "gemini", OpenAIAPIKey: "k", OpenAIModel: "gpt-4o-mini"})
	assert.Nil(t, engs.Gemini)
	require.NotNil(t, engs.OpenAI)
	assert.Nil(t, DefaultJudge(engs), "default judge is not configured")

	engs.Default = "gpt"
	require.NotNil(t, DefaultJudge(engs))
	assert.Equal(t, "gpt", DefaultJudge(engs).Name())
}

func TestNewService_WithoutDB(t *testing.T) {
	db, err := OpenDB(context.Background(), "")
	require.NoError(t, err)
	assert.Nil(t, db)
	assert.Nil(t, Pinger(nil))

	svc, err := NewService(&config.Config{Locale: "zh", ReconcilePolicy: "rule_first"}, nil, nil)
	require.NoError(t, err)
	assert.Nil(t, svc.Answers)
	assert.Nil(t, svc.Recognizer)
	assert.Equal(t, verify.RuleFirst, svc.Grader.Policy())
	assert.Equal(t, "zh", svc.Grader.Taxonomy().Locale)
	assert.Nil(t, svc.Limiter)

	svc, err = NewService(&config.Config{JudgeRPS: 2.5}, nil, nil)
	require.NoError(t, err)
	require.NotNil(t, svc.Limiter)
	assert.Equal(t, 2, svc.Limiter.Burst())
}

type fakePurger struct {
	n   int64
	err error
	got time.Duration
}

func (f *fakePurger) PurgeOlderThan(_ context.Context, d time.Duration) (int64, error) {
	f.got = d
	return f.n, f.err
}

func TestPurgeOnce(t *testing.T) {
	ok := &fakePurger{n: 3}
	broken := &fakePurger{err: errors.New("relation does not exist")}
	n := purgeOnce(context.Background(), slog.Default(), time.Hour, map[string]purger{"a": ok, "b": broken})
	assert.Equal(t, int64(3), n)
	assert.Equal(t, time.Hour, ok.got)
	assert.Equal(t, time.Hour, broken.got)

	// без БД ничего не запускается
	StartPurger(context.Background(), nil, time.Minute, time.Hour, nil)
}
