package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"homework-grader/api/internal/util"
	"homework-grader/api/internal/verify"
)

type GradeRepo struct{ DB *sql.DB }

func NewGradeRepo(db *sql.DB) *GradeRepo { return &GradeRepo{DB: db} }

// GradeRecord — одна проверенная задача в журнале ответов.
type GradeRecord struct {
	ID          int64
	CreatedAt   time.Time
	RequestID   string
	ProblemHash string
	ProblemID   string
	ProblemText string
	Source      string // api | bot | cli
	ChatID      int64
	Judge       string
	Locale      string
	Policy      string
	Steps       []*verify.SolutionStep
	Result      verify.ValidationResult
	IsCorrect   bool
	Confidence  float64
}

// HashSteps — ключ задачи: нормализованные пары from → to по порядку.
func HashSteps(steps []*verify.SolutionStep) string {
	var b strings.Builder
	for _, s := range steps {
		if s == nil {
			continue
		}
		b.WriteString(compact(s.From))
		b.WriteString("\x1f")
		b.WriteString(compact(s.To))
		b.WriteString("\x1e")
	}
	return util.SHA256Hex([]byte(b.String()))
}

func compact(expr string) string {
	return strings.Join(strings.Fields(verify.Normalize(expr)), "")
}

// Save пишет запись; ProblemHash считается из шагов, если не задан.
func (r *GradeRepo) Save(ctx context.Context, rec *GradeRecord) error {
	if rec == nil {
		return errors.New("nil grade record")
	}
	if rec.ProblemHash == "" {
		rec.ProblemHash = HashSteps(rec.Steps)
	}
	steps, err := json.Marshal(rec.Steps)
	if err != nil {
		return err
	}
	result, err := json.Marshal(rec.Result)
	if err != nil {
		return err
	}
	var chatID sql.NullInt64
	if rec.ChatID != 0 {
		chatID = sql.NullInt64{Int64: rec.ChatID, Valid: true}
	}
	const q = `
insert into graded_answers (
  request_id, problem_hash, problem_id, problem_text, source, chat_id,
  judge, locale, policy, steps_json, result_json, is_correct, confidence
) values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
returning id, created_at`
	return r.DB.QueryRowContext(ctx, q,
		rec.RequestID, rec.ProblemHash, rec.ProblemID, rec.ProblemText, rec.Source, chatID,
		rec.Judge, rec.Locale, rec.Policy, steps, result, rec.Result.IsCorrect, rec.Result.Confidence,
	).Scan(&rec.ID, &rec.CreatedAt)
}

const selectRecord = `
select id, created_at, request_id, problem_hash, problem_id, problem_text, source,
       coalesce(chat_id,0) as chat_id, judge, locale, policy,
       steps_json, result_json, is_correct, confidence
from graded_answers`

// FindByHash достаёт самую свежую запись по хэшу задачи.
// Если maxAge > 0 — проверяет "свежесть", иначе игнорирует возраст.
func (r *GradeRepo) FindByHash(ctx context.Context, hash string, maxAge time.Duration) (*GradeRecord, error) {
	row := r.DB.QueryRowContext(ctx, selectRecord+`
where problem_hash = $1
order by created_at desc
limit 1`, hash)
	rec, err := scanRecord(row)
	if err != nil {
		return nil, err
	}
	if maxAge > 0 && time.Since(rec.CreatedAt) > maxAge {
		return nil, ErrNotFound
	}
	return rec, nil
}

// FindByRequestID возвращает все задачи одного запроса в порядке записи.
func (r *GradeRepo) FindByRequestID(ctx context.Context, requestID string) ([]*GradeRecord, error) {
	rows, err := r.DB.QueryContext(ctx, selectRecord+`
where request_id = $1
order by id`, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*GradeRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return out, nil
}

// PurgeOlderThan удаляет очень старые записи, чтобы не раздувать БД.
func (r *GradeRepo) PurgeOlderThan(ctx context.Context, olderThan time.Duration) (int64, error) {
	return purge(ctx, r.DB, "graded_answers", olderThan)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*GradeRecord, error) {
	var (
		rec           GradeRecord
		steps, result []byte
	)
	if err := s.Scan(&rec.ID, &rec.CreatedAt, &rec.RequestID, &rec.ProblemHash, &rec.ProblemID,
		&rec.ProblemText, &rec.Source, &rec.ChatID, &rec.Judge, &rec.Locale, &rec.Policy,
		&steps, &result, &rec.IsCorrect, &rec.Confidence); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(steps, &rec.Steps); err != nil {
		return nil, fmt.Errorf("record %d: decode steps_json: %w", rec.ID, err)
	}
	if err := json.Unmarshal(result, &rec.Result); err != nil {
		return nil, fmt.Errorf("record %d: decode result_json: %w", rec.ID, err)
	}
	return &rec, nil
}

func purge(ctx context.Context, db *sql.DB, table string, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, errors.New("olderThan must be > 0")
	}
	cutoff := time.Now().Add(-olderThan)
	res, err := db.ExecContext(ctx, `delete from `+table+` where created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	aff, _ := res.RowsAffected()
	return aff, nil
}
