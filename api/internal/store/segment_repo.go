package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"homework-grader/api/internal/ocr"
)

// SegmentRepo кэширует разбор судьи (фото/текст → задачи и шаги),
// чтобы повторная отправка того же фото не ходила в LLM.
type SegmentRepo struct{ DB *sql.DB }

func NewSegmentRepo(db *sql.DB) *SegmentRepo { return &SegmentRepo{DB: db} }

// Find достаёт разбор по ключу (input_hash + judge + model).
// Если maxAge > 0 и запись старше, вернёт ErrNotFound.
func (r *SegmentRepo) Find(ctx context.Context, inputHash, judge, model string, maxAge time.Duration) ([]ocr.ParsedProblem, error) {
	const q = `select result_json, created_at
	           from segment_cache
	           where input_hash=$1 and judge=$2 and model=$3`
	var (
		js []byte
		ts time.Time
	)
	if err := r.DB.QueryRowContext(ctx, q, inputHash, judge, model).Scan(&js, &ts); err != nil {
		return nil, err
	}
	if maxAge > 0 && time.Since(ts) > maxAge {
		return nil, ErrNotFound
	}
	var ps []ocr.ParsedProblem
	if err := json.Unmarshal(js, &ps); err != nil {
		return nil, ErrNotFound
	}
	return ps, nil
}

// Upsert сохраняет/обновляет разбор.
func (r *SegmentRepo) Upsert(ctx context.Context, inputHash, judge, model string, ps []ocr.ParsedProblem) error {
	js, err := json.Marshal(ps)
	if err != nil {
		return err
	}
	const q = `
insert into segment_cache(input_hash, judge, model, result_json)
values ($1,$2,$3,$4)
on conflict (input_hash, judge, model)
do update set result_json=excluded.result_json, created_at=now()`
	_, err = r.DB.ExecContext(ctx, q, inputHash, judge, model, js)
	return err
}

func (r *SegmentRepo) PurgeOlderThan(ctx context.Context, olderThan time.Duration) (int64, error) {
	return purge(ctx, r.DB, "segment_cache", olderThan)
}

