package store

import (
	"context"
	"database/sql"
)

var ErrNotFound = sql.ErrNoRows

const schema = `
create table if not exists graded_answers (
  id           bigserial primary key,
  created_at   timestamptz not null default now(),
  request_id   text not null,
  problem_hash text not null,
  problem_id   text not null default '',
  problem_text text not null default '',
  source       text not null default '',
  chat_id      bigint,
  judge        text not null default '',
  locale       text not null default '',
  policy       text not null default '',
  steps_json   jsonb not null,
  result_json  jsonb not null,
  is_correct   boolean not null,
  confidence   double precision not null default 0
);
create index if not exists graded_answers_hash_idx on graded_answers (problem_hash, created_at desc);
create index if not exists graded_answers_request_idx on graded_answers (request_id);

create table if not exists segment_cache (
  input_hash  text not null,
  judge       text not null,
  model       text not null,
  result_json jsonb not null,
  created_at  timestamptz not null default now(),
  primary key (input_hash, judge, model)
);`

// EnsureSchema создаёт таблицы, если их ещё нет.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schema)
	return err
}
