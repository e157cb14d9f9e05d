package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"reviewcall/internal/platform/config"
)

func Connect(ctx context.Context, cfg config.Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	return pgxpool.NewWithConfig(ctx, poolCfg)
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS session_state (
    session_id TEXT NOT NULL,
    state_key  TEXT NOT NULL,
    payload    JSONB NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (session_id, state_key)
  )`,
	`CREATE TABLE IF NOT EXISTS transcript_entries (
    id         BIGSERIAL PRIMARY KEY,
    session_id TEXT NOT NULL,
    speaker    TEXT NOT NULL,
    addressee  TEXT NOT NULL DEFAULT '',
    content    TEXT NOT NULL,
    spoken_at  TIMESTAMPTZ NOT NULL DEFAULT now()
  )`,
	`CREATE INDEX IF NOT EXISTS idx_transcript_session ON transcript_entries (session_id, id)`,
}

func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
