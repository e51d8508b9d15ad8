package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"askora/internal/common/config"

	_ "github.com/lib/pq"
)

// TurnsSchema creates the session turn log used by memory.PostgresSessionLog.
const TurnsSchema = `
CREATE TABLE IF NOT EXISTS askora_turns (
	id          BIGSERIAL PRIMARY KEY,
	session_id  TEXT        NOT NULL,
	question    TEXT        NOT NULL,
	intent      TEXT        NOT NULL DEFAULT '',
	answer      TEXT        NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS askora_turns_session_idx ON askora_turns (session_id, created_at DESC);
`

type PostgresClient struct {
	DB *sql.DB
}

func NewPostgres(cfg config.PostgresConfig) (*PostgresClient, error) {
	if !cfg.Configured() {
		return nil, fmt.Errorf("postgres host, database and user must be configured")
	}

	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdle)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return &PostgresClient{DB: db}, nil
}

func (c *PostgresClient) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

// EnsureSchema creates the tables the engine writes to.
func (c *PostgresClient) EnsureSchema(ctx context.Context) error {
	if _, err := c.DB.ExecContext(ctx, TurnsSchema); err != nil {
		return fmt.Errorf("create askora_turns: %w", err)
	}
	return nil
}

func (c *PostgresClient) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}

func (c *PostgresClient) GetDB() *sql.DB {
	return c.DB
}
