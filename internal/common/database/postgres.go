// internal/common/database/postgres.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"microfinance-scoring/internal/common/config"

	_ "github.com/lib/pq"
)

// PostgresClient wraps the SQL connection pool backing the scoring tables.
type PostgresClient struct {
	DB *sql.DB
}

// NewPostgres opens a pool; the connection is established lazily on first use.
func NewPostgres(cfg config.PostgresConfig) (*PostgresClient, error) {
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

func (c *PostgresClient) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}

// schemaStatements create the scoring tables when missing. They are idempotent.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS applicant_profiles (
		subject_id  TEXT PRIMARY KEY,
		profile     JSONB NOT NULL,
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS transaction_events (
		id              TEXT PRIMARY KEY,
		subject_id      TEXT NOT NULL,
		event_type      TEXT NOT NULL,
		amount          NUMERIC NOT NULL DEFAULT 0,
		scheduled_date  TIMESTAMPTZ,
		actual_date     TIMESTAMPTZ NOT NULL,
		metadata        JSONB NOT NULL DEFAULT '{}',
		recorded_at     TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_transaction_events_subject_date
		ON transaction_events (subject_id, actual_date DESC)`,
	`CREATE TABLE IF NOT EXISTS score_records (
		id                   TEXT PRIMARY KEY,
		subject_id           TEXT NOT NULL,
		version              BIGINT NOT NULL,
		score                DOUBLE PRECISION NOT NULL,
		score_850            INTEGER NOT NULL,
		risk_tier            TEXT NOT NULL,
		eligible_amount      BIGINT NOT NULL,
		model_type           TEXT NOT NULL,
		confidence           DOUBLE PRECISION NOT NULL,
		product_type         TEXT NOT NULL,
		source               TEXT NOT NULL,
		details              JSONB NOT NULL DEFAULT '{}',
		recommendations      TEXT[] NOT NULL DEFAULT '{}',
		profile_fingerprint  TEXT NOT NULL DEFAULT '',
		computed_at          TIMESTAMPTZ NOT NULL,
		UNIQUE (subject_id, version)
	)`,
	`CREATE TABLE IF NOT EXISTS training_samples (
		id            BIGSERIAL PRIMARY KEY,
		features      JSONB NOT NULL,
		outcome_good  BOOLEAN NOT NULL,
		recorded_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id          TEXT PRIMARY KEY,
		subject_id  TEXT NOT NULL,
		type        TEXT NOT NULL,
		title       TEXT NOT NULL,
		message     TEXT NOT NULL,
		old_score   DOUBLE PRECISION NOT NULL,
		new_score   DOUBLE PRECISION NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS subject_contacts (
		subject_id  TEXT PRIMARY KEY,
		email       TEXT NOT NULL DEFAULT '',
		phone       TEXT NOT NULL DEFAULT ''
	)`,
}

// EnsureSchema runs the table definitions inside a single transaction.
func (c *PostgresClient) EnsureSchema(ctx context.Context) error {
	tx, err := c.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	for _, stmt := range schemaStatements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return tx.Commit()
}
