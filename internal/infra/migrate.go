package infra

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// schema holds the full table layout. Statements are idempotent so process
// start can always run them; the unique index on (subscription_id, period_date)
// is what makes scheduler ticks safe to overlap.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS subscriptions (
		id UUID PRIMARY KEY,
		user_id BIGINT NOT NULL UNIQUE,
		query TEXT NOT NULL,
		mode TEXT NOT NULL,
		delivery_time TIME NOT NULL DEFAULT '21:00',
		timezone TEXT NOT NULL DEFAULT 'Europe/Moscow',
		locale TEXT NOT NULL DEFAULT 'ru',
		enabled BOOLEAN NOT NULL DEFAULT FALSE,
		flagged BOOLEAN NOT NULL DEFAULT FALSE,
		last_successful_delivery DATE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS jobs (
		id UUID PRIMARY KEY,
		subscription_id UUID NOT NULL REFERENCES subscriptions(id) ON DELETE CASCADE,
		period_date DATE NOT NULL,
		due_at TIMESTAMPTZ NOT NULL,
		run_at TIMESTAMPTZ NOT NULL,
		attempt_count INT NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'pending',
		last_error TEXT NOT NULL DEFAULT '',
		lease_expires_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (subscription_id, period_date)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_jobs_status_run_at ON jobs(status, run_at)`,
	`CREATE INDEX IF NOT EXISTS idx_jobs_lease ON jobs(lease_expires_at) WHERE status = 'running'`,
	`CREATE INDEX IF NOT EXISTS idx_subscriptions_enabled ON subscriptions(enabled) WHERE enabled`,
}

// RunMigrations opens a short-lived database/sql connection and applies the
// schema. It runs before the pgx pool is created so the engine never observes
// missing tables.
func RunMigrations(databaseURL string) error {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
