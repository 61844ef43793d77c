package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS capacity_rules (
	id TEXT PRIMARY KEY,
	store_id TEXT NOT NULL,
	scope_type TEXT NOT NULL DEFAULT 'store',
	scope_ids TEXT[] NOT NULL DEFAULT '{}',
	weekdays SMALLINT[] NOT NULL DEFAULT '{}',
	time_start_min SMALLINT NOT NULL,
	time_end_min SMALLINT NOT NULL,
	limit_type TEXT NOT NULL,
	limit_value INTEGER NOT NULL CHECK (limit_value >= 0),
	priority INTEGER NOT NULL DEFAULT 0,
	active BOOLEAN NOT NULL DEFAULT true,
	description TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	CHECK (time_start_min < time_end_min)
);

CREATE TABLE IF NOT EXISTS reservations (
	id TEXT PRIMARY KEY,
	store_id TEXT NOT NULL,
	customer_name TEXT NOT NULL,
	date DATE NOT NULL,
	time_min SMALLINT NOT NULL,
	people INTEGER NOT NULL DEFAULT 2,
	seat_type TEXT NOT NULL DEFAULT '',
	menu TEXT NOT NULL DEFAULT '',
	staff TEXT NOT NULL DEFAULT '',
	note TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'confirmed',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_rules_store_active
	ON capacity_rules(store_id) WHERE active;
CREATE INDEX IF NOT EXISTS idx_reservations_bucket
	ON reservations(store_id, date, time_min) WHERE status = 'confirmed';
`

// Migrate applies the schema. Statements are idempotent so it is safe
// to run on every startup.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, schemaSQL)
	return err
}
