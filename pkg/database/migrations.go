package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog/log"
)

// schema is the full database schema. Every statement is idempotent.
const schema = `
CREATE TABLE IF NOT EXISTS inventory_items (
    id                  UUID PRIMARY KEY,
    name                TEXT NOT NULL,
    category            TEXT NOT NULL DEFAULT '',
    quantity_total      INTEGER NOT NULL CHECK (quantity_total >= 0),
    quantity_available  INTEGER NOT NULL CHECK (quantity_available >= 0 AND quantity_available <= quantity_total),
    status              TEXT NOT NULL DEFAULT 'available' CHECK (status IN ('available', 'under_maintenance', 'damaged')),
    low_stock_threshold INTEGER NOT NULL DEFAULT 0 CHECK (low_stock_threshold >= 0),
    created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at          TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_inventory_items_name ON inventory_items (LOWER(name));

CREATE TABLE IF NOT EXISTS requests (
    id                 UUID PRIMARY KEY,
    request_type       TEXT NOT NULL CHECK (request_type IN ('item', 'custom', 'report')),
    requester_id       UUID NOT NULL,
    requester_name     TEXT NOT NULL DEFAULT '',
    location           TEXT NOT NULL DEFAULT '',
    status             TEXT NOT NULL,
    priority           TEXT NOT NULL DEFAULT 'normal' CHECK (priority IN ('normal', 'urgent')),
    admin_response     TEXT NOT NULL DEFAULT '',
    created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    item_id            UUID,
    item_name          TEXT NOT NULL DEFAULT '',
    quantity_requested INTEGER NOT NULL DEFAULT 0,
    quantity_assigned  INTEGER NOT NULL DEFAULT 0,
    reservation_id     UUID,
    due_date           TIMESTAMPTZ,
    assigned_at        TIMESTAMPTZ,
    returned_at        TIMESTAMPTZ,
    inspection_status  TEXT NOT NULL DEFAULT '',
    notes              TEXT NOT NULL DEFAULT '',
    description        TEXT NOT NULL DEFAULT '',
    estimated_cost     NUMERIC(12, 2) NOT NULL DEFAULT 0,
    photo_ref          TEXT NOT NULL DEFAULT '',
    related_request_id UUID,
    report_kind        TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_requests_requester ON requests (requester_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_requests_status ON requests (status, request_type);

CREATE TABLE IF NOT EXISTS reservations (
    id          UUID PRIMARY KEY,
    item_id     UUID NOT NULL REFERENCES inventory_items (id) ON DELETE CASCADE,
    request_id  UUID REFERENCES requests (id) ON DELETE SET NULL,
    quantity    INTEGER NOT NULL CHECK (quantity > 0),
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    released_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_reservations_active ON reservations (item_id) WHERE released_at IS NULL;

CREATE TABLE IF NOT EXISTS request_events (
    id          UUID PRIMARY KEY,
    request_id  UUID NOT NULL REFERENCES requests (id) ON DELETE CASCADE,
    from_status TEXT NOT NULL DEFAULT '',
    to_status   TEXT NOT NULL,
    actor_id    UUID NOT NULL,
    note        TEXT NOT NULL DEFAULT '',
    at          TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_request_events_request ON request_events (request_id, at);

CREATE TABLE IF NOT EXISTS budget (
    id                INTEGER PRIMARY KEY CHECK (id = 1),
    total_budget      NUMERIC(14, 2) NOT NULL DEFAULT 0,
    total_spent       NUMERIC(14, 2) NOT NULL DEFAULT 0,
    remaining_balance NUMERIC(14, 2) NOT NULL DEFAULT 0,
    percentage_used   NUMERIC(7, 2) NOT NULL DEFAULT 0,
    reset_at          TIMESTAMPTZ,
    updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS purchases (
    id          UUID PRIMARY KEY,
    amount      NUMERIC(12, 2) NOT NULL CHECK (amount > 0),
    description TEXT NOT NULL DEFAULT '',
    recorded_by UUID NOT NULL,
    recorded_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_purchases_recorded_at ON purchases (recorded_at);
`

// migrations run in order after the schema. Each must be idempotent; append only.
var migrations = []string{
	`ALTER TABLE requests ADD COLUMN IF NOT EXISTS related_request_id UUID`,
	`CREATE INDEX IF NOT EXISTS idx_requests_pending_created ON requests (created_at) WHERE status = 'pending'`,
}

// migrationLockID serializes concurrent Migrate calls across processes.
const migrationLockID = 72410386

type beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Migrate applies the schema and every migration in a single transaction.
func Migrate(ctx context.Context, db beginner) error {
	tx, err := db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin migration: %w", err)
	}
	if err := apply(ctx, tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			log.Warn().Err(rbErr).Msg("Migration rollback failed")
		}
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit migration: %w", err)
	}
	log.Info().Int("migrations", len(migrations)).Msg("Database schema up to date")
	return nil
}

func apply(ctx context.Context, db execer) error {
	if _, err := db.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, migrationLockID); err != nil {
		return fmt.Errorf("failed to acquire migration lock: %w", err)
	}
	if _, err := db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	for i, stmt := range migrations {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
