package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Tracker manages migration history in the schema_migrations table
type Tracker struct {
	db *sql.DB
}

// NewTracker creates a new migration tracker
func NewTracker(db *sql.DB) *Tracker {
	return &Tracker{db: db}
}

// Initialize ensures the schema_migrations table exists
func (t *Tracker) Initialize(ctx context.Context) error {
	_, err := t.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version BIGINT PRIMARY KEY,
	name TEXT NOT NULL,
	down_sql TEXT,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`)
	if err != nil {
		return fmt.Errorf("failed to initialize migrations table: %w", err)
	}
	return nil
}

// Applied returns applied migrations ordered by version
func (t *Tracker) Applied(ctx context.Context) ([]*Migration, error) {
	rows, err := t.db.QueryContext(ctx,
		`SELECT version, name, down_sql, applied_at FROM schema_migrations ORDER BY version ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query migrations: %w", err)
	}
	defer rows.Close()

	var applied []*Migration
	for rows.Next() {
		m := &Migration{}
		var down sql.NullString
		if err := rows.Scan(&m.Version, &m.Name, &down, &m.AppliedAt); err != nil {
			return nil, fmt.Errorf("failed to scan migration: %w", err)
		}
		m.Down = down.String
		applied = append(applied, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating migrations: %w", err)
	}
	return applied, nil
}

// Last returns the most recently applied migration, or nil
func (t *Tracker) Last(ctx context.Context) (*Migration, error) {
	m := &Migration{}
	var down sql.NullString
	err := t.db.QueryRowContext(ctx,
		`SELECT version, name, down_sql, applied_at FROM schema_migrations ORDER BY version DESC LIMIT 1`,
	).Scan(&m.Version, &m.Name, &down, &m.AppliedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get last migration: %w", err)
	}
	m.Down = down.String
	return m, nil
}

// Record marks m as applied
func (t *Tracker) Record(ctx context.Context, tx *sql.Tx, m *Migration) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO schema_migrations (version, name, down_sql) VALUES ($1, $2, $3)`,
		m.Version, m.Name, m.Down)
	if err != nil {
		return fmt.Errorf("failed to record migration: %w", err)
	}
	return nil
}

// Remove deletes the record of a rolled back migration
func (t *Tracker) Remove(ctx context.Context, tx *sql.Tx, version int64) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM schema_migrations WHERE version = $1`, version)
	if err != nil {
		return fmt.Errorf("failed to remove migration: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("migration version %d not found", version)
	}
	return nil
}

// Pending filters all down to migrations that have not been applied
func (t *Tracker) Pending(ctx context.Context, all []*Migration) ([]*Migration, error) {
	applied, err := t.Applied(ctx)
	if err != nil {
		return nil, err
	}
	done := make(map[int64]bool, len(applied))
	for _, m := range applied {
		done[m.Version] = true
	}

	var pending []*Migration
	for _, m := range all {
		if !done[m.Version] {
			pending = append(pending, m)
		}
	}
	return pending, nil
}
