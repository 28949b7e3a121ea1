package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ErrNoMigrations is returned by Down when nothing has been applied
var ErrNoMigrations = errors.New("no migrations to roll back")

// Runner applies and rolls back migrations, one transaction each
type Runner struct {
	db      *sql.DB
	tracker *Tracker
	logger  *zap.Logger
}

// Status describes applied and pending migrations
type Status struct {
	Applied []*Migration
	Pending []*Migration
}

// NewRunner creates a new migration runner
func NewRunner(db *sql.DB, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{db: db, tracker: NewTracker(db), logger: logger}
}

// Up applies every pending migration in order and returns the ones applied
func (r *Runner) Up(ctx context.Context, migrations []*Migration) ([]*Migration, error) {
	if err := r.tracker.Initialize(ctx); err != nil {
		return nil, err
	}
	pending, err := r.tracker.Pending(ctx, migrations)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending migrations: %w", err)
	}

	var applied []*Migration
	for _, m := range pending {
		start := time.Now()
		err := r.inTx(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, m.Up); err != nil {
				return fmt.Errorf("failed to execute migration SQL: %w", err)
			}
			return r.tracker.Record(ctx, tx, m)
		})
		if err != nil {
			return applied, fmt.Errorf("migration %s failed: %w", m.ID(), err)
		}
		r.logger.Info("migration applied",
			zap.String("migration", m.ID()),
			zap.Duration("duration", time.Since(start)),
		)
		applied = append(applied, m)
	}
	return applied, nil
}

// Down rolls back the most recently applied migration
func (r *Runner) Down(ctx context.Context) (*Migration, error) {
	if err := r.tracker.Initialize(ctx); err != nil {
		return nil, err
	}
	last, err := r.tracker.Last(ctx)
	if err != nil {
		return nil, err
	}
	if last == nil {
		return nil, ErrNoMigrations
	}
	if last.Down == "" {
		return nil, fmt.Errorf("migration %s has no down migration", last.ID())
	}

	err = r.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, last.Down); err != nil {
			return fmt.Errorf("failed to execute rollback SQL: %w", err)
		}
		return r.tracker.Remove(ctx, tx, last.Version)
	})
	if err != nil {
		return nil, fmt.Errorf("rollback of %s failed: %w", last.ID(), err)
	}
	r.logger.Info("migration rolled back", zap.String("migration", last.ID()))
	return last, nil
}

// Status reports applied and pending migrations
func (r *Runner) Status(ctx context.Context, migrations []*Migration) (*Status, error) {
	if err := r.tracker.Initialize(ctx); err != nil {
		return nil, err
	}
	applied, err := r.tracker.Applied(ctx)
	if err != nil {
		return nil, err
	}
	pending, err := r.tracker.Pending(ctx, migrations)
	if err != nil {
		return nil, err
	}
	return &Status{Applied: applied, Pending: pending}, nil
}

func (r *Runner) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			r.logger.Warn("failed to rollback transaction", zap.Error(err))
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
