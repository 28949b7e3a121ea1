package commands

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/chikamso/portfolio/internal/cli/ui"
	"github.com/chikamso/portfolio/internal/store/migrate"
)

// categorizeDatabaseError returns a short message for common failures. In
// verbose mode it returns the full error.
func categorizeDatabaseError(err error, verbose bool) string {
	if verbose {
		return err.Error()
	}

	errStr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errStr, "syntax"):
		return "SQL syntax error - use --verbose for details"
	case strings.Contains(errStr, "constraint") || strings.Contains(errStr, "violates"):
		return "constraint violation - use --verbose for details"
	case strings.Contains(errStr, "does not exist"):
		return "referenced object does not exist - use --verbose for details"
	case strings.Contains(errStr, "already exists"):
		return "object already exists - use --verbose for details"
	case strings.Contains(errStr, "permission denied") || strings.Contains(errStr, "access denied"):
		return "permission denied - check database user privileges"
	}
	return "migration failed - use --verbose for details"
}

func newMigrateCommand(opts *options) *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration commands",
		Long: `Apply and roll back the schema migrations built into the binary.

Available subcommands:
  up       - Apply all pending migrations
  down     - Roll back the last migration
  status   - Show migration status`,
	}
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show detailed error messages")

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDatabase(cmd, opts, func(ctx context.Context, db *sql.DB, p *ui.Printer) error {
				return migrateUp(ctx, db, p, verbose)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the last migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDatabase(cmd, opts, func(ctx context.Context, db *sql.DB, p *ui.Printer) error {
				return migrateDown(ctx, db, p, verbose)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDatabase(cmd, opts, func(ctx context.Context, db *sql.DB, p *ui.Printer) error {
				return migrateStatus(ctx, db, p)
			})
		},
	})

	return cmd
}

// withDatabase opens the configured database for the duration of fn
func withDatabase(cmd *cobra.Command, opts *options, fn func(context.Context, *sql.DB, *ui.Printer) error) error {
	cfg, err := opts.databaseConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	db, err := opts.openDB(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	return fn(ctx, db, opts.printer(cmd))
}

func migrateUp(ctx context.Context, db *sql.DB, p *ui.Printer, verbose bool) error {
	migrations, err := migrate.Builtin()
	if err != nil {
		return err
	}

	applied, err := migrate.NewRunner(db, zap.NewNop()).Up(ctx, migrations)
	for _, m := range applied {
		p.Success("Applied %s", m.ID())
	}
	if err != nil {
		p.Error(ui.Problem{
			Context: "migration failed",
			Message: categorizeDatabaseError(err, verbose),
			Hints:   []string{"Check migration status: portfolio migrate status"},
		})
		return errors.New("migration failed")
	}

	if len(applied) == 0 {
		p.Info("No pending migrations")
		return nil
	}
	p.Success("Applied %d migration(s)", len(applied))
	return nil
}

func migrateDown(ctx context.Context, db *sql.DB, p *ui.Printer, verbose bool) error {
	m, err := migrate.NewRunner(db, zap.NewNop()).Down(ctx)
	if errors.Is(err, migrate.ErrNoMigrations) {
		p.Info("No migrations to roll back")
		return nil
	}
	if err != nil {
		p.Error(ui.Problem{
			Context: "rollback failed",
			Message: categorizeDatabaseError(err, verbose),
		})
		return errors.New("rollback failed")
	}
	p.Success("Rolled back %s", m.ID())
	return nil
}

func migrateStatus(ctx context.Context, db *sql.DB, p *ui.Printer) error {
	migrations, err := migrate.Builtin()
	if err != nil {
		return err
	}
	status, err := migrate.NewRunner(db, zap.NewNop()).Status(ctx, migrations)
	if err != nil {
		return err
	}

	tbl := p.Table("VERSION", "NAME", "STATUS", "APPLIED AT")
	for _, m := range status.Applied {
		tbl.AddRow(fmt.Sprintf("%04d", m.Version), m.Name, "applied", m.AppliedAt.Format("2006-01-02 15:04:05"))
	}
	for _, m := range status.Pending {
		tbl.AddRow(fmt.Sprintf("%04d", m.Version), m.Name, "pending")
	}
	tbl.Render()

	fmt.Fprintln(p.Writer())
	if len(status.Pending) == 0 {
		p.Success("Database is up to date")
	} else {
		p.Warn("%d pending migration(s)", len(status.Pending))
	}
	return nil
}
