package commands

import (
	"context"
	"database/sql"
	"runtime"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/chikamso/portfolio/internal/cli/config"
	"github.com/chikamso/portfolio/internal/cli/ui"
	"github.com/chikamso/portfolio/internal/store"
)

var (
	// Version information - set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
	GoVersion = "unknown"
)

// options carries the global flags and the hooks tests replace
type options struct {
	configPath string
	noColor    bool

	loadConfig func(path string) (*config.Config, error)
	openDB     func(ctx context.Context, cfg *config.Config) (*sql.DB, error)
	prompt     prompter
}

func defaultOptions() *options {
	return &options{
		loadConfig: config.Load,
		openDB:     openDatabase,
		prompt:     surveyPrompter{},
	}
}

func openDatabase(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	return store.Open(ctx, cfg.Database.URL, store.PoolConfig{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
}

func (o *options) printer(cmd *cobra.Command) *ui.Printer {
	return ui.NewPrinter(cmd.OutOrStdout(), o.noColor)
}

// databaseConfig loads the configuration and checks that a database is configured
func (o *options) databaseConfig() (*config.Config, error) {
	cfg, err := o.loadConfig(o.configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.RequireDatabase(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// NewRootCommand creates the root command
func NewRootCommand() *cobra.Command {
	return newRootCommand(defaultOptions())
}

func newRootCommand(opts *options) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "portfolio",
		Short: "Personal portfolio server",
		Long: color.CyanString(`portfolio - personal portfolio web application

Serves the public project and skill pages, the admin area used to manage
them, and a small JSON API. Images are stored in an S3-compatible bucket or
a local directory.`),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			if opts.noColor {
				color.NoColor = true
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file (default ./portfolio.yml)")
	rootCmd.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "disable coloured output")

	rootCmd.AddCommand(newVersionCommand(opts))
	rootCmd.AddCommand(newServeCommand(opts))
	rootCmd.AddCommand(newMigrateCommand(opts))
	rootCmd.AddCommand(newUserCommand(opts))

	return rootCmd
}

func newVersionCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			goVer := GoVersion
			if goVer == "unknown" {
				goVer = runtime.Version()
			}
			opts.printer(cmd).KeyValues(
				[2]string{"Version", Version},
				[2]string{"Git commit", GitCommit},
				[2]string{"Build date", BuildDate},
				[2]string{"Go version", goVer},
			)
		},
	}
}

// Execute runs the root command
func Execute() error {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		errorColor := color.New(color.FgRed, color.Bold)
		errorColor.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
		return err
	}
	return nil
}
