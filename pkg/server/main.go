package server

import (
	"context"
	"fmt"

	"github.com/notedcloud/noted/pkg/logging"
	"github.com/spf13/cobra"
)

// Main runs the page service command line with args. It is what the
// noted-server binary calls, and tests call it directly.
func Main(ctx context.Context, args []string) error {
	cmd := NewCommand()
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}

type rootOptions struct {
	configPath string
	addr       string
	store      string
	dbURL      string
	readOnly   bool
	logLevel   string
	pretty     bool
}

// NewCommand returns the noted-server command tree.
//
//	noted-server run [--migrate]     serve the API
//	noted-server migrate             create or update the schema
func NewCommand() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "noted-server",
		Short:         "Serve published Noted pages",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "YAML configuration file")
	flags.StringVar(&opts.addr, "addr", "", "listen address (NOTED_ADDR)")
	flags.StringVar(&opts.store, "store", "", "page store: postgres, sqlite, surrealdb or memory (NOTED_STORE)")
	flags.StringVar(&opts.dbURL, "database-url", "", "PostgreSQL DSN or SQLite file (DATABASE_URL)")
	flags.BoolVar(&opts.readOnly, "read-only", false, "reject publish calls (NOTED_READ_ONLY)")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level (NOTED_LOG_LEVEL)")
	flags.BoolVar(&opts.pretty, "pretty", false, "human readable logs")

	runCmd := &RunCommand{}
	run := &cobra.Command{
		Use:   "run",
		Short: "Start the page service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(app *App) error {
				if err := app.Run(cmd.Context(), runCmd); err != nil {
					return fmt.Errorf("server failed: %w", err)
				}
				return nil
			})
		},
	}
	run.Flags().BoolVar(&runCmd.Migrate, "migrate", false, "run schema migrations before serving")

	migrate := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the page store schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(app *App) error {
				if err := app.Migrate(cmd.Context(), &MigrateCommand{}); err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
				return nil
			})
		},
	}

	root.AddCommand(run, migrate)
	return root
}

// loadConfig puts the flags that were set on top of the file and environment
// layers.
func loadConfig(cmd *cobra.Command, opts *rootOptions) (*Config, error) {
	cfg, err := loadLayers(opts.configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("addr") {
		cfg.Addr = opts.addr
	}
	if flags.Changed("store") {
		cfg.Store = opts.store
	}
	if flags.Changed("database-url") {
		cfg.DatabaseURL = opts.dbURL
	}
	if flags.Changed("read-only") {
		cfg.ReadOnly = opts.readOnly
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = opts.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func withApp(cmd *cobra.Command, opts *rootOptions, fn func(*App) error) error {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return fmt.Errorf("failed to parse configuration: %w", err)
	}

	log, err := logging.New().FromWriter(cmd.ErrOrStderr()).Level(cfg.LogLevel).Pretty(opts.pretty).Make()
	if err != nil {
		return err
	}
	defer log.Close()

	app, err := New(cmd.Context(), cfg, log.Logger)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}
	defer app.Close()

	return fn(app)
}
