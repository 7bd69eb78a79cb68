// Package cli implements the noted command line client: a local-first page
// tree with optional publishing to a page service.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Backends accepted by --backend.
const (
	BackendBadger = "badger"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

const defaultRemote = "http://localhost:8080"

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

var validBackends = []string{BackendBadger, BackendSQLite, BackendMemory}

// RootOptions holds global flags for all commands.
type RootOptions struct {
	DataDir  string
	Backend  string
	Remote   string
	Token    string
	LogLevel string
	Format   string
	Verbose  bool
}

// Main runs the noted command line with args.
func Main(ctx context.Context, args []string) error {
	cmd := NewRootCommand()
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}

// NewRootCommand creates the root command for the noted CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "noted",
		Short: "Noted - local-first notes you can publish",
		Long: `Keep a tree of notes on this machine and share single pages
through a Noted page service. Pages are stored locally; publishing only
copies a page to the service.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("failed to load .env: %w", err)
			}
			return opts.resolve(cmd)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.DataDir, "data-dir", "", "directory holding the local store (default $HOME/.noted)")
	flags.StringVar(&opts.Backend, "backend", BackendBadger, "local store backend (badger|sqlite|memory)")
	flags.StringVar(&opts.Remote, "remote", "", "page service URL (NOTED_REMOTE, default "+defaultRemote+")")
	flags.StringVar(&opts.Token, "token", "", "bearer token for the page service (NOTED_TOKEN)")
	flags.StringVar(&opts.LogLevel, "log-level", "warn", "log level (trace|debug|info|warn|error)")
	flags.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "print state changes as they happen")

	cmd.AddCommand(NewPageCommand(opts))
	cmd.AddCommand(NewPublishCommand(opts))
	cmd.AddCommand(NewUnpublishCommand(opts))
	cmd.AddCommand(NewFetchCommand(opts))
	cmd.AddCommand(NewStatusCommand(opts))
	cmd.AddCommand(NewSettingsCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewResetCommand(opts))
	cmd.AddCommand(NewExplainCommand(opts))
	cmd.AddCommand(NewModelsCommand(opts))
	cmd.AddCommand(NewTokenCommand(opts))

	return cmd
}

// resolve fills unset options from the environment and checks them.
func (o *RootOptions) resolve(cmd *cobra.Command) error {
	if !slices.Contains(ValidFormats, o.Format) {
		return fmt.Errorf("invalid format %q: must be one of %v", o.Format, ValidFormats)
	}
	if !slices.Contains(validBackends, o.Backend) {
		return fmt.Errorf("invalid backend %q: must be one of %v", o.Backend, validBackends)
	}

	flags := cmd.Flags()
	if !flags.Changed("remote") {
		o.Remote = os.Getenv("NOTED_REMOTE")
		if o.Remote == "" {
			o.Remote = defaultRemote
		}
	}
	if !flags.Changed("token") {
		o.Token = os.Getenv("NOTED_TOKEN")
	}
	if o.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("cannot locate home directory, use --data-dir: %w", err)
		}
		o.DataDir = filepath.Join(home, ".noted")
	}
	return nil
}
