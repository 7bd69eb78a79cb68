package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/notedcloud/noted/pkg/models"
	"github.com/spf13/cobra"
)

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "export [file]",
		Short: "Write all pages and settings as JSON",
		Long: `Write all pages and settings as JSON to file, or to standard output.
The export includes the API key.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rootOpts, func(s *session) error {
				snapshot, err := s.manager.Export(cmd.Context())
				if err != nil {
					return s.out.Error(WrapExitError(ExitFailure, "failed to export", err))
				}
				data, err := json.MarshalIndent(snapshot, "", "  ")
				if err != nil {
					return s.out.Error(WrapExitError(ExitFailure, "failed to encode export", err))
				}
				if len(args) == 0 {
					_, err := cmd.OutOrStdout().Write(append(data, '\n'))
					return err
				}
				if err := os.WriteFile(args[0], data, 0o600); err != nil {
					return s.out.Error(WrapExitError(ExitFailure, "failed to write export", err))
				}
				return s.out.Success(map[string]any{"file": args[0], "pages": len(snapshot.Pages)},
					fmt.Sprintf("exported %d pages to %s", len(snapshot.Pages), args[0]))
			})
		},
	}
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Replace all pages and settings with an export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to read import", err)
			}
			var snapshot models.Snapshot
			if err := json.Unmarshal(data, &snapshot); err != nil {
				return WrapExitError(ExitCommandError, "invalid export file", err)
			}
			return withSession(cmd, rootOpts, func(s *session) error {
				if err := s.manager.Import(cmd.Context(), &snapshot); err != nil {
					return s.out.Error(WrapExitError(ExitFailure, "failed to import", err))
				}
				return s.out.Success(map[string]any{"pages": len(snapshot.Pages)},
					fmt.Sprintf("imported %d pages", len(snapshot.Pages)))
			})
		},
	}
}

// NewResetCommand creates the reset command.
func NewResetCommand(rootOpts *RootOptions) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every local page and restore default settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return NewExitError(ExitCommandError, "reset deletes all local pages, pass --yes to confirm")
			}
			return withSession(cmd, rootOpts, func(s *session) error {
				if err := s.manager.Reset(cmd.Context()); err != nil {
					return s.out.Error(WrapExitError(ExitFailure, "failed to reset", err))
				}
				return s.out.Success(map[string]any{"reset": true}, "local data cleared")
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm")
	return cmd
}
