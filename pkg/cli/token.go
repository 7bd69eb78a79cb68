package cli

import (
	"os"
	"time"

	"github.com/notedcloud/noted/pkg/publish"
	"github.com/spf13/cobra"
)

// NewTokenCommand creates the token command.
func NewTokenCommand(rootOpts *RootOptions) *cobra.Command {
	var secret, subject string
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for a page service that requires one",
		Long: `Mint an HS256 token signed with the page service's NOTED_JWT_SECRET.
Pass it to other commands with --token or NOTED_TOKEN.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			if !cmd.Flags().Changed("secret") {
				secret = os.Getenv("NOTED_JWT_SECRET")
			}
			if secret == "" {
				return out.Error(NewExitError(ExitCommandError, "no secret: pass --secret or set NOTED_JWT_SECRET"))
			}
			token, err := publish.MintToken(secret, subject, ttl, time.Now())
			if err != nil {
				return out.Error(WrapExitError(ExitFailure, "failed to mint token", err))
			}
			return out.Success(map[string]string{"token": token}, token)
		},
	}
	cmd.Flags().StringVar(&secret, "secret", "", "signing secret (NOTED_JWT_SECRET)")
	cmd.Flags().StringVar(&subject, "subject", "noted-cli", "token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", 30*24*time.Hour, "token lifetime")
	return cmd
}
