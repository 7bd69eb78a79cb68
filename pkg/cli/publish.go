package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/notedcloud/noted/pkg/marker"
	"github.com/notedcloud/noted/pkg/models"
	"github.com/notedcloud/noted/pkg/publish"
	"github.com/spf13/cobra"
)

// NewPublishCommand creates the publish command.
func NewPublishCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "publish [id]",
		Short: "Make a page public on the page service",
		Long: `Mark a page public and copy it to the page service. If the service
cannot be reached or refuses the page, the page stays private.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setPublic(cmd, rootOpts, args, true)
		},
	}
}

// NewUnpublishCommand creates the unpublish command.
func NewUnpublishCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "unpublish [id]",
		Short: "Make a public page private again",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setPublic(cmd, rootOpts, args, false)
		},
	}
}

func setPublic(cmd *cobra.Command, rootOpts *RootOptions, args []string, public bool) error {
	return withSession(cmd, rootOpts, func(s *session) error {
		page, err := s.resolve(args)
		if err != nil {
			return s.out.Error(err)
		}
		if !s.manager.UpdatePage(cmd.Context(), page.ID, models.PageUpdate{IsPublic: &public}) {
			action := "publish"
			if !public {
				action = "unpublish"
			}
			return s.out.Error(NewExitError(ExitFailure,
				fmt.Sprintf("failed to %s %s, page is %s", action, page.ID, s.manager.PublishState(page.ID))))
		}

		text := "page " + page.ID.String() + " is private"
		if public {
			text = "published at " + publicURL(rootOpts.Remote, page.ID)
		}
		return s.out.Success(s.view(s.manager.Page(page.ID)), text)
	})
}

func publicURL(remote string, id models.PageID) string {
	return strings.TrimSuffix(remote, "/") + "/p/" + id.String()
}

// NewFetchCommand creates the fetch command.
func NewFetchCommand(rootOpts *RootOptions) *cobra.Command {
	var width int
	cmd := &cobra.Command{
		Use:   "fetch <id>",
		Short: "Read the public copy of a page from the page service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			client := publish.NewClient(rootOpts.Remote, publish.WithAuthToken(rootOpts.Token))

			page, err := client.FetchPublic(cmd.Context(), models.PageID(args[0]))
			if errors.Is(err, publish.ErrNotFound) {
				return out.Error(NewExitError(ExitFailure, "page "+args[0]+" is not public"))
			}
			if err != nil {
				return out.Error(WrapExitError(ExitFailure, "failed to fetch page", err))
			}
			body := marker.RenderTerminal(marker.Parse(page.Content), width)
			return out.Success(page, page.Title+"\n\n"+body)
		},
	}
	cmd.Flags().IntVar(&width, "width", 80, "wrap width, 0 disables wrapping")
	return cmd
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check that the page service is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			client := publish.NewClient(rootOpts.Remote, publish.WithAuthToken(rootOpts.Token))

			health, err := client.Health(cmd.Context())
			if err != nil {
				return out.Error(WrapExitError(ExitFailure, "page service unreachable", err))
			}
			text := fmt.Sprintf("%s is %v (store %v, read-only %v)",
				rootOpts.Remote, health["status"], health["store"], health["read_only"])
			return out.Success(health, text)
		},
	}
}
