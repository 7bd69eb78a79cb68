package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/notedcloud/noted/pkg/assistant"
	"github.com/notedcloud/noted/pkg/marker"
	"github.com/spf13/cobra"
)

type explainResult struct {
	Explanation string `json:"explanation"`
	Model       string `json:"model"`
	Tokens      int    `json:"tokens"`
	Cited       bool   `json:"cited"`
}

// assistantFor builds an assistant client from the stored settings.
func (s *session) assistantFor(model string) (*assistant.Client, error) {
	opts := []assistant.Option{assistant.WithLogger(s.logger), assistant.WithModel(model)}
	if base := os.Getenv("NOTED_ASSISTANT_URL"); base != "" {
		opts = append(opts, assistant.WithBaseURL(base))
	}
	client, err := assistant.New(s.manager.Settings(), opts...)
	switch {
	case errors.Is(err, assistant.ErrNotConfigured):
		return nil, WrapExitError(ExitCommandError, "set a key with `noted settings set --api-key`", err)
	case err != nil:
		return nil, WrapExitError(ExitCommandError, "assistant unavailable", err)
	}
	return client, nil
}

// NewExplainCommand creates the explain command.
func NewExplainCommand(rootOpts *RootOptions) *cobra.Command {
	var start, end int
	var cite bool
	var model string
	cmd := &cobra.Command{
		Use:   "explain <id>",
		Short: "Ask the assistant to explain part of a page",
		Long: `Explain the bytes [start, end) of a page's content. With --cite the
selection is wrapped in a marker and the explanation is added below its
paragraph as a citation.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rootOpts, func(s *session) error {
				page, err := s.resolve(args)
				if err != nil {
					return s.out.Error(err)
				}
				if start < 0 || end > len(page.Content) || start >= end {
					return s.out.Error(NewExitError(ExitCommandError,
						fmt.Sprintf("selection [%d:%d] is outside the page content (%d bytes)", start, end, len(page.Content))))
				}
				client, err := s.assistantFor(model)
				if err != nil {
					return s.out.Error(err)
				}

				ctx := cmd.Context()
				if !cite {
					resp, err := client.Explain(ctx, page.Content, start, end)
					if err != nil {
						return s.out.Error(WrapExitError(ExitFailure, "explanation failed", err))
					}
					return s.out.Success(explainResult{
						Explanation: resp.Content,
						Model:       resp.Model,
						Tokens:      resp.Usage.TotalTokens,
					}, strings.TrimSpace(resp.Content))
				}

				if !marker.SelectionAllowed(page.Content, start, end) {
					return s.out.Error(WrapExitError(ExitCommandError, "cannot cite this selection", marker.ErrInvalidSelection))
				}
				updated, resp, err := client.ExplainAndCite(ctx, page.Content, start, end)
				if err != nil {
					return s.out.Error(WrapExitError(ExitFailure, "explanation failed", err))
				}
				if !s.manager.EditContent(ctx, page.ID, updated) {
					return s.out.Error(NewExitError(ExitFailure, "failed to save the citation"))
				}
				return s.out.Success(explainResult{
					Explanation: resp.Content,
					Model:       resp.Model,
					Tokens:      resp.Usage.TotalTokens,
					Cited:       true,
				}, strings.TrimSpace(resp.Content))
			})
		},
	}
	flags := cmd.Flags()
	flags.IntVar(&start, "start", 0, "byte offset where the selection starts")
	flags.IntVar(&end, "end", 0, "byte offset where the selection ends")
	flags.BoolVar(&cite, "cite", false, "insert the explanation as a citation")
	flags.StringVar(&model, "model", "", "model to use instead of the default")
	_ = cmd.MarkFlagRequired("end")
	return cmd
}

// NewModelsCommand creates the models command.
func NewModelsCommand(rootOpts *RootOptions) *cobra.Command {
	var online bool
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List the models the assistant can use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, rootOpts, func(s *session) error {
				settings := s.manager.Settings()
				if !online {
					ids := assistant.Choices(settings)
					var b strings.Builder
					for _, id := range ids {
						fmt.Fprintf(&b, "%s%s\n", currentMark(id == settings.DefaultModel), id)
					}
					return s.out.Success(ids, strings.TrimSuffix(b.String(), "\n"))
				}

				client, err := s.assistantFor("")
				if err != nil {
					return s.out.Error(err)
				}
				infos, err := client.Models(cmd.Context())
				if err != nil {
					return s.out.Error(WrapExitError(ExitFailure, "failed to list models", err))
				}
				var b strings.Builder
				for _, m := range infos {
					fmt.Fprintln(&b, m.ID)
				}
				return s.out.Success(infos, strings.TrimSuffix(b.String(), "\n"))
			})
		},
	}
	cmd.Flags().BoolVar(&online, "online", false, "ask the API for every available model")
	return cmd
}
