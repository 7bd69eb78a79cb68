package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/notedcloud/noted/pkg/marker"
	"github.com/notedcloud/noted/pkg/models"
	"github.com/spf13/cobra"
)

// pageView is the JSON shape of a page in command output.
type pageView struct {
	*models.Page
	State   string `json:"state"`
	Current bool   `json:"current"`
}

// treeNode is one page of `page tree` output.
type treeNode struct {
	ID       models.PageID `json:"id"`
	Title    string        `json:"title"`
	Public   bool          `json:"public"`
	Current  bool          `json:"current"`
	Children []*treeNode   `json:"children"`
}

// NewPageCommand creates the page command group.
func NewPageCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "page",
		Short: "Create, read, edit and delete pages",
	}
	cmd.AddCommand(newPageNewCommand(rootOpts))
	cmd.AddCommand(newPageListCommand(rootOpts))
	cmd.AddCommand(newPageTreeCommand(rootOpts))
	cmd.AddCommand(newPageShowCommand(rootOpts))
	cmd.AddCommand(newPageEditCommand(rootOpts))
	cmd.AddCommand(newPageRemoveCommand(rootOpts))
	cmd.AddCommand(newPageSelectCommand(rootOpts))
	return cmd
}

func newPageNewCommand(rootOpts *RootOptions) *cobra.Command {
	var title, parent string
	cmd := &cobra.Command{
		Use:   "new",
		Short: "Create a page and make it the current one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, rootOpts, func(s *session) error {
				var parentID *models.PageID
				if parent != "" {
					parentID = models.Ptr(models.PageID(parent))
				}
				page := s.manager.CreatePage(cmd.Context(), title, parentID)
				if page == nil {
					return s.out.Error(NewExitError(ExitFailure, "failed to create page"))
				}
				return s.out.Success(s.view(page), page.ID.String())
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "page title (default \""+models.DefaultTitle+"\")")
	cmd.Flags().StringVar(&parent, "parent", "", "id of the parent page")
	return cmd
}

func newPageListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all pages, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, rootOpts, func(s *session) error {
				pages := s.manager.Pages()
				views := make([]pageView, 0, len(pages))
				var b strings.Builder
				for _, p := range pages {
					v := s.view(p)
					views = append(views, v)
					fmt.Fprintf(&b, "%s%s\t%s\t%s\n", currentMark(v.Current), p.ID, v.State, p.Title)
				}
				return s.out.Success(views, strings.TrimSuffix(b.String(), "\n"))
			})
		},
	}
}

func newPageTreeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tree",
		Short: "Show the page hierarchy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, rootOpts, func(s *session) error {
				roots := s.manager.RootPages()
				nodes := make([]*treeNode, 0, len(roots))
				for _, p := range roots {
					nodes = append(nodes, s.tree(p))
				}
				var b strings.Builder
				for _, n := range nodes {
					writeTree(&b, n, 0)
				}
				return s.out.Success(nodes, strings.TrimSuffix(b.String(), "\n"))
			})
		},
	}
}

func (s *session) tree(p *models.Page) *treeNode {
	current := s.manager.CurrentPage()
	node := &treeNode{
		ID:       p.ID,
		Title:    p.Title,
		Public:   p.Public(),
		Current:  current != nil && current.ID == p.ID,
		Children: []*treeNode{},
	}
	for _, child := range s.manager.Children(p.ID) {
		node.Children = append(node.Children, s.tree(child))
	}
	return node
}

func writeTree(w io.Writer, n *treeNode, depth int) {
	public := ""
	if n.Public {
		public = " (public)"
	}
	fmt.Fprintf(w, "%s%s%s  %s%s\n", currentMark(n.Current), strings.Repeat("  ", depth), n.Title, n.ID, public)
	for _, c := range n.Children {
		writeTree(w, c, depth+1)
	}
}

func newPageShowCommand(rootOpts *RootOptions) *cobra.Command {
	var width int
	var raw bool
	cmd := &cobra.Command{
		Use:   "show [id]",
		Short: "Print a page, the current one by default",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rootOpts, func(s *session) error {
				page, err := s.resolve(args)
				if err != nil {
					return s.out.Error(err)
				}
				body := page.Content
				if !raw {
					body = marker.RenderTerminal(marker.Parse(page.Content), width)
				}
				return s.out.Success(s.view(page), page.Title+"\n\n"+body)
			})
		},
	}
	cmd.Flags().IntVar(&width, "width", 80, "wrap width, 0 disables wrapping")
	cmd.Flags().BoolVar(&raw, "raw", false, "print the content as stored")
	return cmd
}

func newPageEditCommand(rootOpts *RootOptions) *cobra.Command {
	var content, file, title string
	cmd := &cobra.Command{
		Use:   "edit [id]",
		Short: "Replace the content or title of a page",
		Long: `Replace the content of a page with --content or the contents of --file
("-" reads standard input). Unless the title was set by hand it follows the
first line of the content. --title sets it explicitly.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if flags.Changed("content") && flags.Changed("file") {
				return NewExitError(ExitCommandError, "--content and --file are mutually exclusive")
			}
			if !flags.Changed("content") && !flags.Changed("file") && !flags.Changed("title") {
				return NewExitError(ExitCommandError, "nothing to change: use --content, --file or --title")
			}
			if flags.Changed("file") {
				data, err := readInput(cmd, file)
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to read content", err)
				}
				content = string(data)
			}

			return withSession(cmd, rootOpts, func(s *session) error {
				page, err := s.resolve(args)
				if err != nil {
					return s.out.Error(err)
				}
				ctx := cmd.Context()
				if flags.Changed("content") || flags.Changed("file") {
					if !s.manager.EditContent(ctx, page.ID, content) {
						return s.out.Error(NewExitError(ExitFailure, "failed to save content"))
					}
				}
				if flags.Changed("title") {
					if !s.manager.UpdatePage(ctx, page.ID, models.PageUpdate{Title: &title}) {
						return s.out.Error(NewExitError(ExitFailure, "failed to save title"))
					}
				}
				page = s.manager.Page(page.ID)
				return s.out.Success(s.view(page), "saved "+page.ID.String())
			})
		},
	}
	cmd.Flags().StringVar(&content, "content", "", "new content")
	cmd.Flags().StringVarP(&file, "file", "f", "", "read new content from a file, - for stdin")
	cmd.Flags().StringVar(&title, "title", "", "new title")
	return cmd
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}

func newPageRemoveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a page and everything under it",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rootOpts, func(s *session) error {
				id := models.PageID(args[0])
				if s.manager.Page(id) == nil {
					return s.out.Error(NewExitError(ExitFailure, "page "+args[0]+" not found"))
				}
				if !s.manager.DeletePage(cmd.Context(), id) {
					return s.out.Error(NewExitError(ExitFailure, "failed to delete page"))
				}
				return s.out.Success(map[string]any{"deleted": id}, "deleted "+args[0])
			})
		},
	}
}

func newPageSelectCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "select <id>",
		Short: "Make a page the current one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rootOpts, func(s *session) error {
				id := models.PageID(args[0])
				if !s.manager.SetCurrentPage(cmd.Context(), &id) {
					return s.out.Error(NewExitError(ExitFailure, "page "+args[0]+" not found"))
				}
				return s.out.Success(map[string]any{"current": id}, "current page "+args[0])
			})
		},
	}
}

// resolve returns the page named by args, or the current page.
func (s *session) resolve(args []string) (*models.Page, error) {
	if len(args) == 0 {
		page := s.manager.CurrentPage()
		if page == nil {
			return nil, NewExitError(ExitFailure, "no current page, pass a page id")
		}
		return page, nil
	}
	page := s.manager.Page(models.PageID(args[0]))
	if page == nil {
		return nil, NewExitError(ExitFailure, "page "+args[0]+" not found")
	}
	return page, nil
}

func (s *session) view(p *models.Page) pageView {
	current := s.manager.CurrentPage()
	return pageView{
		Page:    p,
		State:   s.manager.PublishState(p.ID).String(),
		Current: current != nil && current.ID == p.ID,
	}
}

func currentMark(current bool) string {
	if current {
		return "* "
	}
	return "  "
}
