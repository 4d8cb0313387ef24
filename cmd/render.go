package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/naka-gawa/repo-issues/internal/domain"
	"github.com/naka-gawa/repo-issues/internal/usecase"
	"github.com/naka-gawa/repo-issues/internal/web"
)

var renderCmd = &cobra.Command{
	Use:   "render <owner/name>",
	Short: "Renders the repository view as HTML to stdout",
	Long:  `Loads the repository and one page of its issues, then prints the rendered HTML fragment. The identifier may be URL-encoded (owner%2Fname).`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		logger := newLogger(cmd)
		cfg, err := loadConfig(cmd)
		if err != nil {
			fail("Failed to load config: %v", err)
		}

		filter, _ := cmd.Flags().GetString("filter")
		page, _ := cmd.Flags().GetInt("page")
		document, _ := cmd.Flags().GetBool("document")
		filterIndex, err := domain.FilterIndex(filter)
		if err != nil {
			fail("Invalid --filter: %v", err)
		}

		fetcher, err := newFetcher(cfg, logger)
		if err != nil {
			fail("%v", err)
		}
		defer closeFetcher(fetcher, logger)
		view, err := usecase.NewRepositoryView(fetcher, logger, usecase.WithFilter(filterIndex), usecase.WithPage(page))
		if err != nil {
			fail("Invalid --page: %v", err)
		}
		if err := view.Initialize(ctx, args[0]); err != nil {
			fail("Failed to load repository: %v", err)
		}

		renderer, err := web.NewRenderer()
		if err != nil {
			fail("Failed to load templates: %v", err)
		}
		model := web.PageModel{Ref: view.Ref(), State: view.State()}
		var buf bytes.Buffer
		if document {
			err = renderer.Page(&buf, model)
		} else {
			err = renderer.Fragment(&buf, model)
		}
		if err != nil {
			fail("Failed to render: %v", err)
		}
		fmt.Fprint(os.Stdout, buf.String())
	},
}

func init() {
	rootCmd.AddCommand(renderCmd)
	renderCmd.Flags().StringP("filter", "f", "open", "Issue state: all, open or closed")
	renderCmd.Flags().IntP("page", "p", 1, "Page of issues (5 per page)")
	renderCmd.Flags().Bool("document", false, "Wrap the fragment in a complete HTML document")
}
