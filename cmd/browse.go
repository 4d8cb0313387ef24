package cmd

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/naka-gawa/repo-issues/internal/usecase"
	"github.com/naka-gawa/repo-issues/internal/tui"
)

var browseCmd = &cobra.Command{
	Use:   "browse <owner/name>",
	Short: "Browses the repository's issues in the terminal",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		logger := newLogger(cmd)
		cfg, err := loadConfig(cmd)
		if err != nil {
			fail("Failed to load config: %v", err)
		}
		fetcher, err := newFetcher(cfg, logger)
		if err != nil {
			fail("%v", err)
		}
		defer closeFetcher(fetcher, logger)
		view, err := usecase.NewRepositoryView(fetcher, logger)
		if err != nil {
			fail("%v", err)
		}

		program := tea.NewProgram(tui.New(ctx, view, args[0]), tea.WithAltScreen(), tea.WithContext(ctx))
		if _, err := program.Run(); err != nil {
			fail("Failed to run the terminal UI: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(browseCmd)
}
