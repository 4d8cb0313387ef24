package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/naka-gawa/repo-issues/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serves the repository view over HTTP",
	Long:  `Starts an HTTP server rendering /repository/{owner%2Fname} pages, with filter and page taken from the query string.`,
	Run: func(cmd *cobra.Command, args []string) {
		logger := newLogger(cmd)
		cfg, err := loadConfig(cmd)
		if err != nil {
			fail("Failed to load config: %v", err)
		}

		fetcher, err := newFetcher(cfg, logger)
		if err != nil {
			fail("%v", err)
		}
		renderer, err := web.NewRenderer()
		if err != nil {
			fail("Failed to load templates: %v", err)
		}
		var limiter *web.RateLimiter
		if cfg.RateLimit.PerSecond > 0 {
			trusted, err := cfg.RateLimit.TrustedPrefixes()
			if err != nil {
				fail("Failed to load config: %v", err)
			}
			limiter = web.NewRateLimiter(cfg.RateLimit.PerSecond, cfg.RateLimit.Burst, trusted)
		}

		server := &http.Server{
			Addr:              cfg.Listen,
			Handler:           web.NewServer(fetcher, renderer, limiter, logger).Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		idle := make(chan struct{})
		go func() {
			defer close(idle)
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				logger.Printf("Shutdown: %v", err)
			}
			closeFetcher(fetcher, logger)
		}()

		cmd.PrintErrf("Listening on http://%s\n", cfg.Listen)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fail("Server failed: %v", err)
		}
		<-idle
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("listen", "l", "127.0.0.1:8080", "Address to listen on")
}
