package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/markchangjz/starting-ragchatbot-codebase/api"
	"github.com/markchangjz/starting-ragchatbot-codebase/internal/app"
	"github.com/markchangjz/starting-ragchatbot-codebase/internal/config"
	"github.com/markchangjz/starting-ragchatbot-codebase/internal/log"
)

// runServe starts the HTTP API server. On startup it indexes the configured
// docs folder so the catalog is queryable immediately, then serves until
// SIGINT or SIGTERM.
func runServe(cfg *config.Config, logger log.Logger, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := fs.String("addr", api.DefaultAddr, "listen address")
	noIndex := fs.Bool("no-index", false, "skip indexing the docs folder on startup")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer a.Close()

	if !*noIndex {
		indexStartupDocs(ctx, a, logger)
	}

	server, err := api.NewServer(a.System, a.DBPool, logger)
	if err != nil {
		return err
	}
	return server.Run(ctx, *addr)
}

// indexStartupDocs loads the docs folder into the vector store. A missing
// folder is not an error; the server still runs with whatever is indexed.
func indexStartupDocs(ctx context.Context, a *app.App, logger log.Logger) {
	dir := a.Config.DocsDir
	if _, err := os.Stat(dir); err != nil {
		logger.Warn("docs folder not found, skipping startup indexing", "dir", dir)
		return
	}

	stats, err := a.Indexer.IndexFolder(ctx, dir, false)
	if err != nil {
		logger.Error("startup indexing failed", "dir", dir, "error", err)
		return
	}
	logger.Info("startup indexing complete",
		"courses_added", stats.CoursesAdded,
		"chunks_added", stats.ChunksAdded,
		"skipped", stats.Skipped)
}
