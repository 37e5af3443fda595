package cmd

import (
	"context"
	"flag"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/markchangjz/starting-ragchatbot-codebase/internal/app"
	"github.com/markchangjz/starting-ragchatbot-codebase/internal/config"
	"github.com/markchangjz/starting-ragchatbot-codebase/internal/log"
)

// runIndex indexes a folder of course documents into the vector store.
// The folder defaults to the configured docs_dir; already indexed courses
// are skipped unless -clear drops them first.
func runIndex(cfg *config.Config, logger log.Logger, args []string) error {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	clear := fs.Bool("clear", false, "drop indexed courses before re-indexing")
	if err := fs.Parse(args); err != nil {
		return err
	}

	dir := cfg.DocsDir
	if fs.NArg() > 0 {
		dir = fs.Arg(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer a.Close()

	stats, err := a.Indexer.IndexFolder(ctx, dir, *clear)
	if err != nil {
		return fmt.Errorf("indexing %s: %w", dir, err)
	}

	fmt.Printf("Indexed %d courses (%d chunks), skipped %d existing\n",
		stats.CoursesAdded, stats.ChunksAdded, stats.Skipped)
	return nil
}
