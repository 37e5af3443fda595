package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/markchangjz/starting-ragchatbot-codebase/internal/app"
	"github.com/markchangjz/starting-ragchatbot-codebase/internal/config"
	"github.com/markchangjz/starting-ragchatbot-codebase/internal/log"
)

// runCourses prints catalog analytics for the indexed corpus.
func runCourses(cfg *config.Config, logger log.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer a.Close()

	analytics, err := a.System.CourseAnalytics(ctx)
	if err != nil {
		return fmt.Errorf("fetching course analytics: %w", err)
	}

	fmt.Printf("Courses: %d\n", analytics.TotalCourses)
	for _, title := range analytics.CourseTitles {
		fmt.Printf("  - %s\n", title)
	}
	return nil
}
