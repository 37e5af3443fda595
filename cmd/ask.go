package cmd

import (
	"context"
	"flag"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/glamour"

	"github.com/markchangjz/starting-ragchatbot-codebase/internal/app"
	"github.com/markchangjz/starting-ragchatbot-codebase/internal/config"
	"github.com/markchangjz/starting-ragchatbot-codebase/internal/log"
)

// runAsk answers a single question from the command line and prints the
// answer with its sources. With -session the question continues an
// existing conversation; the session id is printed so it can be reused.
func runAsk(cfg *config.Config, logger log.Logger, args []string) error {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	sessionID := fs.String("session", "", "session id to continue a conversation")
	if err := fs.Parse(args); err != nil {
		return err
	}

	question := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if question == "" {
		return fmt.Errorf("usage: ragchat ask [-session id] <question>")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer a.Close()

	answer, err := a.System.Query(ctx, question, *sessionID)
	if err != nil {
		return fmt.Errorf("answering question: %w", err)
	}

	fmt.Print(renderMarkdown(answer.Text))

	if len(answer.Sources) > 0 {
		fmt.Println("\nSources:")
		for _, c := range answer.Sources {
			if c.LessonLink != "" {
				fmt.Printf("  - %s (%s)\n", c.String(), c.LessonLink)
			} else {
				fmt.Printf("  - %s\n", c.String())
			}
		}
	}

	fmt.Printf("\nSession: %s\n", answer.SessionID)
	return nil
}

// renderMarkdown renders text as terminal markdown, falling back to the
// plain text when the renderer is unavailable.
func renderMarkdown(text string) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return text + "\n"
	}
	out, err := r.Render(text)
	if err != nil {
		return text + "\n"
	}
	return out
}
