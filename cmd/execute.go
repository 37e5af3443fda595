// Package cmd implements the ragchat command line interface.
//
// Commands:
//
//	ragchat serve     Start the HTTP API server (default)
//	ragchat ask       Answer a single question from the terminal
//	ragchat index     Index course documents into the vector store
//	ragchat courses   Show course catalog analytics
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/markchangjz/starting-ragchatbot-codebase/internal/config"
	"github.com/markchangjz/starting-ragchatbot-codebase/internal/log"
)

// Version information (injected at build time via ldflags).
var (
	AppVersion = "0.1.0"
	BuildTime  = "unknown"
	GitCommit  = "unknown"
)

// Execute is the main entry point for the ragchat CLI.
// All application logic lives in this package; main.go stays minimal.
func Execute() error {
	command := "serve"
	args := os.Args[1:]
	if len(args) > 0 {
		command = args[0]
		args = args[1:]
	}

	// version and help work even when config or env is incomplete.
	switch command {
	case "version", "--version", "-v":
		return printVersionInfo()
	case "help", "--help", "-h":
		printHelp()
		return nil
	}

	logger := initLogger()
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	if err := checkRequiredEnv(); err != nil {
		return err
	}

	switch command {
	case "serve":
		return runServe(cfg, logger, args)
	case "ask":
		return runAsk(cfg, logger, args)
	case "index":
		return runIndex(cfg, logger, args)
	case "courses":
		return runCourses(cfg, logger)
	default:
		printHelp()
		return fmt.Errorf("unknown command: %s", command)
	}
}

// initLogger initializes the structured logger.
// DEBUG env var (any value) enables debug level. Logs go to stderr so
// stdout stays clean for command output.
func initLogger() log.Logger {
	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	return log.New(log.Config{Level: level})
}

// checkRequiredEnv verifies required environment variables are set.
func checkRequiredEnv() error {
	if os.Getenv("GEMINI_API_KEY") == "" {
		fmt.Fprintln(os.Stderr, "Error: GEMINI_API_KEY environment variable not set")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "ragchat needs a Gemini API key to answer questions and embed documents.")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "To set your API key:")
		fmt.Fprintln(os.Stderr, "  export GEMINI_API_KEY=your-api-key")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Get your API key at: https://ai.google.dev/")

		return fmt.Errorf("GEMINI_API_KEY not set")
	}
	return nil
}

func printVersionInfo() error {
	fmt.Printf("ragchat v%s\n", AppVersion)
	fmt.Printf("Build: %s\n", BuildTime)
	fmt.Printf("Commit: %s\n", GitCommit)
	return nil
}

func printHelp() {
	fmt.Println("ragchat - Course materials chatbot")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  ragchat [serve]          Start the HTTP API server (default)")
	fmt.Println("  ragchat ask <question>   Answer a single question")
	fmt.Println("  ragchat index [dir]      Index course documents")
	fmt.Println("  ragchat courses          Show course catalog analytics")
	fmt.Println("  ragchat version          Show version information")
	fmt.Println("  ragchat help             Show this help")
	fmt.Println()
	fmt.Println("Flags:")
	fmt.Println("  serve -addr <host:port>  Listen address (default 127.0.0.1:8000)")
	fmt.Println("  serve -no-index          Skip indexing the docs folder on startup")
	fmt.Println("  ask   -session <id>      Continue an existing conversation")
	fmt.Println("  index -clear             Drop indexed courses before re-indexing")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  GEMINI_API_KEY           Required: Gemini API key")
	fmt.Println("  DEBUG                    Optional: enable debug logging")
	fmt.Println("  RAGCHAT_POSTGRES_HOST    Optional: PostgreSQL host override")
}
