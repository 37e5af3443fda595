package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/markchangjz/starting-ragchatbot-codebase/db"
	"github.com/markchangjz/starting-ragchatbot-codebase/internal/answer"
	"github.com/markchangjz/starting-ragchatbot-codebase/internal/config"
	"github.com/markchangjz/starting-ragchatbot-codebase/internal/course"
	"github.com/markchangjz/starting-ragchatbot-codebase/internal/log"
	"github.com/markchangjz/starting-ragchatbot-codebase/internal/rag"
	"github.com/markchangjz/starting-ragchatbot-codebase/internal/search"
	"github.com/markchangjz/starting-ragchatbot-codebase/internal/session"
	"github.com/markchangjz/starting-ragchatbot-codebase/internal/vectorstore"
)

// Setup creates and initializes the application.
// Returns an App holding every component; call Close() to release.
func Setup(ctx context.Context, cfg *config.Config, logger log.Logger) (_ *App, retErr error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if logger == nil {
		logger = log.NewNop()
	}

	a := &App{Config: cfg, Logger: logger}

	// On error, release everything already initialized.
	defer func() {
		if retErr != nil {
			a.Close()
		}
	}()

	pool, err := provideDBPool(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.DBPool = pool

	g, err := provideGenkit(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Genkit = g

	embedder := provideEmbedder(g, cfg)
	if embedder == nil {
		return nil, fmt.Errorf("embedder %q not found for provider %q", cfg.EmbedderModel, cfg.Provider)
	}
	a.Embedder = embedder

	a.Store = vectorstore.New(vectorstore.NewQuerier(pool), embedder, logger)
	a.Sessions = session.New(cfg.MaxHistory, logger)

	tool, err := search.NewTool(a.Store, cfg.MaxResults, logger)
	if err != nil {
		return nil, err
	}
	toolRef := tool.Register(g)

	engine, err := answer.New(answer.Config{
		Genkit:    g,
		Tool:      tool,
		ToolRef:   toolRef,
		ModelName: cfg.FullModelName(),
		MaxRounds: cfg.MaxTurns,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}

	system, err := rag.New(a.Sessions, engine, a.Store, logger)
	if err != nil {
		return nil, err
	}
	a.System = system

	processor, err := course.NewProcessor(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return nil, err
	}

	indexer, err := rag.NewIndexer(processor, a.Store, logger)
	if err != nil {
		return nil, err
	}
	a.Indexer = indexer

	return a, nil
}

// provideDBPool runs migrations and creates the PostgreSQL connection pool.
func provideDBPool(ctx context.Context, cfg *config.Config, logger log.Logger) (*pgxpool.Pool, error) {
	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	pool, err := vectorstore.NewPool(ctx, cfg.PostgresURL())
	if err != nil {
		return nil, err
	}
	logger.Debug("database pool ready",
		"host", cfg.PostgresHost, "database", cfg.PostgresDBName)
	return pool, nil
}

// provideGenkit initializes Genkit with the Google AI plugin.
// The plugin reads GEMINI_API_KEY from the environment.
func provideGenkit(ctx context.Context, cfg *config.Config, logger log.Logger) (*genkit.Genkit, error) {
	g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
	if g == nil {
		return nil, errors.New("initializing genkit")
	}
	logger.Debug("genkit initialized", "model", cfg.FullModelName())
	return g, nil
}

// provideEmbedder looks up the embedder registered by the Google AI plugin.
func provideEmbedder(g *genkit.Genkit, cfg *config.Config) ai.Embedder {
	return googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)
}
