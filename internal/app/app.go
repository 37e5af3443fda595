// Package app provides application initialization and dependency wiring.
//
// App is the container that holds every long-lived component: the database
// pool, the Genkit runtime, the vector store, the session store, the answer
// engine and the RAG system built on top of them. Setup constructs the whole
// graph from a validated config; Close releases it in reverse order.
package app

import (
	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/markchangjz/starting-ragchatbot-codebase/internal/config"
	"github.com/markchangjz/starting-ragchatbot-codebase/internal/log"
	"github.com/markchangjz/starting-ragchatbot-codebase/internal/rag"
	"github.com/markchangjz/starting-ragchatbot-codebase/internal/session"
	"github.com/markchangjz/starting-ragchatbot-codebase/internal/vectorstore"
)

// App is the core application container.
type App struct {
	Config *config.Config
	Logger log.Logger

	// Core services
	Genkit   *genkit.Genkit
	Embedder ai.Embedder
	DBPool   *pgxpool.Pool

	// Domain components
	Store    *vectorstore.Store
	Sessions *session.Store
	System   *rag.System
	Indexer  *rag.Indexer
}

// Close releases all resources held by the application.
func (a *App) Close() {
	if a.DBPool != nil {
		a.DBPool.Close()
		a.Logger.Debug("database pool closed")
	}
}
