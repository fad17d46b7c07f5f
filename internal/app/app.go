// Package app provides application initialization and dependency wiring.
//
// App is the container that holds every long-lived component: the
// database pool, the Genkit instance, the persistence store, and the
// conversation orchestrator built on top of them.
package app

import (
	"context"

	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/uday-dev/alderaan/internal/chat"
	"github.com/uday-dev/alderaan/internal/config"
	"github.com/uday-dev/alderaan/internal/llm"
	"github.com/uday-dev/alderaan/internal/log"
	"github.com/uday-dev/alderaan/internal/prompt"
	"github.com/uday-dev/alderaan/internal/speech"
	"github.com/uday-dev/alderaan/internal/store"
)

// App is the core application container.
type App struct {
	Config *config.Config
	Logger log.Logger

	// Core services
	Genkit       *genkit.Genkit
	DBPool       *pgxpool.Pool
	Store        *store.Store
	Prompts      *prompt.Assembler
	Model        *llm.Client
	Speech       *speech.Client
	Conversation *chat.Orchestrator

	// Lifecycle management
	cancel context.CancelFunc
}

// Close gracefully shuts down all resources.
func (a *App) Close() error {
	if a.Logger == nil {
		a.Logger = log.NewNop()
	}
	a.Logger.Info("shutting down application")

	if a.cancel != nil {
		a.cancel()
	}

	if a.DBPool != nil {
		a.DBPool.Close()
		a.Logger.Info("database pool closed")
	}

	return nil
}
