package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/ollama"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/uday-dev/alderaan/db"
	"github.com/uday-dev/alderaan/internal/chat"
	"github.com/uday-dev/alderaan/internal/config"
	"github.com/uday-dev/alderaan/internal/llm"
	"github.com/uday-dev/alderaan/internal/log"
	"github.com/uday-dev/alderaan/internal/prompt"
	"github.com/uday-dev/alderaan/internal/speech"
	"github.com/uday-dev/alderaan/internal/store"
)

// Setup creates and initializes the application.
// Returns an App with embedded cleanup, call Close() to release.
func Setup(ctx context.Context, cfg *config.Config, logger log.Logger) (_ *App, retErr error) {
	if logger == nil {
		logger = log.NewNop()
	}
	a := &App{Config: cfg, Logger: logger}

	// On error, clean up everything already initialized.
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	pool, err := provideDBPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.DBPool = pool

	g, err := provideGenkit(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Genkit = g

	a.Store = store.New(pool, logger)

	a.Prompts, err = prompt.New(&prompt.Config{
		History:            a.Store,
		SystemInstructions: cfg.SystemInstructions,
		MaxHistoryMessages: cfg.MaxHistoryMessages,
		Logger:             logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating prompt assembler: %w", err)
	}

	a.Model, err = llm.New(&llm.Config{
		Genkit:    g,
		ModelName: "ollama/" + cfg.ModelName,
		Timeout:   cfg.ModelTimeout,
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating model client: %w", err)
	}

	a.Speech, err = speech.New(&speech.Config{
		Host:              cfg.SpeechHost,
		RecognizeTimeout:  cfg.RecognizeTimeout,
		SynthesizeTimeout: cfg.SynthesizeTimeout,
		Logger:            logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating speech client: %w", err)
	}

	a.Conversation, err = chat.New(&chat.Config{
		Store:         a.Store,
		Prompts:       a.Prompts,
		Model:         a.Model,
		Recognizer:    a.Speech,
		Synthesizer:   a.Speech,
		FallbackReply: cfg.FallbackReply,
		Logger:        logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating conversation orchestrator: %w", err)
	}

	_, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	return a, nil
}

// provideGenkit initializes Genkit with the Ollama plugin and registers
// the configured chat model. Ollama requires explicit model
// registration (no auto-discovery).
func provideGenkit(ctx context.Context, cfg *config.Config, logger log.Logger) (*genkit.Genkit, error) {
	ollamaPlugin := &ollama.Ollama{ServerAddress: cfg.OllamaHost}

	g := genkit.Init(ctx, genkit.WithPlugins(ollamaPlugin))
	if g == nil {
		return nil, errors.New("initializing genkit with ollama provider")
	}

	ollamaPlugin.DefineModel(g, ollama.ModelDefinition{
		Name: cfg.ModelName,
		Type: "chat",
	}, nil)

	logger.Info("initialized Genkit with ollama provider",
		"model", cfg.ModelName, "host", cfg.OllamaHost)
	return g, nil
}

// provideDBPool runs migrations and creates a PostgreSQL connection
// pool with sensible defaults for connection management.
func provideDBPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	if err := db.Migrate(cfg.DatabaseURL()); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("parsing connection config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return pool, nil
}
