// Package llm wraps Genkit model generation behind a small client with
// a bounded timeout and a sentinel error taxonomy.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/uday-dev/alderaan/internal/log"
)

// Sentinel errors for configuration validation.
var (
	ErrConfigNil   = errors.New("llm: config is nil")
	ErrNoGenkit    = errors.New("llm: genkit instance is required")
	ErrNoModelName = errors.New("llm: model name is required")
	ErrBadTimeout  = errors.New("llm: timeout must be positive")
	ErrEmptyPrompt = errors.New("llm: prompt must not be empty")
)

// Config defines the client's dependencies and settings.
type Config struct {
	// Genkit is the initialized Genkit instance with the Ollama plugin
	// loaded and the model defined.
	Genkit *genkit.Genkit

	// ModelName is the provider-qualified model name, e.g. "ollama/llama3.2".
	ModelName string

	// Timeout bounds a single Generate call.
	Timeout time.Duration

	// Logger for diagnostics. Optional.
	Logger log.Logger
}

func (c *Config) validate() error {
	if c == nil {
		return ErrConfigNil
	}
	if c.Genkit == nil {
		return ErrNoGenkit
	}
	if c.ModelName == "" {
		return ErrNoModelName
	}
	if c.Timeout <= 0 {
		return ErrBadTimeout
	}
	return nil
}

// Client generates completions for assembled prompts.
type Client struct {
	genkit    *genkit.Genkit
	modelName string
	timeout   time.Duration
	logger    log.Logger
}

// New creates a Client from the given config.
func New(cfg *Config) (*Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	return &Client{
		genkit:    cfg.Genkit,
		modelName: cfg.ModelName,
		timeout:   cfg.Timeout,
		logger:    logger,
	}, nil
}

// Generate sends the prompt to the model and returns the trimmed reply
// text. A single attempt is made per call: retry policy belongs to the
// caller, not this client. Failures are classified: errors.Is(err,
// ErrUnavailable) covers backend outages, ErrMalformed structurally bad
// or empty completions.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if prompt == "" {
		return "", ErrEmptyPrompt
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	resp, err := genkit.Generate(ctx, c.genkit,
		ai.WithModelName(c.modelName),
		ai.WithMessages(ai.NewUserMessage(ai.NewTextPart(prompt))),
	)
	if err != nil {
		return "", classify(fmt.Errorf("generate: %w", err))
	}

	c.logger.Debug("generation succeeded",
		"model", c.modelName,
		"elapsed", time.Since(start),
	)

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("%w: empty completion", ErrMalformed)
	}
	return text, nil
}
