// Package prompt assembles model prompts from conversation history.
package prompt

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/uday-dev/alderaan/internal/log"
	"github.com/uday-dev/alderaan/internal/store"
)

const (
	userLinePrefix      = "User: "
	assistantLinePrefix = "Assistant: "
	assistantCue        = "Assistant:"
)

// Sentinel errors for configuration validation.
var (
	ErrConfigNil      = errors.New("prompt: config is nil")
	ErrNoHistory      = errors.New("prompt: history lister is required")
	ErrNoInstructions = errors.New("prompt: system instructions are required")
	ErrInvalidWindow  = errors.New("prompt: history window must not be negative")
)

// HistoryLister supplies a session's messages in ascending sequence order.
type HistoryLister interface {
	Messages(ctx context.Context, sessionID uuid.UUID) ([]store.Message, error)
}

// Config defines the assembler's dependencies and settings.
type Config struct {
	// History supplies past messages for context.
	History HistoryLister

	// SystemInstructions is prepended to every prompt.
	SystemInstructions string

	// MaxHistoryMessages caps how many recent messages enter the prompt.
	// Zero means no history at all.
	MaxHistoryMessages int

	// Logger for diagnostics. Optional.
	Logger log.Logger
}

func (c *Config) validate() error {
	if c == nil {
		return ErrConfigNil
	}
	if c.History == nil {
		return ErrNoHistory
	}
	if c.SystemInstructions == "" {
		return ErrNoInstructions
	}
	if c.MaxHistoryMessages < 0 {
		return ErrInvalidWindow
	}
	return nil
}

// Assembler builds text prompts in the fixed transcript format the
// model is conditioned on: system instructions, prior turns as
// "User:" and "Assistant:" lines, the new utterance, and a trailing
// "Assistant:" cue.
type Assembler struct {
	history      HistoryLister
	instructions string
	window       int
	logger       log.Logger
}

// New creates an Assembler from the given config.
func New(cfg *Config) (*Assembler, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	return &Assembler{
		history:      cfg.History,
		instructions: cfg.SystemInstructions,
		window:       cfg.MaxHistoryMessages,
		logger:       logger,
	}, nil
}

// Build assembles a prompt for the new utterance using the session's
// recent history. Only the newest MaxHistoryMessages messages are
// included; older ones are dropped. Messages with unknown kinds are
// skipped rather than rendered.
func (a *Assembler) Build(ctx context.Context, sessionID uuid.UUID, utterance string) (string, error) {
	messages, err := a.history.Messages(ctx, sessionID)
	if err != nil {
		return "", fmt.Errorf("loading history: %w", err)
	}

	if len(messages) > a.window {
		messages = messages[len(messages)-a.window:]
	}

	var b strings.Builder
	b.WriteString(a.instructions)
	b.WriteString("\n\n")

	skipped := 0
	for _, msg := range messages {
		switch {
		case msg.Kind.IsUser():
			b.WriteString(userLinePrefix)
		case msg.Kind.IsAssistant():
			b.WriteString(assistantLinePrefix)
		default:
			skipped++
			continue
		}
		b.WriteString(msg.Content)
		b.WriteString("\n")
	}
	if skipped > 0 {
		a.logger.Warn("skipped messages with unknown kind", "session_id", sessionID, "count", skipped)
	}

	b.WriteString(userLinePrefix)
	b.WriteString(utterance)
	b.WriteString("\n")
	b.WriteString(assistantCue)

	return b.String(), nil
}

// Bare assembles a prompt with no conversation history, for one-shot
// exchanges outside any session.
func (a *Assembler) Bare(utterance string) string {
	var b strings.Builder
	b.WriteString(a.instructions)
	b.WriteString("\n\n")
	b.WriteString(userLinePrefix)
	b.WriteString(utterance)
	b.WriteString("\n")
	b.WriteString(assistantCue)
	return b.String()
}
