// Package chat orchestrates conversation turns: history-aware prompt
// assembly, model generation, speech recognition and synthesis, and
// message persistence.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/uday-dev/alderaan/internal/log"
	"github.com/uday-dev/alderaan/internal/store"
)

// Sentinel errors for configuration validation.
var (
	ErrConfigNil     = errors.New("chat: config is nil")
	ErrNoStore       = errors.New("chat: session store is required")
	ErrNoPrompts     = errors.New("chat: prompt builder is required")
	ErrNoModel       = errors.New("chat: generator is required")
	ErrNoRecognizer  = errors.New("chat: recognizer is required")
	ErrNoSynthesizer = errors.New("chat: synthesizer is required")
	ErrNoFallback    = errors.New("chat: fallback reply is required")
)

// SessionStore persists sessions and their messages.
type SessionStore interface {
	Session(ctx context.Context, id uuid.UUID) (*store.Session, error)
	Append(ctx context.Context, sessionID uuid.UUID, kind store.Kind, content string, audioPath *string) (*store.Message, error)
}

// PromptBuilder assembles a model prompt from session history and the
// new utterance. Bare produces a prompt with no history for one-shot
// exchanges.
type PromptBuilder interface {
	Build(ctx context.Context, sessionID uuid.UUID, utterance string) (string, error)
	Bare(utterance string) string
}

// Generator produces a completion for an assembled prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Recognizer converts audio to text.
type Recognizer interface {
	Transcribe(ctx context.Context, audio []byte, filename string) (string, error)
}

// Synthesizer converts text to audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Config defines the orchestrator's dependencies.
type Config struct {
	Store       SessionStore
	Prompts     PromptBuilder
	Model       Generator
	Recognizer  Recognizer
	Synthesizer Synthesizer

	// FallbackReply is returned and persisted when the model cannot
	// produce an answer.
	FallbackReply string

	// Logger for diagnostics. Optional.
	Logger log.Logger
}

func (c *Config) validate() error {
	if c == nil {
		return ErrConfigNil
	}
	if c.Store == nil {
		return ErrNoStore
	}
	if c.Prompts == nil {
		return ErrNoPrompts
	}
	if c.Model == nil {
		return ErrNoModel
	}
	if c.Recognizer == nil {
		return ErrNoRecognizer
	}
	if c.Synthesizer == nil {
		return ErrNoSynthesizer
	}
	if c.FallbackReply == "" {
		return ErrNoFallback
	}
	return nil
}

// Orchestrator runs conversation turns against a session.
//
// Every turn follows the same shape: snapshot the prompt from the
// pre-turn history, persist the inbound message, generate a reply,
// persist the outbound message, return it. Model outages degrade to
// the fallback reply; the persisted reply always equals the returned
// one.
type Orchestrator struct {
	store       SessionStore
	prompts     PromptBuilder
	model       Generator
	recognizer  Recognizer
	synthesizer Synthesizer
	fallback    string
	logger      log.Logger
}

// New creates an Orchestrator from the given config.
func New(cfg *Config) (*Orchestrator, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	return &Orchestrator{
		store:       cfg.Store,
		prompts:     cfg.Prompts,
		model:       cfg.Model,
		recognizer:  cfg.Recognizer,
		synthesizer: cfg.Synthesizer,
		fallback:    cfg.FallbackReply,
		logger:      logger,
	}, nil
}

// TextTurn runs a text-in, text-out turn and returns both persisted
// messages, user first. Returns store.ErrNotFound when the session
// does not exist.
func (o *Orchestrator) TextTurn(ctx context.Context, sessionID uuid.UUID, utterance string) (*store.Message, *store.Message, error) {
	return o.runTurn(ctx, sessionID, utterance, store.KindUserText, store.KindAIText)
}

// SpokenTurn runs a text-in, audio-out turn. The reply text is
// persisted before synthesis, so a synthesis failure loses no
// conversation state: the text reply is returned alongside
// ErrSynthesisFailed and the audio is nil.
func (o *Orchestrator) SpokenTurn(ctx context.Context, sessionID uuid.UUID, utterance string) (string, []byte, error) {
	_, outbound, err := o.runTurn(ctx, sessionID, utterance, store.KindUserText, store.KindAIAudio)
	if err != nil {
		return "", nil, err
	}
	audio, err := o.synthesizeReply(ctx, sessionID, outbound.Content)
	if err != nil {
		return outbound.Content, nil, err
	}
	return outbound.Content, audio, nil
}

// VoiceTurn runs an audio-in, audio-out turn. Returns
// ErrNoSpeechDetected, with nothing persisted, when the audio yields
// an empty or whitespace-only transcript. On success the transcript is
// returned so callers can echo what was understood.
func (o *Orchestrator) VoiceTurn(ctx context.Context, sessionID uuid.UUID, audio []byte, filename string) (transcript, reply string, replyAudio []byte, err error) {
	transcript, err = o.recognizer.Transcribe(ctx, audio, filename)
	if err != nil {
		o.logger.Warn("transcription failed", "session_id", sessionID, "error", err)
		return "", "", nil, fmt.Errorf("%w: %v", ErrNoSpeechDetected, err)
	}
	if strings.TrimSpace(transcript) == "" {
		return "", "", nil, ErrNoSpeechDetected
	}

	_, outbound, err := o.runTurn(ctx, sessionID, transcript, store.KindUserAudio, store.KindAIAudio)
	if err != nil {
		return "", "", nil, err
	}
	reply = outbound.Content

	replyAudio, err = o.synthesizeReply(ctx, sessionID, reply)
	if err != nil {
		return transcript, reply, nil, err
	}
	return transcript, reply, replyAudio, nil
}

// OneShot answers an utterance outside any session. Nothing is
// persisted and no history enters the prompt. Model outages degrade to
// the fallback reply like session turns do.
func (o *Orchestrator) OneShot(ctx context.Context, utterance string) (string, error) {
	reply, err := o.model.Generate(ctx, o.prompts.Bare(utterance))
	if err != nil {
		o.logger.Warn("generation failed, using fallback reply", "error", err)
		return o.fallback, nil
	}
	return reply, nil
}

// runTurn executes the shared persistence and generation path and
// returns the persisted inbound and outbound messages.
func (o *Orchestrator) runTurn(ctx context.Context, sessionID uuid.UUID, utterance string, inKind, outKind store.Kind) (*store.Message, *store.Message, error) {
	if _, err := o.store.Session(ctx, sessionID); err != nil {
		return nil, nil, err
	}

	// Snapshot before the inbound append so the utterance appears in
	// the prompt exactly once, as the final line.
	prompt, err := o.prompts.Build(ctx, sessionID, utterance)
	if err != nil {
		return nil, nil, fmt.Errorf("assembling prompt: %w", err)
	}

	inbound, err := o.store.Append(ctx, sessionID, inKind, utterance, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("persisting user message: %w", err)
	}

	reply, err := o.model.Generate(ctx, prompt)
	if err != nil {
		o.logger.Warn("generation failed, using fallback reply",
			"session_id", sessionID,
			"error", err,
		)
		reply = o.fallback
	}

	outbound, err := o.store.Append(ctx, sessionID, outKind, reply, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("persisting assistant message: %w", err)
	}

	return inbound, outbound, nil
}

// synthesizeReply renders reply text to audio. Zero-length audio is
// treated as a failure.
func (o *Orchestrator) synthesizeReply(ctx context.Context, sessionID uuid.UUID, reply string) ([]byte, error) {
	audio, err := o.synthesizer.Synthesize(ctx, reply)
	if err != nil {
		o.logger.Warn("synthesis failed", "session_id", sessionID, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrSynthesisFailed, err)
	}
	if len(audio) == 0 {
		o.logger.Warn("synthesis produced no audio", "session_id", sessionID)
		return nil, ErrSynthesisFailed
	}
	return audio, nil
}
