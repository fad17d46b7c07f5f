// Package speech talks to the speech sidecar service for transcription
// and synthesis.
//
// The sidecar exposes two endpoints: POST /stt accepts a multipart form
// with an "audio" field and answers {"text": "..."}, POST /tts accepts
// {"text": "..."} and answers raw WAV bytes.
package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"github.com/uday-dev/alderaan/internal/log"
)

// Sentinel errors for configuration validation.
var (
	ErrConfigNil  = errors.New("speech: config is nil")
	ErrNoHost     = errors.New("speech: host is required")
	ErrBadTimeout = errors.New("speech: timeouts must be positive")
)

// ErrSidecar indicates the sidecar was unreachable or answered with a
// non-success status.
var ErrSidecar = errors.New("speech: sidecar request failed")

// Config defines the client's settings.
type Config struct {
	// Host is the sidecar base URL, e.g. "http://127.0.0.1:5000".
	Host string

	// RecognizeTimeout bounds a single transcription request.
	RecognizeTimeout time.Duration

	// SynthesizeTimeout bounds a single synthesis request.
	SynthesizeTimeout time.Duration

	// HTTPClient overrides the transport. Nil means http.DefaultTransport
	// with no client-level timeout; per-call timeouts come from context.
	HTTPClient *http.Client

	// Logger for diagnostics. Optional.
	Logger log.Logger
}

func (c *Config) validate() error {
	if c == nil {
		return ErrConfigNil
	}
	if c.Host == "" {
		return ErrNoHost
	}
	if _, err := url.ParseRequestURI(c.Host); err != nil {
		return fmt.Errorf("%w: %v", ErrNoHost, err)
	}
	if c.RecognizeTimeout <= 0 || c.SynthesizeTimeout <= 0 {
		return ErrBadTimeout
	}
	return nil
}

// Client is an HTTP client for the speech sidecar.
type Client struct {
	host              string
	recognizeTimeout  time.Duration
	synthesizeTimeout time.Duration
	httpClient        *http.Client
	logger            log.Logger
}

// New creates a Client from the given config.
func New(cfg *Config) (*Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	return &Client{
		host:              cfg.Host,
		recognizeTimeout:  cfg.RecognizeTimeout,
		synthesizeTimeout: cfg.SynthesizeTimeout,
		httpClient:        httpClient,
		logger:            logger,
	}, nil
}

// Transcribe sends audio bytes to the sidecar and returns the
// recognized text. An empty string with a nil error means the sidecar
// understood the request but heard no speech.
func (c *Client) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.recognizeTimeout)
	defer cancel()

	if filename == "" {
		filename = "audio.wav"
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("audio", filename)
	if err != nil {
		return "", fmt.Errorf("building multipart form: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return "", fmt.Errorf("writing audio field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("closing multipart form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/stt", &body)
	if err != nil {
		return "", fmt.Errorf("creating transcribe request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSidecar, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: stt returned status %d", ErrSidecar, resp.StatusCode)
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("%w: decoding stt response: %v", ErrSidecar, err)
	}

	c.logger.Debug("transcription completed", "bytes_in", len(audio), "chars_out", len(result.Text))
	return result.Text, nil
}

// Synthesize sends text to the sidecar and returns WAV audio bytes.
func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.synthesizeTimeout)
	defer cancel()

	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return nil, fmt.Errorf("encoding tts request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/tts", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating synthesize request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSidecar, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: tts returned status %d", ErrSidecar, resp.StatusCode)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading tts response: %v", ErrSidecar, err)
	}

	c.logger.Debug("synthesis completed", "chars_in", len(text), "bytes_out", len(audio))
	return audio, nil
}
