package config

import (
	"fmt"
	"net/url"
)

// Validate checks configuration values shared by all modes.
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	if c.ModelName == "" {
		return ErrInvalidModelName
	}
	if err := validateHostURL(c.OllamaHost); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidOllamaHost, c.OllamaHost)
	}
	if err := validateHostURL(c.SpeechHost); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidSpeechHost, c.SpeechHost)
	}

	if c.MaxHistoryMessages < 0 || c.MaxHistoryMessages > MaxAllowedHistoryMessages {
		return fmt.Errorf("%w: %d (allowed 0..%d)",
			ErrInvalidHistoryWindow, c.MaxHistoryMessages, MaxAllowedHistoryMessages)
	}

	if c.ModelTimeout <= 0 {
		return fmt.Errorf("%w: model_timeout %v", ErrInvalidTimeout, c.ModelTimeout)
	}
	if c.RecognizeTimeout <= 0 {
		return fmt.Errorf("%w: recognize_timeout %v", ErrInvalidTimeout, c.RecognizeTimeout)
	}
	if c.SynthesizeTimeout <= 0 {
		return fmt.Errorf("%w: synthesize_timeout %v", ErrInvalidTimeout, c.SynthesizeTimeout)
	}

	if c.PostgresHost == "" {
		return ErrInvalidPostgresHost
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPostgresPort, c.PostgresPort)
	}
	if c.PostgresDBName == "" {
		return ErrInvalidPostgresDBName
	}

	return nil
}

// ValidateServe checks additional requirements for running the HTTP server.
func (c *Config) ValidateServe() error {
	if err := c.Validate(); err != nil {
		return err
	}

	if c.HMACSecret == "" {
		return ErrMissingHMACSecret
	}
	if len(c.HMACSecret) < 32 {
		return ErrInvalidHMACSecret
	}

	return nil
}

// validateHostURL checks that s parses as an absolute http(s) URL.
func validateHostURL(s string) error {
	u, err := url.Parse(s)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host")
	}
	return nil
}
