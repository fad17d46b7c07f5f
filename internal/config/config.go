// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.alderaan/config.yaml)
//  3. Default values
//
// Security: sensitive values (postgres password, HMAC secret) are masked
// in MarshalJSON and never logged.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/viper"
)

const (
	// DefaultSystemInstructions is the preamble sent ahead of every prompt.
	DefaultSystemInstructions = "You are a helpful AI assistant. Provide short responses like chatting face to face without markdown, emojis, or code blocks."

	// DefaultFallbackReply is the degraded reply used when the model is unavailable.
	DefaultFallbackReply = "Sorry, I'm having trouble processing your request right now."

	// DefaultMaxHistoryMessages is the default prompt window size.
	DefaultMaxHistoryMessages = 20

	// MaxAllowedHistoryMessages is the absolute window cap to bound request size.
	MaxAllowedHistoryMessages = 1000
)

// Sentinel errors for configuration validation.
var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrInvalidModelName indicates the model name is empty or invalid.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidOllamaHost indicates the Ollama host is invalid.
	ErrInvalidOllamaHost = errors.New("invalid Ollama host")

	// ErrInvalidSpeechHost indicates the speech service host is invalid.
	ErrInvalidSpeechHost = errors.New("invalid speech service host")

	// ErrInvalidHistoryWindow indicates max_history_messages is out of range.
	ErrInvalidHistoryWindow = errors.New("invalid history window")

	// ErrInvalidTimeout indicates a timeout value is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is invalid.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrMissingHMACSecret indicates the HMAC secret is not set.
	ErrMissingHMACSecret = errors.New("missing HMAC secret")

	// ErrInvalidHMACSecret indicates the HMAC secret is too short.
	ErrInvalidHMACSecret = errors.New("invalid HMAC secret (need 32+ bytes)")
)

// Config stores application configuration.
// SECURITY: sensitive fields are explicitly masked in MarshalJSON().
type Config struct {
	// Language model configuration
	OllamaHost         string        `mapstructure:"ollama_host" json:"ollama_host"`
	ModelName          string        `mapstructure:"model_name" json:"model_name"`
	SystemInstructions string        `mapstructure:"system_instructions" json:"system_instructions"`
	FallbackReply      string        `mapstructure:"fallback_reply" json:"fallback_reply"`
	MaxHistoryMessages int           `mapstructure:"max_history_messages" json:"max_history_messages"`
	ModelTimeout       time.Duration `mapstructure:"model_timeout" json:"model_timeout"`

	// Speech sidecar configuration
	SpeechHost        string        `mapstructure:"speech_host" json:"speech_host"`
	RecognizeTimeout  time.Duration `mapstructure:"recognize_timeout" json:"recognize_timeout"`
	SynthesizeTimeout time.Duration `mapstructure:"synthesize_timeout" json:"synthesize_timeout"`

	// Storage configuration
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// Serve-mode security configuration
	HMACSecret  string   `mapstructure:"hmac_secret" json:"hmac_secret"` // SENSITIVE: masked in MarshalJSON
	CORSOrigins []string `mapstructure:"cors_origins" json:"cors_origins"`
	TrustProxy  bool     `mapstructure:"trust_proxy" json:"trust_proxy"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > default values.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".alderaan")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	v.AddConfigPath(".")

	setDefaults(v)
	bindEnvVariables(v)

	if err := v.ReadInConfig(); err != nil {
		// Missing config file is fine, defaults apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using defaults",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// DATABASE_URL, if set, overrides the individual postgres_* values.
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ollama_host", "http://localhost:11434")
	v.SetDefault("model_name", "llama3.2")
	v.SetDefault("system_instructions", DefaultSystemInstructions)
	v.SetDefault("fallback_reply", DefaultFallbackReply)
	v.SetDefault("max_history_messages", DefaultMaxHistoryMessages)
	v.SetDefault("model_timeout", 60*time.Second)

	v.SetDefault("speech_host", "http://127.0.0.1:5000")
	v.SetDefault("recognize_timeout", 30*time.Second)
	v.SetDefault("synthesize_timeout", 30*time.Second)

	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", 5432)
	v.SetDefault("postgres_user", "alderaan")
	v.SetDefault("postgres_password", "")
	v.SetDefault("postgres_db_name", "alderaan")
	v.SetDefault("postgres_ssl_mode", "disable")

	v.SetDefault("cors_origins", []string{})
	v.SetDefault("trust_proxy", false)
}

func bindEnvVariables(v *viper.Viper) {
	v.SetEnvPrefix("ALDERAAN")
	v.AutomaticEnv()

	// Explicit bindings so nested keys resolve from flat env names.
	for _, key := range []string{
		"ollama_host", "model_name", "system_instructions", "fallback_reply",
		"max_history_messages", "model_timeout",
		"speech_host", "recognize_timeout", "synthesize_timeout",
		"postgres_host", "postgres_port", "postgres_user", "postgres_password",
		"postgres_db_name", "postgres_ssl_mode",
		"hmac_secret", "cors_origins", "trust_proxy",
	} {
		_ = v.BindEnv(key)
	}
}

// parseDatabaseURL applies DATABASE_URL to the postgres fields when set.
func (c *Config) parseDatabaseURL() error {
	raw := os.Getenv("DATABASE_URL")
	if raw == "" {
		return nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("parsing DATABASE_URL: %w", err)
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return fmt.Errorf("%w: unsupported DATABASE_URL scheme %q", ErrInvalidPostgresHost, u.Scheme)
	}

	c.PostgresHost = u.Hostname()
	if port := u.Port(); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidPostgresPort, port)
		}
		c.PostgresPort = p
	}
	if u.User != nil {
		c.PostgresUser = u.User.Username()
		if pw, ok := u.User.Password(); ok {
			c.PostgresPassword = pw
		}
	}
	if name := filepath.Base(u.Path); name != "." && name != "/" {
		c.PostgresDBName = name
	}
	if mode := u.Query().Get("sslmode"); mode != "" {
		c.PostgresSSLMode = mode
	}

	return nil
}

// DatabaseURL returns the postgres:// connection URL for pgx and migrations.
func (c *Config) DatabaseURL() string {
	u := url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", c.PostgresHost, c.PostgresPort),
		Path:   "/" + c.PostgresDBName,
	}
	if c.PostgresUser != "" {
		if c.PostgresPassword != "" {
			u.User = url.UserPassword(c.PostgresUser, c.PostgresPassword)
		} else {
			u.User = url.User(c.PostgresUser)
		}
	}
	q := url.Values{}
	if c.PostgresSSLMode != "" {
		q.Set("sslmode", c.PostgresSSLMode)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// MarshalJSON masks sensitive fields.
func (c *Config) MarshalJSON() ([]byte, error) {
	type alias Config // avoid recursion
	masked := alias(*c)
	if masked.PostgresPassword != "" {
		masked.PostgresPassword = "****"
	}
	if masked.HMACSecret != "" {
		masked.HMACSecret = "****"
	}
	return json.Marshal(masked)
}
