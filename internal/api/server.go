// Package api exposes the JSON HTTP surface: session CRUD,
// conversation turns, speech passthrough, and health probes.
package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ServerConfig contains configuration for creating the API server.
type ServerConfig struct {
	Logger       *slog.Logger
	Conversation Conversation  // Required
	SessionStore SessionStore  // Required
	Speech       SpeechService // Required
	Pool         *pgxpool.Pool // Optional: nil disables pool stats in /ready
	HMACSecret   []byte        // Required: 32+ bytes, signs the uid cookie
	CORSOrigins  []string      // Allowed origins for CORS
	IsDev        bool          // Enables HTTP cookies (no Secure flag)
	TrustProxy   bool          // Trust X-Real-IP/X-Forwarded-For headers
	RateBurst    int           // Rate limiter burst size per IP (0 = default 60)
}

// Server is the JSON API HTTP server.
type Server struct {
	mux *http.ServeMux
}

// NewServer creates a new API server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Conversation == nil {
		return nil, errors.New("conversation orchestrator is required")
	}
	if cfg.SessionStore == nil {
		return nil, errors.New("session store is required")
	}
	if cfg.Speech == nil {
		return nil, errors.New("speech service is required")
	}
	if len(cfg.HMACSecret) < 32 {
		return nil, errors.New("hmac secret must be at least 32 bytes")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ident := &identity{
		hmacSecret: cfg.HMACSecret,
		isDev:      cfg.IsDev,
		logger:     logger,
	}

	sh := &sessionHandler{store: cfg.SessionStore, logger: logger}
	ch := &chatHandler{conv: cfg.Conversation, store: cfg.SessionStore, logger: logger}
	sp := &speechHandler{speech: cfg.Speech, logger: logger}

	mux := http.NewServeMux()

	// Session CRUD
	mux.HandleFunc("GET /api/v1/sessions", sh.listSessions)
	mux.HandleFunc("POST /api/v1/sessions", sh.createSession)
	mux.HandleFunc("GET /api/v1/sessions/{id}", sh.getSession)
	mux.HandleFunc("GET /api/v1/sessions/{id}/messages", sh.getSessionMessages)
	mux.HandleFunc("DELETE /api/v1/sessions/{id}", sh.deleteSession)

	// Conversation turns
	mux.HandleFunc("POST /api/v1/chat", ch.send)
	mux.HandleFunc("POST /api/v1/chat/oneshot", ch.sendOneShot)
	mux.HandleFunc("POST /api/v1/chat/speech", ch.sendSpeech)
	mux.HandleFunc("POST /api/v1/chat/voice", ch.sendVoice)

	// Speech passthrough
	mux.HandleFunc("POST /api/v1/speech/recognize", sp.recognize)
	mux.HandleFunc("POST /api/v1/speech/synthesize", sp.synthesize)

	// Rate limiter: per-IP token bucket (1 token/sec refill)
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 60
	}
	rl := newIPLimiter(1.0, burst)

	// Build middleware stack (outermost first):
	//   Recovery → Logging → CORS → RateLimit → User → Routes
	// CORS must be before RateLimit so preflight OPTIONS gets proper
	// CORS headers.
	var handler http.Handler = mux
	handler = userMiddleware(ident)(handler)
	handler = rateLimitMiddleware(rl, cfg.TrustProxy, logger)(handler)
	handler = corsMiddleware(cfg.CORSOrigins)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = recoveryMiddleware(logger)(handler)

	isDev := cfg.IsDev
	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setSecurityHeaders(w, isDev)
		handler.ServeHTTP(w, r)
	})

	// Top-level mux keeps health probes outside the middleware stack.
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /health", health(logger))
	topMux.HandleFunc("GET /ready", readiness(cfg.Pool, logger))
	topMux.Handle("/", final)

	return &Server{mux: topMux}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}
