package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/uday-dev/alderaan/internal/store"
)

const (
	sessionsDefaultLimit = 50
	sessionsMaxLimit     = 200
	titleMaxRunes        = 200
)

// SessionStore is the persistence surface the API needs for session
// CRUD and transcript reads.
type SessionStore interface {
	CreateSession(ctx context.Context, ownerID, title string) (*store.Session, error)
	Session(ctx context.Context, id uuid.UUID) (*store.Session, error)
	Sessions(ctx context.Context, ownerID string, limit, offset int) ([]store.Session, int, error)
	DeleteSession(ctx context.Context, id uuid.UUID) error
	Messages(ctx context.Context, sessionID uuid.UUID) ([]store.Message, error)
}

// sessionHandler serves the session CRUD endpoints.
type sessionHandler struct {
	store  SessionStore
	logger *slog.Logger
}

// sessionItem is the JSON representation of a session in responses.
type sessionItem struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	MessageCount int    `json:"messageCount"`
	CreatedAt    string `json:"createdAt"`
	UpdatedAt    string `json:"updatedAt"`
}

// messageItem is the JSON representation of a message in responses.
type messageItem struct {
	ID             string `json:"id"`
	Kind           string `json:"kind"`
	Content        string `json:"content"`
	SequenceNumber int    `json:"sequenceNumber"`
	CreatedAt      string `json:"createdAt"`
}

func toSessionItem(sess *store.Session) sessionItem {
	return sessionItem{
		ID:           sess.ID.String(),
		Title:        sess.Title,
		MessageCount: sess.MessageCount,
		CreatedAt:    sess.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    sess.UpdatedAt.Format(time.RFC3339),
	}
}

func toMessageItem(msg *store.Message) messageItem {
	return messageItem{
		ID:             msg.ID.String(),
		Kind:           string(msg.Kind),
		Content:        msg.Content,
		SequenceNumber: msg.SequenceNumber,
		CreatedAt:      msg.CreatedAt.Format(time.RFC3339),
	}
}

// requireOwnership verifies the requested session belongs to the caller.
// Returns the verified session ID and true, or writes an error response
// and returns false.
func (h *sessionHandler) requireOwnership(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	idStr := r.PathValue("id")
	if idStr == "" {
		WriteError(w, http.StatusBadRequest, "missing_id", "session ID required", h.logger)
		return uuid.Nil, false
	}

	targetID, err := uuid.Parse(idStr)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_id", "invalid session ID", h.logger)
		return uuid.Nil, false
	}

	userID, ok := userIDFromContext(r.Context())
	if !ok || userID == "" {
		WriteError(w, http.StatusForbidden, "forbidden", "user identity required", h.logger)
		return uuid.Nil, false
	}

	sess, err := h.store.Session(r.Context(), targetID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "not_found", "session not found", h.logger)
			return uuid.Nil, false
		}
		h.logger.Error("checking session ownership", "error", err, "session_id", targetID)
		WriteError(w, http.StatusInternalServerError, "get_failed", "failed to verify session", h.logger)
		return uuid.Nil, false
	}

	if sess.OwnerID != userID {
		h.logger.Warn("session ownership check failed",
			"target", targetID,
			"caller", userID,
			"path", r.URL.Path,
		)
		WriteError(w, http.StatusForbidden, "forbidden", "session access denied", h.logger)
		return uuid.Nil, false
	}

	return targetID, true
}

// listSessions handles GET /api/v1/sessions.
func (h *sessionHandler) listSessions(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok || userID == "" {
		WriteJSON(w, http.StatusOK, map[string]any{
			"items": []sessionItem{},
			"total": 0,
		}, h.logger)
		return
	}

	limit := min(parseIntParam(r, "limit", sessionsDefaultLimit), sessionsMaxLimit)
	offset := parseIntParam(r, "offset", 0)
	if offset > 10000 {
		WriteError(w, http.StatusBadRequest, "invalid_offset", "offset must be 10000 or less", h.logger)
		return
	}

	sessions, total, err := h.store.Sessions(r.Context(), userID, limit, offset)
	if err != nil {
		h.logger.Error("listing sessions", "error", err, "user_id", userID)
		WriteError(w, http.StatusInternalServerError, "list_failed", "failed to list sessions", h.logger)
		return
	}

	items := make([]sessionItem, len(sessions))
	for i := range sessions {
		items[i] = toSessionItem(&sessions[i])
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"items": items,
		"total": total,
	}, h.logger)
}

// createSession handles POST /api/v1/sessions. The body is optional
// and may carry an initial title.
func (h *sessionHandler) createSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok || userID == "" {
		WriteError(w, http.StatusBadRequest, "user_required", "user identity required", h.logger)
		return
	}

	var req struct {
		Title string `json:"title"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid_body", "invalid request body", h.logger)
			return
		}
	}
	if runes := []rune(req.Title); len(runes) > titleMaxRunes {
		req.Title = string(runes[:titleMaxRunes])
	}

	sess, err := h.store.CreateSession(r.Context(), userID, req.Title)
	if err != nil {
		h.logger.Error("creating session", "error", err)
		WriteError(w, http.StatusInternalServerError, "create_failed", "failed to create session", h.logger)
		return
	}

	WriteJSON(w, http.StatusCreated, toSessionItem(sess), h.logger)
}

// getSession handles GET /api/v1/sessions/{id}.
func (h *sessionHandler) getSession(w http.ResponseWriter, r *http.Request) {
	id, ok := h.requireOwnership(w, r)
	if !ok {
		return
	}

	sess, err := h.store.Session(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "not_found", "session not found", h.logger)
			return
		}
		h.logger.Error("getting session", "error", err, "session_id", id)
		WriteError(w, http.StatusInternalServerError, "get_failed", "failed to get session", h.logger)
		return
	}

	WriteJSON(w, http.StatusOK, toSessionItem(sess), h.logger)
}

// getSessionMessages handles GET /api/v1/sessions/{id}/messages.
// Returns the full transcript in ascending sequence order.
func (h *sessionHandler) getSessionMessages(w http.ResponseWriter, r *http.Request) {
	id, ok := h.requireOwnership(w, r)
	if !ok {
		return
	}

	messages, err := h.store.Messages(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "not_found", "session not found", h.logger)
			return
		}
		h.logger.Error("getting messages", "error", err, "session_id", id)
		WriteError(w, http.StatusInternalServerError, "get_failed", "failed to get messages", h.logger)
		return
	}

	items := make([]messageItem, len(messages))
	for i := range messages {
		items[i] = toMessageItem(&messages[i])
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"items": items,
		"total": len(items),
	}, h.logger)
}

// deleteSession handles DELETE /api/v1/sessions/{id}. Messages go with
// the session.
func (h *sessionHandler) deleteSession(w http.ResponseWriter, r *http.Request) {
	id, ok := h.requireOwnership(w, r)
	if !ok {
		return
	}

	if err := h.store.DeleteSession(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "not_found", "session not found", h.logger)
			return
		}
		h.logger.Error("deleting session", "error", err, "session_id", id)
		WriteError(w, http.StatusInternalServerError, "delete_failed", "failed to delete session", h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// parseIntParam parses a non-negative integer query parameter with a
// default value.
func parseIntParam(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return def
	}
	return v
}
