package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/google/uuid"

	"github.com/uday-dev/alderaan/internal/chat"
	"github.com/uday-dev/alderaan/internal/store"
)

const (
	// maxAudioUploadBytes bounds voice uploads. 10 MiB covers roughly a
	// minute of 16-bit 44.1 kHz mono WAV.
	maxAudioUploadBytes = 10 << 20

	messageMaxRunes = 8000
)

// Conversation runs chat turns against a session, plus session-less
// one-shot exchanges. TextTurn returns both persisted messages, user
// first.
type Conversation interface {
	TextTurn(ctx context.Context, sessionID uuid.UUID, utterance string) (*store.Message, *store.Message, error)
	SpokenTurn(ctx context.Context, sessionID uuid.UUID, utterance string) (string, []byte, error)
	VoiceTurn(ctx context.Context, sessionID uuid.UUID, audio []byte, filename string) (string, string, []byte, error)
	OneShot(ctx context.Context, utterance string) (string, error)
}

// chatHandler serves the conversation turn endpoints.
type chatHandler struct {
	conv   Conversation
	store  SessionStore
	logger *slog.Logger
}

type turnRequest struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
}

// parseTurnRequest decodes and validates the JSON body shared by the
// text and speech turn endpoints.
func (h *chatHandler) parseTurnRequest(w http.ResponseWriter, r *http.Request) (uuid.UUID, string, bool) {
	var req turnRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_body", "invalid request body", h.logger)
		return uuid.Nil, "", false
	}

	sessionID, err := uuid.Parse(req.SessionID)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_id", "invalid session ID", h.logger)
		return uuid.Nil, "", false
	}

	if req.Message == "" {
		WriteError(w, http.StatusBadRequest, "empty_message", "message must not be empty", h.logger)
		return uuid.Nil, "", false
	}
	if len([]rune(req.Message)) > messageMaxRunes {
		WriteError(w, http.StatusBadRequest, "message_too_long", "message exceeds maximum length", h.logger)
		return uuid.Nil, "", false
	}

	return sessionID, req.Message, true
}

// authorizeSession verifies the target session exists and belongs to
// the caller before a turn may run against it. Writes the error
// response and returns false otherwise.
func (h *chatHandler) authorizeSession(w http.ResponseWriter, r *http.Request, sessionID uuid.UUID) bool {
	userID, ok := userIDFromContext(r.Context())
	if !ok || userID == "" {
		WriteError(w, http.StatusForbidden, "forbidden", "user identity required", h.logger)
		return false
	}

	sess, err := h.store.Session(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "not_found", "session not found", h.logger)
			return false
		}
		h.logger.Error("checking session ownership", "error", err, "session_id", sessionID)
		WriteError(w, http.StatusInternalServerError, "get_failed", "failed to verify session", h.logger)
		return false
	}

	if sess.OwnerID != userID {
		h.logger.Warn("session ownership check failed",
			"target", sessionID,
			"caller", userID,
			"path", r.URL.Path,
		)
		WriteError(w, http.StatusForbidden, "forbidden", "session access denied", h.logger)
		return false
	}

	return true
}

// send handles POST /api/v1/chat: text in, text out. The response
// carries the reply plus both messages as persisted.
func (h *chatHandler) send(w http.ResponseWriter, r *http.Request) {
	sessionID, message, ok := h.parseTurnRequest(w, r)
	if !ok {
		return
	}
	if !h.authorizeSession(w, r, sessionID) {
		return
	}

	userMsg, aiMsg, err := h.conv.TextTurn(r.Context(), sessionID, message)
	if err != nil {
		h.writeTurnError(w, err, "")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"reply":       aiMsg.Content,
		"userMessage": toMessageItem(userMsg),
		"aiMessage":   toMessageItem(aiMsg),
	}, h.logger)
}

// sendOneShot handles POST /api/v1/chat/oneshot: text in, text out,
// no session and no persistence.
func (h *chatHandler) sendOneShot(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_body", "invalid request body", h.logger)
		return
	}
	if req.Message == "" {
		WriteError(w, http.StatusBadRequest, "empty_message", "message must not be empty", h.logger)
		return
	}
	if len([]rune(req.Message)) > messageMaxRunes {
		WriteError(w, http.StatusBadRequest, "message_too_long", "message exceeds maximum length", h.logger)
		return
	}

	reply, err := h.conv.OneShot(r.Context(), req.Message)
	if err != nil {
		h.writeTurnError(w, err, "")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"reply": reply}, h.logger)
}

// sendSpeech handles POST /api/v1/chat/speech: text in, synthesized
// audio out. The reply text travels in the X-Reply-Text header,
// percent-encoded so non-ASCII replies survive header transport.
func (h *chatHandler) sendSpeech(w http.ResponseWriter, r *http.Request) {
	sessionID, message, ok := h.parseTurnRequest(w, r)
	if !ok {
		return
	}
	if !h.authorizeSession(w, r, sessionID) {
		return
	}

	reply, audio, err := h.conv.SpokenTurn(r.Context(), sessionID, message)
	if err != nil {
		h.writeTurnError(w, err, reply)
		return
	}

	h.writeAudio(w, audio, map[string]string{"X-Reply-Text": reply})
}

// sendVoice handles POST /api/v1/chat/voice: audio in, audio out.
// Expects a multipart form with an "audio" file and a "sessionId"
// field. The transcript and reply text travel in percent-encoded
// headers alongside the audio body.
func (h *chatHandler) sendVoice(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxAudioUploadBytes)

	sessionID, err := uuid.Parse(r.FormValue("sessionId"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_id", "invalid session ID", h.logger)
		return
	}
	if !h.authorizeSession(w, r, sessionID) {
		return
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		WriteError(w, http.StatusBadRequest, "missing_audio", "audio file required", h.logger)
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(file)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_audio", "failed to read audio", h.logger)
		return
	}
	if len(audio) == 0 {
		WriteError(w, http.StatusBadRequest, "missing_audio", "audio file is empty", h.logger)
		return
	}

	transcript, reply, replyAudio, err := h.conv.VoiceTurn(r.Context(), sessionID, audio, header.Filename)
	if err != nil {
		h.writeTurnError(w, err, reply)
		return
	}

	h.writeAudio(w, replyAudio, map[string]string{
		"X-Transcript": transcript,
		"X-Reply-Text": reply,
	})
}

// writeAudio writes a WAV response with percent-encoded text headers.
func (h *chatHandler) writeAudio(w http.ResponseWriter, audio []byte, headers map[string]string) {
	for name, value := range headers {
		w.Header().Set(name, url.QueryEscape(value))
	}
	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Content-Disposition", `inline; filename="reply.wav"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(audio); err != nil {
		h.logger.Debug("writing audio response", "error", err)
	}
}

// writeTurnError maps orchestration errors onto HTTP responses. When a
// synthesis failure left a generated text reply behind, the reply is
// included so clients can still render it.
func (h *chatHandler) writeTurnError(w http.ResponseWriter, err error, reply string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		WriteError(w, http.StatusNotFound, "not_found", "session not found", h.logger)
	case errors.Is(err, chat.ErrNoSpeechDetected):
		WriteError(w, http.StatusUnprocessableEntity, "no_speech", "no speech detected in audio", h.logger)
	case errors.Is(err, chat.ErrSynthesisFailed):
		WriteJSON(w, http.StatusBadGateway, map[string]any{
			"error": errorDetail{Code: "synthesis_failed", Message: "reply could not be rendered to audio"},
			"reply": reply,
		}, h.logger)
	default:
		h.logger.Error("chat turn failed", "error", err)
		WriteError(w, http.StatusInternalServerError, "chat_failed", "failed to process message", h.logger)
	}
}
