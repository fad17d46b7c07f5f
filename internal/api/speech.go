package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
)

// SpeechService converts between audio and text.
type SpeechService interface {
	Transcribe(ctx context.Context, audio []byte, filename string) (string, error)
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// speechHandler serves the standalone recognition and synthesis
// endpoints, independent of any conversation session.
type speechHandler struct {
	speech SpeechService
	logger *slog.Logger
}

// recognize handles POST /api/v1/speech/recognize. Expects a multipart
// form with an "audio" file and answers {"text": "..."}.
func (h *speechHandler) recognize(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxAudioUploadBytes)

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

	text, err := h.speech.Transcribe(r.Context(), audio, header.Filename)
	if err != nil {
		h.logger.Warn("transcription failed", "error", err)
		WriteError(w, http.StatusBadGateway, "speech_unavailable", "speech recognition failed", h.logger)
		return
	}
	if text == "" {
		WriteError(w, http.StatusUnprocessableEntity, "no_speech", "no speech detected in audio", h.logger)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"text": text}, h.logger)
}

// synthesize handles POST /api/v1/speech/synthesize. Expects
// {"text": "..."} and answers WAV bytes.
func (h *speechHandler) synthesize(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_body", "invalid request body", h.logger)
		return
	}
	if req.Text == "" {
		WriteError(w, http.StatusBadRequest, "empty_text", "text must not be empty", h.logger)
		return
	}

	audio, err := h.speech.Synthesize(r.Context(), req.Text)
	if err != nil || len(audio) == 0 {
		h.logger.Warn("synthesis failed", "error", err)
		WriteError(w, http.StatusBadGateway, "synthesis_failed", "speech synthesis failed", h.logger)
		return
	}

	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Content-Disposition", `inline; filename="speech.wav"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(audio); err != nil {
		h.logger.Debug("writing audio response", "error", err)
	}
}
