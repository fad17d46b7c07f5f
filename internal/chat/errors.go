package chat

import "errors"

var (
	// ErrNoSpeechDetected is returned when audio yields an empty
	// transcript. Nothing is persisted for the turn.
	ErrNoSpeechDetected = errors.New("chat: no speech detected")

	// ErrSynthesisFailed is returned when the assistant's reply was
	// generated and persisted but could not be rendered to audio.
	ErrSynthesisFailed = errors.New("chat: speech synthesis failed")
)
