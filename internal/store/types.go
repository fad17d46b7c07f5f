package store

import (
	"time"

	"github.com/google/uuid"
)

// Kind identifies who produced a message and in which modality.
type Kind string

const (
	KindUserText  Kind = "USER_TEXT"
	KindUserAudio Kind = "USER_AUDIO"
	KindAIText    Kind = "AI_TEXT"
	KindAIAudio   Kind = "AI_AUDIO"
)

// IsUser reports whether the message originated from the user.
func (k Kind) IsUser() bool {
	return k == KindUserText || k == KindUserAudio
}

// IsAssistant reports whether the message originated from the assistant.
func (k Kind) IsAssistant() bool {
	return k == KindAIText || k == KindAIAudio
}

// Known reports whether k is one of the defined message kinds.
func (k Kind) Known() bool {
	return k.IsUser() || k.IsAssistant()
}

// Session is a persistent conversation thread owned by a single user.
type Session struct {
	ID           uuid.UUID `json:"id"`
	OwnerID      string    `json:"owner_id"`
	Title        string    `json:"title"`
	MessageCount int       `json:"message_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Message is a single utterance within a session. Messages are ordered
// by SequenceNumber, which is unique within a session and assigned by
// the store at append time.
type Message struct {
	ID             uuid.UUID `json:"id"`
	SessionID      uuid.UUID `json:"session_id"`
	Kind           Kind      `json:"kind"`
	Content        string    `json:"content"`
	AudioPath      *string   `json:"audio_path,omitempty"`
	SequenceNumber int       `json:"sequence_number"`
	CreatedAt      time.Time `json:"created_at"`
}
