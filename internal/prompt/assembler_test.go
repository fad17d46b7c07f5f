package prompt

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/uday-dev/alderaan/internal/store"
)

type fakeHistory struct {
	messages []store.Message
	err      error
}

func (f *fakeHistory) Messages(_ context.Context, _ uuid.UUID) ([]store.Message, error) {
	return f.messages, f.err
}

func newAssembler(t *testing.T, history HistoryLister, window int) *Assembler {
	t.Helper()
	a, err := New(&Config{
		History:            history,
		SystemInstructions: "You are a helpful assistant.",
		MaxHistoryMessages: window,
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return a
}

func msg(kind store.Kind, content string) store.Message {
	return store.Message{Kind: kind, Content: content}
}

func TestNew_Validation(t *testing.T) {
	history := &fakeHistory{}

	tests := []struct {
		name    string
		cfg     *Config
		wantErr error
	}{
		{"nil config", nil, ErrConfigNil},
		{"missing history", &Config{SystemInstructions: "x", MaxHistoryMessages: 1}, ErrNoHistory},
		{"missing instructions", &Config{History: history, MaxHistoryMessages: 1}, ErrNoInstructions},
		{"negative window", &Config{History: history, SystemInstructions: "x", MaxHistoryMessages: -1}, ErrInvalidWindow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.cfg); !errors.Is(err, tt.wantErr) {
				t.Errorf("New() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestBuild_EmptyHistory(t *testing.T) {
	a := newAssembler(t, &fakeHistory{}, 20)

	got, err := a.Build(context.Background(), uuid.New(), "Hello there")
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	want := "You are a helpful assistant.\n\nUser: Hello there\nAssistant:"
	if got != want {
		t.Errorf("Build() = %q, want %q", got, want)
	}
}

func TestBuild_WithHistory(t *testing.T) {
	history := &fakeHistory{messages: []store.Message{
		msg(store.KindUserText, "What is Go?"),
		msg(store.KindAIText, "A programming language."),
		msg(store.KindUserAudio, "Who made it?"),
		msg(store.KindAIAudio, "Google."),
	}}
	a := newAssembler(t, history, 20)

	got, err := a.Build(context.Background(), uuid.New(), "When?")
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	want := "You are a helpful assistant.\n\n" +
		"User: What is Go?\n" +
		"Assistant: A programming language.\n" +
		"User: Who made it?\n" +
		"Assistant: Google.\n" +
		"User: When?\n" +
		"Assistant:"
	if got != want {
		t.Errorf("Build() = %q, want %q", got, want)
	}
}

func TestBuild_WindowDropsOldest(t *testing.T) {
	history := &fakeHistory{}
	for i := 1; i <= 25; i++ {
		history.messages = append(history.messages, msg(store.KindUserText, fmt.Sprintf("m%d", i)))
	}
	a := newAssembler(t, history, 20)

	got, err := a.Build(context.Background(), uuid.New(), "latest")
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	if strings.Contains(got, "User: m5\n") {
		t.Error("prompt contains m5, expected oldest messages to be dropped")
	}
	if !strings.Contains(got, "User: m6\n") || !strings.Contains(got, "User: m25\n") {
		t.Errorf("prompt missing expected window [m6..m25]: %q", got)
	}
}

func TestBuild_ZeroWindow(t *testing.T) {
	history := &fakeHistory{messages: []store.Message{
		msg(store.KindUserText, "old"),
		msg(store.KindAIText, "older"),
	}}
	a := newAssembler(t, history, 0)

	got, err := a.Build(context.Background(), uuid.New(), "fresh")
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	want := "You are a helpful assistant.\n\nUser: fresh\nAssistant:"
	if got != want {
		t.Errorf("Build() = %q, want %q", got, want)
	}
}

func TestBuild_SkipsUnknownKinds(t *testing.T) {
	history := &fakeHistory{messages: []store.Message{
		msg(store.KindUserText, "hi"),
		msg(store.Kind("SYSTEM"), "internal note"),
		msg(store.KindAIText, "hello"),
	}}
	a := newAssembler(t, history, 20)

	got, err := a.Build(context.Background(), uuid.New(), "bye")
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	if strings.Contains(got, "internal note") {
		t.Errorf("prompt contains unknown-kind content: %q", got)
	}
	if !strings.Contains(got, "User: hi\nAssistant: hello\n") {
		t.Errorf("prompt missing surrounding history: %q", got)
	}
}

func TestBuild_HistoryError(t *testing.T) {
	wantErr := errors.New("connection lost")
	a := newAssembler(t, &fakeHistory{err: wantErr}, 20)

	if _, err := a.Build(context.Background(), uuid.New(), "x"); !errors.Is(err, wantErr) {
		t.Errorf("Build() = %v, want wrapped %v", err, wantErr)
	}
}

func TestBare(t *testing.T) {
	a := newAssembler(t, &fakeHistory{}, 20)

	got := a.Bare("ping")
	want := "You are a helpful assistant.\n\nUser: ping\nAssistant:"
	if got != want {
		t.Errorf("Bare() = %q, want %q", got, want)
	}
}
