package chat

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/uday-dev/alderaan/internal/store"
)

const fallbackReply = "Sorry, I'm having trouble processing your request right now."

type appendCall struct {
	kind    store.Kind
	content string
}

type fakeStore struct {
	missing   bool
	appendErr error
	appended  []appendCall
}

func (f *fakeStore) Session(_ context.Context, id uuid.UUID) (*store.Session, error) {
	if f.missing {
		return nil, store.ErrNotFound
	}
	return &store.Session{ID: id}, nil
}

func (f *fakeStore) Append(_ context.Context, sessionID uuid.UUID, kind store.Kind, content string, _ *string) (*store.Message, error) {
	if f.appendErr != nil {
		return nil, f.appendErr
	}
	f.appended = append(f.appended, appendCall{kind: kind, content: content})
	return &store.Message{SessionID: sessionID, Kind: kind, Content: content, SequenceNumber: len(f.appended)}, nil
}

type fakePrompts struct {
	st              *fakeStore
	appendedAtBuild int
	err             error
}

func (f *fakePrompts) Build(_ context.Context, _ uuid.UUID, utterance string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.appendedAtBuild = len(f.st.appended)
	return "PROMPT[" + utterance + "]", nil
}

func (f *fakePrompts) Bare(utterance string) string {
	return "BARE[" + utterance + "]"
}

type fakeModel struct {
	reply string
	err   error
	got   string
}

func (f *fakeModel) Generate(_ context.Context, prompt string) (string, error) {
	f.got = prompt
	return f.reply, f.err
}

type fakeRecognizer struct {
	transcript string
	err        error
}

func (f *fakeRecognizer) Transcribe(_ context.Context, _ []byte, _ string) (string, error) {
	return f.transcript, f.err
}

type fakeSynthesizer struct {
	audio []byte
	err   error
	got   string
}

func (f *fakeSynthesizer) Synthesize(_ context.Context, text string) ([]byte, error) {
	f.got = text
	return f.audio, f.err
}

type fixture struct {
	st    *fakeStore
	pr    *fakePrompts
	model *fakeModel
	rec   *fakeRecognizer
	syn   *fakeSynthesizer
	orch  *Orchestrator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	st := &fakeStore{}
	f := &fixture{
		st:    st,
		pr:    &fakePrompts{st: st},
		model: &fakeModel{reply: "model reply"},
		rec:   &fakeRecognizer{transcript: "spoken words"},
		syn:   &fakeSynthesizer{audio: []byte("wav-bytes")},
	}

	orch, err := New(&Config{
		Store:         f.st,
		Prompts:       f.pr,
		Model:         f.model,
		Recognizer:    f.rec,
		Synthesizer:   f.syn,
		FallbackReply: fallbackReply,
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	f.orch = orch
	return f
}

func TestNew_Validation(t *testing.T) {
	st := &fakeStore{}
	full := func() *Config {
		return &Config{
			Store:         st,
			Prompts:       &fakePrompts{st: st},
			Model:         &fakeModel{},
			Recognizer:    &fakeRecognizer{},
			Synthesizer:   &fakeSynthesizer{},
			FallbackReply: fallbackReply,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"missing store", func(c *Config) { c.Store = nil }, ErrNoStore},
		{"missing prompts", func(c *Config) { c.Prompts = nil }, ErrNoPrompts},
		{"missing model", func(c *Config) { c.Model = nil }, ErrNoModel},
		{"missing recognizer", func(c *Config) { c.Recognizer = nil }, ErrNoRecognizer},
		{"missing synthesizer", func(c *Config) { c.Synthesizer = nil }, ErrNoSynthesizer},
		{"missing fallback", func(c *Config) { c.FallbackReply = "" }, ErrNoFallback},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := full()
			tt.mutate(cfg)
			if _, err := New(cfg); !errors.Is(err, tt.wantErr) {
				t.Errorf("New() = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if _, err := New(nil); !errors.Is(err, ErrConfigNil) {
		t.Errorf("New(nil) = %v, want ErrConfigNil", err)
	}
}

func TestTextTurn(t *testing.T) {
	f := newFixture(t)

	userMsg, aiMsg, err := f.orch.TextTurn(context.Background(), uuid.New(), "hello")
	if err != nil {
		t.Fatalf("TextTurn() error: %v", err)
	}
	if userMsg.Kind != store.KindUserText || userMsg.Content != "hello" {
		t.Errorf("user message = %+v, want USER_TEXT %q", userMsg, "hello")
	}
	if aiMsg.Kind != store.KindAIText || aiMsg.Content != "model reply" {
		t.Errorf("assistant message = %+v, want AI_TEXT %q", aiMsg, "model reply")
	}
	if userMsg.SequenceNumber >= aiMsg.SequenceNumber {
		t.Errorf("sequence numbers = %d/%d, want user before assistant",
			userMsg.SequenceNumber, aiMsg.SequenceNumber)
	}
	if f.model.got != "PROMPT[hello]" {
		t.Errorf("model prompt = %q, want %q", f.model.got, "PROMPT[hello]")
	}

	want := []appendCall{
		{store.KindUserText, "hello"},
		{store.KindAIText, "model reply"},
	}
	if len(f.st.appended) != len(want) {
		t.Fatalf("appended %d messages, want %d", len(f.st.appended), len(want))
	}
	for i, w := range want {
		if f.st.appended[i] != w {
			t.Errorf("appended[%d] = %+v, want %+v", i, f.st.appended[i], w)
		}
	}
}

func TestTextTurn_PromptSnapshotPrecedesAppend(t *testing.T) {
	f := newFixture(t)

	if _, _, err := f.orch.TextTurn(context.Background(), uuid.New(), "hi"); err != nil {
		t.Fatalf("TextTurn() error: %v", err)
	}
	if f.pr.appendedAtBuild != 0 {
		t.Errorf("prompt built after %d appends, want 0", f.pr.appendedAtBuild)
	}
}

func TestTextTurn_UnknownSession(t *testing.T) {
	f := newFixture(t)
	f.st.missing = true

	if _, _, err := f.orch.TextTurn(context.Background(), uuid.New(), "hi"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("TextTurn() = %v, want store.ErrNotFound", err)
	}
	if len(f.st.appended) != 0 {
		t.Errorf("appended %d messages for unknown session, want 0", len(f.st.appended))
	}
}

func TestTextTurn_ModelOutageFallsBack(t *testing.T) {
	f := newFixture(t)
	f.model.err = errors.New("connection refused")
	f.model.reply = ""

	_, aiMsg, err := f.orch.TextTurn(context.Background(), uuid.New(), "hi")
	if err != nil {
		t.Fatalf("TextTurn() error: %v", err)
	}
	if aiMsg.Content != fallbackReply {
		t.Errorf("reply = %q, want fallback", aiMsg.Content)
	}
	if got := f.st.appended[1]; got.kind != store.KindAIText || got.content != fallbackReply {
		t.Errorf("persisted assistant message = %+v, want fallback AI_TEXT", got)
	}
}

func TestTextTurn_AppendFailure(t *testing.T) {
	f := newFixture(t)
	wantErr := errors.New("db down")
	f.st.appendErr = wantErr

	if _, _, err := f.orch.TextTurn(context.Background(), uuid.New(), "hi"); !errors.Is(err, wantErr) {
		t.Errorf("TextTurn() = %v, want wrapped %v", err, wantErr)
	}
}

func TestSpokenTurn(t *testing.T) {
	f := newFixture(t)

	reply, audio, err := f.orch.SpokenTurn(context.Background(), uuid.New(), "read me a poem")
	if err != nil {
		t.Fatalf("SpokenTurn() error: %v", err)
	}
	if reply != "model reply" {
		t.Errorf("reply = %q, want %q", reply, "model reply")
	}
	if string(audio) != "wav-bytes" {
		t.Errorf("audio = %q, want wav-bytes", audio)
	}
	if f.syn.got != "model reply" {
		t.Errorf("synthesized text = %q, want %q", f.syn.got, "model reply")
	}

	if f.st.appended[0].kind != store.KindUserText || f.st.appended[1].kind != store.KindAIAudio {
		t.Errorf("appended kinds = %v/%v, want USER_TEXT/AI_AUDIO",
			f.st.appended[0].kind, f.st.appended[1].kind)
	}
}

func TestSpokenTurn_SynthesisFailure(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*fakeSynthesizer)
	}{
		{"error", func(s *fakeSynthesizer) { s.err = errors.New("tts down") }},
		{"empty audio", func(s *fakeSynthesizer) { s.audio = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tt.setup(f.syn)

			reply, audio, err := f.orch.SpokenTurn(context.Background(), uuid.New(), "hi")
			if !errors.Is(err, ErrSynthesisFailed) {
				t.Fatalf("SpokenTurn() = %v, want ErrSynthesisFailed", err)
			}
			if reply != "model reply" {
				t.Errorf("reply = %q, want text reply despite synthesis failure", reply)
			}
			if audio != nil {
				t.Errorf("audio = %q, want nil", audio)
			}
			if len(f.st.appended) != 2 {
				t.Errorf("appended %d messages, want 2 (turn persisted before synthesis)", len(f.st.appended))
			}
		})
	}
}

func TestVoiceTurn(t *testing.T) {
	f := newFixture(t)

	transcript, reply, audio, err := f.orch.VoiceTurn(context.Background(), uuid.New(), []byte("mic-input"), "clip.wav")
	if err != nil {
		t.Fatalf("VoiceTurn() error: %v", err)
	}
	if transcript != "spoken words" {
		t.Errorf("transcript = %q, want %q", transcript, "spoken words")
	}
	if reply != "model reply" {
		t.Errorf("reply = %q, want %q", reply, "model reply")
	}
	if string(audio) != "wav-bytes" {
		t.Errorf("audio = %q, want wav-bytes", audio)
	}

	if f.st.appended[0].kind != store.KindUserAudio || f.st.appended[0].content != "spoken words" {
		t.Errorf("inbound message = %+v, want USER_AUDIO transcript", f.st.appended[0])
	}
	if f.st.appended[1].kind != store.KindAIAudio {
		t.Errorf("outbound kind = %v, want AI_AUDIO", f.st.appended[1].kind)
	}
}

func TestVoiceTurn_NoSpeech(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*fakeRecognizer)
	}{
		{"empty transcript", func(r *fakeRecognizer) { r.transcript = "" }},
		{"whitespace-only transcript", func(r *fakeRecognizer) { r.transcript = "   \n\t" }},
		{"transcription error", func(r *fakeRecognizer) { r.err = errors.New("stt down") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tt.setup(f.rec)

			_, _, _, err := f.orch.VoiceTurn(context.Background(), uuid.New(), []byte("x"), "")
			if !errors.Is(err, ErrNoSpeechDetected) {
				t.Fatalf("VoiceTurn() = %v, want ErrNoSpeechDetected", err)
			}
			if len(f.st.appended) != 0 {
				t.Errorf("appended %d messages, want 0", len(f.st.appended))
			}
		})
	}
}

func TestOneShot(t *testing.T) {
	f := newFixture(t)

	reply, err := f.orch.OneShot(context.Background(), "quick question")
	if err != nil {
		t.Fatalf("OneShot() error: %v", err)
	}
	if reply != "model reply" {
		t.Errorf("reply = %q, want %q", reply, "model reply")
	}
	if f.model.got != "BARE[quick question]" {
		t.Errorf("model prompt = %q, want bare prompt", f.model.got)
	}
	if len(f.st.appended) != 0 {
		t.Errorf("appended %d messages, want 0 (one-shot persists nothing)", len(f.st.appended))
	}
}

func TestOneShot_ModelOutageFallsBack(t *testing.T) {
	f := newFixture(t)
	f.model.err = errors.New("connection refused")

	reply, err := f.orch.OneShot(context.Background(), "hi")
	if err != nil {
		t.Fatalf("OneShot() error: %v", err)
	}
	if reply != fallbackReply {
		t.Errorf("reply = %q, want fallback", reply)
	}
}

func TestVoiceTurn_UnknownSession(t *testing.T) {
	f := newFixture(t)
	f.st.missing = true

	_, _, _, err := f.orch.VoiceTurn(context.Background(), uuid.New(), []byte("x"), "")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("VoiceTurn() = %v, want store.ErrNotFound", err)
	}
}
