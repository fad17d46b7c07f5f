package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(&Config{
		Host:              srv.URL,
		RecognizeTimeout:  5 * time.Second,
		SynthesizeTimeout: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return c
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *Config
		wantErr error
	}{
		{"nil config", nil, ErrConfigNil},
		{"missing host", &Config{RecognizeTimeout: time.Second, SynthesizeTimeout: time.Second}, ErrNoHost},
		{"zero timeout", &Config{Host: "http://127.0.0.1:5000"}, ErrBadTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.cfg); !errors.Is(err, tt.wantErr) {
				t.Errorf("New() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestTranscribe(t *testing.T) {
	wantAudio := []byte("RIFF-fake-wav")

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/stt" {
			t.Errorf("path = %q, want /stt", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("method = %q, want POST", r.Method)
		}

		file, header, err := r.FormFile("audio")
		if err != nil {
			t.Fatalf("FormFile(audio) error: %v", err)
		}
		defer file.Close()

		if header.Filename != "clip.wav" {
			t.Errorf("filename = %q, want clip.wav", header.Filename)
		}
		got, _ := io.ReadAll(file)
		if !bytes.Equal(got, wantAudio) {
			t.Errorf("uploaded audio = %q, want %q", got, wantAudio)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"text": "turn on the lights"})
	}))

	got, err := c.Transcribe(context.Background(), wantAudio, "clip.wav")
	if err != nil {
		t.Fatalf("Transcribe() error: %v", err)
	}
	if got != "turn on the lights" {
		t.Errorf("Transcribe() = %q, want %q", got, "turn on the lights")
	}
}

func TestTranscribe_NoSpeech(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"text": ""})
	}))

	got, err := c.Transcribe(context.Background(), []byte("silence"), "")
	if err != nil {
		t.Fatalf("Transcribe() error: %v", err)
	}
	if got != "" {
		t.Errorf("Transcribe() = %q, want empty", got)
	}
}

func TestTranscribe_SidecarError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	if _, err := c.Transcribe(context.Background(), []byte("x"), ""); !errors.Is(err, ErrSidecar) {
		t.Errorf("Transcribe() = %v, want ErrSidecar", err)
	}
}

func TestSynthesize(t *testing.T) {
	wantWAV := []byte("RIFF....WAVEfmt ")

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tts" {
			t.Errorf("path = %q, want /tts", r.URL.Path)
		}

		var req struct {
			Text string `json:"text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if req.Text != "hello world" {
			t.Errorf("text = %q, want %q", req.Text, "hello world")
		}

		w.Header().Set("Content-Type", "audio/wav")
		w.Write(wantWAV)
	}))

	got, err := c.Synthesize(context.Background(), "hello world")
	if err != nil {
		t.Fatalf("Synthesize() error: %v", err)
	}
	if !bytes.Equal(got, wantWAV) {
		t.Errorf("Synthesize() = %q, want %q", got, wantWAV)
	}
}

func TestSynthesize_SidecarError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	if _, err := c.Synthesize(context.Background(), "x"); !errors.Is(err, ErrSidecar) {
		t.Errorf("Synthesize() = %v, want ErrSidecar", err)
	}
}

func TestSidecarUnreachable(t *testing.T) {
	c, err := New(&Config{
		Host:              "http://127.0.0.1:1",
		RecognizeTimeout:  500 * time.Millisecond,
		SynthesizeTimeout: 500 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	if _, err := c.Transcribe(context.Background(), []byte("x"), ""); !errors.Is(err, ErrSidecar) {
		t.Errorf("Transcribe() = %v, want ErrSidecar", err)
	}
	if _, err := c.Synthesize(context.Background(), "x"); !errors.Is(err, ErrSidecar) {
		t.Errorf("Synthesize() = %v, want ErrSidecar", err)
	}
}
