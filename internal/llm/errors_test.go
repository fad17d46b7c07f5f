package llm

import (
	"errors"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"connection refused", errors.New("dial tcp 127.0.0.1:11434: connect: connection refused"), ErrUnavailable},
		{"timeout", errors.New("Post \"http://localhost:11434/api/chat\": context deadline exceeded"), ErrUnavailable},
		{"server error", errors.New("unexpected status code 503 Service Unavailable"), ErrUnavailable},
		{"rate limited", errors.New("429 Too Many Requests"), ErrUnavailable},
		{"structural failure", errors.New("model returned garbage"), ErrMalformed},
		{"bad request", errors.New("400 Bad Request: invalid model"), ErrMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(tt.err)
			if !errors.Is(got, tt.want) {
				t.Errorf("classify(%v) = %v, want %v", tt.err, got, tt.want)
			}
			if !errors.Is(got, tt.err) {
				t.Errorf("classify(%v) does not wrap the original error", tt.err)
			}
		})
	}

	if got := classify(nil); got != nil {
		t.Errorf("classify(nil) = %v, want nil", got)
	}
}

func TestClassify_Disjoint(t *testing.T) {
	if err := classify(errors.New("connection refused")); errors.Is(err, ErrMalformed) {
		t.Errorf("outage classified as ErrMalformed: %v", err)
	}
	if err := classify(errors.New("model returned garbage")); errors.Is(err, ErrUnavailable) {
		t.Errorf("structural failure classified as ErrUnavailable: %v", err)
	}
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(nil); !errors.Is(err, ErrConfigNil) {
		t.Errorf("New(nil) = %v, want ErrConfigNil", err)
	}
	if _, err := New(&Config{}); !errors.Is(err, ErrNoGenkit) {
		t.Errorf("New(empty) = %v, want ErrNoGenkit", err)
	}
}
