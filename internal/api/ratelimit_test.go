package api

import (
	"testing"
	"time"
)

func TestIPLimiter(t *testing.T) {
	l := newIPLimiter(1, 2)

	for i := range 2 {
		if ok, _ := l.allow("10.0.0.1"); !ok {
			t.Fatalf("request %d denied within burst", i+1)
		}
	}

	ok, wait := l.allow("10.0.0.1")
	if ok {
		t.Fatal("request allowed after burst exhausted")
	}
	if wait <= 0 {
		t.Errorf("wait = %v, want positive refill delay", wait)
	}

	// Other IPs keep their own bucket.
	if ok, _ := l.allow("10.0.0.2"); !ok {
		t.Error("fresh IP denied")
	}
}

func TestRetryAfterSeconds(t *testing.T) {
	tests := []struct {
		wait time.Duration
		want int
	}{
		{0, 1},
		{200 * time.Millisecond, 1},
		{time.Second, 1},
		{1500 * time.Millisecond, 2},
		{3 * time.Second, 3},
	}

	for _, tt := range tests {
		if got := retryAfterSeconds(tt.wait); got != tt.want {
			t.Errorf("retryAfterSeconds(%v) = %d, want %d", tt.wait, got, tt.want)
		}
	}
}
