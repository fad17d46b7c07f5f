package llm

import (
	"errors"
	"strings"
)

var (
	// ErrUnavailable indicates the model backend could not produce a
	// reply: connection failures, timeouts, or server errors. Callers
	// are expected to degrade gracefully.
	ErrUnavailable = errors.New("llm: model unavailable")

	// ErrMalformed indicates the backend answered but the output was
	// unusable: an empty completion or a structural failure that does
	// not look like an outage.
	ErrMalformed = errors.New("llm: malformed model output")
)

// unavailablePatterns groups error substrings that indicate the backend
// is unreachable or failing. Matched case-insensitively against
// err.Error().
//
// NOTE: This uses string matching because Genkit and LLM provider SDKs
// do not expose typed/sentinel errors for transient failures.
// Re-evaluate if Genkit adds structured error types in a future version.
var unavailablePatterns = []string{
	"connection refused",
	"connection reset",
	"no such host",
	"timeout",
	"deadline exceeded",
	"temporary",
	"unavailable",
	"rate limit",
	"429",
	"500",
	"502",
	"503",
	"504",
}

// classify maps a raw generation error onto the package's sentinel
// errors so callers can branch with errors.Is. Outage signatures become
// ErrUnavailable; everything else is ErrMalformed.
func classify(err error) error {
	if err == nil {
		return nil
	}
	lower := strings.ToLower(err.Error())
	for _, pattern := range unavailablePatterns {
		if strings.Contains(lower, pattern) {
			return errors.Join(ErrUnavailable, err)
		}
	}
	return errors.Join(ErrMalformed, err)
}
