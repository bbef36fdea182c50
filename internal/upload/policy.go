package upload

import "time"

const (
	// DefaultMaxAttempts is one original attempt plus two retries.
	DefaultMaxAttempts = 3
	DefaultBaseBackoff = time.Second
	DefaultFallbackURL = "https://picsum.photos/800/600"
)

// RetryPolicy decides how many times an upload is tried, which source image
// each attempt uses and how long to wait between attempts.
//
// Every retry switches to FallbackURL no matter why the previous attempt
// failed.
type RetryPolicy struct {
	MaxAttempts int
	FallbackURL string
	BaseBackoff time.Duration
}

// DefaultRetryPolicy returns the 3 attempt, linear 1s/2s backoff policy.
func DefaultRetryPolicy(fallbackURL string) RetryPolicy {
	if fallbackURL == "" {
		fallbackURL = DefaultFallbackURL
	}
	return RetryPolicy{
		MaxAttempts: DefaultMaxAttempts,
		FallbackURL: fallbackURL,
		BaseBackoff: DefaultBaseBackoff,
	}
}

// Attempts is the total number of attempts, never less than one.
func (p RetryPolicy) Attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// URLForAttempt returns the source image for a zero-based attempt index.
func (p RetryPolicy) URLForAttempt(attempt int, original string) string {
	if attempt == 0 || p.FallbackURL == "" {
		return original
	}
	return p.FallbackURL
}

// Backoff is the wait after the given zero-based attempt fails.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	return p.BaseBackoff * time.Duration(attempt+1)
}
