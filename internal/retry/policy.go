// Package retry holds the pure retry/backoff decisions applied to
// steady-state data calls. It answers "is this failure retryable" and "how
// long to wait", never "how many attempts so far" — the caller owns the
// attempt counter and the MaxRetries ceiling.
package retry

import (
	"errors"
	"math/rand"
	"time"
)

const (
	// maxDelay caps the exponential curve.
	maxDelay = 10 * time.Second
	// maxJitter is the upper bound of the random term added to every delay
	// so concurrently failing clients do not retry in lockstep.
	maxJitter = time.Second
)

// StatusCoder is implemented by failures that carry an HTTP response status.
// Failures that do not implement it are treated as transport faults where no
// response was received at all.
type StatusCoder interface {
	StatusCode() int
}

// Policy is an immutable retry configuration.
type Policy struct {
	MaxRetries           int
	BaseDelay            time.Duration
	RetryableStatusCodes map[int]bool
}

// Default returns the policy the portals ship with: up to three retries,
// one-second base delay, and the transient status set.
func Default() Policy {
	return Policy{
		MaxRetries: 3,
		BaseDelay:  time.Second,
		RetryableStatusCodes: map[int]bool{
			408: true,
			429: true,
			500: true,
			502: true,
			503: true,
			504: true,
		},
	}
}

// ShouldRetry reports whether the failure is worth retrying. A failure
// without a response status is a transient network fault and always
// retryable; a failure with a status is retryable only when the status is in
// the configured set. 401/403/404/422 and friends stay non-retryable so auth
// and validation failures surface immediately.
func (p Policy) ShouldRetry(err error) bool {
	if err == nil {
		return false
	}
	var sc StatusCoder
	if !errors.As(err, &sc) {
		return true
	}
	return p.RetryableStatusCodes[sc.StatusCode()]
}

// Delay returns how long to wait before retry number attempt (zero-based):
// min(BaseDelay * 2^attempt, 10s) plus up to one second of jitter.
func (p Policy) Delay(attempt int) time.Duration {
	d := p.backoff(attempt)
	return d + time.Duration(rand.Int63n(int64(maxJitter)))
}

// backoff is the deterministic part of Delay, split out for testability.
func (p Policy) backoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := p.BaseDelay
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= maxDelay {
			return maxDelay
		}
	}
	if d > maxDelay {
		return maxDelay
	}
	return d
}
