// Package validator reconciles persisted tokens with the backend's view of
// session validity. It is the only component allowed to promote a cold-loaded
// session to authenticated, and it runs before any portal content renders.
package validator

import (
	"context"
	"log/slog"
	"sync"

	"portalcore/internal/domain"
	"portalcore/internal/platform/metrics"
	"portalcore/internal/session"
	dErrors "portalcore/pkg/domain-errors"
)

// Status enumerates the validator state machine. Every exit path of a
// validation run lands on exactly one terminal status.
type Status int

const (
	// StatusIdle means validation has not started yet.
	StatusIdle Status = iota
	// StatusValidating means the profile fetch is in flight. The session
	// must read as unauthenticated while in this state, even when a stale
	// token is present.
	StatusValidating
	// StatusAuthenticated means the backend confirmed the session.
	StatusAuthenticated
	// StatusUnauthenticated means there is no usable session; tokens have
	// been cleared.
	StatusUnauthenticated
	// StatusFailed means the backend answered with something the client
	// could not trust (malformed envelope). Tokens have been cleared.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusValidating:
		return "validating"
	case StatusAuthenticated:
		return "authenticated"
	case StatusUnauthenticated:
		return "unauthenticated"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// User-facing messages, one per failure class, surfaced once per attempt.
const (
	msgExpired   = "Session expired. Please sign in again."
	msgMalformed = "Received an unexpected response from the server. Please sign in again."
	msgGeneric   = "Could not verify your session. Please sign in again."
)

// ProfileFetcher is the backend call the validator depends on.
type ProfileFetcher interface {
	FetchProfile(ctx context.Context, accessToken string) (*domain.User, error)
}

// Result is the resolved verdict exposed to the role router and UI shells.
type Result struct {
	Status          Status
	IsValidating    bool
	IsAuthenticated bool
	ValidationError string
}

// Validator drives the Idle → Validating → terminal transition.
type Validator struct {
	mu       sync.Mutex
	status   Status
	lastErr  string
	store    *session.Store
	profiles ProfileFetcher
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

func New(store *session.Store, profiles ProfileFetcher, logger *slog.Logger, m *metrics.Metrics) *Validator {
	return &Validator{
		status:   StatusIdle,
		store:    store,
		profiles: profiles,
		logger:   logger,
		metrics:  m,
	}
}

// Validate resolves the true authentication status. It issues at most one
// profile request and never retries: a hung or failing check must collapse to
// unauthenticated quickly instead of blocking every portal behind backoff.
//
// Concurrent calls coalesce: a call that arrives while a run is in flight
// returns the in-flight snapshot without issuing a second request.
func (v *Validator) Validate(ctx context.Context) Result {
	v.mu.Lock()
	if v.status == StatusValidating {
		defer v.mu.Unlock()
		return v.resultLocked()
	}
	v.status = StatusValidating
	v.lastErr = ""
	token := v.store.AccessToken()
	v.mu.Unlock()

	// No persisted token: signed out, no network call needed.
	if token == "" {
		return v.finish(StatusUnauthenticated, "", "no_token", false)
	}

	user, err := v.profiles.FetchProfile(ctx, token)
	if err == nil {
		v.store.SetUser(*user)
		v.logger.Info("session validated", "user_id", user.ID, "role", user.Role)
		return v.finish(StatusAuthenticated, "", "authenticated", false)
	}

	switch dErrors.CodeOf(err) {
	case dErrors.CodeUnauthorized:
		v.logger.Info("persisted session rejected by backend", "error", err)
		return v.finish(StatusUnauthenticated, msgExpired, "expired", true)
	case dErrors.CodeBadResponse:
		v.logger.Error("session validation got malformed response", "error", err)
		return v.finish(StatusFailed, msgMalformed, "malformed", true)
	default:
		// Network fault, 5xx, anything else: clear tokens rather than
		// retry forever, since this check gates all rendering. Flagged
		// as a possible usability defect for transient startup faults,
		// but preserved as the contract.
		v.logger.Warn("session validation failed", "error", err)
		return v.finish(StatusUnauthenticated, msgGeneric, "error", true)
	}
}

func (v *Validator) finish(status Status, userMsg, metricResult string, clearTokens bool) Result {
	if clearTokens {
		v.store.Logout()
	}
	if v.metrics != nil {
		v.metrics.ValidationResults.WithLabelValues(metricResult).Inc()
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.status = status
	v.lastErr = userMsg
	return v.resultLocked()
}

// Result returns the current verdict without triggering a run.
func (v *Validator) Result() Result {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.resultLocked()
}

// resultLocked derives the exposed result. IsAuthenticated is read from the
// session store, which stays false until a run actually succeeds — token
// presence is never treated as authentication.
func (v *Validator) resultLocked() Result {
	validating := v.status == StatusValidating
	return Result{
		Status:          v.status,
		IsValidating:    validating,
		IsAuthenticated: !validating && v.store.Authenticated(),
		ValidationError: v.lastErr,
	}
}
