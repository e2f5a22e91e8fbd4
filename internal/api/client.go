// Package api is the HTTP client for the registry backend. It speaks the
// backend's success envelope, translates failures into coded domain errors,
// and applies the retry policy to steady-state data calls only — the one-shot
// session validation path goes through FetchProfile, which never retries.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"portalcore/internal/domain"
	"portalcore/internal/platform/metrics"
	"portalcore/internal/retry"
	dErrors "portalcore/pkg/domain-errors"
)

// StatusError reports a non-2xx backend response. It satisfies
// retry.StatusCoder so the policy can classify it.
type StatusError struct {
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend returned status %d", e.Status)
}

func (e *StatusError) StatusCode() int {
	return e.Status
}

// envelope is the backend's success wrapper. A 2xx body that does not carry
// success=true and a data payload is treated as a failure, never partially
// trusted.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

// LoginResult is the payload of a successful login call.
type LoginResult struct {
	Access  string      `json:"access"`
	Refresh string      `json:"refresh"`
	User    domain.User `json:"user"`
}

// Client talks to the registry backend. Tokens are opaque strings; the client
// never inspects their contents.
type Client struct {
	baseURL string
	http    *http.Client
	policy  retry.Policy
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewClient(baseURL string, timeout time.Duration, policy retry.Policy, logger *slog.Logger, m *metrics.Metrics) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		policy:  policy,
		logger:  logger,
		metrics: m,
	}
}

// FetchProfile performs the gating profile call with the given access token.
// Exactly one request, no retries: this call decides whether anything renders
// at all, and must resolve quickly rather than block the UI behind backoff.
func (c *Client) FetchProfile(ctx context.Context, accessToken string) (*domain.User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/users/me/", nil)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to build profile request")
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "profile request failed")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, dErrors.Wrap(&StatusError{Status: resp.StatusCode}, dErrors.CodeUnauthorized, "session rejected by backend")
	case resp.StatusCode == http.StatusForbidden:
		return nil, dErrors.Wrap(&StatusError{Status: resp.StatusCode}, dErrors.CodeRestricted, "account access restricted")
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, dErrors.Wrap(&StatusError{Status: resp.StatusCode}, dErrors.CodeUnavailable, "profile request failed")
	}

	var user domain.User
	if err := decodeEnvelope(resp.Body, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Login exchanges credentials for tokens and a profile. The device name is
// forwarded so the backend can record which browser instance signed in.
func (c *Client) Login(ctx context.Context, email, password, deviceName string) (*LoginResult, error) {
	body, err := json.Marshal(map[string]string{
		"email":    email,
		"password": password,
		"device":   deviceName,
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode login request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/login/", bytes.NewReader(body))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to build login request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "login request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, dErrors.Wrap(&StatusError{Status: resp.StatusCode}, dErrors.CodeUnauthorized, "invalid credentials")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, dErrors.Wrap(&StatusError{Status: resp.StatusCode}, dErrors.CodeUnavailable, "login request failed")
	}

	var result LoginResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeBadResponse, "malformed login response")
	}
	if result.Access == "" || result.Refresh == "" {
		return nil, dErrors.New(dErrors.CodeBadResponse, "login response missing tokens")
	}
	return &result, nil
}

// GetJSON fetches an enveloped resource with retries governed by the retry
// policy. This is the steady-state data path used by the portals once the
// session is resolved; it is never used for the gating validation call.
func (c *Client) GetJSON(ctx context.Context, path, accessToken string, out any) error {
	var lastErr error
	for attempt := 0; ; attempt++ {
		lastErr = c.getOnce(ctx, path, accessToken, out)
		if lastErr == nil {
			return nil
		}
		if attempt >= c.policy.MaxRetries || !c.policy.ShouldRetry(lastErr) {
			return lastErr
		}
		delay := c.policy.Delay(attempt)
		c.logger.Debug("retrying data call", "path", path, "attempt", attempt, "delay", delay)
		if c.metrics != nil {
			c.metrics.DataCallRetries.Inc()
		}
		select {
		case <-ctx.Done():
			return dErrors.Wrap(ctx.Err(), dErrors.CodeUnavailable, "data call cancelled")
		case <-time.After(delay):
		}
	}
}

func (c *Client) getOnce(ctx context.Context, path, accessToken string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to build request")
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "request failed")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return dErrors.Wrap(&StatusError{Status: resp.StatusCode}, dErrors.CodeUnauthorized, "session rejected by backend")
	case resp.StatusCode == http.StatusForbidden:
		return dErrors.Wrap(&StatusError{Status: resp.StatusCode}, dErrors.CodeRestricted, "account access restricted")
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return dErrors.Wrap(&StatusError{Status: resp.StatusCode}, dErrors.CodeUnavailable, "request failed")
	}

	return decodeEnvelope(resp.Body, out)
}

// decodeEnvelope unpacks the {success, data} wrapper into out. Any shape
// mismatch is a bad-response error; a 200 with a broken body must not be
// mistaken for a success.
func decodeEnvelope(r io.Reader, out any) error {
	var env envelope
	if err := json.NewDecoder(r).Decode(&env); err != nil {
		return dErrors.Wrap(err, dErrors.CodeBadResponse, "malformed response envelope")
	}
	if !env.Success || len(env.Data) == 0 {
		return dErrors.New(dErrors.CodeBadResponse, "response envelope missing success payload")
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return dErrors.Wrap(err, dErrors.CodeBadResponse, "malformed response payload")
	}
	return nil
}

// IsStatus reports whether err carries the given HTTP status.
func IsStatus(err error, status int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Status == status
}
