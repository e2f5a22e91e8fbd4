// Package device produces and persists the stable per-browser-instance label
// used for trust and audit. The label is generated once and never overwritten
// while present: a given profile reports the same device name across reloads
// until its storage is cleared.
package device

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mssola/useragent"

	"portalcore/internal/storage"
	"portalcore/pkg/sentinel"
)

// Environment is derived once from the user agent and immutable afterwards.
type Environment struct {
	Type    string // desktop, mobile, tablet, bot
	OS      string
	Browser string
}

// Device is the identity record exposed to the trust UI.
type Device struct {
	Type     string    `json:"type"`
	OS       string    `json:"os"`
	Browser  string    `json:"browser"`
	Name     string    `json:"name"`
	Trusted  bool      `json:"trusted"`
	LastUsed time.Time `json:"lastUsed"`
}

// EnvironmentFromUserAgent inspects a user-agent string. Unknown agents still
// produce usable tokens so label generation never fails.
func EnvironmentFromUserAgent(ua string) Environment {
	parsed := useragent.New(ua)

	deviceType := "desktop"
	if parsed.Mobile() {
		deviceType = "mobile"
	}
	if parsed.Bot() {
		deviceType = "bot"
	}

	os := parsed.OSInfo().Name
	if os == "" {
		os = "unknown"
	}
	browser, _ := parsed.Browser()
	if browser == "" {
		browser = "unknown"
	}
	return Environment{
		Type:    deviceType,
		OS:      labelToken(os),
		Browser: labelToken(browser),
	}
}

// labelToken flattens a vendor string into a label-safe token.
func labelToken(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.ReplaceAll(s, " ", "")
}

// Store owns the device identity for this run. Safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	durable storage.Store
	env     Environment
	logger  *slog.Logger
	now     func() time.Time

	current *Device
}

func NewStore(durable storage.Store, env Environment, logger *slog.Logger) *Store {
	return &Store{durable: durable, env: env, logger: logger, now: time.Now}
}

// Identify returns the device record, generating and persisting the label on
// first observation. Idempotent: repeated calls in the same storage context
// return the same name, and an existing persisted label is never regenerated.
func (s *Store) Identify() Device {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil {
		s.current.LastUsed = s.now()
		return *s.current
	}

	name, err := s.durable.Get(storage.KeyDevice)
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			s.logger.Warn("device label unavailable, regenerating in memory", "error", err)
		}
		name = fmt.Sprintf("%s-%s-%d", s.env.Type, s.env.OS, s.now().UnixMilli())
		if err := s.durable.Set(storage.KeyDevice, name); err != nil {
			// Without durable storage the label lives for this run only.
			s.logger.Warn("failed to persist device label", "error", err)
		}
	}

	s.current = &Device{
		Type:     s.env.Type,
		OS:       s.env.OS,
		Browser:  s.env.Browser,
		Name:     name,
		LastUsed: s.now(),
	}
	return *s.current
}

// Trust marks the named device trusted. Advisory only: it never affects the
// authentication verdict and is only ever called after an explicit user
// confirmation, never automatically.
func (s *Store) Trust(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil || s.current.Name != name {
		return sentinel.ErrNotFound
	}
	s.current.Trusted = true
	return nil
}

// Current returns the identified device, if any.
func (s *Store) Current() (Device, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return Device{}, false
	}
	return *s.current, true
}
