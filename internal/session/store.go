// Package session owns credential state for the current run. The Store is
// the single mutable owner of tokens and the user profile; every other
// component reads snapshots and funnels mutation through the operations here,
// so the in-memory view and the persisted projection never diverge.
package session

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"portalcore/internal/domain"
	"portalcore/internal/storage"
	"portalcore/pkg/sentinel"
)

// State is a read-only snapshot of the session.
//
// Authenticated is derived, never persisted: it is true only after a
// successful round-trip to the backend in the current run. A snapshot taken
// right after hydration always reports false, even when tokens were
// recovered.
type State struct {
	User          *domain.User
	AccessToken   string
	RefreshToken  string
	Authenticated bool
}

// persistedState is the projection written to durable storage. It must never
// grow an authenticated flag; trusting that flag from storage is exactly the
// bug this layout prevents.
type persistedState struct {
	User         *domain.User `json:"user"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
}

// Store holds session state and writes the persisted projection through to
// durable storage. Safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	logger  *slog.Logger
	durable storage.Store

	user          *domain.User
	accessToken   string
	refreshToken  string
	authenticated bool
}

func NewStore(durable storage.Store, logger *slog.Logger) *Store {
	return &Store{durable: durable, logger: logger}
}

// Hydrate recovers tokens and the cached profile from durable storage.
// Authenticated is forced to false before anything else: recovered tokens
// prove a past login, not a current one, and only the validator may promote
// the session.
func (s *Store) Hydrate() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.authenticated = false

	raw, err := s.durable.Get(storage.KeyAuthState)
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			s.logger.Warn("session state unavailable", "error", err)
		}
		return
	}
	var ps persistedState
	if err := json.Unmarshal([]byte(raw), &ps); err != nil {
		s.logger.Warn("discarding corrupt session state", "error", err)
		return
	}
	s.user = ps.User
	s.accessToken = ps.AccessToken
	s.refreshToken = ps.RefreshToken
}

// SetTokens stores both tokens and marks the session authenticated. Called on
// a successful login, where the backend has just vouched for the credentials.
func (s *Store) SetTokens(access, refresh string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken = access
	s.refreshToken = refresh
	s.authenticated = true
	s.persistLocked()
}

// SetUser replaces the profile wholesale and marks the session authenticated.
func (s *Store) SetUser(user domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := user
	s.user = &u
	s.authenticated = true
	s.persistLocked()
}

// UpdateUser merges the patch into the current profile. A patch with no
// profile to land on is dropped; it never conjures a user into existence.
func (s *Store) UpdateUser(patch domain.UserPatch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return
	}
	patch.Apply(s.user)
	s.persistLocked()
}

// Logout clears tokens, profile, and the authenticated flag, and removes
// every persisted key so nothing of the previous user survives a reload.
func (s *Store) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = nil
	s.accessToken = ""
	s.refreshToken = ""
	s.authenticated = false
	for _, key := range []string{storage.KeyAuthState, storage.KeyAccessToken, storage.KeyRefreshToken} {
		if err := s.durable.Delete(key); err != nil {
			s.logger.Warn("failed to clear persisted session key", "key", key, "error", err)
		}
	}
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := State{
		AccessToken:   s.accessToken,
		RefreshToken:  s.refreshToken,
		Authenticated: s.authenticated,
	}
	if s.user != nil {
		u := *s.user
		st.User = &u
	}
	return st
}

// AccessToken returns the current access token, empty when signed out.
func (s *Store) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

// Authenticated reports whether the backend has confirmed this session in the
// current run.
func (s *Store) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.authenticated
}

// persistLocked writes the projection and the raw token keys. Failures are
// logged and swallowed: in-memory state stays authoritative for this run, and
// a host without durable storage just loses persistence, not functionality.
func (s *Store) persistLocked() {
	raw, err := json.Marshal(persistedState{
		User:         s.user,
		AccessToken:  s.accessToken,
		RefreshToken: s.refreshToken,
	})
	if err != nil {
		s.logger.Warn("failed to encode session state", "error", err)
		return
	}
	writes := map[string]string{
		storage.KeyAuthState:    string(raw),
		storage.KeyAccessToken:  s.accessToken,
		storage.KeyRefreshToken: s.refreshToken,
	}
	for key, value := range writes {
		if err := s.durable.Set(key, value); err != nil {
			s.logger.Warn("failed to persist session key", "key", key, "error", err)
		}
	}
}
