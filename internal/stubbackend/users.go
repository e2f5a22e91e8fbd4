package stubbackend

import (
	"sync"

	"golang.org/x/crypto/bcrypt"

	"portalcore/internal/domain"
	"portalcore/pkg/sentinel"
)

// account pairs a demo profile with its bcrypt password hash.
type account struct {
	user domain.User
	hash []byte
}

// UserStore holds the stub's demo accounts in memory.
type UserStore struct {
	mu      sync.RWMutex
	byEmail map[string]*account
	// restrict marks accounts awaiting regulator approval; they get 403.
	restrict map[int64]bool
}

// NewUserStore seeds one account per role. Passwords follow the pattern
// <role>-password; this server exists for development and tests only.
func NewUserStore() (*UserStore, error) {
	seed := []struct {
		user     domain.User
		password string
		pending  bool
	}{
		{domain.User{ID: 1, Email: "citizen@example.org", FirstName: "Ana", LastName: "Kovac", Role: domain.RoleCitizen}, "citizen-password", false},
		{domain.User{ID: 2, Email: "operator@example.org", FirstName: "Marko", LastName: "Horvat", Role: domain.RoleOperator}, "operator-password", false},
		{domain.User{ID: 3, Email: "pending-operator@example.org", FirstName: "Iva", LastName: "Novak", Role: domain.RoleOperator}, "operator-password", true},
		{domain.User{ID: 4, Email: "grak@example.org", FirstName: "Petra", LastName: "Babic", Role: domain.RoleGrak}, "grak-password", false},
		{domain.User{ID: 5, Email: "admin@example.org", FirstName: "Luka", LastName: "Juric", Role: domain.RoleAdmin}, "admin-password", false},
	}

	store := &UserStore{
		byEmail:  make(map[string]*account),
		restrict: make(map[int64]bool),
	}
	for _, s := range seed {
		hash, err := bcrypt.GenerateFromPassword([]byte(s.password), bcrypt.MinCost)
		if err != nil {
			return nil, err
		}
		store.byEmail[s.user.Email] = &account{user: s.user, hash: hash}
		if s.pending {
			store.restrict[s.user.ID] = true
		}
	}
	return store, nil
}

// Authenticate checks credentials and returns the profile.
func (s *UserStore) Authenticate(email, password string) (domain.User, error) {
	s.mu.RLock()
	acc, ok := s.byEmail[email]
	s.mu.RUnlock()
	if !ok {
		return domain.User{}, sentinel.ErrNotFound
	}
	if err := bcrypt.CompareHashAndPassword(acc.hash, []byte(password)); err != nil {
		return domain.User{}, sentinel.ErrNotFound
	}
	return acc.user, nil
}

// FindByID returns the profile for an ID.
func (s *UserStore) FindByID(id int64) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, acc := range s.byEmail {
		if acc.user.ID == id {
			return acc.user, nil
		}
	}
	return domain.User{}, sentinel.ErrNotFound
}

// Restricted reports whether the account is awaiting approval; the API
// answers 403 for these instead of 401.
func (s *UserStore) Restricted(id int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.restrict[id]
}
