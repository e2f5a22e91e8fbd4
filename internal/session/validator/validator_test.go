package validator

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/suite"

	"portalcore/internal/domain"
	"portalcore/internal/platform/logger"
	"portalcore/internal/session"
	"portalcore/internal/storage"
	dErrors "portalcore/pkg/domain-errors"
)

type fakeFetcher struct {
	calls   atomic.Int64
	user    *domain.User
	err     error
	started chan struct{}
	release chan struct{}
}

func (f *fakeFetcher) FetchProfile(ctx context.Context, token string) (*domain.User, error) {
	f.calls.Add(1)
	if f.started != nil {
		close(f.started)
	}
	if f.release != nil {
		<-f.release
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.user, nil
}

type ValidatorSuite struct {
	suite.Suite
	durable *storage.MemoryStore
	store   *session.Store
}

func (s *ValidatorSuite) SetupTest() {
	s.durable = storage.NewMemoryStore()
	s.store = session.NewStore(s.durable, logger.NewNop())
}

func TestValidatorSuite(t *testing.T) {
	suite.Run(t, new(ValidatorSuite))
}

func (s *ValidatorSuite) newValidator(f *fakeFetcher) *Validator {
	return New(s.store, f, logger.NewNop(), nil)
}

// seedToken mimics a previous run: token persisted, then rehydrated so the
// authenticated flag is forced off.
func (s *ValidatorSuite) seedToken(token string) {
	s.store.SetTokens(token, "refresh-"+token)
	s.store = session.NewStore(s.durable, logger.NewNop())
	s.store.Hydrate()
	s.Require().False(s.store.Authenticated())
}

func (s *ValidatorSuite) TestNoTokenResolvesWithoutNetworkCall() {
	f := &fakeFetcher{}
	v := s.newValidator(f)

	res := v.Validate(context.Background())

	s.Equal(StatusUnauthenticated, res.Status)
	s.False(res.IsAuthenticated)
	s.Empty(res.ValidationError)
	s.Zero(f.calls.Load(), "must not hit the backend without a token")
}

func (s *ValidatorSuite) TestValidTokenPromotesSession() {
	s.seedToken("abc")
	f := &fakeFetcher{user: &domain.User{ID: 1, Role: domain.RoleCitizen}}
	v := s.newValidator(f)

	res := v.Validate(context.Background())

	s.Equal(StatusAuthenticated, res.Status)
	s.True(res.IsAuthenticated)
	s.Empty(res.ValidationError)

	st := s.store.Snapshot()
	s.Require().NotNil(st.User)
	s.Equal(int64(1), st.User.ID)
	s.Equal(domain.RoleCitizen, st.User.Role)
}

func (s *ValidatorSuite) TestExpiredTokenClearsSession() {
	s.seedToken("expired")
	f := &fakeFetcher{err: dErrors.New(dErrors.CodeUnauthorized, "session rejected by backend")}
	v := s.newValidator(f)

	res := v.Validate(context.Background())

	s.Equal(StatusUnauthenticated, res.Status)
	s.False(res.IsAuthenticated)
	s.Equal("Session expired. Please sign in again.", res.ValidationError)
	s.Empty(s.store.AccessToken())

	_, err := s.durable.Get(storage.KeyAccessToken)
	s.Error(err, "persisted token must be cleared")
}

func (s *ValidatorSuite) TestMalformedResponseFailsDistinctly() {
	s.seedToken("abc")
	f := &fakeFetcher{err: dErrors.New(dErrors.CodeBadResponse, "response envelope missing success payload")}
	v := s.newValidator(f)

	res := v.Validate(context.Background())

	s.Equal(StatusFailed, res.Status)
	s.False(res.IsAuthenticated)
	s.Contains(res.ValidationError, "unexpected response")
	s.NotContains(res.ValidationError, "expired", "malformed must be distinguishable from expired")
	s.Empty(s.store.AccessToken())
}

func (s *ValidatorSuite) TestNetworkFaultResolvesUnauthenticated() {
	s.seedToken("abc")
	f := &fakeFetcher{err: dErrors.Wrap(errors.New("connection refused"), dErrors.CodeUnavailable, "profile request failed")}
	v := s.newValidator(f)

	res := v.Validate(context.Background())

	s.Equal(StatusUnauthenticated, res.Status)
	s.Equal("Could not verify your session. Please sign in again.", res.ValidationError)
	s.Empty(s.store.AccessToken())
	s.Equal(int64(1), f.calls.Load(), "the gating check never retries")
}

func (s *ValidatorSuite) TestUnauthenticatedWhileValidating() {
	s.seedToken("abc")
	f := &fakeFetcher{
		user:    &domain.User{ID: 1, Role: domain.RoleCitizen},
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	v := s.newValidator(f)

	done := make(chan Result, 1)
	go func() { done <- v.Validate(context.Background()) }()
	<-f.started

	mid := v.Result()
	s.True(mid.IsValidating)
	s.False(mid.IsAuthenticated, "token presence must not read as authenticated mid-flight")

	close(f.release)
	res := <-done
	s.True(res.IsAuthenticated)
}

func (s *ValidatorSuite) TestConcurrentValidateCoalesces() {
	s.seedToken("abc")
	f := &fakeFetcher{
		user:    &domain.User{ID: 1, Role: domain.RoleCitizen},
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	v := s.newValidator(f)

	done := make(chan Result, 1)
	go func() { done <- v.Validate(context.Background()) }()
	<-f.started

	second := v.Validate(context.Background())
	s.True(second.IsValidating)

	close(f.release)
	<-done
	s.Equal(int64(1), f.calls.Load(), "in-flight run must absorb concurrent calls")
}
