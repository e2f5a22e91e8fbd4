package session

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/suite"

	"portalcore/internal/domain"
	"portalcore/internal/platform/logger"
	"portalcore/internal/storage"
)

type StoreSuite struct {
	suite.Suite
	durable *storage.MemoryStore
	store   *Store
}

func (s *StoreSuite) SetupTest() {
	s.durable = storage.NewMemoryStore()
	s.store = NewStore(s.durable, logger.NewNop())
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}

func (s *StoreSuite) TestSetTokensPersistsAndAuthenticates() {
	s.store.SetTokens("access-1", "refresh-1")

	st := s.store.Snapshot()
	s.True(st.Authenticated)
	s.Equal("access-1", st.AccessToken)
	s.Equal("refresh-1", st.RefreshToken)

	v, err := s.durable.Get(storage.KeyAccessToken)
	s.NoError(err)
	s.Equal("access-1", v)
	v, err = s.durable.Get(storage.KeyRefreshToken)
	s.NoError(err)
	s.Equal("refresh-1", v)
}

func (s *StoreSuite) TestPersistedProjectionOmitsAuthenticatedFlag() {
	s.store.SetTokens("access-1", "refresh-1")
	s.store.SetUser(domain.User{ID: 7, Role: domain.RoleCitizen})

	raw, err := s.durable.Get(storage.KeyAuthState)
	s.Require().NoError(err)

	var projection map[string]any
	s.Require().NoError(json.Unmarshal([]byte(raw), &projection))
	s.Contains(projection, "user")
	s.Contains(projection, "accessToken")
	s.Contains(projection, "refreshToken")
	s.NotContains(projection, "isAuthenticated")
	s.NotContains(projection, "authenticated")
}

func (s *StoreSuite) TestHydrateRecoversTokensButNotAuthentication() {
	s.store.SetTokens("access-1", "refresh-1")
	s.store.SetUser(domain.User{ID: 7, Role: domain.RoleCitizen})

	fresh := NewStore(s.durable, logger.NewNop())
	fresh.Hydrate()

	st := fresh.Snapshot()
	s.False(st.Authenticated, "authenticated must never be trusted from storage")
	s.Equal("access-1", st.AccessToken)
	s.Require().NotNil(st.User)
	s.Equal(int64(7), st.User.ID)
}

func (s *StoreSuite) TestHydrateDiscardsCorruptState() {
	s.Require().NoError(s.durable.Set(storage.KeyAuthState, "{not json"))

	s.store.Hydrate()

	st := s.store.Snapshot()
	s.False(st.Authenticated)
	s.Empty(st.AccessToken)
	s.Nil(st.User)
}

func (s *StoreSuite) TestUpdateUserMergesPatch() {
	s.store.SetUser(domain.User{ID: 7, Email: "old@example.org", Role: domain.RoleCitizen})

	email := "new@example.org"
	s.store.UpdateUser(domain.UserPatch{Email: &email})

	st := s.store.Snapshot()
	s.Require().NotNil(st.User)
	s.Equal("new@example.org", st.User.Email)
	s.Equal(domain.RoleCitizen, st.User.Role, "unpatched fields survive")
}

func (s *StoreSuite) TestUpdateUserWithoutUserIsNoop() {
	email := "ghost@example.org"
	s.store.UpdateUser(domain.UserPatch{Email: &email})

	s.Nil(s.store.Snapshot().User)
	_, err := s.durable.Get(storage.KeyAuthState)
	s.Error(err, "no projection should be written for a dropped patch")
}

func (s *StoreSuite) TestLogoutClearsMemoryAndStorage() {
	s.store.SetTokens("access-1", "refresh-1")
	s.store.SetUser(domain.User{ID: 7, Role: domain.RoleCitizen})

	s.store.Logout()

	st := s.store.Snapshot()
	s.False(st.Authenticated)
	s.Empty(st.AccessToken)
	s.Empty(st.RefreshToken)
	s.Nil(st.User)

	for _, key := range []string{storage.KeyAuthState, storage.KeyAccessToken, storage.KeyRefreshToken} {
		_, err := s.durable.Get(key)
		s.Error(err, "key %q should be gone", key)
	}

	// A rehydration after logout must not resurrect the previous user.
	fresh := NewStore(s.durable, logger.NewNop())
	fresh.Hydrate()
	s.Nil(fresh.Snapshot().User)
	s.Empty(fresh.Snapshot().AccessToken)
}
