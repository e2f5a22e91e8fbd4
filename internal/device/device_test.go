package device

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"

	"portalcore/internal/platform/logger"
	"portalcore/internal/storage"
)

// DeviceStoreSuite covers label stability and user-agent derivation; both are
// pure contracts the trust UI depends on.
type DeviceStoreSuite struct {
	suite.Suite
	durable *storage.MemoryStore
	store   *Store
}

func (s *DeviceStoreSuite) SetupTest() {
	s.durable = storage.NewMemoryStore()
	env := Environment{Type: "desktop", OS: "macosx", Browser: "chrome"}
	s.store = NewStore(s.durable, env, logger.NewNop())
}

func TestDeviceStoreSuite(t *testing.T) {
	suite.Run(t, new(DeviceStoreSuite))
}

func (s *DeviceStoreSuite) TestIdentifyIsIdempotent() {
	first := s.store.Identify()
	second := s.store.Identify()

	s.Equal(first.Name, second.Name)
	s.True(strings.HasPrefix(first.Name, "desktop-macosx-"))
}

func (s *DeviceStoreSuite) TestLabelSurvivesReload() {
	first := s.store.Identify()

	reloaded := NewStore(s.durable, Environment{Type: "desktop", OS: "macosx", Browser: "chrome"}, logger.NewNop())
	second := reloaded.Identify()

	s.Equal(first.Name, second.Name, "persisted label must never be regenerated")
}

func (s *DeviceStoreSuite) TestExistingLabelNeverOverwritten() {
	s.Require().NoError(s.durable.Set(storage.KeyDevice, "desktop-linux-12345"))

	d := s.store.Identify()

	s.Equal("desktop-linux-12345", d.Name)
	v, err := s.durable.Get(storage.KeyDevice)
	s.NoError(err)
	s.Equal("desktop-linux-12345", v)
}

func (s *DeviceStoreSuite) TestTrustIsExplicitAndScoped() {
	d := s.store.Identify()
	s.False(d.Trusted, "trust is never set automatically")

	s.Error(s.store.Trust("some-other-device"))

	s.NoError(s.store.Trust(d.Name))
	current, ok := s.store.Current()
	s.True(ok)
	s.True(current.Trusted)
}

func (s *DeviceStoreSuite) TestDegradesWithoutDurableStorage() {
	store := NewStore(failingStore{}, Environment{Type: "mobile", OS: "android", Browser: "firefox"}, logger.NewNop())

	first := store.Identify()
	second := store.Identify()

	s.NotEmpty(first.Name)
	s.Equal(first.Name, second.Name, "in-memory label stays stable for the run")
}

func (s *DeviceStoreSuite) TestEnvironmentFromUserAgent() {
	s.Run("chrome on mac is desktop", func() {
		env := EnvironmentFromUserAgent("Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
		s.Equal("desktop", env.Type)
		s.Equal("chrome", env.Browser)
		s.NotEqual("unknown", env.OS)
	})

	s.Run("safari on iphone is mobile", func() {
		env := EnvironmentFromUserAgent("Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1")
		s.Equal("mobile", env.Type)
	})

	s.Run("empty user agent still yields tokens", func() {
		env := EnvironmentFromUserAgent("")
		s.NotEmpty(env.Type)
		s.Equal("unknown", env.OS)
		s.Equal("unknown", env.Browser)
	})

	s.Run("tokens contain no spaces", func() {
		env := EnvironmentFromUserAgent("Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
		s.NotContains(env.OS, " ")
		s.NotContains(env.Browser, " ")
	})
}

type failingStore struct{}

func (failingStore) Get(string) (string, error) { return "", storageUnavailable }
func (failingStore) Set(string, string) error   { return storageUnavailable }
func (failingStore) Delete(string) error        { return storageUnavailable }

var storageUnavailable = errorString("storage unavailable")

type errorString string

func (e errorString) Error() string { return string(e) }
