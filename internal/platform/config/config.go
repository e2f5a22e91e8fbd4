package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Client captures everything the session core needs to talk to the registry
// backend.
type Client struct {
	APIBaseURL        string
	RealtimeURL       string
	StorageDir        string
	RequestTimeout    time.Duration
	ReconnectInterval time.Duration
	RetryMaxRetries   int
	RetryBaseDelay    time.Duration
}

// Server captures stub backend configuration.
type Server struct {
	Addr          string
	JWTSigningKey string
}

// ClientFromEnv builds a Client config from environment variables so main
// stays lean.
func ClientFromEnv() Client {
	cfg := Client{
		APIBaseURL:        envString("PORTAL_API_URL", "http://localhost:8080"),
		RealtimeURL:       envString("PORTAL_WS_URL", "ws://localhost:8080/ws/notifications/"),
		StorageDir:        os.Getenv("PORTAL_STATE_DIR"),
		RequestTimeout:    envDuration("PORTAL_REQUEST_TIMEOUT", 15*time.Second),
		ReconnectInterval: envDuration("PORTAL_WS_RECONNECT_INTERVAL", 5*time.Second),
		RetryMaxRetries:   envInt("PORTAL_RETRY_MAX", 3),
		RetryBaseDelay:    envDuration("PORTAL_RETRY_BASE_DELAY", time.Second),
	}
	if cfg.StorageDir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			cfg.StorageDir = filepath.Join(home, ".portalcore")
		}
	}
	return cfg
}

// ServerFromEnv builds a Server config for the stub backend.
func ServerFromEnv() Server {
	key := os.Getenv("PORTAL_JWT_SIGNING_KEY")
	if key == "" {
		// Development default; real deployments must override.
		key = "dev-secret-key-change-in-production"
	}
	return Server{
		Addr:          envString("PORTAL_STUB_ADDR", ":8080"),
		JWTSigningKey: key,
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
