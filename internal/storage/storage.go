// Package storage provides the durable key-value store backing the session
// core. It mirrors the contract the portals get from browser storage: string
// keys, string values, and no guarantee that persistence is available at all.
package storage

// Well-known keys. Only these are ever written by the core; the session store
// owns the token keys and the device store owns the device key.
const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
	KeyAuthState    = "auth-storage"
	KeyDevice       = "currentDevice"
)

// Store is a durable string key-value store.
//
// Implementations must be safe for concurrent use. Write failures are
// surfaced but callers are expected to continue with in-memory state; the
// store is a cache of last resort, never the source of truth.
type Store interface {
	// Get returns the value for key, or sentinel.ErrNotFound.
	Get(key string) (string, error)
	// Set persists the value for key, overwriting any previous value.
	Set(key, value string) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(key string) error
}
