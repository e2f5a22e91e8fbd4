package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"portalcore/pkg/sentinel"
)

const stateFileName = "portal-state.json"

// FileStore persists values as a single JSON document on disk. The whole map
// is rewritten on every mutation; the data set is a handful of short strings,
// so simplicity wins over incremental writes.
type FileStore struct {
	mu     sync.Mutex
	path   string
	values map[string]string
}

// NewFileStore loads or creates the state file under dir.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	s := &FileStore{
		path:   filepath.Join(dir, stateFileName),
		values: make(map[string]string),
	}
	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state file: %w", err)
	}
	if err := json.Unmarshal(raw, &s.values); err != nil {
		// A corrupt state file is discarded rather than blocking startup;
		// the session validator will treat the visitor as signed out.
		s.values = make(map[string]string)
	}
	return s, nil
}

func (s *FileStore) Get(key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.values[key]; ok {
		return v, nil
	}
	return "", sentinel.ErrNotFound
}

func (s *FileStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return s.flushLocked()
}

func (s *FileStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return s.flushLocked()
}

// flushLocked writes through a temp file and renames so a crash mid-write
// never leaves a truncated state file behind.
func (s *FileStore) flushLocked() error {
	raw, err := json.MarshalIndent(s.values, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}

// Open returns a file-backed store rooted at dir, or an in-memory store when
// durable storage cannot be used. The second return reports whether the store
// is durable. Degrading silently matches how the portals behave in browsers
// with storage disabled: everything works for the page lifetime, nothing
// survives a reload.
func Open(dir string) (Store, bool) {
	fs, err := NewFileStore(dir)
	if err != nil {
		return NewMemoryStore(), false
	}
	return fs, true
}
