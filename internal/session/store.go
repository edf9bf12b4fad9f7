package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// TokenPair is the credential pair issued by the backend. The two tokens are
// always stored and cleared together.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Valid reports whether the pair carries both tokens.
func (p TokenPair) Valid() bool {
	return p.AccessToken != "" && p.RefreshToken != ""
}

// Store persists the credential pair between runs.
type Store interface {
	Load() (TokenPair, error)
	Save(TokenPair) error
	Clear() error
}

// FileStore keeps the credential pair in a JSON file readable only by the
// owning user.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore builds a FileStore rooted at path, creating parent directories.
func NewFileStore(path string) *FileStore {
	_ = os.MkdirAll(filepath.Dir(path), 0o700)
	return &FileStore{path: path}
}

// Load reads the stored pair. A missing file yields an empty pair, not an error.
func (s *FileStore) Load() (TokenPair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return TokenPair{}, nil
		}
		return TokenPair{}, fmt.Errorf("read token store: %w", err)
	}

	var pair TokenPair
	if err := json.Unmarshal(data, &pair); err != nil {
		return TokenPair{}, fmt.Errorf("parse token store: %w", err)
	}
	return pair, nil
}

// Save writes the pair atomically.
func (s *FileStore) Save(pair TokenPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(pair, "", "  ")
	if err != nil {
		return fmt.Errorf("encode token store: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write token store: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace token store: %w", err)
	}
	return nil
}

// Clear removes the stored pair. Clearing an already empty store is a no-op.
func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("clear token store: %w", err)
	}
	return nil
}

// MemoryStore is a Store for tests and embedders that do not want persistence.
type MemoryStore struct {
	mu   sync.Mutex
	pair TokenPair
}

// NewMemoryStore builds an empty in-memory store.
func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

// Load returns the held pair.
func (s *MemoryStore) Load() (TokenPair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pair, nil
}

// Save replaces the held pair.
func (s *MemoryStore) Save(pair TokenPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pair = pair
	return nil
}

// Clear drops the held pair.
func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pair = TokenPair{}
	return nil
}
