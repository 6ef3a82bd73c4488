package broadcast

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// TokenStore persists the last sync token a client has seen. It must
// survive a reload, otherwise every client reloads forever.
type TokenStore interface {
	Load() (string, error)
	Store(token string) error
}

// MemoryTokenStore keeps the token in memory. Useful for tests only.
type MemoryTokenStore struct {
	mu    sync.Mutex
	token string
}

func (m *MemoryTokenStore) Load() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

func (m *MemoryTokenStore) Store(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

// FileTokenStore keeps the token in a small JSON file.
type FileTokenStore struct {
	mu   sync.Mutex
	path string
}

// NewFileTokenStore creates a token store backed by path.
func NewFileTokenStore(path string) *FileTokenStore {
	return &FileTokenStore{path: path}
}

type tokenFile struct {
	LastSyncID string `json:"lastSyncId"`
}

// Load returns the stored token, or "" when nothing was stored yet.
func (f *FileTokenStore) Load() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read token file: %w", err)
	}
	var tf tokenFile
	if err := json.Unmarshal(data, &tf); err != nil {
		return "", fmt.Errorf("failed to unmarshal token file: %w", err)
	}
	return tf.LastSyncID, nil
}

// Store writes token, creating the parent directory if needed.
func (f *FileTokenStore) Store(token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := json.Marshal(tokenFile{LastSyncID: token})
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	return os.WriteFile(f.path, data, 0644)
}
