package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"wedding-site/internal/models"
)

// FileStore keeps the document as a JSON file. With an empty path it lives
// in memory only, which is what tests and the console's offline mode use.
type FileStore struct {
	mu   sync.RWMutex
	doc  models.Document
	file string
}

// NewFileStore creates a new file store, loading the file if it exists.
func NewFileStore(filePath string) (*FileStore, error) {
	s := &FileStore{file: filePath}
	if filePath == "" {
		return s, nil
	}

	if _, err := os.Stat(filePath); err == nil {
		if err := s.load(); err != nil {
			return nil, fmt.Errorf("failed to load storage: %w", err)
		}
	}
	return s, nil
}

// NewMemoryStore is a FileStore that never touches disk.
func NewMemoryStore() *FileStore {
	s, _ := NewFileStore("")
	return s
}

// Read returns the stored document.
func (s *FileStore) Read(ctx context.Context) (models.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.doc == nil {
		return nil, ErrNotFound
	}
	return copyDocument(s.doc), nil
}

// Write replaces the whole document.
func (s *FileStore) Write(ctx context.Context, cfg *models.Configuration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	doc, err := models.DocumentOf(cfg)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.replace(doc)
}

// Patch replaces the fields of p.
func (s *FileStore) Patch(ctx context.Context, p models.Patch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := PatchDocument(s.doc, p)
	if err != nil {
		return err
	}
	return s.replace(doc)
}

// Append adds value to the array field.
func (s *FileStore) Append(ctx context.Context, field string, value any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := AppendDocument(s.doc, field, value)
	if err != nil {
		return err
	}
	return s.replace(doc)
}

// Close is a no-op; every mutation is already on disk.
func (s *FileStore) Close() error { return nil }

// replace swaps in doc once it is persisted. Callers hold mu.
func (s *FileStore) replace(doc models.Document) error {
	if err := s.save(doc); err != nil {
		return err
	}
	s.doc = doc
	return nil
}

func (s *FileStore) save(doc models.Document) error {
	if s.file == "" {
		return nil
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	dir := filepath.Dir(s.file)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp := s.file + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return os.Rename(tmp, s.file)
}

func (s *FileStore) load() error {
	data, err := os.ReadFile(s.file)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	if len(data) == 0 {
		s.doc = nil
		return nil
	}

	var doc models.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to unmarshal data: %w", err)
	}
	s.doc = doc
	return nil
}
