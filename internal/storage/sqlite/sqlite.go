// Package sqlite stores the document as a single row with a version column.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"wedding-site/internal/models"
	"wedding-site/internal/storage"
)

const schema = `CREATE TABLE IF NOT EXISTS documents (
	id         TEXT PRIMARY KEY,
	body       TEXT NOT NULL,
	version    INTEGER NOT NULL,
	updated_at TIMESTAMP NOT NULL
)`

const upsert = `INSERT INTO documents (id, body, version, updated_at) VALUES (?, ?, 1, ?)
ON CONFLICT(id) DO UPDATE SET
	body = excluded.body,
	version = documents.version + 1,
	updated_at = excluded.updated_at`

// Open opens (or creates) the database at path. Transactions take the
// write lock up front so concurrent appends queue instead of failing.
func Open(path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000&_txlock=immediate&_journal_mode=WAL", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Store implements storage.Store on one row of the documents table.
type Store struct {
	db *sql.DB
	id string
}

var _ storage.Store = (*Store)(nil)

// New opens path and prepares the schema.
func New(path, documentID string) (*Store, error) {
	db, err := Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	s, err := NewWithDB(db, documentID)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewWithDB wires an existing connection.
func NewWithDB(db *sql.DB, documentID string) (*Store, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &Store{db: db, id: documentID}, nil
}

// Read returns the stored document.
func (s *Store) Read(ctx context.Context) (models.Document, error) {
	return s.read(ctx, s.db)
}

// Version returns how many times the document has been written.
func (s *Store) Version(ctx context.Context) (int64, error) {
	var v int64
	err := s.db.QueryRowContext(ctx, `SELECT version FROM documents WHERE id = ?`, s.id).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return v, err
}

// Write replaces the whole document.
func (s *Store) Write(ctx context.Context, cfg *models.Configuration) error {
	doc, err := models.DocumentOf(cfg)
	if err != nil {
		return err
	}
	return s.store(ctx, s.db, doc)
}

// Patch replaces the fields of p inside one transaction.
func (s *Store) Patch(ctx context.Context, p models.Patch) error {
	return s.update(ctx, func(doc models.Document) (models.Document, error) {
		return storage.PatchDocument(doc, p)
	})
}

// Append adds value to the array field inside one transaction.
func (s *Store) Append(ctx context.Context, field string, value any) error {
	return s.update(ctx, func(doc models.Document) (models.Document, error) {
		return storage.AppendDocument(doc, field, value)
	})
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) read(ctx context.Context, q querier) (models.Document, error) {
	var body string
	err := q.QueryRowContext(ctx, `SELECT body FROM documents WHERE id = ?`, s.id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	var doc models.Document
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal document: %w", err)
	}
	return doc, nil
}

func (s *Store) store(ctx context.Context, q querier, doc models.Document) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}
	if _, err := q.ExecContext(ctx, upsert, s.id, string(body), time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to write document: %w", err)
	}
	return nil
}

func (s *Store) update(ctx context.Context, fn func(models.Document) (models.Document, error)) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	doc, err := s.read(ctx, tx)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return err
	}
	doc, err = fn(doc)
	if err != nil {
		return err
	}
	if err := s.store(ctx, tx, doc); err != nil {
		return err
	}
	return tx.Commit()
}
