// ABOUTME: Durable key-to-document storage backing the event collection
// ABOUTME: SQLite-backed string key/value table with WAL mode at an XDG path
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/adrg/xdg"
	_ "github.com/mattn/go-sqlite3"
)

// LocalStorage persists whole JSON documents under string keys. Writes
// replace the previous value; the last writer wins, there is no merge.
type LocalStorage interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
	Close() error
}

// DefaultStoragePath returns the XDG-compliant path for the local database.
func DefaultStoragePath() string {
	return filepath.Join(xdg.DataHome, "weekendly", "weekendly.db")
}

type sqliteStorage struct {
	db *sql.DB
}

// OpenStorage opens (creating if needed) the local storage database.
func OpenStorage(path string) (LocalStorage, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open storage database: %w", err)
	}

	// Single connection avoids database locked errors
	db.SetMaxOpenConns(1)

	schema := `CREATE TABLE IF NOT EXISTS local_storage (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize storage schema: %w", err)
	}

	return &sqliteStorage{db: db}, nil
}

func (s *sqliteStorage) Get(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM local_storage WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read key %q: %w", key, err)
	}
	return value, true, nil
}

func (s *sqliteStorage) Set(key, value string) error {
	_, err := s.db.Exec(
		"INSERT INTO local_storage (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	if err != nil {
		return fmt.Errorf("failed to write key %q: %w", key, err)
	}
	return nil
}

func (s *sqliteStorage) Close() error {
	return s.db.Close()
}

// MemoryStorage is an ephemeral LocalStorage. State lives only for the
// session, mirroring a cleared browser storage.
type MemoryStorage struct {
	mu     sync.Mutex
	values map[string]string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: make(map[string]string)}
}

func (s *MemoryStorage) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.values[key]
	return value, ok, nil
}

func (s *MemoryStorage) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

func (s *MemoryStorage) Close() error { return nil }
