package localstore

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"

	dbpkg "pingboard/internal/db"
)

// Well-known keys. These names are part of the persisted format and must
// stay stable across releases.
const (
	KeyUsers         = "users"
	KeyCurrentUser   = "currentUser"
	KeyLoginAttempts = "loginAttempts"
	KeyDarkMode      = "darkMode"
	KeyDevices       = "rustping_devices"
)

// Store is a durable key/value store for client-side state: accounts, the
// session descriptor, login attempt records, the device cache and UI
// preferences. Values are strings, usually JSON.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the store at path. Pass ":memory:" for tests.
func Open(path string) (*Store, error) {
	db, err := dbpkg.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open local store: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS local_state (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create local_state table: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the raw value for key, or "" when the key is absent.
func (s *Store) Get(key string) string {
	var value string
	err := s.db.QueryRow("SELECT value FROM local_state WHERE key = ?", key).Scan(&value)
	if err != nil {
		return ""
	}
	return value
}

// Put stores value under key, replacing any previous value.
func (s *Store) Put(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO local_state (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value      = excluded.value,
			updated_at = CURRENT_TIMESTAMP`,
		key, value)
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting an absent key is not an error.
func (s *Store) Delete(key string) error {
	_, err := s.db.Exec("DELETE FROM local_state WHERE key = ?", key)
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// GetJSON unmarshals the value stored under key into v and reports whether a
// usable value was found. Corrupt values are discarded so a bad write can
// never wedge the client; the caller proceeds with its zero value.
func (s *Store) GetJSON(key string, v interface{}) bool {
	raw := s.Get(key)
	if raw == "" {
		return false
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		log.Printf("⚠️  Discarding corrupt state for %q: %v", key, err)
		s.Delete(key)
		return false
	}
	return true
}

// PutJSON marshals v and stores it under key.
func (s *Store) PutJSON(key string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return s.Put(key, string(raw))
}
