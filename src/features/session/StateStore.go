// Durable key-value store for session state, backed by sqlite so a
// crash or a supervisor relaunch can recover the last intent.

package session

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Keys used by the session state machine.
const (
	KeyLastPreset      = "last_active_preset"
	KeyWasRunning      = "was_running"
	KeyWasDisconnected = "was_disconnected"
)

// StateStore is the durable key-value store the state machine persists
// to on every activation and deactivation. It is written by the state
// machine only; no concurrent writers are assumed.
type StateStore struct {
	db *sql.DB
}

// OpenStateStore opens (creating if necessary) the state database.
func OpenStateStore(dbPath string) (*StateStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open state database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping state database: %w", err)
	}

	store := &StateStore{db: db}
	if err := store.createTable(); err != nil {
		return nil, fmt.Errorf("failed to create state table: %w", err)
	}
	return store, nil
}

func (s *StateStore) createTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS session_state (
		key   TEXT NOT NULL,
		value TEXT NOT NULL,
		PRIMARY KEY (key)
	);
	`
	_, err := s.db.Exec(query)
	return err
}

// GetString returns the stored value for key, or "" when absent.
func (s *StateStore) GetString(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM session_state WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read state key %q: %w", key, err)
	}
	return value, nil
}

// SetString stores value under key.
func (s *StateStore) SetString(key, value string) error {
	query := `
	INSERT INTO session_state (key, value) VALUES (?, ?)
	ON CONFLICT (key) DO UPDATE SET value = excluded.value
	`
	if _, err := s.db.Exec(query, key, value); err != nil {
		return fmt.Errorf("failed to write state key %q: %w", key, err)
	}
	return nil
}

// GetBool returns the stored boolean for key, false when absent.
func (s *StateStore) GetBool(key string) (bool, error) {
	value, err := s.GetString(key)
	if err != nil {
		return false, err
	}
	return value == "1", nil
}

// SetBool stores a boolean under key.
func (s *StateStore) SetBool(key string, value bool) error {
	str := "0"
	if value {
		str = "1"
	}
	return s.SetString(key, str)
}

// RemoveValue deletes key from the store.
func (s *StateStore) RemoveValue(key string) error {
	if _, err := s.db.Exec(`DELETE FROM session_state WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to remove state key %q: %w", key, err)
	}
	return nil
}

// Close closes the underlying database.
func (s *StateStore) Close() error {
	return s.db.Close()
}
