package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Metadata keys maintained by the store and the lifecycle manager.
const (
	metaKeyLastWrite = "last_write_time"

	// MetaKeyLastCleanup is stamped after each retention cleanup run.
	MetaKeyLastCleanup = "last_cleanup_time"
	// MetaKeyLastReembed is stamped after each re-embedding sweep.
	MetaKeyLastReembed = "last_reembed_time"
)

// Meta is a small key-value accessor over the metadata table, used for
// operational stamps such as last-write and last-cleanup times.
type Meta struct {
	db *DB
}

// Get returns the value for key, or "" if the key is absent
func (m *Meta) Get(key string) (string, error) {
	var value string
	err := m.db.sqlDB.QueryRow("SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", fmt.Errorf("failed to get metadata %s: %w: %w", key, ErrUnavailable, err)
	}
	return value, nil
}

// Set writes or replaces the value for key
func (m *Meta) Set(key, value string) error {
	_, err := m.db.sqlDB.Exec(`
		INSERT OR REPLACE INTO metadata (key, value, updated_at) VALUES (?, ?, ?)
	`, key, value, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to set metadata %s: %w: %w", key, ErrUnavailable, err)
	}
	return nil
}

// GetTime returns the value for key parsed as a timestamp, or the zero
// time if the key is absent or unparseable.
func (m *Meta) GetTime(key string) (time.Time, error) {
	value, err := m.Get(key)
	if err != nil {
		return time.Time{}, err
	}
	if value == "" {
		return time.Time{}, nil
	}
	ts, err := parseTimeString(value)
	if err != nil {
		return time.Time{}, nil
	}
	return ts, nil
}

// setMetaTx writes a metadata key inside an existing transaction
func setMetaTx(tx *sql.Tx, key, value string) error {
	_, err := tx.Exec(`
		INSERT OR REPLACE INTO metadata (key, value, updated_at) VALUES (?, ?, ?)
	`, key, value, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to set metadata %s: %w: %w", key, ErrUnavailable, err)
	}
	return nil
}
