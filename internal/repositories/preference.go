package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// PreferenceRepository is the flat key-value preference store.
//
// Get satisfies the playback and queue preference interfaces, which treat the store as always
// available; read failures are reported as a missing key.
type PreferenceRepository struct {
	db *sql.DB
}

// NewPreferenceRepository creates a new PreferenceRepository with the given database connection
func NewPreferenceRepository(db *sql.DB) *PreferenceRepository {
	return &PreferenceRepository{db: db}
}

// Get returns the value stored under key.
func (r *PreferenceRepository) Get(key string) (string, bool) {
	v, err := r.Lookup(key)
	if err != nil {
		return "", false
	}
	return v, true
}

// Lookup returns the value under key, or [sql.ErrNoRows] when it is not set.
func (r *PreferenceRepository) Lookup(key string) (string, error) {
	var value string
	err := r.db.QueryRow("SELECT value FROM preferences WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", err
	}
	if err != nil {
		return "", fmt.Errorf("failed to read preference %s: %w", key, err)
	}
	return value, nil
}

// Set inserts or replaces the value under key.
func (r *PreferenceRepository) Set(key, value string) error {
	query := `
		INSERT INTO preferences (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
	if _, err := r.db.Exec(query, key, value, time.Now()); err != nil {
		return fmt.Errorf("failed to write preference %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Removing a missing key is not an error.
func (r *PreferenceRepository) Delete(key string) error {
	if _, err := r.db.Exec("DELETE FROM preferences WHERE key = ?", key); err != nil {
		return fmt.Errorf("failed to delete preference %s: %w", key, err)
	}
	return nil
}

// All returns every stored preference.
func (r *PreferenceRepository) All() (map[string]string, error) {
	rows, err := r.db.Query("SELECT key, value FROM preferences ORDER BY key")
	if err != nil {
		return nil, fmt.Errorf("failed to query preferences: %w", err)
	}
	defer rows.Close()

	prefs := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("failed to scan preference: %w", err)
		}
		prefs[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return prefs, nil
}
