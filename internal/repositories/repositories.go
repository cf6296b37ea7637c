package repositories

import (
	"database/sql"
	"fmt"

	"github.com/desertthunder/hifix/internal/models"
)

// NextSequence atomically increments and returns the next sequence number for the given table.
//
// Sequence numbers provide human-readable ordering for entities (e.g., playlist #15).
// They are NOT exposed in CLI output but used internally for sorting and debugging.
func NextSequence(db *sql.DB, table string) (int, error) {
	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	sequenceTable := table + "_sequence"

	_, err = tx.Exec(fmt.Sprintf("UPDATE %s SET value = value + 1 WHERE id = 1", sequenceTable))
	if err != nil {
		return 0, fmt.Errorf("failed to increment sequence: %w", err)
	}

	var sequence int
	err = tx.QueryRow(fmt.Sprintf("SELECT value FROM %s WHERE id = 1", sequenceTable)).Scan(&sequence)
	if err != nil {
		return 0, fmt.Errorf("failed to get sequence value: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit sequence transaction: %w", err)
	}

	return sequence, nil
}

// trackColumns is the column list shared by every table that stores a track.
const trackColumns = "track_id, title, artist_id, artist_name, album_id, album_title, album_cover, duration"

type scanner interface {
	Scan(dest ...any) error
}

// scanTrack reads trackColumns followed by any extra columns.
func scanTrack(s scanner, extra ...any) (models.Track, error) {
	var t models.Track
	dest := []any{&t.ID, &t.Title, &t.Artist.ID, &t.Artist.Name, &t.Album.ID, &t.Album.Title, &t.Album.Cover, &t.Duration}
	if err := s.Scan(append(dest, extra...)...); err != nil {
		return models.Track{}, err
	}
	return t, nil
}

func trackArgs(t models.Track) []any {
	return []any{t.ID, t.Title, t.Artist.ID, t.Artist.Name, t.Album.ID, t.Album.Title, t.Album.Cover, t.Duration}
}
