package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/hifix/internal/models"
	"github.com/desertthunder/hifix/internal/shared"
)

var _ models.Repository[*models.PersistedPlaylist] = (*PlaylistRepository)(nil)

// PlaylistRepository implements models.Repository[*models.PersistedPlaylist] for local playlists.
//
// Playlists are soft deleted; their tracks are kept in insertion order by position.
type PlaylistRepository struct {
	db *sql.DB
}

// NewPlaylistRepository creates a new PlaylistRepository with the given database connection
func NewPlaylistRepository(db *sql.DB) *PlaylistRepository {
	return &PlaylistRepository{db: db}
}

const playlistSelect = `
	SELECT p.id, p.sequence, p.name, p.description, p.created_at, p.updated_at, p.deleted_at,
		(SELECT COUNT(*) FROM playlist_tracks pt WHERE pt.playlist_id = p.id)
	FROM playlists p
`

// Create inserts a new playlist into the database with generated ID and sequence
func (r *PlaylistRepository) Create(playlist *models.PersistedPlaylist) error {
	if err := playlist.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "playlists")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()

	query := `
		INSERT INTO playlists (id, sequence, name, description, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.Exec(query, id, sequence, playlist.Name(), playlist.Description(), playlist.CreatedAt(), playlist.UpdatedAt())
	if err != nil {
		return fmt.Errorf("failed to insert playlist: %w", err)
	}

	playlist.SetID(id)
	playlist.SetSequence(sequence)
	return nil
}

// Get retrieves a playlist by ID, excluding soft-deleted playlists
func (r *PlaylistRepository) Get(id string) (*models.PersistedPlaylist, error) {
	return r.scanOne(r.db.QueryRow(playlistSelect+" WHERE p.id = ? AND p.deleted_at IS NULL", id), id)
}

// GetByName retrieves the oldest live playlist with the given name, case-insensitively
func (r *PlaylistRepository) GetByName(name string) (*models.PersistedPlaylist, error) {
	query := playlistSelect + " WHERE p.name = ? COLLATE NOCASE AND p.deleted_at IS NULL ORDER BY p.sequence LIMIT 1"
	return r.scanOne(r.db.QueryRow(query, strings.TrimSpace(name)), name)
}

// Update modifies an existing playlist in the database
func (r *PlaylistRepository) Update(playlist *models.PersistedPlaylist) error {
	if err := playlist.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	query := `
		UPDATE playlists
		SET name = ?, description = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`
	result, err := r.db.Exec(query, playlist.Name(), playlist.Description(), now, playlist.ID())
	if err != nil {
		return fmt.Errorf("failed to update playlist: %w", err)
	}
	if err := expectRow(result, playlist.ID()); err != nil {
		return err
	}

	playlist.SetUpdatedAt(now)
	return nil
}

// Delete soft-deletes a playlist by ID
func (r *PlaylistRepository) Delete(id string) error {
	result, err := r.db.Exec("UPDATE playlists SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL", time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete playlist: %w", err)
	}
	return expectRow(result, id)
}

// List retrieves live playlists ordered by sequence.
//
// Supported criteria: "name" (substring match).
func (r *PlaylistRepository) List(criteria map[string]any) ([]*models.PersistedPlaylist, error) {
	query := playlistSelect + " WHERE p.deleted_at IS NULL"
	var args []any

	if name, ok := criteria["name"].(string); ok && name != "" {
		query += " AND p.name LIKE ?"
		args = append(args, "%"+name+"%")
	}
	query += " ORDER BY p.sequence"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlists: %w", err)
	}
	defer rows.Close()

	var playlists []*models.PersistedPlaylist
	for rows.Next() {
		p, err := scanPlaylist(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan playlist: %w", err)
		}
		playlists = append(playlists, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return playlists, nil
}

// AddTracks appends tracks to the playlist. Tracks already present are skipped.
// It returns the number of tracks added.
func (r *PlaylistRepository) AddTracks(playlistID string, tracks []models.Track) (int, error) {
	if _, err := r.Get(playlistID); err != nil {
		return 0, err
	}

	tx, err := r.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var position int
	err = tx.QueryRow("SELECT COALESCE(MAX(position), -1) + 1 FROM playlist_tracks WHERE playlist_id = ?", playlistID).Scan(&position)
	if err != nil {
		return 0, fmt.Errorf("failed to get next position: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT OR IGNORE INTO playlist_tracks (playlist_id, position, ` + trackColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	added := 0
	for _, t := range tracks {
		if t.ID == "" {
			return 0, fmt.Errorf("%w: track without id", shared.ErrInvalidArgument)
		}
		result, err := stmt.Exec(append([]any{playlistID, position}, trackArgs(t)...)...)
		if err != nil {
			return 0, fmt.Errorf("failed to insert track %s: %w", t.ID, err)
		}
		if n, _ := result.RowsAffected(); n > 0 {
			added++
			position++
		}
	}

	if _, err := tx.Exec("UPDATE playlists SET updated_at = ? WHERE id = ?", time.Now(), playlistID); err != nil {
		return 0, fmt.Errorf("failed to touch playlist: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit tracks: %w", err)
	}
	return added, nil
}

// SaveTracks appends tracks to the live playlist called name, creating it with
// description when none exists. It returns the playlist and the number of tracks added.
func (r *PlaylistRepository) SaveTracks(name, description string, tracks []models.Track) (*models.PersistedPlaylist, int, error) {
	p, err := r.GetByName(name)
	if errors.Is(err, shared.ErrPlaylistNotFound) {
		p = models.NewPersistedPlaylist(name, description)
		err = r.Create(p)
	}
	if err != nil {
		return nil, 0, err
	}

	added, err := r.AddTracks(p.ID(), tracks)
	if err != nil {
		return nil, 0, err
	}
	return p, added, nil
}

// RemoveTrack removes a track from the playlist.
func (r *PlaylistRepository) RemoveTrack(playlistID, trackID string) error {
	result, err := r.db.Exec("DELETE FROM playlist_tracks WHERE playlist_id = ? AND track_id = ?", playlistID, trackID)
	if err != nil {
		return fmt.Errorf("failed to remove track: %w", err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	} else if n == 0 {
		return fmt.Errorf("%w: %s", shared.ErrTrackNotFound, trackID)
	}
	return nil
}

// Tracks returns the playlist's tracks in order.
func (r *PlaylistRepository) Tracks(playlistID string) ([]models.Track, error) {
	query := "SELECT " + trackColumns + " FROM playlist_tracks WHERE playlist_id = ? ORDER BY position"

	rows, err := r.db.Query(query, playlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlist tracks: %w", err)
	}
	defer rows.Close()

	var tracks []models.Track
	for rows.Next() {
		t, err := scanTrack(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan playlist track: %w", err)
		}
		tracks = append(tracks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return tracks, nil
}

// Export returns the playlist with all of its tracks.
func (r *PlaylistRepository) Export(playlistID string) (*models.PlaylistExport, error) {
	p, err := r.Get(playlistID)
	if err != nil {
		return nil, err
	}
	tracks, err := r.Tracks(playlistID)
	if err != nil {
		return nil, err
	}
	return &models.PlaylistExport{Playlist: p.DTO(), Tracks: tracks}, nil
}

func (r *PlaylistRepository) scanOne(row *sql.Row, key string) (*models.PersistedPlaylist, error) {
	p, err := scanPlaylist(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan playlist: %w", err)
	}
	return p, nil
}

func scanPlaylist(s scanner) (*models.PersistedPlaylist, error) {
	var (
		id, name, description string
		sequence, count       int
		createdAt, updatedAt  time.Time
		deletedAt             sql.NullTime
	)
	if err := s.Scan(&id, &sequence, &name, &description, &createdAt, &updatedAt, &deletedAt, &count); err != nil {
		return nil, err
	}

	p := models.NewPersistedPlaylist(name, description)
	p.SetID(id)
	p.SetSequence(sequence)
	p.SetTrackCount(count)
	p.SetCreatedAt(createdAt)
	p.SetUpdatedAt(updatedAt)
	if deletedAt.Valid {
		p.SetDeletedAt(&deletedAt.Time)
	}
	return p, nil
}

func expectRow(result sql.Result, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
	}
	return nil
}
