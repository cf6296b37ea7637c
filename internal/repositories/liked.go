package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/hifix/internal/models"
	"github.com/desertthunder/hifix/internal/shared"
)

// LikedTrackRepository stores the user's liked tracks. It implements playback.LikeStore.
type LikedTrackRepository struct {
	db *sql.DB
}

// NewLikedTrackRepository creates a new LikedTrackRepository with the given database connection
func NewLikedTrackRepository(db *sql.DB) *LikedTrackRepository {
	return &LikedTrackRepository{db: db}
}

// Like stores t. Liking an already liked track keeps the original timestamp.
func (r *LikedTrackRepository) Like(t models.Track) error {
	if t.ID == "" || t.Title == "" || t.Artist.Name == "" {
		return fmt.Errorf("%w: liked track needs id, title and artist", shared.ErrInvalidArgument)
	}

	query := `
		INSERT OR IGNORE INTO liked_tracks (` + trackColumns + `, liked_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	if _, err := r.db.Exec(query, append(trackArgs(t), time.Now())...); err != nil {
		return fmt.Errorf("failed to like track: %w", err)
	}
	return nil
}

// Unlike removes id. Unliking a track that is not liked is not an error.
func (r *LikedTrackRepository) Unlike(id string) error {
	if _, err := r.db.Exec("DELETE FROM liked_tracks WHERE track_id = ?", id); err != nil {
		return fmt.Errorf("failed to unlike track: %w", err)
	}
	return nil
}

// IsLiked reports whether id is liked.
func (r *LikedTrackRepository) IsLiked(id string) (bool, error) {
	var liked bool
	err := r.db.QueryRow("SELECT EXISTS(SELECT 1 FROM liked_tracks WHERE track_id = ?)", id).Scan(&liked)
	if err != nil {
		return false, fmt.Errorf("failed to check liked track: %w", err)
	}
	return liked, nil
}

// Get returns the liked track with id.
func (r *LikedTrackRepository) Get(id string) (models.LikedTrack, error) {
	query := "SELECT " + trackColumns + ", liked_at FROM liked_tracks WHERE track_id = ?"

	var likedAt time.Time
	t, err := scanTrack(r.db.QueryRow(query, id), &likedAt)
	if err == sql.ErrNoRows {
		return models.LikedTrack{}, fmt.Errorf("%w: %s", shared.ErrTrackNotFound, id)
	}
	if err != nil {
		return models.LikedTrack{}, fmt.Errorf("failed to scan liked track: %w", err)
	}
	return models.LikedTrack{Track: t, LikedAt: likedAt}, nil
}

// List returns liked tracks, most recent first.
func (r *LikedTrackRepository) List() ([]models.LikedTrack, error) {
	query := "SELECT " + trackColumns + ", liked_at FROM liked_tracks ORDER BY liked_at DESC, track_id"

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query liked tracks: %w", err)
	}
	defer rows.Close()

	var liked []models.LikedTrack
	for rows.Next() {
		var likedAt time.Time
		t, err := scanTrack(rows, &likedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan liked track: %w", err)
		}
		liked = append(liked, models.LikedTrack{Track: t, LikedAt: likedAt})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return liked, nil
}

// LikedIDs returns the ids of every liked track.
func (r *LikedTrackRepository) LikedIDs() ([]string, error) {
	rows, err := r.db.Query("SELECT track_id FROM liked_tracks")
	if err != nil {
		return nil, fmt.Errorf("failed to query liked ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan liked id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return ids, nil
}

// Artists returns the distinct artist names across liked tracks.
func (r *LikedTrackRepository) Artists() ([]string, error) {
	rows, err := r.db.Query("SELECT DISTINCT artist_name FROM liked_tracks ORDER BY artist_name")
	if err != nil {
		return nil, fmt.Errorf("failed to query liked artists: %w", err)
	}
	defer rows.Close()

	var artists []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan artist: %w", err)
		}
		artists = append(artists, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return artists, nil
}
