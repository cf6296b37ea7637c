package models

import (
	"fmt"
	"strings"
	"time"
)

// Playlist represents playlist metadata.
type Playlist struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	TrackCount  int    `json:"track_count"`
}

// PlaylistExport represents a playlist with all of its tracks, in order.
type PlaylistExport struct {
	Playlist Playlist `json:"playlist"`
	Tracks   []Track  `json:"tracks"`
}

var _ Model = (*PersistedPlaylist)(nil)

// PersistedPlaylist is a locally stored playlist.
type PersistedPlaylist struct {
	id          string
	sequence    int
	name        string
	description string
	trackCount  int
	createdAt   time.Time
	updatedAt   time.Time
	deletedAt   *time.Time
}

// NewPersistedPlaylist creates an unsaved playlist; the repository assigns ID and sequence.
func NewPersistedPlaylist(name, description string) *PersistedPlaylist {
	now := time.Now()
	return &PersistedPlaylist{
		name:        strings.TrimSpace(name),
		description: description,
		createdAt:   now,
		updatedAt:   now,
	}
}

func (p *PersistedPlaylist) ID() string                { return p.id }
func (p *PersistedPlaylist) Sequence() int             { return p.sequence }
func (p *PersistedPlaylist) Name() string              { return p.name }
func (p *PersistedPlaylist) Description() string       { return p.description }
func (p *PersistedPlaylist) TrackCount() int           { return p.trackCount }
func (p *PersistedPlaylist) CreatedAt() time.Time      { return p.createdAt }
func (p *PersistedPlaylist) UpdatedAt() time.Time      { return p.updatedAt }
func (p *PersistedPlaylist) DeletedAt() *time.Time     { return p.deletedAt }
func (p *PersistedPlaylist) SetID(id string)           { p.id = id }
func (p *PersistedPlaylist) SetSequence(seq int)       { p.sequence = seq }
func (p *PersistedPlaylist) SetName(name string)       { p.name = strings.TrimSpace(name) }
func (p *PersistedPlaylist) SetDescription(d string)   { p.description = d }
func (p *PersistedPlaylist) SetTrackCount(n int)       { p.trackCount = n }
func (p *PersistedPlaylist) SetCreatedAt(t time.Time)  { p.createdAt = t }
func (p *PersistedPlaylist) SetUpdatedAt(t time.Time)  { p.updatedAt = t }
func (p *PersistedPlaylist) SetDeletedAt(t *time.Time) { p.deletedAt = t }

// Validate requires a name.
func (p *PersistedPlaylist) Validate() error {
	if p.name == "" {
		return fmt.Errorf("playlist name is required")
	}
	return nil
}

// DTO converts to the [Playlist] transfer shape.
func (p *PersistedPlaylist) DTO() Playlist {
	return Playlist{ID: p.id, Name: p.name, Description: p.description, TrackCount: p.trackCount}
}

// LikedTrack is a track the user liked.
type LikedTrack struct {
	Track   Track
	LikedAt time.Time
}
