package playback

import (
	"context"
	"strconv"
	"time"

	"github.com/desertthunder/hifix/internal/models"
	"github.com/desertthunder/hifix/internal/shared"
)

// Preference keys read at startup and written on change.
const (
	PrefQuality           = "audioQuality"
	PrefCrossfadeEnabled  = "crossfadeEnabled"
	PrefCrossfadeDuration = "crossfadeDuration"
	PrefVolume            = "volume"
)

const defaultVolume = 0.3

// Preferences is a synchronous key-value store.
type Preferences interface {
	Get(key string) (string, bool)
	Set(key, value string) error
}

// Resolver turns a track id into a stream URL.
type Resolver interface {
	Resolve(ctx context.Context, trackID string, quality models.Quality) (string, error)
}

// LikeStore persists liked tracks.
type LikeStore interface {
	IsLiked(id string) (bool, error)
	Like(t models.Track) error
	Unlike(id string) error
	LikedIDs() ([]string, error)
}

// Broadcaster publishes snapshots to an external now-playing surface.
type Broadcaster interface {
	Broadcast(ctx context.Context, s Snapshot) error
}

// Settings are the user-adjustable playback values.
type Settings struct {
	Quality           models.Quality
	Volume            float64
	CrossfadeEnabled  bool
	CrossfadeDuration time.Duration
}

// SettingsFromConfig returns the configured defaults.
func SettingsFromConfig(cfg shared.PlaybackConfig) Settings {
	q, err := models.ParseQuality(cfg.Quality)
	if err != nil {
		q = models.QualityLossless
	}
	return Settings{
		Quality:           q,
		Volume:            cfg.Volume,
		CrossfadeEnabled:  cfg.CrossfadeEnabled,
		CrossfadeDuration: cfg.CrossfadeDuration.Duration,
	}
}

// LoadSettings overlays stored preferences onto defaults. Malformed values are ignored.
func LoadSettings(prefs Preferences, defaults Settings) Settings {
	s := defaults
	if s.Quality == "" {
		s.Quality = models.QualityLossless
	}
	if s.Volume < 0 || s.Volume > 1 {
		s.Volume = defaultVolume
	}
	if prefs == nil {
		return s
	}

	if v, ok := prefs.Get(PrefQuality); ok {
		if q, err := models.ParseQuality(v); err == nil {
			s.Quality = q
		}
	}
	if v, ok := prefs.Get(PrefVolume); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 && f <= 1 {
			s.Volume = f
		}
	}
	if v, ok := prefs.Get(PrefCrossfadeEnabled); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			s.CrossfadeEnabled = b
		}
	}
	if v, ok := prefs.Get(PrefCrossfadeDuration); ok {
		if secs, err := strconv.ParseFloat(v, 64); err == nil && secs > 0 {
			s.CrossfadeDuration = time.Duration(secs * float64(time.Second))
		}
	}
	return s
}
