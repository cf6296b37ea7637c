package playback

import (
	"time"

	"github.com/desertthunder/hifix/internal/models"
)

// State is the controller's playback state.
type State int

const (
	StateIdle State = iota
	StateLoading
	StatePlaying
	StatePaused
	StateEnded
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateEnded:
		return "ended"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// TransitionState tracks the crossfade transition.
type TransitionState int

const (
	NotCrossfading TransitionState = iota
	TransitionLoading
	TransitionRamping
	TransitionCommitting
	TransitionAborting
)

func (t TransitionState) String() string {
	switch t {
	case NotCrossfading:
		return "none"
	case TransitionLoading:
		return "loading"
	case TransitionRamping:
		return "ramping"
	case TransitionCommitting:
		return "committing"
	case TransitionAborting:
		return "aborting"
	default:
		return "unknown"
	}
}

// Session is the mutable playback state owned by a [Controller].
type Session struct {
	Track             *models.Track
	Playing           bool
	Shuffle           bool
	Repeat            models.RepeatMode
	Volume            float64
	Liked             bool
	Quality           models.Quality
	CrossfadeEnabled  bool
	CrossfadeDuration time.Duration

	// IsCrossfading and IsUserPausing are never both true.
	IsCrossfading bool
	IsUserPausing bool
}

// Snapshot is a read-only view of the session, also used as the broadcast payload.
type Snapshot struct {
	TrackID     string  `json:"trackId,omitempty"`
	Title       string  `json:"title"`
	Artist      string  `json:"artist"`
	Album       string  `json:"album,omitempty"`
	Cover       string  `json:"cover"`
	IsPlaying   bool    `json:"isPlaying"`
	Progress    float64 `json:"progress"`
	Duration    float64 `json:"duration"`
	IsShuffled  bool    `json:"isShuffled"`
	RepeatMode  string  `json:"repeatMode"`
	IsLiked     bool    `json:"isLiked"`
	State       string  `json:"state"`
	Volume      float64 `json:"volume"`
	Quality     string  `json:"quality"`
	Crossfading bool    `json:"crossfading"`
	Suggested   bool    `json:"suggested"`

	Crossfade        bool    `json:"crossfade"`
	CrossfadeSeconds float64 `json:"crossfadeSeconds"`
}

// HasTrack reports whether the snapshot describes a loaded track.
func (s Snapshot) HasTrack() bool {
	return s.TrackID != ""
}
