package tasks

import (
	"fmt"

	"github.com/desertthunder/hifix/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	PickArtists Phase = iota
	SearchArtists
	ResolveTracks
	DownloadTracks
	WriteManifest
)

func (p Phase) String() string {
	switch p {
	case PickArtists:
		return "pick_artists"
	case SearchArtists:
		return "search_artists"
	case ResolveTracks:
		return "resolve_tracks"
	case DownloadTracks:
		return "download_tracks"
	case WriteManifest:
		return "write_manifest"
	default:
		return ""
	}
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func pickArtistsUpdate(artists []string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PickArtists,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Picked %d liked artists", len(artists)),
		Data:    artists,
	}
}

func searchArtistUpdate(step, total int, artist string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SearchArtists,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Searching %s...", step, total, artist),
	}
}

func resolveTrackUpdate(step, total int, t models.Track) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ResolveTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Resolving %s...", step, total, t.Label()),
	}
}

func downloadCompletedUpdate(step, total int, res TrackDownloadResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   DownloadTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s", step, total, res.Track.Label()),
		Data:    res,
	}
}

func downloadFailedUpdate(step, total int, res TrackDownloadResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   DownloadTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, res.Track.Label(), res.Error),
		Data:    res,
	}
}

func manifestUpdate(path string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   WriteManifest,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Wrote manifest %s", path),
	}
}
