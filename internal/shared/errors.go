package shared

import (
	"errors"
	"fmt"
)

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")
	ErrTimeout       = fmt.Errorf("operation timed out")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrPlaylistNotFound   = fmt.Errorf("playlist not found")
	ErrTrackNotFound      = fmt.Errorf("track not found")
	ErrAlbumNotFound      = fmt.Errorf("album not found")
	ErrLyricsNotFound     = fmt.Errorf("lyrics not found")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)

// Resolution failures
var (
	ErrResolution         = fmt.Errorf("resolution failure")
	ErrStreamNotFound     = fmt.Errorf("%w: stream not found", ErrResolution)
	ErrNetwork            = fmt.Errorf("%w: network error", ErrResolution)
	ErrEndpointsExhausted = fmt.Errorf("%w: all endpoints exhausted", ErrResolution)
)

// Playback failures, in media error code order
var (
	ErrPlayback          = fmt.Errorf("playback failure")
	ErrPlaybackAborted   = fmt.Errorf("%w: aborted", ErrPlayback)
	ErrPlaybackNetwork   = fmt.Errorf("%w: network error", ErrPlayback)
	ErrDecode            = fmt.Errorf("%w: decode error", ErrPlayback)
	ErrUnsupportedFormat = fmt.Errorf("%w: unsupported format", ErrPlayback)
)

// Transition failures
var (
	ErrTransition       = fmt.Errorf("transition failure")
	ErrNextUnresolvable = fmt.Errorf("%w: next track unresolvable", ErrTransition)
	ErrUserCancelled    = fmt.Errorf("%w: cancelled by user", ErrTransition)
)

// Playback state errors
var (
	ErrNoNextTrack      = fmt.Errorf("no next track")
	ErrDurationUnknown  = fmt.Errorf("duration not known")
	ErrNothingPlaying   = fmt.Errorf("nothing playing")
	ErrSuperseded       = fmt.Errorf("superseded by a newer request")
	ErrSinkUnavailable  = fmt.Errorf("audio sink unavailable")
	ErrSuggestionsEmpty = fmt.Errorf("no suggestions available")
)

// Classify returns the taxonomy group an error belongs to: [ErrResolution], [ErrPlayback],
// [ErrTransition], or nil when it belongs to none.
func Classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrResolution):
		return ErrResolution
	case errors.Is(err, ErrPlayback):
		return ErrPlayback
	case errors.Is(err, ErrTransition):
		return ErrTransition
	default:
		return nil
	}
}

// MediaError maps a media error code (1 aborted, 2 network, 3 decode, 4 unsupported) to its sentinel.
func MediaError(code int) error {
	switch code {
	case 1:
		return ErrPlaybackAborted
	case 2:
		return ErrPlaybackNetwork
	case 3:
		return ErrDecode
	case 4:
		return ErrUnsupportedFormat
	default:
		return ErrPlayback
	}
}
