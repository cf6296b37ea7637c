// Package queue holds the play queue, the shuffle history, and the suggestion pool used
// when the queue runs out.
package queue

import (
	"fmt"

	"github.com/desertthunder/hifix/internal/models"
	"github.com/desertthunder/hifix/internal/shared"
)

// Empty is the cursor value of a queue with no tracks.
const Empty = -1

// Queue is an ordered list of tracks plus a cursor on the current one.
//
// The cursor is a valid index whenever the queue is non-empty and [Empty] otherwise.
// Queue is not safe for concurrent use; [Manager] serializes access.
type Queue struct {
	tracks  []models.Track
	current int
}

// New creates a queue positioned on the first track.
func New(tracks ...models.Track) *Queue {
	q := &Queue{current: Empty}
	q.Set(tracks, 0)
	return q
}

// Len returns the number of tracks.
func (q *Queue) Len() int { return len(q.tracks) }

// CurrentIndex returns the cursor, or [Empty].
func (q *Queue) CurrentIndex() int { return q.current }

// Tracks returns a copy of the queued tracks.
func (q *Queue) Tracks() []models.Track {
	return append([]models.Track(nil), q.tracks...)
}

// At returns the track at i.
func (q *Queue) At(i int) (models.Track, bool) {
	if i < 0 || i >= len(q.tracks) {
		return models.Track{}, false
	}
	return q.tracks[i], true
}

// Current returns the track under the cursor.
func (q *Queue) Current() (models.Track, bool) {
	return q.At(q.current)
}

// IndexOf returns the position of the first track with id, or -1.
func (q *Queue) IndexOf(id string) int {
	for i, t := range q.tracks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// Set replaces the contents and places the cursor on start, clamped into range.
func (q *Queue) Set(tracks []models.Track, start int) {
	q.tracks = append([]models.Track(nil), tracks...)
	q.current = Empty
	if len(q.tracks) > 0 {
		q.current = max(0, min(start, len(q.tracks)-1))
	}
}

// Clear empties the queue.
func (q *Queue) Clear() {
	q.tracks = nil
	q.current = Empty
}

// SetCurrent moves the cursor to i.
func (q *Queue) SetCurrent(i int) error {
	if i < 0 || i >= len(q.tracks) {
		return fmt.Errorf("%w: index %d out of range [0,%d)", shared.ErrInvalidArgument, i, len(q.tracks))
	}
	q.current = i
	return nil
}

// Append adds tracks to the end. Appending to an empty queue places the cursor on the first track.
func (q *Queue) Append(tracks ...models.Track) {
	q.tracks = append(q.tracks, tracks...)
	if q.current == Empty && len(q.tracks) > 0 {
		q.current = 0
	}
}

// Insert places t at position i (clamped to [0,Len]). Inserting at or before the cursor shifts it.
func (q *Queue) Insert(i int, t models.Track) {
	i = max(0, min(i, len(q.tracks)))
	q.tracks = append(q.tracks, models.Track{})
	copy(q.tracks[i+1:], q.tracks[i:])
	q.tracks[i] = t

	switch {
	case q.current == Empty:
		q.current = 0
	case i <= q.current:
		q.current++
	}
}

// InsertNext places t right after the current track.
func (q *Queue) InsertNext(t models.Track) {
	if q.current == Empty {
		q.Append(t)
		return
	}
	q.Insert(q.current+1, t)
}

// Remove splices out the entry at i and repairs the cursor.
//
// Removing an entry before the cursor shifts it back by one. Removing the current entry leaves
// the cursor on the entry that followed it, or on the new last entry when it was last.
func (q *Queue) Remove(i int) (models.Track, error) {
	if i < 0 || i >= len(q.tracks) {
		return models.Track{}, fmt.Errorf("%w: index %d out of range [0,%d)", shared.ErrInvalidArgument, i, len(q.tracks))
	}

	removed := q.tracks[i]
	q.tracks = append(q.tracks[:i], q.tracks[i+1:]...)

	switch {
	case len(q.tracks) == 0:
		q.current = Empty
	case i < q.current:
		q.current--
	case i == q.current && q.current >= len(q.tracks):
		q.current = len(q.tracks) - 1
	}
	return removed, nil
}

// Reorder moves the entry at from to position to, keeping the cursor on the same track.
func (q *Queue) Reorder(from, to int) error {
	n := len(q.tracks)
	if from < 0 || from >= n || to < 0 || to >= n {
		return fmt.Errorf("%w: move %d -> %d out of range [0,%d)", shared.ErrInvalidArgument, from, to, n)
	}
	if from == to {
		return nil
	}

	moved := q.tracks[from]
	if from < to {
		copy(q.tracks[from:to], q.tracks[from+1:to+1])
	} else {
		copy(q.tracks[to+1:from+1], q.tracks[to:from])
	}
	q.tracks[to] = moved

	switch {
	case from == q.current:
		q.current = to
	case from < q.current && to >= q.current:
		q.current--
	case from > q.current && to <= q.current:
		q.current++
	}
	return nil
}
