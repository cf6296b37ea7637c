package queue

import "encoding/json"

const (
	// DefaultHistoryWindow is how many recent plays shuffle avoids.
	DefaultHistoryWindow = 10
	// DefaultHistoryCapacity bounds the stored history.
	DefaultHistoryCapacity = 50
)

// History records recently played track ids, oldest first.
type History struct {
	entries  []string
	window   int
	capacity int
}

// NewHistory creates a history that avoids the last window plays and keeps at most capacity.
func NewHistory(window, capacity int) *History {
	if window <= 0 {
		window = DefaultHistoryWindow
	}
	if capacity < window {
		capacity = max(window, DefaultHistoryCapacity)
	}
	return &History{window: window, capacity: capacity}
}

// Push records a play, dropping the oldest entries past capacity.
func (h *History) Push(id string) {
	if id == "" {
		return
	}
	h.entries = append(h.entries, id)
	if over := len(h.entries) - h.capacity; over > 0 {
		h.entries = append([]string(nil), h.entries[over:]...)
	}
}

// Recent returns the ids within the avoidance window.
func (h *History) Recent() map[string]bool {
	start := max(0, len(h.entries)-h.window)
	recent := make(map[string]bool, len(h.entries)-start)
	for _, id := range h.entries[start:] {
		recent[id] = true
	}
	return recent
}

// Entries returns a copy of the history, oldest first.
func (h *History) Entries() []string {
	return append([]string(nil), h.entries...)
}

// Len returns the number of stored entries.
func (h *History) Len() int { return len(h.entries) }

// Encode serializes the history for the preference store.
func (h *History) Encode() string {
	data, err := json.Marshal(h.entries)
	if err != nil {
		return "[]"
	}
	return string(data)
}

// Decode restores entries written by [History.Encode], trimming to capacity.
func (h *History) Decode(s string) error {
	var entries []string
	if err := json.Unmarshal([]byte(s), &entries); err != nil {
		return err
	}
	h.entries = nil
	for _, id := range entries {
		h.Push(id)
	}
	return nil
}
