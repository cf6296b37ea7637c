package queue

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/hifix/internal/models"
	"github.com/desertthunder/hifix/internal/shared"
)

// HistoryKey is the preference key holding the persisted shuffle history.
const HistoryKey = "shuffleHistory"

// Direction of navigation.
type Direction int

const (
	Forward Direction = iota
	Backward
)

func (d Direction) String() string {
	if d == Backward {
		return "backward"
	}
	return "forward"
}

// Source says where a planned track comes from.
type Source int

const (
	SourceQueue Source = iota
	SourceSuggestions
)

func (s Source) String() string {
	if s == SourceSuggestions {
		return "suggestions"
	}
	return "queue"
}

// Plan is a decided but uncommitted navigation step.
type Plan struct {
	Track   models.Track
	Index   int
	Source  Source
	Restart bool // replay the current track from the start
}

// Preferences is the key-value store the shuffle history is saved to.
type Preferences interface {
	Get(key string) (string, bool)
	Set(key, value string) error
}

// Manager owns the queue, the shuffle history, and the suggestion fallback.
type Manager struct {
	mu              sync.Mutex
	queue           *Queue
	history         *History
	suggestions     *SuggestionPool
	fromSuggestions bool
	rand            *rand.Rand
	prefs           Preferences
	logger          *log.Logger
}

// ManagerOpts configures a [Manager]. Nil fields get defaults.
type ManagerOpts struct {
	Suggestions *SuggestionPool
	Prefs       Preferences
	Rand        *rand.Rand
	Logger      *log.Logger
}

// NewManager creates a manager with an empty queue, restoring the shuffle history when Prefs has one.
func NewManager(opts ManagerOpts) *Manager {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if opts.Suggestions == nil {
		opts.Suggestions = NewSuggestionPool(nil, shared.SuggestionsConfig{}, opts.Logger)
	}

	m := &Manager{
		queue:       New(),
		history:     NewHistory(DefaultHistoryWindow, DefaultHistoryCapacity),
		suggestions: opts.Suggestions,
		rand:        opts.Rand,
		prefs:       opts.Prefs,
		logger:      shared.WithLogger(opts.Logger, "component", "queue"),
	}

	if m.prefs != nil {
		if raw, ok := m.prefs.Get(HistoryKey); ok && raw != "" {
			if err := m.history.Decode(raw); err != nil {
				m.logger.Warn("ignoring malformed shuffle history", "err", err)
			}
		}
	}
	return m
}

// Suggestions returns the fallback pool.
func (m *Manager) Suggestions() *SuggestionPool { return m.suggestions }

// Tracks returns a copy of the queue.
func (m *Manager) Tracks() []models.Track {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queue.Tracks()
}

// Len returns the queue length.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queue.Len()
}

// CurrentIndex returns the queue cursor, or [Empty].
func (m *Manager) CurrentIndex() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queue.CurrentIndex()
}

// FromSuggestions reports whether playback is walking the suggestion pool.
func (m *Manager) FromSuggestions() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fromSuggestions
}

// History returns the recent play ids, oldest first.
func (m *Manager) History() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.history.Entries()
}

// Set replaces the queue and leaves suggestion mode.
func (m *Manager) Set(tracks []models.Track, start int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue.Set(tracks, start)
	m.fromSuggestions = false
}

// Append adds tracks to the end of the queue.
func (m *Manager) Append(tracks ...models.Track) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue.Append(tracks...)
}

// InsertNext queues t right after the current track.
func (m *Manager) InsertNext(t models.Track) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue.InsertNext(t)
}

// Remove deletes the queue entry at i.
func (m *Manager) Remove(i int) (models.Track, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queue.Remove(i)
}

// Reorder moves a queue entry.
func (m *Manager) Reorder(from, to int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queue.Reorder(from, to)
}

// Clear empties the queue.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue.Clear()
	m.fromSuggestions = false
}

// Select makes t the current track, appending it when it is not queued, and records the play.
func (m *Manager) Select(t models.Track) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.queue.IndexOf(t.ID)
	if i < 0 {
		m.queue.Append(t)
		i = m.queue.Len() - 1
	}
	m.queue.SetCurrent(i)
	m.fromSuggestions = false
	m.recordLocked(t.ID)
	return i
}

// Jump makes the queue entry at i current and records the play.
func (m *Manager) Jump(i int) (models.Track, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.queue.SetCurrent(i); err != nil {
		return models.Track{}, err
	}
	t, _ := m.queue.Current()
	m.fromSuggestions = false
	m.recordLocked(t.ID)
	return t, nil
}

// HasNext reports, without blocking, whether a forward plan can produce a track.
func (m *Manager) HasNext(repeat models.RepeatMode, shuffle bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := m.queue.Len()
	cur := m.queue.CurrentIndex()
	switch {
	case repeat == models.RepeatOne:
		return cur != Empty
	case m.fromSuggestions:
		return m.suggestions.CanSupply()
	case shuffle && n > 1:
		return true
	case cur != Empty && cur+1 < n:
		return true
	case repeat == models.RepeatAll && n > 0:
		return true
	default:
		return m.suggestions.CanSupply()
	}
}

// Plan decides the next track in dir without committing it.
//
// The suggestion pool may be grown to satisfy the plan. Returns [shared.ErrNoNextTrack] when
// nothing can play.
func (m *Manager) Plan(ctx context.Context, dir Direction, repeat models.RepeatMode, shuffle bool) (Plan, error) {
	m.mu.Lock()
	plan, fallback, err := m.planLocked(dir, repeat, shuffle)
	continuing := m.fromSuggestions
	m.mu.Unlock()

	if err != nil || !fallback {
		return plan, err
	}

	idx, t, err := m.suggestions.Peek(ctx, continuing)
	if err != nil {
		return Plan{}, fmt.Errorf("%w: %v", shared.ErrNoNextTrack, err)
	}
	return Plan{Track: t, Index: idx, Source: SourceSuggestions}, nil
}

func (m *Manager) planLocked(dir Direction, repeat models.RepeatMode, shuffle bool) (Plan, bool, error) {
	n := m.queue.Len()
	cur := m.queue.CurrentIndex()

	if dir == Backward {
		return m.planBackwardLocked(repeat)
	}

	if repeat == models.RepeatOne {
		t, ok := m.queue.Current()
		if !ok {
			return Plan{}, false, shared.ErrNoNextTrack
		}
		return Plan{Track: t, Index: cur, Source: SourceQueue, Restart: true}, false, nil
	}

	if m.fromSuggestions || n == 0 {
		return Plan{}, true, nil
	}

	if shuffle && n > 1 {
		i := m.shufflePickLocked()
		t, _ := m.queue.At(i)
		return Plan{Track: t, Index: i, Source: SourceQueue}, false, nil
	}

	if cur+1 < n {
		t, _ := m.queue.At(cur + 1)
		return Plan{Track: t, Index: cur + 1, Source: SourceQueue}, false, nil
	}

	if repeat == models.RepeatAll {
		t, _ := m.queue.At(0)
		return Plan{Track: t, Index: 0, Source: SourceQueue}, false, nil
	}

	return Plan{}, true, nil
}

func (m *Manager) planBackwardLocked(repeat models.RepeatMode) (Plan, bool, error) {
	if m.fromSuggestions {
		cur := m.suggestions.playCursorValue()
		if cur > 0 {
			if t, ok := m.suggestions.At(cur - 1); ok {
				return Plan{Track: t, Index: cur - 1, Source: SourceSuggestions}, false, nil
			}
		}
		if t, ok := m.queue.Current(); ok {
			return Plan{Track: t, Index: m.queue.CurrentIndex(), Source: SourceQueue}, false, nil
		}
		return Plan{}, false, shared.ErrNoNextTrack
	}

	cur := m.queue.CurrentIndex()
	if cur == Empty {
		return Plan{}, false, shared.ErrNoNextTrack
	}
	if cur > 0 {
		t, _ := m.queue.At(cur - 1)
		return Plan{Track: t, Index: cur - 1, Source: SourceQueue}, false, nil
	}
	if repeat == models.RepeatAll && m.queue.Len() > 1 {
		last := m.queue.Len() - 1
		t, _ := m.queue.At(last)
		return Plan{Track: t, Index: last, Source: SourceQueue}, false, nil
	}

	t, _ := m.queue.Current()
	return Plan{Track: t, Index: cur, Source: SourceQueue, Restart: true}, false, nil
}

// shufflePickLocked picks a random entry other than the current one, avoiding the recent
// history window. The window is ignored when it excludes every candidate.
func (m *Manager) shufflePickLocked() int {
	cur := m.queue.CurrentIndex()
	recent := m.history.Recent()

	var fresh, others []int
	for i, t := range m.queue.tracks {
		if i == cur {
			continue
		}
		others = append(others, i)
		if !recent[t.ID] {
			fresh = append(fresh, i)
		}
	}

	if len(fresh) == 0 {
		m.logger.Debug("shuffle window exhausted, relaxing", "recent", len(recent))
		fresh = others
	}
	return fresh[m.rand.IntN(len(fresh))]
}

// Apply commits a plan produced by [Manager.Plan].
//
// A plan whose target no longer matches the queue or pool is rejected with [shared.ErrSuperseded].
func (m *Manager) Apply(p Plan) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p.Restart {
		return nil
	}

	switch p.Source {
	case SourceQueue:
		t, ok := m.queue.At(p.Index)
		if !ok || t.ID != p.Track.ID {
			return fmt.Errorf("%w: queue changed since plan", shared.ErrSuperseded)
		}
		m.queue.SetCurrent(p.Index)
		m.fromSuggestions = false
	case SourceSuggestions:
		t, ok := m.suggestions.At(p.Index)
		if !ok || t.ID != p.Track.ID {
			return fmt.Errorf("%w: suggestions changed since plan", shared.ErrSuperseded)
		}
		if err := m.suggestions.MarkPlayed(p.Index); err != nil {
			return err
		}
		m.fromSuggestions = true
	}

	m.recordLocked(p.Track.ID)
	return nil
}

// Advance plans and commits in one step.
func (m *Manager) Advance(ctx context.Context, dir Direction, repeat models.RepeatMode, shuffle bool) (Plan, error) {
	p, err := m.Plan(ctx, dir, repeat, shuffle)
	if err != nil {
		return Plan{}, err
	}
	if err := m.Apply(p); err != nil {
		return Plan{}, err
	}
	return p, nil
}

func (m *Manager) recordLocked(id string) {
	m.history.Push(id)
	if m.prefs == nil {
		return
	}
	if err := m.prefs.Set(HistoryKey, m.history.Encode()); err != nil {
		m.logger.Warn("failed to persist shuffle history", "err", err)
	}
}
