package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
	"github.com/charmbracelet/log"

	"github.com/desertthunder/hifix/internal/models"
	"github.com/desertthunder/hifix/internal/shared"
)

const (
	DefaultBatchSize           = 20
	DefaultSimilarityThreshold = 0.95
)

// Fetcher produces suggestion candidates. initial is true when the pool is empty.
type Fetcher interface {
	FetchSuggestions(ctx context.Context, initial bool) ([]models.Track, error)
}

// SuggestionPool is the radio-mode candidate list that extends an exhausted queue.
//
// Candidates are de-duplicated by id, by fuzzy title/artist match, and against liked tracks.
// The pool only grows until [SuggestionPool.Invalidate] rebuilds it.
type SuggestionPool struct {
	mu         sync.Mutex
	fetcher    Fetcher
	candidates []models.Track
	keys       []string
	ids        map[string]bool
	liked      map[string]bool
	displayed  int
	playCursor int
	loading    bool
	generation int
	batchSize  int
	threshold  float64
	similarity *metrics.JaroWinkler
	logger     *log.Logger
}

// NewSuggestionPool creates an empty pool. fetcher may be nil, in which case the pool only
// holds what is added to it.
func NewSuggestionPool(fetcher Fetcher, cfg shared.SuggestionsConfig, logger *log.Logger) *SuggestionPool {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.SimilarityThreshold <= 0 || cfg.SimilarityThreshold > 1 {
		cfg.SimilarityThreshold = DefaultSimilarityThreshold
	}

	return &SuggestionPool{
		fetcher:    fetcher,
		ids:        make(map[string]bool),
		liked:      make(map[string]bool),
		playCursor: -1,
		batchSize:  cfg.BatchSize,
		threshold:  cfg.SimilarityThreshold,
		similarity: metrics.NewJaroWinkler(),
		logger:     shared.WithLogger(logger, "component", "suggestions"),
	}
}

// Len returns the number of candidates.
func (p *SuggestionPool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.candidates)
}

// Displayed returns how many candidates have been shown.
func (p *SuggestionPool) Displayed() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.displayed
}

// Candidates returns a copy of the pool.
func (p *SuggestionPool) Candidates() []models.Track {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.Track(nil), p.candidates...)
}

// At returns the candidate at i.
func (p *SuggestionPool) At(i int) (models.Track, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if i < 0 || i >= len(p.candidates) {
		return models.Track{}, false
	}
	return p.candidates[i], true
}

// CanSupply reports whether the pool has candidates or can fetch some.
func (p *SuggestionPool) CanSupply() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.candidates) > 0 || p.fetcher != nil
}

// Add appends tracks that are playable and not duplicates, returning how many were kept.
func (p *SuggestionPool) Add(tracks ...models.Track) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.addLocked(tracks)
}

func (p *SuggestionPool) addLocked(tracks []models.Track) int {
	added := 0
	for _, t := range tracks {
		if !t.Playable() || p.ids[t.ID] || p.liked[t.ID] {
			continue
		}

		key := shared.NormalizeTrackKey(shared.StripParenthetical(t.Title), t.Artist.Name)
		if p.similarLocked(key) {
			continue
		}

		p.candidates = append(p.candidates, t)
		p.keys = append(p.keys, key)
		p.ids[t.ID] = true
		added++
	}
	return added
}

func (p *SuggestionPool) similarLocked(key string) bool {
	for _, existing := range p.keys {
		if existing == key || strutil.Similarity(existing, key, p.similarity) >= p.threshold {
			return true
		}
	}
	return false
}

// Grow fetches more candidates. Concurrent calls while a fetch is in flight return immediately.
func (p *SuggestionPool) Grow(ctx context.Context) (int, error) {
	p.mu.Lock()
	if p.fetcher == nil || p.loading {
		p.mu.Unlock()
		return 0, nil
	}
	p.loading = true
	initial := len(p.candidates) == 0
	gen := p.generation
	p.mu.Unlock()

	tracks, err := p.fetcher.FetchSuggestions(ctx, initial)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.loading = false

	if err != nil {
		return 0, fmt.Errorf("failed to fetch suggestions: %w", err)
	}
	if gen != p.generation {
		p.logger.Debug("discarding suggestions fetched before invalidation")
		return 0, nil
	}

	added := p.addLocked(tracks)
	p.logger.Debug("pool grown", "fetched", len(tracks), "added", added, "total", len(p.candidates))
	return added, nil
}

// NextBatch returns the next undisplayed batch, growing the pool when it is exhausted.
func (p *SuggestionPool) NextBatch(ctx context.Context) ([]models.Track, error) {
	p.mu.Lock()
	exhausted := p.displayed >= len(p.candidates)
	p.mu.Unlock()

	if exhausted {
		if _, err := p.Grow(ctx); err != nil {
			return nil, err
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	end := min(p.displayed+p.batchSize, len(p.candidates))
	if p.displayed >= end {
		return nil, nil
	}
	batch := append([]models.Track(nil), p.candidates[p.displayed:end]...)
	p.displayed = end
	return batch, nil
}

// Peek picks the next candidate to play without consuming it.
//
// When continuing a suggestion run the pick is the entry after the last one played; otherwise
// it is the first undisplayed candidate. An exhausted pool is grown first and then wrapped.
func (p *SuggestionPool) Peek(ctx context.Context, continuing bool) (int, models.Track, error) {
	idx, ok := p.nextIndex(continuing, false)
	if !ok {
		if _, err := p.Grow(ctx); err != nil {
			p.logger.Warn("suggestion growth failed", "err", err)
		}
		idx, ok = p.nextIndex(continuing, true)
	}
	if !ok {
		return -1, models.Track{}, shared.ErrSuggestionsEmpty
	}

	t, _ := p.At(idx)
	return idx, t, nil
}

func (p *SuggestionPool) nextIndex(continuing, wrap bool) (int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := len(p.candidates)
	if n == 0 {
		return -1, false
	}

	idx := p.displayed
	if continuing {
		idx = p.playCursor + 1
	}
	if idx < n {
		return idx, true
	}
	if !wrap {
		return -1, false
	}
	return idx % n, true
}

// MarkPlayed records that the candidate at i started playing. Played candidates count as displayed.
func (p *SuggestionPool) MarkPlayed(i int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if i < 0 || i >= len(p.candidates) {
		return fmt.Errorf("%w: suggestion %d out of range [0,%d)", shared.ErrInvalidArgument, i, len(p.candidates))
	}
	p.playCursor = i
	p.displayed = max(p.displayed, i+1)
	return nil
}

// Invalidate discards every candidate and records the liked ids to exclude from the rebuild.
func (p *SuggestionPool) Invalidate(liked []string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.candidates = nil
	p.keys = nil
	p.ids = make(map[string]bool)
	p.liked = make(map[string]bool, len(liked))
	for _, id := range liked {
		p.liked[id] = true
	}
	p.displayed = 0
	p.playCursor = -1
	p.generation++
	p.logger.Debug("pool invalidated", "liked", len(liked))
}

func (p *SuggestionPool) playCursorValue() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playCursor
}
