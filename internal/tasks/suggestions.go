package tasks

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/hifix/internal/models"
	"github.com/desertthunder/hifix/internal/queue"
	"github.com/desertthunder/hifix/internal/services"
	"github.com/desertthunder/hifix/internal/shared"
)

const (
	DefaultArtistsPerFetch = 5
	growArtistsPerFetch    = 3
)

var _ queue.Fetcher = (*SuggestionBuilder)(nil)

// LikedSource exposes the liked-track data suggestions are derived from.
type LikedSource interface {
	Artists() ([]string, error)
	LikedIDs() ([]string, error)
}

// SuggestionBuilder derives radio-mode candidates from liked artists.
type SuggestionBuilder struct {
	likes    LikedSource
	searcher services.Searcher
	initial  int
	Progress chan<- ProgressUpdate

	mu     sync.Mutex
	rand   *rand.Rand
	logger *log.Logger
}

// NewSuggestionBuilder creates a builder. A nil rnd is seeded randomly.
func NewSuggestionBuilder(likes LikedSource, searcher services.Searcher, cfg shared.SuggestionsConfig, rnd *rand.Rand, logger *log.Logger) *SuggestionBuilder {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	if rnd == nil {
		rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	initial := cfg.ArtistsPerFetch
	if initial <= 0 {
		initial = DefaultArtistsPerFetch
	}

	return &SuggestionBuilder{
		likes:    likes,
		searcher: searcher,
		initial:  initial,
		rand:     rnd,
		logger:   shared.WithLogger(logger, "component", "suggestions"),
	}
}

// FetchSuggestions searches a random sample of liked artists and returns the unliked results, shuffled.
//
// A failed search is skipped; the fetch fails only when every search fails.
func (b *SuggestionBuilder) FetchSuggestions(ctx context.Context, initial bool) ([]models.Track, error) {
	artists, err := b.likes.Artists()
	if err != nil {
		return nil, fmt.Errorf("failed to load liked artists: %w", err)
	}
	if len(artists) == 0 {
		return nil, fmt.Errorf("%w: no liked tracks", shared.ErrSuggestionsEmpty)
	}

	ids, err := b.likes.LikedIDs()
	if err != nil {
		return nil, fmt.Errorf("failed to load liked ids: %w", err)
	}
	skip := make(map[string]bool, len(ids))
	for _, id := range ids {
		skip[id] = true
	}

	count := growArtistsPerFetch
	if initial {
		count = b.initial
	}
	picked := b.pick(artists, count)
	sendProgress(b.Progress, pickArtistsUpdate(picked))

	var (
		tracks []models.Track
		errs   []error
	)
	for i, artist := range picked {
		sendProgress(b.Progress, searchArtistUpdate(i+1, len(picked), artist))

		results, err := b.searcher.Search(ctx, artist)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			b.logger.Warn("artist search failed", "artist", artist, "err", err)
			errs = append(errs, err)
			continue
		}

		for _, t := range results {
			if skip[t.ID] || !t.Playable() {
				continue
			}
			skip[t.ID] = true
			tracks = append(tracks, t)
		}
	}

	if len(errs) == len(picked) {
		return nil, fmt.Errorf("all artist searches failed: %w", errors.Join(errs...))
	}

	b.shuffle(tracks)
	b.logger.Debug("suggestions fetched", "artists", len(picked), "tracks", len(tracks), "initial", initial)
	return tracks, nil
}

// pick returns up to n distinct artists in random order.
func (b *SuggestionBuilder) pick(artists []string, n int) []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	n = min(n, len(artists))
	picked := make([]string, n)
	for i, j := range b.rand.Perm(len(artists))[:n] {
		picked[i] = artists[j]
	}
	return picked
}

func (b *SuggestionBuilder) shuffle(tracks []models.Track) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rand.Shuffle(len(tracks), func(i, j int) { tracks[i], tracks[j] = tracks[j], tracks[i] })
}
