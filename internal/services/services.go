// Package services defines the upstream clients used by the player: the endpoint pool,
// stream resolution, catalog search and lyrics.
package services

import (
	"context"
	"net/http"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/hifix/internal/models"
	"github.com/desertthunder/hifix/internal/shared"
)

// Resolver turns a track identifier into a playable stream URL.
type Resolver interface {
	Resolve(ctx context.Context, trackID string, quality models.Quality) (string, error)
}

// Searcher finds tracks matching a free-text query.
type Searcher interface {
	Search(ctx context.Context, query string) ([]models.Track, error)
}

// LyricsFetcher returns lyrics text for a track.
type LyricsFetcher interface {
	FetchLyrics(ctx context.Context, title, artist string) (string, error)
}

var (
	_ Resolver      = (*TrackSourceResolver)(nil)
	_ LyricsFetcher = (*LyricsService)(nil)
)

// Services bundles the upstream clients that share one endpoint pool.
type Services struct {
	Pool     *EndpointPool
	API      *APIService
	Resolver *TrackSourceResolver
	Catalog  *CatalogService
	Lyrics   *LyricsService
}

// New builds every upstream client from config. A nil client uses [http.DefaultClient].
func New(cfg *shared.Config, client *http.Client, logger *log.Logger) (*Services, error) {
	pool, err := NewEndpointPool(cfg.Endpoints.Bases, cfg.Endpoints.Cooldown.Duration, logger)
	if err != nil {
		return nil, err
	}

	api := NewAPIService(pool, client)
	return &Services{
		Pool:     pool,
		API:      api,
		Resolver: NewTrackSourceResolver(api, logger),
		Catalog:  NewCatalogService(api, logger),
		Lyrics:   NewLyricsService(cfg.Lyrics, client, logger),
	}, nil
}
