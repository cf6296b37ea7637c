package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/hifix/internal/models"
	"github.com/desertthunder/hifix/internal/shared"
)

var _ Searcher = (*CatalogService)(nil)

// CatalogService searches the proxy catalog.
type CatalogService struct {
	api    *APIService
	logger *log.Logger
}

// NewCatalogService creates a catalog bound to api's endpoint pool.
func NewCatalogService(api *APIService, logger *log.Logger) *CatalogService {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &CatalogService{api: api, logger: shared.WithLogger(logger, "component", "catalog")}
}

// flexID accepts identifiers encoded as JSON strings or numbers.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid id %s: %w", string(data), err)
	}
	*f = flexID(n.String())
	return nil
}

type catalogArtist struct {
	ID   flexID `json:"id"`
	Name string `json:"name"`
}

type catalogRecord struct {
	ID       flexID          `json:"id"`
	Title    string          `json:"title"`
	Duration float64         `json:"duration"`
	Artist   *catalogArtist  `json:"artist"`
	Artists  []catalogArtist `json:"artists"`
	Album    *struct {
		ID    flexID `json:"id"`
		Title string `json:"title"`
		Cover string `json:"cover"`
	} `json:"album"`
}

func (c catalogRecord) track() models.Track {
	t := models.Track{
		ID:       string(c.ID),
		Title:    c.Title,
		Duration: int(c.Duration),
	}

	switch {
	case c.Artist != nil:
		t.Artist = models.Artist{ID: string(c.Artist.ID), Name: c.Artist.Name}
	case len(c.Artists) > 0:
		t.Artist = models.Artist{ID: string(c.Artists[0].ID), Name: c.Artists[0].Name}
	}

	if c.Album != nil {
		t.Album = models.Album{ID: string(c.Album.ID), Title: c.Album.Title, Cover: c.Album.Cover}
	}
	return t
}

type searchPage struct {
	Items  []catalogRecord `json:"items"`
	Tracks *struct {
		Items []catalogRecord `json:"items"`
	} `json:"tracks"`
}

func (p searchPage) records() []catalogRecord {
	if len(p.Items) > 0 {
		return p.Items
	}
	if p.Tracks != nil {
		return p.Tracks.Items
	}
	return nil
}

// Search queries GET {base}/search/?s={query} and returns only records complete enough to play.
func (c *CatalogService) Search(ctx context.Context, query string) ([]models.Track, error) {
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", shared.ErrMissingArgument)
	}

	path := "/search/?s=" + url.QueryEscape(query)

	var records []catalogRecord
	err := withRotation(ctx, c.api.Pool(), c.logger, func(base string) error {
		resp, err := c.api.Fetch(ctx, base+path)
		if err != nil {
			return err
		}
		records, err = decodeSearch(resp.Body)
		return err
	})
	if err != nil {
		return nil, err
	}

	tracks := make([]models.Track, 0, len(records))
	seen := make(map[string]bool, len(records))
	for _, rec := range records {
		t := rec.track()
		if !t.Playable() || seen[t.ID] {
			continue
		}
		seen[t.ID] = true
		tracks = append(tracks, t)
	}

	c.logger.Debug("search complete", "query", query, "received", len(records), "playable", len(tracks))
	return tracks, nil
}

// decodeSearch accepts a page object, a page wrapped in an array, or a bare array of records.
func decodeSearch(body []byte) ([]catalogRecord, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, nil
	}

	if body[0] == '[' {
		var pages []searchPage
		if err := json.Unmarshal(body, &pages); err == nil && len(pages) > 0 && len(pages[0].records()) > 0 {
			return pages[0].records(), nil
		}

		var records []catalogRecord
		if err := json.Unmarshal(body, &records); err != nil {
			return nil, fmt.Errorf("failed to decode search response: %w", err)
		}
		return records, nil
	}

	var page searchPage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}
	return page.records(), nil
}
