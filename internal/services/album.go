package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/desertthunder/hifix/internal/models"
	"github.com/desertthunder/hifix/internal/shared"
)

// AlbumFetcher loads an album and its tracks.
type AlbumFetcher interface {
	Album(ctx context.Context, id string) (*AlbumPage, error)
}

var _ AlbumFetcher = (*CatalogService)(nil)

// AlbumPage is an album with the tracks complete enough to queue.
type AlbumPage struct {
	Album  models.Album   `json:"album"`
	Artist models.Artist  `json:"artist"`
	Tracks []models.Track `json:"tracks"`
}

// albumEntry is a track record, optionally wrapped as {"item": {...}}.
type albumEntry struct {
	catalogRecord
	Item *catalogRecord `json:"item"`
}

func (e albumEntry) record() catalogRecord {
	if e.Item != nil {
		return *e.Item
	}
	return e.catalogRecord
}

type albumBody struct {
	ID      flexID          `json:"id"`
	Title   string          `json:"title"`
	Cover   string          `json:"cover"`
	Artist  *catalogArtist  `json:"artist"`
	Artists []catalogArtist `json:"artists"`
	Tracks  []albumEntry    `json:"tracks"`
	Items   []albumEntry    `json:"items"`
}

// Album queries GET {base}/album/?id={id}. Tracks missing album or artist details
// inherit them from the album.
func (c *CatalogService) Album(ctx context.Context, id string) (*AlbumPage, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: album id is required", shared.ErrMissingArgument)
	}

	path := "/album/?id=" + url.QueryEscape(id)

	var body albumBody
	err := withRotation(ctx, c.api.Pool(), c.logger, func(base string) error {
		resp, err := c.api.Fetch(ctx, base+path)
		if err != nil {
			return err
		}
		body, err = decodeAlbum(resp.Body)
		return err
	})
	if err != nil {
		return nil, err
	}

	page := &AlbumPage{
		Album: models.Album{ID: string(body.ID), Title: body.Title, Cover: body.Cover},
	}
	if page.Album.ID == "" {
		page.Album.ID = id
	}
	switch {
	case body.Artist != nil:
		page.Artist = models.Artist{ID: string(body.Artist.ID), Name: body.Artist.Name}
	case len(body.Artists) > 0:
		page.Artist = models.Artist{ID: string(body.Artists[0].ID), Name: body.Artists[0].Name}
	}

	seen := make(map[string]bool)
	for _, e := range append(body.Tracks, body.Items...) {
		t := e.record().track()
		if t.Album.ID == "" {
			t.Album.ID = page.Album.ID
		}
		if t.Album.Title == "" {
			t.Album.Title = page.Album.Title
		}
		if t.Album.Cover == "" {
			t.Album.Cover = page.Album.Cover
		}
		if t.Artist.Name == "" {
			t.Artist = page.Artist
		}
		if !t.Playable() || seen[t.ID] {
			continue
		}
		seen[t.ID] = true
		page.Tracks = append(page.Tracks, t)
	}

	if len(page.Tracks) == 0 {
		return nil, fmt.Errorf("%w: %s has no playable tracks", shared.ErrAlbumNotFound, id)
	}

	c.logger.Debug("album loaded", "id", id, "title", page.Album.Title, "tracks", len(page.Tracks))
	return page, nil
}

// decodeAlbum accepts an album object, or an array of objects whose metadata and
// track lists are merged in order.
func decodeAlbum(body []byte) (albumBody, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return albumBody{}, nil
	}

	if body[0] != '[' {
		var a albumBody
		if err := json.Unmarshal(body, &a); err != nil {
			return albumBody{}, fmt.Errorf("failed to decode album response: %w", err)
		}
		return a, nil
	}

	var parts []albumBody
	if err := json.Unmarshal(body, &parts); err != nil {
		return albumBody{}, fmt.Errorf("failed to decode album response: %w", err)
	}

	var merged albumBody
	for _, p := range parts {
		if merged.Title == "" && p.Title != "" {
			merged.ID, merged.Title, merged.Cover = p.ID, p.Title, p.Cover
			merged.Artist, merged.Artists = p.Artist, p.Artists
		}
		merged.Tracks = append(merged.Tracks, p.Tracks...)
		merged.Items = append(merged.Items, p.Items...)
	}
	return merged, nil
}
