package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/hifix/internal/services"
	"github.com/desertthunder/hifix/internal/shared"
)

// Search queries the catalog and prints playable results.
func (r *Runner) Search(ctx context.Context, cmd *cli.Command) error {
	query := cmd.StringArg("query")
	if query == "" {
		return fmt.Errorf("%w: query", shared.ErrMissingArgument)
	}

	svc, err := r.services()
	if err != nil {
		return err
	}

	tracks, err := svc.Catalog.Search(ctx, query)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	if limit := cmd.Int("limit"); limit > 0 && len(tracks) > limit {
		tracks = tracks[:limit]
	}

	if cmd.Bool("json") {
		return r.writeJSON(tracks, cmd.Bool("pretty"))
	}

	r.writePlainHeader(fmt.Sprintf("Results for %q (%d)", query, len(tracks)))
	r.writeTracks(tracks)
	return nil
}

// Resolve prints the stream URL for a track id.
func (r *Runner) Resolve(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: id", shared.ErrMissingArgument)
	}

	quality, err := r.quality(cmd)
	if err != nil {
		return err
	}

	svc, err := r.services()
	if err != nil {
		return err
	}

	url, err := svc.Resolver.Resolve(ctx, id, quality)
	if err != nil {
		return fmt.Errorf("failed to resolve track %s: %w", id, err)
	}
	r.logger.Debug("resolved", "id", id, "quality", quality, "endpoint", svc.Pool.Current())
	return r.writePlain("%s\n", url)
}

type endpointInfo struct {
	Base    string `json:"base"`
	Current bool   `json:"current"`
}

// Endpoints lists the proxy pool in rotation order and marks the active endpoint.
func (r *Runner) Endpoints(ctx context.Context, cmd *cli.Command) error {
	pool, err := services.NewEndpointPool(r.config.Endpoints.Bases, r.config.Endpoints.Cooldown.Duration, r.logger)
	if err != nil {
		return err
	}

	infos := make([]endpointInfo, pool.Size())
	for i, base := range pool.Bases() {
		infos[i] = endpointInfo{Base: base, Current: i == pool.Index()}
	}

	if cmd.Bool("json") {
		return r.writeJSON(infos, cmd.Bool("pretty"))
	}

	r.writePlainHeader(fmt.Sprintf("Endpoints (cooldown %s)", pool.Cooldown()))
	for i, info := range infos {
		marker := " "
		if info.Current {
			marker = "*"
		}
		r.writePlain("%s %d. %s\n", marker, i+1, info.Base)
	}
	return nil
}

// Lyrics prints lyrics for artist and title.
func (r *Runner) Lyrics(ctx context.Context, cmd *cli.Command) error {
	artist, title := cmd.StringArg("artist"), cmd.StringArg("title")
	if artist == "" || title == "" {
		return fmt.Errorf("%w: artist and title", shared.ErrMissingArgument)
	}

	svc, err := r.services()
	if err != nil {
		return err
	}

	text, err := svc.Lyrics.FetchLyrics(ctx, title, artist)
	if err != nil {
		return fmt.Errorf("failed to fetch lyrics: %w", err)
	}

	r.writePlainHeader(fmt.Sprintf("%s - %s", artist, title))
	for _, line := range services.LyricsLines(text) {
		r.writePlain("%s\n", line)
	}
	return nil
}
