package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/hifix/internal/services"
	"github.com/desertthunder/hifix/internal/shared"
)

// album fetches the album named by the "id" argument.
func (r *Runner) album(ctx context.Context, cmd *cli.Command) (*services.AlbumPage, error) {
	id := cmd.StringArg("id")
	if id == "" {
		return nil, fmt.Errorf("%w: id", shared.ErrMissingArgument)
	}

	svc, err := r.services()
	if err != nil {
		return nil, err
	}

	page, err := svc.Catalog.Album(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load album %s: %w", id, err)
	}
	return page, nil
}

// AlbumShow prints an album's playable tracks.
func (r *Runner) AlbumShow(ctx context.Context, cmd *cli.Command) error {
	page, err := r.album(ctx, cmd)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(page, cmd.Bool("pretty"))
	}

	r.writePlainHeader(fmt.Sprintf("%s - %s (%d tracks)", page.Artist.Name, page.Album.Title, len(page.Tracks)))
	r.writeTracks(page.Tracks)
	return nil
}

// AlbumSave stores an album's tracks in a local playlist, named after the album by default.
func (r *Runner) AlbumSave(ctx context.Context, cmd *cli.Command) error {
	page, err := r.album(ctx, cmd)
	if err != nil {
		return err
	}

	name := cmd.String("name")
	if name == "" {
		name = page.Album.Title
	}

	repo, err := r.playlists()
	if err != nil {
		return err
	}

	p, added, err := repo.SaveTracks(name, "Saved from album "+page.Album.Title, page.Tracks)
	if err != nil {
		return err
	}

	r.logger.Info("album saved", "album", page.Album.ID, "playlist", p.Name(), "added", added)
	return r.writePlain("✓ Saved %d of %d tracks into %s\n", added, len(page.Tracks), p.Name())
}
