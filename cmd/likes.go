package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/hifix/internal/repositories"
	"github.com/desertthunder/hifix/internal/shared"
)

func (r *Runner) likes() (*repositories.LikedTrackRepository, error) {
	db, err := r.database()
	if err != nil {
		return nil, err
	}
	return repositories.NewLikedTrackRepository(db), nil
}

// LikesList prints liked tracks, newest first.
func (r *Runner) LikesList(ctx context.Context, cmd *cli.Command) error {
	repo, err := r.likes()
	if err != nil {
		return err
	}

	liked, err := repo.List()
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(liked, cmd.Bool("pretty"))
	}

	if len(liked) == 0 {
		return r.writePlain("No liked tracks yet.\n")
	}
	r.writePlainHeader(fmt.Sprintf("Liked tracks (%d)", len(liked)))
	for i, l := range liked {
		r.writePlain("%3d. %s  %s  (%s)\n", i+1, l.Track.Label(), l.Track.ID, l.LikedAt.Format("2006-01-02"))
	}
	return nil
}

// LikesAdd searches the catalog and likes the chosen result.
func (r *Runner) LikesAdd(ctx context.Context, cmd *cli.Command) error {
	query := cmd.StringArg("query")
	if query == "" {
		return fmt.Errorf("%w: query", shared.ErrMissingArgument)
	}

	index := cmd.Int("index")
	if index < 1 {
		return fmt.Errorf("%w: --index must be at least 1", shared.ErrInvalidFlag)
	}

	svc, err := r.services()
	if err != nil {
		return err
	}
	tracks, err := svc.Catalog.Search(ctx, query)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	if index > len(tracks) {
		return fmt.Errorf("%w: %d results for %q", shared.ErrTrackNotFound, len(tracks), query)
	}

	repo, err := r.likes()
	if err != nil {
		return err
	}
	t := tracks[index-1]
	if err := repo.Like(t); err != nil {
		return err
	}
	return r.writePlain("♥ Liked %s\n", t.Label())
}

// LikesRemove unlikes a track by id.
func (r *Runner) LikesRemove(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: track id", shared.ErrMissingArgument)
	}

	repo, err := r.likes()
	if err != nil {
		return err
	}
	if err := repo.Unlike(id); err != nil {
		return err
	}
	return r.writePlain("✓ Unliked %s\n", id)
}
