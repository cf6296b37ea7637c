package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/hifix/internal/bridge"
	"github.com/desertthunder/hifix/internal/formatter"
	"github.com/desertthunder/hifix/internal/models"
	"github.com/desertthunder/hifix/internal/repositories"
	"github.com/desertthunder/hifix/internal/shared"
	"github.com/desertthunder/hifix/internal/tasks"
)

func (r *Runner) playlists() (*repositories.PlaylistRepository, error) {
	db, err := r.database()
	if err != nil {
		return nil, err
	}
	return repositories.NewPlaylistRepository(db), nil
}

// findPlaylist looks a playlist up by name, then by id.
func findPlaylist(repo *repositories.PlaylistRepository, nameOrID string) (*models.PersistedPlaylist, error) {
	if nameOrID == "" {
		return nil, fmt.Errorf("%w: playlist name", shared.ErrMissingArgument)
	}
	p, err := repo.GetByName(nameOrID)
	if errors.Is(err, shared.ErrPlaylistNotFound) {
		return repo.Get(nameOrID)
	}
	return p, err
}

// PlaylistList prints every live playlist.
func (r *Runner) PlaylistList(ctx context.Context, cmd *cli.Command) error {
	repo, err := r.playlists()
	if err != nil {
		return err
	}

	stored, err := repo.List(nil)
	if err != nil {
		return err
	}

	playlists := make([]models.Playlist, len(stored))
	for i, p := range stored {
		playlists[i] = p.DTO()
	}

	if cmd.Bool("json") {
		return r.writeJSON(playlists, cmd.Bool("pretty"))
	}

	if len(playlists) == 0 {
		return r.writePlain("No playlists. Create one with 'hifix playlist create <name>'.\n")
	}
	r.writePlainHeader(fmt.Sprintf("Playlists (%d)", len(playlists)))
	for _, p := range playlists {
		r.writePlain("%-30s %4d tracks  %s\n", p.Name, p.TrackCount, p.ID)
	}
	return nil
}

// PlaylistCreate creates an empty playlist.
func (r *Runner) PlaylistCreate(ctx context.Context, cmd *cli.Command) error {
	name := cmd.StringArg("name")
	if name == "" {
		return fmt.Errorf("%w: playlist name", shared.ErrMissingArgument)
	}

	repo, err := r.playlists()
	if err != nil {
		return err
	}

	p := models.NewPersistedPlaylist(name, cmd.String("description"))
	if err := repo.Create(p); err != nil {
		return fmt.Errorf("failed to create playlist: %w", err)
	}

	r.logger.Info("playlist created", "name", p.Name(), "id", p.ID())
	return r.writePlain("✓ Created playlist %s (%s)\n", p.Name(), p.ID())
}

// PlaylistShow prints a playlist and its tracks.
func (r *Runner) PlaylistShow(ctx context.Context, cmd *cli.Command) error {
	repo, err := r.playlists()
	if err != nil {
		return err
	}
	p, err := findPlaylist(repo, cmd.StringArg("name"))
	if err != nil {
		return err
	}
	export, err := repo.Export(p.ID())
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(export, cmd.Bool("pretty"))
	}

	r.writePlainHeader(fmt.Sprintf("%s (%d tracks)", p.Name(), len(export.Tracks)))
	if p.Description() != "" {
		r.writePlain("%s\n\n", p.Description())
	}
	r.writeTracks(export.Tracks)
	return nil
}

// PlaylistAdd searches the catalog and appends the top result.
func (r *Runner) PlaylistAdd(ctx context.Context, cmd *cli.Command) error {
	query := cmd.StringArg("query")
	if query == "" {
		return fmt.Errorf("%w: query", shared.ErrMissingArgument)
	}

	repo, err := r.playlists()
	if err != nil {
		return err
	}
	p, err := findPlaylist(repo, cmd.StringArg("name"))
	if err != nil {
		return err
	}

	svc, err := r.services()
	if err != nil {
		return err
	}
	tracks, err := svc.Catalog.Search(ctx, query)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	if len(tracks) == 0 {
		return fmt.Errorf("%w: no results for %q", shared.ErrTrackNotFound, query)
	}

	added, err := repo.AddTracks(p.ID(), tracks[:1])
	if err != nil {
		return err
	}
	if added == 0 {
		return r.writePlain("%s is already in %s\n", tracks[0].Label(), p.Name())
	}
	return r.writePlain("✓ Added %s to %s\n", tracks[0].Label(), p.Name())
}

// PlaylistRemove removes a track by id.
func (r *Runner) PlaylistRemove(ctx context.Context, cmd *cli.Command) error {
	trackID := cmd.StringArg("id")
	if trackID == "" {
		return fmt.Errorf("%w: track id", shared.ErrMissingArgument)
	}

	repo, err := r.playlists()
	if err != nil {
		return err
	}
	p, err := findPlaylist(repo, cmd.StringArg("name"))
	if err != nil {
		return err
	}
	if err := repo.RemoveTrack(p.ID(), trackID); err != nil {
		return err
	}
	return r.writePlain("✓ Removed %s from %s\n", trackID, p.Name())
}

// PlaylistDelete soft-deletes a playlist.
func (r *Runner) PlaylistDelete(ctx context.Context, cmd *cli.Command) error {
	repo, err := r.playlists()
	if err != nil {
		return err
	}
	p, err := findPlaylist(repo, cmd.StringArg("name"))
	if err != nil {
		return err
	}
	if err := repo.Delete(p.ID()); err != nil {
		return err
	}
	return r.writePlain("✓ Deleted %s\n", p.Name())
}

// PlaylistExport writes a playlist to disk in the requested format.
func (r *Runner) PlaylistExport(ctx context.Context, cmd *cli.Command) error {
	repo, err := r.playlists()
	if err != nil {
		return err
	}
	p, err := findPlaylist(repo, cmd.StringArg("name"))
	if err != nil {
		return err
	}
	export, err := repo.Export(p.ID())
	if err != nil {
		return err
	}

	path, err := formatter.Write(export, cmd.String("format"), cmd.String("output"))
	if err != nil {
		return err
	}

	r.logger.Info("playlist exported", "name", p.Name(), "format", cmd.String("format"), "path", path)
	return r.writePlain("✓ Exported %d tracks to %s\n", len(export.Tracks), path)
}

// PlaylistImport reads an m3u file into a playlist, creating it when needed.
func (r *Runner) PlaylistImport(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("path")
	if path == "" {
		return fmt.Errorf("%w: path", shared.ErrMissingArgument)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	parsed, err := formatter.ParseM3U(f)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}

	name := cmd.String("name")
	if name == "" {
		name = parsed.Playlist.Name
	}
	if name == "" {
		return fmt.Errorf("%w: file has no #PLAYLIST name, pass --name", shared.ErrMissingArgument)
	}

	repo, err := r.playlists()
	if err != nil {
		return err
	}

	p, added, err := repo.SaveTracks(name, "", parsed.Tracks)
	if err != nil {
		return err
	}

	r.logger.Info("playlist imported", "name", p.Name(), "parsed", len(parsed.Tracks), "added", added)
	return r.writePlain("✓ Imported %d of %d tracks into %s\n", added, len(parsed.Tracks), p.Name())
}

// PlaylistDownload caches a playlist for offline playback.
func (r *Runner) PlaylistDownload(ctx context.Context, cmd *cli.Command) error {
	quality, err := r.quality(cmd)
	if err != nil {
		return err
	}

	repo, err := r.playlists()
	if err != nil {
		return err
	}
	p, err := findPlaylist(repo, cmd.StringArg("name"))
	if err != nil {
		return err
	}
	export, err := repo.Export(p.ID())
	if err != nil {
		return err
	}

	svc, err := r.services()
	if err != nil {
		return err
	}

	dir := cmd.String("dir")
	if dir == "" {
		dir = r.config.Download.Dir
	}
	opts := tasks.OfflineCacheOpts{
		Quality:    quality,
		NumWorkers: r.config.Download.Workers,
		RateLimit:  r.config.Download.Rate,
	}
	if w := cmd.Int("workers"); w > 0 {
		opts.NumWorkers = w
	}
	if rate := cmd.Float("rate"); rate > 0 {
		opts.RateLimit = rate
	}

	cache := tasks.NewOfflineCache(svc.Resolver, bridge.NewDownloader(dir, r.httpClient, r.logger), r.logger)

	r.writePlain("Downloading %s (%d tracks) to %s\n\n", p.Name(), len(export.Tracks), dir)

	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			switch update.Phase {
			case tasks.DownloadTracks:
				r.writePlain("  %s\n", update.Message)
			case tasks.WriteManifest:
				r.writePlain("\n📝 %s\n", update.Message)
			}
		}
	}()

	result, err := cache.Download(ctx, progressCh, export, opts)
	close(progressCh)
	<-done

	if err != nil {
		return err
	}

	r.writePlain("\n")
	r.writePlainHeader("Download Complete!")
	r.writePlain("Downloaded: %d/%d\n", result.Downloaded, result.Total)
	if result.Failed > 0 {
		r.writePlain("\nFailed %d tracks:\n", result.Failed)
		for _, res := range result.Results {
			if res.Error != nil {
				r.writePlain("  ✗ %s: %v\n", res.Track.Label(), res.Error)
			}
		}
	}
	r.writePlain("Manifest: %s\n", result.ManifestPath)
	return nil
}
