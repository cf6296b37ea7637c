package main

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/hifix/internal/bridge"
	"github.com/desertthunder/hifix/internal/models"
	"github.com/desertthunder/hifix/internal/playback"
	"github.com/desertthunder/hifix/internal/player"
	"github.com/desertthunder/hifix/internal/queue"
	"github.com/desertthunder/hifix/internal/repositories"
	"github.com/desertthunder/hifix/internal/server"
	"github.com/desertthunder/hifix/internal/services"
	"github.com/desertthunder/hifix/internal/shared"
	"github.com/desertthunder/hifix/internal/tasks"
	"github.com/desertthunder/hifix/internal/ui"
)

// TUI launches the interactive player.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	logPath := r.config.Log.File
	if logPath == "" {
		logPath = "./tmp/hifix.log"
	}
	fileLogger, err := shared.NewFileLogger(logPath)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	shared.SetLogLevel(fileLogger, shared.ParseLogLevel(r.config.Log.Level))
	r.SetLogger(fileLogger)

	svc, err := r.services()
	if err != nil {
		return err
	}
	db, err := r.database()
	if err != nil {
		return err
	}

	prefs := repositories.NewPreferenceRepository(db)
	likes := repositories.NewLikedTrackRepository(db)
	playlists := repositories.NewPlaylistRepository(db)

	seed, err := r.seedTracks(ctx, cmd, svc, playlists)
	if err != nil {
		return err
	}

	builder := tasks.NewSuggestionBuilder(likes, svc.Catalog, r.config.Suggestions, nil, r.logger)
	q := queue.NewManager(queue.ManagerOpts{
		Suggestions: queue.NewSuggestionPool(builder, r.config.Suggestions, r.logger),
		Prefs:       prefs,
		Logger:      r.logger,
	})

	latest := bridge.NewLatest()
	broadcasters := bridge.Multi{latest}
	if r.config.Bridge.RedisAddr != "" {
		rb, err := bridge.NewRedisBroadcaster(ctx, r.config.Bridge, r.logger)
		if err != nil {
			r.logger.Warn("redis broadcast disabled", "error", err)
		} else {
			defer rb.Close()
			broadcasters = append(broadcasters, rb)
		}
	}

	controller, err := playback.NewController(playback.Options{
		Factory:        player.NewFactory(r.config.Player, r.logger),
		Resolver:       svc.Resolver,
		Queue:          q,
		Prefs:          prefs,
		Likes:          likes,
		Broadcaster:    broadcasters,
		Settings:       playback.SettingsFromConfig(r.config.Playback),
		CrossfadeSteps: r.config.Playback.CrossfadeSteps,
		SuppressWindow: r.config.Playback.SuppressWindow.Duration,
		Logger:         r.logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create player: %w", err)
	}
	defer controller.Close()

	if addr := r.config.Bridge.HTTPAddr; addr != "" {
		srvCtx, stop := context.WithCancel(ctx)
		defer stop()
		go r.serveNowPlaying(srvCtx, addr, latest, controller)
	}

	model := ui.NewModel(ctx, ui.Deps{
		Player:    controller,
		Searcher:  svc.Catalog,
		Albums:    svc.Catalog,
		Lyrics:    svc.Lyrics,
		Playlists: playlists,
		Sync:      services.DefaultLyricsSync(),
	})

	if len(seed) > 0 {
		go func() {
			if err := controller.PlayQueue(ctx, seed, 0); err != nil && !errors.Is(err, shared.ErrSuperseded) {
				r.logger.Warn("failed to start seeded queue", "error", err)
			}
		}()
	}

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}

// seedTracks returns the initial queue from --playlist, --album or --query.
func (r *Runner) seedTracks(ctx context.Context, cmd *cli.Command, svc *services.Services, playlists *repositories.PlaylistRepository) ([]models.Track, error) {
	if name := cmd.String("playlist"); name != "" {
		p, err := findPlaylist(playlists, name)
		if err != nil {
			return nil, err
		}
		return playlists.Tracks(p.ID())
	}

	if id := cmd.String("album"); id != "" {
		page, err := svc.Catalog.Album(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to load album %s: %w", id, err)
		}
		return page.Tracks, nil
	}

	if query := cmd.String("query"); query != "" {
		tracks, err := svc.Catalog.Search(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("search failed: %w", err)
		}
		return tracks, nil
	}
	return nil, nil
}

func (r *Runner) serveNowPlaying(ctx context.Context, addr string, latest *bridge.Latest, controls server.Controls) {
	router := server.NewBasicRouter()
	router.Use(server.Recover(r.logger), server.Logging(r.logger))
	router.Handler(server.NewNowPlayingHandler(latest, controls, r.logger))

	if err := server.New(addr, router, r.logger).ListenAndServe(ctx); err != nil {
		r.logger.Error("now-playing server stopped", "addr", addr, "error", err)
	}
}
