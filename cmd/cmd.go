// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// flag constructors return fresh values; urfave/cli keeps parsed state on the flag itself.
func jsonFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  "json",
		Usage: "Output raw JSON",
	}
}

func prettyFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  "pretty",
		Usage: "Pretty-print output",
		Value: true,
	}
}

func qualityFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "quality",
		Aliases: []string{"q"},
		Usage:   "Stream quality (HI_RES_LOSSLESS, LOSSLESS, HIGH, LOW)",
	}
}

// setupCommand creates the config file and the database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create config.toml and initialize the database",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
		},
		Action: r.Setup,
	}
}

// tuiCommand returns the top-level command for the interactive player.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"play", "ui"},
		Usage:   "Launch the interactive player",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "query",
				Usage: "Seed the queue with search results",
			},
			&cli.StringFlag{
				Name:  "playlist",
				Usage: "Seed the queue with a saved playlist",
			},
			&cli.StringFlag{
				Name:  "album",
				Usage: "Seed the queue with a catalog album id",
			},
		},
		Action: r.TUI,
	}
}

func searchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "search",
		Usage: "Search the catalog for tracks",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name: "query",
			},
		},
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of results",
				Value: 20,
			},
			jsonFlag(),
			prettyFlag(),
		},
		Action: r.Search,
	}
}

func resolveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "resolve",
		Usage: "Resolve the stream URL for a track id",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name: "id",
			},
		},
		Flags:  []cli.Flag{qualityFlag()},
		Action: r.Resolve,
	}
}

func endpointsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "endpoints",
		Usage:  "List the configured proxy endpoints in rotation order",
		Flags:  []cli.Flag{jsonFlag(), prettyFlag()},
		Action: r.Endpoints,
	}
}

func lyricsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "lyrics",
		Usage: "Fetch lyrics for a track",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "artist"},
			&cli.StringArg{Name: "title"},
		},
		Action: r.Lyrics,
	}
}

// albumCommand looks up catalog albums
func albumCommand(r *Runner) *cli.Command {
	idArg := []cli.Argument{&cli.StringArg{Name: "id"}}

	return &cli.Command{
		Name:  "album",
		Usage: "Look up catalog albums",
		Commands: []*cli.Command{
			{
				Name:      "show",
				Usage:     "List an album's tracks",
				Arguments: idArg,
				Flags:     []cli.Flag{jsonFlag(), prettyFlag()},
				Action:    r.AlbumShow,
			},
			{
				Name:      "save",
				Usage:     "Save an album's tracks as a playlist",
				Arguments: idArg,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "name",
						Usage: "Playlist name (default: album title)",
					},
				},
				Action: r.AlbumSave,
			},
		},
	}
}

// playlistCommand handles local playlists
func playlistCommand(r *Runner) *cli.Command {
	nameArg := []cli.Argument{&cli.StringArg{Name: "name"}}

	return &cli.Command{
		Name:    "playlist",
		Aliases: []string{"pl"},
		Usage:   "Manage local playlists",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List playlists",
				Flags:  []cli.Flag{jsonFlag(), prettyFlag()},
				Action: r.PlaylistList,
			},
			{
				Name:      "create",
				Usage:     "Create an empty playlist",
				Arguments: nameArg,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "description",
						Usage: "Playlist description",
					},
				},
				Action: r.PlaylistCreate,
			},
			{
				Name:      "show",
				Usage:     "Show a playlist and its tracks",
				Arguments: nameArg,
				Flags:     []cli.Flag{jsonFlag(), prettyFlag()},
				Action:    r.PlaylistShow,
			},
			{
				Name:  "add",
				Usage: "Search the catalog and add the top result to a playlist",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "name"},
					&cli.StringArg{Name: "query"},
				},
				Action: r.PlaylistAdd,
			},
			{
				Name:  "remove",
				Usage: "Remove a track from a playlist",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "name"},
					&cli.StringArg{Name: "id"},
				},
				Action: r.PlaylistRemove,
			},
			{
				Name:      "delete",
				Usage:     "Delete a playlist",
				Arguments: nameArg,
				Action:    r.PlaylistDelete,
			},
			{
				Name:      "export",
				Usage:     "Export a playlist to m3u, csv, md, txt or json",
				Arguments: nameArg,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Export format",
						Value:   "m3u",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path (default: <name>.<ext>)",
					},
				},
				Action: r.PlaylistExport,
			},
			{
				Name:  "import",
				Usage: "Import a playlist from an m3u file",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "path"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "name",
						Usage: "Playlist name (default: name stored in the file)",
					},
				},
				Action: r.PlaylistImport,
			},
			{
				Name:      "download",
				Usage:     "Download a playlist for offline listening",
				Arguments: nameArg,
				Flags: []cli.Flag{
					qualityFlag(),
					&cli.StringFlag{
						Name:  "dir",
						Usage: "Download directory (default: download.dir)",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Concurrent downloads (default: download.workers)",
					},
					&cli.FloatFlag{
						Name:  "rate",
						Usage: "Resolutions per second (default: download.rate)",
					},
				},
				Action: r.PlaylistDownload,
			},
		},
	}
}

// likesCommand handles liked tracks
func likesCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "likes",
		Usage: "Manage liked tracks",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List liked tracks, newest first",
				Flags:  []cli.Flag{jsonFlag(), prettyFlag()},
				Action: r.LikesList,
			},
			{
				Name:  "add",
				Usage: "Search the catalog and like a result",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "query"},
				},
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "index",
						Usage: "1-based search result to like",
						Value: 1,
					},
				},
				Action: r.LikesAdd,
			},
			{
				Name:  "remove",
				Usage: "Unlike a track by id",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Action: r.LikesRemove,
			},
		},
	}
}
