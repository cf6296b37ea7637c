package repositories

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/desertthunder/hifix/internal/models"
	"github.com/desertthunder/hifix/internal/shared"
	tu "github.com/desertthunder/hifix/internal/testing"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	// every pooled connection to :memory: would see its own empty database
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		t.Fatalf("failed to enable foreign keys: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func TestNextSequence(t *testing.T) {
	t.Run("Increments", func(t *testing.T) {
		db := setupTestDB(t)

		for want := 1; want <= 3; want++ {
			got, err := NextSequence(db, "playlists")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != want {
				t.Errorf("expected sequence %d, got %d", want, got)
			}
		}
	})

	t.Run("Unknown Table", func(t *testing.T) {
		db := setupTestDB(t)

		if _, err := NextSequence(db, "nope"); err == nil {
			t.Error("expected error for missing sequence table")
		}
	})
}

func TestPreferenceRepository(t *testing.T) {
	t.Run("Missing Key", func(t *testing.T) {
		repo := NewPreferenceRepository(setupTestDB(t))

		if _, ok := repo.Get("volume"); ok {
			t.Error("expected missing key")
		}
		if _, err := repo.Lookup("volume"); !errors.Is(err, sql.ErrNoRows) {
			t.Errorf("expected sql.ErrNoRows, got %v", err)
		}
	})

	t.Run("Set Then Get", func(t *testing.T) {
		repo := NewPreferenceRepository(setupTestDB(t))

		if err := repo.Set("volume", "0.30"); err != nil {
			t.Fatalf("failed to set: %v", err)
		}
		if err := repo.Set("volume", "0.55"); err != nil {
			t.Fatalf("failed to overwrite: %v", err)
		}

		v, ok := repo.Get("volume")
		if !ok || v != "0.55" {
			t.Errorf("expected 0.55, got %q (ok=%v)", v, ok)
		}
	})

	t.Run("All And Delete", func(t *testing.T) {
		repo := NewPreferenceRepository(setupTestDB(t))
		repo.Set("quality", "LOSSLESS")
		repo.Set("shuffle", "true")

		if err := repo.Delete("shuffle"); err != nil {
			t.Fatalf("failed to delete: %v", err)
		}
		if err := repo.Delete("shuffle"); err != nil {
			t.Errorf("deleting a missing key should succeed, got %v", err)
		}

		all, err := repo.All()
		if err != nil {
			t.Fatalf("failed to list: %v", err)
		}
		if len(all) != 1 || all["quality"] != "LOSSLESS" {
			t.Errorf("unexpected preferences: %v", all)
		}
	})
}

func TestLikedTrackRepository(t *testing.T) {
	t.Run("Like And Unlike", func(t *testing.T) {
		repo := NewLikedTrackRepository(setupTestDB(t))
		track := tu.MakeTrack("1", "Nujabes")

		if err := repo.Like(track); err != nil {
			t.Fatalf("failed to like: %v", err)
		}
		if err := repo.Like(track); err != nil {
			t.Fatalf("liking twice should succeed, got %v", err)
		}

		liked, err := repo.IsLiked("1")
		if err != nil || !liked {
			t.Fatalf("expected liked, got %v (err=%v)", liked, err)
		}

		if err := repo.Unlike("1"); err != nil {
			t.Fatalf("failed to unlike: %v", err)
		}
		if liked, _ := repo.IsLiked("1"); liked {
			t.Error("expected track to be unliked")
		}
	})

	t.Run("Rejects Incomplete Track", func(t *testing.T) {
		repo := NewLikedTrackRepository(setupTestDB(t))

		err := repo.Like(models.Track{ID: "1"})
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("Get Round Trips Fields", func(t *testing.T) {
		repo := NewLikedTrackRepository(setupTestDB(t))
		track := tu.MakeTrack("7", "Burial")
		track.Album = models.Album{ID: "a1", Title: "Untrue", Cover: "cover-id"}
		repo.Like(track)

		got, err := repo.Get("7")
		if err != nil {
			t.Fatalf("failed to get: %v", err)
		}
		if got.Track.Title != track.Title || got.Track.Album != track.Album || got.Track.Duration != track.Duration {
			t.Errorf("expected %+v, got %+v", track, got.Track)
		}
		if got.LikedAt.IsZero() {
			t.Error("expected liked_at to be set")
		}

		if _, err := repo.Get("missing"); !errors.Is(err, shared.ErrTrackNotFound) {
			t.Errorf("expected ErrTrackNotFound, got %v", err)
		}
	})

	t.Run("IDs And Artists", func(t *testing.T) {
		repo := NewLikedTrackRepository(setupTestDB(t))
		for _, tr := range append(tu.MakeTracks("Burial", "1", "2"), tu.MakeTrack("3", "Actress")) {
			if err := repo.Like(tr); err != nil {
				t.Fatalf("failed to like: %v", err)
			}
		}

		ids, err := repo.LikedIDs()
		if err != nil || len(ids) != 3 {
			t.Errorf("expected 3 ids, got %v (err=%v)", ids, err)
		}

		artists, err := repo.Artists()
		if err != nil {
			t.Fatalf("failed to list artists: %v", err)
		}
		if len(artists) != 2 || artists[0] != "Actress" || artists[1] != "Burial" {
			t.Errorf("unexpected artists: %v", artists)
		}

		list, err := repo.List()
		if err != nil || len(list) != 3 {
			t.Errorf("expected 3 liked tracks, got %d (err=%v)", len(list), err)
		}
	})
}

func TestPlaylistRepository(t *testing.T) {
	create := func(t *testing.T, repo *PlaylistRepository, name string) *models.PersistedPlaylist {
		t.Helper()
		p := models.NewPersistedPlaylist(name, "")
		if err := repo.Create(p); err != nil {
			t.Fatalf("failed to create playlist: %v", err)
		}
		return p
	}

	t.Run("Create", func(t *testing.T) {
		repo := NewPlaylistRepository(setupTestDB(t))
		first := create(t, repo, "Late Night")
		second := create(t, repo, "Morning")

		if first.ID() == "" {
			t.Error("playlist ID should be set after creation")
		}
		if first.Sequence() != 1 || second.Sequence() != 2 {
			t.Errorf("expected sequences 1 and 2, got %d and %d", first.Sequence(), second.Sequence())
		}
	})

	t.Run("Create Requires Name", func(t *testing.T) {
		repo := NewPlaylistRepository(setupTestDB(t))

		if err := repo.Create(models.NewPersistedPlaylist("  ", "")); err == nil {
			t.Error("expected validation error")
		}
	})

	t.Run("Get And GetByName", func(t *testing.T) {
		repo := NewPlaylistRepository(setupTestDB(t))
		p := create(t, repo, "Late Night")

		got, err := repo.Get(p.ID())
		if err != nil {
			t.Fatalf("failed to get: %v", err)
		}
		if got.Name() != "Late Night" {
			t.Errorf("expected name Late Night, got %s", got.Name())
		}

		byName, err := repo.GetByName("late night")
		if err != nil || byName.ID() != p.ID() {
			t.Errorf("expected lookup by name to find %s, got %v (err=%v)", p.ID(), byName, err)
		}

		if _, err := repo.Get("missing"); !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("expected ErrPlaylistNotFound, got %v", err)
		}
	})

	t.Run("Update", func(t *testing.T) {
		repo := NewPlaylistRepository(setupTestDB(t))
		p := create(t, repo, "Draft")

		p.SetName("Final")
		p.SetDescription("done")
		if err := repo.Update(p); err != nil {
			t.Fatalf("failed to update: %v", err)
		}

		got, _ := repo.Get(p.ID())
		if got.Name() != "Final" || got.Description() != "done" {
			t.Errorf("unexpected playlist after update: %s %q", got.Name(), got.Description())
		}
	})

	t.Run("Soft Delete", func(t *testing.T) {
		repo := NewPlaylistRepository(setupTestDB(t))
		p := create(t, repo, "Gone")
		create(t, repo, "Kept")

		if err := repo.Delete(p.ID()); err != nil {
			t.Fatalf("failed to delete: %v", err)
		}
		if _, err := repo.Get(p.ID()); !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("expected deleted playlist to be hidden, got %v", err)
		}
		if err := repo.Delete(p.ID()); !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("expected second delete to fail, got %v", err)
		}

		list, err := repo.List(nil)
		if err != nil || len(list) != 1 || list[0].Name() != "Kept" {
			t.Errorf("expected only Kept, got %v (err=%v)", list, err)
		}
	})

	t.Run("List Filters By Name", func(t *testing.T) {
		repo := NewPlaylistRepository(setupTestDB(t))
		create(t, repo, "Jazz Mornings")
		create(t, repo, "Techno")

		list, err := repo.List(map[string]any{"name": "Jazz"})
		if err != nil || len(list) != 1 {
			t.Errorf("expected 1 playlist, got %d (err=%v)", len(list), err)
		}
	})

	t.Run("Tracks Keep Order", func(t *testing.T) {
		repo := NewPlaylistRepository(setupTestDB(t))
		p := create(t, repo, "Mix")

		added, err := repo.AddTracks(p.ID(), tu.MakeTracks("Burial", "3", "1", "2"))
		if err != nil || added != 3 {
			t.Fatalf("expected 3 added, got %d (err=%v)", added, err)
		}
		added, err = repo.AddTracks(p.ID(), tu.MakeTracks("Burial", "1", "4"))
		if err != nil || added != 1 {
			t.Fatalf("expected duplicates to be skipped, got %d added (err=%v)", added, err)
		}

		tracks, err := repo.Tracks(p.ID())
		if err != nil {
			t.Fatalf("failed to get tracks: %v", err)
		}
		var ids []string
		for _, tr := range tracks {
			ids = append(ids, tr.ID)
		}
		if len(ids) != 4 || ids[0] != "3" || ids[1] != "1" || ids[2] != "2" || ids[3] != "4" {
			t.Errorf("unexpected order: %v", ids)
		}

		got, _ := repo.Get(p.ID())
		if got.TrackCount() != 4 {
			t.Errorf("expected track count 4, got %d", got.TrackCount())
		}
	})

	t.Run("Remove Track", func(t *testing.T) {
		repo := NewPlaylistRepository(setupTestDB(t))
		p := create(t, repo, "Mix")
		repo.AddTracks(p.ID(), tu.MakeTracks("Burial", "1", "2"))

		if err := repo.RemoveTrack(p.ID(), "1"); err != nil {
			t.Fatalf("failed to remove: %v", err)
		}
		if err := repo.RemoveTrack(p.ID(), "1"); !errors.Is(err, shared.ErrTrackNotFound) {
			t.Errorf("expected ErrTrackNotFound, got %v", err)
		}
	})

	t.Run("AddTracks Unknown Playlist", func(t *testing.T) {
		repo := NewPlaylistRepository(setupTestDB(t))

		_, err := repo.AddTracks("missing", tu.MakeTracks("Burial", "1"))
		if !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("expected ErrPlaylistNotFound, got %v", err)
		}
	})

	t.Run("SaveTracks Creates Then Appends", func(t *testing.T) {
		repo := NewPlaylistRepository(setupTestDB(t))

		p, added, err := repo.SaveTracks("Queue Snapshot", "Saved from queue", tu.MakeTracks("Burial", "1", "2"))
		if err != nil {
			t.Fatalf("failed to save: %v", err)
		}
		if added != 2 || p.Description() != "Saved from queue" {
			t.Errorf("expected 2 added to a new playlist, got %d (%q)", added, p.Description())
		}

		again, added, err := repo.SaveTracks("queue snapshot", "", tu.MakeTracks("Burial", "2", "3"))
		if err != nil {
			t.Fatalf("failed to save again: %v", err)
		}
		if again.ID() != p.ID() || added != 1 {
			t.Errorf("expected 1 track appended to %s, got %d on %s", p.ID(), added, again.ID())
		}

		tracks, _ := repo.Tracks(p.ID())
		if len(tracks) != 3 {
			t.Errorf("expected 3 tracks, got %d", len(tracks))
		}
	})

	t.Run("SaveTracks Requires Name", func(t *testing.T) {
		repo := NewPlaylistRepository(setupTestDB(t))

		if _, _, err := repo.SaveTracks(" ", "", tu.MakeTracks("Burial", "1")); err == nil {
			t.Error("expected validation error")
		}
	})

	t.Run("Export", func(t *testing.T) {
		repo := NewPlaylistRepository(setupTestDB(t))
		p := create(t, repo, "Mix")
		repo.AddTracks(p.ID(), tu.MakeTracks("Burial", "1", "2"))

		export, err := repo.Export(p.ID())
		if err != nil {
			t.Fatalf("failed to export: %v", err)
		}
		if export.Playlist.Name != "Mix" || export.Playlist.TrackCount != 2 || len(export.Tracks) != 2 {
			t.Errorf("unexpected export: %+v", export)
		}
	})
}
