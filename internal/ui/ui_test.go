package ui

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/hifix/internal/models"
	"github.com/desertthunder/hifix/internal/playback"
	"github.com/desertthunder/hifix/internal/queue"
	"github.com/desertthunder/hifix/internal/services"
	"github.com/desertthunder/hifix/internal/shared"
	tu "github.com/desertthunder/hifix/internal/testing"
)

type fakePlayer struct {
	mu      sync.Mutex
	emitter *playback.Emitter
	queue   *queue.Manager
	snap    playback.Snapshot
	calls   []string
	seeks   []float64
	volume  float64
	played  []models.Track
	sleep   bool
	err     error

	quality   models.Quality
	crossfade bool
	fade      time.Duration
}

func newFakePlayer(tracks ...models.Track) *fakePlayer {
	q := queue.NewManager(queue.ManagerOpts{})
	q.Set(tracks, 0)
	return &fakePlayer{emitter: playback.NewEmitter(8), queue: q}
}

func (p *fakePlayer) record(call string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, call)
	return p.err
}

func (p *fakePlayer) called(call string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range p.calls {
		if c == call {
			return true
		}
	}
	return false
}

func (p *fakePlayer) Subscribe() (<-chan playback.Event, func()) { return p.emitter.Subscribe() }
func (p *fakePlayer) Snapshot() playback.Snapshot                 { return p.snap }
func (p *fakePlayer) Queue() *queue.Manager                       { return p.queue }

func (p *fakePlayer) Play(ctx context.Context, t models.Track) error {
	p.mu.Lock()
	p.played = append(p.played, t)
	p.mu.Unlock()
	return p.record("play")
}

func (p *fakePlayer) PlayQueue(ctx context.Context, tracks []models.Track, start int) error {
	p.queue.Set(tracks, start)
	return p.record("playQueue")
}

func (p *fakePlayer) PlayAt(ctx context.Context, i int) error { return p.record("playAt") }
func (p *fakePlayer) Next(ctx context.Context) error          { return p.record("next") }
func (p *fakePlayer) Previous(ctx context.Context) error      { return p.record("previous") }
func (p *fakePlayer) Retry(ctx context.Context) error         { return p.record("retry") }
func (p *fakePlayer) TogglePlayPause() error                  { return p.record("toggle") }

func (p *fakePlayer) Seek(fraction float64) error {
	p.mu.Lock()
	p.seeks = append(p.seeks, fraction)
	p.mu.Unlock()
	return p.record("seek")
}

func (p *fakePlayer) SetVolume(v float64) error {
	p.mu.Lock()
	p.volume = v
	p.mu.Unlock()
	return p.record("volume")
}

func (p *fakePlayer) ToggleShuffle() bool {
	p.record("shuffle")
	return true
}

func (p *fakePlayer) CycleRepeat() models.RepeatMode {
	p.record("repeat")
	return models.RepeatAll
}

func (p *fakePlayer) SetQuality(q models.Quality) error {
	p.mu.Lock()
	p.quality = q
	p.mu.Unlock()
	return p.record("quality")
}

func (p *fakePlayer) SetCrossfade(enabled bool, d time.Duration) error {
	p.mu.Lock()
	p.crossfade, p.fade = enabled, d
	p.mu.Unlock()
	return p.record("crossfade")
}

func (p *fakePlayer) ToggleLike(ctx context.Context) (bool, error) {
	return true, p.record("like")
}

func (p *fakePlayer) Enqueue(tracks ...models.Track) { p.queue.Append(tracks...) }

func (p *fakePlayer) RemoveFromQueue(i int) (models.Track, error) { return p.queue.Remove(i) }
func (p *fakePlayer) MoveInQueue(from, to int) error              { return p.queue.Reorder(from, to) }

func (p *fakePlayer) StartSleepTimer(d time.Duration) error {
	p.sleep = true
	return p.record("sleep")
}

func (p *fakePlayer) CancelSleepTimer() bool {
	was := p.sleep
	p.sleep = false
	return was
}

func (p *fakePlayer) SleepRemaining() (time.Duration, bool) {
	if p.sleep {
		return sleepDuration, true
	}
	return 0, false
}

type fakeLyrics struct {
	text string
	err  error
}

func (f fakeLyrics) FetchLyrics(ctx context.Context, title, artist string) (string, error) {
	return f.text, f.err
}

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

// exec runs a single command and feeds its message back into the model.
func exec(t *testing.T, m *Model, cmd tea.Cmd) {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}
	m.Update(cmd())
}

func snapshotFor(tr models.Track) playback.Snapshot {
	return playback.Snapshot{
		TrackID:    tr.ID,
		Title:      tr.Title,
		Artist:     tr.Artist.Name,
		Duration:   100,
		Progress:   10,
		Volume:     0.5,
		RepeatMode: "off",
		State:      playback.StatePlaying.String(),
		IsPlaying:  true,
	}
}

func TestModelControls(t *testing.T) {
	tests := []struct {
		name string
		key  tea.KeyMsg
		call string
	}{
		{"Toggle", runes(" "), "toggle"},
		{"Next", runes("n"), "next"},
		{"Previous", runes("p"), "previous"},
		{"Retry", runes("R"), "retry"},
		{"Like", runes("f"), "like"},
		{"Seek", tea.KeyMsg{Type: tea.KeyRight}, "seek"},
		{"Volume", runes("+"), "volume"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newFakePlayer(tu.MakeTracks("Artist", "a", "b")...)
			p.snap = snapshotFor(p.queue.Tracks()[0])
			m := NewModel(context.Background(), Deps{Player: p})

			_, cmd := m.Update(tt.key)
			exec(t, m, cmd)

			if !p.called(tt.call) {
				t.Errorf("expected %q call, got %v", tt.call, p.calls)
			}
			if m.notice != nil {
				t.Errorf("unexpected notice: %+v", m.notice)
			}
		})
	}

	t.Run("Modes Apply Immediately", func(t *testing.T) {
		p := newFakePlayer()
		m := NewModel(context.Background(), Deps{Player: p})

		m.Update(runes("s"))
		m.Update(runes("r"))

		if !p.called("shuffle") || !p.called("repeat") {
			t.Errorf("expected shuffle and repeat, got %v", p.calls)
		}
	})

	t.Run("Seek Steps Five Seconds", func(t *testing.T) {
		p := newFakePlayer(tu.MakeTrack("a", "Artist"))
		p.snap = snapshotFor(tu.MakeTrack("a", "Artist"))
		m := NewModel(context.Background(), Deps{Player: p})

		_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyLeft})
		exec(t, m, cmd)

		if len(p.seeks) != 1 || p.seeks[0] != 0.05 {
			t.Errorf("expected seek to 0.05, got %v", p.seeks)
		}
	})

	t.Run("Seek Without Duration Is Ignored", func(t *testing.T) {
		p := newFakePlayer()
		m := NewModel(context.Background(), Deps{Player: p})

		if _, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRight}); cmd != nil {
			t.Error("expected no command without a duration")
		}
	})

	t.Run("Volume Steps From Snapshot", func(t *testing.T) {
		p := newFakePlayer()
		p.snap.Volume = 0.5
		m := NewModel(context.Background(), Deps{Player: p})

		_, cmd := m.Update(runes("-"))
		exec(t, m, cmd)

		if math.Abs(p.volume-0.45) > 1e-9 {
			t.Errorf("expected volume 0.45, got %v", p.volume)
		}
	})

	t.Run("Sleep Key Toggles Timer", func(t *testing.T) {
		p := newFakePlayer()
		m := NewModel(context.Background(), Deps{Player: p})

		_, cmd := m.Update(runes("z"))
		exec(t, m, cmd)
		if !p.sleep {
			t.Fatal("expected sleep timer to start")
		}

		m.Update(runes("z"))
		if p.sleep {
			t.Error("expected sleep timer to be cancelled")
		}
		if m.notice == nil || !strings.Contains(m.notice.Message, "cancelled") {
			t.Errorf("expected cancellation notice, got %+v", m.notice)
		}
	})

	t.Run("Quit Unsubscribes", func(t *testing.T) {
		p := newFakePlayer()
		m := NewModel(context.Background(), Deps{Player: p})
		events := m.events

		_, cmd := m.Update(runes("q"))
		if cmd == nil {
			t.Fatal("expected quit command")
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Error("expected tea.QuitMsg")
		}
		if _, open := <-events; open {
			t.Error("expected subscription to be closed")
		}
	})
}

func TestModelEvents(t *testing.T) {
	t.Run("Event Updates Snapshot And Queue", func(t *testing.T) {
		p := newFakePlayer(tu.MakeTrack("a", "Artist"))
		m := NewModel(context.Background(), Deps{Player: p})

		p.queue.Append(tu.MakeTrack("b", "Artist"))
		snap := snapshotFor(tu.MakeTrack("a", "Artist"))
		m.Update(playerEventMsg(playback.Event{Kind: playback.EventQueue, Snapshot: snap}))

		if m.snap.TrackID != "a" {
			t.Errorf("expected snapshot for a, got %q", m.snap.TrackID)
		}
		if len(m.queueList.Items()) != 2 {
			t.Errorf("expected 2 queue items, got %d", len(m.queueList.Items()))
		}
		if item := m.queueList.Items()[0].(trackItem); !item.current {
			t.Error("expected first item to be marked current")
		}
	})

	t.Run("Events Closed Stops Listening", func(t *testing.T) {
		p := newFakePlayer()
		m := NewModel(context.Background(), Deps{Player: p})

		m.Update(eventsClosedMsg())

		if m.waitForEvent() != nil {
			t.Error("expected no wait command after close")
		}
	})

	t.Run("Track Change Clears Lyrics", func(t *testing.T) {
		p := newFakePlayer()
		m := NewModel(context.Background(), Deps{Player: p})
		m.lyricLines = []string{"old"}

		m.Update(playerEventMsg(playback.Event{Kind: playback.EventTrack, Snapshot: snapshotFor(tu.MakeTrack("b", "X"))}))

		if m.lyricLines != nil {
			t.Errorf("expected lyrics to reset, got %v", m.lyricLines)
		}
	})
}

func TestModelNotices(t *testing.T) {
	t.Run("Passive Notice Expires", func(t *testing.T) {
		p := newFakePlayer()
		m := NewModel(context.Background(), Deps{Player: p})

		notice := &playback.Notice{Severity: playback.Passive, Message: "track skipped"}
		m.Update(playerEventMsg(playback.Event{Kind: playback.EventNotice, Notice: notice}))
		if m.notice == nil {
			t.Fatal("expected notice")
		}

		m.Update(noticeExpiredMsg(m.noticeAt))
		if m.notice != nil {
			t.Error("expected passive notice to expire")
		}
	})

	t.Run("Stale Expiry Keeps Newer Notice", func(t *testing.T) {
		p := newFakePlayer()
		m := NewModel(context.Background(), Deps{Player: p})

		m.setNotice(playback.Passive, "first", nil)
		old := m.noticeAt
		m.setNotice(playback.Passive, "second", nil)
		m.noticeAt = old.Add(time.Second)

		m.Update(noticeExpiredMsg(old))
		if m.notice == nil || m.notice.Message != "second" {
			t.Errorf("expected second notice to remain, got %+v", m.notice)
		}
	})

	t.Run("Blocking Notice Needs Dismissal", func(t *testing.T) {
		p := newFakePlayer()
		m := NewModel(context.Background(), Deps{Player: p})

		if cmd := m.setNotice(playback.Blocking, "could not start playback", shared.ErrStreamNotFound); cmd != nil {
			t.Error("expected no expiry for blocking notice")
		}
		m.Update(noticeExpiredMsg(m.noticeAt))
		if m.notice == nil {
			t.Fatal("expected blocking notice to remain")
		}
		if !strings.Contains(m.View(), "could not start playback") {
			t.Error("expected notice in view")
		}

		m.Update(tea.KeyMsg{Type: tea.KeyEsc})
		if m.notice != nil {
			t.Error("expected esc to dismiss notice")
		}
	})

	t.Run("Failed Action Shows Notice", func(t *testing.T) {
		p := newFakePlayer()
		p.err = shared.ErrNothingPlaying
		m := NewModel(context.Background(), Deps{Player: p})

		_, cmd := m.Update(runes("f"))
		exec(t, m, cmd)

		if m.notice == nil || !errors.Is(m.notice.Err, shared.ErrNothingPlaying) {
			t.Errorf("expected nothing playing notice, got %+v", m.notice)
		}
	})

	t.Run("Superseded Action Is Silent", func(t *testing.T) {
		p := newFakePlayer()
		m := NewModel(context.Background(), Deps{Player: p})

		m.Update(actionDoneMsg("next", shared.ErrSuperseded))
		if m.notice != nil {
			t.Errorf("expected no notice, got %+v", m.notice)
		}
	})
}

func TestModelQueueView(t *testing.T) {
	t.Run("Remove Selected", func(t *testing.T) {
		p := newFakePlayer(tu.MakeTracks("Artist", "a", "b", "c")...)
		m := NewModel(context.Background(), Deps{Player: p})
		m.queueList.Select(1)

		m.Update(runes("x"))

		if p.queue.Len() != 2 {
			t.Fatalf("expected 2 tracks, got %d", p.queue.Len())
		}
		if p.queue.Tracks()[1].ID != "c" {
			t.Errorf("expected c at index 1, got %s", p.queue.Tracks()[1].ID)
		}
	})

	t.Run("Move Down Follows Selection", func(t *testing.T) {
		p := newFakePlayer(tu.MakeTracks("Artist", "a", "b", "c")...)
		m := NewModel(context.Background(), Deps{Player: p})
		m.queueList.Select(0)

		m.Update(runes("J"))

		if got := p.queue.Tracks()[1].ID; got != "a" {
			t.Errorf("expected a at index 1, got %s", got)
		}
		if m.queueList.Index() != 1 {
			t.Errorf("expected selection at 1, got %d", m.queueList.Index())
		}
	})

	t.Run("Move Past End Is Ignored", func(t *testing.T) {
		p := newFakePlayer(tu.MakeTracks("Artist", "a", "b")...)
		m := NewModel(context.Background(), Deps{Player: p})
		m.queueList.Select(0)

		m.Update(runes("K"))

		if got := p.queue.Tracks()[0].ID; got != "a" {
			t.Errorf("expected queue unchanged, got %s first", got)
		}
	})

	t.Run("Enter Plays Selected", func(t *testing.T) {
		p := newFakePlayer(tu.MakeTracks("Artist", "a", "b")...)
		m := NewModel(context.Background(), Deps{Player: p})

		_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		exec(t, m, cmd)

		if !p.called("playAt") {
			t.Errorf("expected playAt, got %v", p.calls)
		}
	})
}

func TestModelSearch(t *testing.T) {
	results := map[string][]models.Track{"daft": tu.MakeTracks("Daft Punk", "x", "y")}

	t.Run("Query Populates Results", func(t *testing.T) {
		p := newFakePlayer()
		searcher := tu.NewMockSearcher(results)
		m := NewModel(context.Background(), Deps{Player: p, Searcher: searcher})

		m.Update(runes("/"))
		if m.view != SearchView || !m.input.Focused() {
			t.Fatal("expected focused search input")
		}
		m.Update(runes("daft"))
		_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		exec(t, m, cmd)

		if searcher.Calls() != 1 {
			t.Errorf("expected 1 search, got %d", searcher.Calls())
		}
		if len(m.searchList.Items()) != 2 {
			t.Errorf("expected 2 results, got %d", len(m.searchList.Items()))
		}
	})

	t.Run("Add And Play Results", func(t *testing.T) {
		p := newFakePlayer()
		m := NewModel(context.Background(), Deps{Player: p, Searcher: tu.NewMockSearcher(results)})
		m.view = SearchView
		m.Update(searchDoneMsg("daft", results["daft"], nil))

		m.Update(runes("a"))
		if p.queue.Len() != 1 {
			t.Errorf("expected 1 queued track, got %d", p.queue.Len())
		}

		_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		exec(t, m, cmd)
		if len(p.played) != 1 || p.played[0].ID != "x" {
			t.Errorf("expected x to play, got %v", p.played)
		}
	})

	t.Run("Search Error Becomes Notice", func(t *testing.T) {
		p := newFakePlayer()
		m := NewModel(context.Background(), Deps{Player: p})

		m.Update(searchDoneMsg("q", nil, shared.ErrServiceUnavailable))

		if m.notice == nil || !errors.Is(m.notice.Err, shared.ErrServiceUnavailable) {
			t.Errorf("expected service notice, got %+v", m.notice)
		}
	})

	t.Run("Escape Leaves Input", func(t *testing.T) {
		p := newFakePlayer()
		m := NewModel(context.Background(), Deps{Player: p})

		m.Update(runes("/"))
		m.Update(tea.KeyMsg{Type: tea.KeyEsc})

		if m.input.Focused() {
			t.Error("expected input to blur")
		}
	})
}

func TestModelLyrics(t *testing.T) {
	t.Run("Fetch On Lyrics Tab", func(t *testing.T) {
		tr := tu.MakeTrack("a", "Artist")
		p := newFakePlayer(tr)
		p.snap = snapshotFor(tr)
		m := NewModel(context.Background(), Deps{Player: p, Lyrics: fakeLyrics{text: "one\ntwo\nthree"}})
		m.view = SearchView

		_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyTab})
		if m.view != LyricsView {
			t.Fatalf("expected lyrics view, got %s", m.view)
		}
		exec(t, m, cmd)

		if len(m.lyricLines) != 3 {
			t.Fatalf("expected 3 lines, got %v", m.lyricLines)
		}
		if !strings.Contains(m.View(), "two") {
			t.Error("expected lyrics in view")
		}
	})

	t.Run("Stale Lyrics Are Dropped", func(t *testing.T) {
		tr := tu.MakeTrack("a", "Artist")
		p := newFakePlayer(tr)
		p.snap = snapshotFor(tr)
		m := NewModel(context.Background(), Deps{Player: p})

		m.Update(lyricsFetchedMsg("other", []string{"nope"}, nil))

		if m.lyricLines != nil {
			t.Errorf("expected no lyrics, got %v", m.lyricLines)
		}
	})

	t.Run("Missing Lyrics Render Reason", func(t *testing.T) {
		tr := tu.MakeTrack("a", "Artist")
		p := newFakePlayer(tr)
		p.snap = snapshotFor(tr)
		m := NewModel(context.Background(), Deps{Player: p})
		m.view = LyricsView

		m.Update(lyricsFetchedMsg("a", nil, shared.ErrLyricsNotFound))

		if !strings.Contains(m.View(), "No lyrics") {
			t.Error("expected missing lyrics message")
		}
	})
}

type fakePlaylists struct {
	playlists []*models.PersistedPlaylist
	tracks    map[string][]models.Track
	saved     map[string][]models.Track
	err       error
}

func (f *fakePlaylists) List(map[string]any) ([]*models.PersistedPlaylist, error) {
	return f.playlists, nil
}

func (f *fakePlaylists) Tracks(id string) ([]models.Track, error) { return f.tracks[id], nil }

func (f *fakePlaylists) SaveTracks(name, description string, tracks []models.Track) (*models.PersistedPlaylist, int, error) {
	if f.err != nil {
		return nil, 0, f.err
	}
	if f.saved == nil {
		f.saved = map[string][]models.Track{}
	}
	f.saved[name] = append(f.saved[name], tracks...)
	return models.NewPersistedPlaylist(name, description), len(tracks), nil
}

type fakeAlbums struct {
	pages map[string]*services.AlbumPage
}

func (f fakeAlbums) Album(ctx context.Context, id string) (*services.AlbumPage, error) {
	page, ok := f.pages[id]
	if !ok {
		return nil, shared.ErrAlbumNotFound
	}
	return page, nil
}

func TestModelPlaylists(t *testing.T) {
	pl := models.NewPersistedPlaylist("Road Trip", "")
	pl.SetID("pl-1")
	pl.SetTrackCount(2)
	source := &fakePlaylists{
		playlists: []*models.PersistedPlaylist{pl},
		tracks:    map[string][]models.Track{"pl-1": tu.MakeTracks("Artist", "a", "b")},
	}

	p := newFakePlayer()
	m := NewModel(context.Background(), Deps{Player: p, Playlists: source})
	exec(t, m, m.fetchPlaylists())

	if len(m.playlistList.Items()) != 1 {
		t.Fatalf("expected 1 playlist, got %d", len(m.playlistList.Items()))
	}

	m.view = PlaylistsView
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("expected playlist fetch")
	}
	_, cmd = m.Update(cmd())
	exec(t, m, cmd)

	if !p.called("playQueue") {
		t.Errorf("expected playlist to play, got %v", p.calls)
	}
	if m.view != QueueView {
		t.Errorf("expected queue view, got %s", m.view)
	}
}

func TestView(t *testing.T) {
	t.Run("Nothing Playing", func(t *testing.T) {
		m := NewModel(context.Background(), Deps{Player: newFakePlayer()})
		if !strings.Contains(m.View(), "Nothing playing") {
			t.Error("expected idle message")
		}
	})

	t.Run("Now Playing Bar", func(t *testing.T) {
		tr := tu.MakeTrack("a", "Artist")
		p := newFakePlayer(tr)
		p.snap = snapshotFor(tr)
		p.snap.IsShuffled = true
		p.sleep = true
		m := NewModel(context.Background(), Deps{Player: p})

		view := m.View()
		for _, want := range []string{tr.Title, "Artist", "0:10", "1:40", "shuffle", "vol: 50%", "sleep in 30:00"} {
			if !strings.Contains(view, want) {
				t.Errorf("expected %q in view", want)
			}
		}
	})

	t.Run("Progress Bar", func(t *testing.T) {
		tests := []struct {
			name     string
			position float64
			duration float64
			filled   int
		}{
			{"Empty", 0, 100, 0},
			{"Half", 50, 100, 5},
			{"Overflow", 150, 100, 10},
			{"No Duration", 10, 0, 0},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				bar := progressBar(tt.position, tt.duration, 10)
				if got := strings.Count(bar, "━"); got != tt.filled {
					t.Errorf("expected %d filled, got %d", tt.filled, got)
				}
			})
		}
	})
}

func TestModelSettings(t *testing.T) {
	t.Run("Quality Cycles From Snapshot", func(t *testing.T) {
		p := newFakePlayer()
		p.snap.Quality = string(models.QualityLossless)
		m := NewModel(context.Background(), Deps{Player: p})

		_, cmd := m.Update(runes("Q"))
		exec(t, m, cmd)

		if p.quality != models.QualityHigh {
			t.Errorf("expected HIGH, got %q", p.quality)
		}
	})

	tests := []struct {
		name    string
		key     string
		enabled bool
		seconds float64
		want    time.Duration
		on      bool
	}{
		{"Toggle On", "c", false, 4, 4 * time.Second, true},
		{"Toggle Off", "c", true, 4, 4 * time.Second, false},
		{"Toggle Uses Default", "c", false, 0, defaultCrossfade, true},
		{"Longer", "]", true, 4, 5 * time.Second, true},
		{"Shorter", "[", true, 4, 3 * time.Second, true},
		{"Shorter Clamps", "[", true, 1, minCrossfade, true},
		{"Longer Clamps", "]", false, 12, maxCrossfade, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newFakePlayer()
			p.snap.Crossfade = tt.enabled
			p.snap.CrossfadeSeconds = tt.seconds
			m := NewModel(context.Background(), Deps{Player: p})

			_, cmd := m.Update(runes(tt.key))
			exec(t, m, cmd)

			if !p.called("crossfade") {
				t.Fatalf("expected crossfade call, got %v", p.calls)
			}
			if p.crossfade != tt.on || p.fade != tt.want {
				t.Errorf("expected (%v, %s), got (%v, %s)", tt.on, tt.want, p.crossfade, p.fade)
			}
		})
	}

	t.Run("Crossfade Shown In Modes", func(t *testing.T) {
		tr := tu.MakeTrack("a", "Artist")
		p := newFakePlayer(tr)
		p.snap = snapshotFor(tr)
		p.snap.Crossfade = true
		p.snap.CrossfadeSeconds = 6
		m := NewModel(context.Background(), Deps{Player: p})

		if !strings.Contains(m.View(), "xfade 6s") {
			t.Error("expected crossfade duration in view")
		}
	})
}

func TestModelAlbums(t *testing.T) {
	album := tu.MakeTracks("Daft Punk", "x", "y", "z")
	for i := range album {
		album[i].Album = models.Album{ID: "album-x", Title: "Discovery", Cover: "c"}
	}
	albums := fakeAlbums{pages: map[string]*services.AlbumPage{
		"album-x": {Album: album[0].Album, Tracks: album},
	}}

	t.Run("Plays Album From Selected Track", func(t *testing.T) {
		p := newFakePlayer()
		m := NewModel(context.Background(), Deps{Player: p, Albums: albums})
		m.view = SearchView
		m.Update(searchDoneMsg("daft", album[1:2], nil))

		_, cmd := m.Update(runes("o"))
		if cmd == nil {
			t.Fatal("expected album fetch")
		}
		_, cmd = m.Update(cmd())
		if m.view != QueueView {
			t.Errorf("expected queue view, got %s", m.view)
		}
		exec(t, m, cmd)
		if !strings.Contains(m.queueList.Title, "Discovery") {
			t.Errorf("expected album title on queue, got %q", m.queueList.Title)
		}

		if !p.called("playQueue") {
			t.Fatalf("expected album to play, got %v", p.calls)
		}
		if p.queue.Len() != 3 || p.queue.CurrentIndex() != 1 {
			t.Errorf("expected album queued at y, got %d tracks at %d", p.queue.Len(), p.queue.CurrentIndex())
		}
	})

	t.Run("Unknown Album Becomes Notice", func(t *testing.T) {
		p := newFakePlayer()
		m := NewModel(context.Background(), Deps{Player: p, Albums: albums})
		m.view = SearchView
		m.Update(searchDoneMsg("q", tu.MakeTracks("Other", "q"), nil))

		_, cmd := m.Update(runes("o"))
		m.Update(cmd())

		if m.notice == nil || !errors.Is(m.notice.Err, shared.ErrAlbumNotFound) {
			t.Errorf("expected album notice, got %+v", m.notice)
		}
		if p.called("playQueue") {
			t.Error("expected nothing to play")
		}
	})
}

func TestModelSaveQueue(t *testing.T) {
	t.Run("Saves Queue As Playlist", func(t *testing.T) {
		p := newFakePlayer(tu.MakeTracks("Artist", "a", "b")...)
		source := &fakePlaylists{}
		m := NewModel(context.Background(), Deps{Player: p, Playlists: source})

		_, cmd := m.Update(runes("w"))
		if cmd == nil {
			t.Fatal("expected save command")
		}
		m.Update(cmd())

		if len(source.saved) != 1 {
			t.Fatalf("expected one saved playlist, got %v", source.saved)
		}
		for name, tracks := range source.saved {
			if !strings.HasPrefix(name, "Queue ") || len(tracks) != 2 {
				t.Errorf("unexpected save %q with %d tracks", name, len(tracks))
			}
		}
		if m.notice == nil || !strings.Contains(m.notice.Message, "saved 2 tracks") {
			t.Errorf("expected saved notice, got %+v", m.notice)
		}
	})

	t.Run("Empty Queue", func(t *testing.T) {
		source := &fakePlaylists{}
		m := NewModel(context.Background(), Deps{Player: newFakePlayer(), Playlists: source})

		m.Update(runes("w"))

		if len(source.saved) != 0 {
			t.Error("expected nothing saved")
		}
		if m.notice == nil || m.notice.Message != "queue is empty" {
			t.Errorf("expected empty queue notice, got %+v", m.notice)
		}
	})

	t.Run("Save Failure Becomes Notice", func(t *testing.T) {
		p := newFakePlayer(tu.MakeTrack("a", "Artist"))
		source := &fakePlaylists{err: shared.ErrInvalidInput}
		m := NewModel(context.Background(), Deps{Player: p, Playlists: source})

		_, cmd := m.Update(runes("w"))
		m.Update(cmd())

		if m.notice == nil || !errors.Is(m.notice.Err, shared.ErrInvalidInput) {
			t.Errorf("expected failure notice, got %+v", m.notice)
		}
	})
}
