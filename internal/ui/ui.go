package ui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/hifix/internal/models"
	"github.com/desertthunder/hifix/internal/playback"
	"github.com/desertthunder/hifix/internal/queue"
	"github.com/desertthunder/hifix/internal/services"
	"github.com/desertthunder/hifix/internal/shared"
)

const (
	seekStep        = 5.0
	volumeStep      = 0.05
	sleepDuration   = 30 * time.Minute
	noticeLifetime  = 4 * time.Second
	chromeHeight    = 9
	defaultListSize = 20

	crossfadeStep    = time.Second
	minCrossfade     = time.Second
	maxCrossfade     = 12 * time.Second
	defaultCrossfade = 5 * time.Second
)

// ViewState represents the current tab in the TUI.
type ViewState int

const (
	QueueView ViewState = iota
	SearchView
	LyricsView
	PlaylistsView
)

var viewNames = []string{"Queue", "Search", "Lyrics", "Playlists"}

func (v ViewState) String() string { return viewNames[v] }

// Player is the playback surface the TUI drives; [playback.Controller] implements it.
type Player interface {
	Subscribe() (<-chan playback.Event, func())
	Snapshot() playback.Snapshot
	Queue() *queue.Manager
	Play(ctx context.Context, t models.Track) error
	PlayQueue(ctx context.Context, tracks []models.Track, start int) error
	PlayAt(ctx context.Context, i int) error
	Next(ctx context.Context) error
	Previous(ctx context.Context) error
	Retry(ctx context.Context) error
	TogglePlayPause() error
	Seek(fraction float64) error
	SetVolume(v float64) error
	ToggleShuffle() bool
	CycleRepeat() models.RepeatMode
	SetQuality(q models.Quality) error
	SetCrossfade(enabled bool, d time.Duration) error
	ToggleLike(ctx context.Context) (bool, error)
	Enqueue(tracks ...models.Track)
	RemoveFromQueue(i int) (models.Track, error)
	MoveInQueue(from, to int) error
	StartSleepTimer(d time.Duration) error
	CancelSleepTimer() bool
	SleepRemaining() (time.Duration, bool)
}

var _ Player = (*playback.Controller)(nil)

// PlaylistSource lists and saves local playlists; repositories.PlaylistRepository implements it.
type PlaylistSource interface {
	List(criteria map[string]any) ([]*models.PersistedPlaylist, error)
	Tracks(playlistID string) ([]models.Track, error)
	SaveTracks(name, description string, tracks []models.Track) (*models.PersistedPlaylist, int, error)
}

// Deps are the collaborators of the TUI. Only Player is required.
type Deps struct {
	Player    Player
	Searcher  services.Searcher
	Albums    services.AlbumFetcher
	Lyrics    services.LyricsFetcher
	Playlists PlaylistSource
	Sync      services.LyricsSync
}

// Model represents the TUI application state.
type Model struct {
	ctx    context.Context
	deps   Deps
	events <-chan playback.Event
	stop   func()

	view     ViewState
	width    int
	height   int
	snap     playback.Snapshot
	showHelp bool

	queueList    list.Model
	searchList   list.Model
	playlistList list.Model
	input        textinput.Model

	lyricsFor  string
	lyricLines []string
	lyricsErr  error

	notice   *playback.Notice
	noticeAt time.Time

	help help.Model
	keys keyMap
}

// NewModel creates a new TUI model subscribed to the player's events.
func NewModel(ctx context.Context, deps Deps) *Model {
	if deps.Sync == nil {
		deps.Sync = services.DefaultLyricsSync()
	}

	input := textinput.New()
	input.Placeholder = "artist, title or album"
	input.CharLimit = 120
	input.Prompt = "/ "

	m := &Model{
		ctx:          ctx,
		deps:         deps,
		view:         QueueView,
		snap:         deps.Player.Snapshot(),
		queueList:    newList("Queue"),
		searchList:   newList("Search"),
		playlistList: newList("Playlists"),
		input:        input,
		help:         help.New(),
		keys:         newKeyMap(),
	}
	m.events, m.stop = deps.Player.Subscribe()
	m.refreshQueue()
	return m
}

func newList(title string) list.Model {
	l := list.New(nil, list.NewDefaultDelegate(), 0, defaultListSize)
	l.Title = title
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.DisableQuitKeybindings()
	return l
}

// Init starts listening for player events and loads playlists.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.waitForEvent(), m.fetchPlaylists())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		h := max(msg.Height-chromeHeight, 3)
		m.queueList.SetSize(msg.Width-4, h)
		m.searchList.SetSize(msg.Width-4, h-2)
		m.playlistList.SetSize(msg.Width-4, h)
		m.input.Width = msg.Width - 8
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateActiveList(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgPlayerEvent:
		return m, tea.Batch(m.applyEvent(msg.data.(playback.Event)), m.waitForEvent())

	case MsgEventsClosed:
		m.events = nil
		return m, nil

	case MsgSearchDone:
		res := msg.data.(searchResult)
		if res.err != nil {
			return m, m.setNotice(playback.Passive, "search failed", res.err)
		}
		m.searchList.Title = "Search: " + res.query
		return m, m.searchList.SetItems(trackItems(res.tracks, -1))

	case MsgLyricsFetched:
		res := msg.data.(lyricsResult)
		if res.trackID != m.snap.TrackID {
			return m, nil
		}
		m.lyricLines, m.lyricsErr = res.lines, res.err
		return m, nil

	case MsgPlaylistsFetched:
		data := msg.data.(struct {
			playlists []models.Playlist
			err       error
		})
		if data.err != nil {
			return m, m.setNotice(playback.Passive, "failed to load playlists", data.err)
		}
		return m, m.playlistList.SetItems(playlistItems(data.playlists))

	case MsgPlaylistTracks:
		data := msg.data.(struct {
			tracks []models.Track
			err    error
		})
		if data.err != nil {
			return m, m.setNotice(playback.Passive, "failed to load playlist", data.err)
		}
		if len(data.tracks) == 0 {
			return m, m.setNotice(playback.Passive, "playlist is empty", nil)
		}
		m.view = QueueView
		m.queueList.Title = "Queue"
		return m, m.do("play playlist", func() error {
			return m.deps.Player.PlayQueue(m.ctx, data.tracks, 0)
		})

	case MsgAlbumFetched:
		res := msg.data.(albumResult)
		if res.err != nil {
			return m, m.setNotice(playback.Passive, "failed to load album", res.err)
		}
		start := 0
		for i, t := range res.page.Tracks {
			if t.ID == res.trackID {
				start = i
				break
			}
		}
		m.view = QueueView
		m.queueList.Title = "Queue: " + res.page.Album.Title
		tracks := res.page.Tracks
		return m, m.do("play album", func() error { return m.deps.Player.PlayQueue(m.ctx, tracks, start) })

	case MsgQueueSaved:
		res := msg.data.(savedResult)
		if res.err != nil {
			return m, m.setNotice(playback.Passive, "failed to save queue", res.err)
		}
		return m, tea.Batch(
			m.setNotice(playback.Passive, fmt.Sprintf("saved %d tracks to %s", res.added, res.name), nil),
			m.fetchPlaylists(),
		)

	case MsgActionDone:
		res := msg.data.(actionResult)
		// start failures are already reported by the player's own notices
		if res.err == nil || errors.Is(res.err, shared.ErrSuperseded) || m.snap.State == playback.StateError.String() {
			return m, nil
		}
		return m, m.setNotice(playback.Passive, res.action+" failed", res.err)

	case MsgNoticeExpired:
		if m.notice != nil && m.notice.Severity == playback.Passive && m.noticeAt.Equal(msg.data.(time.Time)) {
			m.notice = nil
		}
		return m, nil
	}
	return m, nil
}

// applyEvent folds a player event into the view.
func (m *Model) applyEvent(ev playback.Event) tea.Cmd {
	prev := m.snap.TrackID
	m.snap = ev.Snapshot

	var cmds []tea.Cmd
	switch ev.Kind {
	case playback.EventQueue, playback.EventTrack:
		m.refreshQueue()
	case playback.EventNotice:
		if ev.Notice != nil {
			cmds = append(cmds, m.setNotice(ev.Notice.Severity, ev.Notice.Message, ev.Notice.Err))
		}
	}

	if m.snap.TrackID != prev {
		m.lyricLines, m.lyricsErr, m.lyricsFor = nil, nil, ""
		if m.view == LyricsView {
			cmds = append(cmds, m.fetchLyrics())
		}
	}
	return tea.Batch(cmds...)
}

func (m *Model) setNotice(sev playback.Severity, message string, err error) tea.Cmd {
	at := time.Now()
	m.notice = &playback.Notice{Severity: sev, Message: message, Err: err}
	m.noticeAt = at
	if sev == playback.Blocking {
		return nil
	}
	return tea.Tick(noticeLifetime, func(time.Time) tea.Msg { return noticeExpiredMsg(at) })
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.input.Focused() {
		return m.handleInputKeys(msg)
	}
	if m.activeList() != nil && m.activeList().FilterState() == list.Filtering {
		return m.updateActiveList(msg)
	}

	p := m.deps.Player
	switch {
	case key.Matches(msg, m.keys.quit):
		m.stop()
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		if m.notice != nil {
			m.notice = nil
			return m, nil
		}
	case key.Matches(msg, m.keys.help):
		m.showHelp = !m.showHelp
		return m, nil
	case key.Matches(msg, m.keys.tab):
		m.view = (m.view + 1) % ViewState(len(viewNames))
		if m.view == LyricsView {
			return m, m.fetchLyrics()
		}
		return m, nil
	case key.Matches(msg, m.keys.search):
		m.view = SearchView
		return m, m.input.Focus()
	case key.Matches(msg, m.keys.toggle):
		return m, m.do("play/pause", p.TogglePlayPause)
	case key.Matches(msg, m.keys.next):
		return m, m.do("next", func() error { return p.Next(m.ctx) })
	case key.Matches(msg, m.keys.previous):
		return m, m.do("previous", func() error { return p.Previous(m.ctx) })
	case key.Matches(msg, m.keys.retry):
		return m, m.do("retry", func() error { return p.Retry(m.ctx) })
	case key.Matches(msg, m.keys.forward):
		return m, m.seekBy(seekStep)
	case key.Matches(msg, m.keys.rewind):
		return m, m.seekBy(-seekStep)
	case key.Matches(msg, m.keys.volUp):
		return m, m.do("volume", func() error { return p.SetVolume(m.snap.Volume + volumeStep) })
	case key.Matches(msg, m.keys.volDown):
		return m, m.do("volume", func() error { return p.SetVolume(m.snap.Volume - volumeStep) })
	case key.Matches(msg, m.keys.shuffle):
		p.ToggleShuffle()
		return m, nil
	case key.Matches(msg, m.keys.repeat):
		p.CycleRepeat()
		return m, nil
	case key.Matches(msg, m.keys.crossfade):
		return m, m.setCrossfade(!m.snap.Crossfade, m.crossfadeDuration())
	case key.Matches(msg, m.keys.fadeLonger):
		return m, m.setCrossfade(m.snap.Crossfade, m.crossfadeDuration()+crossfadeStep)
	case key.Matches(msg, m.keys.fadeShorter):
		return m, m.setCrossfade(m.snap.Crossfade, m.crossfadeDuration()-crossfadeStep)
	case key.Matches(msg, m.keys.quality):
		q := models.Quality(m.snap.Quality).Next()
		return m, m.do("quality", func() error { return p.SetQuality(q) })
	case key.Matches(msg, m.keys.like):
		return m, m.do("like", func() error {
			_, err := p.ToggleLike(m.ctx)
			return err
		})
	case key.Matches(msg, m.keys.sleep):
		if p.CancelSleepTimer() {
			return m, m.setNotice(playback.Passive, "sleep timer cancelled", nil)
		}
		return m, m.do("sleep timer", func() error { return p.StartSleepTimer(sleepDuration) })
	}

	switch m.view {
	case QueueView:
		return m.handleQueueKeys(msg)
	case SearchView:
		return m.handleSearchKeys(msg)
	case PlaylistsView:
		return m.handlePlaylistKeys(msg)
	}
	return m, nil
}

func (m *Model) handleInputKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.input.Blur()
		return m, nil
	case tea.KeyEnter:
		m.input.Blur()
		return m, m.runSearch(m.input.Value())
	case tea.KeyCtrlC:
		m.stop()
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleQueueKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	i := m.queueList.Index()
	p := m.deps.Player

	switch {
	case key.Matches(msg, m.keys.enter):
		if len(m.queueList.Items()) == 0 {
			return m, nil
		}
		return m, m.do("play", func() error { return p.PlayAt(m.ctx, i) })
	case key.Matches(msg, m.keys.remove):
		if len(m.queueList.Items()) == 0 {
			return m, nil
		}
		if _, err := p.RemoveFromQueue(i); err != nil {
			return m, m.setNotice(playback.Passive, "remove failed", err)
		}
		return m, nil
	case key.Matches(msg, m.keys.save):
		return m, m.saveQueue()
	case key.Matches(msg, m.keys.moveUp):
		return m, m.move(i, i-1)
	case key.Matches(msg, m.keys.moveDown):
		return m, m.move(i, i+1)
	}

	var cmd tea.Cmd
	m.queueList, cmd = m.queueList.Update(msg)
	return m, cmd
}

func (m *Model) move(from, to int) tea.Cmd {
	if to < 0 || to >= len(m.queueList.Items()) {
		return nil
	}
	if err := m.deps.Player.MoveInQueue(from, to); err != nil {
		return m.setNotice(playback.Passive, "move failed", err)
	}
	m.refreshQueue()
	m.queueList.Select(to)
	return nil
}

func (m *Model) handleSearchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	item, ok := m.searchList.SelectedItem().(trackItem)

	switch {
	case key.Matches(msg, m.keys.enter):
		if !ok {
			return m, nil
		}
		return m, m.do("play", func() error { return m.deps.Player.Play(m.ctx, item.track) })
	case key.Matches(msg, m.keys.add):
		if !ok {
			return m, nil
		}
		m.deps.Player.Enqueue(item.track)
		return m, m.setNotice(playback.Passive, "queued "+item.track.Label(), nil)
	case key.Matches(msg, m.keys.album):
		if !ok {
			return m, nil
		}
		return m, m.fetchAlbum(item.track)
	}

	var cmd tea.Cmd
	m.searchList, cmd = m.searchList.Update(msg)
	return m, cmd
}

func (m *Model) handlePlaylistKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.enter) {
		item, ok := m.playlistList.SelectedItem().(playlistItem)
		if !ok {
			return m, nil
		}
		return m, m.fetchPlaylistTracks(item.playlist.ID)
	}

	var cmd tea.Cmd
	m.playlistList, cmd = m.playlistList.Update(msg)
	return m, cmd
}

func (m *Model) activeList() *list.Model {
	switch m.view {
	case QueueView:
		return &m.queueList
	case SearchView:
		return &m.searchList
	case PlaylistsView:
		return &m.playlistList
	default:
		return nil
	}
}

func (m *Model) updateActiveList(msg tea.Msg) (tea.Model, tea.Cmd) {
	l := m.activeList()
	if l == nil {
		return m, nil
	}
	var cmd tea.Cmd
	*l, cmd = l.Update(msg)
	return m, cmd
}

func (m *Model) refreshQueue() {
	q := m.deps.Player.Queue()
	idx := m.queueList.Index()
	m.queueList.SetItems(trackItems(q.Tracks(), q.CurrentIndex()))
	if n := len(m.queueList.Items()); idx >= n && n > 0 {
		m.queueList.Select(n - 1)
	}
}

func (m *Model) crossfadeDuration() time.Duration {
	if m.snap.CrossfadeSeconds <= 0 {
		return defaultCrossfade
	}
	return time.Duration(m.snap.CrossfadeSeconds * float64(time.Second))
}

func (m *Model) setCrossfade(enabled bool, d time.Duration) tea.Cmd {
	d = min(max(d, minCrossfade), maxCrossfade)
	return m.do("crossfade", func() error { return m.deps.Player.SetCrossfade(enabled, d) })
}

func (m *Model) seekBy(delta float64) tea.Cmd {
	if m.snap.Duration <= 0 {
		return nil
	}
	fraction := (m.snap.Progress + delta) / m.snap.Duration
	return m.do("seek", func() error { return m.deps.Player.Seek(fraction) })
}

// do runs a player call as a command so the UI never waits on the network.
func (m *Model) do(action string, fn func() error) tea.Cmd {
	return func() tea.Msg {
		return actionDoneMsg(action, fn())
	}
}

func (m *Model) waitForEvent() tea.Cmd {
	events := m.events
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return eventsClosedMsg()
		}
		return playerEventMsg(ev)
	}
}

func (m *Model) runSearch(query string) tea.Cmd {
	if m.deps.Searcher == nil || query == "" {
		return nil
	}
	return func() tea.Msg {
		tracks, err := m.deps.Searcher.Search(m.ctx, query)
		return searchDoneMsg(query, tracks, err)
	}
}

func (m *Model) fetchLyrics() tea.Cmd {
	if m.deps.Lyrics == nil || !m.snap.HasTrack() || m.lyricsFor == m.snap.TrackID {
		return nil
	}
	m.lyricsFor = m.snap.TrackID
	id, title, artist := m.snap.TrackID, m.snap.Title, m.snap.Artist
	return func() tea.Msg {
		text, err := m.deps.Lyrics.FetchLyrics(m.ctx, title, artist)
		return lyricsFetchedMsg(id, services.LyricsLines(text), err)
	}
}

func (m *Model) fetchPlaylists() tea.Cmd {
	if m.deps.Playlists == nil {
		return nil
	}
	return func() tea.Msg {
		stored, err := m.deps.Playlists.List(nil)
		playlists := make([]models.Playlist, len(stored))
		for i, p := range stored {
			playlists[i] = p.DTO()
		}
		return playlistsFetchedMsg(playlists, err)
	}
}

func (m *Model) fetchPlaylistTracks(id string) tea.Cmd {
	return func() tea.Msg {
		tracks, err := m.deps.Playlists.Tracks(id)
		return playlistTracksMsg(tracks, err)
	}
}

func (m *Model) fetchAlbum(t models.Track) tea.Cmd {
	if m.deps.Albums == nil {
		return nil
	}
	if t.Album.ID == "" {
		return m.setNotice(playback.Passive, "no album for "+t.Label(), nil)
	}
	return func() tea.Msg {
		page, err := m.deps.Albums.Album(m.ctx, t.Album.ID)
		return albumFetchedMsg(t.ID, page, err)
	}
}

// saveQueue stores the current queue as a new playlist named after the time it was saved.
func (m *Model) saveQueue() tea.Cmd {
	if m.deps.Playlists == nil {
		return nil
	}
	tracks := m.deps.Player.Queue().Tracks()
	if len(tracks) == 0 {
		return m.setNotice(playback.Passive, "queue is empty", nil)
	}
	name := "Queue " + time.Now().Format("2006-01-02 15:04")
	return func() tea.Msg {
		_, added, err := m.deps.Playlists.SaveTracks(name, "Saved from queue", tracks)
		return queueSavedMsg(name, added, err)
	}
}
