package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/hifix/internal/models"
	"github.com/desertthunder/hifix/internal/playback"
	"github.com/desertthunder/hifix/internal/services"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgPlayerEvent MsgKind = iota
	MsgEventsClosed
	MsgSearchDone
	MsgLyricsFetched
	MsgPlaylistsFetched
	MsgPlaylistTracks
	MsgAlbumFetched
	MsgQueueSaved
	MsgActionDone
	MsgNoticeExpired
)

type searchResult struct {
	query  string
	tracks []models.Track
	err    error
}

type lyricsResult struct {
	trackID string
	lines   []string
	err     error
}

type albumResult struct {
	trackID string
	page    *services.AlbumPage
	err     error
}

type savedResult struct {
	name  string
	added int
	err   error
}

type actionResult struct {
	action string
	err    error
}

// playerEventMsg is the constructor for [MsgPlayerEvent]
func playerEventMsg(ev playback.Event) Msg {
	return Msg{kind: MsgPlayerEvent, data: ev}
}

// eventsClosedMsg is the constructor for [MsgEventsClosed]
func eventsClosedMsg() Msg {
	return Msg{kind: MsgEventsClosed}
}

// searchDoneMsg is the constructor for [MsgSearchDone]
func searchDoneMsg(query string, tracks []models.Track, err error) Msg {
	return Msg{kind: MsgSearchDone, data: searchResult{query, tracks, err}}
}

// lyricsFetchedMsg is the constructor for [MsgLyricsFetched]
func lyricsFetchedMsg(trackID string, lines []string, err error) Msg {
	return Msg{kind: MsgLyricsFetched, data: lyricsResult{trackID, lines, err}}
}

// playlistsFetchedMsg is the constructor for [MsgPlaylistsFetched]
func playlistsFetchedMsg(playlists []models.Playlist, err error) Msg {
	return Msg{
		kind: MsgPlaylistsFetched,
		data: struct {
			playlists []models.Playlist
			err       error
		}{playlists, err},
	}
}

// playlistTracksMsg is the constructor for [MsgPlaylistTracks]
func playlistTracksMsg(tracks []models.Track, err error) Msg {
	return Msg{
		kind: MsgPlaylistTracks,
		data: struct {
			tracks []models.Track
			err    error
		}{tracks, err},
	}
}

// albumFetchedMsg is the constructor for [MsgAlbumFetched]
func albumFetchedMsg(trackID string, page *services.AlbumPage, err error) Msg {
	return Msg{kind: MsgAlbumFetched, data: albumResult{trackID, page, err}}
}

// queueSavedMsg is the constructor for [MsgQueueSaved]
func queueSavedMsg(name string, added int, err error) Msg {
	return Msg{kind: MsgQueueSaved, data: savedResult{name, added, err}}
}

// actionDoneMsg is the constructor for [MsgActionDone]
func actionDoneMsg(action string, err error) Msg {
	return Msg{kind: MsgActionDone, data: actionResult{action, err}}
}

// noticeExpiredMsg is the constructor for [MsgNoticeExpired]
func noticeExpiredMsg(at time.Time) Msg {
	return Msg{kind: MsgNoticeExpired, data: at}
}
