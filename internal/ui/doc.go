// Package ui implements the interactive player using bubbletea's Elm architecture.
//
// The TUI has four tabbed views over a persistent now-playing bar:
//  1. [QueueView] : the play queue, with suggestions marked when radio mode takes over
//  2. [SearchView] : catalog search with a text input
//  3. [LyricsView] : lyrics for the current track, highlighted with a [services.LyricsSync]
//  4. [PlaylistsView] : local playlists, played as a whole queue
//
// The (view) [Model] implements the standard Init/Update/View pattern. It never mutates playback
// state itself: keys call into the [Player], and the resulting [playback.Event] stream is fed back
// through the Msg union. Player calls that wait on the network run as commands.
//
// Blocking notices stay on screen until dismissed with esc; passive notices expire on their own.
package ui
