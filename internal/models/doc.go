// Package models defines domain entities and persistence interfaces for the hifix player.
//
// The package contains two categories of types:
//
// 1. Value objects shared by the playback core and its collaborators:
//   - [Track] : Immutable track metadata; a resolved copy carries a stream URL
//   - [Playlist] / [PlaylistExport] : Playlist metadata and its ordered tracks
//   - [Quality] : Requested stream quality
//   - [RepeatMode] : Off / All / One
//
// 2. Persistent Entities: Database-backed models with lifecycle management
//   - [PersistedPlaylist] : Locally stored playlists with sequence ordering and soft delete
//   - [LikedTrack] : Tracks the user liked, which seed radio-mode suggestions
//
// Persistent entities implement the [Model] interface providing ID, timestamps and validation.
// The [Repository] interface defines standard CRUD operations for database access.
package models
