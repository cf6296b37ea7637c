// Package repositories implements SQLite persistence for the player.
//
// Key Implementations:
//   - [PreferenceRepository] : flat key-value store read by the playback core at startup
//   - [LikedTrackRepository] : liked tracks, which drive like status and seed suggestions
//   - [PlaylistRepository] : local playlists and their ordered tracks, with soft deletes
//
// Sequence numbers provide stable, human-readable ordering (e.g., playlist #15) independent of UUIDs and creation timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
