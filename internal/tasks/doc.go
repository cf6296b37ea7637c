// Package tasks runs the player's background jobs with real-time progress reporting.
//
// # Suggestions
//
// [SuggestionBuilder] implements queue.Fetcher. It seeds radio mode from the user's liked tracks:
//
//  1. Pick random liked artists (5 when the pool is empty, 3 when it grows)
//  2. Search the catalog by artist name
//  3. Drop liked tracks and duplicate ids, then shuffle
//
// # Offline Cache
//
// [OfflineCache] downloads a playlist for offline playback. It uses a worker pool with a shared
// rate limiter; each worker resolves a stream URL and hands it to a [Downloader].
// Individual failures are recorded in the result and do not stop the run.
//
// # Progress Reporting
//
// Operations accept an optional progress channel. The [ProgressUpdate] struct contains phase, step counters,
// messages, and optional data for advanced UI rendering. Updates use select with default to prevent blocking.
package tasks
