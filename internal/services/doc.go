// Package services implements the HTTP clients the player depends on.
//
// # Endpoint Pool
//
// [EndpointPool] holds the ordered proxy bases. A failed request asks the pool to rotate;
// rotation is rate limited with [rate.Limiter] so the index advances at most once per
// cooldown. Within the cooldown the same base is retried.
//
// # Stream Resolution
//
// [TrackSourceResolver] issues GET {base}/track/?id=&quality= and scans the JSON response
// depth-first for the first direct URL. Attempts are bounded by the pool size:
//   - [shared.ErrStreamNotFound] : the endpoint answered but had no playable URL (no rotation)
//   - [shared.ErrNetwork] : the request failed and the cooldown refused rotation
//   - [shared.ErrEndpointsExhausted] : every base failed
//
// # Catalog
//
// [CatalogService] searches GET {base}/search/?s= with the same rotation rules and drops
// records missing an id, title, artist, cover or duration.
//
// # Lyrics
//
// [LyricsService] tries lrclib then lyrics.ovh under a single timeout. [ProportionalSync]
// maps a playback position onto a line of unsynchronized lyrics.
package services
