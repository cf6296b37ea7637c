// Package server exposes the player's now-playing state and transport controls over HTTP.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] method patterns, so a path registered for GET
// answers other methods with 405.
//
// # Now Playing
//
// [NowPlayingHandler] serves:
//   - GET /api/now-playing : latest broadcast snapshot as JSON (204 before anything has played)
//   - POST /api/control/toggle : play/pause
//   - POST /api/control/next, POST /api/control/previous : queue navigation, answered with 202
//   - GET /api/health : liveness
//
// Snapshots come from the playback broadcaster rather than the controller, so reads never contend
// with the controller's lock.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
