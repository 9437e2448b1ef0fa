// Package server provides the embedded HTTP/JSON status server.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] method patterns and answers unknown routes with JSON.
//
// # Status Handler
//
// [StatusHandler] is a bus observer. It keeps a copy of the latest tick, scan result, now-playing
// and scrobbled entries, and serves them from the HTTP goroutines under a lock:
//
//   - GET /status : tick, scheduler phase, log size, now playing, last scrobble
//   - GET /history?limit=n : recent plays from the play history
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
