// Package services implements the notification plugins that react to tracker events.
//
// # Notifiers
//
// Each notifier is a bus observer. Its callbacks run on the scan loop, so they only decide
// whether to act and hand the side effect to a [Dispatcher] as a [tasks.Task]:
//
//   - [WebhookNotifier] : POSTs now-playing and scrobble events as JSON, rate limited in the parent
//   - [OverlayNotifier] : rewrites a text file with the now-playing entry for streaming overlays
//
// # Isolated Tasks
//
// [WebhookTask] and [OverlayTask] run in a child process started by the task runner. They must be
// registered with [RegisterTasks] in both the parent and the child so payloads can be decoded.
//
// # Error Handling
//
// Tasks report their own failures to stderr. A failed delivery wraps [shared.ErrServiceUnavailable].
package services
