// Package tasks runs the scan loop and everything it fans out to.
//
// # Scan loop
//
// [Scheduler] owns the tick counter and the previous snapshot. Each tick it moves through
// [PhaseScanning] and [PhaseDiffing] back to [PhaseIdle], then publishes, in order, the Tick,
// the Diff, and any NowPlaying or Scrobble entry on the [Bus]. A failed scan still completes
// the tick with an empty, failed Diff; the previous snapshot is kept for the next attempt.
//
// # Progress Reporting
//
// Phase changes are sent as [ProgressUpdate] values on an optional channel. Sends use select
// with default so a slow reader never stalls the loop.
//
// # Observers
//
// The [Bus] keeps four ordered subscriber lists. Observers are registered by the capability
// interfaces they implement ([TickObserver], [DiffObserver], [NowPlayingObserver],
// [ScrobbleObserver]). Delivery is synchronous; changing subscriptions mid-publish fails with
// [shared.ErrSubscribeDuringPublish].
//
// # Isolated tasks
//
// Observers hand slow side effects to a [Runner]. Each [Task] is encoded as JSON and executed in
// a child process started from the current executable with the hidden [TaskCommand]; the child
// decodes it through the same [Registry] in [ServeTask]. When isolation is disabled or the child
// cannot be started, the task runs inline with a warning.
package tasks
