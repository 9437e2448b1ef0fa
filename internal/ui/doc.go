// Package ui implements the live terminal monitor using bubbletea's Elm architecture.
//
// The monitor shows one screen:
//  1. A header with the session log, tick, scheduler phase and log size
//  2. The now-playing and last scrobbled entries
//  3. A scrollable list of every entry in the log, newest last
//
// [Monitor] is a bus observer. Its callbacks run on the scan loop, so they only copy the event into a
// buffered channel and drop it when the model falls behind. The (view) [Model] implements bubbletea/Elm's
// standard Init/Update/View pattern, receiving events and scheduler progress as [Msg] values.
//
// Keyboard navigation uses vim-style bindings (j/k, g/G, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
