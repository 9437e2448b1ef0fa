// package services defines the notifier plugins fed by the tracker
package services

import (
	"github.com/desertthunder/decklog/internal/tasks"
)

// Dispatcher hands a task off for execution. [tasks.Runner] implements it.
type Dispatcher interface {
	Dispatch(t tasks.Task)
}

// Notifier is a plugin reacting to now-playing transitions and scrobbles.
type Notifier interface {
	tasks.NowPlayingObserver
	tasks.ScrobbleObserver

	// Name returns the name of the notifier for logs
	Name() string
}

// RegisterTasks adds the task kinds of this package to reg.
func RegisterTasks(reg *tasks.Registry) *tasks.Registry {
	return reg.
		Register(WebhookKind, tasks.JSONDecoder[*WebhookTask]()).
		Register(OverlayKind, tasks.JSONDecoder[*OverlayTask]())
}
