package tasks

import "fmt"

// ProgressUpdate reports a scheduler phase change.
//
// Used to drive live displays such as the terminal monitor.
type ProgressUpdate struct {
	Phase   Phase  // Phase entered
	Tick    uint64 // Tick the phase belongs to
	Message string // Human-readable message for display
}

// Scheduler phase enumeration
type Phase int32

const (
	PhaseIdle Phase = iota
	PhaseScanning
	PhaseDiffing
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseScanning:
		return "scanning"
	case PhaseDiffing:
		return "diffing"
	default:
		return ""
	}
}

func phaseUpdate(p Phase, tick uint64) ProgressUpdate {
	var msg string
	switch p {
	case PhaseScanning:
		msg = fmt.Sprintf("Scanning session log (tick %d)...", tick)
	case PhaseDiffing:
		msg = fmt.Sprintf("Comparing snapshots (tick %d)...", tick)
	default:
		msg = fmt.Sprintf("Waiting for next tick (last %d)", tick)
	}
	return ProgressUpdate{Phase: p, Tick: tick, Message: msg}
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
		// Channel full, skip this update
	}
}
