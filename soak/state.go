package soak

import "sync/atomic"

// RunState is the state of a soak run.
type RunState uint32

const (
	IdleState RunState = iota
	RunningState
	TimeExpiredState
	BreakerTrippedState
	InterruptedState
	AbortedState
)

func (st RunState) String() string {
	switch st {
	case IdleState:
		return "Idle"
	case RunningState:
		return "Running"
	case TimeExpiredState:
		return "TimeExpired"
	case BreakerTrippedState:
		return "BreakerTripped"
	case InterruptedState:
		return "Interrupted"
	case AbortedState:
		return "Aborted"
	default:
		return "Unknown"
	}
}

// IsTerminal reports whether st ends a run.
func (st RunState) IsTerminal() bool {
	return st >= TimeExpiredState && st <= AbortedState
}

// IsSuccess reports whether st is a non-failing end of a run.
func (st RunState) IsSuccess() bool {
	return st == TimeExpiredState || st == InterruptedState
}

// AtomicRunState holds a RunState that may be read from any goroutine.
type AtomicRunState struct {
	state atomic.Uint32
}

// Get returns the current state.
func (st *AtomicRunState) Get() RunState {
	return RunState(st.state.Load())
}

func (st *AtomicRunState) String() string {
	return st.Get().String()
}

// ToRunning moves Idle to Running. It fails for any other current state.
func (st *AtomicRunState) ToRunning() bool {
	return st.state.CompareAndSwap(uint32(IdleState), uint32(RunningState))
}

// Finish moves Running to the terminal state to. It fails when the run is
// not running or to is not terminal.
func (st *AtomicRunState) Finish(to RunState) bool {
	if !to.IsTerminal() {
		return false
	}

	return st.state.CompareAndSwap(uint32(RunningState), uint32(to))
}
