package soak

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunState_String(t *testing.T) {
	tests := []struct {
		state RunState
		want  string
	}{
		{IdleState, "Idle"},
		{RunningState, "Running"},
		{TimeExpiredState, "TimeExpired"},
		{BreakerTrippedState, "BreakerTripped"},
		{InterruptedState, "Interrupted"},
		{AbortedState, "Aborted"},
		{RunState(99), "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.state.String())
		})
	}
}

func TestRunState_Classification(t *testing.T) {
	assert.False(t, IdleState.IsTerminal())
	assert.False(t, RunningState.IsTerminal())
	assert.True(t, BreakerTrippedState.IsTerminal())

	assert.True(t, TimeExpiredState.IsSuccess())
	assert.True(t, InterruptedState.IsSuccess())
	assert.False(t, BreakerTrippedState.IsSuccess())
	assert.False(t, AbortedState.IsSuccess())
}

func TestAtomicRunState_Transitions(t *testing.T) {
	var st AtomicRunState
	assert.Equal(t, IdleState, st.Get())

	assert.False(t, st.Finish(TimeExpiredState), "cannot finish a run that never started")
	assert.True(t, st.ToRunning())
	assert.False(t, st.ToRunning())
	assert.False(t, st.Finish(RunningState), "running is not terminal")

	assert.True(t, st.Finish(BreakerTrippedState))
	assert.Equal(t, "BreakerTripped", st.String())
	assert.False(t, st.Finish(TimeExpiredState), "terminal state is final")
}
