package mount

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStateMachineLifecycle(t *testing.T) {
	sm := NewStateMachine()
	assert.Equal(t, StateUnmounted, sm.Current())

	assert.NoError(t, sm.Transition(StateMountInProgress))
	assert.NoError(t, sm.Transition(StateMounted))
	assert.NoError(t, sm.Transition(StateUnmounted))

	// A restarted lifecycle begins again from unmounted
	assert.NoError(t, sm.Transition(StateMountInProgress))
	assert.Equal(t, StateMountInProgress, sm.Current())
}

func TestStateMachineRejectsInvalidTransitions(t *testing.T) {
	sm := NewStateMachine()

	// Cannot jump straight to mounted
	err := sm.Transition(StateMounted)
	assert.Error(t, err)
	assert.Equal(t, StateUnmounted, sm.Current())

	var invalid *ErrInvalidTransition
	assert.ErrorAs(t, err, &invalid)
	assert.Equal(t, StateUnmounted, invalid.From)
	assert.Equal(t, StateMounted, invalid.To)
}

func TestStateMachineMountFailedIsTerminal(t *testing.T) {
	sm := NewStateMachine()

	assert.NoError(t, sm.Transition(StateMountInProgress))
	assert.NoError(t, sm.Transition(StateMountFailed))

	assert.Error(t, sm.Transition(StateMountInProgress))
	assert.Error(t, sm.Transition(StateMounted))
	assert.Error(t, sm.Transition(StateUnmounted))
	assert.Equal(t, StateMountFailed, sm.Current())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "unmounted", StateUnmounted.String())
	assert.Equal(t, "mount_in_progress", StateMountInProgress.String())
	assert.Equal(t, "mounted", StateMounted.String())
	assert.Equal(t, "mount_failed", StateMountFailed.String())
}
