package mount

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
)

// State tracks where the shared path is in its mount lifecycle. Only the
// mounter drives transitions; the consumer observes mounted vs. not-mounted
// through the filesystem and never sees these values directly.
type State int

const (
	StateUnmounted State = iota
	StateMountInProgress
	StateMounted
	StateMountFailed
)

func (s State) String() string {
	switch s {
	case StateUnmounted:
		return "unmounted"
	case StateMountInProgress:
		return "mount_in_progress"
	case StateMounted:
		return "mounted"
	case StateMountFailed:
		return "mount_failed"
	}
	return "unknown"
}

// validTransitions encodes the mount lifecycle. MountFailed is terminal for
// the running process; a restart begins again at Unmounted.
var validTransitions = map[State][]State{
	StateUnmounted:       {StateMountInProgress},
	StateMountInProgress: {StateMounted, StateMountFailed},
	StateMounted:         {StateUnmounted},
	StateMountFailed:     {},
}

type ErrInvalidTransition struct {
	From State
	To   State
}

func (e *ErrInvalidTransition) Error() string {
	return fmt.Sprintf("invalid mount state transition: %s -> %s", e.From, e.To)
}

type StateMachine struct {
	mu      sync.RWMutex
	current State
}

func NewStateMachine() *StateMachine {
	return &StateMachine{current: StateUnmounted}
}

func (sm *StateMachine) Current() State {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	return sm.current
}

// Transition moves the machine to the requested state, rejecting anything
// the lifecycle does not allow.
func (sm *StateMachine) Transition(to State) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	allowed := false
	for _, s := range validTransitions[sm.current] {
		if s == to {
			allowed = true
			break
		}
	}

	if !allowed {
		return &ErrInvalidTransition{From: sm.current, To: to}
	}

	log.Info().Str("from", sm.current.String()).Str("to", to.String()).Msg("mount state transition")
	sm.current = to
	return nil
}
