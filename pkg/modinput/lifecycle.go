package modinput

import (
	"fmt"
	"sync"

	"github.com/bft-labs/modinput/pkg/log"
)

// State is a step of a single run.
type State int

const (
	StateStart State = iota
	StateScheme
	StateValidate
	StateStream
	StateDone
	StateFailed
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateStart:
		return "Start"
	case StateScheme:
		return "Scheme"
	case StateValidate:
		return "Validate"
	case StateStream:
		return "Stream"
	case StateDone:
		return "Done"
	case StateFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

func stateForMode(m Mode) State {
	switch m {
	case ModeScheme:
		return StateScheme
	case ModeValidate:
		return StateValidate
	default:
		return StateStream
	}
}

// StateObserver is called after every successful transition.
type StateObserver interface {
	OnStateChange(previous, current State, reason string)
}

// StateObserverFunc adapts a function to StateObserver.
type StateObserverFunc func(previous, current State, reason string)

func (f StateObserverFunc) OnStateChange(previous, current State, reason string) {
	f(previous, current, reason)
}

// Lifecycle is the state machine of one run:
//
//	Start -> Scheme | Validate | Stream -> Done | Failed
//
// Start may also go straight to Failed when plugins fail to initialize.
type Lifecycle struct {
	mu       sync.RWMutex
	state    State
	logger   log.Logger
	observer StateObserver
}

// NewLifecycle creates a lifecycle in StateStart.
func NewLifecycle(logger log.Logger, observer StateObserver) *Lifecycle {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &Lifecycle{
		state:    StateStart,
		logger:   logger,
		observer: observer,
	}
}

// State returns the current state.
func (l *Lifecycle) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// TransitionTo moves to next, or returns ErrInvalidTransition.
func (l *Lifecycle) TransitionTo(next State, reason string) error {
	l.mu.Lock()
	prev := l.state
	if !validTransition(prev, next) {
		l.mu.Unlock()
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, prev, next)
	}
	l.state = next
	l.mu.Unlock()

	// Notify outside of lock
	if l.observer != nil {
		l.observer.OnStateChange(prev, next, reason)
	}

	l.logger.Debug("state transition",
		log.String("from", prev.String()),
		log.String("to", next.String()),
		log.String("reason", reason),
	)
	return nil
}

func validTransition(from, to State) bool {
	switch from {
	case StateStart:
		return to == StateScheme || to == StateValidate || to == StateStream || to == StateFailed
	case StateScheme, StateValidate, StateStream:
		return to == StateDone || to == StateFailed
	default:
		return false
	}
}
