package lifecycle

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTransition = errors.New("invalid transition: from, to, and event must be valid lifecycle values")
	ErrInvalidEvent      = errors.New("invalid event: not a known lifecycle event")
	ErrInvalidStatus     = errors.New("invalid status: not a known lifecycle status")
)

// ErrNoTransitionAvailable indicates no edge exists for the given
// status/event combination, i.e. the call is illegal in this state.
type ErrNoTransitionAvailable struct {
	Status Status
	Event  Event
}

func (e *ErrNoTransitionAvailable) Error() string {
	return fmt.Sprintf("no transition available from status '%s' for event '%s'", e.Status, e.Event)
}

func NewErrNoTransitionAvailable(status Status, event Event) *ErrNoTransitionAvailable {
	return &ErrNoTransitionAvailable{Status: status, Event: event}
}

// ErrTransitionRejected indicates edges exist but every one was blocked
// by its guards, e.g. resuming after the grace window has lapsed.
type ErrTransitionRejected struct {
	Status Status
	Event  Event
}

func (e *ErrTransitionRejected) Error() string {
	return fmt.Sprintf("transition from status '%s' for event '%s' was rejected by guards", e.Status, e.Event)
}

func NewErrTransitionRejected(status Status, event Event) *ErrTransitionRejected {
	return &ErrTransitionRejected{Status: status, Event: event}
}

func IsNoTransitionAvailableError(err error) bool {
	var e *ErrNoTransitionAvailable
	return errors.As(err, &e)
}

func IsTransitionRejectedError(err error) bool {
	var e *ErrTransitionRejected
	return errors.As(err, &e)
}
