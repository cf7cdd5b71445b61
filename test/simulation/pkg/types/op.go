package types

import (
	"context"
	"errors"
	"fmt"
)

////////////////////////////////////////////////////////////////////////////////////////
// Actions
////////////////////////////////////////////////////////////////////////////////////////

// ErrActionAlreadyRun is returned when an action is run a second time.
var ErrActionAlreadyRun = errors.New("action already run")

// Action is one protocol operation bound to the account issuing it. All parameters are
// fixed when the action is generated, so String fully describes it.
type Action interface {
	fmt.Stringer

	// Name is the operation, e.g. "deposit", used as a metric label.
	Name() string

	// Run executes the action against the chain. It may only be called once.
	Run(ctx context.Context) error
}

// Once guards an action so it executes at most one time. Embed it in action types and
// call Claim at the start of Run.
type Once struct {
	ran bool
}

// Claim marks the action as run, or returns ErrActionAlreadyRun if it already was.
func (o *Once) Claim(action fmt.Stringer) error {
	if o.ran {
		return fmt.Errorf("%s: %w", action, ErrActionAlreadyRun)
	}
	o.ran = true
	return nil
}

// Ran reports whether the action has been claimed.
func (o *Once) Ran() bool {
	return o.ran
}

////////////////////////////////////////////////////////////////////////////////////////
// Actors
////////////////////////////////////////////////////////////////////////////////////////

// Actor proposes valid actions given the current simulated state.
type Actor interface {
	// Name identifies the actor in logs and metrics.
	Name() string

	// GenerateAction returns the next action for the actor. It reads state but does
	// not change the chain; only running the action does.
	GenerateAction(ctx context.Context) (Action, error)
}
