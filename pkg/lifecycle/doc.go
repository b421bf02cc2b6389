// Package lifecycle defines the subscription status graph and the
// derived period predicates, as a stateless transition table.
//
// Unlike a classic state machine the Machine holds no current state:
// the subscription rows live in a store, so callers pass a Snapshot of
// the row's fields and get back the next status. This keeps the
// legality rules in one place while the orchestrator owns mutation and
// persistence.
//
//	machine := lifecycle.NewDefault()
//	snap := lifecycle.Snapshot{
//	    Status: lifecycle.StatusCanceled,
//	    EndsAt: &endsAt,
//	    GraceEndsAt: &graceEndsAt,
//	    Now: time.Now().UTC(),
//	}
//	next, err := machine.Fire(ctx, snap, lifecycle.EventResume)
//	if lifecycle.IsTransitionRejectedError(err) {
//	    // period lapsed, resume not possible
//	}
//
// Guard failures and missing edges are distinct error types so callers
// can translate "illegal call" separately from "business condition not
// met".
package lifecycle
