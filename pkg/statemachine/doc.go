// Package statemachine provides a generic, immutable transition table for
// records whose state lives in a database.
//
// A Table is built once and shared:
//
//	table := statemachine.MustNew(
//		statemachine.Transition[Status, Event, Actor]{From: Pending, Event: Accept, To: Accepted, Guards: []statemachine.Guard[Actor]{emailMatches}},
//		statemachine.Transition[Status, Event, Actor]{From: Pending, Event: Revoke, To: Revoked},
//	)
//
//	next, err := table.Next(ctx, record.Status, Accept, actor)
//	switch {
//	case statemachine.IsNoTransition(err):
//		// not allowed from the current state
//	case statemachine.IsRejected(err):
//		// a guard refused
//	}
//
// The table never stores state, so persisting next (ideally with a
// compare-and-set on the old state) is the caller's job.
package statemachine
