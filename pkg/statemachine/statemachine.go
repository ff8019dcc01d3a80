package statemachine

import (
	"context"
	"fmt"
)

// Guard decides at fire time whether a transition may be taken for data.
type Guard[D any] func(ctx context.Context, data D) bool

// Transition moves from From to To when Event fires and every guard passes.
type Transition[S, E comparable, D any] struct {
	From   S
	Event  E
	To     S
	Guards []Guard[D]
}

// Table is an immutable transition table. It holds no current state: callers
// pass the state they loaded and persist the state Next returns, which lets
// one table serve every record of a kind concurrently.
type Table[S, E comparable, D any] struct {
	transitions map[S]map[E][]Transition[S, E, D]
}

// New builds a table. Several transitions may share a from/event pair; the
// first one whose guards pass wins.
func New[S, E comparable, D any](transitions ...Transition[S, E, D]) (*Table[S, E, D], error) {
	if len(transitions) == 0 {
		return nil, ErrNoTransitions
	}
	t := &Table[S, E, D]{transitions: make(map[S]map[E][]Transition[S, E, D])}
	for _, tr := range transitions {
		if t.transitions[tr.From] == nil {
			t.transitions[tr.From] = make(map[E][]Transition[S, E, D])
		}
		t.transitions[tr.From][tr.Event] = append(t.transitions[tr.From][tr.Event], tr)
	}
	return t, nil
}

// MustNew is New that panics on error.
func MustNew[S, E comparable, D any](transitions ...Transition[S, E, D]) *Table[S, E, D] {
	t, err := New(transitions...)
	if err != nil {
		panic(fmt.Sprintf("statemachine: %v", err))
	}
	return t
}

// Next returns the state reached by firing event in state from. It returns a
// *NoTransitionError when from has no transition for event, and a
// *RejectedError when transitions exist but every one is blocked by a guard.
func (t *Table[S, E, D]) Next(ctx context.Context, from S, event E, data D) (S, error) {
	candidates := t.transitions[from][event]
	if len(candidates) == 0 {
		return from, &NoTransitionError{State: fmt.Sprint(from), Event: fmt.Sprint(event)}
	}
	for _, tr := range candidates {
		if passes(ctx, tr.Guards, data) {
			return tr.To, nil
		}
	}
	return from, &RejectedError{State: fmt.Sprint(from), Event: fmt.Sprint(event)}
}

// Can reports whether Next would succeed.
func (t *Table[S, E, D]) Can(ctx context.Context, from S, event E, data D) bool {
	_, err := t.Next(ctx, from, event, data)
	return err == nil
}

// Terminal reports whether no event leaves state s.
func (t *Table[S, E, D]) Terminal(s S) bool {
	return len(t.transitions[s]) == 0
}

func passes[D any](ctx context.Context, guards []Guard[D], data D) bool {
	for _, g := range guards {
		if g != nil && !g(ctx, data) {
			return false
		}
	}
	return true
}
