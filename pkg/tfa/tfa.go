// Package tfa implements a timed finite automaton: a state machine that moves
// between states either when an event is fed to it or when it has stayed in a
// state for a registered amount of time.
package tfa

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrDuplicateTransition is returned by Build when a table registers the same
	// (state, event) pair twice.
	ErrDuplicateTransition = errors.New("duplicate event transition")
	// ErrDuplicateTimeout is returned by Build when a table registers more than one
	// timeout transition for a state.
	ErrDuplicateTimeout = errors.New("duplicate timeout transition")
	// ErrNegativeTimeout is returned by Build for timeout rows with a negative duration.
	ErrNegativeTimeout = errors.New("negative timeout")
)

type timeout[S comparable] struct {
	after time.Duration
	to    S
}

// Automaton is a timed finite automaton over states S and events E.
//
// Event transitions map (state, event) to the next state. Timeout transitions map a
// state to a single (duration, next state) pair. Anything not registered is a no-op.
// An Automaton is not safe for concurrent use.
type Automaton[S, E comparable] struct {
	start S
	state S

	// Time spent in the current state, accumulated from Elapsed calls.
	sinceEntry time.Duration

	events   map[S]map[E]S
	timeouts map[S]timeout[S]
}

// New creates an automaton in the start state without any transitions.
func New[S, E comparable](start S) *Automaton[S, E] {
	return &Automaton[S, E]{
		start:    start,
		state:    start,
		events:   make(map[S]map[E]S),
		timeouts: make(map[S]timeout[S]),
	}
}

// AddEventTransition registers from --on--> to. Registering the same (from, on)
// pair again overwrites the previous target.
func (a *Automaton[S, E]) AddEventTransition(from S, on E, to S) {
	edges, ok := a.events[from]
	if !ok {
		edges = make(map[E]S)
		a.events[from] = edges
	}
	edges[on] = to
}

// AddTimeoutTransition registers the timeout transition of a state. A state has at
// most one, so registering again overwrites.
func (a *Automaton[S, E]) AddTimeoutTransition(from S, after time.Duration, to S) {
	a.timeouts[from] = timeout[S]{after: after, to: to}
}

// Elapsed advances the automaton clock by d and takes the timeout transition of the
// current state if the time spent in it reached the registered duration. A zero
// timeout fires on the first call after the state was entered.
func (a *Automaton[S, E]) Elapsed(d time.Duration) bool {
	a.sinceEntry += d

	t, ok := a.timeouts[a.state]
	if !ok || a.sinceEntry < t.after {
		return false
	}
	a.enter(t.to)
	return true
}

// Feed takes the transition registered for (current state, e). Events without a
// transition are ignored and false is returned.
func (a *Automaton[S, E]) Feed(e E) bool {
	to, ok := a.events[a.state][e]
	if !ok {
		return false
	}
	a.enter(to)
	return true
}

// State returns the current state.
func (a *Automaton[S, E]) State() S {
	return a.state
}

// Start returns the state the automaton was created with.
func (a *Automaton[S, E]) Start() S {
	return a.start
}

// SinceEntry returns the time accumulated in the current state.
func (a *Automaton[S, E]) SinceEntry() time.Duration {
	return a.sinceEntry
}

func (a *Automaton[S, E]) enter(to S) {
	a.state = to
	a.sinceEntry = 0
}

// Transition is one row of a static transition table. Rows created with Event
// describe event transitions, rows created with Timeout describe timeout transitions.
type Transition[S, E comparable] struct {
	From  S
	On    E
	After time.Duration
	To    S
	Timed bool
}

// Event returns an event transition row.
func Event[S, E comparable](from S, on E, to S) Transition[S, E] {
	return Transition[S, E]{From: from, On: on, To: to}
}

// Timeout returns a timeout transition row.
func Timeout[S, E comparable](from S, after time.Duration, to S) Transition[S, E] {
	return Transition[S, E]{From: from, After: after, To: to, Timed: true}
}

// Build creates an automaton from a static table. Unlike the Add methods, which
// overwrite, Build rejects tables that register a (state, event) pair or a state
// timeout more than once.
func Build[S, E comparable](start S, table []Transition[S, E]) (*Automaton[S, E], error) {
	a := New[S, E](start)
	for i, row := range table {
		if row.Timed {
			if row.After < 0 {
				return nil, fmt.Errorf("row %d (%v after %v): %w", i, row.From, row.After, ErrNegativeTimeout)
			}
			if _, dup := a.timeouts[row.From]; dup {
				return nil, fmt.Errorf("row %d (%v): %w", i, row.From, ErrDuplicateTimeout)
			}
			a.AddTimeoutTransition(row.From, row.After, row.To)
			continue
		}
		if _, dup := a.events[row.From][row.On]; dup {
			return nil, fmt.Errorf("row %d (%v on %v): %w", i, row.From, row.On, ErrDuplicateTransition)
		}
		a.AddEventTransition(row.From, row.On, row.To)
	}
	return a, nil
}

// MustBuild is like Build but panics on a malformed table. It is meant for tables
// that are fixed at compile time.
func MustBuild[S, E comparable](start S, table []Transition[S, E]) *Automaton[S, E] {
	a, err := Build(start, table)
	if err != nil {
		panic(fmt.Sprintf("tfa: %v", err))
	}
	return a
}
