package workflow

import (
	"fmt"
	"sort"
)

// StateMachineBuilder holds a static transition table and stamps out
// machines positioned at a given state.
type StateMachineBuilder interface {
	Configure(state State) StateConfiguration
	Build(initialState State) StateMachine
}

// StateConfiguration adds outgoing transitions to one state
type StateConfiguration interface {
	Permit(trigger Trigger, toState State) StateConfiguration
}

type transitionTable map[State]map[Trigger]State

type tableBuilder struct {
	table   transitionTable
	entries map[State]*stateEntry
}

type stateEntry struct {
	from  State
	table transitionTable
}

type tableMachine struct {
	current State
	table   transitionTable
}

// NewBuilder creates an empty builder. Configuration mistakes panic since
// the table is fixed at startup.
func NewBuilder() StateMachineBuilder {
	return &tableBuilder{table: make(transitionTable), entries: make(map[State]*stateEntry)}
}

func (b *tableBuilder) Configure(state State) StateConfiguration {
	if !state.IsValid() {
		panic(fmt.Sprintf("invalid state: %s", state))
	}
	entry, ok := b.entries[state]
	if !ok {
		b.table[state] = make(map[Trigger]State)
		entry = &stateEntry{from: state, table: b.table}
		b.entries[state] = entry
	}
	return entry
}

func (b *tableBuilder) Build(initialState State) StateMachine {
	if !initialState.IsValid() {
		panic(fmt.Sprintf("invalid initial state: %s", initialState))
	}

	// snapshot so later Configure calls do not leak into built machines
	snapshot := make(transitionTable, len(b.table))
	for from, edges := range b.table {
		copied := make(map[Trigger]State, len(edges))
		for trigger, to := range edges {
			copied[trigger] = to
		}
		snapshot[from] = copied
	}

	return &tableMachine{current: initialState, table: snapshot}
}

func (e *stateEntry) Permit(trigger Trigger, toState State) StateConfiguration {
	if !toState.IsValid() {
		panic(fmt.Sprintf("invalid target state: %s", toState))
	}
	if existing, dup := e.table[e.from][trigger]; dup && existing != toState {
		panic(fmt.Sprintf("trigger %s from %s already targets %s", trigger, e.from, existing))
	}
	e.table[e.from][trigger] = toState
	return e
}

func (m *tableMachine) State() State {
	return m.current
}

func (m *tableMachine) Fire(trigger Trigger) error {
	to, ok := m.table[m.current][trigger]
	if !ok {
		return fmt.Errorf("%w: %s from %s", ErrInvalidTransition, trigger, m.current)
	}
	m.current = to
	return nil
}

func (m *tableMachine) PermittedTriggers() []Trigger {
	edges := m.table[m.current]
	triggers := make([]Trigger, 0, len(edges))
	for trigger := range edges {
		triggers = append(triggers, trigger)
	}
	sort.Slice(triggers, func(i, j int) bool { return triggers[i] < triggers[j] })
	return triggers
}
