package workflow

import (
	"context"
	"fmt"
	"sort"
)

// StateMachineBuilder builds a configured state machine
type StateMachineBuilder interface {
	// Configure returns the transition table of the given state
	Configure(state State) StateConfiguration

	// Build creates a new state machine instance with the given initial state
	Build(initialState State) (StateMachine, error)
}

// StateConfiguration configures transitions for a specific state
type StateConfiguration interface {
	// Permit allows a trigger to transition to the target state. Each trigger
	// has exactly one target per source state.
	Permit(trigger Trigger, toState State) StateConfiguration
}

// edges maps a trigger to its target state
type edges map[Trigger]State

type stateConfig struct {
	states    StateSet
	fromState State
	edges     edges
}

type stateMachineBuilder struct {
	states StateSet
	tables map[State]*stateConfig
}

type stateMachine struct {
	currentState State
	tables       map[State]edges
}

// NewBuilder creates a builder restricted to the given state set.
// Configuring a state outside the set panics: the tables are static and a bad
// entry is a programming error.
func NewBuilder(states StateSet) StateMachineBuilder {
	return &stateMachineBuilder{
		states: states,
		tables: make(map[State]*stateConfig),
	}
}

// Configure returns the transition table of the given state
func (b *stateMachineBuilder) Configure(state State) StateConfiguration {
	if !b.states.Contains(state) {
		panic(fmt.Sprintf("invalid state: %s", state))
	}

	config, exists := b.tables[state]
	if !exists {
		config = &stateConfig{
			states:    b.states,
			fromState: state,
			edges:     make(edges),
		}
		b.tables[state] = config
	}

	return config
}

// Build creates a new state machine instance with the given initial state.
// The initial state usually comes from storage, so an unknown value is an
// error rather than a panic.
func (b *stateMachineBuilder) Build(initialState State) (StateMachine, error) {
	if !b.states.Contains(initialState) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidState, initialState)
	}

	// Machines get their own copy of the tables
	tables := make(map[State]edges, len(b.tables))
	for state, config := range b.tables {
		cp := make(edges, len(config.edges))
		for trigger, to := range config.edges {
			cp[trigger] = to
		}
		tables[state] = cp
	}

	return &stateMachine{
		currentState: initialState,
		tables:       tables,
	}, nil
}

// Permit allows a trigger to transition to the target state
func (c *stateConfig) Permit(trigger Trigger, toState State) StateConfiguration {
	if !c.states.Contains(toState) {
		panic(fmt.Sprintf("invalid target state: %s", toState))
	}
	if prev, dup := c.edges[trigger]; dup && prev != toState {
		panic(fmt.Sprintf("trigger %s from %s already leads to %s", trigger, c.fromState, prev))
	}

	c.edges[trigger] = toState
	return c
}

// State returns the current state
func (m *stateMachine) State() State {
	return m.currentState
}

// CanFire returns true if the trigger is configured in the current state
func (m *stateMachine) CanFire(trigger Trigger) bool {
	_, ok := m.tables[m.currentState][trigger]
	return ok
}

// Fire executes the trigger, transitioning to its target state
func (m *stateMachine) Fire(ctx context.Context, trigger Trigger) error {
	to, ok := m.tables[m.currentState][trigger]
	if !ok {
		return fmt.Errorf("%w: cannot fire trigger %s from state %s", ErrInvalidTransition, trigger, m.currentState)
	}

	m.currentState = to
	return nil
}

// PermittedTriggers returns all triggers configured in the current state, sorted
func (m *stateMachine) PermittedTriggers() []Trigger {
	table := m.tables[m.currentState]
	triggers := make([]Trigger, 0, len(table))
	for trigger := range table {
		triggers = append(triggers, trigger)
	}
	sort.Slice(triggers, func(i, j int) bool { return triggers[i] < triggers[j] })

	return triggers
}

// EdgeTo returns the trigger leading from the current state to the target.
// When several triggers lead there the first in sort order wins.
func (m *stateMachine) EdgeTo(to State) (Trigger, bool) {
	table := m.tables[m.currentState]
	for _, trigger := range m.PermittedTriggers() {
		if table[trigger] == to {
			return trigger, true
		}
	}
	return "", false
}
