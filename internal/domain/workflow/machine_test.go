package workflow

import (
	"context"
	"errors"
	"testing"
)

const (
	stateDraft    State = "draft"
	statePending  State = "pending"
	stateReview   State = "under_review"
	stateApproved State = "approved"
	stateRejected State = "rejected"

	triggerSubmit  Trigger = "submit"
	triggerReview  Trigger = "start_review"
	triggerApprove Trigger = "approve"
	triggerReject  Trigger = "reject"
)

func testStates() StateSet {
	return NewStateSet(stateDraft, statePending, stateReview, stateApproved, stateRejected)
}

func mustBuild(t *testing.T, b StateMachineBuilder, initial State) StateMachine {
	t.Helper()
	m, err := b.Build(initial)
	if err != nil {
		t.Fatalf("Build(%s) failed: %v", initial, err)
	}
	return m
}

func TestStateSet_Contains(t *testing.T) {
	set := testStates()

	tests := []struct {
		name     string
		state    State
		expected bool
	}{
		{"member", stateDraft, true},
		{"another member", stateRejected, true},
		{"unknown", State("INVALID"), false},
		{"empty", State(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := set.Contains(tt.state); got != tt.expected {
				t.Errorf("Contains(%q) = %v, want %v", tt.state, got, tt.expected)
			}
		})
	}
}

func TestBuilder_ConfigureReturnsSameConfig(t *testing.T) {
	builder := NewBuilder(testStates())

	config := builder.Configure(stateDraft)
	if config == nil {
		t.Fatal("Configure() returned nil")
	}

	if config2 := builder.Configure(stateDraft); config != config2 {
		t.Error("Configure() should return same config for same state")
	}
}

func TestBuilder_ConfigurePanicsOnUnknownState(t *testing.T) {
	builder := NewBuilder(testStates())

	defer func() {
		if r := recover(); r == nil {
			t.Error("Configure() should panic on unknown state")
		}
	}()

	builder.Configure(State("INVALID"))
}

func TestBuilder_PermitPanicsOnUnknownTarget(t *testing.T) {
	builder := NewBuilder(testStates())

	defer func() {
		if r := recover(); r == nil {
			t.Error("Permit() should panic on unknown target state")
		}
	}()

	builder.Configure(stateDraft).Permit(triggerSubmit, State("INVALID"))
}

func TestBuilder_BuildRejectsUnknownInitialState(t *testing.T) {
	builder := NewBuilder(testStates())

	_, err := builder.Build(State("INVALID"))
	if !errors.Is(err, ErrInvalidState) {
		t.Errorf("Build() error = %v, want %v", err, ErrInvalidState)
	}
}

func TestStateMachine_Fire(t *testing.T) {
	builder := NewBuilder(testStates())
	builder.Configure(stateDraft).Permit(triggerSubmit, statePending)

	machine := mustBuild(t, builder, stateDraft)

	if !machine.CanFire(triggerSubmit) {
		t.Error("CanFire() should return true for permitted trigger")
	}
	if err := machine.Fire(context.Background(), triggerSubmit); err != nil {
		t.Errorf("Fire() failed: %v", err)
	}
	if machine.State() != statePending {
		t.Errorf("State after Fire() = %v, want %v", machine.State(), statePending)
	}
}

func TestStateMachine_Fire_InvalidTransition(t *testing.T) {
	builder := NewBuilder(testStates())
	builder.Configure(stateDraft).Permit(triggerSubmit, statePending)

	machine := mustBuild(t, builder, stateDraft)

	err := machine.Fire(context.Background(), triggerApprove)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Fire() error = %v, want %v", err, ErrInvalidTransition)
	}
	if machine.State() != stateDraft {
		t.Errorf("State should remain %v after failed Fire(), got %v", stateDraft, machine.State())
	}
}

func TestStateMachine_Fire_NoConfiguration(t *testing.T) {
	machine := mustBuild(t, NewBuilder(testStates()), stateRejected)

	err := machine.Fire(context.Background(), triggerSubmit)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Fire() error = %v, want %v", err, ErrInvalidTransition)
	}
}

func TestBuilder_PermitPanicsOnAmbiguousTrigger(t *testing.T) {
	builder := NewBuilder(testStates())
	config := builder.Configure(stateReview).Permit(triggerApprove, stateApproved)

	// Re-declaring the same edge is harmless
	config.Permit(triggerApprove, stateApproved)

	defer func() {
		if r := recover(); r == nil {
			t.Error("Permit() should panic when a trigger gets a second target")
		}
	}()

	config.Permit(triggerApprove, stateRejected)
}

func TestStateMachine_PermittedTriggersSorted(t *testing.T) {
	builder := NewBuilder(testStates())
	builder.Configure(stateReview).
		Permit(triggerReject, stateRejected).
		Permit(triggerApprove, stateApproved)

	machine := mustBuild(t, builder, stateReview)

	triggers := machine.PermittedTriggers()
	if len(triggers) != 2 || triggers[0] != triggerApprove || triggers[1] != triggerReject {
		t.Errorf("PermittedTriggers() = %v, want [approve reject]", triggers)
	}

	terminal := mustBuild(t, builder, stateApproved)
	if got := terminal.PermittedTriggers(); len(got) != 0 {
		t.Errorf("PermittedTriggers() on unconfigured state = %v, want none", got)
	}
}

func TestStateMachine_EdgeTo(t *testing.T) {
	builder := NewBuilder(testStates())
	builder.Configure(stateReview).
		Permit(triggerApprove, stateApproved).
		Permit(triggerReject, stateRejected)

	machine := mustBuild(t, builder, stateReview)

	trigger, ok := machine.EdgeTo(stateRejected)
	if !ok || trigger != triggerReject {
		t.Errorf("EdgeTo(rejected) = %v, %v, want reject, true", trigger, ok)
	}

	if _, ok := machine.EdgeTo(statePending); ok {
		t.Error("EdgeTo(pending) should not exist from under_review")
	}
}

func TestStateMachine_Independence(t *testing.T) {
	builder := NewBuilder(testStates())
	builder.Configure(stateDraft).Permit(triggerSubmit, statePending)

	machine1 := mustBuild(t, builder, stateDraft)
	machine2 := mustBuild(t, builder, stateDraft)

	if err := machine1.Fire(context.Background(), triggerSubmit); err != nil {
		t.Errorf("Fire() failed: %v", err)
	}

	if machine2.State() != stateDraft {
		t.Errorf("machine2 state = %v, want %v (machines should be independent)", machine2.State(), stateDraft)
	}

	// Configuring the builder afterwards must not leak into built machines
	builder.Configure(statePending).Permit(triggerReview, stateReview)
	if machine1.CanFire(triggerReview) {
		t.Error("machine1 should not see transitions configured after Build()")
	}
}
