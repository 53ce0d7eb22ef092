package event

import (
	"testing"
	"time"
)

func TestType_IsValid(t *testing.T) {
	tests := []struct {
		name      string
		eventType Type
		want      bool
	}{
		{"application submitted", TypeApplicationSubmitted, true},
		{"application paid", TypeApplicationPaid, true},
		{"batch completed", TypePayoutBatchCompleted, true},
		{"complaint assigned", TypeComplaintAssigned, true},
		{"unknown type", Type("unknown.type"), false},
		{"empty string", Type(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.eventType.IsValid(); got != tt.want {
				t.Errorf("Type.IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewEvent(t *testing.T) {
	evt := NewEvent(TypeApplicationApproved, "application", 123, "officer-7", map[string]interface{}{
		"status": "approved",
	})

	if evt.ID == "" {
		t.Error("Event ID should not be empty")
	}
	if evt.Type != TypeApplicationApproved {
		t.Errorf("Event Type = %v, want %v", evt.Type, TypeApplicationApproved)
	}
	if evt.EntityID != 123 || evt.EntityType != "application" {
		t.Errorf("Event entity = %s/%d, want application/123", evt.EntityType, evt.EntityID)
	}
	if evt.ActorID != "officer-7" {
		t.Errorf("Event ActorID = %v, want officer-7", evt.ActorID)
	}
	if evt.GetPayloadString("status") != "approved" {
		t.Errorf("Event Payload[status] = %v, want approved", evt.Payload["status"])
	}
	if evt.CorrelationID == "" {
		t.Error("Event CorrelationID should not be empty")
	}
	if time.Since(evt.Timestamp) > time.Second {
		t.Error("Event Timestamp should be recent")
	}
}

func TestNewEvent_NilPayload(t *testing.T) {
	evt := NewEvent(TypeComplaintSubmitted, "complaint", 1, "citizen-1", nil)
	if evt.Payload == nil {
		t.Fatal("Payload should be initialised")
	}
	if got := evt.GetPayloadString("missing"); got != "" {
		t.Errorf("GetPayloadString(missing) = %q, want empty", got)
	}
}

func TestEvent_WithPayload(t *testing.T) {
	original := NewEvent(TypePayoutBatchCreated, "payout_batch", 1, "admin", map[string]interface{}{
		"key1": "value1",
	})

	updated := original.WithPayload("key2", "value2")

	if _, ok := original.Payload["key2"]; ok {
		t.Error("WithPayload() must not mutate the original event")
	}
	if updated.GetPayloadString("key1") != "value1" || updated.GetPayloadString("key2") != "value2" {
		t.Errorf("updated payload = %v", updated.Payload)
	}
	if updated.ID != original.ID {
		t.Error("WithPayload() should keep the event ID")
	}
}

func TestEvent_WithCorrelation(t *testing.T) {
	original := NewEvent(TypeApplicationPaid, "application", 9, "system", nil)
	linked := original.WithCorrelation("batch-42")

	if linked.CorrelationID != "batch-42" {
		t.Errorf("CorrelationID = %v, want batch-42", linked.CorrelationID)
	}
	if original.CorrelationID == "batch-42" {
		t.Error("WithCorrelation() must not mutate the original event")
	}
}
