package worker

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestTriggerMessage_ValidPayload(t *testing.T) {
	payload := ScoreRecomputePayload{
		LeadID:         uuid.New().String(),
		OrganizationID: uuid.New().String(),
		ActivityID:     uuid.New().String(),
	}

	msg, err := triggerMessage(payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.LeadID.String() != payload.LeadID {
		t.Fatalf("lead id mismatch: %s vs %s", msg.LeadID, payload.LeadID)
	}
}

func TestTriggerMessage_RejectsMalformedIDs(t *testing.T) {
	cases := []ScoreRecomputePayload{
		{LeadID: "not-a-uuid", OrganizationID: uuid.New().String(), ActivityID: uuid.New().String()},
		{LeadID: uuid.New().String(), OrganizationID: "", ActivityID: uuid.New().String()},
		{LeadID: uuid.New().String(), OrganizationID: uuid.New().String(), ActivityID: "123"},
	}
	for _, payload := range cases {
		if _, err := triggerMessage(payload); err == nil {
			t.Fatalf("expected an error for payload %+v", payload)
		}
	}
}

func TestRetryDelay_ExponentialBackoff(t *testing.T) {
	expected := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, 16 * time.Second}
	for n, want := range expected {
		if got := retryDelay(n, nil, nil); got != want {
			t.Fatalf("retryDelay(%d) = %v, want %v", n, got, want)
		}
	}
}

func TestScoreRecomputeTask_RoundTrip(t *testing.T) {
	payload := ScoreRecomputePayload{
		LeadID:         uuid.New().String(),
		OrganizationID: uuid.New().String(),
		ActivityID:     uuid.New().String(),
	}

	task, err := NewScoreRecomputeTask(payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task.Type() != TaskScoreRecompute {
		t.Fatalf("expected task type %q, got %q", TaskScoreRecompute, task.Type())
	}

	parsed, err := ParseScoreRecomputePayload(task)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if parsed != payload {
		t.Fatalf("payload round trip mismatch: %+v vs %+v", parsed, payload)
	}
}
