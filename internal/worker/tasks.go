// Package worker runs the asynchronous side of the scoring pipeline: the
// asynq consumer for recompute triggers and the outbox dispatcher that
// delivers lead.scored events at least once.
package worker

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskScoreRecompute = "scoring.recompute"

const TaskLeadScoredDeliver = "scoring.lead_scored"

// ScoreRecomputePayload carries one trigger through the queue. ActivityID is
// the idempotency key and also the asynq task ID, so re-submitting the same
// activity while a task is in flight deduplicates at the queue.
type ScoreRecomputePayload struct {
	LeadID         string `json:"leadId"`
	OrganizationID string `json:"organizationId"`
	ActivityID     string `json:"activityId"`
}

// LeadScoredDeliverPayload references a claimed outbox row.
type LeadScoredDeliverPayload struct {
	OutboxID       string `json:"outboxId"`
	OrganizationID string `json:"organizationId"`
}

func NewScoreRecomputeTask(payload ScoreRecomputePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskScoreRecompute, data), nil
}

func ParseScoreRecomputePayload(task *asynq.Task) (ScoreRecomputePayload, error) {
	var payload ScoreRecomputePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return ScoreRecomputePayload{}, err
	}
	return payload, nil
}

func NewLeadScoredDeliverTask(payload LeadScoredDeliverPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLeadScoredDeliver, data), nil
}

func ParseLeadScoredDeliverPayload(task *asynq.Task) (LeadScoredDeliverPayload, error) {
	var payload LeadScoredDeliverPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return LeadScoredDeliverPayload{}, err
	}
	return payload, nil
}
