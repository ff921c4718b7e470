package worker

import (
	"context"
	"time"

	"leadscore_backend/internal/scoring/engine"
	"leadscore_backend/internal/scoring/repository"
	"leadscore_backend/platform/logger"
)

const (
	dispatchInterval  = 2 * time.Second
	dispatchBatchSize = 50
)

// OutboxDispatcher polls score_outbox and hands pending lead.scored rows to
// the queue. Claiming marks rows enqueued, so concurrent dispatchers never
// double-enqueue; a row whose delivery task fails returns to pending.
type OutboxDispatcher struct {
	repo    *repository.Repository
	client  *Client
	log     *logger.Logger
	metrics *engine.Metrics
}

func NewOutboxDispatcher(repo *repository.Repository, client *Client, log *logger.Logger, metrics *engine.Metrics) *OutboxDispatcher {
	return &OutboxDispatcher{repo: repo, client: client, log: log, metrics: metrics}
}

// Run polls until the context is canceled.
func (d *OutboxDispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(dispatchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.dispatchOnce(ctx)
		}
	}
}

func (d *OutboxDispatcher) dispatchOnce(ctx context.Context) {
	records, err := d.repo.ClaimPendingOutbox(ctx, dispatchBatchSize)
	if err != nil {
		d.log.DatabaseError("outbox claim", err)
		return
	}

	for _, rec := range records {
		err := d.client.EnqueueLeadScoredDeliver(ctx, LeadScoredDeliverPayload{
			OutboxID:       rec.ID.String(),
			OrganizationID: rec.OrganizationID.String(),
		})
		if err != nil {
			d.metrics.OutboxDelivery(engine.OutcomeRetryable)
			msg := err.Error()
			if markErr := d.repo.MarkOutboxPending(ctx, rec.ID, &msg); markErr != nil {
				d.log.DatabaseError("outbox mark pending", markErr)
			}
			continue
		}
		d.metrics.OutboxDelivery(engine.OutcomeSuccess)
	}
}
