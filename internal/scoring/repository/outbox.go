package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"leadscore_backend/internal/events"
	"leadscore_backend/platform/apperr"
)

// OutboxStatus tracks a lead.scored row through the dispatch pipeline.
type OutboxStatus string

const (
	OutboxPending   OutboxStatus = "pending"
	OutboxEnqueued  OutboxStatus = "enqueued"
	OutboxDelivered OutboxStatus = "delivered"
)

// OutboxRecord is one staged lead.scored notification. Payload is the
// serialized event as committed alongside the score.
type OutboxRecord struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	LeadID         uuid.UUID
	ScoreID        uuid.UUID
	Payload        json.RawMessage
	Status         OutboxStatus
	Attempts       int
	RunAt          time.Time
}

// ClaimPendingOutbox atomically claims up to limit pending rows and marks
// them enqueued. Concurrent dispatchers skip each other's claims.
func (r *Repository) ClaimPendingOutbox(ctx context.Context, limit int) ([]OutboxRecord, error) {
	if limit < 1 {
		limit = 50
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, `WITH cte AS (
		SELECT id
		FROM score_outbox
		WHERE status = 'pending' AND run_at <= now()
		ORDER BY run_at ASC
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	)
	UPDATE score_outbox o
	SET status = 'enqueued', attempts = o.attempts + 1, updated_at = now()
	FROM cte
	WHERE o.id = cte.id
	RETURNING o.id, o.organization_id, o.lead_id, o.score_id, o.payload, o.status, o.attempts, o.run_at`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []OutboxRecord
	for rows.Next() {
		var rec OutboxRecord
		var status string
		if err := rows.Scan(&rec.ID, &rec.OrganizationID, &rec.LeadID, &rec.ScoreID, &rec.Payload, &status, &rec.Attempts, &rec.RunAt); err != nil {
			return nil, err
		}
		rec.Status = OutboxStatus(status)
		results = append(results, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return results, nil
}

// GetOutboxEvent loads a claimed row's payload as the event to publish.
func (r *Repository) GetOutboxEvent(ctx context.Context, id uuid.UUID) (events.LeadScored, error) {
	var payload json.RawMessage
	err := r.pool.QueryRow(ctx, `
		SELECT payload
		FROM score_outbox
		WHERE id = $1
	`, id).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return events.LeadScored{}, apperr.NotFound("outbox row not found")
	}
	if err != nil {
		return events.LeadScored{}, err
	}

	var event events.LeadScored
	if err := json.Unmarshal(payload, &event); err != nil {
		return events.LeadScored{}, err
	}
	event.BaseEvent = events.NewBaseEvent()
	return event, nil
}

// MarkOutboxDelivered finalizes a row after the event reached its consumers.
func (r *Repository) MarkOutboxDelivered(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE score_outbox
		SET status = 'delivered', last_error = NULL, updated_at = now()
		WHERE id = $1
	`, id)
	return err
}

// MarkOutboxPending returns a row to the pending pool after a failed
// delivery, with a short backoff so the dispatcher does not spin on it.
func (r *Repository) MarkOutboxPending(ctx context.Context, id uuid.UUID, lastError *string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE score_outbox
		SET status = 'pending', last_error = $2, run_at = now() + interval '5 seconds', updated_at = now()
		WHERE id = $1
	`, id, lastError)
	return err
}
