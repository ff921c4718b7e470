package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"leadscore_backend/internal/events"
	"leadscore_backend/internal/scoring/domain"
	"leadscore_backend/internal/scoring/engine"
	"leadscore_backend/platform/apperr"
)

const pgUniqueViolation = "23505"

// CurrentScore is the denormalized cache read for GET /leads/:id/score.
type CurrentScore struct {
	Record domain.LeadScore
	Stale  bool
}

// GetScoreByActivity returns the history record produced for an activity, or
// nil when the activity has not been scored yet.
func (r *Repository) GetScoreByActivity(ctx context.Context, leadID, activityID uuid.UUID) (*domain.LeadScore, error) {
	record, err := r.scanScore(r.pool.QueryRow(ctx, `
		SELECT id, lead_id, organization_id, activity_id, score, confidence, model_version,
		       breakdown, explanation, recommendations, insufficient_data, created_at
		FROM lead_scores
		WHERE lead_id = $1 AND activity_id = $2
	`, leadID, activityID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// CommitScore appends the history record, refreshes the lead's cached score,
// and stages the lead.scored outbox row in one transaction. A concurrent
// commit for the same activity resolves to the winner's record.
func (r *Repository) CommitScore(ctx context.Context, params engine.CommitScoreParams) (domain.LeadScore, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.LeadScore{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	record := domain.LeadScore{
		ID:               uuid.New(),
		LeadID:           params.LeadID,
		OrganizationID:   params.OrganizationID,
		ActivityID:       params.ActivityID,
		Score:            params.Score,
		Confidence:       params.Confidence,
		ModelVersion:     params.ModelVersion,
		Breakdown:        params.Breakdown,
		Explanation:      params.Explanation,
		Recommendations:  params.Recommendations,
		InsufficientData: params.InsufficientData,
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO lead_scores (id, lead_id, organization_id, activity_id, score, confidence,
		                         model_version, breakdown, explanation, recommendations, insufficient_data)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at
	`, record.ID, record.LeadID, record.OrganizationID, record.ActivityID, record.Score,
		record.Confidence, record.ModelVersion, record.Breakdown, record.Explanation,
		record.Recommendations, record.InsufficientData,
	).Scan(&record.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			// Lost a race on activity_id: the other commit is the record.
			existing, lookupErr := r.GetScoreByActivity(ctx, params.LeadID, params.ActivityID)
			if lookupErr != nil {
				return domain.LeadScore{}, lookupErr
			}
			if existing != nil {
				return *existing, nil
			}
			return domain.LeadScore{}, apperr.Conflict("activity already scored")
		}
		return domain.LeadScore{}, err
	}

	_, err = tx.Exec(ctx, `
		UPDATE leads
		SET current_score = $2, current_confidence = $3, current_score_id = $4, scored_at = $5, updated_at = now()
		WHERE id = $1
	`, record.LeadID, record.Score, record.Confidence, record.ID, record.CreatedAt)
	if err != nil {
		return domain.LeadScore{}, err
	}

	payload := events.LeadScored{
		LeadID:         record.LeadID,
		OrganizationID: record.OrganizationID,
		Score:          record.Score,
		Confidence:     record.Confidence,
		ScoreID:        record.ID,
		CreatedAt:      record.CreatedAt,
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO score_outbox (id, organization_id, lead_id, score_id, payload, status, run_at)
		VALUES ($1, $2, $3, $4, $5, 'pending', now())
	`, uuid.New(), record.OrganizationID, record.LeadID, record.ID, payload)
	if err != nil {
		return domain.LeadScore{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.LeadScore{}, err
	}
	return record, nil
}

// GetLatest returns the lead's most recent score together with a staleness
// flag. A score is stale when any activity for the lead has no matching
// history record, meaning a recomputation is still pending or was dropped.
func (r *Repository) GetLatest(ctx context.Context, leadID, organizationID uuid.UUID) (CurrentScore, error) {
	record, err := r.scanScore(r.pool.QueryRow(ctx, `
		SELECT id, lead_id, organization_id, activity_id, score, confidence, model_version,
		       breakdown, explanation, recommendations, insufficient_data, created_at
		FROM lead_scores
		WHERE lead_id = $1 AND organization_id = $2
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, leadID, organizationID))
	if errors.Is(err, pgx.ErrNoRows) {
		return CurrentScore{}, apperr.NotFound("lead has not been scored yet")
	}
	if err != nil {
		return CurrentScore{}, err
	}

	var stale bool
	err = r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM activities a
			WHERE a.lead_id = $1 AND a.organization_id = $2
			  AND NOT EXISTS (SELECT 1 FROM lead_scores s WHERE s.activity_id = a.id)
		)
	`, leadID, organizationID).Scan(&stale)
	if err != nil {
		return CurrentScore{}, err
	}

	return CurrentScore{Record: record, Stale: stale}, nil
}

// ListHistory returns history records newest first. before is an optional
// cursor; records created at or after it are excluded.
func (r *Repository) ListHistory(ctx context.Context, leadID, organizationID uuid.UUID, limit int, before *time.Time) ([]domain.LeadScore, error) {
	if limit < 1 || limit > 100 {
		limit = 20
	}
	cursor := time.Now().UTC().Add(time.Hour)
	if before != nil {
		cursor = *before
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, lead_id, organization_id, activity_id, score, confidence, model_version,
		       breakdown, explanation, recommendations, insufficient_data, created_at
		FROM lead_scores
		WHERE lead_id = $1 AND organization_id = $2 AND created_at < $3
		ORDER BY created_at DESC, id DESC
		LIMIT $4
	`, leadID, organizationID, cursor, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.LeadScore, 0, limit)
	for rows.Next() {
		record, err := r.scanScore(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, record)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return items, nil
}

func (r *Repository) scanScore(row pgx.Row) (domain.LeadScore, error) {
	var record domain.LeadScore
	err := row.Scan(
		&record.ID, &record.LeadID, &record.OrganizationID, &record.ActivityID,
		&record.Score, &record.Confidence, &record.ModelVersion,
		&record.Breakdown, &record.Explanation, &record.Recommendations,
		&record.InsufficientData, &record.CreatedAt,
	)
	if err != nil {
		return domain.LeadScore{}, err
	}
	return record, nil
}
