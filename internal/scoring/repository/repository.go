// Package repository implements Postgres persistence for the scoring
// context: lead snapshots, activity windows, score history, tenant
// settings, and the lead.scored outbox.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"leadscore_backend/internal/scoring/domain"
	"leadscore_backend/platform/apperr"
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetLeadSnapshot loads the scoring view of a lead. Lookup is by id alone so
// a cross-tenant request can be distinguished from a missing lead.
func (r *Repository) GetLeadSnapshot(ctx context.Context, leadID, organizationID uuid.UUID) (domain.LeadSnapshot, error) {
	var lead domain.LeadSnapshot
	err := r.pool.QueryRow(ctx, `
		SELECT id, organization_id, industry, company_size, role, budget_cents, equity_pct, timeframe_days, created_at
		FROM leads
		WHERE id = $1
	`, leadID).Scan(
		&lead.ID, &lead.OrganizationID, &lead.Industry, &lead.CompanySize,
		&lead.Role, &lead.BudgetCents, &lead.EquityPct, &lead.TimeframeDays, &lead.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.LeadSnapshot{}, apperr.NotFound("lead not found")
	}
	if err != nil {
		return domain.LeadSnapshot{}, err
	}
	if lead.OrganizationID != organizationID {
		return domain.LeadSnapshot{}, apperr.Forbidden("lead belongs to another organization")
	}
	return lead, nil
}

// ListActivities returns the lead's activities recorded since the cutoff,
// oldest first.
func (r *Repository) ListActivities(ctx context.Context, leadID, organizationID uuid.UUID, since time.Time) ([]domain.Activity, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, lead_id, organization_id, type, direction, occurred_at, payload
		FROM activities
		WHERE lead_id = $1 AND organization_id = $2 AND occurred_at >= $3
		ORDER BY occurred_at ASC
	`, leadID, organizationID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.Activity, 0)
	for rows.Next() {
		var a domain.Activity
		var activityType, direction string
		if err := rows.Scan(&a.ID, &a.LeadID, &a.OrganizationID, &activityType, &direction, &a.OccurredAt, &a.Payload); err != nil {
			return nil, err
		}
		a.Type = domain.ActivityType(activityType)
		a.Direction = domain.Direction(direction)
		items = append(items, a)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return items, nil
}

// InsertActivity records a new interaction event. Activities are immutable;
// there is no update path.
func (r *Repository) InsertActivity(ctx context.Context, a domain.Activity) (domain.Activity, error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO activities (id, lead_id, organization_id, type, direction, occurred_at, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, a.ID, a.LeadID, a.OrganizationID, string(a.Type), string(a.Direction), a.OccurredAt, a.Payload).Scan(&a.ID)
	if err != nil {
		return domain.Activity{}, err
	}
	return a, nil
}

// GetActivity loads a single activity scoped to the organization.
func (r *Repository) GetActivity(ctx context.Context, activityID, organizationID uuid.UUID) (domain.Activity, error) {
	var a domain.Activity
	var activityType, direction string
	err := r.pool.QueryRow(ctx, `
		SELECT id, lead_id, organization_id, type, direction, occurred_at, payload
		FROM activities
		WHERE id = $1 AND organization_id = $2
	`, activityID, organizationID).Scan(
		&a.ID, &a.LeadID, &a.OrganizationID, &activityType, &direction, &a.OccurredAt, &a.Payload,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Activity{}, apperr.NotFound("activity not found")
	}
	if err != nil {
		return domain.Activity{}, err
	}
	a.Type = domain.ActivityType(activityType)
	a.Direction = domain.Direction(direction)
	return a, nil
}
