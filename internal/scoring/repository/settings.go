package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"leadscore_backend/internal/scoring/domain"
)

// GetSettings returns the organization's scoring settings, or the engine
// defaults when the tenant has never customized them. The stored document
// only carries the tunable fields; operational timeouts come from defaults.
func (r *Repository) GetSettings(ctx context.Context, organizationID uuid.UUID) (domain.TenantSettings, error) {
	settings := domain.DefaultSettings()
	err := r.pool.QueryRow(ctx, `
		SELECT settings
		FROM scoring_settings
		WHERE organization_id = $1
	`, organizationID).Scan(&settings)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.DefaultSettings(), nil
	}
	if err != nil {
		return domain.TenantSettings{}, err
	}
	return settings.Normalize(), nil
}

// UpsertSettings stores the tenant's scoring configuration. The document is
// normalized before writing so reads never see invalid weights.
func (r *Repository) UpsertSettings(ctx context.Context, organizationID uuid.UUID, settings domain.TenantSettings) (domain.TenantSettings, error) {
	settings = settings.Normalize()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO scoring_settings (organization_id, settings, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (organization_id) DO UPDATE SET settings = EXCLUDED.settings, updated_at = now()
	`, organizationID, settings)
	if err != nil {
		return domain.TenantSettings{}, err
	}
	return settings, nil
}
