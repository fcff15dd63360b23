package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"clubvault/internal/domain"
)

type OrganizationRepository struct {
	db *sqlx.DB
}

func NewOrganizationRepository(db *sqlx.DB) *OrganizationRepository {
	return &OrganizationRepository{db: db}
}

func (r *OrganizationRepository) GetOrganization(ctx context.Context, id uuid.UUID) (*domain.Organization, error) {
	var org domain.Organization
	err := r.db.GetContext(ctx, &org, `SELECT id, name, created_at FROM organizations WHERE id = $1`, id)
	if err != nil {
		return nil, wrapNotFound(err, "organization %s", id)
	}
	return &org, nil
}

func (r *OrganizationRepository) GetSubOrganization(ctx context.Context, id uuid.UUID) (*domain.SubOrganization, error) {
	var team domain.SubOrganization
	err := r.db.GetContext(ctx, &team,
		`SELECT id, organization_id, name, created_at FROM sub_organizations WHERE id = $1`, id)
	if err != nil {
		return nil, wrapNotFound(err, "sub-organization %s", id)
	}
	return &team, nil
}

func (r *OrganizationRepository) ListSubOrganizations(ctx context.Context, orgID uuid.UUID) ([]domain.SubOrganization, error) {
	teams := make([]domain.SubOrganization, 0)
	err := r.db.SelectContext(ctx, &teams, `
        SELECT id, organization_id, name, created_at
        FROM sub_organizations
        WHERE organization_id = $1
        ORDER BY name`, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sub-organizations: %w", err)
	}
	return teams, nil
}

// GetSubscription возвращает подписку клуба (subOrgID == nil) или команды
func (r *OrganizationRepository) GetSubscription(ctx context.Context, orgID uuid.UUID, subOrgID *uuid.UUID) (*domain.StorageSubscription, error) {
	var sub domain.StorageSubscription
	err := r.db.GetContext(ctx, &sub, `
        SELECT organization_id, sub_organization_id, premium, addon_gb, scheduled_addon_gb, scheduled_at
        FROM storage_subscriptions
        WHERE organization_id = $1 AND sub_organization_id IS NOT DISTINCT FROM $2`,
		orgID, subOrgID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get storage subscription: %w", err)
	}
	return &sub, nil
}
