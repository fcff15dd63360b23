package service

import (
	"context"
	"fmt"

	"clubvault/internal/domain"
)

// PermissionService проверяет видимость областей и права на объекты
// через внешний сервис прав. Проверка выполняется на каждый элемент.
type PermissionService struct {
	caps Capabilities
	orgs OrganizationCatalog
}

// NewPermissionService создает новый экземпляр PermissionService
func NewPermissionService(caps Capabilities, orgs OrganizationCatalog) *PermissionService {
	return &PermissionService{
		caps: caps,
		orgs: orgs,
	}
}

// CheckScopeVisible проверяет, видна ли область вызывающему.
// Уровень клуба виден только администраторам клуба, уровень команды -
// всем, у кого есть доступ к команде.
func (s *PermissionService) CheckScopeVisible(ctx context.Context, caller domain.Caller, scope domain.Scope) error {
	if scope.SubOrganizationID != nil {
		team, err := s.orgs.GetSubOrganization(ctx, *scope.SubOrganizationID)
		if err != nil {
			return err
		}
		if team.OrganizationID != scope.OrganizationID {
			return fmt.Errorf("sub-organization %s in organization %s: %w",
				team.ID, scope.OrganizationID, domain.ErrNotFound)
		}
	}

	if caller.Privileged {
		return nil
	}

	var (
		allowed bool
		err     error
	)
	if scope.IsOrganizationLevel() {
		allowed, err = s.caps.IsOrganizationAdmin(ctx, caller, scope.OrganizationID)
	} else {
		allowed, err = s.caps.CanAccessSubOrganization(ctx, caller, *scope.SubOrganizationID)
	}
	if err != nil {
		return fmt.Errorf("failed to check permissions: %w", err)
	}
	if !allowed {
		return fmt.Errorf("scope %s: %w", scope, domain.ErrAccessDenied)
	}
	return nil
}

// CheckCanActOn проверяет право изменять конкретный объект или папку
func (s *PermissionService) CheckCanActOn(ctx context.Context, caller domain.Caller, ref domain.ResourceRef) error {
	if caller.Privileged {
		return nil
	}

	allowed, err := s.caps.CanActOn(ctx, caller, ref)
	if err != nil {
		return fmt.Errorf("failed to check permissions: %w", err)
	}
	if !allowed {
		return fmt.Errorf("%s %s: %w", ref.Type, ref.ID, domain.ErrAccessDenied)
	}
	return nil
}
