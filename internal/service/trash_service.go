package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"clubvault/internal/domain"
	"clubvault/internal/metrics"
)

const (
	clubRootLabel = "Club root"
	teamRootLabel = "Team root"
)

// TrashService - жизненный цикл корзины: active -> trashed -> purged,
// trashed -> active через Restore
type TrashService struct {
	objects ObjectCatalog
	folders FolderCatalog
	orgs    OrganizationCatalog
	store   ObjectStore
	perms   *PermissionService
	metrics *metrics.VaultMetrics
	now     func() time.Time
}

func NewTrashService(
	objects ObjectCatalog,
	folders FolderCatalog,
	orgs OrganizationCatalog,
	store ObjectStore,
	perms *PermissionService,
	m *metrics.VaultMetrics,
) *TrashService {
	return &TrashService{
		objects: objects,
		folders: folders,
		orgs:    orgs,
		store:   store,
		perms:   perms,
		metrics: m,
		now:     time.Now,
	}
}

func (s *TrashService) loadForAction(ctx context.Context, caller domain.Caller, id uuid.UUID) (*domain.StoredObject, error) {
	object, err := s.objects.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.perms.CheckCanActOn(ctx, caller, domain.ObjectRef(object)); err != nil {
		return nil, err
	}
	return object, nil
}

// SoftDelete помещает объект в корзину. Повторный вызов для объекта в
// корзине ничего не делает.
func (s *TrashService) SoftDelete(ctx context.Context, caller domain.Caller, id uuid.UUID) (err error) {
	defer func() { s.metrics.ObserveTransition("soft_delete", err) }()

	object, err := s.loadForAction(ctx, caller, id)
	if err != nil {
		return err
	}
	if object.IsTrashed() {
		return nil
	}

	if err := s.objects.MarkDeleted(ctx, id, s.now().UTC(), caller.ID); err != nil {
		return fmt.Errorf("failed to move object to trash: %w", err)
	}

	log.Info().
		Str("object_id", id.String()).
		Str("caller", caller.ID).
		Msg("[Trash] object moved to trash")
	return nil
}

// Restore возвращает объект в исходную папку. Если папка уже удалена,
// объект появляется в корне своей области.
func (s *TrashService) Restore(ctx context.Context, caller domain.Caller, id uuid.UUID) (_ *domain.StoredObject, err error) {
	defer func() { s.metrics.ObserveTransition("restore", err) }()

	object, err := s.loadForAction(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if !object.IsTrashed() {
		return object, nil
	}

	folderID := object.FolderID
	if folderID != nil {
		folder, err := s.folders.GetByID(ctx, *folderID)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			folderID = nil
		case err != nil:
			return nil, err
		case !folder.Scope.Equal(object.Scope):
			folderID = nil
		}
		if folderID == nil {
			log.Warn().
				Str("object_id", id.String()).
				Int64("folder_id", *object.FolderID).
				Msg("[Trash] original folder is gone, restoring to scope root")
		}
	}

	if err := s.objects.Restore(ctx, id, folderID); err != nil {
		return nil, fmt.Errorf("failed to restore object: %w", err)
	}

	object.FolderID = folderID
	object.DeletedAt = nil
	object.DeletedBy = nil
	return object, nil
}

// PurgeForever окончательно удаляет объект из корзины
func (s *TrashService) PurgeForever(ctx context.Context, caller domain.Caller, id uuid.UUID) (err error) {
	defer func() { s.metrics.ObserveTransition("purge", err) }()

	object, err := s.loadForAction(ctx, caller, id)
	if err != nil {
		return err
	}
	if !object.IsTrashed() {
		return fmt.Errorf("object %s: %w", id, domain.ErrNotTrashed)
	}
	return s.purge(ctx, object)
}

// HardDelete удаляет объект минуя корзину. Доступно только
// привилегированным инструментам очистки.
func (s *TrashService) HardDelete(ctx context.Context, caller domain.Caller, id uuid.UUID) (err error) {
	defer func() { s.metrics.ObserveTransition("hard_delete", err) }()

	if !caller.Privileged {
		return fmt.Errorf("hard delete requires privileged caller: %w", domain.ErrAccessDenied)
	}
	object, err := s.objects.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return s.purge(ctx, object)
}

// purge удаляет строку каталога, затем байты. Ошибка хранилища только
// логируется: байты остаются сиротами.
func (s *TrashService) purge(ctx context.Context, object *domain.StoredObject) error {
	if err := s.objects.Delete(ctx, object.ID); err != nil {
		return fmt.Errorf("failed to purge object: %w", err)
	}

	if err := s.store.Delete(ctx, object.URL); err != nil {
		s.metrics.ObserveOrphanedBlob()
		log.Warn().
			Err(err).
			Str("object_id", object.ID.String()).
			Str("url", object.URL).
			Msg("[Trash] failed to delete blob, left orphaned")
	}

	log.Info().Str("object_id", object.ID.String()).Msg("[Trash] object purged")
	return nil
}

// TrashListing возвращает все объекты корзины клуба и его команд
// с подписью исходного местоположения
func (s *TrashService) TrashListing(ctx context.Context, caller domain.Caller, orgID uuid.UUID) ([]domain.TrashItem, error) {
	if err := s.perms.CheckScopeVisible(ctx, caller, domain.OrganizationScope(orgID)); err != nil {
		return nil, err
	}

	objects, err := s.objects.ListTrashedByOrganization(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list trash: %w", err)
	}

	teams, err := s.orgs.ListSubOrganizations(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	teamNames := make(map[uuid.UUID]string, len(teams))
	for _, t := range teams {
		teamNames[t.ID] = t.Name
	}

	labeler := &locationLabeler{
		folders:   s.folders,
		teamNames: teamNames,
		cache:     make(map[int64]*domain.Folder),
	}

	items := make([]domain.TrashItem, 0, len(objects))
	for _, o := range objects {
		label, err := labeler.label(ctx, &o)
		if err != nil {
			return nil, err
		}
		items = append(items, domain.TrashItem{StoredObject: o, Location: label})
	}
	return items, nil
}

// EmptyTrash окончательно удаляет все объекты корзины клуба.
// Ошибка одного объекта не прерывает остальные.
func (s *TrashService) EmptyTrash(ctx context.Context, caller domain.Caller, orgID uuid.UUID) (*domain.BatchResult, error) {
	if err := s.perms.CheckScopeVisible(ctx, caller, domain.OrganizationScope(orgID)); err != nil {
		return nil, err
	}

	objects, err := s.objects.ListTrashedByOrganization(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list trash: %w", err)
	}

	result := &domain.BatchResult{Items: make([]domain.ItemResult, 0, len(objects))}
	for _, o := range objects {
		result.Add(itemResult(o.ID, o.Kind, s.PurgeForever(ctx, caller, o.ID)))
	}

	log.Info().
		Str("organization_id", orgID.String()).
		Int("purged", result.Succeeded).
		Int("failed", result.Failed).
		Msg("[Trash] trash emptied")
	return result, nil
}

// locationLabeler строит подпись исходного местоположения объекта
type locationLabeler struct {
	folders   FolderCatalog
	teamNames map[uuid.UUID]string
	cache     map[int64]*domain.Folder
}

func (l *locationLabeler) folder(ctx context.Context, id int64) (*domain.Folder, error) {
	if f, ok := l.cache[id]; ok {
		return f, nil
	}
	f, err := l.folders.GetByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		f, err = nil, nil
	}
	if err != nil {
		return nil, err
	}
	l.cache[id] = f
	return f, nil
}

func (l *locationLabeler) label(ctx context.Context, o *domain.StoredObject) (string, error) {
	var folder *domain.Folder
	if o.FolderID != nil {
		f, err := l.folder(ctx, *o.FolderID)
		if err != nil {
			return "", err
		}
		folder = f
	}

	if o.SubOrganizationID == nil {
		if folder == nil {
			return clubRootLabel, nil
		}
		return folder.Name, nil
	}

	if folder == nil {
		return teamRootLabel, nil
	}
	team, ok := l.teamNames[*o.SubOrganizationID]
	if !ok {
		return folder.Name, nil
	}
	return team + " / " + folder.Name, nil
}

func itemResult(id uuid.UUID, kind domain.ObjectKind, err error) domain.ItemResult {
	item := domain.ItemResult{ObjectID: id, Kind: kind, OK: err == nil}
	if err != nil {
		item.Reason = err.Error()
	}
	return item
}
