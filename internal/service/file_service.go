package service

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"clubvault/internal/domain"
)

// UploadRequest - загрузка фото или файла в область
type UploadRequest struct {
	Scope    domain.Scope
	FolderID *int64
	Kind     domain.ObjectKind
	Name     string
	Data     []byte
}

// FileService загружает объекты: проверка квоты, запись в хранилище,
// затем строка каталога
type FileService struct {
	objects ObjectCatalog
	folders FolderCatalog
	store   ObjectStore
	quota   *StorageQuotaService
	perms   *PermissionService
}

func NewFileService(
	objects ObjectCatalog,
	folders FolderCatalog,
	store ObjectStore,
	quota *StorageQuotaService,
	perms *PermissionService,
) *FileService {
	return &FileService{
		objects: objects,
		folders: folders,
		store:   store,
		quota:   quota,
		perms:   perms,
	}
}

// objectKey строит ключ вида vault/<org>/<team|club>/<uuid>/<name>
func objectKey(scope domain.Scope, id uuid.UUID, name string) string {
	owner := "club"
	if scope.SubOrganizationID != nil {
		owner = scope.SubOrganizationID.String()
	}
	return strings.Join([]string{"vault", scope.OrganizationID.String(), owner, id.String(), name}, "/")
}

func (s *FileService) Upload(ctx context.Context, caller domain.Caller, req UploadRequest) (*domain.StoredObject, error) {
	if !req.Kind.Valid() {
		return nil, fmt.Errorf("unknown object kind %q: %w", req.Kind, domain.ErrInvalidArgument)
	}
	name := path.Base(strings.TrimSpace(req.Name))
	if domain.IsReservedName(name) || name == "/" {
		return nil, fmt.Errorf("invalid object name %q: %w", req.Name, domain.ErrInvalidArgument)
	}

	if err := s.perms.CheckScopeVisible(ctx, caller, req.Scope); err != nil {
		return nil, err
	}

	target := domain.ScopeRef(req.Scope)
	if req.FolderID != nil {
		folder, err := s.folders.GetByID(ctx, *req.FolderID)
		if err != nil {
			return nil, err
		}
		if !folder.Scope.Equal(req.Scope) {
			return nil, fmt.Errorf("folder %d belongs to another scope: %w", folder.ID, domain.ErrInvalidArgument)
		}
		target = domain.FolderRef(folder)
	}
	if err := s.perms.CheckCanActOn(ctx, caller, target); err != nil {
		return nil, err
	}

	size := int64(len(req.Data))
	allowed, err := s.quota.CanUpload(ctx, caller, req.Scope, size)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, fmt.Errorf("upload of %d bytes: %w", size, domain.ErrQuotaExceeded)
	}

	object := &domain.StoredObject{
		ID:         uuid.New(),
		Kind:       req.Kind,
		Scope:      req.Scope,
		FolderID:   req.FolderID,
		Name:       name,
		SizeBytes:  &size,
		UploadedBy: caller.ID,
	}

	url, err := s.store.Put(ctx, objectKey(req.Scope, object.ID, name), req.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to store object: %w", err)
	}
	object.URL = url

	if err := s.objects.Create(ctx, object); err != nil {
		if delErr := s.store.Delete(context.WithoutCancel(ctx), url); delErr != nil {
			log.Warn().Err(delErr).Str("url", url).Msg("[Upload] failed to clean up blob")
		}
		return nil, fmt.Errorf("failed to save object: %w", err)
	}

	log.Info().
		Str("object_id", object.ID.String()).
		Str("kind", string(object.Kind)).
		Int64("size", size).
		Str("scope", req.Scope.String()).
		Msg("[Upload] object stored")
	return object, nil
}

// GetObject возвращает объект, видимый вызывающему
func (s *FileService) GetObject(ctx context.Context, caller domain.Caller, id uuid.UUID) (*domain.StoredObject, error) {
	object, err := s.objects.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.perms.CheckScopeVisible(ctx, caller, object.Scope); err != nil {
		return nil, err
	}
	return object, nil
}
