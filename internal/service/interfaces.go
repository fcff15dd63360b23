package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"clubvault/internal/domain"
)

// FolderCatalog - папки в каталоге. Методы возвращают domain.ErrNotFound,
// если строка отсутствует.
type FolderCatalog interface {
	GetByID(ctx context.Context, id int64) (*domain.Folder, error)
	ListChildren(ctx context.Context, scope domain.Scope, parentID *int64) ([]domain.Folder, error)
	Create(ctx context.Context, folder *domain.Folder) error
	UpdateName(ctx context.Context, id int64, name string) error
	UpdateParent(ctx context.Context, id int64, parentID *int64) error
	Delete(ctx context.Context, id int64) error
}

// ObjectCatalog - фото и файлы в каталоге
type ObjectCatalog interface {
	// GetByID возвращает объект в любом состоянии, включая корзину
	GetByID(ctx context.Context, id uuid.UUID) (*domain.StoredObject, error)
	// ListInFolder возвращает активные объекты папки (nil - корень области)
	ListInFolder(ctx context.Context, scope domain.Scope, folderID *int64) ([]domain.StoredObject, error)
	// ListActiveByOrganization - все активные объекты клуба и его команд
	ListActiveByOrganization(ctx context.Context, orgID uuid.UUID) ([]domain.StoredObject, error)
	ListTrashedByOrganization(ctx context.Context, orgID uuid.UUID) ([]domain.StoredObject, error)
	Create(ctx context.Context, object *domain.StoredObject) error
	MarkDeleted(ctx context.Context, id uuid.UUID, at time.Time, actor string) error
	// Restore снимает отметку удаления и ставит объект в folderID
	Restore(ctx context.Context, id uuid.UUID, folderID *int64) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type OrganizationCatalog interface {
	GetOrganization(ctx context.Context, id uuid.UUID) (*domain.Organization, error)
	GetSubOrganization(ctx context.Context, id uuid.UUID) (*domain.SubOrganization, error)
	ListSubOrganizations(ctx context.Context, orgID uuid.UUID) ([]domain.SubOrganization, error)
	// GetSubscription возвращает nil, nil если подписки нет
	GetSubscription(ctx context.Context, orgID uuid.UUID, subOrgID *uuid.UUID) (*domain.StorageSubscription, error)
}

// ObjectStore - внешнее хранилище байтов
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte) (string, error)
	Get(ctx context.Context, url string) ([]byte, error)
	PublicURL(key string) string
	Delete(ctx context.Context, url string) error
}

// Capabilities - внешняя проверка прав
type Capabilities interface {
	// CanActOn - может ли вызывающий изменять объект или папку
	CanActOn(ctx context.Context, caller domain.Caller, target domain.ResourceRef) (bool, error)
	// IsOrganizationAdmin - расширенные права на уровне клуба
	IsOrganizationAdmin(ctx context.Context, caller domain.Caller, orgID uuid.UUID) (bool, error)
	CanAccessSubOrganization(ctx context.Context, caller domain.Caller, subOrgID uuid.UUID) (bool, error)
}
