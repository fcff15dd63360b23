package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"clubvault/internal/domain"
)

const objectColumns = `id, kind, organization_id, sub_organization_id, folder_id, name, url,
            size_bytes, uploaded_by, created_at, deleted_at, deleted_by`

// ObjectRepository хранит фото и файлы в одной таблице stored_objects
type ObjectRepository struct {
	db *sqlx.DB
}

func NewObjectRepository(db *sqlx.DB) *ObjectRepository {
	return &ObjectRepository{db: db}
}

func (r *ObjectRepository) Create(ctx context.Context, object *domain.StoredObject) error {
	if object.ID == uuid.Nil {
		object.ID = uuid.New()
	}

	query := `
        INSERT INTO stored_objects (id, kind, organization_id, sub_organization_id, folder_id, name, url, size_bytes, uploaded_by)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING created_at`

	err := r.db.QueryRowContext(
		ctx,
		query,
		object.ID,
		object.Kind,
		object.OrganizationID,
		object.SubOrganizationID,
		object.FolderID,
		object.Name,
		object.URL,
		object.SizeBytes,
		object.UploadedBy,
	).Scan(&object.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create object: %w", err)
	}

	return nil
}

func (r *ObjectRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.StoredObject, error) {
	var object domain.StoredObject
	query := `SELECT ` + objectColumns + ` FROM stored_objects WHERE id = $1`

	if err := r.db.GetContext(ctx, &object, query, id); err != nil {
		return nil, wrapNotFound(err, "object %s", id)
	}

	return &object, nil
}

func (r *ObjectRepository) ListInFolder(ctx context.Context, scope domain.Scope, folderID *int64) ([]domain.StoredObject, error) {
	query := `
        SELECT ` + objectColumns + `
        FROM stored_objects
        WHERE organization_id = $1
        AND sub_organization_id IS NOT DISTINCT FROM $2
        AND folder_id IS NOT DISTINCT FROM $3
        AND deleted_at IS NULL
        ORDER BY created_at, id`

	objects := make([]domain.StoredObject, 0)
	if err := r.db.SelectContext(ctx, &objects, query, scope.OrganizationID, scope.SubOrganizationID, folderID); err != nil {
		return nil, fmt.Errorf("failed to list objects: %w", err)
	}

	return objects, nil
}

// ListActiveByOrganization не фильтрует по команде: organization_id
// проставлен и у объектов команд
func (r *ObjectRepository) ListActiveByOrganization(ctx context.Context, orgID uuid.UUID) ([]domain.StoredObject, error) {
	query := `
        SELECT ` + objectColumns + `
        FROM stored_objects
        WHERE organization_id = $1 AND deleted_at IS NULL
        ORDER BY created_at, id`

	objects := make([]domain.StoredObject, 0)
	if err := r.db.SelectContext(ctx, &objects, query, orgID); err != nil {
		return nil, fmt.Errorf("failed to list organization objects: %w", err)
	}

	return objects, nil
}

func (r *ObjectRepository) ListTrashedByOrganization(ctx context.Context, orgID uuid.UUID) ([]domain.StoredObject, error) {
	query := `
        SELECT ` + objectColumns + `
        FROM stored_objects
        WHERE organization_id = $1 AND deleted_at IS NOT NULL
        ORDER BY deleted_at DESC, id`

	objects := make([]domain.StoredObject, 0)
	if err := r.db.SelectContext(ctx, &objects, query, orgID); err != nil {
		return nil, fmt.Errorf("failed to list trashed objects: %w", err)
	}

	return objects, nil
}

// MarkDeleted ставит отметку удаления. Повторный вызов перезаписывает
// время и автора (last write wins).
func (r *ObjectRepository) MarkDeleted(ctx context.Context, id uuid.UUID, at time.Time, actor string) error {
	result, err := r.db.ExecContext(ctx, `
        UPDATE stored_objects
        SET deleted_at = $1, deleted_by = $2
        WHERE id = $3`, at, actor, id)
	if err != nil {
		return fmt.Errorf("failed to mark object as deleted: %w", err)
	}
	return expectAffected(result, "object %s", id)
}

func (r *ObjectRepository) Restore(ctx context.Context, id uuid.UUID, folderID *int64) error {
	result, err := r.db.ExecContext(ctx, `
        UPDATE stored_objects
        SET deleted_at = NULL, deleted_by = NULL, folder_id = $1
        WHERE id = $2 AND deleted_at IS NOT NULL`, folderID, id)
	if err != nil {
		return fmt.Errorf("failed to restore object: %w", err)
	}
	return expectAffected(result, "trashed object %s", id)
}

func (r *ObjectRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM stored_objects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return expectAffected(result, "object %s", id)
}
