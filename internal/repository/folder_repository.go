package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"clubvault/internal/domain"
)

const folderColumns = `id, name, organization_id, sub_organization_id, parent_id, created_by, created_at`

type FolderRepository struct {
	db *sqlx.DB
}

func NewFolderRepository(db *sqlx.DB) *FolderRepository {
	return &FolderRepository{db: db}
}

// Create создает папку. Родитель должен принадлежать той же области,
// иначе цепочка родителей не замкнется на NULL внутри области.
func (r *FolderRepository) Create(ctx context.Context, folder *domain.Folder) error {
	query := `
        INSERT INTO folders (name, organization_id, sub_organization_id, parent_id, created_by)
        SELECT $1::text, $2::uuid, $3::uuid, $4::bigint, $5::text
        WHERE $4::bigint IS NULL OR EXISTS (
            SELECT 1 FROM folders p
            WHERE p.id = $4::bigint
            AND p.organization_id = $2::uuid
            AND p.sub_organization_id IS NOT DISTINCT FROM $3::uuid
        )
        RETURNING id, created_at`

	err := r.db.QueryRowContext(
		ctx,
		query,
		folder.Name,
		folder.OrganizationID,
		folder.SubOrganizationID,
		folder.ParentID,
		folder.CreatedBy,
	).Scan(&folder.ID, &folder.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("parent folder %d in scope %s: %w", derefID(folder.ParentID), folder.Scope, domain.ErrNotFound)
		}
		return fmt.Errorf("failed to create folder: %w", err)
	}

	return nil
}

func (r *FolderRepository) GetByID(ctx context.Context, id int64) (*domain.Folder, error) {
	query := `SELECT ` + folderColumns + ` FROM folders WHERE id = $1`

	var folder domain.Folder
	if err := r.db.GetContext(ctx, &folder, query, id); err != nil {
		return nil, wrapNotFound(err, "folder %d", id)
	}

	return &folder, nil
}

// ListChildren возвращает дочерние папки; parentID == nil - корень области
func (r *FolderRepository) ListChildren(ctx context.Context, scope domain.Scope, parentID *int64) ([]domain.Folder, error) {
	query := `
        SELECT ` + folderColumns + `
        FROM folders
        WHERE organization_id = $1
        AND sub_organization_id IS NOT DISTINCT FROM $2
        AND parent_id IS NOT DISTINCT FROM $3
        ORDER BY name, id`

	folders := make([]domain.Folder, 0)
	if err := r.db.SelectContext(ctx, &folders, query, scope.OrganizationID, scope.SubOrganizationID, parentID); err != nil {
		return nil, fmt.Errorf("failed to list folders: %w", err)
	}

	return folders, nil
}

func (r *FolderRepository) UpdateName(ctx context.Context, id int64, name string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE folders SET name = $1 WHERE id = $2`, name, id)
	if err != nil {
		return fmt.Errorf("failed to update folder name: %w", err)
	}
	return expectAffected(result, "folder %d", id)
}

// UpdateParent меняет родителя папки. Содержимое не перемещается физически:
// вложенность задается ссылками.
func (r *FolderRepository) UpdateParent(ctx context.Context, id int64, parentID *int64) error {
	result, err := r.db.ExecContext(ctx, `UPDATE folders SET parent_id = $1 WHERE id = $2`, parentID, id)
	if err != nil {
		return fmt.Errorf("failed to update folder parent: %w", err)
	}
	return expectAffected(result, "folder %d", id)
}

// Delete удаляет папку. Дочерние папки и объекты переходят к родителю
// удаляемой папки, каскадного удаления нет.
func (r *FolderRepository) Delete(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var parent sql.NullInt64
	if err := tx.QueryRowContext(ctx, `SELECT parent_id FROM folders WHERE id = $1 FOR UPDATE`, id).Scan(&parent); err != nil {
		return wrapNotFound(err, "folder %d", id)
	}
	var parentID *int64
	if parent.Valid {
		parentID = &parent.Int64
	}

	if _, err := tx.ExecContext(ctx, `UPDATE folders SET parent_id = $1 WHERE parent_id = $2`, parentID, id); err != nil {
		return fmt.Errorf("failed to reparent subfolders: %w", err)
	}

	// Объекты в корзине тоже переносятся, чтобы восстановление не ссылалось на удаленную папку
	if _, err := tx.ExecContext(ctx, `UPDATE stored_objects SET folder_id = $1 WHERE folder_id = $2`, parentID, id); err != nil {
		return fmt.Errorf("failed to reparent objects: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM folders WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete folder: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.Debug().Int64("folder_id", id).Msg("[FolderRepository] folder deleted, contents moved to parent")
	return nil
}

func derefID(id *int64) int64 {
	if id == nil {
		return 0
	}
	return *id
}
