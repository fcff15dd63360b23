package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"clubvault/internal/domain"
)

// FolderService - иерархия папок внутри области клуба или команды
type FolderService struct {
	folders FolderCatalog
	objects ObjectCatalog
	perms   *PermissionService
}

func NewFolderService(folders FolderCatalog, objects ObjectCatalog, perms *PermissionService) *FolderService {
	return &FolderService{
		folders: folders,
		objects: objects,
		perms:   perms,
	}
}

func validateFolderName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("folder name is required: %w", domain.ErrInvalidArgument)
	}
	if domain.IsReservedName(name) {
		return "", fmt.Errorf("folder name %q is reserved: %w", name, domain.ErrInvalidArgument)
	}
	if strings.Contains(name, "/") {
		return "", fmt.Errorf("folder name must not contain '/': %w", domain.ErrInvalidArgument)
	}
	return name, nil
}

// folderInScope загружает папку и проверяет, что она принадлежит scope.
// Папка чужой области считается отсутствующей.
func (s *FolderService) folderInScope(ctx context.Context, scope domain.Scope, id int64) (*domain.Folder, error) {
	folder, err := s.folders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !folder.Scope.Equal(scope) {
		return nil, fmt.Errorf("folder %d in scope %s: %w", id, scope, domain.ErrNotFound)
	}
	return folder, nil
}

// ListChildren возвращает прямые подпапки parentID (nil - корень области)
func (s *FolderService) ListChildren(ctx context.Context, caller domain.Caller, scope domain.Scope, parentID *int64) ([]domain.Folder, error) {
	if err := s.perms.CheckScopeVisible(ctx, caller, scope); err != nil {
		return nil, err
	}
	if parentID != nil {
		if _, err := s.folderInScope(ctx, scope, *parentID); err != nil {
			return nil, err
		}
	}

	folders, err := s.folders.ListChildren(ctx, scope, parentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list folders: %w", err)
	}
	return folders, nil
}

// ListObjects возвращает активные фото и файлы папки отдельными списками
func (s *FolderService) ListObjects(ctx context.Context, caller domain.Caller, scope domain.Scope, folderID *int64) (photos, files []domain.StoredObject, err error) {
	if err := s.perms.CheckScopeVisible(ctx, caller, scope); err != nil {
		return nil, nil, err
	}
	if folderID != nil {
		if _, err := s.folderInScope(ctx, scope, *folderID); err != nil {
			return nil, nil, err
		}
	}

	objects, err := s.objects.ListInFolder(ctx, scope, folderID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list objects: %w", err)
	}
	photos, files = domain.SplitByKind(objects)
	return photos, files, nil
}

// GetContent собирает подпапки и объекты папки для одного экрана
func (s *FolderService) GetContent(ctx context.Context, caller domain.Caller, scope domain.Scope, folderID *int64) (*domain.FolderContent, error) {
	content := &domain.FolderContent{}
	if folderID != nil {
		folder, err := s.folderInScope(ctx, scope, *folderID)
		if err != nil {
			return nil, err
		}
		content.Folder = folder
	}

	folders, err := s.ListChildren(ctx, caller, scope, folderID)
	if err != nil {
		return nil, err
	}
	photos, files, err := s.ListObjects(ctx, caller, scope, folderID)
	if err != nil {
		return nil, err
	}

	content.Folders = folders
	content.Photos = photos
	content.Files = files
	return content, nil
}

// ResolvePath возвращает цепочку папок от корня до folderID включительно.
// Повторно встреченная папка означает цикл и дает domain.ErrIntegrity.
func (s *FolderService) ResolvePath(ctx context.Context, folderID int64) ([]domain.Folder, error) {
	visited := make(map[int64]struct{})
	path := make([]domain.Folder, 0)

	var scope *domain.Scope
	next := &folderID
	for next != nil {
		if _, ok := visited[*next]; ok {
			log.Error().Int64("folder_id", *next).Msg("[Folders] cycle in folder hierarchy")
			return nil, fmt.Errorf("folder %d: %w", folderID, domain.ErrIntegrity)
		}
		visited[*next] = struct{}{}

		folder, err := s.folders.GetByID(ctx, *next)
		if err != nil {
			return nil, err
		}
		if scope == nil {
			scope = &folder.Scope
		} else if !folder.Scope.Equal(*scope) {
			return nil, fmt.Errorf("folder %d crosses scopes: %w", folder.ID, domain.ErrIntegrity)
		}

		path = append(path, *folder)
		next = folder.ParentID
	}

	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path, nil
}

// ResolvePathFor - ResolvePath с проверкой видимости области
func (s *FolderService) ResolvePathFor(ctx context.Context, caller domain.Caller, folderID int64) ([]domain.Folder, error) {
	folder, err := s.folders.GetByID(ctx, folderID)
	if err != nil {
		return nil, err
	}
	if err := s.perms.CheckScopeVisible(ctx, caller, folder.Scope); err != nil {
		return nil, err
	}
	return s.ResolvePath(ctx, folderID)
}

func (s *FolderService) CreateFolder(ctx context.Context, caller domain.Caller, scope domain.Scope, parentID *int64, name string) (*domain.Folder, error) {
	name, err := validateFolderName(name)
	if err != nil {
		return nil, err
	}
	if err := s.perms.CheckScopeVisible(ctx, caller, scope); err != nil {
		return nil, err
	}

	target := domain.ScopeRef(scope)
	if parentID != nil {
		parent, err := s.folderInScope(ctx, scope, *parentID)
		if err != nil {
			return nil, err
		}
		target = domain.FolderRef(parent)
	}
	if err := s.perms.CheckCanActOn(ctx, caller, target); err != nil {
		return nil, err
	}

	folder := &domain.Folder{
		Name:      name,
		Scope:     scope,
		ParentID:  parentID,
		CreatedBy: caller.ID,
	}
	if err := s.folders.Create(ctx, folder); err != nil {
		return nil, fmt.Errorf("failed to create folder: %w", err)
	}

	log.Info().
		Int64("folder_id", folder.ID).
		Str("scope", scope.String()).
		Str("caller", caller.ID).
		Msg("[Folders] folder created")
	return folder, nil
}

func (s *FolderService) RenameFolder(ctx context.Context, caller domain.Caller, id int64, name string) (*domain.Folder, error) {
	name, err := validateFolderName(name)
	if err != nil {
		return nil, err
	}

	folder, err := s.folders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.perms.CheckCanActOn(ctx, caller, domain.FolderRef(folder)); err != nil {
		return nil, err
	}

	if err := s.folders.UpdateName(ctx, id, name); err != nil {
		return nil, fmt.Errorf("failed to rename folder: %w", err)
	}
	folder.Name = name
	return folder, nil
}

// MoveFolder переносит папку под newParentID (nil - в корень области).
// Перенос в саму себя, в свою подпапку или в другую область запрещен.
func (s *FolderService) MoveFolder(ctx context.Context, caller domain.Caller, id int64, newParentID *int64) (*domain.Folder, error) {
	folder, err := s.folders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.perms.CheckCanActOn(ctx, caller, domain.FolderRef(folder)); err != nil {
		return nil, err
	}

	if newParentID != nil {
		if *newParentID == id {
			return nil, fmt.Errorf("cannot move folder into itself: %w", domain.ErrInvalidArgument)
		}

		parent, err := s.folders.GetByID(ctx, *newParentID)
		if err != nil {
			return nil, err
		}
		if !parent.Scope.Equal(folder.Scope) {
			return nil, fmt.Errorf("cannot move folder to another scope: %w", domain.ErrInvalidArgument)
		}

		chain, err := s.ResolvePath(ctx, *newParentID)
		if err != nil {
			return nil, err
		}
		for _, f := range chain {
			if f.ID == id {
				return nil, fmt.Errorf("cannot move folder into its own subfolder: %w", domain.ErrInvalidArgument)
			}
		}
	}

	if err := s.folders.UpdateParent(ctx, id, newParentID); err != nil {
		return nil, fmt.Errorf("failed to move folder: %w", err)
	}
	folder.ParentID = newParentID
	return folder, nil
}

// DeleteFolder удаляет папку. Подпапки и объекты переходят к родителю,
// поэтому вызывающему возвращается предупреждение для показа.
func (s *FolderService) DeleteFolder(ctx context.Context, caller domain.Caller, id int64) (string, error) {
	folder, err := s.folders.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	if err := s.perms.CheckCanActOn(ctx, caller, domain.FolderRef(folder)); err != nil {
		return "", err
	}

	if err := s.folders.Delete(ctx, id); err != nil {
		return "", fmt.Errorf("failed to delete folder: %w", err)
	}

	log.Info().
		Int64("folder_id", id).
		Str("caller", caller.ID).
		Msg("[Folders] folder deleted")
	return domain.FolderDeleteNotice, nil
}
