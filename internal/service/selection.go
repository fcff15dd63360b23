package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"clubvault/internal/domain"
)

// SelectionRef - выбранный объект
type SelectionRef struct {
	Kind domain.ObjectKind `json:"kind"`
	ID   uuid.UUID         `json:"id"`
}

// Selection - набор выбранных фото и файлов текущего экрана.
// Порядок выбора сохраняется.
type Selection struct {
	mu     sync.Mutex
	photos map[uuid.UUID]struct{}
	files  map[uuid.UUID]struct{}
	order  []SelectionRef
}

func NewSelection() *Selection {
	return &Selection{
		photos: make(map[uuid.UUID]struct{}),
		files:  make(map[uuid.UUID]struct{}),
	}
}

// SelectionOf создает выбор из готового списка ссылок
func SelectionOf(refs []SelectionRef) *Selection {
	sel := NewSelection()
	for _, ref := range refs {
		if !sel.IsSelected(ref.Kind, ref.ID) {
			sel.Toggle(ref.Kind, ref.ID)
		}
	}
	return sel
}

func (s *Selection) set(kind domain.ObjectKind) map[uuid.UUID]struct{} {
	if kind == domain.ObjectKindPhoto {
		return s.photos
	}
	return s.files
}

// Toggle переключает выбор и возвращает новое состояние
func (s *Selection) Toggle(kind domain.ObjectKind, id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	set := s.set(kind)
	if _, ok := set[id]; ok {
		delete(set, id)
		for i, ref := range s.order {
			if ref.Kind == kind && ref.ID == id {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
		return false
	}
	set[id] = struct{}{}
	s.order = append(s.order, SelectionRef{Kind: kind, ID: id})
	return true
}

// SelectAll выбирает все объекты текущего списка
func (s *Selection) SelectAll(listing []domain.StoredObject) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, o := range listing {
		set := s.set(o.Kind)
		if _, ok := set[o.ID]; ok {
			continue
		}
		set[o.ID] = struct{}{}
		s.order = append(s.order, SelectionRef{Kind: o.Kind, ID: o.ID})
	}
}

func (s *Selection) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.photos = make(map[uuid.UUID]struct{})
	s.files = make(map[uuid.UUID]struct{})
	s.order = nil
}

func (s *Selection) IsSelected(kind domain.ObjectKind, id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.set(kind)[id]
	return ok
}

func (s *Selection) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

// Refs возвращает копию выбранных ссылок в порядке выбора
func (s *Selection) Refs() []SelectionRef {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SelectionRef(nil), s.order...)
}

// BatchCoordinator применяет операцию к каждому выбранному объекту.
// Пакет не прерывается на ошибке одного объекта.
type BatchCoordinator struct {
	trash    *TrashService
	exporter *ExportService
	objects  ObjectCatalog
	perms    *PermissionService
}

func NewBatchCoordinator(trash *TrashService, exporter *ExportService, objects ObjectCatalog, perms *PermissionService) *BatchCoordinator {
	return &BatchCoordinator{
		trash:    trash,
		exporter: exporter,
		objects:  objects,
		perms:    perms,
	}
}

// checkKind сверяет тип ссылки с типом объекта в каталоге
func (c *BatchCoordinator) checkKind(ctx context.Context, ref SelectionRef) (*domain.StoredObject, error) {
	object, err := c.objects.GetByID(ctx, ref.ID)
	if err != nil {
		return nil, err
	}
	if object.Kind != ref.Kind {
		return nil, fmt.Errorf("object %s is not a %s: %w", ref.ID, ref.Kind, domain.ErrNotFound)
	}
	return object, nil
}

func (c *BatchCoordinator) apply(ctx context.Context, refs []SelectionRef, op func(id uuid.UUID) error) *domain.BatchResult {
	result := &domain.BatchResult{Items: make([]domain.ItemResult, 0, len(refs))}
	for _, ref := range refs {
		_, err := c.checkKind(ctx, ref)
		if err == nil {
			err = op(ref.ID)
		}
		result.Add(itemResult(ref.ID, ref.Kind, err))
	}
	return result
}

// BatchSoftDelete перемещает выбранные объекты в корзину
func (c *BatchCoordinator) BatchSoftDelete(ctx context.Context, caller domain.Caller, sel *Selection) *domain.BatchResult {
	result := c.apply(ctx, sel.Refs(), func(id uuid.UUID) error {
		return c.trash.SoftDelete(ctx, caller, id)
	})
	log.Info().Str("caller", caller.ID).Msg("[Batch] " + result.Summary("moved %d to trash"))
	return result
}

// BatchRestore восстанавливает выбранные объекты из корзины
func (c *BatchCoordinator) BatchRestore(ctx context.Context, caller domain.Caller, sel *Selection) *domain.BatchResult {
	result := c.apply(ctx, sel.Refs(), func(id uuid.UUID) error {
		_, err := c.trash.Restore(ctx, caller, id)
		return err
	})
	log.Info().Str("caller", caller.ID).Msg("[Batch] " + result.Summary("restored %d"))
	return result
}

// BatchExport собирает плоский архив из выбранных объектов. Отсутствующие
// и недоступные объекты попадают в список неудачных.
func (c *BatchCoordinator) BatchExport(ctx context.Context, caller domain.Caller, sel *Selection, progress domain.ProgressFunc) (*domain.ArchiveResult, error) {
	refs := sel.Refs()
	objects := make([]domain.StoredObject, 0, len(refs))
	var failed []domain.FailedItem

	visible := make(map[string]error)
	for _, ref := range refs {
		object, err := c.checkKind(ctx, ref)
		if err == nil {
			key := object.Scope.String()
			scopeErr, ok := visible[key]
			if !ok {
				scopeErr = c.perms.CheckScopeVisible(ctx, caller, object.Scope)
				visible[key] = scopeErr
			}
			err = scopeErr
		}
		if err != nil {
			failed = append(failed, domain.FailedItem{ObjectID: ref.ID, Reason: err.Error()})
			continue
		}
		objects = append(objects, *object)
	}

	result, err := c.exporter.ExportObjects(ctx, objects, progress)
	if result != nil && len(failed) > 0 {
		result.Failed = append(failed, result.Failed...)
	}
	return result, err
}
