package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"clubvault/internal/domain"
	"clubvault/internal/metrics"
)

const (
	DefaultExportConcurrency = 4
	DefaultIndividualDelay   = 300 * time.Millisecond
)

// ExportConfig - параметры сборки архива
type ExportConfig struct {
	// Concurrency - сколько объектов скачивается одновременно
	Concurrency int
	// IndividualDelay - пауза между объектами в режиме поштучной выгрузки
	IndividualDelay time.Duration
}

// ExportService обходит поддерево папок и собирает zip-архив
type ExportService struct {
	folders FolderCatalog
	objects ObjectCatalog
	store   ObjectStore
	perms   *PermissionService
	metrics *metrics.VaultMetrics
	conf    ExportConfig
}

func NewExportService(
	folders FolderCatalog,
	objects ObjectCatalog,
	store ObjectStore,
	perms *PermissionService,
	m *metrics.VaultMetrics,
	conf ExportConfig,
) *ExportService {
	if conf.Concurrency <= 0 {
		conf.Concurrency = DefaultExportConcurrency
	}
	if conf.IndividualDelay < 0 {
		conf.IndividualDelay = 0
	}
	return &ExportService{
		folders: folders,
		objects: objects,
		store:   store,
		perms:   perms,
		metrics: m,
		conf:    conf,
	}
}

func cancelled(err error) error {
	return fmt.Errorf("export %w: %w", domain.ErrCancelled, err)
}

func joinPath(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "/" + name
}

// Discover обходит поддерево от rootID (nil - корень области) в глубину и
// возвращает список папок и объектов для просмотра. Только чтение.
func (s *ExportService) Discover(ctx context.Context, caller domain.Caller, scope domain.Scope, rootID *int64, mode domain.ExportMode) (*domain.ExportSelection, error) {
	if mode != domain.ExportModeCurrentFolder && mode != domain.ExportModeRecursive {
		return nil, fmt.Errorf("unsupported discovery mode %q: %w", mode, domain.ErrInvalidArgument)
	}
	if err := s.perms.CheckScopeVisible(ctx, caller, scope); err != nil {
		return nil, err
	}

	sel := &domain.ExportSelection{
		Scope:   scope,
		RootID:  rootID,
		Mode:    mode,
		Folders: make([]domain.ExportFolder, 0),
		Items:   make([]domain.ExportItem, 0),
	}

	visited := make(map[int64]struct{})
	if rootID != nil {
		root, err := s.folders.GetByID(ctx, *rootID)
		if err != nil {
			return nil, err
		}
		if !root.Scope.Equal(scope) {
			return nil, fmt.Errorf("folder %d in scope %s: %w", *rootID, scope, domain.ErrNotFound)
		}
		sel.RootName = root.Name
		visited[root.ID] = struct{}{}
	}

	if err := s.walk(ctx, sel, rootID, "", visited); err != nil {
		return nil, err
	}

	log.Debug().
		Str("scope", scope.String()).
		Str("mode", string(mode)).
		Int("folders", len(sel.Folders)).
		Int("items", len(sel.Items)).
		Msg("[Export] subtree discovered")
	return sel, nil
}

func (s *ExportService) walk(ctx context.Context, sel *domain.ExportSelection, folderID *int64, path string, visited map[int64]struct{}) error {
	if err := ctx.Err(); err != nil {
		return cancelled(err)
	}

	objects, err := s.objects.ListInFolder(ctx, sel.Scope, folderID)
	if err != nil {
		return fmt.Errorf("failed to list folder objects: %w", err)
	}

	node := domain.ExportFolder{Path: path}
	for _, o := range objects {
		if o.IsTrashed() {
			continue
		}
		if o.Kind == domain.ObjectKindPhoto {
			node.PhotoCount++
		} else {
			node.FileCount++
		}
		sel.Items = append(sel.Items, domain.ExportItem{Object: o, Path: path})
	}
	sel.Folders = append(sel.Folders, node)

	if sel.Mode != domain.ExportModeRecursive {
		return nil
	}

	children, err := s.folders.ListChildren(ctx, sel.Scope, folderID)
	if err != nil {
		return fmt.Errorf("failed to list subfolders: %w", err)
	}
	for _, child := range children {
		if _, ok := visited[child.ID]; ok {
			log.Warn().
				Int64("folder_id", child.ID).
				Str("path", path).
				Msg("[Export] folder reached twice, skipping")
			continue
		}
		visited[child.ID] = struct{}{}

		id := child.ID
		if err := s.walk(ctx, sel, &id, joinPath(path, child.Name), visited); err != nil {
			return err
		}
	}
	return nil
}

// BuildArchive собирает архив из найденных объектов без исключенных путей.
// Исключение сравнивает путь целиком.
func (s *ExportService) BuildArchive(ctx context.Context, sel *domain.ExportSelection, excluded []string, progress domain.ProgressFunc) (*domain.ArchiveResult, error) {
	return s.assemble(ctx, sel.Mode, sel.Filter(excluded), nil, progress)
}

// ExportObjects собирает плоский архив из явно выбранных объектов.
// Объекты в корзине не выгружаются и попадают в список неудачных.
func (s *ExportService) ExportObjects(ctx context.Context, objects []domain.StoredObject, progress domain.ProgressFunc) (*domain.ArchiveResult, error) {
	items := make([]domain.ExportItem, 0, len(objects))
	var failed []domain.FailedItem
	for _, o := range objects {
		if o.IsTrashed() {
			failed = append(failed, domain.FailedItem{ObjectID: o.ID, Name: o.Name, Reason: "object is in trash"})
			continue
		}
		items = append(items, domain.ExportItem{Object: o})
	}
	return s.assemble(ctx, domain.ExportModeSelection, items, failed, progress)
}

type fetchResult struct {
	data []byte
	err  error
}

func (s *ExportService) assemble(ctx context.Context, mode domain.ExportMode, items []domain.ExportItem, failed []domain.FailedItem, progress domain.ProgressFunc) (_ *domain.ArchiveResult, err error) {
	outcome := "ok"
	defer func() {
		switch {
		case errors.Is(err, domain.ErrCancelled):
			outcome = "cancelled"
		case err != nil:
			outcome = "failed"
		}
		s.metrics.ObserveExportRun(string(mode), outcome)
	}()

	total := len(items)
	if total == 0 {
		return &domain.ArchiveResult{Failed: failed}, fmt.Errorf("export: %w", domain.ErrNothingExported)
	}

	results := make([]fetchResult, total)

	var (
		mu        sync.Mutex
		completed int
	)
	report := func() {
		mu.Lock()
		defer mu.Unlock()
		completed++
		if progress != nil {
			progress(domain.Progress{Completed: completed, Total: total})
		}
	}

	g := new(errgroup.Group)
	g.SetLimit(s.conf.Concurrency)
	for i, item := range items {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			data, err := s.store.Get(ctx, item.Object.URL)
			results[i] = fetchResult{data: data, err: err}
			report()
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		log.Info().Int("completed", completed).Int("total", total).Msg("[Export] export cancelled")
		return nil, cancelled(err)
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	succeeded := 0
	for i, item := range items {
		r := results[i]
		if r.err != nil {
			s.metrics.ObserveExportItem(false, 0)
			log.Warn().
				Err(r.err).
				Str("object_id", item.Object.ID.String()).
				Str("path", item.Path).
				Msg("[Export] failed to fetch object")
			failed = append(failed, domain.FailedItem{
				ObjectID: item.Object.ID,
				Name:     item.Object.Name,
				Path:     item.Path,
				Reason:   r.err.Error(),
			})
			continue
		}

		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     item.EntryName(),
			Method:   zip.Deflate,
			Modified: item.Object.CreatedAt,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to add archive entry: %w", err)
		}
		if _, err := w.Write(r.data); err != nil {
			return nil, fmt.Errorf("failed to write archive entry: %w", err)
		}
		s.metrics.ObserveExportItem(true, len(r.data))
		succeeded++
	}

	if succeeded == 0 {
		return &domain.ArchiveResult{Failed: failed}, fmt.Errorf("export: %w", domain.ErrNothingExported)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize archive: %w", err)
	}

	log.Info().
		Str("mode", string(mode)).
		Int("succeeded", succeeded).
		Int("failed", len(failed)).
		Int("bytes", buf.Len()).
		Msg("[Export] archive built")

	return &domain.ArchiveResult{
		Data:      buf.Bytes(),
		Succeeded: succeeded,
		Failed:    failed,
	}, nil
}

// ItemSink получает байты одного объекта в поштучном режиме
type ItemSink func(item domain.ExportItem, data []byte) error

// FetchIndividually отдает объекты по одному с паузой между ними.
// Уже переданные объекты при отмене не отзываются.
func (s *ExportService) FetchIndividually(ctx context.Context, items []domain.ExportItem, sink ItemSink, progress domain.ProgressFunc) (_ *domain.ArchiveResult, err error) {
	defer func() {
		outcome := "ok"
		switch {
		case errors.Is(err, domain.ErrCancelled):
			outcome = "cancelled"
		case err != nil:
			outcome = "failed"
		}
		s.metrics.ObserveExportRun("individual", outcome)
	}()

	result := &domain.ArchiveResult{}
	total := len(items)
	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return result, cancelled(err)
		}

		data, err := s.store.Get(ctx, item.Object.URL)
		if err == nil {
			err = sink(item, data)
		}
		if err != nil {
			s.metrics.ObserveExportItem(false, 0)
			log.Warn().Err(err).Str("object_id", item.Object.ID.String()).Msg("[Export] failed to deliver object")
			result.Failed = append(result.Failed, domain.FailedItem{
				ObjectID: item.Object.ID,
				Name:     item.Object.Name,
				Path:     item.Path,
				Reason:   err.Error(),
			})
		} else {
			s.metrics.ObserveExportItem(true, len(data))
			result.Succeeded++
		}
		if progress != nil {
			progress(domain.Progress{Completed: i + 1, Total: total})
		}

		if i < total-1 && s.conf.IndividualDelay > 0 {
			timer := time.NewTimer(s.conf.IndividualDelay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return result, cancelled(ctx.Err())
			case <-timer.C:
			}
		}
	}

	if total > 0 && result.Succeeded == 0 {
		return result, fmt.Errorf("export: %w", domain.ErrNothingExported)
	}
	return result, nil
}

// ArchiveName возвращает имя архива вида <папка>_<yyyymmdd>.zip
func ArchiveName(sel *domain.ExportSelection, at time.Time) string {
	name := sel.RootName
	if name == "" {
		name = "Club"
		if sel.Scope.SubOrganizationID != nil {
			name = "Team"
		}
	}
	return fmt.Sprintf("%s_%s.zip", name, at.Format("20060102"))
}
