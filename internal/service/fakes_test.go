package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"clubvault/internal/domain"
	"clubvault/internal/metrics"
)

// memCatalog - общий набор строк для фейковых каталогов
type memCatalog struct {
	mu            sync.Mutex
	nextFolderID  int64
	folders       map[int64]domain.Folder
	objects       map[uuid.UUID]domain.StoredObject
	orgs          map[uuid.UUID]domain.Organization
	teams         map[uuid.UUID]domain.SubOrganization
	subscriptions []domain.StorageSubscription

	failList   error
	failCreate error
}

func newMemCatalog() *memCatalog {
	return &memCatalog{
		folders: make(map[int64]domain.Folder),
		objects: make(map[uuid.UUID]domain.StoredObject),
		orgs:    make(map[uuid.UUID]domain.Organization),
		teams:   make(map[uuid.UUID]domain.SubOrganization),
	}
}

type fakeFolders struct{ *memCatalog }
type fakeObjects struct{ *memCatalog }
type fakeOrgs struct{ *memCatalog }

func sameParent(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (c fakeFolders) GetByID(_ context.Context, id int64) (*domain.Folder, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	f, ok := c.folders[id]
	if !ok {
		return nil, fmt.Errorf("folder %d: %w", id, domain.ErrNotFound)
	}
	return &f, nil
}

func (c fakeFolders) ListChildren(_ context.Context, scope domain.Scope, parentID *int64) ([]domain.Folder, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failList != nil {
		return nil, c.failList
	}
	out := make([]domain.Folder, 0)
	for _, f := range c.folders {
		if f.Scope.Equal(scope) && sameParent(f.ParentID, parentID) {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (c fakeFolders) Create(_ context.Context, folder *domain.Folder) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if folder.ParentID != nil {
		parent, ok := c.folders[*folder.ParentID]
		if !ok || !parent.Scope.Equal(folder.Scope) {
			return fmt.Errorf("parent folder %d: %w", *folder.ParentID, domain.ErrNotFound)
		}
	}
	c.nextFolderID++
	folder.ID = c.nextFolderID
	folder.CreatedAt = time.Now()
	c.folders[folder.ID] = *folder
	return nil
}

func (c fakeFolders) UpdateName(_ context.Context, id int64, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	f, ok := c.folders[id]
	if !ok {
		return fmt.Errorf("folder %d: %w", id, domain.ErrNotFound)
	}
	f.Name = name
	c.folders[id] = f
	return nil
}

func (c fakeFolders) UpdateParent(_ context.Context, id int64, parentID *int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	f, ok := c.folders[id]
	if !ok {
		return fmt.Errorf("folder %d: %w", id, domain.ErrNotFound)
	}
	f.ParentID = parentID
	c.folders[id] = f
	return nil
}

func (c fakeFolders) Delete(_ context.Context, id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	f, ok := c.folders[id]
	if !ok {
		return fmt.Errorf("folder %d: %w", id, domain.ErrNotFound)
	}
	for childID, child := range c.folders {
		if child.ParentID != nil && *child.ParentID == id {
			child.ParentID = f.ParentID
			c.folders[childID] = child
		}
	}
	for objectID, o := range c.objects {
		if o.FolderID != nil && *o.FolderID == id {
			o.FolderID = f.ParentID
			c.objects[objectID] = o
		}
	}
	delete(c.folders, id)
	return nil
}

func (c fakeObjects) GetByID(_ context.Context, id uuid.UUID) (*domain.StoredObject, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	o, ok := c.objects[id]
	if !ok {
		return nil, fmt.Errorf("object %s: %w", id, domain.ErrNotFound)
	}
	return &o, nil
}

func (c fakeObjects) sorted(keep func(o domain.StoredObject) bool) []domain.StoredObject {
	out := make([]domain.StoredObject, 0)
	for _, o := range c.objects {
		if keep(o) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func (c fakeObjects) ListInFolder(_ context.Context, scope domain.Scope, folderID *int64) ([]domain.StoredObject, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failList != nil {
		return nil, c.failList
	}
	return c.sorted(func(o domain.StoredObject) bool {
		return !o.IsTrashed() && o.Scope.Equal(scope) && sameParent(o.FolderID, folderID)
	}), nil
}

func (c fakeObjects) ListActiveByOrganization(_ context.Context, orgID uuid.UUID) ([]domain.StoredObject, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sorted(func(o domain.StoredObject) bool {
		return !o.IsTrashed() && o.OrganizationID == orgID
	}), nil
}

func (c fakeObjects) ListTrashedByOrganization(_ context.Context, orgID uuid.UUID) ([]domain.StoredObject, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sorted(func(o domain.StoredObject) bool {
		return o.IsTrashed() && o.OrganizationID == orgID
	}), nil
}

func (c fakeObjects) Create(_ context.Context, object *domain.StoredObject) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failCreate != nil {
		return c.failCreate
	}
	if object.ID == uuid.Nil {
		object.ID = uuid.New()
	}
	object.CreatedAt = time.Now()
	c.objects[object.ID] = *object
	return nil
}

func (c fakeObjects) MarkDeleted(_ context.Context, id uuid.UUID, at time.Time, actor string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	o, ok := c.objects[id]
	if !ok {
		return fmt.Errorf("object %s: %w", id, domain.ErrNotFound)
	}
	o.DeletedAt = &at
	o.DeletedBy = &actor
	c.objects[id] = o
	return nil
}

func (c fakeObjects) Restore(_ context.Context, id uuid.UUID, folderID *int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	o, ok := c.objects[id]
	if !ok || !o.IsTrashed() {
		return fmt.Errorf("trashed object %s: %w", id, domain.ErrNotFound)
	}
	o.DeletedAt = nil
	o.DeletedBy = nil
	o.FolderID = folderID
	c.objects[id] = o
	return nil
}

func (c fakeObjects) Delete(_ context.Context, id uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.objects[id]; !ok {
		return fmt.Errorf("object %s: %w", id, domain.ErrNotFound)
	}
	delete(c.objects, id)
	return nil
}

func (c fakeOrgs) GetOrganization(_ context.Context, id uuid.UUID) (*domain.Organization, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	o, ok := c.orgs[id]
	if !ok {
		return nil, fmt.Errorf("organization %s: %w", id, domain.ErrNotFound)
	}
	return &o, nil
}

func (c fakeOrgs) GetSubOrganization(_ context.Context, id uuid.UUID) (*domain.SubOrganization, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.teams[id]
	if !ok {
		return nil, fmt.Errorf("sub-organization %s: %w", id, domain.ErrNotFound)
	}
	return &t, nil
}

func (c fakeOrgs) ListSubOrganizations(_ context.Context, orgID uuid.UUID) ([]domain.SubOrganization, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.SubOrganization, 0)
	for _, t := range c.teams {
		if t.OrganizationID == orgID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (c fakeOrgs) GetSubscription(_ context.Context, orgID uuid.UUID, subOrgID *uuid.UUID) (*domain.StorageSubscription, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range c.subscriptions {
		if s.OrganizationID != orgID {
			continue
		}
		if subOrgID == nil && s.SubOrganizationID == nil {
			sub := s
			return &sub, nil
		}
		if subOrgID != nil && s.SubOrganizationID != nil && *s.SubOrganizationID == *subOrgID {
			sub := s
			return &sub, nil
		}
	}
	return nil, nil
}

// fakeStore - хранилище байтов в памяти
type fakeStore struct {
	mu        sync.Mutex
	blobs     map[string][]byte
	getErr    map[string]error
	putErr    error
	deleteErr error
	onGet     func(url string)
	gets      int
	deletes   []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		blobs:  make(map[string][]byte),
		getErr: make(map[string]error),
	}
}

func (s *fakeStore) PublicURL(key string) string {
	return "mem://vault/" + key
}

func (s *fakeStore) Put(_ context.Context, key string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.putErr != nil {
		return "", s.putErr
	}
	url := s.PublicURL(key)
	s.blobs[url] = append([]byte(nil), data...)
	return url, nil
}

func (s *fakeStore) Get(ctx context.Context, url string) ([]byte, error) {
	if s.onGet != nil {
		s.onGet(url)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets++
	if err, ok := s.getErr[url]; ok {
		return nil, err
	}
	data, ok := s.blobs[url]
	if !ok {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrTransferFailed, url, domain.ErrNotFound)
	}
	return data, nil
}

func (s *fakeStore) Delete(_ context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes = append(s.deletes, url)
	if s.deleteErr != nil {
		return s.deleteErr
	}
	delete(s.blobs, url)
	return nil
}

func (s *fakeStore) has(url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.blobs[url]
	return ok
}

// fakeCaps разрешает все, кроме явно запрещенного
type fakeCaps struct {
	mu          sync.Mutex
	denyIDs     map[string]bool
	nonAdmins   map[string]bool
	noTeamUsers map[string]bool
	err         error
	calls       int
}

func newFakeCaps() *fakeCaps {
	return &fakeCaps{
		denyIDs:     make(map[string]bool),
		nonAdmins:   make(map[string]bool),
		noTeamUsers: make(map[string]bool),
	}
}

func (c *fakeCaps) CanActOn(_ context.Context, _ domain.Caller, target domain.ResourceRef) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.err != nil {
		return false, c.err
	}
	return !c.denyIDs[target.ID], nil
}

func (c *fakeCaps) IsOrganizationAdmin(_ context.Context, caller domain.Caller, _ uuid.UUID) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.err != nil {
		return false, c.err
	}
	return !c.nonAdmins[caller.ID], nil
}

func (c *fakeCaps) CanAccessSubOrganization(_ context.Context, caller domain.Caller, _ uuid.UUID) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.err != nil {
		return false, c.err
	}
	return !c.noTeamUsers[caller.ID], nil
}

var (
	member   = domain.Caller{ID: "coach"}
	operator = domain.Caller{ID: "ops", Privileged: true}
)

// testVault - сервисы поверх фейков с одним клубом и одной командой
type testVault struct {
	catalog *memCatalog
	store   *fakeStore
	caps    *fakeCaps
	metrics *metrics.VaultMetrics

	orgID  uuid.UUID
	teamID uuid.UUID

	perms   *PermissionService
	quota   *StorageQuotaService
	folders *FolderService
	files   *FileService
	trash   *TrashService
	export  *ExportService
	batch   *BatchCoordinator
}

func newTestVault(t *testing.T) *testVault {
	t.Helper()

	v := &testVault{
		catalog: newMemCatalog(),
		store:   newFakeStore(),
		caps:    newFakeCaps(),
		metrics: metrics.New(prometheus.NewRegistry()),
		orgID:   uuid.New(),
		teamID:  uuid.New(),
	}
	v.catalog.orgs[v.orgID] = domain.Organization{ID: v.orgID, Name: "Riverside FC"}
	v.catalog.teams[v.teamID] = domain.SubOrganization{ID: v.teamID, OrganizationID: v.orgID, Name: "U12"}

	folders := fakeFolders{v.catalog}
	objects := fakeObjects{v.catalog}
	orgs := fakeOrgs{v.catalog}

	v.perms = NewPermissionService(v.caps, orgs)
	v.quota = NewStorageQuotaService(objects, orgs, v.metrics)
	v.folders = NewFolderService(folders, objects, v.perms)
	v.files = NewFileService(objects, folders, v.store, v.quota, v.perms)
	v.trash = NewTrashService(objects, folders, orgs, v.store, v.perms, v.metrics)
	v.export = NewExportService(folders, objects, v.store, v.perms, v.metrics, ExportConfig{Concurrency: 2})
	v.batch = NewBatchCoordinator(v.trash, v.export, objects, v.perms)
	return v
}

func (v *testVault) clubScope() domain.Scope {
	return domain.OrganizationScope(v.orgID)
}

func (v *testVault) teamScope() domain.Scope {
	return domain.SubOrganizationScope(v.orgID, v.teamID)
}

func (v *testVault) addFolder(t *testing.T, scope domain.Scope, parentID *int64, name string) *domain.Folder {
	t.Helper()
	f := &domain.Folder{Name: name, Scope: scope, ParentID: parentID, CreatedBy: "seed"}
	if err := (fakeFolders{v.catalog}).Create(context.Background(), f); err != nil {
		t.Fatalf("failed to seed folder: %v", err)
	}
	return f
}

// addObject кладет объект в каталог и его байты в хранилище.
// size < 0 означает неизвестный размер.
func (v *testVault) addObject(t *testing.T, scope domain.Scope, folderID *int64, kind domain.ObjectKind, name string, size int64) *domain.StoredObject {
	t.Helper()
	id := uuid.New()
	o := &domain.StoredObject{
		ID:         id,
		Kind:       kind,
		Scope:      scope,
		FolderID:   folderID,
		Name:       name,
		URL:        v.store.PublicURL(id.String() + "/" + name),
		UploadedBy: "seed",
	}
	if size >= 0 {
		o.SizeBytes = &size
	}
	v.store.blobs[o.URL] = []byte("bytes of " + name)
	if err := (fakeObjects{v.catalog}).Create(context.Background(), o); err != nil {
		t.Fatalf("failed to seed object: %v", err)
	}
	return o
}

func (v *testVault) object(id uuid.UUID) (domain.StoredObject, bool) {
	v.catalog.mu.Lock()
	defer v.catalog.mu.Unlock()
	o, ok := v.catalog.objects[id]
	return o, ok
}

func ptr[T any](v T) *T {
	return &v
}
