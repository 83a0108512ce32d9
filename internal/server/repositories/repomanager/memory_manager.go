package repomanager

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/vaultify/internal/common"
	"github.com/dmitrijs2005/vaultify/internal/dbx"
	"github.com/dmitrijs2005/vaultify/internal/server/models"
	"github.com/dmitrijs2005/vaultify/internal/server/repositories/files"
	"github.com/dmitrijs2005/vaultify/internal/server/repositories/folders"
	"github.com/dmitrijs2005/vaultify/internal/server/repositories/permissions"
	"github.com/google/uuid"
)

// InMemoryRepositoryManager keeps folders, files and permissions in process
// memory. Repositories ignore the DBTX they are bound to, so a rolled back
// transaction does not undo their writes. It backs tests of the layers above
// the repositories.
type InMemoryRepositoryManager struct {
	mu      sync.Mutex
	folders map[string]models.Folder
	files   map[string]models.File
	perms   map[string]models.Permission
}

func NewInMemoryRepositoryManager() *InMemoryRepositoryManager {
	return &InMemoryRepositoryManager{
		folders: make(map[string]models.Folder),
		files:   make(map[string]models.File),
		perms:   make(map[string]models.Permission),
	}
}

func (m *InMemoryRepositoryManager) RunMigrations(context.Context, *sql.DB) error {
	return nil
}

func (m *InMemoryRepositoryManager) Permissions(dbx.DBTX) permissions.Repository {
	return (*memoryPermissions)(m)
}

func (m *InMemoryRepositoryManager) Files(dbx.DBTX) files.Repository {
	return (*memoryFiles)(m)
}

func (m *InMemoryRepositoryManager) Folders(dbx.DBTX) folders.Repository {
	return (*memoryFolders)(m)
}

type memoryFolders InMemoryRepositoryManager

func (r *memoryFolders) Create(ctx context.Context, f *models.Folder) (*models.Folder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	f.CreatedAt = time.Now().UTC()
	r.folders[f.ID] = *f
	return f, nil
}

func (r *memoryFolders) GetByID(ctx context.Context, id string) (*models.Folder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.folders[id]
	if !ok {
		return nil, common.Errorf(common.ErrorNotFound, "folder %s", id)
	}
	return &f, nil
}

type memoryFiles InMemoryRepositoryManager

func (r *memoryFiles) Create(ctx context.Context, f *models.File) (*models.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	f.CreatedAt = time.Now().UTC()
	r.files[f.ID] = *f
	return f, nil
}

func (r *memoryFiles) GetByID(ctx context.Context, id string) (*models.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.files[id]
	if !ok {
		return nil, common.Errorf(common.ErrorNotFound, "file %s", id)
	}
	return &f, nil
}

func (r *memoryFiles) ListByFolder(ctx context.Context, folderID string) ([]*models.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.File
	for _, f := range r.files {
		if f.FolderID == folderID {
			f := f
			out = append(out, &f)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *memoryFiles) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.files[id]; !ok {
		return common.Errorf(common.ErrorNotFound, "file %s", id)
	}
	delete(r.files, id)
	return nil
}

type memoryPermissions InMemoryRepositoryManager

// find returns the grant of userID on fileID. Callers hold mu.
func (r *memoryPermissions) find(fileID, userID string) (models.Permission, bool) {
	for _, p := range r.perms {
		if p.FileID == fileID && p.UserID == userID {
			return p, true
		}
	}
	return models.Permission{}, false
}

func (r *memoryPermissions) Get(ctx context.Context, fileID, userID string) (*models.Permission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.find(fileID, userID)
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &p, nil
}

func (r *memoryPermissions) GetByID(ctx context.Context, id string) (*models.Permission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.perms[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &p, nil
}

// Upsert mirrors the table constraints: one grant per (file, user) and one
// OWNER per file.
func (r *memoryPermissions) Upsert(ctx context.Context, p *models.Permission) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.find(p.FileID, p.UserID); ok {
		p.ID = existing.ID
	} else if p.ID == "" {
		p.ID = uuid.NewString()
	}

	if p.Access == models.AccessOwner {
		for _, other := range r.perms {
			if other.FileID == p.FileID && other.Access == models.AccessOwner && other.ID != p.ID {
				return fmt.Errorf("db error: file %s already has an owner", p.FileID)
			}
		}
	}

	r.perms[p.ID] = *p
	return nil
}

func (r *memoryPermissions) SetViewed(ctx context.Context, id string, viewed bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.perms[id]
	if !ok {
		return common.ErrorNotFound
	}
	p.Viewed = viewed
	r.perms[id] = p
	return nil
}

func (r *memoryPermissions) SetAccess(ctx context.Context, id string, access models.Access) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.perms[id]
	if !ok {
		return common.ErrorNotFound
	}
	p.Access = access
	p.Viewed = false
	r.perms[id] = p
	return nil
}

func (r *memoryPermissions) list(match func(models.Permission) bool) []*models.Permission {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Permission
	for _, p := range r.perms {
		if match(p) {
			p := p
			out = append(out, &p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *memoryPermissions) ListByFile(ctx context.Context, fileID string) ([]*models.Permission, error) {
	return r.list(func(p models.Permission) bool { return p.FileID == fileID }), nil
}

func (r *memoryPermissions) ListByUser(ctx context.Context, userID string, exclude models.Access) ([]*models.Permission, error) {
	return r.list(func(p models.Permission) bool { return p.UserID == userID && p.Access != exclude }), nil
}

func (r *memoryPermissions) Delete(ctx context.Context, fileID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.find(fileID, userID)
	if !ok {
		return common.ErrorNotFound
	}
	delete(r.perms, p.ID)
	return nil
}

func (r *memoryPermissions) DeleteAllForFile(ctx context.Context, fileID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, p := range r.perms {
		if p.FileID == fileID {
			delete(r.perms, id)
		}
	}
	return nil
}
