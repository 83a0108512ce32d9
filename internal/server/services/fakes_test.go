package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/vaultify/internal/dbx"
	"github.com/dmitrijs2005/vaultify/internal/logging"
	"github.com/dmitrijs2005/vaultify/internal/server/blob"
	"github.com/dmitrijs2005/vaultify/internal/server/idempotency"
	"github.com/dmitrijs2005/vaultify/internal/server/models"
	"github.com/dmitrijs2005/vaultify/internal/server/repositories/files"
	"github.com/dmitrijs2005/vaultify/internal/server/repositories/permissions"
	"github.com/dmitrijs2005/vaultify/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/vaultify/internal/server/tokens"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

// memRepos wraps the in-memory repositories with failure injection.
type memRepos struct {
	*repomanager.InMemoryRepositoryManager

	failFileCreate error
	failUpsert     error
	// beforeSetAccess runs between the read and the write of UpdateAccess.
	beforeSetAccess func()
}

func newMemRepos() *memRepos {
	return &memRepos{InMemoryRepositoryManager: repomanager.NewInMemoryRepositoryManager()}
}

func (m *memRepos) Files(db dbx.DBTX) files.Repository {
	return &failingFiles{Repository: m.InMemoryRepositoryManager.Files(db), m: m}
}

func (m *memRepos) Permissions(db dbx.DBTX) permissions.Repository {
	return &failingPermissions{Repository: m.InMemoryRepositoryManager.Permissions(db), m: m}
}

type failingFiles struct {
	files.Repository
	m *memRepos
}

func (r *failingFiles) Create(ctx context.Context, f *models.File) (*models.File, error) {
	if r.m.failFileCreate != nil {
		return nil, r.m.failFileCreate
	}
	return r.Repository.Create(ctx, f)
}

type failingPermissions struct {
	permissions.Repository
	m *memRepos
}

func (r *failingPermissions) Upsert(ctx context.Context, p *models.Permission) error {
	if r.m.failUpsert != nil {
		return r.m.failUpsert
	}
	return r.Repository.Upsert(ctx, p)
}

func (r *failingPermissions) SetAccess(ctx context.Context, id string, access models.Access) error {
	if r.m.beforeSetAccess != nil {
		r.m.beforeSetAccess()
	}
	return r.Repository.SetAccess(ctx, id, access)
}

func (m *memRepos) ownerCount(fileID string) int {
	all, _ := m.InMemoryRepositoryManager.Permissions(nil).ListByFile(context.Background(), fileID)
	n := 0
	for _, p := range all {
		if p.Access == models.AccessOwner {
			n++
		}
	}
	return n
}

// newTxDB returns a private in-memory sqlite database so that dbx.WithTx
// has a real transaction to begin and commit.
func newTxDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := sql.Open("sqlite", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

type fixture struct {
	repos   *memRepos
	blobs   *blob.MemoryStore
	perms   *PermissionService
	files   *FileService
	tokens  *tokens.Service
	store   *tokens.MemoryStore
	cache   *idempotency.MemoryCache
	presign *PresignService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTxDB(t)
	log := logging.Nop()

	f := &fixture{
		repos: newMemRepos(),
		blobs: blob.NewMemoryStore(),
		store: tokens.NewMemoryStore(),
		cache: idempotency.NewMemoryCache(24 * time.Hour),
	}
	f.perms = NewPermissionService(db, f.repos, log)
	f.files = NewFileService(db, f.repos, f.blobs, f.perms, log)
	f.tokens = tokens.NewService(f.store, 60*time.Second, "http://localhost:8080", log)
	f.presign = NewPresignService(f.files, f.perms, f.tokens, f.cache, log)
	return f
}

func (f *fixture) folder(t *testing.T, userID string) *models.Folder {
	t.Helper()
	folder, err := f.files.CreateFolder(context.Background(), userID, "docs")
	require.NoError(t, err)
	return folder
}

func (f *fixture) upload(t *testing.T, userID, folderID, name string) *models.File {
	t.Helper()
	file, err := f.files.Upload(context.Background(), userID, folderID, name, "text/plain", []byte("content of "+name))
	require.NoError(t, err)
	return file
}
