package files

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/vaultify/internal/common"
	"github.com/dmitrijs2005/vaultify/internal/server/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

var fileCols = []string{"id", "folder_id", "owner_id", "original_name", "content_type", "size", "storage_key", "created_at"}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	mock.ExpectQuery(`(?s)^INSERT\s+INTO\s+files\b.*RETURNING\s+created_at$`).
		WithArgs(sqlmock.AnyArg(), "d1", "alice", "report.pdf", "application/pdf", int64(42), "files/k").
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(now))

	f, err := repo.Create(context.Background(), &models.File{
		FolderID:     "d1",
		OwnerID:      "alice",
		OriginalName: "report.pdf",
		ContentType:  "application/pdf",
		Size:         42,
		StorageKey:   "files/k",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.ID == "" {
		t.Fatal("expected generated id")
	}
	if !f.CreatedAt.Equal(now) {
		t.Fatalf("created_at = %v, want %v", f.CreatedAt, now)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`INSERT\s+INTO\s+files`).WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), &models.File{ID: "f1"})
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestGetByID(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectQuery(`FROM files WHERE id=\$1`).
		WithArgs("f1").
		WillReturnRows(sqlmock.NewRows(fileCols).AddRow("f1", "d1", "alice", "a.txt", "text/plain", int64(3), "files/k", now))

	f, err := repo.GetByID(context.Background(), "f1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.OwnerID != "alice" || f.StorageKey != "files/k" || f.Size != 3 {
		t.Fatalf("unexpected file: %+v", f)
	}
}

func TestGetByID_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM files WHERE id=\$1`).WithArgs("nope").WillReturnError(sql.ErrNoRows)

	if _, err := repo.GetByID(context.Background(), "nope"); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want ErrorNotFound, got %v", err)
	}
}

func TestListByFolder(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectQuery(`FROM files WHERE folder_id=\$1`).
		WithArgs("d1").
		WillReturnRows(sqlmock.NewRows(fileCols).
			AddRow("f1", "d1", "alice", "a.txt", "text/plain", int64(1), "k1", now).
			AddRow("f2", "d1", "alice", "b.txt", "text/plain", int64(2), "k2", now))

	res, err := repo.ListByFolder(context.Background(), "d1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res) != 2 || res[1].ID != "f2" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestListByFolder_RowsErr(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows(fileCols).
		AddRow("f1", "d1", "alice", "a.txt", "text/plain", int64(1), "k1", time.Now()).
		RowError(0, errors.New("row broken"))
	mock.ExpectQuery(`FROM files WHERE folder_id=\$1`).WillReturnRows(rows)

	if _, err := repo.ListByFolder(context.Background(), "d1"); err == nil {
		t.Fatal("expected error")
	}
}

func TestDelete(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`^DELETE FROM files WHERE id=\$1$`).WithArgs("f1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`^DELETE FROM files WHERE id=\$1$`).WithArgs("f2").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`^DELETE FROM files WHERE id=\$1$`).WithArgs("f3").WillReturnResult(sqlmock.NewErrorResult(errors.New("rows-err")))

	if err := repo.Delete(context.Background(), "f1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := repo.Delete(context.Background(), "f2"); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want ErrorNotFound, got %v", err)
	}
	if err := repo.Delete(context.Background(), "f3"); err == nil || !regexp.MustCompile(`rows affected error: .*rows-err`).MatchString(err.Error()) {
		t.Fatalf("expected rows affected error, got %v", err)
	}
}
