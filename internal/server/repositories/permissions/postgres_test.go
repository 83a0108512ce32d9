package permissions

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/vaultify/internal/common"
	"github.com/dmitrijs2005/vaultify/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresRepository(db), mock, db
}

var permColumns = []string{"id", "file_id", "user_id", "access", "viewed"}

func TestGet_Found(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectQuery(`(?s)^SELECT id, file_id, user_id, access, viewed FROM permissions WHERE file_id=\$1 AND user_id=\$2$`).
		WithArgs("f1", "u1").
		WillReturnRows(sqlmock.NewRows(permColumns).AddRow("p1", "f1", "u1", "WRITE", true))

	p, err := repo.Get(context.Background(), "f1", "u1")
	require.NoError(t, err)
	assert.Equal(t, &models.Permission{ID: "p1", FileID: "f1", UserID: "u1", Access: models.AccessWrite, Viewed: true}, p)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGet_NotFound(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectQuery(`FROM permissions WHERE file_id=\$1 AND user_id=\$2`).
		WithArgs("f1", "u2").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), "f1", "u2")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestGetByID_DBError(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectQuery(`FROM permissions WHERE id=\$1`).
		WithArgs("p1").
		WillReturnError(errors.New("db down"))

	_, err := repo.GetByID(context.Background(), "p1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, common.ErrorNotFound)
	assert.Contains(t, err.Error(), "db down")
}

func TestUpsert_AssignsIDAndReturnsStoredID(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectQuery(`(?s)^INSERT\s+INTO\s+permissions\b.*ON\s+CONFLICT\s*\(file_id,\s*user_id\)\s*DO\s+UPDATE\s+SET\s+access\s*=\s*EXCLUDED\.access,\s*viewed\s*=\s*EXCLUDED\.viewed\s+RETURNING\s+id$`).
		WithArgs(sqlmock.AnyArg(), "f1", "u2", "READ", false).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("existing"))

	p := &models.Permission{FileID: "f1", UserID: "u2", Access: models.AccessRead}
	require.NoError(t, repo.Upsert(context.Background(), p))
	assert.Equal(t, "existing", p.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsert_DBError(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectQuery(`INSERT\s+INTO\s+permissions`).
		WillReturnError(errors.New("unique violation"))

	err := repo.Upsert(context.Background(), &models.Permission{ID: "p1", FileID: "f1", UserID: "u2", Access: models.AccessOwner})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db error")
}

func TestListByFile(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectQuery(`FROM permissions WHERE file_id=\$1 ORDER BY user_id`).
		WithArgs("f1").
		WillReturnRows(sqlmock.NewRows(permColumns).
			AddRow("p1", "f1", "alice", "OWNER", false).
			AddRow("p2", "f1", "bob", "READ", false))

	ps, err := repo.ListByFile(context.Background(), "f1")
	require.NoError(t, err)
	require.Len(t, ps, 2)
	assert.Equal(t, models.AccessOwner, ps[0].Access)
	assert.Equal(t, "bob", ps[1].UserID)
}

func TestListByUser_ExcludesAccess(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectQuery(`FROM permissions WHERE user_id=\$1 AND access<>\$2`).
		WithArgs("bob", "OWNER").
		WillReturnRows(sqlmock.NewRows(permColumns).AddRow("p2", "f1", "bob", "READ", false))

	ps, err := repo.ListByUser(context.Background(), "bob", models.AccessOwner)
	require.NoError(t, err)
	require.Len(t, ps, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListByUser_ScanError(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectQuery(`FROM permissions WHERE user_id=\$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("p2"))

	_, err := repo.ListByUser(context.Background(), "bob", models.AccessOwner)
	assert.Error(t, err)
}

func TestDelete(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectExec(`^DELETE FROM permissions WHERE file_id=\$1 AND user_id=\$2$`).
		WithArgs("f1", "bob").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`^DELETE FROM permissions WHERE file_id=\$1 AND user_id=\$2$`).
		WithArgs("f1", "carol").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Delete(context.Background(), "f1", "bob"))
	assert.ErrorIs(t, repo.Delete(context.Background(), "f1", "carol"), common.ErrorNotFound)
}

func TestDeleteAllForFile(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectExec(`^DELETE FROM permissions WHERE file_id=\$1$`).
		WithArgs("f1").
		WillReturnResult(sqlmock.NewResult(0, 3))

	require.NoError(t, repo.DeleteAllForFile(context.Background(), "f1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSetAccess(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectExec(`^UPDATE permissions SET access=\$2, viewed=false WHERE id=\$1$`).
		WithArgs("p1", "WRITE").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`^UPDATE permissions SET access=\$2, viewed=false WHERE id=\$1$`).
		WithArgs("gone", "READ").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.SetAccess(context.Background(), "p1", models.AccessWrite))
	assert.ErrorIs(t, repo.SetAccess(context.Background(), "gone", models.AccessRead), common.ErrorNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSetViewed(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectExec(`^UPDATE permissions SET viewed=\$2 WHERE id=\$1$`).
		WithArgs("p1", true).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`^UPDATE permissions SET viewed=\$2 WHERE id=\$1$`).
		WithArgs("gone", true).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.SetViewed(context.Background(), "p1", true))
	assert.ErrorIs(t, repo.SetViewed(context.Background(), "gone", true), common.ErrorNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
