package attachments

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/gims/internal/common"
	"github.com/dmitrijs2005/gims/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var cols = []string{"id", "asset_id", "storage_key", "file_name", "file_type", "size", "uploaded_at"}

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return NewPostgresRepository(db), mock, db
}

func TestCreate(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`(?s)^INSERT\s+INTO\s+asset_attachments\s*\(asset_id,\s*storage_key,\s*file_name,\s*file_type,\s*size\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4,\s*\$5\)\s*RETURNING\s+id,\s*uploaded_at\s*$`).
		WithArgs(int64(3), "assets/2025/1/1/k.pdf", "manual.pdf", "application/pdf", int64(2048)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "uploaded_at"}).AddRow(int64(11), now))

	got, err := repo.Create(context.Background(), &models.Attachment{
		AssetID: 3, StorageKey: "assets/2025/1/1/k.pdf", FileName: "manual.pdf", FileType: "application/pdf", Size: 2048,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(11), got.ID)
	assert.Equal(t, now, got.UploadedAt)
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`INSERT\s+INTO\s+asset_attachments`).WillReturnError(errors.New("fk violation"))

	_, err := repo.Create(context.Background(), &models.Attachment{AssetID: 99})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db error: fk violation")
}

func TestGet(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`FROM\s+asset_attachments\s+WHERE\s+id\s*=\s*\$1$`).
		WithArgs(int64(11)).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(int64(11), int64(3), "key", "a.pdf", "application/pdf", int64(5), now))
	mock.ExpectQuery(`FROM\s+asset_attachments\s+WHERE\s+id`).
		WithArgs(int64(12)).
		WillReturnError(sql.ErrNoRows)

	got, err := repo.Get(context.Background(), 11)
	require.NoError(t, err)
	assert.Equal(t, "key", got.StorageKey)

	_, err = repo.Get(context.Background(), 12)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestListByAsset(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`FROM\s+asset_attachments\s+WHERE\s+asset_id\s*=\s*\$1\s+ORDER\s+BY\s+uploaded_at,\s*id$`).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(int64(1), int64(3), "k1", "a.pdf", "application/pdf", int64(5), now).
			AddRow(int64(2), int64(3), "k2", "b.png", "image/png", int64(6), now))

	list, err := repo.ListByAsset(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "b.png", list[1].FileName)
}

func TestDelete(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`^DELETE\s+FROM\s+asset_attachments\s+WHERE\s+id\s*=\s*\$1$`).
		WithArgs(int64(1)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`^DELETE\s+FROM\s+asset_attachments`).
		WithArgs(int64(2)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`^DELETE\s+FROM\s+asset_attachments`).
		WithArgs(int64(3)).WillReturnError(errors.New("db err"))

	require.NoError(t, repo.Delete(context.Background(), 1))
	assert.ErrorIs(t, repo.Delete(context.Background(), 2), common.ErrorNotFound)
	assert.Error(t, repo.Delete(context.Background(), 3))
}
