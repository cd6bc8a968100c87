package assets

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

var assetCols = []string{"asset_id", "name", "description", "quantity", "unit", "location", "department",
	"category", "sub_category", "purchase_date", "date_of_use", "status", "purchase_price",
	"expected_life_years", "depreciation_annual", "depreciation_monthly", "last_calibrated_date",
	"next_calibration_date", "warranty_expiry_date", "created_at", "updated_at", "count"}

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return NewPostgresRepository(db), mock, db
}

func ptr[T any](v T) *T { return &v }

func sampleAsset() *models.Asset {
	return &models.Asset{
		Name:                "Oscilloscope",
		Description:         "4 channel",
		Quantity:            1,
		Unit:                "pcs",
		Location:            "Lab 2",
		Department:          "R&D",
		Category:            "Equipment",
		SubCategory:         "Measurement",
		PurchaseDate:        ptr(time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)),
		Status:              models.StatusInUse,
		PurchasePrice:       ptr(1200.0),
		ExpectedLifeYears:   ptr(5.0),
		DepreciationAnnual:  ptr(240.0),
		DepreciationMonthly: ptr(20.0),
	}
}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`(?s)^INSERT\s+INTO\s+assets\s*\(name,.*warranty_expiry_date\)\s*VALUES\s*\(\$1,.*\$18\)\s*RETURNING\s+asset_id,\s*created_at,\s*updated_at\s*$`).
		WithArgs("Oscilloscope", "4 channel", 1, "pcs", "Lab 2", "R&D", "Equipment", "Measurement",
			sqlmock.AnyArg(), nil, "In Use", 1200.0, 5.0, 240.0, 20.0, nil, nil, nil).
		WillReturnRows(sqlmock.NewRows([]string{"asset_id", "created_at", "updated_at"}).AddRow(int64(9), now, now))

	got, err := repo.Create(context.Background(), sampleAsset())
	require.NoError(t, err)
	assert.Equal(t, int64(9), got.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`INSERT\s+INTO\s+assets`).WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), sampleAsset())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db error: db down")
}

func TestUpdate(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()

		now := time.Now()
		a := sampleAsset()
		a.ID = 3
		mock.ExpectQuery(`(?s)^UPDATE\s+assets\s+SET\s+name\s*=\s*\$1,.*updated_at\s*=\s*NOW\(\)\s+WHERE\s+asset_id\s*=\s*\$19`).
			WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

		got, err := repo.Update(context.Background(), a)
		require.NoError(t, err)
		assert.Equal(t, now, got.UpdatedAt)
	})

	t.Run("not found", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()

		mock.ExpectQuery(`UPDATE\s+assets`).WillReturnError(sql.ErrNoRows)

		_, err := repo.Update(context.Background(), sampleAsset())
		assert.ErrorIs(t, err, common.ErrorNotFound)
	})
}

func TestGet(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	use := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`(?s)^SELECT\s+a\.asset_id,.*FROM\s+assets\s+a\s+WHERE\s+a\.asset_id\s*=\s*\$1$`).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows(assetCols).AddRow(
			int64(3), "Drill", "", 2, "pcs", "Store", "Ops", "Tools", "", nil, use, "In Storage",
			99.5, nil, nil, nil, nil, nil, nil, now, now, 4))

	got, err := repo.Get(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, "Drill", got.Name)
	assert.Equal(t, models.StatusInStorage, got.Status)
	assert.Nil(t, got.PurchaseDate)
	require.NotNil(t, got.DateOfUse)
	assert.True(t, use.Equal(*got.DateOfUse))
	require.NotNil(t, got.PurchasePrice)
	assert.Equal(t, 99.5, *got.PurchasePrice)
	assert.Nil(t, got.ExpectedLifeYears)
	assert.Equal(t, 4, got.AttachmentCount)
}

func TestGet_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM\s+assets\s+a\s+WHERE`).WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), 404)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestList(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	rows := sqlmock.NewRows(assetCols).
		AddRow(int64(2), "B", "", 1, "", "", "", "", "", nil, nil, "Retired", nil, nil, nil, nil, nil, nil, nil, now, now, 0).
		AddRow(int64(1), "A", "", 1, "", "", "", "", "", nil, nil, "In Use", 10.0, 1.0, 10.0, 0.83, nil, nil, nil, now, now, 2)
	mock.ExpectQuery(`(?s)FROM\s+assets\s+a\s+ORDER\s+BY\s+a\.asset_id\s+DESC$`).WillReturnRows(rows)

	list, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, int64(2), list[0].ID)
	assert.Equal(t, 2, list[1].AttachmentCount)
}

func TestList_QueryError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM\s+assets`).WillReturnError(errors.New("boom"))

	_, err := repo.List(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db error")
}

func TestDelete(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`^DELETE\s+FROM\s+assets\s+WHERE\s+asset_id\s*=\s*\$1$`).
		WithArgs(int64(5)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`^DELETE\s+FROM\s+assets`).
		WithArgs(int64(6)).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Delete(context.Background(), 5))
	assert.ErrorIs(t, repo.Delete(context.Background(), 6), common.ErrorNotFound)
}
