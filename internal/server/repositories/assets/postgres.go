package assets

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gims/internal/common"
	"github.com/dmitrijs2005/gims/internal/dbx"
	"github.com/dmitrijs2005/gims/internal/server/models"
)

const assetColumns = `a.asset_id, a.name, a.description, a.quantity, a.unit, a.location, a.department,
		 a.category, a.sub_category, a.purchase_date, a.date_of_use, a.status,
		 a.purchase_price::float8, a.expected_life_years::float8, a.depreciation_annual::float8,
		 a.depreciation_monthly::float8, a.last_calibrated_date, a.next_calibration_date,
		 a.warranty_expiry_date, a.created_at, a.updated_at,
		 (SELECT COUNT(*) FROM asset_attachments aa WHERE aa.asset_id = a.asset_id)`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAsset(row rowScanner) (*models.Asset, error) {
	a := &models.Asset{}
	var status string
	err := row.Scan(&a.ID, &a.Name, &a.Description, &a.Quantity, &a.Unit, &a.Location, &a.Department,
		&a.Category, &a.SubCategory, &a.PurchaseDate, &a.DateOfUse, &status,
		&a.PurchasePrice, &a.ExpectedLifeYears, &a.DepreciationAnnual,
		&a.DepreciationMonthly, &a.LastCalibratedDate, &a.NextCalibrationDate,
		&a.WarrantyExpiryDate, &a.CreatedAt, &a.UpdatedAt, &a.AttachmentCount)
	if err != nil {
		return nil, err
	}
	a.Status = models.AssetStatus(status)
	return a, nil
}

func assetArgs(a *models.Asset) []any {
	return []any{a.Name, a.Description, a.Quantity, a.Unit, a.Location, a.Department,
		a.Category, a.SubCategory, a.PurchaseDate, a.DateOfUse, string(a.Status),
		a.PurchasePrice, a.ExpectedLifeYears, a.DepreciationAnnual, a.DepreciationMonthly,
		a.LastCalibratedDate, a.NextCalibrationDate, a.WarrantyExpiryDate}
}

func (r *PostgresRepository) Create(ctx context.Context, asset *models.Asset) (*models.Asset, error) {
	query :=
		`INSERT INTO assets (name, description, quantity, unit, location, department, category,
		 sub_category, purchase_date, date_of_use, status, purchase_price, expected_life_years,
		 depreciation_annual, depreciation_monthly, last_calibrated_date, next_calibration_date,
		 warranty_expiry_date)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		 RETURNING asset_id, created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query, assetArgs(asset)...).
		Scan(&asset.ID, &asset.CreatedAt, &asset.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return asset, nil
}

func (r *PostgresRepository) Update(ctx context.Context, asset *models.Asset) (*models.Asset, error) {
	query :=
		`UPDATE assets SET name = $1, description = $2, quantity = $3, unit = $4, location = $5,
		 department = $6, category = $7, sub_category = $8, purchase_date = $9, date_of_use = $10,
		 status = $11, purchase_price = $12, expected_life_years = $13, depreciation_annual = $14,
		 depreciation_monthly = $15, last_calibrated_date = $16, next_calibration_date = $17,
		 warranty_expiry_date = $18, updated_at = NOW()
		 WHERE asset_id = $19
		 RETURNING created_at, updated_at
		 `

	args := append(assetArgs(asset), asset.ID)
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&asset.CreatedAt, &asset.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return asset, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id int64) (*models.Asset, error) {
	query := `SELECT ` + assetColumns + ` FROM assets a WHERE a.asset_id = $1`

	asset, err := scanAsset(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return asset, nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]*models.Asset, error) {
	query := `SELECT ` + assetColumns + ` FROM assets a ORDER BY a.asset_id DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]*models.Asset, 0)
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, asset)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM assets WHERE asset_id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
