package attachments

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gims/internal/common"
	"github.com/dmitrijs2005/gims/internal/dbx"
	"github.com/dmitrijs2005/gims/internal/server/models"
)

const attachmentColumns = `id, asset_id, storage_key, file_name, file_type, size, uploaded_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, a *models.Attachment) (*models.Attachment, error) {
	query :=
		`INSERT INTO asset_attachments (asset_id, storage_key, file_name, file_type, size)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, uploaded_at
		 `

	err := r.db.QueryRowContext(ctx, query, a.AssetID, a.StorageKey, a.FileName, a.FileType, a.Size).
		Scan(&a.ID, &a.UploadedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return a, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id int64) (*models.Attachment, error) {
	query := `SELECT ` + attachmentColumns + ` FROM asset_attachments WHERE id = $1`

	a := &models.Attachment{}
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&a.ID, &a.AssetID, &a.StorageKey, &a.FileName, &a.FileType, &a.Size, &a.UploadedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return a, nil
}

func (r *PostgresRepository) ListByAsset(ctx context.Context, assetID int64) ([]*models.Attachment, error) {
	query := `SELECT ` + attachmentColumns + ` FROM asset_attachments WHERE asset_id = $1 ORDER BY uploaded_at, id`

	rows, err := r.db.QueryContext(ctx, query, assetID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]*models.Attachment, 0)
	for rows.Next() {
		a := &models.Attachment{}
		if err := rows.Scan(&a.ID, &a.AssetID, &a.StorageKey, &a.FileName, &a.FileType, &a.Size, &a.UploadedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM asset_attachments WHERE id = $1`, id)
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
