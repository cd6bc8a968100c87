// Package assets persists inventory records.
package assets

import (
	"context"

	"github.com/dmitrijs2005/gims/internal/server/models"
)

// Repository stores assets. Missing rows yield common.ErrorNotFound.
type Repository interface {
	Create(ctx context.Context, asset *models.Asset) (*models.Asset, error)
	Update(ctx context.Context, asset *models.Asset) (*models.Asset, error)
	Get(ctx context.Context, id int64) (*models.Asset, error)
	// List returns all assets, newest first, with AttachmentCount filled in.
	List(ctx context.Context) ([]*models.Asset, error)
	Delete(ctx context.Context, id int64) error
}
