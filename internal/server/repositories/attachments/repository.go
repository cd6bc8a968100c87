// Package attachments persists metadata of files linked to assets. The file
// contents live in object storage under StorageKey.
package attachments

import (
	"context"

	"github.com/dmitrijs2005/gims/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, a *models.Attachment) (*models.Attachment, error)
	Get(ctx context.Context, id int64) (*models.Attachment, error)
	ListByAsset(ctx context.Context, assetID int64) ([]*models.Attachment, error)
	Delete(ctx context.Context, id int64) error
}
