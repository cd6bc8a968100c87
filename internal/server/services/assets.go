package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/gims/internal/clock"
	"github.com/dmitrijs2005/gims/internal/common"
	"github.com/dmitrijs2005/gims/internal/dbx"
	"github.com/dmitrijs2005/gims/internal/logging"
	"github.com/dmitrijs2005/gims/internal/server/config"
	"github.com/dmitrijs2005/gims/internal/server/depreciation"
	"github.com/dmitrijs2005/gims/internal/server/models"
	"github.com/dmitrijs2005/gims/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gims/internal/server/storage"
	"github.com/skip2/go-qrcode"
)

const (
	attachmentPrefix = "assets"
	presignTTL       = time.Hour
)

// MaxAttachments is the number of files accepted with one asset write.
const MaxAttachments = 10

// QR code edge lengths in pixels by size name.
var qrSizes = map[string]int{
	"small":  150,
	"medium": 200,
	"large":  300,
	"xlarge": 400,
}

// Upload is one file submitted with an asset.
type Upload struct {
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// AssetService manages inventory records and their attachments.
type AssetService struct {
	db            *sql.DB
	repomanager   repomanager.RepositoryManager
	blobs         storage.BlobStore
	clock         clock.Clock
	logger        logging.Logger
	appURL        string
	maxUploadSize int64
}

func NewAssetService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config,
	blobs storage.BlobStore, clk clock.Clock, l logging.Logger) *AssetService {
	return &AssetService{
		db:            db,
		repomanager:   m,
		blobs:         blobs,
		clock:         clk,
		logger:        l.With("module", "assets"),
		appURL:        strings.TrimRight(cfg.AppURL, "/"),
		maxUploadSize: cfg.MaxUploadSize,
	}
}

func (s *AssetService) internal(ctx context.Context, msg string, err error) error {
	s.logger.Error(ctx, msg, "error", err)
	return common.ErrorInternal
}

func (s *AssetService) passThrough(ctx context.Context, msg string, err error) error {
	if err == nil || errors.Is(err, common.ErrorNotFound) {
		return err
	}
	return s.internal(ctx, msg, err)
}

// List returns all assets, newest first, with their current value.
func (s *AssetService) List(ctx context.Context) ([]*models.Asset, error) {
	list, err := s.repomanager.Assets(s.db).List(ctx)
	if err != nil {
		return nil, s.internal(ctx, "asset list failed", err)
	}
	now := s.clock.Now()
	for _, a := range list {
		a.CurrentValue = depreciation.CurrentValue(a, now)
	}
	return list, nil
}

// Get returns an asset with its attachments and download links.
func (s *AssetService) Get(ctx context.Context, id int64) (*models.Asset, error) {
	a, err := s.repomanager.Assets(s.db).Get(ctx, id)
	if err != nil {
		return nil, s.passThrough(ctx, "asset get failed", err)
	}

	files, err := s.repomanager.Attachments(s.db).ListByAsset(ctx, id)
	if err != nil {
		return nil, s.internal(ctx, "attachment list failed", err)
	}
	for _, f := range files {
		url, err := s.blobs.PresignGet(ctx, f.StorageKey, presignTTL)
		if err != nil {
			s.logger.Warn(ctx, "presign failed", "attachment_id", f.ID, "error", err)
			continue
		}
		f.URL = url
	}

	a.Attachments = files
	a.AttachmentCount = len(files)
	a.CurrentValue = depreciation.CurrentValue(a, s.clock.Now())
	return a, nil
}

// PublicView is Get for the unauthenticated page behind QR codes.
func (s *AssetService) PublicView(ctx context.Context, id int64) (*models.Asset, error) {
	return s.Get(ctx, id)
}

func (s *AssetService) checkUploads(uploads []Upload) error {
	verr := &common.ValidationError{}
	if len(uploads) > MaxAttachments {
		verr.Add("attachments", fmt.Sprintf("at most %d files per request", MaxAttachments))
	}
	for _, u := range uploads {
		if u.Size > s.maxUploadSize {
			verr.Add("attachments", fmt.Sprintf("%s exceeds the %d byte limit", u.FileName, s.maxUploadSize))
		}
	}
	return verr.OrNil()
}

// storeUploads writes uploads to the blob store and returns the attachment
// rows to insert. On failure everything stored so far is removed.
func (s *AssetService) storeUploads(ctx context.Context, uploads []Upload) ([]*models.Attachment, error) {
	now := s.clock.Now()
	out := make([]*models.Attachment, 0, len(uploads))

	for _, u := range uploads {
		key := storage.NewObjectKey(attachmentPrefix, u.FileName, now)
		if err := s.blobs.Put(ctx, key, u.Body, u.Size, u.ContentType); err != nil {
			s.removeBlobs(ctx, out)
			return nil, fmt.Errorf("upload %s: %w", u.FileName, err)
		}
		out = append(out, &models.Attachment{
			StorageKey: key,
			FileName:   u.FileName,
			FileType:   u.ContentType,
			Size:       u.Size,
		})
	}
	return out, nil
}

func (s *AssetService) removeBlobs(ctx context.Context, files []*models.Attachment) {
	for _, f := range files {
		if err := s.blobs.Delete(ctx, f.StorageKey); err != nil {
			s.logger.Warn(ctx, "blob cleanup failed", "key", f.StorageKey, "error", err)
		}
	}
}

// save runs write (create or update) and inserts the attachment rows in
// one transaction. Uploaded blobs are removed again if it fails.
func (s *AssetService) save(ctx context.Context, uploads []Upload,
	write func(ctx context.Context, tx dbx.DBTX) (*models.Asset, error)) (*models.Asset, error) {
	if err := s.checkUploads(uploads); err != nil {
		return nil, err
	}

	files, err := s.storeUploads(ctx, uploads)
	if err != nil {
		return nil, s.internal(ctx, "attachment upload failed", err)
	}

	var saved *models.Asset
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		a, err := write(ctx, tx)
		if err != nil {
			return err
		}
		repo := s.repomanager.Attachments(tx)
		for _, f := range files {
			f.AssetID = a.ID
			if _, err := repo.Create(ctx, f); err != nil {
				return err
			}
		}
		saved = a
		return nil
	})
	if err != nil {
		s.removeBlobs(ctx, files)
		return nil, s.passThrough(ctx, "asset save failed", err)
	}

	return s.Get(ctx, saved.ID)
}

// Create stores a new asset with its attachments.
func (s *AssetService) Create(ctx context.Context, in AssetInput, uploads []Upload) (*models.Asset, error) {
	a, err := in.ToAsset()
	if err != nil {
		return nil, err
	}

	created, err := s.save(ctx, uploads, func(ctx context.Context, tx dbx.DBTX) (*models.Asset, error) {
		return s.repomanager.Assets(tx).Create(ctx, a)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "asset created", "asset_id", created.ID)
	return created, nil
}

// Update replaces the fields of asset id and adds the uploaded attachments.
func (s *AssetService) Update(ctx context.Context, id int64, in AssetInput, uploads []Upload) (*models.Asset, error) {
	a, err := in.ToAsset()
	if err != nil {
		return nil, err
	}
	a.ID = id

	updated, err := s.save(ctx, uploads, func(ctx context.Context, tx dbx.DBTX) (*models.Asset, error) {
		return s.repomanager.Assets(tx).Update(ctx, a)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "asset updated", "asset_id", id)
	return updated, nil
}

// Delete removes an asset and its attachments. Blob removal is best effort.
func (s *AssetService) Delete(ctx context.Context, id int64) error {
	files, err := s.repomanager.Attachments(s.db).ListByAsset(ctx, id)
	if err != nil {
		return s.internal(ctx, "attachment list failed", err)
	}

	if err := s.repomanager.Assets(s.db).Delete(ctx, id); err != nil {
		return s.passThrough(ctx, "asset delete failed", err)
	}

	s.removeBlobs(ctx, files)
	s.logger.Info(ctx, "asset deleted", "asset_id", id, "attachments", len(files))
	return nil
}

// DeleteAttachment removes one attachment of asset assetID.
func (s *AssetService) DeleteAttachment(ctx context.Context, assetID, attachmentID int64) error {
	repo := s.repomanager.Attachments(s.db)

	f, err := repo.Get(ctx, attachmentID)
	if err != nil {
		return s.passThrough(ctx, "attachment get failed", err)
	}
	if f.AssetID != assetID {
		return common.ErrorNotFound
	}

	if err := repo.Delete(ctx, attachmentID); err != nil {
		return s.passThrough(ctx, "attachment delete failed", err)
	}

	s.removeBlobs(ctx, []*models.Attachment{f})
	return nil
}

// PublicURL is the page a QR code of asset id points to.
func (s *AssetService) PublicURL(id int64) string {
	return s.appURL + "/public/assets/" + strconv.FormatInt(id, 10)
}

// QRCode renders a PNG QR code of the public page of asset id. size is
// small, medium (default), large or xlarge.
func (s *AssetService) QRCode(ctx context.Context, id int64, size string) ([]byte, error) {
	if size == "" {
		size = "medium"
	}
	px, ok := qrSizes[size]
	if !ok {
		return nil, common.NewValidationError("size", "must be one of: small medium large xlarge")
	}

	if _, err := s.repomanager.Assets(s.db).Get(ctx, id); err != nil {
		return nil, s.passThrough(ctx, "asset get failed", err)
	}

	png, err := qrcode.Encode(s.PublicURL(id), qrcode.Medium, px)
	if err != nil {
		return nil, s.internal(ctx, "qr encode failed", err)
	}
	return png, nil
}
