// Package storage keeps attachment contents in S3-compatible object storage.
package storage

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// BlobStore stores opaque objects by key.
type BlobStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
	// PresignGet returns a time-limited download URL for key.
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// NewObjectKey returns a unique key of the form
// <prefix>/<yyyy>/<mm>/<dd>/<uuid><ext>, keeping the lower-cased extension
// of filename.
func NewObjectKey(prefix, filename string, now time.Time) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return fmt.Sprintf("%s/%d/%02d/%02d/%s%s", prefix, now.Year(), now.Month(), now.Day(), uuid.New(), ext)
}
