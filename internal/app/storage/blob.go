// Package storage provides durable byte storage for uploaded audio and
// exported transcript artifacts, addressed by opaque keys.
package storage

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// BlobStore is durable byte storage addressed by opaque keys.
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// AudioKey builds the storage key for an uploaded audio file. Keys are
// unique per upload so re-submitting the same filename never collides.
func AudioKey(userID, filename string) string {
	return fmt.Sprintf("audio/%s/%d-%s%s",
		userID, time.Now().Unix(), uuid.New().String()[:8], filepath.Ext(filename))
}

// ArtifactKey builds the storage key for an exported transcript artifact.
// Deterministic per (job, format) so regeneration overwrites in place.
func ArtifactKey(jobID, format string) string {
	return fmt.Sprintf("exports/%s/transcript.%s", jobID, format)
}
