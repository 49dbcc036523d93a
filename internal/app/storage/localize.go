package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"

	apperrors "voxledger/internal/app/errors"
)

// Localizer resolves a storage key to a local file path so external
// tools (ffprobe, whisper.cpp) can read the bytes. cleanup removes any
// temporary copy and is always safe to call.
type Localizer interface {
	Localize(ctx context.Context, key string) (path string, cleanup func(), err error)
}

// Localize hands out the blob's on-disk path directly; nothing to copy
// or clean up for the filesystem backend.
func (s *LocalStore) Localize(_ context.Context, key string) (string, func(), error) {
	p, err := s.path(key)
	if err != nil {
		return "", func() {}, err
	}
	if _, err := os.Stat(p); err != nil {
		return "", func() {}, apperrors.Wrapf(err, "localize blob %s", key)
	}
	return p, func() {}, nil
}

// Downloader copies remote blobs into a temp file for local tools. Used
// with the object-store backend.
type Downloader struct {
	blobs BlobStore
}

// NewDownloader creates a localizer over a remote blob store.
func NewDownloader(blobs BlobStore) *Downloader {
	return &Downloader{blobs: blobs}
}

func (d *Downloader) Localize(ctx context.Context, key string) (string, func(), error) {
	rc, err := d.blobs.Get(ctx, key)
	if err != nil {
		return "", func() {}, err
	}
	defer rc.Close()

	tmp, err := os.CreateTemp("", "voxledger-*"+filepath.Ext(key))
	if err != nil {
		return "", func() {}, apperrors.Wrap(err, "create temp download")
	}
	cleanup := func() { os.Remove(tmp.Name()) }

	if _, err := io.Copy(tmp, rc); err != nil {
		tmp.Close()
		cleanup()
		return "", func() {}, apperrors.Wrapf(err, "download blob %s", key)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", func() {}, apperrors.Wrap(err, "close temp download")
	}
	return tmp.Name(), cleanup, nil
}
