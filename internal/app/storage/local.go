package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	apperrors "voxledger/internal/app/errors"
)

// LocalStore keeps blobs on the local filesystem under a root directory.
// The default backend for single-node deployments and tests.
type LocalStore struct {
	root string
}

// NewLocalStore creates the root directory if needed.
func NewLocalStore(root string) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, apperrors.Wrap(err, "create storage root")
	}
	return &LocalStore{root: root}, nil
}

// path maps a key to a file path, refusing keys that escape the root.
func (s *LocalStore) path(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", apperrors.Newf("invalid storage key: %s", key)
	}
	return filepath.Join(s.root, clean), nil
}

func (s *LocalStore) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return apperrors.Wrap(err, "create blob directory")
	}

	// Write to a temp file then rename so readers never see partial blobs.
	tmp, err := os.CreateTemp(filepath.Dir(p), ".put-*")
	if err != nil {
		return apperrors.Wrap(err, "create temp blob")
	}
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return apperrors.Wrap(err, "write blob")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return apperrors.Wrap(err, "close blob")
	}
	return os.Rename(tmp.Name(), p)
}

func (s *LocalStore) Get(_ context.Context, key string) (io.ReadCloser, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		return nil, apperrors.Wrapf(err, "open blob %s", key)
	}
	return f, nil
}

func (s *LocalStore) Delete(_ context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return apperrors.Wrapf(err, "delete blob %s", key)
	}
	return nil
}

// Path returns the on-disk location for a key, for callers that hand the
// file to external tools like ffprobe or whisper.cpp.
func (s *LocalStore) Path(key string) (string, error) {
	return s.path(key)
}
