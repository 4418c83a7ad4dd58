// Package blobstore persists opaque ciphertext bytes on disk, keyed by blob ID.
// It performs no locking of its own; callers serialize writers per blob ID via
// blob-status transitions in the metadata store.
package blobstore

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/gofrs/uuid/v5"
	"golang.org/x/sys/unix"

	"github.com/avolkov/cryptbucket/internal/model"
)

// Store keeps one flat file per blob under a root directory.
type Store struct {
	dir string
}

// New creates the backing directory if needed and returns a store over it.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(blobID uuid.UUID) string {
	return filepath.Join(s.dir, blobID.String())
}

// OpenWriter opens an append-capable sink positioned at startOffset. A
// nonzero offset resumes a partial write; bytes past the offset are
// overwritten in place.
func (s *Store) OpenWriter(blobID uuid.UUID, startOffset int64) (io.WriteCloser, error) {
	f, err := os.OpenFile(s.path(blobID), os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}
	if _, err := f.Seek(startOffset, io.SeekStart); err != nil {
		_ = f.Close()
		return nil, err
	}
	return f, nil
}

// OpenReader opens the blob's bytes for sequential reading.
func (s *Store) OpenReader(blobID uuid.UUID) (io.ReadCloser, error) {
	return os.Open(s.path(blobID))
}

// Size returns the current on-disk size of the blob in bytes.
func (s *Store) Size(blobID uuid.UUID) (int64, error) {
	st, err := os.Stat(s.path(blobID))
	if err != nil {
		return 0, err
	}
	return st.Size(), nil
}

// Remove deletes the blob's bytes. A blob that is already gone is not an
// error; teardown may race with reconciliation.
func (s *Store) Remove(blobID uuid.UUID) error {
	err := os.Remove(s.path(blobID))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// Usage reports free and total bytes of the volume backing the store.
func (s *Store) Usage() (model.DiskUsage, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(s.dir, &st); err != nil {
		return model.DiskUsage{}, err
	}
	bsize := int64(st.Bsize)
	return model.DiskUsage{
		FreeBytes:  int64(st.Bavail) * bsize,
		TotalBytes: int64(st.Blocks) * bsize,
	}, nil
}
