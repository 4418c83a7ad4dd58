package service

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/avolkov/cryptbucket/internal/blobstore"
	"github.com/avolkov/cryptbucket/internal/errs"
	"github.com/avolkov/cryptbucket/internal/model"
	"github.com/avolkov/cryptbucket/internal/repository"
)

// DefaultMaxFileSizeBytes caps a single blob's ciphertext.
const DefaultMaxFileSizeBytes int64 = 2 * 1024 * 1024 * 1024

// BlobWriter streams ciphertext into a blob under the size ceiling.
type BlobWriter interface {
	io.WriteCloser
	// BytesWritten reports how many bytes this writer accepted.
	BytesWritten() int64
}

// BlobService owns blob lifecycle: started writers, finish/abort, reads and
// the one-finished-blob-per-file reconciliation.
type BlobService interface {
	// CreateInProgressBlob records a started blob and opens a writer at
	// offset zero.
	CreateInProgressBlob(ctx context.Context, bucketID, fileID uuid.UUID, cryptoMetaHeader string) (*model.Blob, BlobWriter, error)
	// ResumeInProgressBlob reopens a started blob's writer at the given
	// offset.
	ResumeInProgressBlob(ctx context.Context, bucketID, fileID, blobID uuid.UUID, offset int64) (*model.Blob, BlobWriter, error)
	// FinishWrite marks the blob finished and removes every other blob of
	// the file, bytes first, then records.
	FinishWrite(ctx context.Context, bucketID, fileID, blobID uuid.UUID) error
	// AbortWrite marks the blob erroneous. Partial bytes are abandoned.
	AbortWrite(ctx context.Context, bucketID, fileID, blobID uuid.UUID) error
	// FindLatestBlob returns the newest finished blob of the file.
	FindLatestBlob(ctx context.Context, bucketID, fileID uuid.UUID) (*model.Blob, error)
	// OpenBlobReader opens the blob's ciphertext for streaming with its size.
	OpenBlobReader(blobID uuid.UUID) (io.ReadCloser, int64, error)
	// RemoveAllBlobsOfFile deletes every blob of the file, bytes then
	// records. Used by deletion cascades.
	RemoveAllBlobsOfFile(ctx context.Context, bucketID, fileID uuid.UUID) error
	// MaxFileSizeBytes reports the configured ceiling.
	MaxFileSizeBytes() int64
}

type BlobServiceImpl struct {
	blobs       repository.BlobRepository
	files       repository.FileRepository
	store       *blobstore.Store
	maxFileSize int64
	logger      *zap.Logger
}

// NewBlobService constructs BlobService with required dependencies.
func NewBlobService(blobs repository.BlobRepository, files repository.FileRepository, store *blobstore.Store, maxFileSize int64, logger *zap.Logger) *BlobServiceImpl {
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSizeBytes
	}
	return &BlobServiceImpl{blobs: blobs, files: files, store: store, maxFileSize: maxFileSize, logger: logger}
}

func (s *BlobServiceImpl) MaxFileSizeBytes() int64 { return s.maxFileSize }

type blobWriter struct {
	*blobstore.LimitedWriter
	closer io.Closer
}

func (w *blobWriter) Close() error { return w.closer.Close() }

// CreateInProgressBlob records a started blob and opens its writer.
func (s *BlobServiceImpl) CreateInProgressBlob(ctx context.Context, bucketID, fileID uuid.UUID, cryptoMetaHeader string) (*model.Blob, BlobWriter, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return nil, nil, err
	}
	b := &model.Blob{
		ID:                      id,
		BucketID:                bucketID,
		FileID:                  fileID,
		CryptoMetaHeaderContent: cryptoMetaHeader,
		Status:                  model.BlobStatusStarted,
	}
	if err := s.blobs.Create(ctx, b); err != nil {
		return nil, nil, err
	}
	w, err := s.openWriter(b.ID, 0)
	if err != nil {
		return nil, nil, err
	}
	return b, w, nil
}

// ResumeInProgressBlob reopens the writer of a started blob at offset. Only
// blobs matching the full (bucket, file, blob) triple in the started state
// qualify.
func (s *BlobServiceImpl) ResumeInProgressBlob(ctx context.Context, bucketID, fileID, blobID uuid.UUID, offset int64) (*model.Blob, BlobWriter, error) {
	if offset < 0 || offset > s.maxFileSize {
		return nil, nil, errs.User("BLOB_SIZE_EXCEEDS_LIMIT", "Rejected attempt to write file larger than allowed")
	}
	b, err := s.blobs.GetInProgress(ctx, bucketID, fileID, blobID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, nil, errs.User("BLOB_INVALID", "No in-progress blob found with the given ID")
		}
		return nil, nil, err
	}
	w, err := s.openWriter(b.ID, offset)
	if err != nil {
		return nil, nil, err
	}
	return b, w, nil
}

func (s *BlobServiceImpl) openWriter(blobID uuid.UUID, offset int64) (BlobWriter, error) {
	wc, err := s.store.OpenWriter(blobID, offset)
	if err != nil {
		return nil, err
	}
	return &blobWriter{
		LimitedWriter: blobstore.NewLimitedWriter(wc, s.maxFileSize-offset),
		closer:        wc,
	}, nil
}

// FinishWrite transitions the blob to finished, then reconciles so that it
// is the file's only remaining blob.
func (s *BlobServiceImpl) FinishWrite(ctx context.Context, bucketID, fileID, blobID uuid.UUID) error {
	if err := s.blobs.MarkFinished(ctx, bucketID, fileID, blobID); err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return errs.User("BLOB_INVALID", "No in-progress blob found with the given ID")
		}
		return err
	}

	others, err := s.blobs.ListByFileExcluding(ctx, bucketID, fileID, blobID)
	if err != nil {
		return err
	}
	for _, old := range others {
		if err := s.store.Remove(old.ID); err != nil {
			return err
		}
	}
	if err := s.blobs.DeleteByFileExcluding(ctx, bucketID, fileID, blobID); err != nil {
		return err
	}
	return s.files.SetContentUpdatedAt(ctx, bucketID, fileID, time.Now())
}

// AbortWrite moves the blob to the error state.
func (s *BlobServiceImpl) AbortWrite(ctx context.Context, bucketID, fileID, blobID uuid.UUID) error {
	return s.blobs.MarkErroneous(ctx, bucketID, fileID, blobID)
}

// FindLatestBlob returns the newest finished blob of the file.
func (s *BlobServiceImpl) FindLatestBlob(ctx context.Context, bucketID, fileID uuid.UUID) (*model.Blob, error) {
	b, err := s.blobs.FindLatestFinished(ctx, bucketID, fileID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, errs.User("BLOB_NOT_FOUND", "Desired blob could not be found")
		}
		return nil, err
	}
	return b, nil
}

// OpenBlobReader opens the blob's bytes and reports their size for
// Content-Length.
func (s *BlobServiceImpl) OpenBlobReader(blobID uuid.UUID) (io.ReadCloser, int64, error) {
	size, err := s.store.Size(blobID)
	if err != nil {
		return nil, 0, err
	}
	rc, err := s.store.OpenReader(blobID)
	if err != nil {
		return nil, 0, err
	}
	return rc, size, nil
}

// RemoveAllBlobsOfFile deletes bytes first, tolerating files that never made
// it to disk, then the records.
func (s *BlobServiceImpl) RemoveAllBlobsOfFile(ctx context.Context, bucketID, fileID uuid.UUID) error {
	all, err := s.blobs.ListByFile(ctx, bucketID, fileID)
	if err != nil {
		return err
	}
	for _, b := range all {
		if err := s.store.Remove(b.ID); err != nil {
			return err
		}
	}
	return s.blobs.DeleteByFile(ctx, bucketID, fileID)
}
