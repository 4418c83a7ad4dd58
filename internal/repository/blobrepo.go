package repository

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/avolkov/cryptbucket/internal/model"
)

// BlobRepository stores blob lifecycle records. Status moves started to
// finished or error, never out of a terminal state.
type BlobRepository interface {
	// Create inserts a blob in the started state.
	Create(ctx context.Context, b *model.Blob) error
	// GetInProgress loads a started blob matching the (bucket, file, blob) triple.
	GetInProgress(ctx context.Context, bucketID, fileID, blobID uuid.UUID) (*model.Blob, error)
	// MarkFinished transitions the blob to finished and records the time.
	MarkFinished(ctx context.Context, bucketID, fileID, blobID uuid.UUID) error
	// MarkErroneous transitions the blob to error.
	MarkErroneous(ctx context.Context, bucketID, fileID, blobID uuid.UUID) error
	// FindLatestFinished returns the newest finished blob of a file.
	FindLatestFinished(ctx context.Context, bucketID, fileID uuid.UUID) (*model.Blob, error)
	// ListByFile returns every blob record of a file.
	ListByFile(ctx context.Context, bucketID, fileID uuid.UUID) ([]model.Blob, error)
	// ListByFileExcluding returns every blob record of a file except one.
	ListByFileExcluding(ctx context.Context, bucketID, fileID, excludeBlobID uuid.UUID) ([]model.Blob, error)
	// DeleteByFile removes all blob records of a file.
	DeleteByFile(ctx context.Context, bucketID, fileID uuid.UUID) error
	// DeleteByFileExcluding removes all blob records of a file except one.
	DeleteByFileExcluding(ctx context.Context, bucketID, fileID, keepBlobID uuid.UUID) error
}
