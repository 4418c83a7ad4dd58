package repository

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/avolkov/cryptbucket/internal/model"
)

// FileRepository stores file records. File content lives in blobs.
type FileRepository interface {
	// Create inserts a file.
	Create(ctx context.Context, f *model.File) error
	// GetByID loads a file scoped to a bucket.
	GetByID(ctx context.Context, bucketID, fileID uuid.UUID) (*model.File, error)
	// GetByNameAndParent loads a file by name within a parent directory.
	GetByNameAndParent(ctx context.Context, bucketID, parentDirectoryID uuid.UUID, name string) (*model.File, error)
	// ListByDirectory returns files directly under a directory.
	ListByDirectory(ctx context.Context, bucketID, parentDirectoryID uuid.UUID) ([]model.File, error)
	// Rename sets the file name.
	Rename(ctx context.Context, bucketID, fileID uuid.UUID, name string) error
	// Move reparents and renames the file in one update.
	Move(ctx context.Context, bucketID, fileID, newParentDirectoryID uuid.UUID, newName string) error
	// SetMetaData replaces the opaque metadata document.
	SetMetaData(ctx context.Context, bucketID, fileID uuid.UUID, metaData []byte) error
	// SetEncryptedMetaData replaces the client-encrypted metadata string.
	SetEncryptedMetaData(ctx context.Context, bucketID, fileID uuid.UUID, encryptedMetaData string) error
	// SetContentUpdatedAt records when the file's blob content last changed.
	SetContentUpdatedAt(ctx context.Context, bucketID, fileID uuid.UUID, at time.Time) error
	// Delete removes a single file record.
	Delete(ctx context.Context, bucketID, fileID uuid.UUID) error
}
