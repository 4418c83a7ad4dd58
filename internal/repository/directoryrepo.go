package repository

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/avolkov/cryptbucket/internal/model"
)

// DirectoryRepository stores the directory tree of each bucket. The root has
// a nil parent and exists exactly once per bucket.
type DirectoryRepository interface {
	// Create inserts a directory.
	Create(ctx context.Context, d *model.Directory) error
	// GetByID loads a directory scoped to a bucket.
	GetByID(ctx context.Context, bucketID, directoryID uuid.UUID) (*model.Directory, error)
	// GetByNameAndParent loads a directory by name within a parent.
	GetByNameAndParent(ctx context.Context, bucketID, parentDirectoryID uuid.UUID, name string) (*model.Directory, error)
	// GetRootByBucket loads the bucket's root directory.
	GetRootByBucket(ctx context.Context, bucketID uuid.UUID) (*model.Directory, error)
	// ListChildren returns the direct child directories of a parent.
	ListChildren(ctx context.Context, bucketID, parentDirectoryID uuid.UUID) ([]model.Directory, error)
	// ListRootsByBucketIDs batch-loads root directories for the given buckets.
	ListRootsByBucketIDs(ctx context.Context, bucketIDs []uuid.UUID) ([]model.Directory, error)
	// Rename sets the directory name.
	Rename(ctx context.Context, bucketID, directoryID uuid.UUID, name string) error
	// Move reparents and renames the directory in one update.
	Move(ctx context.Context, bucketID, directoryID, newParentDirectoryID uuid.UUID, newName string) error
	// SetMetaData replaces the opaque metadata document.
	SetMetaData(ctx context.Context, bucketID, directoryID uuid.UUID, metaData []byte) error
	// SetEncryptedMetaData replaces the client-encrypted metadata string.
	SetEncryptedMetaData(ctx context.Context, bucketID, directoryID uuid.UUID, encryptedMetaData string) error
	// Delete removes a single directory record.
	Delete(ctx context.Context, bucketID, directoryID uuid.UUID) error
}
