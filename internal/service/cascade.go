package service

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/avolkov/cryptbucket/internal/repository"
)

// cascader deletes a directory subtree: for every directory, files go first
// (blob bytes, blob records, file record), then child directories are
// descended into, then the directory record itself is removed.
type cascader struct {
	directories repository.DirectoryRepository
	files       repository.FileRepository
	blobs       BlobService
}

// sweepChildren removes everything under the directory without touching the
// directory record itself. Used after a record was already deleted
// synchronously.
func (c *cascader) sweepChildren(ctx context.Context, bucketID, directoryID uuid.UUID) error {
	files, err := c.files.ListByDirectory(ctx, bucketID, directoryID)
	if err != nil {
		return err
	}
	for _, f := range files {
		if err := c.blobs.RemoveAllBlobsOfFile(ctx, bucketID, f.ID); err != nil {
			return err
		}
		if err := c.files.Delete(ctx, bucketID, f.ID); err != nil {
			return err
		}
	}

	children, err := c.directories.ListChildren(ctx, bucketID, directoryID)
	if err != nil {
		return err
	}
	for _, child := range children {
		if err := c.sweepChildren(ctx, bucketID, child.ID); err != nil {
			return err
		}
		if err := c.directories.Delete(ctx, bucketID, child.ID); err != nil {
			return err
		}
	}
	return nil
}
