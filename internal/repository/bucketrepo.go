package repository

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/avolkov/cryptbucket/internal/model"
)

// BucketRepository stores buckets and their per-user authorization entries.
type BucketRepository interface {
	// Create inserts a bucket together with its initial authorization list.
	Create(ctx context.Context, b *model.Bucket) error
	// GetByID loads a bucket with its authorizations.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Bucket, error)
	// GetByName loads a bucket by its globally unique name.
	GetByName(ctx context.Context, name string) (*model.Bucket, error)
	// List returns all buckets with their authorizations.
	List(ctx context.Context) ([]model.Bucket, error)
	// Rename sets the bucket name.
	Rename(ctx context.Context, id uuid.UUID, name string) error
	// SetMetaData replaces the opaque metadata document.
	SetMetaData(ctx context.Context, id uuid.UUID, metaData []byte) error
	// Delete removes the bucket record and its authorization entries.
	Delete(ctx context.Context, id uuid.UUID) error
	// UpsertAuthorization inserts or replaces one user's authorization entry.
	UpsertAuthorization(ctx context.Context, bucketID uuid.UUID, a model.BucketAuthorization) error
}
