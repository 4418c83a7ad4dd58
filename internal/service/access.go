// Package service contains the application services behind the HTTP surface:
// authentication, access control, the bucket/directory/file namespace, blob
// content and metrics.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid/v5"

	"github.com/avolkov/cryptbucket/internal/errs"
	"github.com/avolkov/cryptbucket/internal/model"
	"github.com/avolkov/cryptbucket/internal/repository"
)

// AccessService answers permission questions. Belongs-to checks run before
// permission checks so a caller probing foreign ids learns nothing about
// grants.
type AccessService interface {
	// RequireGlobalPermission fails unless the user holds every named global
	// permission.
	RequireGlobalPermission(user *model.User, perms ...string) error
	// RequireBucketAuthorization loads the bucket and fails unless the user's
	// authorization entry allows every named bucket permission.
	RequireBucketAuthorization(ctx context.Context, userID, bucketID uuid.UUID, perms ...string) (*model.Bucket, error)
	// EnsureDirectoryBelongsToBucket fails unless the directory is in the bucket.
	EnsureDirectoryBelongsToBucket(ctx context.Context, bucketID, directoryID uuid.UUID) (*model.Directory, error)
	// EnsureFileBelongsToBucket fails unless the file is in the bucket.
	EnsureFileBelongsToBucket(ctx context.Context, bucketID, fileID uuid.UUID) (*model.File, error)
}

type AccessServiceImpl struct {
	buckets     repository.BucketRepository
	directories repository.DirectoryRepository
	files       repository.FileRepository
}

// NewAccessService constructs AccessService with required dependencies.
func NewAccessService(buckets repository.BucketRepository, directories repository.DirectoryRepository, files repository.FileRepository) *AccessServiceImpl {
	return &AccessServiceImpl{buckets: buckets, directories: directories, files: files}
}

// RequireGlobalPermission checks the user's account-level permission map.
func (s *AccessServiceImpl) RequireGlobalPermission(user *model.User, perms ...string) error {
	for _, p := range perms {
		if !user.GlobalPermissions[p] {
			return errs.User("INSUFFICIENT_GLOBAL_PERMISSION",
				fmt.Sprintf("You do not have the global permission %q required for this action.", p))
		}
	}
	return nil
}

// RequireBucketAuthorization checks the user's authorization entry on the
// bucket and returns the bucket on success.
func (s *AccessServiceImpl) RequireBucketAuthorization(ctx context.Context, userID, bucketID uuid.UUID, perms ...string) (*model.Bucket, error) {
	b, err := s.buckets.GetByID(ctx, bucketID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, errs.User("BUCKET_NOT_FOUND", "The requested bucket could not be found.")
		}
		return nil, err
	}
	auth := findAuthorization(b, userID)
	if auth == nil {
		return nil, errs.User("NO_AUTHORIZATION", "You are not authorized to access this bucket.")
	}
	for _, p := range perms {
		if !auth.Permissions[p] {
			return nil, errs.User("INSUFFICIENT_BUCKET_PERMISSION",
				fmt.Sprintf("You do not have the bucket permission %q required for this action.", p))
		}
	}
	return b, nil
}

// EnsureDirectoryBelongsToBucket loads the directory scoped to the bucket.
func (s *AccessServiceImpl) EnsureDirectoryBelongsToBucket(ctx context.Context, bucketID, directoryID uuid.UUID) (*model.Directory, error) {
	d, err := s.directories.GetByID(ctx, bucketID, directoryID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, errs.User("DIRECTORY_NOT_IN_BUCKET", "The directory does not belong to the given bucket.")
		}
		return nil, err
	}
	return d, nil
}

// EnsureFileBelongsToBucket loads the file scoped to the bucket.
func (s *AccessServiceImpl) EnsureFileBelongsToBucket(ctx context.Context, bucketID, fileID uuid.UUID) (*model.File, error) {
	f, err := s.files.GetByID(ctx, bucketID, fileID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, errs.User("FILE_NOT_IN_BUCKET", "The file does not belong to the given bucket.")
		}
		return nil, err
	}
	return f, nil
}

func findAuthorization(b *model.Bucket, userID uuid.UUID) *model.BucketAuthorization {
	for i := range b.Authorizations {
		if b.Authorizations[i].UserID == userID {
			return &b.Authorizations[i]
		}
	}
	return nil
}
