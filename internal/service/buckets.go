package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid/v5"

	"github.com/avolkov/cryptbucket/internal/background"
	"github.com/avolkov/cryptbucket/internal/errs"
	"github.com/avolkov/cryptbucket/internal/model"
	"github.com/avolkov/cryptbucket/internal/repository"
)

// BucketWithRoot pairs a bucket with its root directory id for listings.
type BucketWithRoot struct {
	Bucket          model.Bucket
	RootDirectoryID uuid.UUID
}

// BucketService manages buckets, their root directories and authorization
// grants.
type BucketService interface {
	// Create makes a bucket plus its root directory. The creator receives an
	// all-true authorization entry.
	Create(ctx context.Context, creator *model.User, name, cryptSpec, cryptData string, metaData []byte) (bucketID, rootDirectoryID uuid.UUID, err error)
	// ListAuthorized returns the buckets the user has any authorization on.
	ListAuthorized(ctx context.Context, userID uuid.UUID) ([]BucketWithRoot, error)
	// Rename sets a new globally unique name.
	Rename(ctx context.Context, bucketID uuid.UUID, newName string) error
	// Destroy deletes the bucket after an exact name confirmation. The
	// descendant sweep happens in the background.
	Destroy(ctx context.Context, bucket *model.Bucket, confirmedName string) error
	// SetMetaData replaces the bucket's opaque metadata.
	SetMetaData(ctx context.Context, bucketID uuid.UUID, metaData []byte) error
	// SetAuthorization adjusts one user's permission entries on the bucket.
	SetAuthorization(ctx context.Context, grantor *model.User, bucket *model.Bucket, targetUserID uuid.UUID, updates map[string]bool) error
}

type BucketServiceImpl struct {
	buckets     repository.BucketRepository
	directories repository.DirectoryRepository
	users       repository.UserRepository
	cascade     cascader
	runner      *background.Runner
}

// NewBucketService constructs BucketService with required dependencies.
func NewBucketService(buckets repository.BucketRepository, directories repository.DirectoryRepository, files repository.FileRepository, users repository.UserRepository, blobs BlobService, runner *background.Runner) *BucketServiceImpl {
	return &BucketServiceImpl{
		buckets:     buckets,
		directories: directories,
		users:       users,
		cascade:     cascader{directories: directories, files: files, blobs: blobs},
		runner:      runner,
	}
}

// Create inserts the bucket with the creator's all-true authorization, then
// its root directory named "<name> Root".
func (s *BucketServiceImpl) Create(ctx context.Context, creator *model.User, name, cryptSpec, cryptData string, metaData []byte) (uuid.UUID, uuid.UUID, error) {
	bucketID, err := uuid.NewV4()
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	b := &model.Bucket{
		ID:        bucketID,
		Name:      name,
		CryptSpec: cryptSpec,
		CryptData: cryptData,
		MetaData:  metaData,
		Authorizations: []model.BucketAuthorization{
			{UserID: creator.ID, Notes: "Created this bucket", Permissions: model.AllBucketPermissions(true)},
		},
	}
	if err := s.buckets.Create(ctx, b); err != nil {
		if errors.Is(err, errs.ErrAlreadyExists) {
			return uuid.Nil, uuid.Nil, errs.User("BUCKET_NAME_ALREADY_IN_USE", "A bucket with this name already exists.")
		}
		return uuid.Nil, uuid.Nil, err
	}

	rootID, err := uuid.NewV4()
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	root := &model.Directory{
		ID:                rootID,
		BucketID:          bucketID,
		Name:              name + " Root",
		MetaData:          metaData,
		EncryptedMetaData: "{}",
	}
	if err := s.directories.Create(ctx, root); err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return bucketID, rootID, nil
}

// ListAuthorized filters all buckets down to those the user appears in, and
// attaches each bucket's root directory id.
func (s *BucketServiceImpl) ListAuthorized(ctx context.Context, userID uuid.UUID) ([]BucketWithRoot, error) {
	all, err := s.buckets.List(ctx)
	if err != nil {
		return nil, err
	}
	var mine []model.Bucket
	var ids []uuid.UUID
	for _, b := range all {
		if findAuthorization(&b, userID) != nil {
			mine = append(mine, b)
			ids = append(ids, b.ID)
		}
	}
	if len(mine) == 0 {
		return nil, nil
	}

	roots, err := s.directories.ListRootsByBucketIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	rootByBucket := make(map[uuid.UUID]uuid.UUID, len(roots))
	for _, d := range roots {
		rootByBucket[d.BucketID] = d.ID
	}

	out := make([]BucketWithRoot, 0, len(mine))
	for _, b := range mine {
		out = append(out, BucketWithRoot{Bucket: b, RootDirectoryID: rootByBucket[b.ID]})
	}
	return out, nil
}

// Rename sets a new bucket name.
func (s *BucketServiceImpl) Rename(ctx context.Context, bucketID uuid.UUID, newName string) error {
	if err := s.buckets.Rename(ctx, bucketID, newName); err != nil {
		if errors.Is(err, errs.ErrAlreadyExists) {
			return errs.User("BUCKET_NAME_ALREADY_IN_USE", "A bucket with this name already exists.")
		}
		return err
	}
	return nil
}

// Destroy requires the bucket name re-entered exactly. The bucket and root
// directory records go synchronously so the bucket disappears at once; the
// subtree is swept in the background.
func (s *BucketServiceImpl) Destroy(ctx context.Context, bucket *model.Bucket, confirmedName string) error {
	if bucket.Name != confirmedName {
		return errs.User("BUCKET_NAME_MISMATCH", "The provided bucket name does not match. Destruction requires the exact name.")
	}

	root, err := s.directories.GetRootByBucket(ctx, bucket.ID)
	if err != nil {
		return err
	}
	if err := s.directories.Delete(ctx, bucket.ID, root.ID); err != nil {
		return err
	}
	if err := s.buckets.Delete(ctx, bucket.ID); err != nil {
		return err
	}

	bucketID, rootID := bucket.ID, root.ID
	s.runner.Go(fmt.Sprintf("bucket-destroy-sweep %s", bucketID), func(ctx context.Context) error {
		return s.cascade.sweepChildren(ctx, bucketID, rootID)
	})
	return nil
}

// SetMetaData replaces the bucket's opaque metadata.
func (s *BucketServiceImpl) SetMetaData(ctx context.Context, bucketID uuid.UUID, metaData []byte) error {
	return s.buckets.SetMetaData(ctx, bucketID, metaData)
}

// SetAuthorization merges permission updates onto the target's entry. A user
// not yet on the bucket starts with everything forbidden.
func (s *BucketServiceImpl) SetAuthorization(ctx context.Context, grantor *model.User, bucket *model.Bucket, targetUserID uuid.UUID, updates map[string]bool) error {
	if _, err := s.users.GetByID(ctx, targetUserID); err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return errs.User("USER_NOT_FOUND", "No user matches the provided identifier.")
		}
		return err
	}

	entry := findAuthorization(bucket, targetUserID)
	if entry == nil {
		entry = &model.BucketAuthorization{
			UserID:      targetUserID,
			Notes:       fmt.Sprintf("Authorized by @%s", grantor.UserName),
			Permissions: model.AllBucketPermissions(false),
		}
	}
	for name := range updates {
		if _, known := entry.Permissions[name]; !known {
			return errs.Validation("Unknown bucket permission.", map[string]string{"permission": name})
		}
	}
	for name, allowed := range updates {
		entry.Permissions[name] = allowed
	}
	return s.buckets.UpsertAuthorization(ctx, bucket.ID, *entry)
}
