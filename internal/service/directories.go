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

// DirectoryContents is a directory with its direct children.
type DirectoryContents struct {
	Directory model.Directory
	Children  []model.Directory
	Files     []model.File
}

// DirectoryService manages the directory tree inside a bucket.
type DirectoryService interface {
	// Create inserts a directory under a parent.
	Create(ctx context.Context, bucketID, parentDirectoryID uuid.UUID, name string, metaData []byte, encryptedMetaData string) (*model.Directory, error)
	// Get loads a directory with its child directories and files.
	Get(ctx context.Context, bucketID, directoryID uuid.UUID) (*DirectoryContents, error)
	// Rename sets the name; renaming to the current name is a no-op.
	Rename(ctx context.Context, bucketID, directoryID uuid.UUID, name string) error
	// Move reparents the directory, rejecting cycles.
	Move(ctx context.Context, bucketID, directoryID, newParentDirectoryID uuid.UUID, newName string) error
	// Delete removes the directory record now and sweeps descendants in the
	// background.
	Delete(ctx context.Context, bucketID, directoryID uuid.UUID) error
	// SetMetaData replaces the opaque metadata.
	SetMetaData(ctx context.Context, bucketID, directoryID uuid.UUID, metaData []byte) error
	// SetEncryptedMetaData replaces the client-encrypted metadata.
	SetEncryptedMetaData(ctx context.Context, bucketID, directoryID uuid.UUID, encryptedMetaData string) error
}

type DirectoryServiceImpl struct {
	directories repository.DirectoryRepository
	files       repository.FileRepository
	cascade     cascader
	runner      *background.Runner
}

// NewDirectoryService constructs DirectoryService with required dependencies.
func NewDirectoryService(directories repository.DirectoryRepository, files repository.FileRepository, blobs BlobService, runner *background.Runner) *DirectoryServiceImpl {
	return &DirectoryServiceImpl{
		directories: directories,
		files:       files,
		cascade:     cascader{directories: directories, files: files, blobs: blobs},
		runner:      runner,
	}
}

// Create inserts a directory. Sibling names are unique.
func (s *DirectoryServiceImpl) Create(ctx context.Context, bucketID, parentDirectoryID uuid.UUID, name string, metaData []byte, encryptedMetaData string) (*model.Directory, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	d := &model.Directory{
		ID:                id,
		BucketID:          bucketID,
		ParentDirectoryID: &parentDirectoryID,
		Name:              name,
		MetaData:          metaData,
		EncryptedMetaData: encryptedMetaData,
	}
	if err := s.directories.Create(ctx, d); err != nil {
		if errors.Is(err, errs.ErrAlreadyExists) {
			return nil, errs.User("DIRECTORY_NAME_ALREADY_IN_USE",
				fmt.Sprintf("A directory with the provided name %q already exists in the parent directory.", name))
		}
		return nil, err
	}
	return d, nil
}

// Get loads the directory plus its direct child directories and files.
func (s *DirectoryServiceImpl) Get(ctx context.Context, bucketID, directoryID uuid.UUID) (*DirectoryContents, error) {
	d, err := s.directories.GetByID(ctx, bucketID, directoryID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, errs.User("DIRECTORY_NOT_IN_BUCKET", "The directory does not belong to the given bucket.")
		}
		return nil, err
	}
	children, err := s.directories.ListChildren(ctx, bucketID, directoryID)
	if err != nil {
		return nil, err
	}
	files, err := s.files.ListByDirectory(ctx, bucketID, directoryID)
	if err != nil {
		return nil, err
	}
	return &DirectoryContents{Directory: *d, Children: children, Files: files}, nil
}

// Rename sets the name. Renaming to the current name returns early without a
// write.
func (s *DirectoryServiceImpl) Rename(ctx context.Context, bucketID, directoryID uuid.UUID, name string) error {
	d, err := s.directories.GetByID(ctx, bucketID, directoryID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return errs.User("DIRECTORY_NOT_IN_BUCKET", "The directory does not belong to the given bucket.")
		}
		return err
	}
	if d.Name == name {
		return nil
	}
	if err := s.directories.Rename(ctx, bucketID, directoryID, name); err != nil {
		if errors.Is(err, errs.ErrAlreadyExists) {
			return errs.User("DIRECTORY_NAME_ALREADY_IN_USE",
				fmt.Sprintf("A directory with the provided name %q already exists in the parent directory.", name))
		}
		return err
	}
	return nil
}

// Move reparents the directory after checking the destination's sibling
// names and that the new parent is not the directory itself or one of its
// descendants.
func (s *DirectoryServiceImpl) Move(ctx context.Context, bucketID, directoryID, newParentDirectoryID uuid.UUID, newName string) error {
	if _, err := s.files.GetByNameAndParent(ctx, bucketID, newParentDirectoryID, newName); err == nil {
		return errs.User("FILE_NAME_ALREADY_IN_USE",
			fmt.Sprintf("A file with the provided name %q already exists in the new parent directory.", newName))
	} else if !errors.Is(err, errs.ErrNotFound) {
		return err
	}
	if existing, err := s.directories.GetByNameAndParent(ctx, bucketID, newParentDirectoryID, newName); err == nil {
		if existing.ID != directoryID {
			return errs.User("DIRECTORY_NAME_ALREADY_IN_USE",
				fmt.Sprintf("A directory with the provided name %q already exists in the new parent directory.", newName))
		}
	} else if !errors.Is(err, errs.ErrNotFound) {
		return err
	}

	if err := s.ensureNoCycle(ctx, bucketID, directoryID, newParentDirectoryID); err != nil {
		return err
	}
	return s.directories.Move(ctx, bucketID, directoryID, newParentDirectoryID, newName)
}

// ensureNoCycle walks up from the prospective parent. Hitting the moved
// directory anywhere on that chain means the move would put a directory
// inside itself.
func (s *DirectoryServiceImpl) ensureNoCycle(ctx context.Context, bucketID, directoryID, newParentDirectoryID uuid.UUID) error {
	current := newParentDirectoryID
	for {
		if current == directoryID {
			return errs.User("INVALID_MOVE_OPERATION", "Moving a directory inside itself is not possible.")
		}
		d, err := s.directories.GetByID(ctx, bucketID, current)
		if err != nil {
			if errors.Is(err, errs.ErrNotFound) {
				return errs.User("DIRECTORY_NOT_IN_BUCKET", "The directory does not belong to the given bucket.")
			}
			return err
		}
		if d.ParentDirectoryID == nil {
			return nil
		}
		current = *d.ParentDirectoryID
	}
}

// Delete removes the record synchronously so the directory disappears at
// once, then sweeps its subtree in the background.
func (s *DirectoryServiceImpl) Delete(ctx context.Context, bucketID, directoryID uuid.UUID) error {
	if err := s.directories.Delete(ctx, bucketID, directoryID); err != nil {
		return err
	}
	s.runner.Go(fmt.Sprintf("directory-delete-sweep %s", directoryID), func(ctx context.Context) error {
		return s.cascade.sweepChildren(ctx, bucketID, directoryID)
	})
	return nil
}

// SetMetaData replaces the opaque metadata.
func (s *DirectoryServiceImpl) SetMetaData(ctx context.Context, bucketID, directoryID uuid.UUID, metaData []byte) error {
	return s.directories.SetMetaData(ctx, bucketID, directoryID, metaData)
}

// SetEncryptedMetaData replaces the client-encrypted metadata.
func (s *DirectoryServiceImpl) SetEncryptedMetaData(ctx context.Context, bucketID, directoryID uuid.UUID, encryptedMetaData string) error {
	return s.directories.SetEncryptedMetaData(ctx, bucketID, directoryID, encryptedMetaData)
}
