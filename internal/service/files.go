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

// FileService manages file records. Content goes through BlobService.
type FileService interface {
	// Create inserts a file under a parent directory.
	Create(ctx context.Context, bucketID, parentDirectoryID uuid.UUID, name string, metaData []byte, encryptedMetaData string) (*model.File, error)
	// Get loads a file.
	Get(ctx context.Context, bucketID, fileID uuid.UUID) (*model.File, error)
	// Rename sets the name; renaming to the current name is a no-op.
	Rename(ctx context.Context, bucketID, fileID uuid.UUID, name string) error
	// Move reparents the file, re-checking destination sibling names.
	Move(ctx context.Context, bucketID, fileID, newParentDirectoryID uuid.UUID, newName string) error
	// Delete removes the file record and all its blobs.
	Delete(ctx context.Context, bucketID, fileID uuid.UUID) error
	// SetMetaData replaces the opaque metadata.
	SetMetaData(ctx context.Context, bucketID, fileID uuid.UUID, metaData []byte) error
	// SetEncryptedMetaData replaces the client-encrypted metadata.
	SetEncryptedMetaData(ctx context.Context, bucketID, fileID uuid.UUID, encryptedMetaData string) error
}

type FileServiceImpl struct {
	files       repository.FileRepository
	directories repository.DirectoryRepository
	blobs       BlobService
}

// NewFileService constructs FileService with required dependencies.
func NewFileService(files repository.FileRepository, directories repository.DirectoryRepository, blobs BlobService) *FileServiceImpl {
	return &FileServiceImpl{files: files, directories: directories, blobs: blobs}
}

// Create inserts a file. Sibling names are unique across files.
func (s *FileServiceImpl) Create(ctx context.Context, bucketID, parentDirectoryID uuid.UUID, name string, metaData []byte, encryptedMetaData string) (*model.File, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	f := &model.File{
		ID:                id,
		BucketID:          bucketID,
		ParentDirectoryID: parentDirectoryID,
		Name:              name,
		MetaData:          metaData,
		EncryptedMetaData: encryptedMetaData,
	}
	if err := s.files.Create(ctx, f); err != nil {
		if errors.Is(err, errs.ErrAlreadyExists) {
			return nil, errs.User("FILE_NAME_ALREADY_IN_USE",
				fmt.Sprintf("A file with the provided name %q already exists in the parent directory.", name))
		}
		return nil, err
	}
	return f, nil
}

// Get loads a file.
func (s *FileServiceImpl) Get(ctx context.Context, bucketID, fileID uuid.UUID) (*model.File, error) {
	f, err := s.files.GetByID(ctx, bucketID, fileID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, errs.User("FILE_NOT_IN_BUCKET", "The file does not belong to the given bucket.")
		}
		return nil, err
	}
	return f, nil
}

// Rename sets the name. Renaming to the current name returns early without a
// write.
func (s *FileServiceImpl) Rename(ctx context.Context, bucketID, fileID uuid.UUID, name string) error {
	f, err := s.Get(ctx, bucketID, fileID)
	if err != nil {
		return err
	}
	if f.Name == name {
		return nil
	}
	if err := s.files.Rename(ctx, bucketID, fileID, name); err != nil {
		if errors.Is(err, errs.ErrAlreadyExists) {
			return errs.User("FILE_NAME_ALREADY_IN_USE",
				fmt.Sprintf("A file with the provided name %q already exists in the parent directory.", name))
		}
		return err
	}
	return nil
}

// Move reparents the file after checking the destination directory exists
// and the name is free there.
func (s *FileServiceImpl) Move(ctx context.Context, bucketID, fileID, newParentDirectoryID uuid.UUID, newName string) error {
	if _, err := s.directories.GetByID(ctx, bucketID, newParentDirectoryID); err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return errs.User("DIRECTORY_NOT_IN_BUCKET", "The directory does not belong to the given bucket.")
		}
		return err
	}
	if existing, err := s.files.GetByNameAndParent(ctx, bucketID, newParentDirectoryID, newName); err == nil {
		if existing.ID != fileID {
			return errs.User("FILE_NAME_ALREADY_IN_USE",
				fmt.Sprintf("A file with the provided name %q already exists in the new parent directory.", newName))
		}
	} else if !errors.Is(err, errs.ErrNotFound) {
		return err
	}
	return s.files.Move(ctx, bucketID, fileID, newParentDirectoryID, newName)
}

// Delete removes blobs (bytes then records) and the file record.
func (s *FileServiceImpl) Delete(ctx context.Context, bucketID, fileID uuid.UUID) error {
	if err := s.blobs.RemoveAllBlobsOfFile(ctx, bucketID, fileID); err != nil {
		return err
	}
	return s.files.Delete(ctx, bucketID, fileID)
}

// SetMetaData replaces the opaque metadata.
func (s *FileServiceImpl) SetMetaData(ctx context.Context, bucketID, fileID uuid.UUID, metaData []byte) error {
	return s.files.SetMetaData(ctx, bucketID, fileID, metaData)
}

// SetEncryptedMetaData replaces the client-encrypted metadata.
func (s *FileServiceImpl) SetEncryptedMetaData(ctx context.Context, bucketID, fileID uuid.UUID, encryptedMetaData string) error {
	return s.files.SetEncryptedMetaData(ctx, bucketID, fileID, encryptedMetaData)
}
