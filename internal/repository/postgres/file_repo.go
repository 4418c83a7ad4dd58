package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/avolkov/cryptbucket/internal/errs"
	"github.com/avolkov/cryptbucket/internal/model"
)

// FileRepo implements FileRepository using PostgreSQL.
type FileRepo struct{ db *DB }

// NewFileRepo constructs a file repository.
func NewFileRepo(db *DB) *FileRepo { return &FileRepo{db: db} }

const fileColumns = `id, bucket_id, parent_directory_id, name, meta_data, encrypted_meta_data, size_after_encryption_bytes, content_updated_at, created_at, updated_at`

func scanFile(row pgx.Row) (*model.File, error) {
	var f model.File
	err := row.Scan(&f.ID, &f.BucketID, &f.ParentDirectoryID, &f.Name, &f.MetaData,
		&f.EncryptedMetaData, &f.SizeAfterEncryptionBytes, &f.ContentUpdatedAt, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &f, nil
}

// Create inserts a file row.
func (r *FileRepo) Create(ctx context.Context, f *model.File) error {
	const q = `
INSERT INTO files (id, bucket_id, parent_directory_id, name, meta_data, encrypted_meta_data, size_after_encryption_bytes)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.db.Pool.Exec(ctx, q, f.ID, f.BucketID, f.ParentDirectoryID, f.Name,
		f.MetaData, f.EncryptedMetaData, f.SizeAfterEncryptionBytes)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

// GetByID selects a file scoped to a bucket.
func (r *FileRepo) GetByID(ctx context.Context, bucketID, fileID uuid.UUID) (*model.File, error) {
	const q = `SELECT ` + fileColumns + ` FROM files WHERE bucket_id=$1 AND id=$2`
	return scanFile(r.db.Pool.QueryRow(ctx, q, bucketID, fileID))
}

// GetByNameAndParent selects a file by name within a parent directory.
func (r *FileRepo) GetByNameAndParent(ctx context.Context, bucketID, parentDirectoryID uuid.UUID, name string) (*model.File, error) {
	const q = `SELECT ` + fileColumns + ` FROM files WHERE bucket_id=$1 AND parent_directory_id=$2 AND name=$3`
	return scanFile(r.db.Pool.QueryRow(ctx, q, bucketID, parentDirectoryID, name))
}

// ListByDirectory returns files directly under a directory.
func (r *FileRepo) ListByDirectory(ctx context.Context, bucketID, parentDirectoryID uuid.UUID) ([]model.File, error) {
	const q = `SELECT ` + fileColumns + ` FROM files WHERE bucket_id=$1 AND parent_directory_id=$2 ORDER BY name ASC`
	rows, err := r.db.Pool.Query(ctx, q, bucketID, parentDirectoryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *f)
	}
	return out, rows.Err()
}

// Rename sets the file name.
func (r *FileRepo) Rename(ctx context.Context, bucketID, fileID uuid.UUID, name string) error {
	const q = `UPDATE files SET name=$3, updated_at=now() WHERE bucket_id=$1 AND id=$2`
	_, err := r.db.Pool.Exec(ctx, q, bucketID, fileID, name)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

// Move reparents and renames the file in one update.
func (r *FileRepo) Move(ctx context.Context, bucketID, fileID, newParentDirectoryID uuid.UUID, newName string) error {
	const q = `UPDATE files SET parent_directory_id=$3, name=$4, updated_at=now() WHERE bucket_id=$1 AND id=$2`
	_, err := r.db.Pool.Exec(ctx, q, bucketID, fileID, newParentDirectoryID, newName)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

// SetMetaData replaces the opaque metadata document.
func (r *FileRepo) SetMetaData(ctx context.Context, bucketID, fileID uuid.UUID, metaData []byte) error {
	const q = `UPDATE files SET meta_data=$3, updated_at=now() WHERE bucket_id=$1 AND id=$2`
	_, err := r.db.Pool.Exec(ctx, q, bucketID, fileID, metaData)
	return err
}

// SetEncryptedMetaData replaces the client-encrypted metadata string.
func (r *FileRepo) SetEncryptedMetaData(ctx context.Context, bucketID, fileID uuid.UUID, encryptedMetaData string) error {
	const q = `UPDATE files SET encrypted_meta_data=$3, updated_at=now() WHERE bucket_id=$1 AND id=$2`
	_, err := r.db.Pool.Exec(ctx, q, bucketID, fileID, encryptedMetaData)
	return err
}

// SetContentUpdatedAt records when the file's blob content last changed.
func (r *FileRepo) SetContentUpdatedAt(ctx context.Context, bucketID, fileID uuid.UUID, at time.Time) error {
	const q = `UPDATE files SET content_updated_at=$3, updated_at=now() WHERE bucket_id=$1 AND id=$2`
	_, err := r.db.Pool.Exec(ctx, q, bucketID, fileID, at)
	return err
}

// Delete removes a single file row.
func (r *FileRepo) Delete(ctx context.Context, bucketID, fileID uuid.UUID) error {
	const q = `DELETE FROM files WHERE bucket_id=$1 AND id=$2`
	_, err := r.db.Pool.Exec(ctx, q, bucketID, fileID)
	return err
}
