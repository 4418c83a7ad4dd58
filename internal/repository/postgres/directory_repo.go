package postgres

import (
	"context"
	"errors"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/avolkov/cryptbucket/internal/errs"
	"github.com/avolkov/cryptbucket/internal/model"
)

// DirectoryRepo implements DirectoryRepository using PostgreSQL.
type DirectoryRepo struct{ db *DB }

// NewDirectoryRepo constructs a directory repository.
func NewDirectoryRepo(db *DB) *DirectoryRepo { return &DirectoryRepo{db: db} }

const directoryColumns = `id, bucket_id, parent_directory_id, name, meta_data, encrypted_meta_data, created_at, updated_at`

func scanDirectory(row pgx.Row) (*model.Directory, error) {
	var d model.Directory
	err := row.Scan(&d.ID, &d.BucketID, &d.ParentDirectoryID, &d.Name, &d.MetaData,
		&d.EncryptedMetaData, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

func collectDirectories(rows pgx.Rows) ([]model.Directory, error) {
	defer rows.Close()
	var out []model.Directory
	for rows.Next() {
		d, err := scanDirectory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

// Create inserts a directory row.
func (r *DirectoryRepo) Create(ctx context.Context, d *model.Directory) error {
	const q = `
INSERT INTO directories (id, bucket_id, parent_directory_id, name, meta_data, encrypted_meta_data)
VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.db.Pool.Exec(ctx, q, d.ID, d.BucketID, d.ParentDirectoryID, d.Name, d.MetaData, d.EncryptedMetaData)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

// GetByID selects a directory scoped to a bucket.
func (r *DirectoryRepo) GetByID(ctx context.Context, bucketID, directoryID uuid.UUID) (*model.Directory, error) {
	const q = `SELECT ` + directoryColumns + ` FROM directories WHERE bucket_id=$1 AND id=$2`
	return scanDirectory(r.db.Pool.QueryRow(ctx, q, bucketID, directoryID))
}

// GetByNameAndParent selects a directory by name within a parent.
func (r *DirectoryRepo) GetByNameAndParent(ctx context.Context, bucketID, parentDirectoryID uuid.UUID, name string) (*model.Directory, error) {
	const q = `SELECT ` + directoryColumns + ` FROM directories WHERE bucket_id=$1 AND parent_directory_id=$2 AND name=$3`
	return scanDirectory(r.db.Pool.QueryRow(ctx, q, bucketID, parentDirectoryID, name))
}

// GetRootByBucket selects the bucket's root directory (nil parent).
func (r *DirectoryRepo) GetRootByBucket(ctx context.Context, bucketID uuid.UUID) (*model.Directory, error) {
	const q = `SELECT ` + directoryColumns + ` FROM directories WHERE bucket_id=$1 AND parent_directory_id IS NULL`
	return scanDirectory(r.db.Pool.QueryRow(ctx, q, bucketID))
}

// ListChildren returns the direct child directories of a parent.
func (r *DirectoryRepo) ListChildren(ctx context.Context, bucketID, parentDirectoryID uuid.UUID) ([]model.Directory, error) {
	const q = `SELECT ` + directoryColumns + ` FROM directories WHERE bucket_id=$1 AND parent_directory_id=$2 ORDER BY name ASC`
	rows, err := r.db.Pool.Query(ctx, q, bucketID, parentDirectoryID)
	if err != nil {
		return nil, err
	}
	return collectDirectories(rows)
}

// ListRootsByBucketIDs batch-loads the root directory of each bucket.
func (r *DirectoryRepo) ListRootsByBucketIDs(ctx context.Context, bucketIDs []uuid.UUID) ([]model.Directory, error) {
	const q = `SELECT ` + directoryColumns + ` FROM directories WHERE bucket_id = ANY($1) AND parent_directory_id IS NULL`
	rows, err := r.db.Pool.Query(ctx, q, bucketIDs)
	if err != nil {
		return nil, err
	}
	return collectDirectories(rows)
}

// Rename sets the directory name.
func (r *DirectoryRepo) Rename(ctx context.Context, bucketID, directoryID uuid.UUID, name string) error {
	const q = `UPDATE directories SET name=$3, updated_at=now() WHERE bucket_id=$1 AND id=$2`
	_, err := r.db.Pool.Exec(ctx, q, bucketID, directoryID, name)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

// Move reparents and renames the directory in one update.
func (r *DirectoryRepo) Move(ctx context.Context, bucketID, directoryID, newParentDirectoryID uuid.UUID, newName string) error {
	const q = `UPDATE directories SET parent_directory_id=$3, name=$4, updated_at=now() WHERE bucket_id=$1 AND id=$2`
	_, err := r.db.Pool.Exec(ctx, q, bucketID, directoryID, newParentDirectoryID, newName)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

// SetMetaData replaces the opaque metadata document.
func (r *DirectoryRepo) SetMetaData(ctx context.Context, bucketID, directoryID uuid.UUID, metaData []byte) error {
	const q = `UPDATE directories SET meta_data=$3, updated_at=now() WHERE bucket_id=$1 AND id=$2`
	_, err := r.db.Pool.Exec(ctx, q, bucketID, directoryID, metaData)
	return err
}

// SetEncryptedMetaData replaces the client-encrypted metadata string.
func (r *DirectoryRepo) SetEncryptedMetaData(ctx context.Context, bucketID, directoryID uuid.UUID, encryptedMetaData string) error {
	const q = `UPDATE directories SET encrypted_meta_data=$3, updated_at=now() WHERE bucket_id=$1 AND id=$2`
	_, err := r.db.Pool.Exec(ctx, q, bucketID, directoryID, encryptedMetaData)
	return err
}

// Delete removes a single directory row.
func (r *DirectoryRepo) Delete(ctx context.Context, bucketID, directoryID uuid.UUID) error {
	const q = `DELETE FROM directories WHERE bucket_id=$1 AND id=$2`
	_, err := r.db.Pool.Exec(ctx, q, bucketID, directoryID)
	return err
}
