package postgres

import (
	"context"
	"errors"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/avolkov/cryptbucket/internal/errs"
	"github.com/avolkov/cryptbucket/internal/model"
)

// BlobRepo implements BlobRepository using PostgreSQL.
type BlobRepo struct{ db *DB }

// NewBlobRepo constructs a blob repository.
func NewBlobRepo(db *DB) *BlobRepo { return &BlobRepo{db: db} }

const blobColumns = `id, bucket_id, file_id, crypto_meta_header, status, started_at, finished_at, created_at, updated_at`

func scanBlob(row pgx.Row) (*model.Blob, error) {
	var b model.Blob
	err := row.Scan(&b.ID, &b.BucketID, &b.FileID, &b.CryptoMetaHeaderContent, &b.Status,
		&b.StartedAt, &b.FinishedAt, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

func collectBlobs(rows pgx.Rows) ([]model.Blob, error) {
	defer rows.Close()
	var out []model.Blob
	for rows.Next() {
		b, err := scanBlob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

// Create inserts a blob in the started state.
func (r *BlobRepo) Create(ctx context.Context, b *model.Blob) error {
	const q = `
INSERT INTO blobs (id, bucket_id, file_id, crypto_meta_header, status, started_at)
VALUES ($1, $2, $3, $4, $5, now())`
	_, err := r.db.Pool.Exec(ctx, q, b.ID, b.BucketID, b.FileID, b.CryptoMetaHeaderContent, model.BlobStatusStarted)
	return err
}

// GetInProgress selects a started blob matching the (bucket, file, blob) triple.
func (r *BlobRepo) GetInProgress(ctx context.Context, bucketID, fileID, blobID uuid.UUID) (*model.Blob, error) {
	const q = `SELECT ` + blobColumns + ` FROM blobs WHERE bucket_id=$1 AND file_id=$2 AND id=$3 AND status=$4`
	return scanBlob(r.db.Pool.QueryRow(ctx, q, bucketID, fileID, blobID, model.BlobStatusStarted))
}

// MarkFinished transitions a started blob to finished and records the time.
func (r *BlobRepo) MarkFinished(ctx context.Context, bucketID, fileID, blobID uuid.UUID) error {
	const q = `
UPDATE blobs SET status=$4, finished_at=now(), updated_at=now()
WHERE bucket_id=$1 AND file_id=$2 AND id=$3 AND status=$5`
	tag, err := r.db.Pool.Exec(ctx, q, bucketID, fileID, blobID, model.BlobStatusFinished, model.BlobStatusStarted)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// MarkErroneous transitions a started blob to error.
func (r *BlobRepo) MarkErroneous(ctx context.Context, bucketID, fileID, blobID uuid.UUID) error {
	const q = `
UPDATE blobs SET status=$4, updated_at=now()
WHERE bucket_id=$1 AND file_id=$2 AND id=$3 AND status=$5`
	_, err := r.db.Pool.Exec(ctx, q, bucketID, fileID, blobID, model.BlobStatusError, model.BlobStatusStarted)
	return err
}

// FindLatestFinished returns the newest finished blob of the file.
func (r *BlobRepo) FindLatestFinished(ctx context.Context, bucketID, fileID uuid.UUID) (*model.Blob, error) {
	const q = `
SELECT ` + blobColumns + ` FROM blobs
WHERE bucket_id=$1 AND file_id=$2 AND status=$3
ORDER BY finished_at DESC LIMIT 1`
	return scanBlob(r.db.Pool.QueryRow(ctx, q, bucketID, fileID, model.BlobStatusFinished))
}

// ListByFile returns every blob record of a file.
func (r *BlobRepo) ListByFile(ctx context.Context, bucketID, fileID uuid.UUID) ([]model.Blob, error) {
	const q = `SELECT ` + blobColumns + ` FROM blobs WHERE bucket_id=$1 AND file_id=$2`
	rows, err := r.db.Pool.Query(ctx, q, bucketID, fileID)
	if err != nil {
		return nil, err
	}
	return collectBlobs(rows)
}

// ListByFileExcluding returns every blob record of a file except one.
func (r *BlobRepo) ListByFileExcluding(ctx context.Context, bucketID, fileID, excludeBlobID uuid.UUID) ([]model.Blob, error) {
	const q = `SELECT ` + blobColumns + ` FROM blobs WHERE bucket_id=$1 AND file_id=$2 AND id<>$3`
	rows, err := r.db.Pool.Query(ctx, q, bucketID, fileID, excludeBlobID)
	if err != nil {
		return nil, err
	}
	return collectBlobs(rows)
}

// DeleteByFile removes all blob rows of a file.
func (r *BlobRepo) DeleteByFile(ctx context.Context, bucketID, fileID uuid.UUID) error {
	const q = `DELETE FROM blobs WHERE bucket_id=$1 AND file_id=$2`
	_, err := r.db.Pool.Exec(ctx, q, bucketID, fileID)
	return err
}

// DeleteByFileExcluding removes all blob rows of a file except the kept one.
func (r *BlobRepo) DeleteByFileExcluding(ctx context.Context, bucketID, fileID, keepBlobID uuid.UUID) error {
	const q = `DELETE FROM blobs WHERE bucket_id=$1 AND file_id=$2 AND id<>$3`
	_, err := r.db.Pool.Exec(ctx, q, bucketID, fileID, keepBlobID)
	return err
}
