package postgres

import (
	"context"
	"errors"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/avolkov/cryptbucket/internal/errs"
	"github.com/avolkov/cryptbucket/internal/model"
)

// BucketRepo implements BucketRepository using PostgreSQL. Authorization
// entries live in a side table and are loaded with every bucket read.
type BucketRepo struct{ db *DB }

// NewBucketRepo constructs a bucket repository.
func NewBucketRepo(db *DB) *BucketRepo { return &BucketRepo{db: db} }

const bucketColumns = `id, name, crypt_spec, crypt_data, meta_data, created_at, updated_at`

func scanBucket(row pgx.Row) (*model.Bucket, error) {
	var b model.Bucket
	err := row.Scan(&b.ID, &b.Name, &b.CryptSpec, &b.CryptData, &b.MetaData, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

// Create inserts a bucket row plus its initial authorization entries in one
// transaction.
func (r *BucketRepo) Create(ctx context.Context, b *model.Bucket) (err error) {
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if e := tx.Commit(ctx); e != nil {
			err = e
		}
	}()

	const ins = `
INSERT INTO buckets (id, name, crypt_spec, crypt_data, meta_data)
VALUES ($1, $2, $3, $4, $5)`
	if _, err = tx.Exec(ctx, ins, b.ID, b.Name, b.CryptSpec, b.CryptData, b.MetaData); err != nil {
		if isUniqueViolation(err) {
			err = errs.ErrAlreadyExists
		}
		return err
	}

	const insAuth = `
INSERT INTO bucket_authorizations (bucket_id, user_id, notes, permissions)
VALUES ($1, $2, $3, $4)`
	for _, a := range b.Authorizations {
		if _, err = tx.Exec(ctx, insAuth, b.ID, a.UserID, a.Notes, a.Permissions); err != nil {
			return err
		}
	}
	return nil
}

func (r *BucketRepo) loadAuthorizations(ctx context.Context, bucketIDs []uuid.UUID) (map[uuid.UUID][]model.BucketAuthorization, error) {
	const q = `
SELECT bucket_id, user_id, notes, permissions
FROM bucket_authorizations WHERE bucket_id = ANY($1) ORDER BY created_at ASC`
	rows, err := r.db.Pool.Query(ctx, q, bucketIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[uuid.UUID][]model.BucketAuthorization)
	for rows.Next() {
		var bucketID uuid.UUID
		var a model.BucketAuthorization
		if err := rows.Scan(&bucketID, &a.UserID, &a.Notes, &a.Permissions); err != nil {
			return nil, err
		}
		out[bucketID] = append(out[bucketID], a)
	}
	return out, rows.Err()
}

// GetByID selects a bucket with its authorizations.
func (r *BucketRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Bucket, error) {
	const q = `SELECT ` + bucketColumns + ` FROM buckets WHERE id=$1`
	b, err := scanBucket(r.db.Pool.QueryRow(ctx, q, id))
	if err != nil {
		return nil, err
	}
	auths, err := r.loadAuthorizations(ctx, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	b.Authorizations = auths[id]
	return b, nil
}

// GetByName selects a bucket by its globally unique name.
func (r *BucketRepo) GetByName(ctx context.Context, name string) (*model.Bucket, error) {
	const q = `SELECT ` + bucketColumns + ` FROM buckets WHERE name=$1`
	b, err := scanBucket(r.db.Pool.QueryRow(ctx, q, name))
	if err != nil {
		return nil, err
	}
	auths, err := r.loadAuthorizations(ctx, []uuid.UUID{b.ID})
	if err != nil {
		return nil, err
	}
	b.Authorizations = auths[b.ID]
	return b, nil
}

// List returns all buckets with their authorizations.
func (r *BucketRepo) List(ctx context.Context) ([]model.Bucket, error) {
	const q = `SELECT ` + bucketColumns + ` FROM buckets ORDER BY name ASC`
	rows, err := r.db.Pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Bucket
	var ids []uuid.UUID
	for rows.Next() {
		b, err := scanBucket(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
		ids = append(ids, b.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return out, nil
	}
	auths, err := r.loadAuthorizations(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Authorizations = auths[out[i].ID]
	}
	return out, nil
}

// Rename sets the bucket name.
func (r *BucketRepo) Rename(ctx context.Context, id uuid.UUID, name string) error {
	const q = `UPDATE buckets SET name=$2, updated_at=now() WHERE id=$1`
	_, err := r.db.Pool.Exec(ctx, q, id, name)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

// SetMetaData replaces the opaque metadata document.
func (r *BucketRepo) SetMetaData(ctx context.Context, id uuid.UUID, metaData []byte) error {
	const q = `UPDATE buckets SET meta_data=$2, updated_at=now() WHERE id=$1`
	_, err := r.db.Pool.Exec(ctx, q, id, metaData)
	return err
}

// Delete removes the bucket row; authorization entries cascade via FK.
func (r *BucketRepo) Delete(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM buckets WHERE id=$1`
	_, err := r.db.Pool.Exec(ctx, q, id)
	return err
}

// UpsertAuthorization inserts or replaces one user's authorization entry.
func (r *BucketRepo) UpsertAuthorization(ctx context.Context, bucketID uuid.UUID, a model.BucketAuthorization) error {
	const q = `
INSERT INTO bucket_authorizations (bucket_id, user_id, notes, permissions)
VALUES ($1, $2, $3, $4)
ON CONFLICT (bucket_id, user_id)
DO UPDATE SET notes=EXCLUDED.notes, permissions=EXCLUDED.permissions, updated_at=now()`
	_, err := r.db.Pool.Exec(ctx, q, bucketID, a.UserID, a.Notes, a.Permissions)
	return err
}
