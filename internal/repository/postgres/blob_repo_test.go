package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/avolkov/cryptbucket/internal/errs"
	"github.com/avolkov/cryptbucket/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"
)

func TestBlobRepo_Create(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewBlobRepo(db)
	ctx := context.Background()
	b := &model.Blob{
		ID:                      uuid.Must(uuid.NewV4()),
		BucketID:                uuid.Must(uuid.NewV4()),
		FileID:                  uuid.Must(uuid.NewV4()),
		CryptoMetaHeaderContent: "NK001|iv|salt",
	}

	mock.ExpectExec(`INSERT INTO blobs \(id, bucket_id, file_id, crypto_meta_header, status, started_at\)`).
		WithArgs(b.ID, b.BucketID, b.FileID, b.CryptoMetaHeaderContent, model.BlobStatusStarted).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, r.Create(ctx, b))
}

func TestBlobRepo_GetInProgress(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewBlobRepo(db)
	ctx := context.Background()
	bucketID := uuid.Must(uuid.NewV4())
	fileID := uuid.Must(uuid.NewV4())
	blobID := uuid.Must(uuid.NewV4())
	now := time.Now()

	mock.ExpectQuery(`SELECT id, bucket_id, file_id, crypto_meta_header, status, started_at, finished_at, created_at, updated_at FROM blobs WHERE bucket_id=\$1 AND file_id=\$2 AND id=\$3 AND status=\$4`).
		WithArgs(bucketID, fileID, blobID, model.BlobStatusStarted).
		WillReturnRows(pgxmock.NewRows([]string{"id", "bucket_id", "file_id", "crypto_meta_header", "status", "started_at", "finished_at", "created_at", "updated_at"}).
			AddRow(blobID, bucketID, fileID, "NK001|iv|salt", model.BlobStatusStarted, now, (*time.Time)(nil), now, now))
	b, err := r.GetInProgress(ctx, bucketID, fileID, blobID)
	require.NoError(t, err)
	require.Equal(t, model.BlobStatusStarted, b.Status)
	require.Nil(t, b.FinishedAt)

	// finished or unknown blobs do not match
	mock.ExpectQuery(`SELECT id, bucket_id, file_id, crypto_meta_header, status, started_at, finished_at, created_at, updated_at FROM blobs WHERE bucket_id=\$1 AND file_id=\$2 AND id=\$3 AND status=\$4`).
		WithArgs(bucketID, fileID, blobID, model.BlobStatusStarted).
		WillReturnError(pgx.ErrNoRows)
	_, err = r.GetInProgress(ctx, bucketID, fileID, blobID)
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestBlobRepo_MarkFinished(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewBlobRepo(db)
	ctx := context.Background()
	bucketID := uuid.Must(uuid.NewV4())
	fileID := uuid.Must(uuid.NewV4())
	blobID := uuid.Must(uuid.NewV4())

	mock.ExpectExec(`UPDATE blobs SET status=\$4, finished_at=now\(\), updated_at=now\(\)`).
		WithArgs(bucketID, fileID, blobID, model.BlobStatusFinished, model.BlobStatusStarted).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, r.MarkFinished(ctx, bucketID, fileID, blobID))

	// finishing a blob that is not in the started state fails
	mock.ExpectExec(`UPDATE blobs SET status=\$4, finished_at=now\(\), updated_at=now\(\)`).
		WithArgs(bucketID, fileID, blobID, model.BlobStatusFinished, model.BlobStatusStarted).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	err := r.MarkFinished(ctx, bucketID, fileID, blobID)
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestBlobRepo_FindLatestFinished(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewBlobRepo(db)
	ctx := context.Background()
	bucketID := uuid.Must(uuid.NewV4())
	fileID := uuid.Must(uuid.NewV4())
	blobID := uuid.Must(uuid.NewV4())
	now := time.Now()
	finished := now.Add(-time.Minute)

	mock.ExpectQuery(`ORDER BY finished_at DESC LIMIT 1`).
		WithArgs(bucketID, fileID, model.BlobStatusFinished).
		WillReturnRows(pgxmock.NewRows([]string{"id", "bucket_id", "file_id", "crypto_meta_header", "status", "started_at", "finished_at", "created_at", "updated_at"}).
			AddRow(blobID, bucketID, fileID, "NK001|iv|salt", model.BlobStatusFinished, now, &finished, now, now))
	b, err := r.FindLatestFinished(ctx, bucketID, fileID)
	require.NoError(t, err)
	require.Equal(t, blobID, b.ID)
	require.NotNil(t, b.FinishedAt)
}

func TestBlobRepo_DeleteByFileExcluding(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewBlobRepo(db)
	ctx := context.Background()
	bucketID := uuid.Must(uuid.NewV4())
	fileID := uuid.Must(uuid.NewV4())
	keep := uuid.Must(uuid.NewV4())

	mock.ExpectExec(`DELETE FROM blobs WHERE bucket_id=\$1 AND file_id=\$2 AND id<>\$3`).
		WithArgs(bucketID, fileID, keep).
		WillReturnResult(pgxmock.NewResult("DELETE", 2))
	require.NoError(t, r.DeleteByFileExcluding(ctx, bucketID, fileID, keep))
}
