package web

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/avolkov/cryptbucket/internal/errs"
	"github.com/avolkov/cryptbucket/internal/model"
	"github.com/avolkov/cryptbucket/internal/service"
)

/************ auth ************/

type fakeAuthSvc struct {
	sessions map[string]*service.Authentication // by api key
	loginErr error
	session  *model.Session
	user     *model.User

	loggedOut  []string
	listResult []model.Session
}

var _ service.AuthService = (*fakeAuthSvc)(nil)

func (f *fakeAuthSvc) Login(_ context.Context, _, _, _ string) (*model.Session, *model.User, error) {
	if f.loginErr != nil {
		return nil, nil, f.loginErr
	}
	return f.session, f.user, nil
}

func (f *fakeAuthSvc) CreateSession(_ context.Context, _ uuid.UUID) (*model.Session, error) {
	return f.session, nil
}

func (f *fakeAuthSvc) Authenticate(_ context.Context, header string) (*service.Authentication, error) {
	if header == "" {
		return nil, errs.User("AUTHORIZATION_HEADER_MISSING", "The Authorization header is missing.")
	}
	const prefix = "Bearer "
	if len(header) <= len(prefix) {
		return nil, errs.User("AUTHORIZATION_HEADER_MALFORMATTED", "The Authorization header is malformatted.")
	}
	auth, ok := f.sessions[header[len(prefix):]]
	if !ok {
		return nil, errs.User("API_KEY_EXPIRED", "The API key has expired.")
	}
	return auth, nil
}

func (f *fakeAuthSvc) Logout(_ context.Context, apiKey, message string) error {
	f.loggedOut = append(f.loggedOut, apiKey+"|"+message)
	return nil
}

func (f *fakeAuthSvc) LogoutAll(_ context.Context, _ uuid.UUID, message string) error {
	f.loggedOut = append(f.loggedOut, "all|"+message)
	return nil
}

func (f *fakeAuthSvc) ListSessions(_ context.Context, _ uuid.UUID) ([]model.Session, error) {
	return f.listResult, nil
}

/************ access ************/

type fakeAccessSvc struct {
	denyGlobal bool
	denyBucket bool
	bucket     *model.Bucket
	directory  *model.Directory
	file       *model.File
}

var _ service.AccessService = (*fakeAccessSvc)(nil)

func (f *fakeAccessSvc) RequireGlobalPermission(_ *model.User, perms ...string) error {
	if f.denyGlobal {
		return errs.User("INSUFFICIENT_GLOBAL_PERMISSION", "You do not have the required permissions.")
	}
	return nil
}

func (f *fakeAccessSvc) RequireBucketAuthorization(_ context.Context, _, _ uuid.UUID, _ ...string) (*model.Bucket, error) {
	if f.denyBucket {
		return nil, errs.User("INSUFFICIENT_BUCKET_PERMISSION", "You do not have the required permissions.")
	}
	return f.bucket, nil
}

func (f *fakeAccessSvc) EnsureDirectoryBelongsToBucket(_ context.Context, _, _ uuid.UUID) (*model.Directory, error) {
	if f.directory == nil {
		return nil, errs.User("DIRECTORY_NOT_IN_BUCKET", "The directory does not belong to the given bucket.")
	}
	return f.directory, nil
}

func (f *fakeAccessSvc) EnsureFileBelongsToBucket(_ context.Context, _, _ uuid.UUID) (*model.File, error) {
	if f.file == nil {
		return nil, errs.User("FILE_NOT_IN_BUCKET", "The file does not belong to the given bucket.")
	}
	return f.file, nil
}

/************ users ************/

type fakeUserSvc struct {
	created []string
	users   []model.User
}

var _ service.UserService = (*fakeUserSvc)(nil)

func (f *fakeUserSvc) CreateUser(_ context.Context, displayName, userName, _ string, _ map[string]bool) (*model.User, error) {
	f.created = append(f.created, userName)
	return &model.User{ID: uuid.Must(uuid.NewV4()), DisplayName: displayName, UserName: userName}, nil
}

func (f *fakeUserSvc) List(context.Context) ([]model.User, error) { return f.users, nil }

func (f *fakeUserSvc) UpdateProfile(context.Context, uuid.UUID, string) error { return nil }

func (f *fakeUserSvc) UpdateOwnPassword(context.Context, uuid.UUID, string, string) error {
	return nil
}

func (f *fakeUserSvc) OverwritePassword(context.Context, uuid.UUID, string) error { return nil }

func (f *fakeUserSvc) SetGlobalPermissions(context.Context, uuid.UUID, map[string]bool) error {
	return nil
}

func (f *fakeUserSvc) SetBanningStatus(context.Context, uuid.UUID, bool) error { return nil }

func (f *fakeUserSvc) EnsureDefaultAdmin(context.Context) error { return nil }

/************ buckets ************/

type fakeBucketSvc struct {
	bucketID  uuid.UUID
	rootID    uuid.UUID
	list      []service.BucketWithRoot
	destroyed []string
}

var _ service.BucketService = (*fakeBucketSvc)(nil)

func (f *fakeBucketSvc) Create(_ context.Context, _ *model.User, _, _, _ string, _ []byte) (uuid.UUID, uuid.UUID, error) {
	return f.bucketID, f.rootID, nil
}

func (f *fakeBucketSvc) ListAuthorized(context.Context, uuid.UUID) ([]service.BucketWithRoot, error) {
	return f.list, nil
}

func (f *fakeBucketSvc) Rename(context.Context, uuid.UUID, string) error { return nil }

func (f *fakeBucketSvc) Destroy(_ context.Context, bucket *model.Bucket, confirmedName string) error {
	if bucket.Name != confirmedName {
		return errs.User("BUCKET_NAME_MISMATCH", "The provided name does not match the bucket's name.")
	}
	f.destroyed = append(f.destroyed, bucket.Name)
	return nil
}

func (f *fakeBucketSvc) SetMetaData(context.Context, uuid.UUID, []byte) error { return nil }

func (f *fakeBucketSvc) SetAuthorization(context.Context, *model.User, *model.Bucket, uuid.UUID, map[string]bool) error {
	return nil
}

/************ directories ************/

type fakeDirectorySvc struct {
	contents *service.DirectoryContents
}

var _ service.DirectoryService = (*fakeDirectorySvc)(nil)

func (f *fakeDirectorySvc) Create(_ context.Context, bucketID, parentID uuid.UUID, name string, _ []byte, _ string) (*model.Directory, error) {
	return &model.Directory{ID: uuid.Must(uuid.NewV4()), BucketID: bucketID, ParentDirectoryID: &parentID, Name: name}, nil
}

func (f *fakeDirectorySvc) Get(context.Context, uuid.UUID, uuid.UUID) (*service.DirectoryContents, error) {
	return f.contents, nil
}

func (f *fakeDirectorySvc) Rename(context.Context, uuid.UUID, uuid.UUID, string) error { return nil }

func (f *fakeDirectorySvc) Move(context.Context, uuid.UUID, uuid.UUID, uuid.UUID, string) error {
	return nil
}

func (f *fakeDirectorySvc) Delete(context.Context, uuid.UUID, uuid.UUID) error { return nil }

func (f *fakeDirectorySvc) SetMetaData(context.Context, uuid.UUID, uuid.UUID, []byte) error {
	return nil
}

func (f *fakeDirectorySvc) SetEncryptedMetaData(context.Context, uuid.UUID, uuid.UUID, string) error {
	return nil
}

/************ files ************/

type fakeFileSvc struct {
	file *model.File
}

var _ service.FileService = (*fakeFileSvc)(nil)

func (f *fakeFileSvc) Create(_ context.Context, bucketID, parentID uuid.UUID, name string, _ []byte, _ string) (*model.File, error) {
	return &model.File{ID: uuid.Must(uuid.NewV4()), BucketID: bucketID, ParentDirectoryID: parentID, Name: name}, nil
}

func (f *fakeFileSvc) Get(context.Context, uuid.UUID, uuid.UUID) (*model.File, error) {
	return f.file, nil
}

func (f *fakeFileSvc) Rename(context.Context, uuid.UUID, uuid.UUID, string) error { return nil }

func (f *fakeFileSvc) Move(context.Context, uuid.UUID, uuid.UUID, uuid.UUID, string) error {
	return nil
}

func (f *fakeFileSvc) Delete(context.Context, uuid.UUID, uuid.UUID) error { return nil }

func (f *fakeFileSvc) SetMetaData(context.Context, uuid.UUID, uuid.UUID, []byte) error { return nil }

func (f *fakeFileSvc) SetEncryptedMetaData(context.Context, uuid.UUID, uuid.UUID, string) error {
	return nil
}

/************ blobs ************/

// fakeBlobSvc keeps blob bytes in memory and enforces a size ceiling the way
// the real service does.
type fakeBlobSvc struct {
	maxSize int64
	byID    map[uuid.UUID]*fakeBlobEntry
	aborted []uuid.UUID
}

type fakeBlobEntry struct {
	blob model.Blob
	data []byte
}

var _ service.BlobService = (*fakeBlobSvc)(nil)

func newFakeBlobSvc(maxSize int64) *fakeBlobSvc {
	return &fakeBlobSvc{maxSize: maxSize, byID: map[uuid.UUID]*fakeBlobEntry{}}
}

type fakeBlobWriter struct {
	entry     *fakeBlobEntry
	remaining int64
	written   int64
}

func (w *fakeBlobWriter) Write(p []byte) (int, error) {
	if int64(len(p)) > w.remaining {
		return 0, errs.User("BLOB_SIZE_EXCEEDS_LIMIT", "Rejected attempt to write file larger than allowed")
	}
	w.entry.data = append(w.entry.data, p...)
	w.remaining -= int64(len(p))
	w.written += int64(len(p))
	return len(p), nil
}

func (w *fakeBlobWriter) Close() error { return nil }

func (w *fakeBlobWriter) BytesWritten() int64 { return w.written }

func (f *fakeBlobSvc) CreateInProgressBlob(_ context.Context, bucketID, fileID uuid.UUID, header string) (*model.Blob, service.BlobWriter, error) {
	entry := &fakeBlobEntry{blob: model.Blob{
		ID:                      uuid.Must(uuid.NewV4()),
		BucketID:                bucketID,
		FileID:                  fileID,
		CryptoMetaHeaderContent: header,
		Status:                  model.BlobStatusStarted,
	}}
	f.byID[entry.blob.ID] = entry
	return &entry.blob, &fakeBlobWriter{entry: entry, remaining: f.maxSize}, nil
}

func (f *fakeBlobSvc) ResumeInProgressBlob(_ context.Context, bucketID, fileID, blobID uuid.UUID, offset int64) (*model.Blob, service.BlobWriter, error) {
	entry, ok := f.byID[blobID]
	if !ok || entry.blob.Status != model.BlobStatusStarted {
		return nil, nil, errs.User("BLOB_INVALID", "No in-progress blob found with the given ID")
	}
	entry.data = entry.data[:offset]
	return &entry.blob, &fakeBlobWriter{entry: entry, remaining: f.maxSize - offset}, nil
}

func (f *fakeBlobSvc) FinishWrite(_ context.Context, _, _, blobID uuid.UUID) error {
	entry, ok := f.byID[blobID]
	if !ok {
		return errs.User("BLOB_INVALID", "No in-progress blob found with the given ID")
	}
	now := time.Now()
	entry.blob.Status = model.BlobStatusFinished
	entry.blob.FinishedAt = &now
	return nil
}

func (f *fakeBlobSvc) AbortWrite(_ context.Context, _, _, blobID uuid.UUID) error {
	f.aborted = append(f.aborted, blobID)
	if entry, ok := f.byID[blobID]; ok {
		entry.blob.Status = model.BlobStatusError
	}
	return nil
}

func (f *fakeBlobSvc) FindLatestBlob(_ context.Context, bucketID, fileID uuid.UUID) (*model.Blob, error) {
	for _, entry := range f.byID {
		if entry.blob.BucketID == bucketID && entry.blob.FileID == fileID && entry.blob.Status == model.BlobStatusFinished {
			return &entry.blob, nil
		}
	}
	return nil, errs.User("BLOB_NOT_FOUND", "Desired blob could not be found")
}

func (f *fakeBlobSvc) OpenBlobReader(blobID uuid.UUID) (io.ReadCloser, int64, error) {
	entry, ok := f.byID[blobID]
	if !ok {
		return nil, 0, errs.User("BLOB_NOT_FOUND", "Desired blob could not be found")
	}
	return io.NopCloser(bytes.NewReader(entry.data)), int64(len(entry.data)), nil
}

func (f *fakeBlobSvc) RemoveAllBlobsOfFile(context.Context, uuid.UUID, uuid.UUID) error { return nil }

func (f *fakeBlobSvc) MaxFileSizeBytes() int64 { return f.maxSize }

/************ metrics ************/

type fakeMetricsSvc struct {
	summary service.MetricsSummary
}

var _ service.MetricsService = (*fakeMetricsSvc)(nil)

func (f *fakeMetricsSvc) GetSummary() (service.MetricsSummary, error) { return f.summary, nil }
