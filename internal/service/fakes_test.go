package service

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/avolkov/cryptbucket/internal/errs"
	"github.com/avolkov/cryptbucket/internal/limiter"
	"github.com/avolkov/cryptbucket/internal/model"
	"github.com/avolkov/cryptbucket/internal/repository"
)

/************ users ************/

type fakeUsers struct {
	byID map[uuid.UUID]*model.User

	createErr error
}

var _ repository.UserRepository = (*fakeUsers)(nil)

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: map[uuid.UUID]*model.User{}}
}

func (f *fakeUsers) add(u *model.User) { cpy := *u; f.byID[u.ID] = &cpy }

func (f *fakeUsers) Create(_ context.Context, u *model.User) error {
	if f.createErr != nil {
		return f.createErr
	}
	for _, existing := range f.byID {
		if existing.UserName == u.UserName {
			return errs.ErrAlreadyExists
		}
	}
	now := time.Now()
	cpy := *u
	cpy.CreatedAt = now
	f.byID[u.ID] = &cpy
	return nil
}

func (f *fakeUsers) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	c := *u
	return &c, nil
}

func (f *fakeUsers) GetByUserName(_ context.Context, userName string) (*model.User, error) {
	for _, u := range f.byID {
		if u.UserName == userName {
			c := *u
			return &c, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (f *fakeUsers) List(_ context.Context) ([]model.User, error) {
	var out []model.User
	for _, u := range f.byID {
		out = append(out, *u)
	}
	return out, nil
}

func (f *fakeUsers) UpdateDisplayName(_ context.Context, id uuid.UUID, displayName string) error {
	u, ok := f.byID[id]
	if !ok {
		return errs.ErrNotFound
	}
	u.DisplayName = displayName
	return nil
}

func (f *fakeUsers) UpdatePassword(_ context.Context, id uuid.UUID, hash, salt []byte) error {
	u, ok := f.byID[id]
	if !ok {
		return errs.ErrNotFound
	}
	u.PwdHash, u.PwdSalt = hash, salt
	return nil
}

func (f *fakeUsers) SetGlobalPermissions(_ context.Context, id uuid.UUID, perms map[string]bool) error {
	u, ok := f.byID[id]
	if !ok {
		return errs.ErrNotFound
	}
	u.GlobalPermissions = perms
	return nil
}

func (f *fakeUsers) SetBanningStatus(_ context.Context, id uuid.UUID, isBanned bool) error {
	u, ok := f.byID[id]
	if !ok {
		return errs.ErrNotFound
	}
	u.IsBanned = isBanned
	return nil
}

/************ sessions ************/

type fakeSessions struct {
	byKey map[string]*model.Session

	createErrs []error // consumed per Create call before default behavior
}

var _ repository.SessionRepository = (*fakeSessions)(nil)

func newFakeSessions() *fakeSessions {
	return &fakeSessions{byKey: map[string]*model.Session{}}
}

func (f *fakeSessions) Create(_ context.Context, s *model.Session) error {
	if len(f.createErrs) > 0 {
		err := f.createErrs[0]
		f.createErrs = f.createErrs[1:]
		if err != nil {
			return err
		}
	}
	if _, exists := f.byKey[s.APIKey]; exists {
		return errs.ErrAlreadyExists
	}
	cpy := *s
	cpy.CreatedAt = time.Now()
	f.byKey[s.APIKey] = &cpy
	s.CreatedAt = cpy.CreatedAt
	return nil
}

func (f *fakeSessions) GetByAPIKey(_ context.Context, apiKey string) (*model.Session, error) {
	s, ok := f.byKey[apiKey]
	if !ok {
		return nil, errs.ErrNotFound
	}
	c := *s
	return &c, nil
}

func (f *fakeSessions) GetByID(_ context.Context, id uuid.UUID) (*model.Session, error) {
	for _, s := range f.byKey {
		if s.ID == id {
			c := *s
			return &c, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (f *fakeSessions) ListByUser(_ context.Context, userID uuid.UUID, limit int) ([]model.Session, error) {
	var out []model.Session
	for _, s := range f.byKey {
		if s.UserID == userID && len(out) < limit {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeSessions) ExpireByID(_ context.Context, id uuid.UUID, reason string) error {
	for _, s := range f.byKey {
		if s.ID == id && !s.HasExpired {
			now := time.Now()
			s.HasExpired, s.ExpireReason, s.ExpiredAt = true, reason, &now
		}
	}
	return nil
}

func (f *fakeSessions) ExpireAllByUser(_ context.Context, userID uuid.UUID, reason string) error {
	for _, s := range f.byKey {
		if s.UserID == userID && !s.HasExpired {
			now := time.Now()
			s.HasExpired, s.ExpireReason, s.ExpiredAt = true, reason, &now
		}
	}
	return nil
}

/************ limiter ************/

type fakeLimiter struct {
	allowed   bool
	failures  int
	successes int
	blockAt   int // Failure returns blocked once failures reach this, 0 = never
}

var _ limiter.Limiter = (*fakeLimiter)(nil)

func (f *fakeLimiter) Allow(context.Context, string, []byte) (bool, time.Duration, error) {
	return f.allowed, 0, nil
}

func (f *fakeLimiter) Success(context.Context, string, []byte) error {
	f.successes++
	return nil
}

func (f *fakeLimiter) Failure(context.Context, string, []byte) (bool, time.Duration, error) {
	f.failures++
	return f.blockAt > 0 && f.failures >= f.blockAt, 0, nil
}

/************ buckets ************/

type fakeBuckets struct {
	byID map[uuid.UUID]*model.Bucket
}

var _ repository.BucketRepository = (*fakeBuckets)(nil)

func newFakeBuckets() *fakeBuckets {
	return &fakeBuckets{byID: map[uuid.UUID]*model.Bucket{}}
}

func (f *fakeBuckets) Create(_ context.Context, b *model.Bucket) error {
	for _, existing := range f.byID {
		if existing.Name == b.Name {
			return errs.ErrAlreadyExists
		}
	}
	cpy := *b
	cpy.Authorizations = append([]model.BucketAuthorization(nil), b.Authorizations...)
	f.byID[b.ID] = &cpy
	return nil
}

func (f *fakeBuckets) GetByID(_ context.Context, id uuid.UUID) (*model.Bucket, error) {
	b, ok := f.byID[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	c := *b
	c.Authorizations = append([]model.BucketAuthorization(nil), b.Authorizations...)
	return &c, nil
}

func (f *fakeBuckets) GetByName(_ context.Context, name string) (*model.Bucket, error) {
	for _, b := range f.byID {
		if b.Name == name {
			c := *b
			return &c, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (f *fakeBuckets) List(_ context.Context) ([]model.Bucket, error) {
	var out []model.Bucket
	for _, b := range f.byID {
		c := *b
		c.Authorizations = append([]model.BucketAuthorization(nil), b.Authorizations...)
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeBuckets) Rename(_ context.Context, id uuid.UUID, name string) error {
	for _, b := range f.byID {
		if b.Name == name && b.ID != id {
			return errs.ErrAlreadyExists
		}
	}
	b, ok := f.byID[id]
	if !ok {
		return errs.ErrNotFound
	}
	b.Name = name
	return nil
}

func (f *fakeBuckets) SetMetaData(_ context.Context, id uuid.UUID, metaData []byte) error {
	b, ok := f.byID[id]
	if !ok {
		return errs.ErrNotFound
	}
	b.MetaData = metaData
	return nil
}

func (f *fakeBuckets) Delete(_ context.Context, id uuid.UUID) error {
	delete(f.byID, id)
	return nil
}

func (f *fakeBuckets) UpsertAuthorization(_ context.Context, bucketID uuid.UUID, a model.BucketAuthorization) error {
	b, ok := f.byID[bucketID]
	if !ok {
		return errs.ErrNotFound
	}
	for i := range b.Authorizations {
		if b.Authorizations[i].UserID == a.UserID {
			b.Authorizations[i] = a
			return nil
		}
	}
	b.Authorizations = append(b.Authorizations, a)
	return nil
}

/************ directories ************/

type fakeDirectories struct {
	byID map[uuid.UUID]*model.Directory
}

var _ repository.DirectoryRepository = (*fakeDirectories)(nil)

func newFakeDirectories() *fakeDirectories {
	return &fakeDirectories{byID: map[uuid.UUID]*model.Directory{}}
}

func (f *fakeDirectories) Create(_ context.Context, d *model.Directory) error {
	for _, existing := range f.byID {
		if existing.BucketID == d.BucketID && sameParent(existing.ParentDirectoryID, d.ParentDirectoryID) && existing.Name == d.Name {
			return errs.ErrAlreadyExists
		}
	}
	cpy := *d
	f.byID[d.ID] = &cpy
	return nil
}

func sameParent(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (f *fakeDirectories) GetByID(_ context.Context, bucketID, directoryID uuid.UUID) (*model.Directory, error) {
	d, ok := f.byID[directoryID]
	if !ok || d.BucketID != bucketID {
		return nil, errs.ErrNotFound
	}
	c := *d
	return &c, nil
}

func (f *fakeDirectories) GetByNameAndParent(_ context.Context, bucketID, parentDirectoryID uuid.UUID, name string) (*model.Directory, error) {
	for _, d := range f.byID {
		if d.BucketID == bucketID && d.ParentDirectoryID != nil && *d.ParentDirectoryID == parentDirectoryID && d.Name == name {
			c := *d
			return &c, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (f *fakeDirectories) GetRootByBucket(_ context.Context, bucketID uuid.UUID) (*model.Directory, error) {
	for _, d := range f.byID {
		if d.BucketID == bucketID && d.ParentDirectoryID == nil {
			c := *d
			return &c, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (f *fakeDirectories) ListChildren(_ context.Context, bucketID, parentDirectoryID uuid.UUID) ([]model.Directory, error) {
	var out []model.Directory
	for _, d := range f.byID {
		if d.BucketID == bucketID && d.ParentDirectoryID != nil && *d.ParentDirectoryID == parentDirectoryID {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (f *fakeDirectories) ListRootsByBucketIDs(_ context.Context, bucketIDs []uuid.UUID) ([]model.Directory, error) {
	var out []model.Directory
	for _, d := range f.byID {
		if d.ParentDirectoryID != nil {
			continue
		}
		for _, id := range bucketIDs {
			if d.BucketID == id {
				out = append(out, *d)
			}
		}
	}
	return out, nil
}

func (f *fakeDirectories) Rename(_ context.Context, bucketID, directoryID uuid.UUID, name string) error {
	d, ok := f.byID[directoryID]
	if !ok || d.BucketID != bucketID {
		return errs.ErrNotFound
	}
	for _, sibling := range f.byID {
		if sibling.ID != directoryID && sibling.BucketID == bucketID &&
			sameParent(sibling.ParentDirectoryID, d.ParentDirectoryID) && sibling.Name == name {
			return errs.ErrAlreadyExists
		}
	}
	d.Name = name
	return nil
}

func (f *fakeDirectories) Move(_ context.Context, bucketID, directoryID, newParentDirectoryID uuid.UUID, newName string) error {
	d, ok := f.byID[directoryID]
	if !ok || d.BucketID != bucketID {
		return errs.ErrNotFound
	}
	parent := newParentDirectoryID
	d.ParentDirectoryID = &parent
	d.Name = newName
	return nil
}

func (f *fakeDirectories) SetMetaData(_ context.Context, bucketID, directoryID uuid.UUID, metaData []byte) error {
	d, ok := f.byID[directoryID]
	if !ok || d.BucketID != bucketID {
		return errs.ErrNotFound
	}
	d.MetaData = metaData
	return nil
}

func (f *fakeDirectories) SetEncryptedMetaData(_ context.Context, bucketID, directoryID uuid.UUID, encryptedMetaData string) error {
	d, ok := f.byID[directoryID]
	if !ok || d.BucketID != bucketID {
		return errs.ErrNotFound
	}
	d.EncryptedMetaData = encryptedMetaData
	return nil
}

func (f *fakeDirectories) Delete(_ context.Context, bucketID, directoryID uuid.UUID) error {
	delete(f.byID, directoryID)
	return nil
}

/************ files ************/

type fakeFiles struct {
	byID map[uuid.UUID]*model.File
}

var _ repository.FileRepository = (*fakeFiles)(nil)

func newFakeFiles() *fakeFiles {
	return &fakeFiles{byID: map[uuid.UUID]*model.File{}}
}

func (f *fakeFiles) Create(_ context.Context, file *model.File) error {
	for _, existing := range f.byID {
		if existing.BucketID == file.BucketID && existing.ParentDirectoryID == file.ParentDirectoryID && existing.Name == file.Name {
			return errs.ErrAlreadyExists
		}
	}
	cpy := *file
	f.byID[file.ID] = &cpy
	return nil
}

func (f *fakeFiles) GetByID(_ context.Context, bucketID, fileID uuid.UUID) (*model.File, error) {
	file, ok := f.byID[fileID]
	if !ok || file.BucketID != bucketID {
		return nil, errs.ErrNotFound
	}
	c := *file
	return &c, nil
}

func (f *fakeFiles) GetByNameAndParent(_ context.Context, bucketID, parentDirectoryID uuid.UUID, name string) (*model.File, error) {
	for _, file := range f.byID {
		if file.BucketID == bucketID && file.ParentDirectoryID == parentDirectoryID && file.Name == name {
			c := *file
			return &c, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (f *fakeFiles) ListByDirectory(_ context.Context, bucketID, parentDirectoryID uuid.UUID) ([]model.File, error) {
	var out []model.File
	for _, file := range f.byID {
		if file.BucketID == bucketID && file.ParentDirectoryID == parentDirectoryID {
			out = append(out, *file)
		}
	}
	return out, nil
}

func (f *fakeFiles) Rename(_ context.Context, bucketID, fileID uuid.UUID, name string) error {
	file, ok := f.byID[fileID]
	if !ok || file.BucketID != bucketID {
		return errs.ErrNotFound
	}
	for _, sibling := range f.byID {
		if sibling.ID != fileID && sibling.BucketID == bucketID &&
			sibling.ParentDirectoryID == file.ParentDirectoryID && sibling.Name == name {
			return errs.ErrAlreadyExists
		}
	}
	file.Name = name
	return nil
}

func (f *fakeFiles) Move(_ context.Context, bucketID, fileID, newParentDirectoryID uuid.UUID, newName string) error {
	file, ok := f.byID[fileID]
	if !ok || file.BucketID != bucketID {
		return errs.ErrNotFound
	}
	file.ParentDirectoryID = newParentDirectoryID
	file.Name = newName
	return nil
}

func (f *fakeFiles) SetMetaData(_ context.Context, bucketID, fileID uuid.UUID, metaData []byte) error {
	file, ok := f.byID[fileID]
	if !ok || file.BucketID != bucketID {
		return errs.ErrNotFound
	}
	file.MetaData = metaData
	return nil
}

func (f *fakeFiles) SetEncryptedMetaData(_ context.Context, bucketID, fileID uuid.UUID, encryptedMetaData string) error {
	file, ok := f.byID[fileID]
	if !ok || file.BucketID != bucketID {
		return errs.ErrNotFound
	}
	file.EncryptedMetaData = encryptedMetaData
	return nil
}

func (f *fakeFiles) SetContentUpdatedAt(_ context.Context, bucketID, fileID uuid.UUID, at time.Time) error {
	file, ok := f.byID[fileID]
	if !ok || file.BucketID != bucketID {
		return errs.ErrNotFound
	}
	file.ContentUpdatedAt = at
	return nil
}

func (f *fakeFiles) Delete(_ context.Context, bucketID, fileID uuid.UUID) error {
	delete(f.byID, fileID)
	return nil
}

/************ blob repo ************/

type fakeBlobRecords struct {
	byID map[uuid.UUID]*model.Blob
}

var _ repository.BlobRepository = (*fakeBlobRecords)(nil)

func newFakeBlobRecords() *fakeBlobRecords {
	return &fakeBlobRecords{byID: map[uuid.UUID]*model.Blob{}}
}

func (f *fakeBlobRecords) Create(_ context.Context, b *model.Blob) error {
	cpy := *b
	cpy.StartedAt = time.Now()
	f.byID[b.ID] = &cpy
	return nil
}

func (f *fakeBlobRecords) GetInProgress(_ context.Context, bucketID, fileID, blobID uuid.UUID) (*model.Blob, error) {
	b, ok := f.byID[blobID]
	if !ok || b.BucketID != bucketID || b.FileID != fileID || b.Status != model.BlobStatusStarted {
		return nil, errs.ErrNotFound
	}
	c := *b
	return &c, nil
}

func (f *fakeBlobRecords) MarkFinished(_ context.Context, bucketID, fileID, blobID uuid.UUID) error {
	b, ok := f.byID[blobID]
	if !ok || b.BucketID != bucketID || b.FileID != fileID || b.Status != model.BlobStatusStarted {
		return errs.ErrNotFound
	}
	now := time.Now()
	b.Status, b.FinishedAt = model.BlobStatusFinished, &now
	return nil
}

func (f *fakeBlobRecords) MarkErroneous(_ context.Context, bucketID, fileID, blobID uuid.UUID) error {
	b, ok := f.byID[blobID]
	if ok && b.BucketID == bucketID && b.FileID == fileID && b.Status == model.BlobStatusStarted {
		b.Status = model.BlobStatusError
	}
	return nil
}

func (f *fakeBlobRecords) FindLatestFinished(_ context.Context, bucketID, fileID uuid.UUID) (*model.Blob, error) {
	var latest *model.Blob
	for _, b := range f.byID {
		if b.BucketID != bucketID || b.FileID != fileID || b.Status != model.BlobStatusFinished {
			continue
		}
		if latest == nil || b.FinishedAt.After(*latest.FinishedAt) {
			latest = b
		}
	}
	if latest == nil {
		return nil, errs.ErrNotFound
	}
	c := *latest
	return &c, nil
}

func (f *fakeBlobRecords) ListByFile(_ context.Context, bucketID, fileID uuid.UUID) ([]model.Blob, error) {
	var out []model.Blob
	for _, b := range f.byID {
		if b.BucketID == bucketID && b.FileID == fileID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (f *fakeBlobRecords) ListByFileExcluding(_ context.Context, bucketID, fileID, excludeBlobID uuid.UUID) ([]model.Blob, error) {
	var out []model.Blob
	for _, b := range f.byID {
		if b.BucketID == bucketID && b.FileID == fileID && b.ID != excludeBlobID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (f *fakeBlobRecords) DeleteByFile(_ context.Context, bucketID, fileID uuid.UUID) error {
	for id, b := range f.byID {
		if b.BucketID == bucketID && b.FileID == fileID {
			delete(f.byID, id)
		}
	}
	return nil
}

func (f *fakeBlobRecords) DeleteByFileExcluding(_ context.Context, bucketID, fileID, keepBlobID uuid.UUID) error {
	for id, b := range f.byID {
		if b.BucketID == bucketID && b.FileID == fileID && b.ID != keepBlobID {
			delete(f.byID, id)
		}
	}
	return nil
}
