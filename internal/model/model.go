// Package model defines domain entities used by services and repositories.
package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// Global permissions are account-level capabilities independent of any bucket.
const (
	GlobalPermManageAllUser = "MANAGE_ALL_USER"
	GlobalPermCreateUser    = "CREATE_USER"
	GlobalPermCreateBucket  = "CREATE_BUCKET"
)

// Bucket permissions form a closed set scoped to one bucket.
const (
	BucketPermViewContent         = "VIEW_CONTENT"
	BucketPermManageContent       = "MANAGE_CONTENT"
	BucketPermModify              = "MODIFY"
	BucketPermManageAuthorization = "MANAGE_AUTHORIZATION"
	BucketPermDestroy             = "DESTROY"
)

// GlobalPermissionNames lists every known global permission.
var GlobalPermissionNames = []string{
	GlobalPermManageAllUser,
	GlobalPermCreateUser,
	GlobalPermCreateBucket,
}

// BucketPermissionNames lists every known bucket permission.
var BucketPermissionNames = []string{
	BucketPermViewContent,
	BucketPermManageContent,
	BucketPermModify,
	BucketPermManageAuthorization,
	BucketPermDestroy,
}

// DefaultGlobalPermissionsForNewUser returns the permission map granted to a
// standard user created by an admin.
func DefaultGlobalPermissionsForNewUser() map[string]bool {
	return map[string]bool{
		GlobalPermManageAllUser: false,
		GlobalPermCreateUser:    false,
		GlobalPermCreateBucket:  true,
	}
}

// AllBucketPermissions returns the full bucket permission map with every
// entry set to allowed.
func AllBucketPermissions(allowed bool) map[string]bool {
	m := make(map[string]bool, len(BucketPermissionNames))
	for _, name := range BucketPermissionNames {
		m[name] = allowed
	}
	return m
}

// User is a server account. The password is stored as an argon2id hash with a
// per-user salt; plaintext never reaches persistence.
type User struct {
	ID                uuid.UUID
	DisplayName       string
	UserName          string // unique
	PwdHash           []byte
	PwdSalt           []byte
	GlobalPermissions map[string]bool
	IsBanned          bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Session is the server-side record behind an API key. It transitions once
// from active to expired and is immutable thereafter.
type Session struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	APIKey       string // unique random token, external handle
	HasExpired   bool
	ExpireReason string
	ExpiredAt    *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// BucketAuthorization is one user's permission matrix on one bucket.
type BucketAuthorization struct {
	UserID      uuid.UUID
	Notes       string
	Permissions map[string]bool
}

// Bucket is the root of a namespace tree. CryptSpec/CryptData are opaque
// client-defined strings; the server never interprets them.
type Bucket struct {
	ID             uuid.UUID
	Name           string // globally unique
	CryptSpec      string
	CryptData      string
	MetaData       []byte // opaque JSON
	Authorizations []BucketAuthorization
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Directory is a node of a bucket's namespace tree. ParentDirectoryID is nil
// only for the bucket's root.
type Directory struct {
	ID                uuid.UUID
	BucketID          uuid.UUID
	ParentDirectoryID *uuid.UUID
	Name              string
	MetaData          []byte
	EncryptedMetaData string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// File is a leaf of the namespace tree. Its content lives in blobs.
type File struct {
	ID                       uuid.UUID
	BucketID                 uuid.UUID
	ParentDirectoryID        uuid.UUID
	Name                     string
	MetaData                 []byte
	EncryptedMetaData        string
	SizeAfterEncryptionBytes int64
	ContentUpdatedAt         time.Time
	CreatedAt                time.Time
	UpdatedAt                time.Time
}

// Blob lifecycle states. There is no transition out of finished or error.
const (
	BlobStatusStarted  = "started"
	BlobStatusFinished = "finished"
	BlobStatusError    = "error"
)

// Blob is one versioned opaque ciphertext payload backing a file's content.
// At most one finished blob is retained per (bucket, file).
type Blob struct {
	ID                      uuid.UUID
	BucketID                uuid.UUID
	FileID                  uuid.UUID
	CryptoMetaHeaderContent string // opaque client-supplied header
	Status                  string
	StartedAt               time.Time
	FinishedAt              *time.Time
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

// DiskUsage reports capacity of the volume backing blob storage.
type DiskUsage struct {
	FreeBytes  int64
	TotalBytes int64
}
