package web

import (
	"encoding/json"
	"time"

	"github.com/avolkov/cryptbucket/internal/model"
	"github.com/avolkov/cryptbucket/internal/service"
)

// Wire representations. All ids are uuid strings; metaData passes through as
// raw JSON because the server never interprets it.

type userView struct {
	ID                string          `json:"id"`
	UserName          string          `json:"userName"`
	DisplayName       string          `json:"displayName"`
	GlobalPermissions map[string]bool `json:"globalPermissions"`
	IsBanned          bool            `json:"isBanned"`
}

func toUserView(u *model.User) userView {
	return userView{
		ID:                u.ID.String(),
		UserName:          u.UserName,
		DisplayName:       u.DisplayName,
		GlobalPermissions: u.GlobalPermissions,
		IsBanned:          u.IsBanned,
	}
}

type sessionView struct {
	IsCurrentSession bool       `json:"isCurrentSession"`
	HasExpired       bool       `json:"hasExpired"`
	ExpireReason     string     `json:"expireReason"`
	CreatedAt        time.Time  `json:"createdAt"`
	ExpiredAt        *time.Time `json:"expiredAt"`
}

type authorizationView struct {
	UserID      string          `json:"userId"`
	Notes       string          `json:"notes"`
	Permissions map[string]bool `json:"permissions"`
}

type bucketView struct {
	ID              string              `json:"id"`
	Name            string              `json:"name"`
	CryptSpec       string              `json:"cryptSpec"`
	CryptData       string              `json:"cryptData"`
	MetaData        json.RawMessage     `json:"metaData"`
	Authorizations  []authorizationView `json:"bucketAuthorizations"`
	RootDirectoryID string              `json:"rootDirectoryId"`
}

func toBucketView(b service.BucketWithRoot) bucketView {
	auths := make([]authorizationView, 0, len(b.Bucket.Authorizations))
	for _, a := range b.Bucket.Authorizations {
		auths = append(auths, authorizationView{
			UserID:      a.UserID.String(),
			Notes:       a.Notes,
			Permissions: a.Permissions,
		})
	}
	return bucketView{
		ID:              b.Bucket.ID.String(),
		Name:            b.Bucket.Name,
		CryptSpec:       b.Bucket.CryptSpec,
		CryptData:       b.Bucket.CryptData,
		MetaData:        json.RawMessage(b.Bucket.MetaData),
		Authorizations:  auths,
		RootDirectoryID: b.RootDirectoryID.String(),
	}
}

type directoryView struct {
	ID                string          `json:"id"`
	BucketID          string          `json:"bucketId"`
	ParentDirectoryID *string         `json:"parentDirectoryId"`
	Name              string          `json:"name"`
	MetaData          json.RawMessage `json:"metaData"`
	EncryptedMetaData string          `json:"encryptedMetaData"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

func toDirectoryView(d *model.Directory) directoryView {
	var parent *string
	if d.ParentDirectoryID != nil {
		p := d.ParentDirectoryID.String()
		parent = &p
	}
	return directoryView{
		ID:                d.ID.String(),
		BucketID:          d.BucketID.String(),
		ParentDirectoryID: parent,
		Name:              d.Name,
		MetaData:          json.RawMessage(d.MetaData),
		EncryptedMetaData: d.EncryptedMetaData,
		CreatedAt:         d.CreatedAt,
		UpdatedAt:         d.UpdatedAt,
	}
}

type fileView struct {
	ID                       string          `json:"id"`
	BucketID                 string          `json:"bucketId"`
	ParentDirectoryID        string          `json:"parentDirectoryId"`
	Name                     string          `json:"name"`
	MetaData                 json.RawMessage `json:"metaData"`
	EncryptedMetaData        string          `json:"encryptedMetaData"`
	SizeAfterEncryptionBytes int64           `json:"sizeAfterEncryptionBytes"`
	ContentUpdatedAt         time.Time       `json:"contentUpdatedAt"`
	CreatedAt                time.Time       `json:"createdAt"`
	UpdatedAt                time.Time       `json:"updatedAt"`
}

func toFileView(f *model.File) fileView {
	return fileView{
		ID:                       f.ID.String(),
		BucketID:                 f.BucketID.String(),
		ParentDirectoryID:        f.ParentDirectoryID.String(),
		Name:                     f.Name,
		MetaData:                 json.RawMessage(f.MetaData),
		EncryptedMetaData:        f.EncryptedMetaData,
		SizeAfterEncryptionBytes: f.SizeAfterEncryptionBytes,
		ContentUpdatedAt:         f.ContentUpdatedAt,
		CreatedAt:                f.CreatedAt,
		UpdatedAt:                f.UpdatedAt,
	}
}
