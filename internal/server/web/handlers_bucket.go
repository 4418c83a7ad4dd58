package web

import (
	"encoding/json"
	"net/http"

	"github.com/avolkov/cryptbucket/internal/model"
	"github.com/avolkov/cryptbucket/internal/service"
)

type bucketCreateRequest struct {
	Name      string          `json:"name" validate:"required,min=1,max=64"`
	CryptSpec string          `json:"cryptSpec" validate:"required,min=1,max=64"`
	CryptData string          `json:"cryptData" validate:"required,min=1,max=2048"`
	MetaData  json.RawMessage `json:"metaData" validate:"required"`
}

func (s *Server) handleBucketCreate(w http.ResponseWriter, r *http.Request, auth *service.Authentication) {
	var req bucketCreateRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.svc.Access.RequireGlobalPermission(auth.User, model.GlobalPermCreateBucket); err != nil {
		s.writeError(w, err)
		return
	}
	bucketID, rootDirectoryID, err := s.svc.Buckets.Create(r.Context(), auth.User, req.Name, req.CryptSpec, req.CryptData, req.MetaData)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeOK(w, map[string]any{
		"bucketId":        bucketID.String(),
		"rootDirectoryId": rootDirectoryID.String(),
	})
}

func (s *Server) handleBucketList(w http.ResponseWriter, r *http.Request, auth *service.Authentication) {
	buckets, err := s.svc.Buckets.ListAuthorized(r.Context(), auth.UserID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	views := make([]bucketView, 0, len(buckets))
	for _, b := range buckets {
		views = append(views, toBucketView(b))
	}
	s.writeOK(w, map[string]any{"bucketList": views})
}

type bucketRenameRequest struct {
	BucketID string `json:"bucketId" validate:"required,uuid"`
	Name     string `json:"name" validate:"required,min=1,max=64"`
}

func (s *Server) handleBucketRename(w http.ResponseWriter, r *http.Request, auth *service.Authentication) {
	var req bucketRenameRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	bucketID, err := parseID(req.BucketID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if _, err := s.svc.Access.RequireBucketAuthorization(r.Context(), auth.UserID, bucketID, model.BucketPermModify); err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.svc.Buckets.Rename(r.Context(), bucketID, req.Name); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeOK(w, nil)
}

type bucketDestroyRequest struct {
	BucketID string `json:"bucketId" validate:"required,uuid"`
	// The caller retypes the bucket name to confirm intent.
	Name string `json:"name" validate:"required,min=1,max=64"`
}

func (s *Server) handleBucketDestroy(w http.ResponseWriter, r *http.Request, auth *service.Authentication) {
	var req bucketDestroyRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	bucketID, err := parseID(req.BucketID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	bucket, err := s.svc.Access.RequireBucketAuthorization(r.Context(), auth.UserID, bucketID, model.BucketPermDestroy)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.svc.Buckets.Destroy(r.Context(), bucket, req.Name); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeOK(w, nil)
}

type bucketSetMetaDataRequest struct {
	BucketID string          `json:"bucketId" validate:"required,uuid"`
	MetaData json.RawMessage `json:"metaData" validate:"required"`
}

func (s *Server) handleBucketSetMetaData(w http.ResponseWriter, r *http.Request, auth *service.Authentication) {
	var req bucketSetMetaDataRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	bucketID, err := parseID(req.BucketID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if _, err := s.svc.Access.RequireBucketAuthorization(r.Context(), auth.UserID, bucketID, model.BucketPermModify); err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.svc.Buckets.SetMetaData(r.Context(), bucketID, req.MetaData); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeOK(w, nil)
}

type bucketSetAuthorizationRequest struct {
	BucketID         string          `json:"bucketId" validate:"required,uuid"`
	TargetUserID     string          `json:"targetUserId" validate:"required,uuid"`
	PermissionsToSet map[string]bool `json:"permissionsToSet" validate:"required"`
}

func (s *Server) handleBucketSetAuthorization(w http.ResponseWriter, r *http.Request, auth *service.Authentication) {
	var req bucketSetAuthorizationRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	bucketID, err := parseID(req.BucketID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	targetUserID, err := parseID(req.TargetUserID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	bucket, err := s.svc.Access.RequireBucketAuthorization(r.Context(), auth.UserID, bucketID, model.BucketPermManageAuthorization)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.svc.Buckets.SetAuthorization(r.Context(), auth.User, bucket, targetUserID, req.PermissionsToSet); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeOK(w, nil)
}
