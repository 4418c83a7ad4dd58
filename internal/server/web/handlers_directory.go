package web

import (
	"encoding/json"
	"net/http"

	"github.com/gofrs/uuid/v5"

	"github.com/avolkov/cryptbucket/internal/model"
	"github.com/avolkov/cryptbucket/internal/service"
)

type directoryCreateRequest struct {
	BucketID          string          `json:"bucketId" validate:"required,uuid"`
	ParentDirectoryID string          `json:"parentDirectoryId" validate:"required,uuid"`
	Name              string          `json:"name" validate:"required,min=1,max=256"`
	MetaData          json.RawMessage `json:"metaData" validate:"required"`
	EncryptedMetaData string          `json:"encryptedMetaData" validate:"required,max=1048576"`
}

func (s *Server) handleDirectoryCreate(w http.ResponseWriter, r *http.Request, auth *service.Authentication) {
	var req directoryCreateRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	bucketID, parentID, err := parseTwoIDs(req.BucketID, req.ParentDirectoryID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if _, err := s.svc.Access.EnsureDirectoryBelongsToBucket(r.Context(), bucketID, parentID); err != nil {
		s.writeError(w, err)
		return
	}
	if _, err := s.svc.Access.RequireBucketAuthorization(r.Context(), auth.UserID, bucketID, model.BucketPermManageContent); err != nil {
		s.writeError(w, err)
		return
	}
	directory, err := s.svc.Directories.Create(r.Context(), bucketID, parentID, req.Name, req.MetaData, req.EncryptedMetaData)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeOK(w, map[string]any{"directoryId": directory.ID.String()})
}

type directoryGetRequest struct {
	BucketID    string `json:"bucketId" validate:"required,uuid"`
	DirectoryID string `json:"directoryId" validate:"required,uuid"`
}

func (s *Server) handleDirectoryGet(w http.ResponseWriter, r *http.Request, auth *service.Authentication) {
	var req directoryGetRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	bucketID, directoryID, err := parseTwoIDs(req.BucketID, req.DirectoryID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if _, err := s.svc.Access.EnsureDirectoryBelongsToBucket(r.Context(), bucketID, directoryID); err != nil {
		s.writeError(w, err)
		return
	}
	if _, err := s.svc.Access.RequireBucketAuthorization(r.Context(), auth.UserID, bucketID, model.BucketPermViewContent); err != nil {
		s.writeError(w, err)
		return
	}
	contents, err := s.svc.Directories.Get(r.Context(), bucketID, directoryID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	childDirs := make([]directoryView, 0, len(contents.Children))
	for i := range contents.Children {
		childDirs = append(childDirs, toDirectoryView(&contents.Children[i]))
	}
	childFiles := make([]fileView, 0, len(contents.Files))
	for i := range contents.Files {
		childFiles = append(childFiles, toFileView(&contents.Files[i]))
	}
	s.writeOK(w, map[string]any{
		"directory":          toDirectoryView(&contents.Directory),
		"childDirectoryList": childDirs,
		"childFileList":      childFiles,
	})
}

type directoryRenameRequest struct {
	BucketID    string `json:"bucketId" validate:"required,uuid"`
	DirectoryID string `json:"directoryId" validate:"required,uuid"`
	Name        string `json:"name" validate:"required,min=1,max=256"`
}

func (s *Server) handleDirectoryRename(w http.ResponseWriter, r *http.Request, auth *service.Authentication) {
	var req directoryRenameRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	bucketID, directoryID, err := s.guardDirectoryWrite(w, r, auth, req.BucketID, req.DirectoryID)
	if err != nil {
		return
	}
	if err := s.svc.Directories.Rename(r.Context(), bucketID, directoryID, req.Name); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeOK(w, nil)
}

type directoryMoveRequest struct {
	BucketID             string `json:"bucketId" validate:"required,uuid"`
	DirectoryID          string `json:"directoryId" validate:"required,uuid"`
	NewParentDirectoryID string `json:"newParentDirectoryId" validate:"required,uuid"`
	NewName              string `json:"newName" validate:"required,min=1,max=256"`
}

func (s *Server) handleDirectoryMove(w http.ResponseWriter, r *http.Request, auth *service.Authentication) {
	var req directoryMoveRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	bucketID, directoryID, err := s.guardDirectoryWrite(w, r, auth, req.BucketID, req.DirectoryID)
	if err != nil {
		return
	}
	newParentID, err := parseID(req.NewParentDirectoryID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if _, err := s.svc.Access.EnsureDirectoryBelongsToBucket(r.Context(), bucketID, newParentID); err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.svc.Directories.Move(r.Context(), bucketID, directoryID, newParentID, req.NewName); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeOK(w, nil)
}

func (s *Server) handleDirectoryDelete(w http.ResponseWriter, r *http.Request, auth *service.Authentication) {
	var req directoryGetRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	bucketID, directoryID, err := s.guardDirectoryWrite(w, r, auth, req.BucketID, req.DirectoryID)
	if err != nil {
		return
	}
	if err := s.svc.Directories.Delete(r.Context(), bucketID, directoryID); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeOK(w, nil)
}

type directorySetMetaDataRequest struct {
	BucketID    string          `json:"bucketId" validate:"required,uuid"`
	DirectoryID string          `json:"directoryId" validate:"required,uuid"`
	MetaData    json.RawMessage `json:"metaData" validate:"required"`
}

func (s *Server) handleDirectorySetMetaData(w http.ResponseWriter, r *http.Request, auth *service.Authentication) {
	var req directorySetMetaDataRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	bucketID, directoryID, err := s.guardDirectoryWrite(w, r, auth, req.BucketID, req.DirectoryID)
	if err != nil {
		return
	}
	if err := s.svc.Directories.SetMetaData(r.Context(), bucketID, directoryID, req.MetaData); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeOK(w, nil)
}

type directorySetEncryptedMetaDataRequest struct {
	BucketID          string `json:"bucketId" validate:"required,uuid"`
	DirectoryID       string `json:"directoryId" validate:"required,uuid"`
	EncryptedMetaData string `json:"encryptedMetaData" validate:"required,max=1048576"`
}

func (s *Server) handleDirectorySetEncryptedMetaData(w http.ResponseWriter, r *http.Request, auth *service.Authentication) {
	var req directorySetEncryptedMetaDataRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	bucketID, directoryID, err := s.guardDirectoryWrite(w, r, auth, req.BucketID, req.DirectoryID)
	if err != nil {
		return
	}
	if err := s.svc.Directories.SetEncryptedMetaData(r.Context(), bucketID, directoryID, req.EncryptedMetaData); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeOK(w, nil)
}

// guardDirectoryWrite runs the belongs-check then MANAGE_CONTENT. On failure
// the response is already written and a non-nil error returned.
func (s *Server) guardDirectoryWrite(w http.ResponseWriter, r *http.Request, auth *service.Authentication, rawBucketID, rawDirectoryID string) (uuid.UUID, uuid.UUID, error) {
	bucketID, directoryID, err := parseTwoIDs(rawBucketID, rawDirectoryID)
	if err != nil {
		s.writeError(w, err)
		return uuid.Nil, uuid.Nil, err
	}
	if _, err := s.svc.Access.EnsureDirectoryBelongsToBucket(r.Context(), bucketID, directoryID); err != nil {
		s.writeError(w, err)
		return uuid.Nil, uuid.Nil, err
	}
	if _, err := s.svc.Access.RequireBucketAuthorization(r.Context(), auth.UserID, bucketID, model.BucketPermManageContent); err != nil {
		s.writeError(w, err)
		return uuid.Nil, uuid.Nil, err
	}
	return bucketID, directoryID, nil
}

func parseTwoIDs(a, b string) (uuid.UUID, uuid.UUID, error) {
	first, err := parseID(a)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	second, err := parseID(b)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return first, second, nil
}
