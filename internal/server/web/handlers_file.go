package web

import (
	"encoding/json"
	"net/http"

	"github.com/gofrs/uuid/v5"

	"github.com/avolkov/cryptbucket/internal/model"
	"github.com/avolkov/cryptbucket/internal/service"
)

type fileCreateRequest struct {
	BucketID          string          `json:"bucketId" validate:"required,uuid"`
	ParentDirectoryID string          `json:"parentDirectoryId" validate:"required,uuid"`
	Name              string          `json:"name" validate:"required,min=1,max=256"`
	MetaData          json.RawMessage `json:"metaData" validate:"required"`
	EncryptedMetaData string          `json:"encryptedMetaData" validate:"required,max=1048576"`
}

func (s *Server) handleFileCreate(w http.ResponseWriter, r *http.Request, auth *service.Authentication) {
	var req fileCreateRequest
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
	file, err := s.svc.Files.Create(r.Context(), bucketID, parentID, req.Name, req.MetaData, req.EncryptedMetaData)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeOK(w, map[string]any{"fileId": file.ID.String()})
}

type fileGetRequest struct {
	BucketID string `json:"bucketId" validate:"required,uuid"`
	FileID   string `json:"fileId" validate:"required,uuid"`
}

func (s *Server) handleFileGet(w http.ResponseWriter, r *http.Request, auth *service.Authentication) {
	var req fileGetRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	bucketID, fileID, err := parseTwoIDs(req.BucketID, req.FileID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if _, err := s.svc.Access.EnsureFileBelongsToBucket(r.Context(), bucketID, fileID); err != nil {
		s.writeError(w, err)
		return
	}
	if _, err := s.svc.Access.RequireBucketAuthorization(r.Context(), auth.UserID, bucketID, model.BucketPermViewContent); err != nil {
		s.writeError(w, err)
		return
	}
	file, err := s.svc.Files.Get(r.Context(), bucketID, fileID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeOK(w, map[string]any{"file": toFileView(file)})
}

type fileRenameRequest struct {
	BucketID string `json:"bucketId" validate:"required,uuid"`
	FileID   string `json:"fileId" validate:"required,uuid"`
	Name     string `json:"name" validate:"required,min=1,max=256"`
}

func (s *Server) handleFileRename(w http.ResponseWriter, r *http.Request, auth *service.Authentication) {
	var req fileRenameRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	bucketID, fileID, err := s.guardFileWrite(w, r, auth, req.BucketID, req.FileID)
	if err != nil {
		return
	}
	if err := s.svc.Files.Rename(r.Context(), bucketID, fileID, req.Name); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeOK(w, nil)
}

type fileMoveRequest struct {
	BucketID             string `json:"bucketId" validate:"required,uuid"`
	FileID               string `json:"fileId" validate:"required,uuid"`
	NewParentDirectoryID string `json:"newParentDirectoryId" validate:"required,uuid"`
	NewName              string `json:"newName" validate:"required,min=1,max=256"`
}

func (s *Server) handleFileMove(w http.ResponseWriter, r *http.Request, auth *service.Authentication) {
	var req fileMoveRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	bucketID, fileID, err := s.guardFileWrite(w, r, auth, req.BucketID, req.FileID)
	if err != nil {
		return
	}
	newParentID, err := parseID(req.NewParentDirectoryID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.svc.Files.Move(r.Context(), bucketID, fileID, newParentID, req.NewName); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeOK(w, nil)
}

func (s *Server) handleFileDelete(w http.ResponseWriter, r *http.Request, auth *service.Authentication) {
	var req fileGetRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	bucketID, fileID, err := s.guardFileWrite(w, r, auth, req.BucketID, req.FileID)
	if err != nil {
		return
	}
	if err := s.svc.Files.Delete(r.Context(), bucketID, fileID); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeOK(w, nil)
}

type fileSetMetaDataRequest struct {
	BucketID string          `json:"bucketId" validate:"required,uuid"`
	FileID   string          `json:"fileId" validate:"required,uuid"`
	MetaData json.RawMessage `json:"metaData" validate:"required"`
}

func (s *Server) handleFileSetMetaData(w http.ResponseWriter, r *http.Request, auth *service.Authentication) {
	var req fileSetMetaDataRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	bucketID, fileID, err := s.guardFileWrite(w, r, auth, req.BucketID, req.FileID)
	if err != nil {
		return
	}
	if err := s.svc.Files.SetMetaData(r.Context(), bucketID, fileID, req.MetaData); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeOK(w, nil)
}

type fileSetEncryptedMetaDataRequest struct {
	BucketID          string `json:"bucketId" validate:"required,uuid"`
	FileID            string `json:"fileId" validate:"required,uuid"`
	EncryptedMetaData string `json:"encryptedMetaData" validate:"required,max=1048576"`
}

func (s *Server) handleFileSetEncryptedMetaData(w http.ResponseWriter, r *http.Request, auth *service.Authentication) {
	var req fileSetEncryptedMetaDataRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	bucketID, fileID, err := s.guardFileWrite(w, r, auth, req.BucketID, req.FileID)
	if err != nil {
		return
	}
	if err := s.svc.Files.SetEncryptedMetaData(r.Context(), bucketID, fileID, req.EncryptedMetaData); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeOK(w, nil)
}

// guardFileWrite mirrors guardDirectoryWrite for file mutations.
func (s *Server) guardFileWrite(w http.ResponseWriter, r *http.Request, auth *service.Authentication, rawBucketID, rawFileID string) (uuid.UUID, uuid.UUID, error) {
	bucketID, fileID, err := parseTwoIDs(rawBucketID, rawFileID)
	if err != nil {
		s.writeError(w, err)
		return uuid.Nil, uuid.Nil, err
	}
	if _, err := s.svc.Access.EnsureFileBelongsToBucket(r.Context(), bucketID, fileID); err != nil {
		s.writeError(w, err)
		return uuid.Nil, uuid.Nil, err
	}
	if _, err := s.svc.Access.RequireBucketAuthorization(r.Context(), auth.UserID, bucketID, model.BucketPermManageContent); err != nil {
		s.writeError(w, err)
		return uuid.Nil, uuid.Nil, err
	}
	return bucketID, fileID, nil
}
