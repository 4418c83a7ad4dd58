package web

import (
	"net/http"

	"github.com/avolkov/cryptbucket/internal/model"
	"github.com/avolkov/cryptbucket/internal/service"
)

type addUserRequest struct {
	DisplayName string `json:"displayName" validate:"required,min=4,max=128"`
	UserName    string `json:"userName" validate:"required,min=4,max=32"`
	Password    string `json:"password" validate:"required,min=8,max=32"`
}

func (s *Server) handleAdminAddUser(w http.ResponseWriter, r *http.Request, auth *service.Authentication) {
	var req addUserRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.svc.Access.RequireGlobalPermission(auth.User, model.GlobalPermCreateUser); err != nil {
		s.writeError(w, err)
		return
	}
	user, err := s.svc.Users.CreateUser(r.Context(), req.DisplayName, req.UserName, req.Password, nil)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeOK(w, map[string]any{"userId": user.ID.String()})
}

type setGlobalPermissionsRequest struct {
	UserID            string          `json:"userId" validate:"required,uuid"`
	GlobalPermissions map[string]bool `json:"globalPermissions" validate:"required"`
}

func (s *Server) handleAdminSetGlobalPermissions(w http.ResponseWriter, r *http.Request, auth *service.Authentication) {
	var req setGlobalPermissionsRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.svc.Access.RequireGlobalPermission(auth.User, model.GlobalPermManageAllUser); err != nil {
		s.writeError(w, err)
		return
	}
	userID, err := parseID(req.UserID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.svc.Users.SetGlobalPermissions(r.Context(), userID, req.GlobalPermissions); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeOK(w, nil)
}

type setBanningStatusRequest struct {
	UserID   string `json:"userId" validate:"required,uuid"`
	IsBanned *bool  `json:"isBanned" validate:"required"`
}

func (s *Server) handleAdminSetBanningStatus(w http.ResponseWriter, r *http.Request, auth *service.Authentication) {
	var req setBanningStatusRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.svc.Access.RequireGlobalPermission(auth.User, model.GlobalPermManageAllUser); err != nil {
		s.writeError(w, err)
		return
	}
	userID, err := parseID(req.UserID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.svc.Users.SetBanningStatus(r.Context(), userID, *req.IsBanned); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeOK(w, nil)
}

type overwriteUserPasswordRequest struct {
	UserID      string `json:"userId" validate:"required,uuid"`
	NewPassword string `json:"newPassword" validate:"required,min=8,max=32"`
}

func (s *Server) handleAdminOverwriteUserPassword(w http.ResponseWriter, r *http.Request, auth *service.Authentication) {
	var req overwriteUserPasswordRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.svc.Access.RequireGlobalPermission(auth.User, model.GlobalPermManageAllUser); err != nil {
		s.writeError(w, err)
		return
	}
	userID, err := parseID(req.UserID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.svc.Users.OverwritePassword(r.Context(), userID, req.NewPassword); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeOK(w, nil)
}
