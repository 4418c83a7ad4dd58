package web

import (
	"net/http"

	"github.com/avolkov/cryptbucket/internal/service"
)

type loginRequest struct {
	UserName string `json:"userName" validate:"required,min=4,max=32"`
	Password string `json:"password" validate:"required,min=8,max=32"`
}

func (s *Server) handleUserLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	session, user, err := s.svc.Auth.Login(r.Context(), req.UserName, req.Password, clientIP(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeOK(w, map[string]any{
		"apiKey":  session.APIKey,
		"user":    toUserView(user),
		"session": map[string]any{"id": session.ID.String()},
	})
}

func (s *Server) handleUserAssert(w http.ResponseWriter, r *http.Request, auth *service.Authentication) {
	s.writeOK(w, map[string]any{
		"apiKey":  auth.APIKey,
		"user":    toUserView(auth.User),
		"session": map[string]any{"id": auth.SessionID.String()},
	})
}

type logoutRequest struct {
	Message string `json:"message" validate:"required,min=4,max=124"`
}

func (s *Server) handleUserLogout(w http.ResponseWriter, r *http.Request, auth *service.Authentication) {
	var req logoutRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.svc.Auth.Logout(r.Context(), auth.APIKey, req.Message); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeOK(w, nil)
}

func (s *Server) handleUserLogoutAllSessions(w http.ResponseWriter, r *http.Request, auth *service.Authentication) {
	var req logoutRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.svc.Auth.LogoutAll(r.Context(), auth.UserID, req.Message); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeOK(w, nil)
}

func (s *Server) handleUserListAllSessions(w http.ResponseWriter, r *http.Request, auth *service.Authentication) {
	sessions, err := s.svc.Auth.ListSessions(r.Context(), auth.UserID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	views := make([]sessionView, 0, len(sessions))
	for _, sess := range sessions {
		views = append(views, sessionView{
			IsCurrentSession: sess.ID == auth.SessionID,
			HasExpired:       sess.HasExpired,
			ExpireReason:     sess.ExpireReason,
			CreatedAt:        sess.CreatedAt,
			ExpiredAt:        sess.ExpiredAt,
		})
	}
	s.writeOK(w, map[string]any{"sessionList": views})
}

func (s *Server) handleUserList(w http.ResponseWriter, r *http.Request, _ *service.Authentication) {
	users, err := s.svc.Users.List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	views := make([]userView, 0, len(users))
	for i := range users {
		views = append(views, toUserView(&users[i]))
	}
	s.writeOK(w, map[string]any{"userList": views})
}

type updatePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required,min=8,max=32"`
	NewPassword     string `json:"newPassword" validate:"required,min=8,max=32"`
}

func (s *Server) handleUserUpdatePassword(w http.ResponseWriter, r *http.Request, auth *service.Authentication) {
	var req updatePasswordRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.svc.Users.UpdateOwnPassword(r.Context(), auth.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeOK(w, nil)
}

type updateProfileRequest struct {
	DisplayName string `json:"displayName" validate:"required,min=4,max=128"`
}

func (s *Server) handleUserUpdateProfile(w http.ResponseWriter, r *http.Request, auth *service.Authentication) {
	var req updateProfileRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.svc.Users.UpdateProfile(r.Context(), auth.UserID, req.DisplayName); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeOK(w, nil)
}
