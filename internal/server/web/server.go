// Package web exposes the HTTP API: JSON dispatch endpoints under /api plus
// the raw blob streaming endpoints.
package web

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/avolkov/cryptbucket/internal/service"
)

// Services bundles everything the HTTP layer dispatches to.
type Services struct {
	Auth        service.AuthService
	Users       service.UserService
	Access      service.AccessService
	Buckets     service.BucketService
	Directories service.DirectoryService
	Files       service.FileService
	Blobs       service.BlobService
	Metrics     service.MetricsService
}

// Server is the HTTP front of the application.
type Server struct {
	logger   *zap.Logger
	validate *validator.Validate
	svc      Services
}

// New constructs the HTTP server over the given services.
func New(logger *zap.Logger, svc Services) *Server {
	return &Server{
		logger:   logger,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		svc:      svc,
	}
}

// Router builds the full route table with the middleware chain applied.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.withRecover, s.withRequestLog)

	api := r.PathPrefix("/api").Subrouter()

	// user
	api.HandleFunc("/user/login", s.handleUserLogin).Methods(http.MethodPost)
	api.HandleFunc("/user/assert", s.authed(s.handleUserAssert)).Methods(http.MethodPost)
	api.HandleFunc("/user/logout", s.authed(s.handleUserLogout)).Methods(http.MethodPost)
	api.HandleFunc("/user/logout-all-sessions", s.authed(s.handleUserLogoutAllSessions)).Methods(http.MethodPost)
	api.HandleFunc("/user/list-all-sessions", s.authed(s.handleUserListAllSessions)).Methods(http.MethodPost)
	api.HandleFunc("/user/list", s.authed(s.handleUserList)).Methods(http.MethodPost)
	api.HandleFunc("/user/update-password", s.authed(s.handleUserUpdatePassword)).Methods(http.MethodPost)
	api.HandleFunc("/user/update-profile", s.authed(s.handleUserUpdateProfile)).Methods(http.MethodPost)

	// admin
	api.HandleFunc("/admin/iam/add-user", s.authed(s.handleAdminAddUser)).Methods(http.MethodPost)
	api.HandleFunc("/admin/iam/set-global-permissions", s.authed(s.handleAdminSetGlobalPermissions)).Methods(http.MethodPost)
	api.HandleFunc("/admin/iam/set-banning-status", s.authed(s.handleAdminSetBanningStatus)).Methods(http.MethodPost)
	api.HandleFunc("/admin/iam/overwrite-user-password", s.authed(s.handleAdminOverwriteUserPassword)).Methods(http.MethodPost)

	// bucket
	api.HandleFunc("/bucket/create", s.authed(s.handleBucketCreate)).Methods(http.MethodPost)
	api.HandleFunc("/bucket/list", s.authed(s.handleBucketList)).Methods(http.MethodPost)
	api.HandleFunc("/bucket/rename", s.authed(s.handleBucketRename)).Methods(http.MethodPost)
	api.HandleFunc("/bucket/destroy", s.authed(s.handleBucketDestroy)).Methods(http.MethodPost)
	api.HandleFunc("/bucket/set-metadata", s.authed(s.handleBucketSetMetaData)).Methods(http.MethodPost)
	api.HandleFunc("/bucket/set-authorization", s.authed(s.handleBucketSetAuthorization)).Methods(http.MethodPost)

	// directory
	api.HandleFunc("/directory/create", s.authed(s.handleDirectoryCreate)).Methods(http.MethodPost)
	api.HandleFunc("/directory/get", s.authed(s.handleDirectoryGet)).Methods(http.MethodPost)
	api.HandleFunc("/directory/rename", s.authed(s.handleDirectoryRename)).Methods(http.MethodPost)
	api.HandleFunc("/directory/move", s.authed(s.handleDirectoryMove)).Methods(http.MethodPost)
	api.HandleFunc("/directory/delete", s.authed(s.handleDirectoryDelete)).Methods(http.MethodPost)
	api.HandleFunc("/directory/set-metadata", s.authed(s.handleDirectorySetMetaData)).Methods(http.MethodPost)
	api.HandleFunc("/directory/set-encrypted-metadata", s.authed(s.handleDirectorySetEncryptedMetaData)).Methods(http.MethodPost)

	// file
	api.HandleFunc("/file/create", s.authed(s.handleFileCreate)).Methods(http.MethodPost)
	api.HandleFunc("/file/get", s.authed(s.handleFileGet)).Methods(http.MethodPost)
	api.HandleFunc("/file/rename", s.authed(s.handleFileRename)).Methods(http.MethodPost)
	api.HandleFunc("/file/move", s.authed(s.handleFileMove)).Methods(http.MethodPost)
	api.HandleFunc("/file/delete", s.authed(s.handleFileDelete)).Methods(http.MethodPost)
	api.HandleFunc("/file/set-metadata", s.authed(s.handleFileSetMetaData)).Methods(http.MethodPost)
	api.HandleFunc("/file/set-encrypted-metadata", s.authed(s.handleFileSetEncryptedMetaData)).Methods(http.MethodPost)

	// metrics
	api.HandleFunc("/metrics/get-summary", s.authed(s.handleMetricsGetSummary)).Methods(http.MethodPost)

	// blob streaming
	api.HandleFunc("/blob/write/{bucketId}/{fileId}", s.authed(s.handleBlobWrite)).Methods(http.MethodPost)
	api.HandleFunc("/blob/write-quantized/{bucketId}/{fileId}/{blobId}/{offset}/{shouldEnd}", s.authed(s.handleBlobWriteQuantized)).Methods(http.MethodPost)
	api.HandleFunc("/blob/read/{bucketId}/{fileId}", s.authed(s.handleBlobRead)).Methods(http.MethodGet)

	return r
}

// authed resolves the Authorization header before invoking the handler.
func (s *Server) authed(next func(http.ResponseWriter, *http.Request, *service.Authentication)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		auth, err := s.svc.Auth.Authenticate(r.Context(), r.Header.Get("Authorization"))
		if err != nil {
			s.writeError(w, err)
			return
		}
		next(w, r, auth)
	}
}
