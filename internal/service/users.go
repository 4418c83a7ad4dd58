package service

import (
	"context"
	"errors"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	pkgcrypto "github.com/avolkov/cryptbucket/internal/crypto"
	"github.com/avolkov/cryptbucket/internal/errs"
	"github.com/avolkov/cryptbucket/internal/model"
	"github.com/avolkov/cryptbucket/internal/repository"
)

// Default admin credentials created on first boot. The password is expected
// to be changed immediately.
const (
	DefaultAdminUserName    = "admin"
	DefaultAdminPassword    = "PleaseChangeMe@YourEarliest2Day"
	DefaultAdminDisplayName = "Default Admin"
)

const saltLength = 16

// UserService covers account management, both self-service and admin.
type UserService interface {
	// CreateUser registers an account. New users default to CREATE_BUCKET
	// only.
	CreateUser(ctx context.Context, displayName, userName, password string, perms map[string]bool) (*model.User, error)
	// List returns all accounts.
	List(ctx context.Context) ([]model.User, error)
	// UpdateProfile sets the caller's display name.
	UpdateProfile(ctx context.Context, userID uuid.UUID, displayName string) error
	// UpdateOwnPassword verifies the current password, replaces it and
	// expires every session of the user.
	UpdateOwnPassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string) error
	// OverwritePassword force-sets a password and expires every session.
	OverwritePassword(ctx context.Context, userID uuid.UUID, newPassword string) error
	// SetGlobalPermissions replaces the target's global permission map.
	SetGlobalPermissions(ctx context.Context, userID uuid.UUID, perms map[string]bool) error
	// SetBanningStatus bans or unbans; banning expires every session.
	SetBanningStatus(ctx context.Context, userID uuid.UUID, isBanned bool) error
	// EnsureDefaultAdmin creates the bootstrap admin account if no account
	// with its user name exists.
	EnsureDefaultAdmin(ctx context.Context) error
}

type UserServiceImpl struct {
	users    repository.UserRepository
	sessions repository.SessionRepository
	logger   *zap.Logger
}

// NewUserService constructs UserService with required dependencies.
func NewUserService(users repository.UserRepository, sessions repository.SessionRepository, logger *zap.Logger) *UserServiceImpl {
	return &UserServiceImpl{users: users, sessions: sessions, logger: logger}
}

// CreateUser registers an account with per-user salt and argon2id hash.
func (s *UserServiceImpl) CreateUser(ctx context.Context, displayName, userName, password string, perms map[string]bool) (*model.User, error) {
	if perms == nil {
		perms = model.DefaultGlobalPermissionsForNewUser()
	}
	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	salt, err := pkgcrypto.RandBytes(saltLength)
	if err != nil {
		return nil, err
	}
	u := &model.User{
		ID:                id,
		DisplayName:       displayName,
		UserName:          userName,
		PwdHash:           pkgcrypto.HashPassword([]byte(password), salt),
		PwdSalt:           salt,
		GlobalPermissions: perms,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, errs.ErrAlreadyExists) {
			return nil, errs.User("USER_NAME_ALREADY_IN_USE", "The user name is already taken.")
		}
		return nil, err
	}
	return u, nil
}

// List returns all accounts.
func (s *UserServiceImpl) List(ctx context.Context) ([]model.User, error) {
	return s.users.List(ctx)
}

// UpdateProfile sets the display name.
func (s *UserServiceImpl) UpdateProfile(ctx context.Context, userID uuid.UUID, displayName string) error {
	if err := s.users.UpdateDisplayName(ctx, userID, displayName); err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return errs.User("USER_NOT_FOUND", "No user matches the provided identifier.")
		}
		return err
	}
	return nil
}

// UpdateOwnPassword verifies the current password before replacing it. All of
// the user's sessions are expired on success.
func (s *UserServiceImpl) UpdateOwnPassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string) error {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return errs.User("USER_NOT_FOUND", "No user matches the provided identifier.")
		}
		return err
	}
	if !pkgcrypto.VerifyPassword([]byte(currentPassword), u.PwdSalt, u.PwdHash) {
		return errs.User("INCORRECT_PASSWORD", "The current password is incorrect.")
	}
	return s.replacePassword(ctx, userID, newPassword, "ForceLogout: Password changed")
}

// OverwritePassword force-sets a password without knowing the current one.
func (s *UserServiceImpl) OverwritePassword(ctx context.Context, userID uuid.UUID, newPassword string) error {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return errs.User("USER_NOT_FOUND", "No user matches the provided identifier.")
		}
		return err
	}
	return s.replacePassword(ctx, userID, newPassword, "ForceLogout: Password overwritten by admin")
}

func (s *UserServiceImpl) replacePassword(ctx context.Context, userID uuid.UUID, newPassword, expireReason string) error {
	salt, err := pkgcrypto.RandBytes(saltLength)
	if err != nil {
		return err
	}
	hash := pkgcrypto.HashPassword([]byte(newPassword), salt)
	if err := s.users.UpdatePassword(ctx, userID, hash, salt); err != nil {
		return err
	}
	return s.sessions.ExpireAllByUser(ctx, userID, expireReason)
}

// SetGlobalPermissions replaces the permission map. Unknown names are
// rejected so typos cannot silently grant nothing.
func (s *UserServiceImpl) SetGlobalPermissions(ctx context.Context, userID uuid.UUID, perms map[string]bool) error {
	full := make(map[string]bool, len(model.GlobalPermissionNames))
	for _, name := range model.GlobalPermissionNames {
		full[name] = perms[name]
	}
	for name := range perms {
		if _, ok := full[name]; !ok {
			return errs.Validation("Unknown global permission.", map[string]string{"permission": name})
		}
	}
	if err := s.users.SetGlobalPermissions(ctx, userID, full); err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return errs.User("USER_NOT_FOUND", "No user matches the provided identifier.")
		}
		return err
	}
	return nil
}

// SetBanningStatus bans or unbans. Banning expires all sessions so an active
// API key cannot outlive the ban.
func (s *UserServiceImpl) SetBanningStatus(ctx context.Context, userID uuid.UUID, isBanned bool) error {
	if err := s.users.SetBanningStatus(ctx, userID, isBanned); err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return errs.User("USER_NOT_FOUND", "No user matches the provided identifier.")
		}
		return err
	}
	if isBanned {
		return s.sessions.ExpireAllByUser(ctx, userID, "ForceLogout: Account banned")
	}
	return nil
}

// EnsureDefaultAdmin creates the bootstrap admin with every global
// permission when it does not exist yet.
func (s *UserServiceImpl) EnsureDefaultAdmin(ctx context.Context) error {
	_, err := s.users.GetByUserName(ctx, DefaultAdminUserName)
	if err == nil {
		return nil
	}
	if !errors.Is(err, errs.ErrNotFound) {
		return err
	}

	perms := make(map[string]bool, len(model.GlobalPermissionNames))
	for _, name := range model.GlobalPermissionNames {
		perms[name] = true
	}
	if _, err := s.CreateUser(ctx, DefaultAdminDisplayName, DefaultAdminUserName, DefaultAdminPassword, perms); err != nil {
		// Lost a race against a concurrent bootstrap.
		if errs.HasCode(err, "USER_NAME_ALREADY_IN_USE") {
			return nil
		}
		return err
	}
	s.logger.Info("default admin account created", zap.String("userName", DefaultAdminUserName))
	return nil
}
