package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"

	pkgcrypto "github.com/avolkov/cryptbucket/internal/crypto"
	"github.com/avolkov/cryptbucket/internal/errs"
	"github.com/avolkov/cryptbucket/internal/limiter"
	"github.com/avolkov/cryptbucket/internal/model"
	"github.com/avolkov/cryptbucket/internal/repository"
)

const (
	apiKeyLength = 128
	// Collision retries when minting an API key. Crossing this indicates a
	// broken random source, not bad luck.
	maxAPIKeyRetries = 99

	// DefaultSessionTTL is how long an API key stays valid after issue.
	DefaultSessionTTL = 7 * 24 * time.Hour
)

// Authentication is the resolved identity of a request.
type Authentication struct {
	APIKey    string
	SessionID uuid.UUID
	UserID    uuid.UUID
	User      *model.User
}

// AuthService issues and resolves API-key sessions.
type AuthService interface {
	// Login authenticates credentials with per-(userName, ip) rate limiting
	// and issues a fresh session.
	Login(ctx context.Context, userName, password, ip string) (*model.Session, *model.User, error)
	// CreateSession mints a unique API key for the user.
	CreateSession(ctx context.Context, userID uuid.UUID) (*model.Session, error)
	// Authenticate resolves an Authorization header to a live session.
	Authenticate(ctx context.Context, authorizationHeader string) (*Authentication, error)
	// Logout expires the session behind the API key.
	Logout(ctx context.Context, apiKey, message string) error
	// LogoutAll expires every active session of the user.
	LogoutAll(ctx context.Context, userID uuid.UUID, message string) error
	// ListSessions returns the user's most recent sessions.
	ListSessions(ctx context.Context, userID uuid.UUID) ([]model.Session, error)
}

type AuthServiceImpl struct {
	users      repository.UserRepository
	sessions   repository.SessionRepository
	lim        limiter.Limiter
	sessionTTL time.Duration
}

// NewAuthService constructs AuthService with required dependencies.
func NewAuthService(users repository.UserRepository, sessions repository.SessionRepository, lim limiter.Limiter, sessionTTL time.Duration) *AuthServiceImpl {
	if sessionTTL <= 0 {
		sessionTTL = DefaultSessionTTL
	}
	return &AuthServiceImpl{users: users, sessions: sessions, lim: lim, sessionTTL: sessionTTL}
}

// Login verifies credentials and issues a session. Failed attempts count
// toward a temporary per-(userName, ip) block.
func (s *AuthServiceImpl) Login(ctx context.Context, userName, password, ip string) (*model.Session, *model.User, error) {
	ipHash := limiter.HashIP(ip)

	allowed, _, err := s.lim.Allow(ctx, userName, ipHash)
	if err != nil {
		return nil, nil, err
	}
	if !allowed {
		return nil, nil, errs.User("RATE_LIMITED", "Too many failed login attempts. Try again later.")
	}

	u, err := s.users.GetByUserName(ctx, userName)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			s.recordFailure(ctx, userName, ipHash)
			return nil, nil, errs.User("USER_NOT_FOUND", "No user matches the provided user name.")
		}
		return nil, nil, err
	}
	if u.IsBanned {
		return nil, nil, errs.User("USER_BANNED", "This account has been banned.")
	}
	if !pkgcrypto.VerifyPassword([]byte(password), u.PwdSalt, u.PwdHash) {
		if blocked := s.recordFailure(ctx, userName, ipHash); blocked {
			return nil, nil, errs.User("RATE_LIMITED", "Too many failed login attempts. Try again later.")
		}
		return nil, nil, errs.User("INCORRECT_PASSWORD", "The provided password is incorrect.")
	}

	_ = s.lim.Success(ctx, userName, ipHash)

	sess, err := s.CreateSession(ctx, u.ID)
	if err != nil {
		return nil, nil, err
	}
	return sess, u, nil
}

func (s *AuthServiceImpl) recordFailure(ctx context.Context, userName string, ipHash []byte) bool {
	blocked, _, err := s.lim.Failure(ctx, userName, ipHash)
	return err == nil && blocked
}

// CreateSession mints an API key, retrying on the unlikely collision.
func (s *AuthServiceImpl) CreateSession(ctx context.Context, userID uuid.UUID) (*model.Session, error) {
	for i := 0; i < maxAPIKeyRetries; i++ {
		key, err := pkgcrypto.RandString(apiKeyLength)
		if err != nil {
			return nil, err
		}
		id, err := uuid.NewV4()
		if err != nil {
			return nil, err
		}
		sess := &model.Session{ID: id, UserID: userID, APIKey: key}
		err = s.sessions.Create(ctx, sess)
		if err == nil {
			return sess, nil
		}
		if !errors.Is(err, errs.ErrAlreadyExists) {
			return nil, err
		}
	}
	return nil, errs.Developer("API_KEY_CREATION_FAILED", "Could not create a unique API key.")
}

// Authenticate parses "Bearer <key>", loads the session and checks liveness.
// TTL is evaluated against the session's creation time on every call.
func (s *AuthServiceImpl) Authenticate(ctx context.Context, authorizationHeader string) (*Authentication, error) {
	if authorizationHeader == "" {
		return nil, errs.User("AUTHORIZATION_HEADER_MISSING", "The Authorization header is missing.")
	}
	scheme, key, found := strings.Cut(authorizationHeader, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || len(key) != apiKeyLength {
		return nil, errs.User("AUTHORIZATION_HEADER_MALFORMATTED", "Expected Authorization: Bearer <api key>.")
	}

	sess, err := s.sessions.GetByAPIKey(ctx, key)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, errs.User("API_KEY_NOT_FOUND", "The provided API key is not known.")
		}
		return nil, err
	}
	if sess.HasExpired || time.Since(sess.CreatedAt) > s.sessionTTL {
		return nil, errs.User("API_KEY_EXPIRED", "The provided API key has expired.")
	}

	u, err := s.users.GetByID(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	if u.IsBanned {
		return nil, errs.User("USER_BANNED", "This account has been banned.")
	}
	return &Authentication{APIKey: key, SessionID: sess.ID, UserID: u.ID, User: u}, nil
}

// Logout expires the session behind the API key with a "Logout: " reason.
func (s *AuthServiceImpl) Logout(ctx context.Context, apiKey, message string) error {
	sess, err := s.sessions.GetByAPIKey(ctx, apiKey)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return errs.User("API_KEY_NOT_FOUND", "The provided API key is not known.")
		}
		return err
	}
	return s.sessions.ExpireByID(ctx, sess.ID, "Logout: "+message)
}

// LogoutAll expires every active session of the user with a "ForceLogout: "
// reason.
func (s *AuthServiceImpl) LogoutAll(ctx context.Context, userID uuid.UUID, message string) error {
	return s.sessions.ExpireAllByUser(ctx, userID, "ForceLogout: "+message)
}

// ListSessions returns the user's twenty most recent sessions.
func (s *AuthServiceImpl) ListSessions(ctx context.Context, userID uuid.UUID) ([]model.Session, error) {
	return s.sessions.ListByUser(ctx, userID, 20)
}
