// Package auth registers farmers and issues bearer session tokens.
package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/sells-group/crop-advisor/internal/model"
	"github.com/sells-group/crop-advisor/internal/store"
)

var (
	// ErrValidation wraps sign-up input problems.
	ErrValidation = eris.New("auth: invalid input")
	// ErrUserExists is returned when the phone, gmail or username is taken.
	ErrUserExists = eris.New("auth: user already exists")
	// ErrInvalidCredentials is returned for an unknown identifier or wrong password.
	ErrInvalidCredentials = eris.New("auth: invalid credentials")
	// ErrInvalidToken is returned for unknown or expired session tokens.
	ErrInvalidToken = eris.New("auth: invalid or expired token")
)

const minPasswordLen = 8

// Users is the slice of the store the service needs.
type Users interface {
	CreateUser(ctx context.Context, u *model.User) error
	GetUser(ctx context.Context, id string) (*model.User, error)
	GetUserByIdentifier(ctx context.Context, identifier string) (*model.User, error)
	TouchLogin(ctx context.Context, userID string, at time.Time) error
	CreateSession(ctx context.Context, userID string, ttl time.Duration) (*model.Session, error)
	GetSession(ctx context.Context, token string) (*model.Session, error)
	DeleteSession(ctx context.Context, token string) error
}

// SignUpRequest is the registration payload.
type SignUpRequest struct {
	Phone    string `json:"phone"`
	Gmail    string `json:"gmail"`
	Username string `json:"username"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// SignInResult is returned after a successful sign-in.
type SignInResult struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      *model.User `json:"user"`
}

// Service implements sign-up, sign-in and token lookup.
type Service struct {
	users Users
	ttl   time.Duration
	cost  int
	now   func() time.Time
}

// NewService creates a Service. Sessions live for ttl.
func NewService(users Users, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &Service{users: users, ttl: ttl, cost: bcrypt.DefaultCost, now: time.Now}
}

// SignUp validates and stores a new user.
func (s *Service) SignUp(ctx context.Context, req SignUpRequest) (*model.User, error) {
	u, err := normalizeSignUp(req)
	if err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return nil, eris.Wrap(err, "auth: hash password")
	}
	u.PasswordHash = string(hash)

	if err := s.users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, ErrUserExists
		}
		return nil, eris.Wrap(err, "auth: create user")
	}
	zap.L().Info("auth: user registered", zap.String("user_id", u.ID), zap.String("username", u.Username))
	return u, nil
}

// SignIn checks a password for a phone, gmail or username and opens a session.
func (s *Service) SignIn(ctx context.Context, identifier, password string) (*SignInResult, error) {
	identifier = strings.ToLower(strings.TrimSpace(identifier))
	if identifier == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	u, err := s.users.GetUserByIdentifier(ctx, identifier)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, eris.Wrap(err, "auth: lookup user")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	now := s.now().UTC()
	if err := s.users.TouchLogin(ctx, u.ID, now); err != nil {
		return nil, eris.Wrap(err, "auth: update last login")
	}
	u.LastLogin = &now

	sess, err := s.users.CreateSession(ctx, u.ID, s.ttl)
	if err != nil {
		return nil, eris.Wrap(err, "auth: create session")
	}
	return &SignInResult{Token: sess.Token, ExpiresAt: sess.ExpiresAt, User: u}, nil
}

// Authenticate resolves a bearer token to its user.
func (s *Service) Authenticate(ctx context.Context, token string) (*model.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}
	sess, err := s.users.GetSession(ctx, token)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, eris.Wrap(err, "auth: lookup session")
	}
	u, err := s.users.GetUser(ctx, sess.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, eris.Wrap(err, "auth: lookup session user")
	}
	return u, nil
}

// SignOut drops a session. Unknown tokens are ignored.
func (s *Service) SignOut(ctx context.Context, token string) error {
	return eris.Wrap(s.users.DeleteSession(ctx, token), "auth: sign out")
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
