package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/timekeepco/timekeep/internal/domain"
	"github.com/timekeepco/timekeep/internal/session"
	"github.com/timekeepco/timekeep/internal/store"
)

var (
	// ErrUserExists is returned when the username or email is already registered.
	ErrUserExists = errors.New("username or email already registered")
	// ErrInvalidCredentials is returned for unknown users and wrong passwords alike.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrNotAuthenticated is returned when no valid session is presented.
	ErrNotAuthenticated = errors.New("not authenticated")
)

// UserStore is the persistence contract required by AuthService.
type UserStore interface {
	Create(ctx context.Context, user *domain.User) error
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

// SessionManager issues and checks session tokens.
type SessionManager interface {
	Issue(userID uint64, username string) (string, session.Claims, error)
	Verify(ctx context.Context, token string) (session.Claims, error)
	Revoke(ctx context.Context, token string) error
}

// AuthService implements ShipKeep signup, login and logout.
type AuthService struct {
	users    UserStore
	sessions SessionManager
	validate *validator.Validate
	cost     int
	logger   *slog.Logger
}

// AuthOption customises an AuthService.
type AuthOption func(*AuthService)

// WithBcryptCost overrides the hashing cost; tests use bcrypt.MinCost.
func WithBcryptCost(cost int) AuthOption {
	return func(s *AuthService) {
		s.cost = cost
	}
}

// NewAuthService wires the account store and session manager.
func NewAuthService(users UserStore, sessions SessionManager, logger *slog.Logger, opts ...AuthOption) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	s := &AuthService{
		users:    users,
		sessions: sessions,
		validate: newValidator(),
		cost:     bcrypt.DefaultCost,
		logger:   logger.With("component", "auth"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Signup validates the input and stores a new user with a bcrypt password hash.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*domain.User, error) {
	in = in.normalized()
	if err := s.validate.Struct(in); err != nil {
		return nil, validationFailure(err)
	}

	if _, err := s.users.GetByUsername(ctx, in.Username); err == nil {
		return nil, fmt.Errorf("%w: username %q is taken", ErrUserExists, in.Username)
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	if _, err := s.users.GetByEmail(ctx, in.Email); err == nil {
		return nil, fmt.Errorf("%w: email is already registered", ErrUserExists)
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: string(hash),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrUserExists
		}
		return nil, err
	}
	s.logger.Info("user signed up", "user_id", user.ID, "username", user.Username)
	return user, nil
}

// Login checks the credentials and issues a session token.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (Session, error) {
	in = in.normalized()
	if err := s.validate.Struct(in); err != nil {
		return Session{}, ErrInvalidCredentials
	}

	user, err := s.users.GetByUsername(ctx, in.Username)
	if errors.Is(err, store.ErrNotFound) {
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		s.logger.Debug("password mismatch", "username", in.Username)
		return Session{}, ErrInvalidCredentials
	}

	token, claims, err := s.sessions.Issue(user.ID, user.Username)
	if err != nil {
		return Session{}, err
	}
	return Session{
		Token:    token,
		Username: user.Username,
		UserID:   user.ID,
		Expires:  claims.Expires,
	}, nil
}

// CheckSession resolves a session token to its claims.
func (s *AuthService) CheckSession(ctx context.Context, token string) (session.Claims, error) {
	if token == "" {
		return session.Claims{}, ErrNotAuthenticated
	}
	claims, err := s.sessions.Verify(ctx, token)
	if err != nil {
		if errors.Is(err, session.ErrInvalidToken) || errors.Is(err, session.ErrTokenRevoked) {
			return session.Claims{}, ErrNotAuthenticated
		}
		return session.Claims{}, err
	}
	return claims, nil
}

// Logout revokes the token. Missing or already invalid tokens are not an error.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.sessions.Revoke(ctx, token)
}
