package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/clinica/clinica/internal/platform/apperr"
)

// ErrInvalidCredentials is returned for an unknown user or a wrong password.
var ErrInvalidCredentials = errors.New("usuário ou senha inválidos")

const (
	seedAdminUsername = "admin"
	seedAdminPassword = "admin123"
)

type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      *User     `json:"user"`
}

type Service struct {
	users   UserRepository
	tokens  *TokenIssuer
	revoked *TokenRevocationStore
	logger  zerolog.Logger
}

func NewService(users UserRepository, tokens *TokenIssuer, revoked *TokenRevocationStore, logger zerolog.Logger) *Service {
	return &Service{users: users, tokens: tokens, revoked: revoked, logger: logger}
}

func (s *Service) Login(ctx context.Context, username, password string) (*Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !CheckPassword(u.PasswordHash, password) {
		s.logger.Warn().Str("username", username).Msg("failed login")
		return nil, ErrInvalidCredentials
	}

	token, claims, err := s.tokens.Issue(u)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("username", u.Username).Str("jti", claims.ID).Msg("login")
	return &Session{Token: token, ExpiresAt: claims.ExpiresAt.Time, User: u}, nil
}

// Logout revokes the session's jti until the token would have expired anyway.
func (s *Service) Logout(claims *Claims) {
	if claims == nil || s.revoked == nil {
		return
	}
	s.revoked.Revoke(claims.ID, claims.ExpiresAt.Time)
	s.logger.Info().Str("username", claims.Username).Str("jti", claims.ID).Msg("logout")
}

func (s *Service) Current(ctx context.Context, actor Actor) (*User, error) {
	if actor.UserID == 0 {
		return &User{Username: actor.Username, Role: actor.Role}, nil
	}
	return s.users.GetByID(ctx, actor.UserID)
}

func (s *Service) ChangePassword(ctx context.Context, actor Actor, oldPassword, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return apperr.Validation("a nova senha deve ter pelo menos %d caracteres", minPasswordLength)
	}
	u, err := s.users.GetByID(ctx, actor.UserID)
	if err != nil {
		return err
	}
	if !CheckPassword(u.PasswordHash, oldPassword) {
		return apperr.Validation("senha atual incorreta")
	}
	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	return s.users.UpdatePassword(ctx, u.ID, hash)
}

func (s *Service) CreateUser(ctx context.Context, username, password, role string) (*User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, apperr.Validation("username is required")
	}
	if len(password) < minPasswordLength {
		return nil, apperr.Validation("password must have at least %d characters", minPasswordLength)
	}
	if !ValidRole(role) {
		return nil, apperr.Validation("invalid role %q", role)
	}
	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		return nil, apperr.Validation("username %q already exists", username)
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	u := &User{Username: username, PasswordHash: hash, Role: role}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) ResetPassword(ctx context.Context, username, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return apperr.Validation("password must have at least %d characters", minPasswordLength)
	}
	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return err
	}
	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	return s.users.UpdatePassword(ctx, u.ID, hash)
}

// EnsureAdmin seeds admin/admin123 when the users table is empty and reports
// whether it did.
func (s *Service) EnsureAdmin(ctx context.Context) (bool, error) {
	n, err := s.users.Count(ctx)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}
	if _, err := s.CreateUser(ctx, seedAdminUsername, seedAdminPassword, RoleAdmin); err != nil {
		return false, err
	}
	s.logger.Warn().Msg("seeded default admin user, change its password")
	return true, nil
}
