// Package auth implements credential checks, login/logout, and the middleware
// that turns a session into a request principal.
package auth

import (
	"context"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/atlas-ums/atlas-ums/internal/shared"
	"github.com/atlas-ums/atlas-ums/internal/users"
)

// Credentials looks up accounts for authentication.
type Credentials interface {
	GetByUsername(ctx context.Context, username string) (users.User, error)
}

// SessionAudit persists login session metadata for auditing.
type SessionAudit interface {
	CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error
	DeleteSession(ctx context.Context, id string) error
}

// Service wraps authentication business rules.
type Service struct {
	credentials Credentials
	sessions    SessionAudit
}

// NewService constructs a Service.
func NewService(credentials Credentials, sessions SessionAudit) *Service {
	return &Service{credentials: credentials, sessions: sessions}
}

// Authenticate validates username/password credentials. Unknown accounts,
// inactive accounts, and wrong passwords all collapse into the same error.
func (s *Service) Authenticate(ctx context.Context, username, password string) (users.User, error) {
	user, err := s.credentials.GetByUsername(ctx, username)
	if err != nil {
		return users.User{}, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return users.User{}, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return users.User{}, shared.ErrInvalidCredentials
	}
	return user, nil
}

// RegisterSession records the session metadata in postgres.
func (s *Service) RegisterSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	if s.sessions == nil {
		return nil
	}
	return s.sessions.CreateSession(ctx, id, userID, expiresAt, ip, ua)
}

// RemoveSession drops the session audit record.
func (s *Service) RemoveSession(ctx context.Context, id string) error {
	if s.sessions == nil {
		return nil
	}
	return s.sessions.DeleteSession(ctx, id)
}
