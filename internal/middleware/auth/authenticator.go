package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/etutoring/internal/models"
	"github.com/Skotchmaster/etutoring/internal/tokens"
)

var (
	ErrNoToken            = errors.New("no token")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrUserNotFound       = errors.New("user not found")
	ErrAccountDeactivated = errors.New("account deactivated")
)

type UserLoader interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Authenticator resolves an access token to an active user.
type Authenticator struct {
	Users     UserLoader
	JWTSecret []byte
}

// AuthenticateToken verifies raw and loads its subject. Used by transports
// that cannot go through the echo middleware chain.
func (a *Authenticator) AuthenticateToken(ctx context.Context, raw string) (*models.User, error) {
	if raw == "" {
		return nil, ErrNoToken
	}
	claims, err := tokens.AccessClaimsFromToken(raw, a.JWTSecret)
	if err != nil {
		return nil, ErrInvalidToken
	}
	return a.loadUser(ctx, claims)
}

func (a *Authenticator) loadUser(ctx context.Context, claims *tokens.AccessClaims) (*models.User, error) {
	if !claims.IsAccess() {
		return nil, ErrInvalidToken
	}
	id, err := claims.UserID()
	if err != nil {
		return nil, ErrInvalidToken
	}
	user, err := a.Users.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	if !user.Active {
		return nil, ErrAccountDeactivated
	}
	return user, nil
}
