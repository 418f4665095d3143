package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/Skotchmaster/etutoring/internal/hash"
	"github.com/Skotchmaster/etutoring/internal/logging"
	"github.com/Skotchmaster/etutoring/internal/models"
	"github.com/Skotchmaster/etutoring/internal/mykafka"
	"github.com/Skotchmaster/etutoring/internal/repo"
	"github.com/Skotchmaster/etutoring/internal/tokens"
)

type LoginRecorder interface {
	LoginAttempt(result string)
}

type AuthService struct {
	Repo          *repo.GormRepo
	Events        *Events
	Metrics       LoginRecorder
	JWTSecret     []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Now           func() time.Time
}

type LoginInput struct {
	Email     string
	Password  string
	IP        string
	UserAgent string
}

type LoginResult struct {
	AccessToken  string
	AccessExp    time.Time
	RefreshToken string
	RefreshExp   time.Time
	User         *models.User
}

func (s *AuthService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *AuthService) record(result string) {
	if s.Metrics != nil {
		s.Metrics.LoginAttempt(result)
	}
}

func (s *AuthService) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	l := logging.FromContext(ctx).With("svc", "auth.login", "email", email)

	if email == "" || in.Password == "" {
		return nil, invalid("email and password are required")
	}

	user, err := s.Repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.record("invalid_credentials")
			l.Warn("login_failed", "status", 401, "reason", "unknown email")
			return nil, ErrInvalidCredentials
		}
		return nil, storeErr(err, "user")
	}
	if !hash.CheckPassword(user.PasswordHash, in.Password) {
		s.record("invalid_credentials")
		l.Warn("login_failed", "status", 401, "reason", "password mismatch")
		return nil, ErrInvalidCredentials
	}
	if !user.Active {
		s.record("deactivated")
		l.Warn("login_failed", "status", 401, "reason", "account deactivated")
		return nil, ErrAccountDeactivated
	}

	res, err := s.issue(ctx, user, in.UserAgent)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.Repo.RecordLogin(ctx, user.ID, in.IP, in.UserAgent, now); err != nil {
		l.Error("login_history_failed", "error", err)
	} else {
		user.LastLoginAt = &now
	}

	s.record("success")
	s.Events.Publish(ctx, mykafka.TopicUserEvents, user.ID.String(), "user_logged_in", map[string]any{
		"user_id": user.ID,
		"role":    user.Role,
	})
	return res, nil
}

func (s *AuthService) issue(ctx context.Context, user *models.User, device string) (*LoginResult, error) {
	now := s.now()
	access, accessExp, err := tokens.NewAccessToken(s.JWTSecret, user.ID, user.Email, user.Role, s.AccessTTL, now)
	if err != nil {
		return nil, err
	}
	refresh, jti, refreshExp, err := tokens.NewRefreshToken(s.RefreshSecret, user.ID, s.RefreshTTL, now)
	if err != nil {
		return nil, err
	}

	row := &models.RefreshToken{
		UserID:    user.ID,
		TokenHash: tokens.Sha256Hex(refresh),
		JTI:       jti,
		Device:    device,
		ExpiresAt: refreshExp,
	}
	if err := s.Repo.SaveRefreshToken(ctx, row); err != nil {
		return nil, storeErr(err, "refresh token")
	}

	return &LoginResult{
		AccessToken:  access,
		AccessExp:    accessExp,
		RefreshToken: refresh,
		RefreshExp:   refreshExp,
		User:         user,
	}, nil
}

// Refresh rotates the refresh token. A presented token can be used once.
func (s *AuthService) Refresh(ctx context.Context, raw, device string) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.refresh")
	if raw == "" {
		return nil, ErrInvalidRefreshToken
	}

	claims, err := tokens.RefreshClaimsFromToken(raw, s.RefreshSecret)
	if err != nil {
		l.Warn("refresh_failed", "status", 401, "reason", "bad token", "error", err)
		return nil, ErrInvalidRefreshToken
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}

	user, err := s.Repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, storeErr(err, "user")
	}
	if !user.Active {
		return nil, ErrAccountDeactivated
	}

	now := s.now()
	access, accessExp, err := tokens.NewAccessToken(s.JWTSecret, user.ID, user.Email, user.Role, s.AccessTTL, now)
	if err != nil {
		return nil, err
	}
	refresh, jti, refreshExp, err := tokens.NewRefreshToken(s.RefreshSecret, user.ID, s.RefreshTTL, now)
	if err != nil {
		return nil, err
	}
	next := &models.RefreshToken{
		UserID:    user.ID,
		TokenHash: tokens.Sha256Hex(refresh),
		JTI:       jti,
		Device:    device,
		ExpiresAt: refreshExp,
	}
	if err := s.Repo.RotateRefreshToken(ctx, claims.ID, tokens.Sha256Hex(raw), next, now); err != nil {
		if errors.Is(err, repo.ErrTokenRevoked) {
			l.Warn("refresh_failed", "status", 401, "reason", "revoked or expired", "jti", claims.ID)
			return nil, ErrInvalidRefreshToken
		}
		return nil, storeErr(err, "refresh token")
	}

	return &LoginResult{
		AccessToken:  access,
		AccessExp:    accessExp,
		RefreshToken: refresh,
		RefreshExp:   refreshExp,
		User:         user,
	}, nil
}

// Logout revokes the presented refresh token. Unknown or empty tokens are not an error.
func (s *AuthService) Logout(ctx context.Context, raw string) error {
	if raw == "" {
		return nil
	}
	if err := s.Repo.RevokeRefreshToken(ctx, tokens.Sha256Hex(raw)); err != nil {
		return storeErr(err, "refresh token")
	}
	return nil
}
