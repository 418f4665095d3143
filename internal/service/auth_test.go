package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/etutoring/internal/models"
	"github.com/Skotchmaster/etutoring/internal/tokens"
)

func TestAuthService_Login_IssuesTokens(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.user(t, "ann", models.RoleStudent)

	res, err := env.auth.Login(ctx, LoginInput{Email: "ANN@uni.edu", Password: "Secret123", IP: "10.0.0.1", UserAgent: "test"})
	require.NoError(t, err)
	assert.Equal(t, u.ID, res.User.ID)
	require.NotNil(t, res.User.LastLoginAt)

	claims, err := tokens.AccessClaimsFromToken(res.AccessToken, env.auth.JWTSecret)
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, claims.Role)
	assert.Equal(t, u.ID.String(), claims.Subject)
	assert.Equal(t, "ann@uni.edu", claims.Email)
	assert.WithinDuration(t, time.Now().Add(time.Hour), res.AccessExp, 5*time.Second)

	refresh, err := tokens.RefreshClaimsFromToken(res.RefreshToken, env.auth.RefreshSecret)
	require.NoError(t, err)
	stored, err := env.repo.FindRefreshByJTI(ctx, refresh.ID)
	require.NoError(t, err)
	assert.Equal(t, tokens.Sha256Hex(res.RefreshToken), stored.TokenHash)
	assert.False(t, stored.Revoked)

	total, logins, err := env.repo.ListLogins(ctx, u.ID, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "10.0.0.1", logins[0].IP)

	assert.Contains(t, env.pub.types(), "user_logged_in")
}

func TestAuthService_Login_Failures(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.user(t, "root", models.RoleAdmin)
	u := env.user(t, "ann", models.RoleStudent)
	_, err := env.users.SetActive(ctx, ActorOf(admin), u.ID, false)
	require.NoError(t, err)

	tests := []struct {
		name     string
		email    string
		password string
		want     error
	}{
		{name: "unknown email", email: "nobody@uni.edu", password: "Secret123", want: ErrInvalidCredentials},
		{name: "wrong password on active", email: "root@uni.edu", password: "nope", want: ErrInvalidCredentials},
		{name: "wrong password on deactivated", email: "ann@uni.edu", password: "nope", want: ErrInvalidCredentials},
		{name: "deactivated", email: "ann@uni.edu", password: "Secret123", want: ErrAccountDeactivated},
		{name: "empty", email: "", password: "", want: ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := env.auth.Login(ctx, LoginInput{Email: tt.email, Password: tt.password})
			assert.Nil(t, res)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestAuthService_Refresh_RotatesOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.user(t, "ann", models.RoleStudent)

	login, err := env.auth.Login(ctx, LoginInput{Email: "ann@uni.edu", Password: "Secret123"})
	require.NoError(t, err)

	rotated, err := env.auth.Refresh(ctx, login.RefreshToken, "test")
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, rotated.RefreshToken)

	_, err = env.auth.Refresh(ctx, login.RefreshToken, "test")
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)

	_, err = env.auth.Refresh(ctx, rotated.RefreshToken, "test")
	require.NoError(t, err)
}

func TestAuthService_Refresh_Rejects(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.user(t, "root", models.RoleAdmin)
	u := env.user(t, "ann", models.RoleStudent)

	login, err := env.auth.Login(ctx, LoginInput{Email: "ann@uni.edu", Password: "Secret123"})
	require.NoError(t, err)

	_, err = env.auth.Refresh(ctx, "", "")
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
	_, err = env.auth.Refresh(ctx, "not-a-valid-jwt", "")
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
	_, err = env.auth.Refresh(ctx, login.AccessToken, "")
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)

	_, err = env.users.SetActive(ctx, ActorOf(admin), u.ID, false)
	require.NoError(t, err)
	_, err = env.auth.Refresh(ctx, login.RefreshToken, "")
	assert.ErrorIs(t, err, ErrAccountDeactivated)
}

func TestAuthService_Logout_IsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.user(t, "ann", models.RoleStudent)

	login, err := env.auth.Login(ctx, LoginInput{Email: "ann@uni.edu", Password: "Secret123"})
	require.NoError(t, err)

	require.NoError(t, env.auth.Logout(ctx, login.RefreshToken))
	require.NoError(t, env.auth.Logout(ctx, login.RefreshToken))
	require.NoError(t, env.auth.Logout(ctx, ""))

	_, err = env.auth.Refresh(ctx, login.RefreshToken, "")
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}
