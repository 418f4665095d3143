package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/etutoring/internal/db"
	"github.com/Skotchmaster/etutoring/internal/models"
	"github.com/Skotchmaster/etutoring/internal/repo"
	"github.com/Skotchmaster/etutoring/internal/tokens"
)

var secret = []byte("middleware-secret")

type fixture struct {
	e     *echo.Echo
	repo  *repo.GormRepo
	authn *Authenticator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gdb, err := db.OpenTest()
	require.NoError(t, err)
	r := repo.New(gdb)
	return &fixture{e: echo.New(), repo: r, authn: &Authenticator{Users: r, JWTSecret: secret}}
}

func (f *fixture) user(t *testing.T, email, role string) *models.User {
	t.Helper()
	u := &models.User{FullName: email, Email: email, PasswordHash: "x", Role: role, Active: true}
	require.NoError(t, f.repo.CreateUser(context.Background(), u))
	return u
}

func token(t *testing.T, u *models.User, ttl time.Duration, now time.Time) string {
	t.Helper()
	tok, _, err := tokens.NewAccessToken(secret, u.ID, u.Email, u.Role, ttl, now)
	require.NoError(t, err)
	return tok
}

func (f *fixture) do(method, path, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if bearer != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	return rec
}

func TestRequireAuth(t *testing.T) {
	f := newFixture(t)
	student := f.user(t, "sam@uni.edu", models.RoleStudent)
	reached := 0
	f.e.GET("/me", func(c echo.Context) error {
		reached++
		id, ok := UserID(c)
		require.True(t, ok)
		u, ok := CurrentUser(c)
		require.True(t, ok)
		assert.Equal(t, u.ID, id)
		return c.String(http.StatusOK, Role(c))
	}, f.authn.RequireAuth())

	rec := f.do(http.MethodGet, "/me", token(t, student, time.Hour, time.Now()))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.RoleStudent, rec.Body.String())

	refresh, _, _, err := tokens.NewRefreshToken(secret, student.ID, time.Hour, time.Now())
	require.NoError(t, err)

	cases := []struct {
		name   string
		bearer string
		msg    string
	}{
		{"missing", "", "no token"},
		{"refresh token as bearer", refresh, "invalid or expired token"},
		{"garbage", "not.a.jwt", "invalid or expired token"},
		{"expired", token(t, student, time.Minute, time.Now().Add(-time.Hour)), "invalid or expired token"},
		{"unknown user", token(t, &models.User{Base: models.Base{ID: uuid.New()}, Role: models.RoleAdmin}, time.Hour, time.Now()), "user not found"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := f.do(http.MethodGet, "/me", tc.bearer)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Contains(t, rec.Body.String(), tc.msg)
		})
	}
	assert.Equal(t, 1, reached)
}

func TestRequireAuth_DeactivatedUserRejected(t *testing.T) {
	f := newFixture(t)
	student := f.user(t, "sam@uni.edu", models.RoleStudent)
	tok := token(t, student, time.Hour, time.Now())
	f.e.GET("/me", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, f.authn.RequireAuth())

	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/me", tok).Code)

	require.NoError(t, f.repo.SetUserActive(context.Background(), student.ID, false))
	rec := f.do(http.MethodGet, "/me", tok)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "account deactivated")

	_, err := f.authn.AuthenticateToken(context.Background(), tok)
	assert.ErrorIs(t, err, ErrAccountDeactivated)
}

func TestRoleGateMatrix(t *testing.T) {
	f := newFixture(t)
	admin := f.user(t, "root@uni.edu", models.RoleAdmin)
	tutor := f.user(t, "tom@uni.edu", models.RoleTutor)
	student := f.user(t, "sam@uni.edu", models.RoleStudent)

	ok := func(c echo.Context) error { return c.NoContent(http.StatusOK) }
	f.e.GET("/admin", ok, f.authn.RequireAuth(), RequireAdmin())
	f.e.GET("/staff", ok, f.authn.RequireAuth(), RequireRole(models.RoleTutor, models.RoleAdmin))
	f.e.GET("/users/:id", ok, f.authn.RequireAuth(), RequireOwnerOrAdmin("id"))

	cases := []struct {
		who  *models.User
		path string
		want int
	}{
		{admin, "/admin", http.StatusOK},
		{tutor, "/admin", http.StatusForbidden},
		{student, "/admin", http.StatusForbidden},
		{tutor, "/staff", http.StatusOK},
		{student, "/staff", http.StatusForbidden},
		{student, "/users/" + student.ID.String(), http.StatusOK},
		{student, "/users/" + tutor.ID.String(), http.StatusForbidden},
		{admin, "/users/" + student.ID.String(), http.StatusOK},
	}
	for _, tc := range cases {
		rec := f.do(http.MethodGet, tc.path, token(t, tc.who, time.Hour, time.Now()))
		assert.Equal(t, tc.want, rec.Code, "%s %s", tc.who.Role, tc.path)
	}
}

type adminFlag bool

func (a *adminFlag) AdminExists(context.Context) (bool, error) { return bool(*a), nil }

func TestRequireAdminUnlessBootstrap(t *testing.T) {
	f := newFixture(t)
	exists := adminFlag(false)
	f.e.POST("/register-admin", func(c echo.Context) error {
		return c.NoContent(http.StatusCreated)
	}, f.authn.RequireAdminUnlessBootstrap(&exists))

	assert.Equal(t, http.StatusCreated, f.do(http.MethodPost, "/register-admin", "").Code)

	exists = true
	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodPost, "/register-admin", "").Code)

	tutor := f.user(t, "tom@uni.edu", models.RoleTutor)
	assert.Equal(t, http.StatusForbidden, f.do(http.MethodPost, "/register-admin", token(t, tutor, time.Hour, time.Now())).Code)

	admin := f.user(t, "root@uni.edu", models.RoleAdmin)
	assert.Equal(t, http.StatusCreated, f.do(http.MethodPost, "/register-admin", token(t, admin, time.Hour, time.Now())).Code)
}

func TestRequireAPIKey(t *testing.T) {
	e := echo.New()
	e.GET("/metrics", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, RequireAPIKey("s3cret"))

	for key, want := range map[string]int{"": http.StatusUnauthorized, "nope": http.StatusUnauthorized, "s3cret": http.StatusOK} {
		req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
		if key != "" {
			req.Header.Set(HeaderAPIKey, key)
		}
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		assert.Equal(t, want, rec.Code, key)
	}
}

func TestRefreshCookie(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), rec)

	Cookies{Secure: true}.SetRefresh(c, "tok", time.Now().Add(time.Hour))
	res := rec.Result()
	defer res.Body.Close()
	require.Len(t, res.Cookies(), 1)
	ck := res.Cookies()[0]
	assert.Equal(t, RefreshCookie, ck.Name)
	assert.True(t, ck.HttpOnly)
	assert.True(t, ck.Secure)

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.AddCookie(&http.Cookie{Name: RefreshCookie, Value: "abc"})
	assert.Equal(t, "abc", RefreshToken(e.NewContext(req, httptest.NewRecorder())))
}
