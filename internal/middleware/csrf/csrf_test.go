package csrf

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(cfg Config) *echo.Echo {
	e := echo.New()
	e.Use(Middleware(cfg))
	ok := func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }
	e.GET("/token", ok)
	e.POST("/refresh", ok)
	e.POST("/hook", ok)
	return e
}

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestSafeMethodIssuesToken(t *testing.T) {
	e := newServer(Config{})
	rec := serve(e, httptest.NewRequest(http.MethodGet, "/token", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	token := rec.Header().Get("X-CSRF-Token")
	require.NotEmpty(t, token)
	res := rec.Result()
	defer res.Body.Close()
	require.NotEmpty(t, res.Cookies())
	assert.Equal(t, token, res.Cookies()[0].Value)
	assert.False(t, res.Cookies()[0].HttpOnly)
}

func TestUnsafeMethodRequiresMatchingToken(t *testing.T) {
	e := newServer(Config{TrustedOrigins: []string{"https://app.uni.edu"}})

	post := func(origin, cookie, header string) int {
		req := httptest.NewRequest(http.MethodPost, "/refresh", nil)
		if origin != "" {
			req.Header.Set(echo.HeaderOrigin, origin)
		}
		if cookie != "" {
			req.AddCookie(&http.Cookie{Name: "XSRF-TOKEN", Value: cookie})
		}
		if header != "" {
			req.Header.Set("X-CSRF-Token", header)
		}
		return serve(e, req).Code
	}

	assert.Equal(t, http.StatusNoContent, post("https://app.uni.edu", "abc", "abc"))
	assert.Equal(t, http.StatusNoContent, post("http://example.com", "abc", "abc"))
	assert.Equal(t, http.StatusForbidden, post("https://evil.example", "abc", "abc"))
	assert.Equal(t, http.StatusForbidden, post("", "abc", "abc"))
	assert.Equal(t, http.StatusForbidden, post("https://app.uni.edu", "abc", "abd"))
	assert.Equal(t, http.StatusForbidden, post("https://app.uni.edu", "abc", ""))
	assert.Equal(t, http.StatusForbidden, post("https://app.uni.edu", "", "abc"))
}

func TestSkipPathStillSetsCookie(t *testing.T) {
	e := newServer(Config{SkipPaths: []string{"/hook"}})
	rec := serve(e, httptest.NewRequest(http.MethodPost, "/hook", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	res := rec.Result()
	defer res.Body.Close()
	assert.NotEmpty(t, res.Cookies())
}

func TestIssue(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/login", nil), rec)

	token, err := Issue(c, Config{CookieName: "csrf"})
	require.NoError(t, err)
	assert.Equal(t, token, rec.Header().Get("X-CSRF-Token"))
	res := rec.Result()
	defer res.Body.Close()
	require.Len(t, res.Cookies(), 1)
	assert.Equal(t, "csrf", res.Cookies()[0].Name)
}
