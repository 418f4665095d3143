package auth

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/etutoring/internal/models"
)

const (
	ctxUserID = "user_id"
	ctxRole   = "role"
	ctxUser   = "user"

	RefreshCookie = "refreshToken"
	refreshPath   = "/api/v1/auth"
)

func setUserContext(c echo.Context, u *models.User) {
	c.Set(ctxUserID, u.ID)
	c.Set(ctxRole, u.Role)
	c.Set(ctxUser, u)
}

func UserID(c echo.Context) (uuid.UUID, bool) {
	id, ok := c.Get(ctxUserID).(uuid.UUID)
	return id, ok
}

func Role(c echo.Context) string {
	role, _ := c.Get(ctxRole).(string)
	return role
}

func CurrentUser(c echo.Context) (*models.User, bool) {
	u, ok := c.Get(ctxUser).(*models.User)
	return u, ok
}

// Cookies builds the refresh token cookie. Secure is off only for local http setups.
type Cookies struct {
	Secure bool
}

func (k Cookies) SetRefresh(c echo.Context, value string, expires time.Time) {
	c.SetCookie(&http.Cookie{
		Name:     RefreshCookie,
		Value:    value,
		Path:     refreshPath,
		Expires:  expires,
		HttpOnly: true,
		Secure:   k.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (k Cookies) ClearRefresh(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     RefreshCookie,
		Value:    "",
		Path:     refreshPath,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   k.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func RefreshToken(c echo.Context) string {
	ck, err := c.Cookie(RefreshCookie)
	if err != nil {
		return ""
	}
	return ck.Value
}
