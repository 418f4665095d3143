package auth

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/etutoring/internal/logging"
)

type AdminChecker interface {
	AdminExists(ctx context.Context) (bool, error)
}

const ctxBootstrap = "bootstrap"

// IsBootstrap reports whether the request passed RequireAdminUnlessBootstrap
// without credentials. Handlers must then create the admin with a re-check.
func IsBootstrap(c echo.Context) bool {
	v, _ := c.Get(ctxBootstrap).(bool)
	return v
}

// RequireAdminUnlessBootstrap lets the request through unauthenticated while no
// admin account exists. Afterwards it behaves like RequireAuth plus RequireAdmin.
func (a *Authenticator) RequireAdminUnlessBootstrap(admins AdminChecker) echo.MiddlewareFunc {
	guarded := func(next echo.HandlerFunc) echo.HandlerFunc {
		return a.RequireAuth()(RequireAdmin()(next))
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		protected := guarded(next)
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			exists, err := admins.AdminExists(ctx)
			if err != nil {
				logging.FromContext(ctx).Error("bootstrap_check_error", "error", err)
				return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
			}
			if !exists {
				c.Set(ctxBootstrap, true)
				return next(c)
			}
			return protected(c)
		}
	}
}
