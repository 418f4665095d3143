package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/etutoring/internal/logging"
	"github.com/Skotchmaster/etutoring/internal/tokens"
)

const tokenContextKey = "jwt"

// RequireAuth verifies the bearer token with echo-jwt and then loads the
// user it names. Deactivated users are rejected even with a valid token.
func (a *Authenticator) RequireAuth() echo.MiddlewareFunc {
	verify := echojwt.WithConfig(echojwt.Config{
		SigningKey:    a.JWTSecret,
		SigningMethod: "HS256",
		TokenLookup:   "header:" + echo.HeaderAuthorization + ":Bearer ",
		ContextKey:    tokenContextKey,
		NewClaimsFunc: func(echo.Context) jwt.Claims {
			return new(tokens.AccessClaims)
		},
		ErrorHandler: func(c echo.Context, err error) error {
			msg := ErrInvalidToken.Error()
			if strings.TrimSpace(c.Request().Header.Get(echo.HeaderAuthorization)) == "" {
				msg = ErrNoToken.Error()
			}
			logging.FromContext(c.Request().Context()).Warn("auth_rejected", "status", http.StatusUnauthorized, "reason", msg)
			return echo.NewHTTPError(http.StatusUnauthorized, msg)
		},
	})
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return verify(a.loadUserMiddleware(next))
	}
}

func (a *Authenticator) loadUserMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token, ok := c.Get(tokenContextKey).(*jwt.Token)
		if !ok {
			return echo.NewHTTPError(http.StatusUnauthorized, ErrInvalidToken.Error())
		}
		claims, ok := token.Claims.(*tokens.AccessClaims)
		if !ok {
			return echo.NewHTTPError(http.StatusUnauthorized, ErrInvalidToken.Error())
		}

		ctx := c.Request().Context()
		user, err := a.loadUser(ctx, claims)
		if err != nil {
			l := logging.FromContext(ctx)
			switch {
			case errors.Is(err, ErrInvalidToken), errors.Is(err, ErrUserNotFound), errors.Is(err, ErrAccountDeactivated):
				l.Warn("auth_rejected", "status", http.StatusUnauthorized, "reason", err.Error())
				return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
			default:
				l.Error("auth_user_load_error", "status", http.StatusInternalServerError, "error", err)
				return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
			}
		}

		setUserContext(c, user)
		return next(c)
	}
}
