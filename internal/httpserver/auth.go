package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/etutoring/internal/logging"
	"github.com/Skotchmaster/etutoring/internal/middleware/auth"
	"github.com/Skotchmaster/etutoring/internal/middleware/csrf"
	"github.com/Skotchmaster/etutoring/internal/service"
	"github.com/Skotchmaster/etutoring/internal/transport"
)

type AuthHTTP struct {
	Svc     *service.AuthService
	Users   *service.UserService
	Cookies auth.Cookies
	CSRF    csrf.Config
}

func (h *AuthHTTP) respond(c echo.Context, res *service.LoginResult) error {
	h.Cookies.SetRefresh(c, res.RefreshToken, res.RefreshExp)
	if _, err := csrf.Issue(c, h.CSRF); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, transport.LoginResponse{
		Token:     res.AccessToken,
		ExpiresAt: res.AccessExp,
		AccountID: res.User.ID,
		Email:     res.User.Email,
		FullName:  res.User.FullName,
		Role:      res.User.Role,
	})
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.login")

	var req transport.LoginRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "login_failed", "invalid body", err)
	}

	res, err := h.Svc.Login(ctx, service.LoginInput{
		Email:     req.Email,
		Password:  req.Password,
		IP:        c.RealIP(),
		UserAgent: c.Request().UserAgent(),
	})
	if err != nil {
		return fail(l, "login_failed", err)
	}

	l.Info("login_successful", "user_id", res.User.ID)
	return h.respond(c, res)
}

func (h *AuthHTTP) Refresh(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.refresh")

	raw := auth.RefreshToken(c)
	if raw == "" {
		l.Warn("refresh_failed", "status", http.StatusUnauthorized, "reason", "missing refresh token")
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid refresh token")
	}

	res, err := h.Svc.Refresh(ctx, raw, c.Request().UserAgent())
	if err != nil {
		h.Cookies.ClearRefresh(c)
		return fail(l, "refresh_failed", err)
	}

	l.Info("refresh_successful", "user_id", res.User.ID)
	return h.respond(c, res)
}

func (h *AuthHTTP) Logout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.logout")

	if raw := auth.RefreshToken(c); raw != "" {
		if err := h.Svc.Logout(ctx, raw); err != nil {
			h.Cookies.ClearRefresh(c)
			return fail(l, "logout_failed", err)
		}
	}
	h.Cookies.ClearRefresh(c)

	l.Info("logout_successful")
	return c.NoContent(http.StatusNoContent)
}

func (h *AuthHTTP) Me(c echo.Context) error {
	u, ok := auth.CurrentUser(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "no token")
	}
	return c.JSON(http.StatusOK, u)
}

// RegisterAdmin creates an admin account. The route is open only until the first admin exists.
func (h *AuthHTTP) RegisterAdmin(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.register_admin")

	var req transport.CreateUserRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "register_admin_failed", "invalid body", err)
	}

	in := service.CreateUserInput{
		FullName: req.FullName,
		Email:    req.Email,
		Password: req.Password,
	}
	register := h.Users.RegisterAdmin
	if auth.IsBootstrap(c) {
		register = h.Users.BootstrapAdmin
	}
	u, err := register(ctx, in)
	if err != nil {
		return fail(l, "register_admin_failed", err)
	}

	l.Info("register_admin_successful", "user_id", u.ID)
	return c.JSON(http.StatusCreated, u)
}
