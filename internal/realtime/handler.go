package realtime

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/etutoring/internal/logging"
	"github.com/Skotchmaster/etutoring/internal/middleware/auth"
	"github.com/Skotchmaster/etutoring/internal/models"
)

type TokenAuthenticator interface {
	AuthenticateToken(ctx context.Context, raw string) (*models.User, error)
}

// Handler upgrades authenticated requests and attaches them to the hub.
type Handler struct {
	Hub  *Hub
	Auth TokenAuthenticator
	// AllowedOrigin is matched against the Origin header. Empty or "*" allows any.
	AllowedOrigin string

	upgrader websocket.Upgrader
}

func NewHandler(hub *Hub, authn TokenAuthenticator, allowedOrigin string) *Handler {
	h := &Handler{Hub: hub, Auth: authn, AllowedOrigin: allowedOrigin}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	if h.AllowedOrigin == "" || h.AllowedOrigin == "*" {
		return true
	}
	origin := r.Header.Get("Origin")
	return origin == "" || strings.EqualFold(strings.TrimRight(origin, "/"), strings.TrimRight(h.AllowedOrigin, "/"))
}

func tokenFrom(c echo.Context) string {
	if v := c.Request().Header.Get(echo.HeaderAuthorization); v != "" {
		if after, ok := strings.CutPrefix(v, "Bearer "); ok {
			return strings.TrimSpace(after)
		}
		return ""
	}
	return c.QueryParam("token")
}

// Serve authenticates before upgrading, then runs the read loop until the socket closes.
func (h *Handler) Serve(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "ws")

	user, err := h.Auth.AuthenticateToken(ctx, tokenFrom(c))
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrNoToken), errors.Is(err, auth.ErrInvalidToken),
			errors.Is(err, auth.ErrUserNotFound), errors.Is(err, auth.ErrAccountDeactivated):
			l.Warn("ws_auth_failed", "status", http.StatusUnauthorized, "reason", err.Error())
			return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
		default:
			l.Error("ws_auth_failed", "status", http.StatusInternalServerError, "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
		}
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		l.Warn("ws_upgrade_failed", "error", err)
		return nil
	}

	client := newClient(h.Hub, conn, user)
	h.Hub.register(client)
	l = l.With("user_id", user.ID)
	l.Info("ws_connected")

	go client.writePump()
	client.readPump(logging.IntoContext(context.WithoutCancel(ctx), l))
	l.Info("ws_disconnected")
	return nil
}
