package httpserver

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/etutoring/internal/logging"
	"github.com/Skotchmaster/etutoring/internal/models"
	"github.com/Skotchmaster/etutoring/internal/service"
	"github.com/Skotchmaster/etutoring/internal/transport"
)

// MessageRelay pushes a stored message to the recipient's live connections.
type MessageRelay interface {
	RelayMessage(ctx context.Context, m *models.Message)
}

type MessageHTTP struct {
	Svc   *service.MessageService
	Relay MessageRelay
}

func (h *MessageHTTP) Send(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "messages.send")

	var req transport.MessageRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "message_send_failed", "invalid body", err)
	}
	m, err := h.Svc.SendMessage(ctx, actorOf(c).ID, req.RecipientID, req.Content)
	if err != nil {
		return fail(l, "message_send_failed", err)
	}
	if h.Relay != nil {
		h.Relay.RelayMessage(ctx, m)
	}
	return c.JSON(http.StatusCreated, m)
}

func (h *MessageHTTP) Conversation(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "messages.conversation")

	other, err := parseID(c, "userId")
	if err != nil {
		return badRequest(l, "conversation_failed", "userId is not a uuid", err)
	}
	p := pageOf(c)
	total, items, err := h.Svc.Conversation(ctx, actorOf(c).ID, other, p.Offset, p.Limit)
	if err != nil {
		return fail(l, "conversation_failed", err)
	}
	return c.JSON(http.StatusOK, transport.NewList(items, p, total))
}

func (h *MessageHTTP) MarkRead(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "messages.mark_read")

	id, err := parseID(c, "id")
	if err != nil {
		return badRequest(l, "message_read_failed", "id is not a uuid", err)
	}
	m, err := h.Svc.MarkRead(ctx, actorOf(c).ID, id)
	if err != nil {
		return fail(l, "message_read_failed", err)
	}
	return c.JSON(http.StatusOK, m)
}

func (h *MessageHTTP) UnreadCount(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "messages.unread_count")

	n, err := h.Svc.UnreadCount(ctx, actorOf(c).ID)
	if err != nil {
		return fail(l, "unread_count_failed", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"count": n})
}

type NotificationHTTP struct {
	Svc *service.NotificationService
}

func (h *NotificationHTTP) List(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "notifications.list")

	p := pageOf(c)
	total, items, err := h.Svc.List(ctx, actorOf(c).ID, p.Offset, p.Limit)
	if err != nil {
		return fail(l, "notifications_list_failed", err)
	}
	return c.JSON(http.StatusOK, transport.NewList(items, p, total))
}

func (h *NotificationHTTP) MarkRead(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "notifications.mark_read")

	id, err := parseID(c, "id")
	if err != nil {
		return badRequest(l, "notification_read_failed", "id is not a uuid", err)
	}
	if err := h.Svc.MarkRead(ctx, actorOf(c).ID, id); err != nil {
		return fail(l, "notification_read_failed", err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *NotificationHTTP) MarkAllRead(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "notifications.mark_all_read")

	n, err := h.Svc.MarkAllRead(ctx, actorOf(c).ID)
	if err != nil {
		return fail(l, "notifications_read_all_failed", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"updated": n})
}

type SearchHTTP struct {
	Svc *service.SearchService
}

func (h *SearchHTTP) Search(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "search")

	p := pageOf(c)
	total, items, err := h.Svc.Search(ctx, actorOf(c), c.QueryParam("q"), c.QueryParam("type"), p.Offset, p.Limit)
	if err != nil {
		return fail(l, "search_failed", err)
	}
	return c.JSON(http.StatusOK, transport.NewList(items, p, total))
}
