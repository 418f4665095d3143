package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/etutoring/internal/logging"
	"github.com/Skotchmaster/etutoring/internal/service"
	"github.com/Skotchmaster/etutoring/internal/transport"
)

type MeetingHTTP struct {
	Meetings     *service.MeetingService
	Appointments *service.AppointmentService
}

func (h *MeetingHTTP) CreateMeeting(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "meetings.create")

	var req transport.MeetingRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "meeting_create_failed", "invalid body", err)
	}
	m, err := h.Meetings.Create(ctx, actorOf(c), service.MeetingInput{
		Title:       req.Title,
		Description: req.Description,
		TutorID:     req.TutorID,
		StudentID:   req.StudentID,
		StartAt:     req.StartAt,
		EndAt:       req.EndAt,
		Mode:        req.Mode,
		Location:    req.Location,
	})
	if err != nil {
		return fail(l, "meeting_create_failed", err)
	}

	l.Info("meeting_created", "meeting_id", m.ID)
	return c.JSON(http.StatusCreated, m)
}

func (h *MeetingHTTP) ListMeetings(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "meetings.list")

	p := pageOf(c)
	total, items, err := h.Meetings.List(ctx, actorOf(c), p.Offset, p.Limit)
	if err != nil {
		return fail(l, "meetings_list_failed", err)
	}
	return c.JSON(http.StatusOK, transport.NewList(items, p, total))
}

func (h *MeetingHTTP) GetMeeting(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "meetings.get")

	id, err := parseID(c, "id")
	if err != nil {
		return badRequest(l, "meeting_get_failed", "id is not a uuid", err)
	}
	m, err := h.Meetings.Get(ctx, actorOf(c), id)
	if err != nil {
		return fail(l, "meeting_get_failed", err)
	}
	return c.JSON(http.StatusOK, m)
}

func (h *MeetingHTTP) UpdateMeetingStatus(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "meetings.update_status")

	id, err := parseID(c, "id")
	if err != nil {
		return badRequest(l, "meeting_status_failed", "id is not a uuid", err)
	}
	var req transport.StatusRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "meeting_status_failed", "invalid body", err)
	}
	m, err := h.Meetings.UpdateStatus(ctx, actorOf(c), id, req.Status)
	if err != nil {
		return fail(l, "meeting_status_failed", err)
	}

	l.Info("meeting_status_changed", "meeting_id", id, "meeting_status", m.Status)
	return c.JSON(http.StatusOK, m)
}

func (h *MeetingHTTP) DeleteMeeting(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "meetings.delete")

	id, err := parseID(c, "id")
	if err != nil {
		return badRequest(l, "meeting_delete_failed", "id is not a uuid", err)
	}
	if err := h.Meetings.Delete(ctx, actorOf(c), id); err != nil {
		return fail(l, "meeting_delete_failed", err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *MeetingHTTP) RequestAppointment(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "appointments.create")

	var req transport.AppointmentRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "appointment_request_failed", "invalid body", err)
	}
	a, err := h.Appointments.Request(ctx, actorOf(c), req.RequestedAt, req.Reason)
	if err != nil {
		return fail(l, "appointment_request_failed", err)
	}

	l.Info("appointment_requested", "appointment_id", a.ID)
	return c.JSON(http.StatusCreated, a)
}

func (h *MeetingHTTP) ListAppointments(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "appointments.list")

	p := pageOf(c)
	total, items, err := h.Appointments.List(ctx, actorOf(c), p.Offset, p.Limit)
	if err != nil {
		return fail(l, "appointments_list_failed", err)
	}
	return c.JSON(http.StatusOK, transport.NewList(items, p, total))
}

func (h *MeetingHTTP) UpdateAppointment(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "appointments.update")

	id, err := parseID(c, "id")
	if err != nil {
		return badRequest(l, "appointment_update_failed", "id is not a uuid", err)
	}
	var req transport.AppointmentUpdateRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "appointment_update_failed", "invalid body", err)
	}
	a, err := h.Appointments.Update(ctx, actorOf(c), id, req.Status, req.Note)
	if err != nil {
		return fail(l, "appointment_update_failed", err)
	}
	return c.JSON(http.StatusOK, a)
}
