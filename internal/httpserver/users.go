package httpserver

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/etutoring/internal/logging"
	"github.com/Skotchmaster/etutoring/internal/models"
	"github.com/Skotchmaster/etutoring/internal/repo"
	"github.com/Skotchmaster/etutoring/internal/service"
	"github.com/Skotchmaster/etutoring/internal/transport"
)

type UserHTTP struct {
	Svc *service.UserService
}

func (h *UserHTTP) CreateUser(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users.create")

	var req transport.CreateUserRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "user_create_failed", "invalid body", err)
	}
	u, err := h.Svc.CreateUser(ctx, service.CreateUserInput{
		FullName: req.FullName,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		return fail(l, "user_create_failed", err)
	}

	l.Info("user_created", "user_id", u.ID, "role", u.Role)
	return c.JSON(http.StatusCreated, u)
}

func (h *UserHTTP) ListUsers(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users.list")

	f := repo.UserFilter{Role: c.QueryParam("role")}
	if raw := c.QueryParam("active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			return badRequest(l, "users_list_failed", "active must be true or false", err)
		}
		f.Active = &active
	}
	if f.Role != "" && !models.ValidRole(f.Role) {
		return badRequest(l, "users_list_failed", "unknown role", nil)
	}

	p := pageOf(c)
	total, items, err := h.Svc.ListUsers(ctx, f, p.Offset, p.Limit)
	if err != nil {
		return fail(l, "users_list_failed", err)
	}
	return c.JSON(http.StatusOK, transport.NewList(items, p, total))
}

func (h *UserHTTP) GetUser(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users.get")

	id, err := parseID(c, "id")
	if err != nil {
		return badRequest(l, "user_get_failed", "id is not a uuid", err)
	}
	u, err := h.Svc.GetUser(ctx, id)
	if err != nil {
		return fail(l, "user_get_failed", err)
	}
	return c.JSON(http.StatusOK, u)
}

func (h *UserHTTP) UpdateUser(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users.update")

	id, err := parseID(c, "id")
	if err != nil {
		return badRequest(l, "user_update_failed", "id is not a uuid", err)
	}
	var req transport.UpdateUserRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "user_update_failed", "invalid body", err)
	}
	u, err := h.Svc.UpdateUser(ctx, id, service.UpdateUserInput{FullName: req.FullName, Email: req.Email})
	if err != nil {
		return fail(l, "user_update_failed", err)
	}
	return c.JSON(http.StatusOK, u)
}

// ChangePassword is limited to the account owner, admins included.
func (h *UserHTTP) ChangePassword(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users.change_password")

	id, err := parseID(c, "id")
	if err != nil {
		return badRequest(l, "password_change_failed", "id is not a uuid", err)
	}
	if actorOf(c).ID != id {
		l.Warn("password_change_failed", "status", http.StatusForbidden, "reason", "not the owner")
		return echo.NewHTTPError(http.StatusForbidden, "insufficient role")
	}
	var req transport.ChangePasswordRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "password_change_failed", "invalid body", err)
	}
	if err := h.Svc.ChangePassword(ctx, id, req.CurrentPassword, req.NewPassword); err != nil {
		return fail(l, "password_change_failed", err)
	}

	l.Info("password_changed", "user_id", id)
	return c.NoContent(http.StatusNoContent)
}

func (h *UserHTTP) setActive(c echo.Context, active bool) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users.set_active")

	id, err := parseID(c, "id")
	if err != nil {
		return badRequest(l, "set_active_failed", "id is not a uuid", err)
	}
	u, err := h.Svc.SetActive(ctx, actorOf(c), id, active)
	if err != nil {
		return fail(l, "set_active_failed", err)
	}

	l.Info("user_active_changed", "user_id", id, "active", active)
	return c.JSON(http.StatusOK, u)
}

func (h *UserHTTP) Deactivate(c echo.Context) error { return h.setActive(c, false) }
func (h *UserHTTP) Activate(c echo.Context) error   { return h.setActive(c, true) }

func (h *UserHTTP) LoginHistory(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users.logins")

	id, err := parseID(c, "id")
	if err != nil {
		return badRequest(l, "logins_list_failed", "id is not a uuid", err)
	}
	p := pageOf(c)
	total, items, err := h.Svc.LoginHistory(ctx, id, p.Offset, p.Limit)
	if err != nil {
		return fail(l, "logins_list_failed", err)
	}
	return c.JSON(http.StatusOK, transport.NewList(items, p, total))
}

func (h *UserHTTP) Allocate(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "allocations.create")

	var req transport.AllocationRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "allocation_failed", "invalid body", err)
	}
	n, err := h.Svc.Allocate(ctx, req.TutorID, req.StudentIDs)
	if err != nil {
		return fail(l, "allocation_failed", err)
	}

	l.Info("students_allocated", "tutor_id", req.TutorID, "count", n)
	return c.JSON(http.StatusOK, echo.Map{"allocated": n})
}

func (h *UserHTTP) Unallocate(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "allocations.delete")

	id, err := parseID(c, "studentId")
	if err != nil {
		return badRequest(l, "unallocation_failed", "studentId is not a uuid", err)
	}
	if err := h.Svc.Unallocate(ctx, id); err != nil {
		return fail(l, "unallocation_failed", err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *UserHTTP) TutorStudents(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "tutors.students")

	id, err := parseID(c, "id")
	if err != nil {
		return badRequest(l, "tutor_students_failed", "id is not a uuid", err)
	}
	p := pageOf(c)
	total, items, err := h.Svc.TutorStudents(ctx, id, p.Offset, p.Limit)
	if err != nil {
		return fail(l, "tutor_students_failed", err)
	}
	return c.JSON(http.StatusOK, transport.NewList(items, p, total))
}

func (h *UserHTTP) StudentTutor(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "students.tutor")

	id, err := parseID(c, "id")
	if err != nil {
		return badRequest(l, "student_tutor_failed", "id is not a uuid", err)
	}
	u, err := h.Svc.StudentTutor(ctx, id)
	if err != nil {
		return fail(l, "student_tutor_failed", err)
	}
	return c.JSON(http.StatusOK, u)
}

func (h *UserHTTP) UnassignedStudents(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "students.unassigned")

	p := pageOf(c)
	total, items, err := h.Svc.UnassignedStudents(ctx, p.Offset, p.Limit)
	if err != nil {
		return fail(l, "unassigned_students_failed", err)
	}
	return c.JSON(http.StatusOK, transport.NewList(items, p, total))
}

func (h *UserHTTP) Stats(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.stats")

	s, err := h.Svc.Stats(ctx)
	if err != nil {
		return fail(l, "stats_failed", err)
	}
	return c.JSON(http.StatusOK, s)
}
