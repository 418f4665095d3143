package httpserver

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/etutoring/internal/logging"
	"github.com/Skotchmaster/etutoring/internal/repo"
	"github.com/Skotchmaster/etutoring/internal/service"
	"github.com/Skotchmaster/etutoring/internal/transport"
)

type AcademicHTTP struct {
	Svc *service.AcademicService
}

func courseInput(req transport.CourseRequest) service.CourseInput {
	return service.CourseInput{Code: req.Code, Title: req.Title, Description: req.Description}
}

func classInput(req transport.ClassRequest) service.ClassInput {
	return service.ClassInput{
		CourseID: req.CourseID,
		TutorID:  req.TutorID,
		Name:     req.Name,
		Schedule: req.Schedule,
		Status:   req.Status,
	}
}

func (h *AcademicHTTP) ListCourses(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "courses.list")

	p := pageOf(c)
	total, items, err := h.Svc.ListCourses(ctx, p.Offset, p.Limit)
	if err != nil {
		return fail(l, "courses_list_failed", err)
	}
	return c.JSON(http.StatusOK, transport.NewList(items, p, total))
}

func (h *AcademicHTTP) GetCourse(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "courses.get")

	id, err := parseID(c, "id")
	if err != nil {
		return badRequest(l, "course_get_failed", "id is not a uuid", err)
	}
	course, err := h.Svc.GetCourse(ctx, id)
	if err != nil {
		return fail(l, "course_get_failed", err)
	}
	return c.JSON(http.StatusOK, course)
}

func (h *AcademicHTTP) CreateCourse(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "courses.create")

	var req transport.CourseRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "course_create_failed", "invalid body", err)
	}
	course, err := h.Svc.CreateCourse(ctx, actorOf(c), courseInput(req))
	if err != nil {
		return fail(l, "course_create_failed", err)
	}

	l.Info("course_created", "course_id", course.ID)
	return c.JSON(http.StatusCreated, course)
}

func (h *AcademicHTTP) UpdateCourse(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "courses.update")

	id, err := parseID(c, "id")
	if err != nil {
		return badRequest(l, "course_update_failed", "id is not a uuid", err)
	}
	var req transport.CourseRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "course_update_failed", "invalid body", err)
	}
	course, err := h.Svc.UpdateCourse(ctx, id, courseInput(req))
	if err != nil {
		return fail(l, "course_update_failed", err)
	}
	return c.JSON(http.StatusOK, course)
}

func (h *AcademicHTTP) DeleteCourse(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "courses.delete")

	id, err := parseID(c, "id")
	if err != nil {
		return badRequest(l, "course_delete_failed", "id is not a uuid", err)
	}
	if err := h.Svc.DeleteCourse(ctx, id); err != nil {
		return fail(l, "course_delete_failed", err)
	}
	return c.NoContent(http.StatusNoContent)
}

func optionalID(c echo.Context, name string) (*uuid.UUID, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func (h *AcademicHTTP) ListClasses(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "classes.list")

	var f repo.ClassFilter
	var err error
	if f.CourseID, err = optionalID(c, "course_id"); err != nil {
		return badRequest(l, "classes_list_failed", "course_id is not a uuid", err)
	}
	if f.TutorID, err = optionalID(c, "tutor_id"); err != nil {
		return badRequest(l, "classes_list_failed", "tutor_id is not a uuid", err)
	}

	p := pageOf(c)
	total, items, err := h.Svc.ListClasses(ctx, f, p.Offset, p.Limit)
	if err != nil {
		return fail(l, "classes_list_failed", err)
	}
	return c.JSON(http.StatusOK, transport.NewList(items, p, total))
}

func (h *AcademicHTTP) GetClass(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "classes.get")

	id, err := parseID(c, "id")
	if err != nil {
		return badRequest(l, "class_get_failed", "id is not a uuid", err)
	}
	class, err := h.Svc.GetClass(ctx, id)
	if err != nil {
		return fail(l, "class_get_failed", err)
	}
	return c.JSON(http.StatusOK, class)
}

func (h *AcademicHTTP) CreateClass(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "classes.create")

	var req transport.ClassRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "class_create_failed", "invalid body", err)
	}
	class, err := h.Svc.CreateClass(ctx, classInput(req))
	if err != nil {
		return fail(l, "class_create_failed", err)
	}

	l.Info("class_created", "class_id", class.ID)
	return c.JSON(http.StatusCreated, class)
}

func (h *AcademicHTTP) UpdateClass(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "classes.update")

	id, err := parseID(c, "id")
	if err != nil {
		return badRequest(l, "class_update_failed", "id is not a uuid", err)
	}
	var req transport.ClassRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "class_update_failed", "invalid body", err)
	}
	class, err := h.Svc.UpdateClass(ctx, id, classInput(req))
	if err != nil {
		return fail(l, "class_update_failed", err)
	}
	return c.JSON(http.StatusOK, class)
}

func (h *AcademicHTTP) DeleteClass(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "classes.delete")

	id, err := parseID(c, "id")
	if err != nil {
		return badRequest(l, "class_delete_failed", "id is not a uuid", err)
	}
	if err := h.Svc.DeleteClass(ctx, id); err != nil {
		return fail(l, "class_delete_failed", err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *AcademicHTTP) Enroll(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "enrollments.create")

	classID, err := parseID(c, "id")
	if err != nil {
		return badRequest(l, "enroll_failed", "id is not a uuid", err)
	}
	var req transport.EnrollmentRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "enroll_failed", "invalid body", err)
	}
	e, err := h.Svc.Enroll(ctx, actorOf(c), classID, req.StudentID)
	if err != nil {
		return fail(l, "enroll_failed", err)
	}

	l.Info("student_enrolled", "class_id", classID, "student_id", req.StudentID)
	return c.JSON(http.StatusCreated, e)
}

func (h *AcademicHTTP) ClassEnrollments(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "enrollments.list")

	classID, err := parseID(c, "id")
	if err != nil {
		return badRequest(l, "enrollments_list_failed", "id is not a uuid", err)
	}
	p := pageOf(c)
	total, items, err := h.Svc.ClassEnrollments(ctx, actorOf(c), classID, p.Offset, p.Limit)
	if err != nil {
		return fail(l, "enrollments_list_failed", err)
	}
	return c.JSON(http.StatusOK, transport.NewList(items, p, total))
}

func (h *AcademicHTTP) Unenroll(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "enrollments.delete")

	classID, err := parseID(c, "id")
	if err != nil {
		return badRequest(l, "unenroll_failed", "id is not a uuid", err)
	}
	studentID, err := parseID(c, "studentId")
	if err != nil {
		return badRequest(l, "unenroll_failed", "studentId is not a uuid", err)
	}
	if err := h.Svc.Unenroll(ctx, actorOf(c), classID, studentID); err != nil {
		return fail(l, "unenroll_failed", err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *AcademicHTTP) StudentEnrollments(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "students.enrollments")

	id, err := parseID(c, "id")
	if err != nil {
		return badRequest(l, "student_enrollments_failed", "id is not a uuid", err)
	}
	p := pageOf(c)
	total, items, err := h.Svc.StudentEnrollments(ctx, id, p.Offset, p.Limit)
	if err != nil {
		return fail(l, "student_enrollments_failed", err)
	}
	return c.JSON(http.StatusOK, transport.NewList(items, p, total))
}
