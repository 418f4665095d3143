package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Skotchmaster/etutoring/internal/models"
	"github.com/Skotchmaster/etutoring/internal/mykafka"
	"github.com/Skotchmaster/etutoring/internal/repo"
	"github.com/Skotchmaster/etutoring/internal/search"
)

type AcademicService struct {
	Repo     *repo.GormRepo
	Events   *Events
	Index    search.Index
	Notifier *NotificationService
	Now      func() time.Time
}

type CourseInput struct {
	Code        *string
	Title       *string
	Description *string
}

type ClassInput struct {
	CourseID *uuid.UUID
	TutorID  *uuid.UUID
	Name     *string
	Schedule *string
	Status   *string
}

func (s *AcademicService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *AcademicService) CreateCourse(ctx context.Context, actor Actor, in CourseInput) (*models.Course, error) {
	c := &models.Course{OwnerID: actor.ID}
	if err := applyCourse(c, in); err != nil {
		return nil, err
	}
	if err := s.Repo.CreateCourse(ctx, c); err != nil {
		return nil, storeErr(err, "course with this code")
	}
	indexDoc(ctx, s.Index, search.CourseDoc(c))
	s.Events.Publish(ctx, mykafka.TopicContentEvents, c.ID.String(), "course_created", map[string]any{
		"course_id": c.ID,
		"code":      c.Code,
	})
	return c, nil
}

func applyCourse(c *models.Course, in CourseInput) error {
	if in.Code != nil {
		c.Code = strings.ToUpper(strings.TrimSpace(*in.Code))
	}
	if in.Title != nil {
		c.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		c.Description = strings.TrimSpace(*in.Description)
	}
	if c.Code == "" {
		return invalid("code is required")
	}
	if c.Title == "" {
		return invalid("title is required")
	}
	return nil
}

func (s *AcademicService) GetCourse(ctx context.Context, id uuid.UUID) (*models.Course, error) {
	c, err := s.Repo.GetCourse(ctx, id)
	if err != nil {
		return nil, storeErr(err, "course")
	}
	return c, nil
}

func (s *AcademicService) ListCourses(ctx context.Context, offset, limit int) (int64, []models.Course, error) {
	total, items, err := s.Repo.ListCourses(ctx, offset, limit)
	if err != nil {
		return 0, nil, storeErr(err, "courses")
	}
	return total, items, nil
}

func (s *AcademicService) UpdateCourse(ctx context.Context, id uuid.UUID, in CourseInput) (*models.Course, error) {
	c, err := s.GetCourse(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := applyCourse(c, in); err != nil {
		return nil, err
	}
	if err := s.Repo.SaveCourse(ctx, c); err != nil {
		return nil, storeErr(err, "course with this code")
	}
	indexDoc(ctx, s.Index, search.CourseDoc(c))
	return c, nil
}

// DeleteCourse refuses while classes still reference the course.
func (s *AcademicService) DeleteCourse(ctx context.Context, id uuid.UUID) error {
	n, err := s.Repo.CountClassesOfCourse(ctx, id)
	if err != nil {
		return storeErr(err, "classes")
	}
	if n > 0 {
		return fmt.Errorf("course still has classes: %w", ErrConflict)
	}
	if err := s.Repo.DeleteCourse(ctx, id); err != nil {
		return storeErr(err, "course")
	}
	unindexDoc(ctx, s.Index, id.String())
	s.Events.Publish(ctx, mykafka.TopicContentEvents, id.String(), "course_deleted", map[string]any{"course_id": id})
	return nil
}

func (s *AcademicService) requireTutor(ctx context.Context, id uuid.UUID) error {
	u, err := s.Repo.GetUserByID(ctx, id)
	if err != nil || u.Role != models.RoleTutor {
		return invalid("tutor_id does not reference a tutor")
	}
	return nil
}

func (s *AcademicService) CreateClass(ctx context.Context, in ClassInput) (*models.Class, error) {
	if in.CourseID == nil || in.TutorID == nil {
		return nil, invalid("course_id and tutor_id are required")
	}
	if _, err := s.Repo.GetCourse(ctx, *in.CourseID); err != nil {
		return nil, invalid("course_id does not reference a course")
	}
	if err := s.requireTutor(ctx, *in.TutorID); err != nil {
		return nil, err
	}

	c := &models.Class{CourseID: *in.CourseID, TutorID: *in.TutorID, Status: models.ClassActive}
	if err := applyClass(c, in); err != nil {
		return nil, err
	}
	if err := s.Repo.CreateClass(ctx, c); err != nil {
		return nil, storeErr(err, "class")
	}
	return c, nil
}

func applyClass(c *models.Class, in ClassInput) error {
	if in.Name != nil {
		c.Name = strings.TrimSpace(*in.Name)
	}
	if in.Schedule != nil {
		c.Schedule = strings.TrimSpace(*in.Schedule)
	}
	if in.Status != nil {
		c.Status = *in.Status
	}
	if c.Name == "" {
		return invalid("name is required")
	}
	if c.Status != models.ClassActive && c.Status != models.ClassArchived {
		return invalid("status must be active or archived")
	}
	return nil
}

func (s *AcademicService) GetClass(ctx context.Context, id uuid.UUID) (*models.Class, error) {
	c, err := s.Repo.GetClass(ctx, id)
	if err != nil {
		return nil, storeErr(err, "class")
	}
	return c, nil
}

func (s *AcademicService) ListClasses(ctx context.Context, f repo.ClassFilter, offset, limit int) (int64, []models.Class, error) {
	total, items, err := s.Repo.ListClasses(ctx, f, offset, limit)
	if err != nil {
		return 0, nil, storeErr(err, "classes")
	}
	return total, items, nil
}

func (s *AcademicService) UpdateClass(ctx context.Context, id uuid.UUID, in ClassInput) (*models.Class, error) {
	c, err := s.GetClass(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.CourseID != nil && *in.CourseID != c.CourseID {
		if _, err := s.Repo.GetCourse(ctx, *in.CourseID); err != nil {
			return nil, invalid("course_id does not reference a course")
		}
		c.CourseID = *in.CourseID
	}
	if in.TutorID != nil && *in.TutorID != c.TutorID {
		if err := s.requireTutor(ctx, *in.TutorID); err != nil {
			return nil, err
		}
		c.TutorID = *in.TutorID
	}
	if err := applyClass(c, in); err != nil {
		return nil, err
	}
	if err := s.Repo.SaveClass(ctx, c); err != nil {
		return nil, storeErr(err, "class")
	}
	return c, nil
}

func (s *AcademicService) DeleteClass(ctx context.Context, id uuid.UUID) error {
	return storeErr(s.Repo.DeleteClass(ctx, id), "class")
}

// canManageClass reports whether actor is an admin or the class tutor.
func canManageClass(actor Actor, c *models.Class) bool {
	return actor.IsAdmin() || c.TutorID == actor.ID
}

func (s *AcademicService) Enroll(ctx context.Context, actor Actor, classID, studentID uuid.UUID) (*models.Enrollment, error) {
	class, err := s.GetClass(ctx, classID)
	if err != nil {
		return nil, err
	}
	if !canManageClass(actor, class) {
		return nil, forbidden("only an admin or the class tutor can enroll students")
	}
	if class.Status != models.ClassActive {
		return nil, invalid("class is archived")
	}
	student, err := s.Repo.GetUserByID(ctx, studentID)
	if err != nil || student.Role != models.RoleStudent {
		return nil, invalid("student_id does not reference a student")
	}
	if !student.Active {
		return nil, invalid("student account is deactivated")
	}

	e, err := s.Repo.CreateEnrollment(ctx, classID, studentID, s.now())
	if err != nil {
		return nil, storeErr(err, "enrollment")
	}
	s.Notifier.Notify(ctx, studentID, NotifyEnrolled, fmt.Sprintf("You were enrolled in %s", class.Name))
	return e, nil
}

func (s *AcademicService) ClassEnrollments(ctx context.Context, actor Actor, classID uuid.UUID, offset, limit int) (int64, []models.Enrollment, error) {
	class, err := s.GetClass(ctx, classID)
	if err != nil {
		return 0, nil, err
	}
	if !canManageClass(actor, class) {
		return 0, nil, forbidden("only an admin or the class tutor can list enrollments")
	}
	total, items, err := s.Repo.ListEnrollmentsOfClass(ctx, classID, offset, limit)
	if err != nil {
		return 0, nil, storeErr(err, "enrollments")
	}
	return total, items, nil
}

func (s *AcademicService) Unenroll(ctx context.Context, actor Actor, classID, studentID uuid.UUID) error {
	class, err := s.GetClass(ctx, classID)
	if err != nil {
		return err
	}
	if !canManageClass(actor, class) {
		return forbidden("only an admin or the class tutor can remove students")
	}
	return storeErr(s.Repo.DeleteEnrollment(ctx, classID, studentID), "enrollment")
}

func (s *AcademicService) StudentEnrollments(ctx context.Context, studentID uuid.UUID, offset, limit int) (int64, []models.Enrollment, error) {
	total, items, err := s.Repo.ListEnrollmentsOfStudent(ctx, studentID, offset, limit)
	if err != nil {
		return 0, nil, storeErr(err, "enrollments")
	}
	return total, items, nil
}

// CanAccessClass reports whether actor is an admin, the class tutor or an enrolled student.
func (s *AcademicService) CanAccessClass(ctx context.Context, actor Actor, classID uuid.UUID) (bool, error) {
	return canAccessClass(ctx, s.Repo, actor, classID)
}

func canAccessClass(ctx context.Context, r *repo.GormRepo, actor Actor, classID uuid.UUID) (bool, error) {
	if actor.IsAdmin() {
		return true, nil
	}
	class, err := r.GetClass(ctx, classID)
	if err != nil {
		return false, storeErr(err, "class")
	}
	if class.TutorID == actor.ID {
		return true, nil
	}
	ok, err := r.IsEnrolled(ctx, classID, actor.ID)
	if err != nil {
		return false, storeErr(err, "enrollment")
	}
	return ok, nil
}
