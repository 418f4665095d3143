package repo

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Skotchmaster/etutoring/internal/models"
)

func (r *GormRepo) CreateCourse(ctx context.Context, c *models.Course) error {
	return r.DB.WithContext(ctx).Create(c).Error
}

func (r *GormRepo) GetCourse(ctx context.Context, id uuid.UUID) (*models.Course, error) {
	var c models.Course
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *GormRepo) ListCourses(ctx context.Context, offset, limit int) (int64, []models.Course, error) {
	tx := r.DB.WithContext(ctx).Model(&models.Course{})
	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return 0, nil, err
	}
	items := make([]models.Course, 0, limit)
	if err := tx.Order("code ASC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return 0, nil, err
	}
	return total, items, nil
}

func (r *GormRepo) SaveCourse(ctx context.Context, c *models.Course) error {
	return r.DB.WithContext(ctx).Save(c).Error
}

func (r *GormRepo) DeleteCourse(ctx context.Context, id uuid.UUID) error {
	return affected(r.DB.WithContext(ctx).Delete(&models.Course{}, "id = ?", id))
}

func (r *GormRepo) CountClassesOfCourse(ctx context.Context, courseID uuid.UUID) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.Class{}).Where("course_id = ?", courseID).Count(&n).Error
	return n, err
}

type ClassFilter struct {
	CourseID *uuid.UUID
	TutorID  *uuid.UUID
}

func (r *GormRepo) CreateClass(ctx context.Context, c *models.Class) error {
	return r.DB.WithContext(ctx).Create(c).Error
}

func (r *GormRepo) GetClass(ctx context.Context, id uuid.UUID) (*models.Class, error) {
	var c models.Class
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *GormRepo) ListClasses(ctx context.Context, f ClassFilter, offset, limit int) (int64, []models.Class, error) {
	tx := r.DB.WithContext(ctx).Model(&models.Class{})
	if f.CourseID != nil {
		tx = tx.Where("course_id = ?", *f.CourseID)
	}
	if f.TutorID != nil {
		tx = tx.Where("tutor_id = ?", *f.TutorID)
	}
	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return 0, nil, err
	}
	items := make([]models.Class, 0, limit)
	if err := tx.Order("created_at ASC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return 0, nil, err
	}
	return total, items, nil
}

func (r *GormRepo) SaveClass(ctx context.Context, c *models.Class) error {
	return r.DB.WithContext(ctx).Save(c).Error
}

func (r *GormRepo) DeleteClass(ctx context.Context, id uuid.UUID) error {
	if err := r.DB.WithContext(ctx).Where("class_id = ?", id).Delete(&models.Enrollment{}).Error; err != nil {
		return err
	}
	return affected(r.DB.WithContext(ctx).Delete(&models.Class{}, "id = ?", id))
}

func (r *GormRepo) CreateEnrollment(ctx context.Context, classID, studentID uuid.UUID, at time.Time) (*models.Enrollment, error) {
	e := models.Enrollment{ClassID: classID, StudentID: studentID, EnrolledAt: at}
	if err := r.DB.WithContext(ctx).Create(&e).Error; err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *GormRepo) ListEnrollmentsOfClass(ctx context.Context, classID uuid.UUID, offset, limit int) (int64, []models.Enrollment, error) {
	return r.pageEnrollments(ctx, offset, limit, "class_id = ?", classID)
}

func (r *GormRepo) ListEnrollmentsOfStudent(ctx context.Context, studentID uuid.UUID, offset, limit int) (int64, []models.Enrollment, error) {
	return r.pageEnrollments(ctx, offset, limit, "student_id = ?", studentID)
}

func (r *GormRepo) pageEnrollments(ctx context.Context, offset, limit int, query string, args ...any) (int64, []models.Enrollment, error) {
	tx := r.DB.WithContext(ctx).Model(&models.Enrollment{}).Where(query, args...)
	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return 0, nil, err
	}
	items := make([]models.Enrollment, 0, limit)
	if err := tx.Order("enrolled_at ASC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return 0, nil, err
	}
	return total, items, nil
}

func (r *GormRepo) DeleteEnrollment(ctx context.Context, classID, studentID uuid.UUID) error {
	return affected(r.DB.WithContext(ctx).
		Where("class_id = ? AND student_id = ?", classID, studentID).
		Delete(&models.Enrollment{}))
}

func (r *GormRepo) IsEnrolled(ctx context.Context, classID, studentID uuid.UUID) (bool, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.Enrollment{}).
		Where("class_id = ? AND student_id = ?", classID, studentID).
		Count(&n).Error
	return n > 0, err
}
