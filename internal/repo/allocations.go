package repo

import (
	"context"

	"github.com/google/uuid"

	"github.com/Skotchmaster/etutoring/internal/models"
)

func (r *GormRepo) AssignTutor(ctx context.Context, tutorID uuid.UUID, studentIDs []uuid.UUID) (int64, error) {
	res := r.DB.WithContext(ctx).Model(&models.User{}).
		Where("id IN ? AND role = ?", studentIDs, models.RoleStudent).
		Update("personal_tutor_id", tutorID)
	return res.RowsAffected, res.Error
}

func (r *GormRepo) UnassignTutor(ctx context.Context, studentID uuid.UUID) error {
	return affected(r.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND role = ?", studentID, models.RoleStudent).
		Update("personal_tutor_id", nil))
}

func (r *GormRepo) ListStudentsOfTutor(ctx context.Context, tutorID uuid.UUID, offset, limit int) (int64, []models.User, error) {
	return r.pageUsers(ctx, offset, limit, "personal_tutor_id = ?", tutorID)
}

func (r *GormRepo) ListUnassignedStudents(ctx context.Context, offset, limit int) (int64, []models.User, error) {
	return r.pageUsers(ctx, offset, limit, "role = ? AND personal_tutor_id IS NULL", models.RoleStudent)
}

func (r *GormRepo) pageUsers(ctx context.Context, offset, limit int, query string, args ...any) (int64, []models.User, error) {
	tx := r.DB.WithContext(ctx).Model(&models.User{}).Where(query, args...)
	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return 0, nil, err
	}
	items := make([]models.User, 0, limit)
	if err := tx.Order("full_name ASC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return 0, nil, err
	}
	return total, items, nil
}
