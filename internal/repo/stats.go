package repo

import (
	"context"

	"github.com/Skotchmaster/etutoring/internal/models"
)

type roleCount struct {
	Role  string
	Count int64
}

func (r *GormRepo) CountUsersByRole(ctx context.Context) (map[string]int64, error) {
	var rows []roleCount
	if err := r.DB.WithContext(ctx).Model(&models.User{}).
		Select("role, COUNT(*) AS count").
		Group("role").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := map[string]int64{models.RoleStudent: 0, models.RoleTutor: 0, models.RoleAdmin: 0}
	for _, row := range rows {
		out[row.Role] = row.Count
	}
	return out, nil
}

func (r *GormRepo) CountInactiveUsers(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.User{}).Where("active = ?", false).Count(&n).Error
	return n, err
}

func (r *GormRepo) CountUnassignedStudents(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.User{}).
		Where("role = ? AND personal_tutor_id IS NULL", models.RoleStudent).
		Count(&n).Error
	return n, err
}
