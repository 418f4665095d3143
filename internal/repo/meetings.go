package repo

import (
	"context"

	"github.com/google/uuid"

	"github.com/Skotchmaster/etutoring/internal/models"
)

func (r *GormRepo) CreateMeeting(ctx context.Context, m *models.Meeting) error {
	return r.DB.WithContext(ctx).Create(m).Error
}

func (r *GormRepo) GetMeeting(ctx context.Context, id uuid.UUID) (*models.Meeting, error) {
	var m models.Meeting
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// ListMeetings returns every meeting when participant is nil.
func (r *GormRepo) ListMeetings(ctx context.Context, participant *uuid.UUID, offset, limit int) (int64, []models.Meeting, error) {
	tx := r.DB.WithContext(ctx).Model(&models.Meeting{})
	if participant != nil {
		tx = tx.Where("tutor_id = ? OR student_id = ?", *participant, *participant)
	}
	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return 0, nil, err
	}
	items := make([]models.Meeting, 0, limit)
	if err := tx.Order("start_at ASC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return 0, nil, err
	}
	return total, items, nil
}

func (r *GormRepo) UpdateMeetingStatus(ctx context.Context, id uuid.UUID, status string) error {
	return affected(r.DB.WithContext(ctx).Model(&models.Meeting{}).Where("id = ?", id).Update("status", status))
}

func (r *GormRepo) DeleteMeeting(ctx context.Context, id uuid.UUID) error {
	return affected(r.DB.WithContext(ctx).Delete(&models.Meeting{}, "id = ?", id))
}

func (r *GormRepo) CreateAppointment(ctx context.Context, a *models.Appointment) error {
	return r.DB.WithContext(ctx).Create(a).Error
}

func (r *GormRepo) GetAppointment(ctx context.Context, id uuid.UUID) (*models.Appointment, error) {
	var a models.Appointment
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *GormRepo) ListAppointments(ctx context.Context, participant *uuid.UUID, offset, limit int) (int64, []models.Appointment, error) {
	tx := r.DB.WithContext(ctx).Model(&models.Appointment{})
	if participant != nil {
		tx = tx.Where("tutor_id = ? OR student_id = ?", *participant, *participant)
	}
	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return 0, nil, err
	}
	items := make([]models.Appointment, 0, limit)
	if err := tx.Order("requested_at ASC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return 0, nil, err
	}
	return total, items, nil
}

func (r *GormRepo) UpdateAppointment(ctx context.Context, id uuid.UUID, status, note string) error {
	return affected(r.DB.WithContext(ctx).Model(&models.Appointment{}).Where("id = ?", id).
		Updates(map[string]any{"status": status, "tutor_note": note}))
}
