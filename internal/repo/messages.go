package repo

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Skotchmaster/etutoring/internal/models"
)

func (r *GormRepo) CreateMessage(ctx context.Context, m *models.Message) error {
	return r.DB.WithContext(ctx).Create(m).Error
}

func (r *GormRepo) GetMessage(ctx context.Context, id uuid.UUID) (*models.Message, error) {
	var m models.Message
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// Conversation lists messages exchanged between a and b, oldest first.
func (r *GormRepo) Conversation(ctx context.Context, a, b uuid.UUID, offset, limit int) (int64, []models.Message, error) {
	tx := r.DB.WithContext(ctx).Model(&models.Message{}).
		Where("(sender_id = ? AND recipient_id = ?) OR (sender_id = ? AND recipient_id = ?)", a, b, b, a)
	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return 0, nil, err
	}
	items := make([]models.Message, 0, limit)
	if err := tx.Order("created_at ASC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return 0, nil, err
	}
	return total, items, nil
}

func (r *GormRepo) MarkMessageRead(ctx context.Context, id uuid.UUID) error {
	return affected(r.DB.WithContext(ctx).Model(&models.Message{}).Where("id = ?", id).Update("read", true))
}

func (r *GormRepo) CountUnread(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.Message{}).
		Where("recipient_id = ? AND read = ?", recipientID, false).
		Count(&n).Error
	return n, err
}

func (r *GormRepo) CountMessagesSince(ctx context.Context, since time.Time) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.Message{}).Where("created_at >= ?", since).Count(&n).Error
	return n, err
}
