package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/Skotchmaster/etutoring/internal/logging"
	"github.com/Skotchmaster/etutoring/internal/models"
	"github.com/Skotchmaster/etutoring/internal/repo"
)

const (
	NotifyTutorAllocated      = "tutor_allocated"
	NotifyStudentAllocated    = "student_allocated"
	NotifyMeetingScheduled    = "meeting_scheduled"
	NotifyMeetingStatus       = "meeting_status_changed"
	NotifyAppointmentRequest  = "appointment_requested"
	NotifyAppointmentDecision = "appointment_updated"
	NotifyNewMessage          = "new_message"
	NotifyBlogComment         = "blog_comment"
	NotifyEnrolled            = "class_enrollment"
)

// Pusher delivers a stored notification to the user's live connections.
type Pusher interface {
	PushNotification(userID uuid.UUID, n *models.Notification)
}

type NotificationService struct {
	Repo   *repo.GormRepo
	Pusher Pusher
}

// Notify stores and pushes a notification. Errors are logged, never returned.
func (s *NotificationService) Notify(ctx context.Context, userID uuid.UUID, kind, text string) {
	if s == nil {
		return
	}
	n := &models.Notification{UserID: userID, Kind: kind, Text: text}
	if err := s.Repo.CreateNotification(ctx, n); err != nil {
		logging.FromContext(ctx).Error("notification_create_failed", "user_id", userID, "kind", kind, "error", err)
		return
	}
	if s.Pusher != nil {
		s.Pusher.PushNotification(userID, n)
	}
}

func (s *NotificationService) List(ctx context.Context, userID uuid.UUID, offset, limit int) (int64, []models.Notification, error) {
	total, items, err := s.Repo.ListNotifications(ctx, userID, offset, limit)
	if err != nil {
		return 0, nil, storeErr(err, "notifications")
	}
	return total, items, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, userID, id uuid.UUID) error {
	return storeErr(s.Repo.MarkNotificationRead(ctx, id, userID), "notification")
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	n, err := s.Repo.MarkAllNotificationsRead(ctx, userID)
	if err != nil {
		return 0, storeErr(err, "notifications")
	}
	return n, nil
}
