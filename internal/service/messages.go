package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/etutoring/internal/models"
	"github.com/Skotchmaster/etutoring/internal/mykafka"
	"github.com/Skotchmaster/etutoring/internal/repo"
)

const MaxMessageLength = 5000

type MessageService struct {
	Repo     *repo.GormRepo
	Events   *Events
	Notifier *NotificationService
}

// SendMessage persists a message. Relaying it to live connections is the caller's job.
func (s *MessageService) SendMessage(ctx context.Context, senderID, recipientID uuid.UUID, content string) (*models.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, invalid("content is required")
	}
	if utf8.RuneCountInString(content) > MaxMessageLength {
		return nil, invalid("content exceeds %d characters", MaxMessageLength)
	}
	if recipientID == uuid.Nil {
		return nil, invalid("recipient_id is required")
	}
	if recipientID == senderID {
		return nil, invalid("cannot message yourself")
	}

	recipient, err := s.Repo.GetUserByID(ctx, recipientID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("recipient %w", ErrNotFound)
		}
		return nil, storeErr(err, "recipient")
	}
	if !recipient.Active {
		return nil, invalid("recipient account is deactivated")
	}

	m := &models.Message{SenderID: senderID, RecipientID: recipientID, Content: content}
	if err := s.Repo.CreateMessage(ctx, m); err != nil {
		return nil, storeErr(err, "message")
	}

	s.Notifier.Notify(ctx, recipientID, NotifyNewMessage, "You have a new message")
	s.Events.Publish(ctx, mykafka.TopicMessageEvents, m.ID.String(), "message_sent", map[string]any{
		"message_id":   m.ID,
		"sender_id":    senderID,
		"recipient_id": recipientID,
	})
	return m, nil
}

func (s *MessageService) Conversation(ctx context.Context, me, other uuid.UUID, offset, limit int) (int64, []models.Message, error) {
	total, items, err := s.Repo.Conversation(ctx, me, other, offset, limit)
	if err != nil {
		return 0, nil, storeErr(err, "messages")
	}
	return total, items, nil
}

func (s *MessageService) MarkRead(ctx context.Context, me, id uuid.UUID) (*models.Message, error) {
	m, err := s.Repo.GetMessage(ctx, id)
	if err != nil {
		return nil, storeErr(err, "message")
	}
	if m.RecipientID != me {
		return nil, forbidden("only the recipient can mark a message as read")
	}
	if !m.Read {
		if err := s.Repo.MarkMessageRead(ctx, id); err != nil {
			return nil, storeErr(err, "message")
		}
		m.Read = true
	}
	return m, nil
}

func (s *MessageService) UnreadCount(ctx context.Context, me uuid.UUID) (int64, error) {
	n, err := s.Repo.CountUnread(ctx, me)
	if err != nil {
		return 0, storeErr(err, "messages")
	}
	return n, nil
}
