package models

import "github.com/google/uuid"

type Message struct {
	Base
	SenderID    uuid.UUID `gorm:"index;not null"     json:"sender_id"`
	RecipientID uuid.UUID `gorm:"index;not null"     json:"recipient_id"`
	Content     string    `gorm:"type:text;not null" json:"content"`
	Read        bool      `gorm:"not null;default:false" json:"read"`
}

type Notification struct {
	Base
	UserID uuid.UUID `gorm:"index;not null" json:"user_id"`
	Kind   string    `gorm:"not null"       json:"kind"`
	Text   string    `gorm:"not null"       json:"text"`
	Read   bool      `gorm:"not null;default:false" json:"read"`
}
