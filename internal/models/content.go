package models

import "github.com/google/uuid"

const (
	BlogPublic  = "public"
	BlogPrivate = "private"
)

type Document struct {
	Base
	OwnerID     uuid.UUID  `gorm:"index;not null" json:"owner_id"`
	ClassID     *uuid.UUID `gorm:"index"          json:"class_id,omitempty"`
	Title       string     `gorm:"not null"       json:"title"`
	FileName    string     `gorm:"not null"       json:"file_name"`
	ObjectKey   string     `gorm:"uniqueIndex;not null" json:"-"`
	ContentType string     `json:"content_type"`
	Size        int64      `json:"size"`
}

type Blog struct {
	Base
	AuthorID   uuid.UUID `gorm:"index;not null" json:"author_id"`
	Title      string    `gorm:"not null"       json:"title"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	Visibility string    `gorm:"not null;default:public" json:"visibility"`
}

type BlogComment struct {
	Base
	BlogID   uuid.UUID `gorm:"index;not null" json:"blog_id"`
	AuthorID uuid.UUID `gorm:"index;not null" json:"author_id"`
	Content  string    `gorm:"type:text;not null" json:"content"`
}
