package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	ClassActive   = "active"
	ClassArchived = "archived"
)

type Course struct {
	Base
	Code        string    `gorm:"uniqueIndex;not null" json:"code"`
	Title       string    `gorm:"not null"             json:"title"`
	Description string    `json:"description"`
	OwnerID     uuid.UUID `gorm:"index;not null"       json:"owner_id"`
}

type Class struct {
	Base
	CourseID uuid.UUID `gorm:"index;not null" json:"course_id"`
	TutorID  uuid.UUID `gorm:"index;not null" json:"tutor_id"`
	Name     string    `gorm:"not null"       json:"name"`
	Schedule string    `json:"schedule"`
	Status   string    `gorm:"not null;default:active" json:"status"`
}

type Enrollment struct {
	Base
	ClassID    uuid.UUID `gorm:"uniqueIndex:idx_class_student;not null" json:"class_id"`
	StudentID  uuid.UUID `gorm:"uniqueIndex:idx_class_student;not null" json:"student_id"`
	EnrolledAt time.Time `gorm:"not null" json:"enrolled_at"`
}
