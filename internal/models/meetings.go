package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	MeetingScheduled = "scheduled"
	MeetingCompleted = "completed"
	MeetingCancelled = "cancelled"

	MeetingOnline   = "online"
	MeetingInPerson = "in_person"
)

const (
	AppointmentPending   = "pending"
	AppointmentAccepted  = "accepted"
	AppointmentRejected  = "rejected"
	AppointmentCancelled = "cancelled"
)

type Meeting struct {
	Base
	Title       string    `gorm:"not null"       json:"title"`
	Description string    `json:"description"`
	TutorID     uuid.UUID `gorm:"index;not null" json:"tutor_id"`
	StudentID   uuid.UUID `gorm:"index;not null" json:"student_id"`
	StartAt     time.Time `gorm:"not null"       json:"start_at"`
	EndAt       time.Time `gorm:"not null"       json:"end_at"`
	Mode        string    `gorm:"not null"       json:"mode"`
	Location    string    `json:"location"`
	Status      string    `gorm:"not null;default:scheduled" json:"status"`
	CreatedBy   uuid.UUID `gorm:"not null"       json:"created_by"`
}

func (m *Meeting) HasParticipant(userID uuid.UUID) bool {
	return m.TutorID == userID || m.StudentID == userID
}

type Appointment struct {
	Base
	StudentID   uuid.UUID `gorm:"index;not null" json:"student_id"`
	TutorID     uuid.UUID `gorm:"index;not null" json:"tutor_id"`
	RequestedAt time.Time `gorm:"not null"       json:"requested_at"`
	Reason      string    `json:"reason"`
	Status      string    `gorm:"not null;default:pending" json:"status"`
	TutorNote   string    `json:"tutor_note"`
}
