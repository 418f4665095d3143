package transport

import (
	"time"

	"github.com/google/uuid"

	"github.com/Skotchmaster/etutoring/internal/util"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	AccountID uuid.UUID `json:"account_id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Role      string    `json:"role"`
}

type CreateUserRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type UpdateUserRequest struct {
	FullName *string `json:"full_name"`
	Email    *string `json:"email"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type AllocationRequest struct {
	TutorID    uuid.UUID   `json:"tutor_id"`
	StudentIDs []uuid.UUID `json:"student_ids"`
}

type CourseRequest struct {
	Code        *string `json:"code"`
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

type ClassRequest struct {
	CourseID *uuid.UUID `json:"course_id"`
	TutorID  *uuid.UUID `json:"tutor_id"`
	Name     *string    `json:"name"`
	Schedule *string    `json:"schedule"`
	Status   *string    `json:"status"`
}

type EnrollmentRequest struct {
	StudentID uuid.UUID `json:"student_id"`
}

type MeetingRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	TutorID     *uuid.UUID `json:"tutor_id"`
	StudentID   *uuid.UUID `json:"student_id"`
	StartAt     time.Time  `json:"start_at"`
	EndAt       time.Time  `json:"end_at"`
	Mode        string     `json:"mode"`
	Location    string     `json:"location"`
}

type StatusRequest struct {
	Status string `json:"status"`
}

type AppointmentRequest struct {
	RequestedAt time.Time `json:"requested_at"`
	Reason      string    `json:"reason"`
}

type AppointmentUpdateRequest struct {
	Status string `json:"status"`
	Note   string `json:"note"`
}

type BlogRequest struct {
	Title      *string `json:"title"`
	Content    *string `json:"content"`
	Visibility *string `json:"visibility"`
}

type CommentRequest struct {
	Content string `json:"content"`
}

type MessageRequest struct {
	RecipientID uuid.UUID `json:"recipient_id"`
	Content     string    `json:"content"`
}

type ListResponse[T any] struct {
	Data []T       `json:"data"`
	Meta util.Meta `json:"meta"`
}

func NewList[T any](items []T, p util.Page, total int64) ListResponse[T] {
	if items == nil {
		items = []T{}
	}
	return ListResponse[T]{Data: items, Meta: p.Meta(total)}
}
