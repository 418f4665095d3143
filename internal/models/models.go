package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleStudent = "student"
	RoleTutor   = "tutor"
	RoleAdmin   = "admin"
)

func ValidRole(role string) bool {
	switch role {
	case RoleStudent, RoleTutor, RoleAdmin:
		return true
	}
	return false
}

type Base struct {
	ID        uuid.UUID `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (b *Base) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

type User struct {
	Base
	FullName        string     `gorm:"not null"                json:"full_name"`
	Email           string     `gorm:"uniqueIndex;not null"    json:"email"`
	PasswordHash    string     `gorm:"not null"                json:"-"`
	Role            string     `gorm:"index;not null"          json:"role"`
	Active          bool       `gorm:"not null;default:true"   json:"active"`
	PersonalTutorID *uuid.UUID `gorm:"index"                   json:"personal_tutor_id,omitempty"`
	LastLoginAt     *time.Time `json:"last_login_at,omitempty"`
}

type LoginHistory struct {
	Base
	UserID    uuid.UUID `gorm:"index;not null" json:"user_id"`
	IP        string    `json:"ip"`
	UserAgent string    `json:"user_agent"`
}

type RefreshToken struct {
	Base
	UserID    uuid.UUID `gorm:"index;not null"       json:"user_id"`
	TokenHash string    `gorm:"uniqueIndex;not null" json:"-"`
	JTI       string    `gorm:"uniqueIndex;not null" json:"jti"`
	Device    string    `json:"device"`
	ExpiresAt time.Time `gorm:"not null"             json:"expires_at"`
	Revoked   bool      `gorm:"not null;default:false" json:"revoked"`
}

// All lists every persisted model, in migration order.
func All() []any {
	return []any{
		&User{},
		&LoginHistory{},
		&RefreshToken{},
		&Course{},
		&Class{},
		&Enrollment{},
		&Meeting{},
		&Appointment{},
		&Document{},
		&Blog{},
		&BlogComment{},
		&Message{},
		&Notification{},
	}
}
