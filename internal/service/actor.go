package service

import (
	"github.com/google/uuid"

	"github.com/Skotchmaster/etutoring/internal/models"
)

// Actor is the authenticated caller of a service operation.
type Actor struct {
	ID   uuid.UUID
	Role string
}

func ActorOf(u *models.User) Actor {
	return Actor{ID: u.ID, Role: u.Role}
}

func (a Actor) IsAdmin() bool   { return a.Role == models.RoleAdmin }
func (a Actor) IsTutor() bool   { return a.Role == models.RoleTutor }
func (a Actor) IsStudent() bool { return a.Role == models.RoleStudent }
