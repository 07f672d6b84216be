// internal/services/actor.go
package services

import (
	"github.com/google/uuid"

	"github.com/javajoker/tastecert-backend/internal/models"
)

// Actor is the authenticated caller of a service operation.
type Actor struct {
	ID        uuid.UUID
	Role      models.Role
	IPAddress string
	UserAgent string
}

// Anonymous is the actor for unauthenticated public calls.
var Anonymous = Actor{}

func (a Actor) Authenticated() bool {
	return a.ID != uuid.Nil
}

func (a Actor) IsAdmin() bool {
	return a.Authenticated() && a.Role == models.RoleAdmin
}

func requireAdmin(actor Actor) error {
	if !actor.Authenticated() {
		return ErrUnauthorized
	}
	if !actor.IsAdmin() {
		return ErrForbidden
	}
	return nil
}

// canAccess reports whether actor may see resources owned by ownerID.
func canAccess(actor Actor, ownerID uuid.UUID) bool {
	return actor.IsAdmin() || (actor.Authenticated() && actor.ID == ownerID)
}
