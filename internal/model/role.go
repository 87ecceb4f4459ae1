package model

import "time"

// Role represents a row in the `roles` table. A role is a named bundle of
// module grants; users reference it via users.role_id. Roles with assigned
// users cannot be deleted.
type Role struct {
	ID          uint64    // roles.id
	Name        string    // roles.name (unique)
	Description string    // roles.description
	Active      bool      // roles.active
	CreatedAt   time.Time // roles.created_at
	UpdatedAt   time.Time // roles.updated_at
}
