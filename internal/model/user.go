package model

import "time"

// User represents an application user record as stored in the `users`
// table. Each field corresponds to a column in the database. A user may
// reference a role through RoleID; the field is a pointer because a user
// can exist without any role at all (direct module grants still apply).
//
// Fields:
//
//	ID           – primary key identifier of the user.
//	Name         – display name.
//	Email        – unique email address.
//	PasswordHash – bcrypt hashed password.
//	RoleID       – foreign key into the roles table (nil when no role).
//	Approved     – an administrator must approve the account before sign-in succeeds.
//	Active       – soft-disable flag; inactive users cannot sign in.
//	CreatedAt    – timestamp of creation.
//	UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64    // users.id
	Name         string    // users.name
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	RoleID       *uint64   // users.role_id (nullable)
	Approved     bool      // users.approved
	Active       bool      // users.active
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}
