// Package repository implements data access for users, roles, modules,
// grants and refresh tokens on top of database/sql. This file defines the
// sentinel errors shared by all repositories. Higher layers match them
// with errors.Is and translate them into HTTP status codes: ErrNotFound
// becomes 404, ErrConflict 409, ErrUnauthorized 401, ErrForbidden 403 and
// ErrInvalidInput 400. Repositories wrap the sentinels with fmt.Errorf
// ("...: %w") to attach a caller-safe message; anything not wrapping one
// of these values is an internal error and must not leak its detail.
package repository

import "errors"

// ErrNotFound is returned when a referenced entity (user, role, module,
// token) does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned on uniqueness violations, self-parent or cyclic
// module hierarchies, and deletions blocked by dependent records.
var ErrConflict = errors.New("conflict")

// ErrUnauthorized is returned for missing, invalid, expired or revoked
// credentials and tokens. It deliberately never distinguishes "wrong
// password" from "unknown email".
var ErrUnauthorized = errors.New("unauthorized")

// ErrForbidden is returned when the caller is authenticated but the
// account state (inactive, unapproved) or a role gate disallows the
// operation.
var ErrForbidden = errors.New("forbidden")

// ErrInvalidInput is returned when a value fails validation before it
// reaches the database (empty names, unknown flags).
var ErrInvalidInput = errors.New("invalid input")
