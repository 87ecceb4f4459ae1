// Package queue defines message payloads exchanged over the message
// broker and the background consumer that turns them into an audit log.
package queue

import (
	"time"

	"github.com/google/uuid"
)

// AuditQueueName is the durable queue carrying audit events.
const AuditQueueName = "audit.events"

// Audit actions published by the handlers.
const (
	ActionUserSignedUp    = "user.signed_up"
	ActionUserSignedIn    = "user.signed_in"
	ActionUserApproved    = "user.approved"
	ActionUserDeactivated = "user.deactivated"
	ActionUserDeleted     = "user.deleted"
	ActionRoleCreated     = "role.created"
	ActionRoleDeleted     = "role.deleted"
	ActionModuleCreated   = "module.created"
	ActionModuleDeleted   = "module.deleted"
	ActionGrantAdded      = "grant.added"
	ActionGrantRevoked    = "grant.revoked"
)

// AuditEvent records one administrative or authentication action. It
// carries enough information for downstream consumers to log or alert
// without querying the primary database.
type AuditEvent struct {
	ID         string `json:"id"`          // unique event id
	Action     string `json:"action"`      // one of the Action* constants
	ActorID    uint64 `json:"actor_id"`    // user who performed the action (0 for anonymous)
	TargetType string `json:"target_type"` // "user", "role", "module", "grant"
	TargetID   uint64 `json:"target_id"`
	Detail     string `json:"detail,omitempty"`
	OccurredAt string `json:"occurred_at"` // RFC 3339 UTC
}

// NewAuditEvent stamps an event with a fresh id and the current time.
func NewAuditEvent(action string, actorID uint64, targetType string, targetID uint64, detail string) AuditEvent {
	return AuditEvent{
		ID:         uuid.NewString(),
		Action:     action,
		ActorID:    actorID,
		TargetType: targetType,
		TargetID:   targetID,
		Detail:     detail,
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
	}
}
