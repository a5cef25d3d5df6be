package domain

import (
	"encoding/json"
	"time"
)

// AuditEvent is one append-only record of a state mutation, carrying the
// aggregate state before and after (audit_events table).
type AuditEvent struct {
	EventID  string `db:"event_id" json:"event_id"`
	TenantID string `db:"tenant_id" json:"tenant_id"`

	ActorID   string `db:"actor_id" json:"actor_id"`
	ActorRole string `db:"actor_role" json:"actor_role"`

	Action       string `db:"action" json:"action"`
	ResourceType string `db:"resource_type" json:"resource_type"` // "shift"/"task"/"admission"
	ResourceID   string `db:"resource_id" json:"resource_id"`

	Before json.RawMessage `db:"before_state" json:"before,omitempty"`
	After  json.RawMessage `db:"after_state" json:"after,omitempty"`

	OccurredAt time.Time `db:"occurred_at" json:"occurred_at"`
}
