package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"hospital-ops/internal/domain"
)

// PostgresAuditRepository append-only audit_events table. There is no update
// or delete path on purpose.
type PostgresAuditRepository struct {
	db *sql.DB
}

func NewPostgresAuditRepository(db *sql.DB) *PostgresAuditRepository {
	return &PostgresAuditRepository{db: db}
}

var _ AuditRepository = (*PostgresAuditRepository)(nil)

// AppendEvent inserts one audit event and returns its id.
func (r *PostgresAuditRepository) AppendEvent(ctx context.Context, event *domain.AuditEvent) (string, error) {
	if event.TenantID == "" {
		return "", fmt.Errorf("tenant_id is required")
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	query := `
		INSERT INTO audit_events (
			tenant_id,
			actor_id,
			actor_role,
			action,
			resource_type,
			resource_id,
			before_state,
			after_state,
			occurred_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING event_id::text
	`

	var before, after any
	if len(event.Before) > 0 {
		before = string(event.Before)
	}
	if len(event.After) > 0 {
		after = string(event.After)
	}

	var eventID string
	err := r.db.QueryRowContext(ctx, query, event.TenantID, event.ActorID,
		event.ActorRole, event.Action, event.ResourceType, event.ResourceID,
		before, after, event.OccurredAt).Scan(&eventID)
	if err != nil {
		return "", fmt.Errorf("failed to append audit event: %w", err)
	}

	return eventID, nil
}
