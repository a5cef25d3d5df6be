package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"hospital-ops/internal/domain"
	"hospital-ops/internal/repository"
	"hospital-ops/internal/store"
)

// AuditRecorder appends before/after snapshots of every mutation. Recording
// never fails the surrounding transition; sink errors are logged and dropped.
type AuditRecorder interface {
	Record(ctx context.Context, tenantID string, actor domain.Actor, action, resourceType, resourceID string, before, after any)
}

type auditRecorder struct {
	repo   repository.AuditRepository
	redis  *redis.Client
	stream string
	mirror bool
	logger *zap.Logger
}

// NewAuditRecorder writes to the audit_events table and, when mirror is set,
// XADDs the same event to a Redis Stream for downstream consumers.
func NewAuditRecorder(repo repository.AuditRepository, redisClient *redis.Client, stream string, mirror bool, logger *zap.Logger) AuditRecorder {
	return &auditRecorder{
		repo:   repo,
		redis:  redisClient,
		stream: stream,
		mirror: mirror && redisClient != nil,
		logger: logger,
	}
}

func (a *auditRecorder) Record(ctx context.Context, tenantID string, actor domain.Actor, action, resourceType, resourceID string, before, after any) {
	event := &domain.AuditEvent{
		TenantID:     tenantID,
		ActorID:      actor.UserID,
		ActorRole:    actor.Role,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		OccurredAt:   time.Now(),
	}

	if before != nil {
		if b, err := json.Marshal(before); err == nil {
			event.Before = b
		}
	}
	if after != nil {
		if b, err := json.Marshal(after); err == nil {
			event.After = b
		}
	}

	eventID, err := a.repo.AppendEvent(ctx, event)
	if err != nil {
		a.logger.Error("Failed to append audit event",
			zap.Error(err),
			zap.String("action", action),
			zap.String("resource_type", resourceType),
			zap.String("resource_id", resourceID),
		)
		return
	}
	event.EventID = eventID

	if a.mirror {
		if _, err := store.PublishJSONToStream(ctx, a.redis, a.stream, event); err != nil {
			a.logger.Warn("Failed to mirror audit event to stream",
				zap.Error(err),
				zap.String("stream", a.stream),
				zap.String("event_id", eventID),
			)
		}
	}
}
