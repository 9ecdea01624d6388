// internal/middleware/security_logger.go
package middleware

import (
	"context"
	"log"

	"github.com/google/uuid"

	"github.com/gurkanbulca/storeflow/pkg/security"
)

// SecurityLogger records access decisions with the caller's client information.
// A nil *SecurityLogger records nothing.
type SecurityLogger struct {
	recorder security.Recorder
}

// NewSecurityLogger creates a new security logger
func NewSecurityLogger(recorder security.Recorder) *SecurityLogger {
	return &SecurityLogger{recorder: recorder}
}

// LogFromContext records an event; failures are logged and never reach the caller.
func (sl *SecurityLogger) LogFromContext(ctx context.Context, actorID *uuid.UUID, eventType, method, description string) {
	if sl == nil || sl.recorder == nil {
		return
	}
	clientInfo := GetClientInfoFromContext(ctx)

	err := sl.recorder.Record(context.WithoutCancel(ctx), &security.Event{
		ActorID:     actorID,
		EventType:   eventType,
		Severity:    security.DefaultSeverity(eventType),
		Method:      method,
		Description: description,
		IPAddress:   clientInfo.IPAddress,
		UserAgent:   clientInfo.UserAgent,
	})
	if err != nil {
		log.Printf("[security] Warning: failed to record %s event: %v", eventType, err)
	}
}

func (sl *SecurityLogger) LogTokenRejected(ctx context.Context, method, reason string) {
	sl.LogFromContext(ctx, nil, security.EventTypeTokenRejected, method, reason)
}

func (sl *SecurityLogger) LogActorUnknown(ctx context.Context, actorID uuid.UUID, method string) {
	sl.LogFromContext(ctx, &actorID, security.EventTypeActorUnknown, method, "token issued for an actor missing from the directory")
}

func (sl *SecurityLogger) LogActorInactive(ctx context.Context, actorID uuid.UUID, method string) {
	sl.LogFromContext(ctx, &actorID, security.EventTypeActorInactive, method, "deactivated actor presented a valid token")
}

// LogPermissionDenied records a role check failure for the authenticated actor.
func (sl *SecurityLogger) LogPermissionDenied(ctx context.Context, method, reason string) {
	var actorID *uuid.UUID
	if actor, ok := ActorFromContext(ctx); ok {
		actorID = &actor.ID
	}
	sl.LogFromContext(ctx, actorID, security.EventTypePermissionDenied, method, reason)
}
