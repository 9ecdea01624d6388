// pkg/security/event_types.go
package security

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType constants for access events
const (
	EventTypeTokenRejected    = "token_rejected"
	EventTypeActorUnknown     = "actor_unknown"
	EventTypeActorInactive    = "actor_inactive"
	EventTypePermissionDenied = "permission_denied"
)

// Severity constants
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// Event is one recorded access decision.
type Event struct {
	ID          uuid.UUID  `json:"id"`
	ActorID     *uuid.UUID `json:"actorId,omitempty"`
	EventType   string     `json:"eventType"`
	Severity    string     `json:"severity"`
	Method      string     `json:"method,omitempty"`
	Description string     `json:"description,omitempty"`
	IPAddress   string     `json:"ipAddress,omitempty"`
	UserAgent   string     `json:"userAgent,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// Recorder persists events.
type Recorder interface {
	Record(ctx context.Context, event *Event) error
}

var defaultSeverity = map[string]string{
	EventTypeTokenRejected:    SeverityMedium,
	EventTypeActorUnknown:     SeverityHigh,
	EventTypeActorInactive:    SeverityMedium,
	EventTypePermissionDenied: SeverityLow,
}

// ParseEventType validates an event type string
func ParseEventType(eventType string) (string, error) {
	if _, ok := defaultSeverity[eventType]; ok {
		return eventType, nil
	}
	return "", fmt.Errorf("unknown event type: %s", eventType)
}

// ParseSeverity validates a severity string
func ParseSeverity(severity string) (string, error) {
	switch severity {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return severity, nil
	default:
		return "", fmt.Errorf("unknown severity: %s", severity)
	}
}

// DefaultSeverity is the severity recorded when the caller does not pick one.
func DefaultSeverity(eventType string) string {
	if s, ok := defaultSeverity[eventType]; ok {
		return s
	}
	return SeverityLow
}

// ValidEventTypes returns all valid event type strings
func ValidEventTypes() []string {
	return []string{
		EventTypeTokenRejected,
		EventTypeActorUnknown,
		EventTypeActorInactive,
		EventTypePermissionDenied,
	}
}

// ValidSeverities returns all valid severity strings
func ValidSeverities() []string {
	return []string{
		SeverityLow,
		SeverityMedium,
		SeverityHigh,
		SeverityCritical,
	}
}
