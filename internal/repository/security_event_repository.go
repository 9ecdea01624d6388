package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/gurkanbulca/storeflow/internal/database"
	"github.com/gurkanbulca/storeflow/pkg/security"
)

const securityEventsTable = "security_events"

var securityEventColumns = []string{
	"id", "actor_id", "event_type", "severity", "method", "description", "ip_address", "user_agent", "created_at",
}

// SecurityEventRepository stores rejected authentication and authorization attempts.
type SecurityEventRepository struct {
	db *database.DB
}

func NewSecurityEventRepository(db *database.DB) *SecurityEventRepository {
	return &SecurityEventRepository{db: db}
}

type securityEventRow struct {
	ID          uuid.UUID      `db:"id"`
	ActorID     uuid.NullUUID  `db:"actor_id"`
	EventType   string         `db:"event_type"`
	Severity    string         `db:"severity"`
	Method      sql.NullString `db:"method"`
	Description sql.NullString `db:"description"`
	IPAddress   sql.NullString `db:"ip_address"`
	UserAgent   sql.NullString `db:"user_agent"`
	CreatedAt   time.Time      `db:"created_at"`
}

func (r securityEventRow) toModel() *security.Event {
	return &security.Event{
		ID:          r.ID,
		ActorID:     ptrUUID(r.ActorID),
		EventType:   r.EventType,
		Severity:    r.Severity,
		Method:      r.Method.String,
		Description: r.Description.String,
		IPAddress:   r.IPAddress.String,
		UserAgent:   r.UserAgent.String,
		CreatedAt:   r.CreatedAt,
	}
}

// Record validates and inserts the event, filling ID, severity and time when unset.
func (r *SecurityEventRepository) Record(ctx context.Context, e *security.Event) error {
	if _, err := security.ParseEventType(e.EventType); err != nil {
		return fmt.Errorf("invalid event type: %w", err)
	}
	if e.Severity == "" {
		e.Severity = security.DefaultSeverity(e.EventType)
	}
	if _, err := security.ParseSeverity(e.Severity); err != nil {
		return fmt.Errorf("invalid severity: %w", err)
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	query, args := entsql.Dialect(r.db.Dialect).
		Insert(securityEventsTable).
		Columns(securityEventColumns...).
		Values(
			e.ID, nullUUID(e.ActorID), e.EventType, e.Severity, nullString(e.Method),
			nullString(e.Description), nullString(e.IPAddress), nullString(e.UserAgent), e.CreatedAt.UTC(),
		).
		Query()

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert security event: %w", err)
	}
	return nil
}

// ListRecent returns the newest events first, optionally restricted to one type.
func (r *SecurityEventRepository) ListRecent(ctx context.Context, eventType string, limit int) ([]*security.Event, error) {
	sel := entsql.Dialect(r.db.Dialect).
		Select(securityEventColumns...).
		From(entsql.Table(securityEventsTable))
	if eventType != "" {
		sel = sel.Where(entsql.EQ("event_type", eventType))
	}
	sel = sel.OrderBy(entsql.Desc("created_at"), entsql.Asc("id"))
	if limit > 0 {
		sel = sel.Limit(limit)
	}

	query, args := sel.Query()
	var rows []securityEventRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("query security events: %w", err)
	}

	events := make([]*security.Event, len(rows))
	for i := range rows {
		events[i] = rows[i].toModel()
	}
	return events, nil
}
