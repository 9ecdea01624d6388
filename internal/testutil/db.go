// Package testutil provides a migrated in-memory database and fixtures for tests.
package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/gurkanbulca/storeflow/internal/database"
	"github.com/gurkanbulca/storeflow/internal/models"
)

// NewDB opens a private in-memory SQLite database with the full schema.
// The pool is pinned to one connection so the database outlives idle
// connection churn and writers never hit shared-cache table locks.
func NewDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.Open(database.Config{
		Driver:       "sqlite3",
		DSN:          fmt.Sprintf("file:%s?mode=memory&cache=shared&_fk=1", uuid.NewString()),
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, database.Migrate(context.Background(), db))
	return db
}

// InsertActor writes a user row and its role memberships directly.
func InsertActor(t *testing.T, db *database.DB, name string, roles ...models.Role) *models.Actor {
	t.Helper()
	return insertActor(t, db, name, true, roles)
}

// InsertInactiveActor writes a deactivated user.
func InsertInactiveActor(t *testing.T, db *database.DB, name string, roles ...models.Role) *models.Actor {
	t.Helper()
	return insertActor(t, db, name, false, roles)
}

var actorSeq int

func insertActor(t *testing.T, db *database.DB, name string, active bool, roles []models.Role) *models.Actor {
	t.Helper()
	ctx := context.Background()

	actorSeq++
	// distinct, increasing creation times keep oldest-first ordering stable
	createdAt := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC).Add(time.Duration(actorSeq) * time.Second)
	actor := &models.Actor{
		ID:        uuid.New(),
		FullName:  name,
		Email:     fmt.Sprintf("%s-%d@store.test", uuid.NewString()[:8], actorSeq),
		Active:    active,
		Roles:     roles,
		CreatedAt: createdAt,
	}

	_, err := db.ExecContext(ctx,
		"INSERT INTO users (id, full_name, email, is_active, created_at) VALUES (?, ?, ?, ?, ?)",
		actor.ID, actor.FullName, actor.Email, actor.Active, actor.CreatedAt)
	require.NoError(t, err)

	for i, role := range roles {
		_, err := db.ExecContext(ctx,
			"INSERT INTO user_roles (user_id, role, is_active, position, created_at) VALUES (?, ?, ?, ?, ?)",
			actor.ID, string(role), true, i, actor.CreatedAt)
		require.NoError(t, err)
	}
	return actor
}

// InsertTask writes a task row as-is, bypassing all routing rules. Zero
// required fields are filled with defaults.
func InsertTask(t *testing.T, db *database.DB, task *models.Task) *models.Task {
	t.Helper()

	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	if task.Title == "" {
		task.Title = "Fixture task"
	}
	if task.Type == "" {
		task.Type = "delivery"
	}
	if task.Priority == "" {
		task.Priority = models.PriorityMedium
	}
	if task.Status == "" {
		task.Status = models.StatusPending
	}
	if task.CreatedByID == uuid.Nil {
		task.CreatedByID = uuid.New()
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now().UTC()
	}
	task.UpdatedAt = task.CreatedAt

	var role, location any
	if task.TargetRole != nil {
		role = string(*task.TargetRole)
	}
	if task.DeliveryLocation != nil {
		location = string(*task.DeliveryLocation)
	}

	_, err := db.ExecContext(context.Background(),
		`INSERT INTO tasks (id, title, description, type, priority, status, due_date, notes,
			delivery_location, target_role, product_code, completed_at, assigned_to_id,
			created_by_id, customer_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		task.ID, task.Title, task.Description, task.Type, string(task.Priority), string(task.Status),
		utcOrNil(task.DueDate), task.Notes, location, role, task.ProductCode, utcOrNil(task.CompletedAt),
		uuidOrNil(task.AssignedToID), task.CreatedByID, uuidOrNil(task.CustomerID),
		task.CreatedAt.UTC(), task.UpdatedAt.UTC())
	require.NoError(t, err)
	return task
}

// RolePtr returns a pointer to r.
func RolePtr(r models.Role) *models.Role { return &r }

// UUIDPtr returns a pointer to id.
func UUIDPtr(id uuid.UUID) *uuid.UUID { return &id }

func utcOrNil(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func uuidOrNil(id *uuid.UUID) any {
	if id == nil {
		return nil
	}
	return *id
}
