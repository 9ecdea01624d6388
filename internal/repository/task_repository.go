// internal/repository/task_repository.go
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/gurkanbulca/storeflow/internal/database"
	"github.com/gurkanbulca/storeflow/internal/models"
)

const tasksTable = "tasks"

var taskColumns = []string{
	"id", "title", "description", "type", "priority", "status", "due_date", "notes",
	"delivery_location", "target_role", "product_code", "completed_at",
	"assigned_to_id", "created_by_id", "customer_id", "created_at", "updated_at",
}

// Columns accepted by CountBy.
const (
	GroupByStatus     = "status"
	GroupByPriority   = "priority"
	GroupByType       = "type"
	GroupByAssignedTo = "assigned_to_id"
)

// priorityOrder sorts urgent first; unknown values last.
const priorityOrder = "CASE priority WHEN 'urgent' THEN 1 WHEN 'high' THEN 2 WHEN 'medium' THEN 3 WHEN 'low' THEN 4 ELSE 5 END"

type TaskRepository struct {
	db *database.DB
}

func NewTaskRepository(db *database.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

type taskRow struct {
	ID               uuid.UUID      `db:"id"`
	Title            string         `db:"title"`
	Description      sql.NullString `db:"description"`
	Type             string         `db:"type"`
	Priority         string         `db:"priority"`
	Status           string         `db:"status"`
	DueDate          sql.NullTime   `db:"due_date"`
	Notes            sql.NullString `db:"notes"`
	DeliveryLocation sql.NullString `db:"delivery_location"`
	TargetRole       sql.NullString `db:"target_role"`
	ProductCode      sql.NullString `db:"product_code"`
	CompletedAt      sql.NullTime   `db:"completed_at"`
	AssignedToID     uuid.NullUUID  `db:"assigned_to_id"`
	CreatedByID      uuid.UUID      `db:"created_by_id"`
	CustomerID       uuid.NullUUID  `db:"customer_id"`
	CreatedAt        time.Time      `db:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at"`
}

func (r taskRow) toModel() *models.Task {
	t := &models.Task{
		ID:           r.ID,
		Title:        r.Title,
		Description:  r.Description.String,
		Type:         r.Type,
		Priority:     models.Priority(r.Priority),
		Status:       models.TaskStatus(r.Status),
		DueDate:      ptrTime(r.DueDate),
		Notes:        r.Notes.String,
		ProductCode:  r.ProductCode.String,
		CompletedAt:  ptrTime(r.CompletedAt),
		AssignedToID: ptrUUID(r.AssignedToID),
		CreatedByID:  r.CreatedByID,
		CustomerID:   ptrUUID(r.CustomerID),
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
	// Rows written by older clients may carry localized labels.
	if status, err := models.ParseStatus(r.Status); err == nil {
		t.Status = status
	}
	if r.DeliveryLocation.Valid {
		loc := models.DeliveryLocation(r.DeliveryLocation.String)
		t.DeliveryLocation = &loc
	}
	if r.TargetRole.Valid {
		role := models.Role(r.TargetRole.String)
		t.TargetRole = &role
	}
	return t
}

// TaskFilter narrows task queries. Zero-valued fields are ignored.
type TaskFilter struct {
	Unassigned      bool
	AssignedTo      *uuid.UUID
	AssignedToAny   []uuid.UUID
	CreatedBy       *uuid.UUID
	Statuses        []string // stored labels, synonyms included
	ExcludeStatuses []string
	Priority        *models.Priority
	Type            string
	TargetRoles     []models.Role
	Untargeted      bool

	// TargetRoleOrUnset matches tasks targeted at the role or at nobody.
	TargetRoleOrUnset *models.Role

	// AssigneeRole matches tasks whose assignee actively holds the role.
	AssigneeRole *models.Role

	DueBefore       *time.Time
	CompletedFrom   *time.Time
	CompletedBefore *time.Time
	Search          string

	SortBy string // "priority" or "" for newest first
	Limit  int
	Offset int
}

func (f TaskFilter) predicate() *entsql.Predicate {
	var preds []*entsql.Predicate

	if f.Unassigned {
		preds = append(preds, entsql.IsNull("assigned_to_id"))
	}
	if f.AssignedTo != nil {
		preds = append(preds, entsql.EQ("assigned_to_id", *f.AssignedTo))
	}
	if f.AssignedToAny != nil {
		preds = append(preds, entsql.In("assigned_to_id", uuidArgs(f.AssignedToAny)...))
	}
	if f.CreatedBy != nil {
		preds = append(preds, entsql.EQ("created_by_id", *f.CreatedBy))
	}
	if f.Statuses != nil {
		preds = append(preds, entsql.In("status", stringArgs(f.Statuses)...))
	}
	if len(f.ExcludeStatuses) > 0 {
		preds = append(preds, entsql.NotIn("status", stringArgs(f.ExcludeStatuses)...))
	}
	if f.Priority != nil {
		preds = append(preds, entsql.EQ("priority", string(*f.Priority)))
	}
	if f.Type != "" {
		preds = append(preds, entsql.EQ("type", f.Type))
	}
	if f.TargetRoles != nil {
		roles := make([]any, len(f.TargetRoles))
		for i, r := range f.TargetRoles {
			roles[i] = string(r)
		}
		preds = append(preds, entsql.In("target_role", roles...))
	}
	if f.Untargeted {
		preds = append(preds, entsql.IsNull("target_role"))
	}
	if f.TargetRoleOrUnset != nil {
		preds = append(preds, entsql.Or(
			entsql.IsNull("target_role"),
			entsql.EQ("target_role", string(*f.TargetRoleOrUnset)),
		))
	}
	if f.AssigneeRole != nil {
		holders := entsql.Select("user_id").
			From(entsql.Table("user_roles")).
			Where(entsql.And(
				entsql.EQ("role", string(*f.AssigneeRole)),
				entsql.EQ("is_active", true),
			))
		preds = append(preds, entsql.In("assigned_to_id", holders))
	}
	if f.DueBefore != nil {
		preds = append(preds, entsql.LT("due_date", f.DueBefore.UTC()))
	}
	if f.CompletedFrom != nil {
		preds = append(preds, entsql.GTE("completed_at", f.CompletedFrom.UTC()))
	}
	if f.CompletedBefore != nil {
		preds = append(preds, entsql.LT("completed_at", f.CompletedBefore.UTC()))
	}
	if f.Search != "" {
		customers := entsql.Select("id").
			From(entsql.Table("customers")).
			Where(entsql.ContainsFold("full_name", f.Search))
		preds = append(preds, entsql.Or(
			entsql.ContainsFold("title", f.Search),
			entsql.ContainsFold("description", f.Search),
			entsql.In("customer_id", customers),
		))
	}

	if len(preds) == 0 {
		return nil
	}
	return entsql.And(preds...)
}

func (r *TaskRepository) selectTasks(f TaskFilter, columns ...string) *entsql.Selector {
	s := entsql.Dialect(r.db.Dialect).
		Select(columns...).
		From(entsql.Table(tasksTable))
	if p := f.predicate(); p != nil {
		s = s.Where(p)
	}
	return s
}

func (r *TaskRepository) Create(ctx context.Context, t *models.Task) error {
	var location, role any
	if t.DeliveryLocation != nil {
		location = string(*t.DeliveryLocation)
	}
	if t.TargetRole != nil {
		role = string(*t.TargetRole)
	}

	query, args := entsql.Dialect(r.db.Dialect).
		Insert(tasksTable).
		Columns(taskColumns...).
		Values(
			t.ID, t.Title, nullString(t.Description), t.Type, string(t.Priority), string(t.Status),
			nullTime(t.DueDate), nullString(t.Notes), location, role, nullString(t.ProductCode),
			nullTime(t.CompletedAt), nullUUID(t.AssignedToID), t.CreatedByID, nullUUID(t.CustomerID),
			t.CreatedAt.UTC(), t.UpdatedAt.UTC(),
		).
		Query()

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

func (r *TaskRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	query, args := r.selectTasks(TaskFilter{}, taskColumns...).
		Where(entsql.EQ("id", id)).
		Query()

	var row taskRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		return nil, notFound(err, "task")
	}
	return row.toModel(), nil
}

// List returns one page of matching tasks and the total match count.
func (r *TaskRepository) List(ctx context.Context, filter TaskFilter) ([]*models.Task, int, error) {
	totalCount, err := r.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	sel := r.selectTasks(filter, taskColumns...)
	switch filter.SortBy {
	case "priority":
		sel = sel.OrderExpr(entsql.Expr(priorityOrder)).
			OrderBy(entsql.Desc("created_at"), entsql.Asc("id"))
	default:
		sel = sel.OrderBy(entsql.Desc("created_at"), entsql.Asc("id"))
	}

	// Apply pagination
	if filter.Limit > 0 {
		sel = sel.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		sel = sel.Offset(filter.Offset)
	}

	query, args := sel.Query()
	var rows []taskRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("query tasks: %w", err)
	}

	tasks := make([]*models.Task, len(rows))
	for i := range rows {
		tasks[i] = rows[i].toModel()
	}
	return tasks, totalCount, nil
}

func (r *TaskRepository) Count(ctx context.Context, filter TaskFilter) (int, error) {
	query, args := r.selectTasks(filter, entsql.Count("*")).Query()

	var n int
	if err := r.db.GetContext(ctx, &n, query, args...); err != nil {
		return 0, fmt.Errorf("count tasks: %w", err)
	}
	return n, nil
}

type groupRow struct {
	Key   sql.NullString `db:"group_key"`
	Total int            `db:"total"`
}

// CountBy counts matching tasks per distinct value of column. NULL values are
// reported under the empty key.
func (r *TaskRepository) CountBy(ctx context.Context, filter TaskFilter, column string) (map[string]int, error) {
	switch column {
	case GroupByStatus, GroupByPriority, GroupByType, GroupByAssignedTo:
	default:
		return nil, fmt.Errorf("count tasks: unsupported group column %q", column)
	}

	query, args := r.selectTasks(filter, entsql.As(column, "group_key"), entsql.As(entsql.Count("*"), "total")).
		GroupBy(column).
		Query()

	var rows []groupRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("count tasks by %s: %w", column, err)
	}

	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.Key.String] += row.Total
	}
	return counts, nil
}

// TaskUpdateInput describes a partial update. Nil pointers leave the stored
// value untouched; Clear* flags write NULL.
type TaskUpdateInput struct {
	Title                 *string
	Description           *string
	Type                  *string
	Priority              *models.Priority
	Status                *models.TaskStatus
	DueDate               *time.Time
	ClearDueDate          bool
	Notes                 *string
	DeliveryLocation      *models.DeliveryLocation
	ClearDeliveryLocation bool
	TargetRole            *models.Role
	ClearTargetRole       bool
	ProductCode           *string
	AssignedToID          *uuid.UUID
	ClearAssignedTo       bool
	CustomerID            *uuid.UUID
	ClearCustomer         bool
	CompletedAt           *time.Time
	ClearCompletedAt      bool
	UpdatedAt             time.Time

	// RequireUnassigned makes the write conditional on the task still being
	// in a pool at write time.
	RequireUnassigned bool
}

// Update applies input and reports whether a row matched the conditions.
func (r *TaskRepository) Update(ctx context.Context, id uuid.UUID, input *TaskUpdateInput) (bool, error) {
	update := entsql.Dialect(r.db.Dialect).
		Update(tasksTable).
		Set("updated_at", input.UpdatedAt.UTC())

	if input.Title != nil {
		update = update.Set("title", *input.Title)
	}
	if input.Description != nil {
		update = update.Set("description", nullString(*input.Description))
	}
	if input.Type != nil {
		update = update.Set("type", *input.Type)
	}
	if input.Priority != nil {
		update = update.Set("priority", string(*input.Priority))
	}
	if input.Status != nil {
		update = update.Set("status", string(*input.Status))
	}
	if input.ClearDueDate {
		update = update.SetNull("due_date")
	} else if input.DueDate != nil {
		update = update.Set("due_date", input.DueDate.UTC())
	}
	if input.Notes != nil {
		update = update.Set("notes", nullString(*input.Notes))
	}
	if input.ClearDeliveryLocation {
		update = update.SetNull("delivery_location")
	} else if input.DeliveryLocation != nil {
		update = update.Set("delivery_location", string(*input.DeliveryLocation))
	}
	if input.ClearTargetRole {
		update = update.SetNull("target_role")
	} else if input.TargetRole != nil {
		update = update.Set("target_role", string(*input.TargetRole))
	}
	if input.ProductCode != nil {
		update = update.Set("product_code", nullString(*input.ProductCode))
	}
	if input.ClearAssignedTo {
		update = update.SetNull("assigned_to_id")
	} else if input.AssignedToID != nil {
		update = update.Set("assigned_to_id", *input.AssignedToID)
	}
	if input.ClearCustomer {
		update = update.SetNull("customer_id")
	} else if input.CustomerID != nil {
		update = update.Set("customer_id", *input.CustomerID)
	}
	if input.ClearCompletedAt {
		update = update.SetNull("completed_at")
	} else if input.CompletedAt != nil {
		update = update.Set("completed_at", input.CompletedAt.UTC())
	}

	where := entsql.EQ("id", id)
	if input.RequireUnassigned {
		where = entsql.And(where, entsql.IsNull("assigned_to_id"))
	}

	query, args := update.Where(where).Query()
	return r.execAffected(ctx, "update task", query, args)
}

// Claim assigns a pool task to actorID in a single conditional statement, so
// of several concurrent claims at most one matches.
func (r *TaskRepository) Claim(ctx context.Context, id, actorID uuid.UUID, poolStatuses []string, status models.TaskStatus, at time.Time) (bool, error) {
	query, args := entsql.Dialect(r.db.Dialect).
		Update(tasksTable).
		Set("assigned_to_id", actorID).
		Set("status", string(status)).
		Set("updated_at", at.UTC()).
		Where(entsql.And(
			entsql.EQ("id", id),
			entsql.IsNull("assigned_to_id"),
			entsql.In("status", stringArgs(poolStatuses)...),
		)).
		Query()

	return r.execAffected(ctx, "claim task", query, args)
}

// DeleteUnassigned removes the task only while it has no assignee.
func (r *TaskRepository) DeleteUnassigned(ctx context.Context, id uuid.UUID) (bool, error) {
	query, args := entsql.Dialect(r.db.Dialect).
		Delete(tasksTable).
		Where(entsql.And(
			entsql.EQ("id", id),
			entsql.IsNull("assigned_to_id"),
		)).
		Query()

	return r.execAffected(ctx, "delete task", query, args)
}

func (r *TaskRepository) execAffected(ctx context.Context, op, query string, args []any) (bool, error) {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: rows affected: %w", op, err)
	}
	return n > 0, nil
}
