package dispatch

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/gurkanbulca/storeflow/internal/models"
	"github.com/gurkanbulca/storeflow/internal/repository"
)

// CreateTaskInput carries raw caller values; CreateTask normalizes them.
type CreateTaskInput struct {
	Title            string     `json:"title"`
	Description      string     `json:"description,omitempty"`
	Type             string     `json:"type"`
	Priority         string     `json:"priority"`
	Status           string     `json:"status,omitempty"`
	DueDate          *time.Time `json:"dueDate,omitempty"`
	AssignedTo       string     `json:"assignedTo,omitempty"`
	CustomerID       string     `json:"customerId,omitempty"`
	Notes            string     `json:"notes,omitempty"`
	DeliveryLocation string     `json:"deliveryLocation,omitempty"`
	TargetRole       string     `json:"targetRole,omitempty"`
	ProductCode      string     `json:"productCode,omitempty"`
}

// assignment is the placement decision for a new task.
type assignment struct {
	assignee *uuid.UUID
	status   models.TaskStatus
	auto     bool
}

// CreateTask validates input and places the task. An explicit assignee wins,
// then load-balanced auto assignment for Runner tasks, then the pool.
// Assignment resolution failures never fail the request.
func (e *Engine) CreateTask(ctx context.Context, input CreateTaskInput, actor *models.Actor) (*models.Task, error) {
	if actor == nil {
		return nil, &UnauthorizedError{Reason: "authentication required"}
	}

	title := strings.TrimSpace(input.Title)
	taskType := strings.TrimSpace(input.Type)
	if title == "" {
		return nil, invalid("title", "is required")
	}
	if taskType == "" {
		return nil, invalid("type", "is required")
	}
	if strings.TrimSpace(input.Priority) == "" {
		return nil, invalid("priority", "is required")
	}
	priority, err := models.ParsePriority(input.Priority)
	if err != nil {
		return nil, invalid("priority", err.Error())
	}
	if err := e.checkLengths(title, input.Description, input.Notes); err != nil {
		return nil, err
	}

	var requested models.TaskStatus
	if strings.TrimSpace(input.Status) != "" {
		if requested, err = models.ParseStatus(input.Status); err != nil {
			return nil, invalid("status", err.Error())
		}
	}

	task := &models.Task{
		ID:          uuid.New(),
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		Type:        taskType,
		Priority:    priority,
		Notes:       strings.TrimSpace(input.Notes),
		ProductCode: strings.TrimSpace(input.ProductCode),
		CreatedByID: actor.ID,
	}
	if input.DueDate != nil {
		due := input.DueDate.UTC()
		task.DueDate = &due
	}
	if strings.TrimSpace(input.TargetRole) != "" {
		role, err := models.ParseRole(input.TargetRole)
		if err != nil {
			return nil, invalid("targetRole", err.Error())
		}
		task.TargetRole = &role
	}
	if strings.TrimSpace(input.DeliveryLocation) != "" {
		loc, err := models.ParseDeliveryLocation(input.DeliveryLocation)
		if err != nil {
			return nil, invalid("deliveryLocation", err.Error())
		}
		task.DeliveryLocation = &loc
	}
	if strings.TrimSpace(input.CustomerID) != "" {
		id, err := uuid.Parse(strings.TrimSpace(input.CustomerID))
		if err != nil {
			return nil, invalid("customerId", "must be a valid id")
		}
		task.CustomerID = &id
	}
	if err := e.checkProductRequirement(ctx, task.Type, task.ProductCode); err != nil {
		return nil, err
	}

	placement := e.place(ctx, input.AssignedTo, task.TargetRole, requested)
	task.AssignedToID = placement.assignee
	task.Status = placement.status

	if task.Status == models.StatusCanceled && task.AssignedToID != nil {
		return nil, conflict("assigned task cannot be canceled")
	}

	now := e.now().UTC()
	task.CreatedAt = now
	task.UpdatedAt = now
	if task.Status == models.StatusCompleted {
		task.CompletedAt = &now
	}

	if err := e.tasks.Create(ctx, task); err != nil {
		return nil, err
	}

	switch {
	case placement.auto:
		log.Printf("[dispatch] Task %s auto-assigned to %s", task.ID, task.AssignedToID)
	case task.AssignedToID != nil:
		log.Printf("[dispatch] Task %s created by %s and assigned to %s", task.ID, actor.ID, task.AssignedToID)
	default:
		log.Printf("[dispatch] Task %s created by %s in pool %s", task.ID, actor.ID, poolName(task.TargetRole))
	}
	return task, nil
}

func (e *Engine) place(ctx context.Context, assignedTo string, targetRole *models.Role, requested models.TaskStatus) assignment {
	if strings.TrimSpace(assignedTo) != "" {
		if id, ok := e.resolveAssignee(ctx, assignedTo); ok {
			status := requested
			if status == "" {
				status = models.StatusInProgress
			}
			return assignment{assignee: &id, status: status}
		}
	}

	if targetRole != nil && *targetRole == models.RoleRunner && e.autoAssignmentEnabled(ctx) {
		if id, ok := e.leastBusy(ctx, models.RoleRunner); ok {
			return assignment{assignee: &id, status: models.StatusInProgress, auto: true}
		}
	}

	status := requested
	if status == "" {
		status = models.StatusPending
	}
	return assignment{status: status}
}

// resolveAssignee drops references that do not name an active actor.
func (e *Engine) resolveAssignee(ctx context.Context, ref string) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(ref))
	if err != nil {
		log.Printf("[dispatch] Warning: ignoring malformed assignee %q", ref)
		return uuid.Nil, false
	}

	actor, err := e.actors.GetByID(ctx, id)
	switch {
	case repository.IsNotFound(err):
		log.Printf("[dispatch] Warning: ignoring unknown assignee %s", id)
		return uuid.Nil, false
	case err != nil:
		log.Printf("[dispatch] Warning: could not resolve assignee %s: %v", id, err)
		return uuid.Nil, false
	case !actor.Active:
		log.Printf("[dispatch] Warning: ignoring inactive assignee %s", id)
		return uuid.Nil, false
	}
	return actor.ID, true
}

func (e *Engine) autoAssignmentEnabled(ctx context.Context) bool {
	if e.flags == nil {
		return false
	}
	enabled, err := e.flags.AutoAssignmentEnabled(ctx)
	if err != nil {
		log.Printf("[dispatch] Warning: could not read auto assignment flag, using %t: %v", enabled, err)
	}
	return enabled
}

// leastBusy picks the active holder of role with the fewest assigned tasks in
// progress. Assigned tasks still pending are not load. Ties go to the earliest
// listed actor.
func (e *Engine) leastBusy(ctx context.Context, role models.Role) (uuid.UUID, bool) {
	workloads, err := e.actors.ListWorkloads(ctx, []models.Role{role}, models.StatusLabels(models.StatusInProgress))
	if err != nil {
		log.Printf("[dispatch] Warning: auto assignment skipped, workload lookup failed: %v", err)
		return uuid.Nil, false
	}

	best := -1
	for i, w := range workloads {
		if best < 0 || w.ActiveCount < workloads[best].ActiveCount {
			best = i
		}
	}
	if best < 0 {
		log.Printf("[dispatch] Warning: auto assignment skipped, no active %s", role.DisplayName())
		return uuid.Nil, false
	}
	return workloads[best].Actor.ID, true
}

func (e *Engine) checkProductRequirement(ctx context.Context, taskType, productCode string) error {
	if e.types == nil || productCode != "" {
		return nil
	}
	def, err := e.types.Lookup(ctx, taskType)
	if repository.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if def.RequiresProduct {
		return invalid("productCode", fmt.Sprintf("is required for %s tasks", def.Code))
	}
	return nil
}

func (e *Engine) checkLengths(title, description, notes string) error {
	checks := []struct {
		field string
		value string
		max   int
	}{
		{"title", title, e.limits.MaxTitleLength},
		{"description", description, e.limits.MaxDescriptionLength},
		{"notes", notes, e.limits.MaxNotesLength},
	}
	for _, c := range checks {
		if c.max > 0 && utf8.RuneCountInString(c.value) > c.max {
			return invalid(c.field, fmt.Sprintf("must not exceed %d characters", c.max))
		}
	}
	return nil
}

func poolName(role *models.Role) string {
	if role == nil {
		return "general"
	}
	return string(*role)
}
