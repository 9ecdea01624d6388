package dispatch

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gurkanbulca/storeflow/internal/models"
	"github.com/gurkanbulca/storeflow/internal/repository"
)

// UpdateTaskInput is a partial update. Nil fields keep their stored value.
// For AssignedTo, CustomerID, DeliveryLocation and TargetRole an empty string
// clears the field.
type UpdateTaskInput struct {
	Title            *string    `json:"title,omitempty"`
	Description      *string    `json:"description,omitempty"`
	Type             *string    `json:"type,omitempty"`
	Priority         *string    `json:"priority,omitempty"`
	Status           *string    `json:"status,omitempty"`
	DueDate          *time.Time `json:"dueDate,omitempty"`
	ClearDueDate     bool       `json:"clearDueDate,omitempty"`
	AssignedTo       *string    `json:"assignedTo,omitempty"`
	CustomerID       *string    `json:"customerId,omitempty"`
	Notes            *string    `json:"notes,omitempty"`
	DeliveryLocation *string    `json:"deliveryLocation,omitempty"`
	TargetRole       *string    `json:"targetRole,omitempty"`
	ProductCode      *string    `json:"productCode,omitempty"`
}

// GetTask returns a single task.
func (e *Engine) GetTask(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	task, err := e.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, taskLookupError(err, id)
	}
	return task, nil
}

// TakeTask claims a pool task for actor. The claim is one conditional write,
// so among concurrent claims of the same task exactly one succeeds.
func (e *Engine) TakeTask(ctx context.Context, id uuid.UUID, actor *models.Actor) (*models.Task, error) {
	if actor == nil {
		return nil, &UnauthorizedError{Reason: "authentication required"}
	}

	ok, err := e.tasks.Claim(ctx, id, actor.ID, models.StatusLabels(models.StatusPending), models.StatusInProgress, e.now())
	if err != nil {
		return nil, err
	}
	if !ok {
		current, err := e.tasks.GetByID(ctx, id)
		if err != nil {
			return nil, taskLookupError(err, id)
		}
		if current.AssignedToID != nil {
			return nil, conflict("task is already assigned")
		}
		return nil, conflict("task is not in pool")
	}

	log.Printf("[dispatch] Task %s taken by %s", id, actor.ID)
	return e.GetTask(ctx, id)
}

// UpdateTask merges input into the stored task. Status changes must follow
// models.TaskStatus.CanTransitionTo, canceling is refused while the task has
// an assignee, and completedAt follows the status transition.
func (e *Engine) UpdateTask(ctx context.Context, id uuid.UUID, input UpdateTaskInput, actor *models.Actor) (*models.Task, error) {
	if actor == nil {
		return nil, &UnauthorizedError{Reason: "authentication required"}
	}

	current, err := e.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, taskLookupError(err, id)
	}

	now := e.now().UTC()
	upd := &repository.TaskUpdateInput{UpdatedAt: now}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, invalid("title", "must not be blank")
		}
		upd.Title = &title
	}
	if input.Description != nil {
		desc := strings.TrimSpace(*input.Description)
		upd.Description = &desc
	}
	if input.Notes != nil {
		notes := strings.TrimSpace(*input.Notes)
		upd.Notes = &notes
	}
	if err := e.checkLengths(deref(upd.Title), deref(upd.Description), deref(upd.Notes)); err != nil {
		return nil, err
	}

	resultType, resultProduct := current.Type, current.ProductCode
	if input.Type != nil {
		t := strings.TrimSpace(*input.Type)
		if t == "" {
			return nil, invalid("type", "must not be blank")
		}
		upd.Type = &t
		resultType = t
	}
	if input.ProductCode != nil {
		code := strings.TrimSpace(*input.ProductCode)
		upd.ProductCode = &code
		resultProduct = code
	}
	if input.Type != nil || input.ProductCode != nil {
		if err := e.checkProductRequirement(ctx, resultType, resultProduct); err != nil {
			return nil, err
		}
	}

	if input.Priority != nil {
		p, err := models.ParsePriority(*input.Priority)
		if err != nil {
			return nil, invalid("priority", err.Error())
		}
		upd.Priority = &p
	}

	if input.ClearDueDate {
		upd.ClearDueDate = true
	} else if input.DueDate != nil {
		due := input.DueDate.UTC()
		upd.DueDate = &due
	}

	if input.DeliveryLocation != nil {
		if strings.TrimSpace(*input.DeliveryLocation) == "" {
			upd.ClearDeliveryLocation = true
		} else {
			loc, err := models.ParseDeliveryLocation(*input.DeliveryLocation)
			if err != nil {
				return nil, invalid("deliveryLocation", err.Error())
			}
			upd.DeliveryLocation = &loc
		}
	}

	if input.TargetRole != nil {
		if strings.TrimSpace(*input.TargetRole) == "" {
			upd.ClearTargetRole = true
		} else {
			role, err := models.ParseRole(*input.TargetRole)
			if err != nil {
				return nil, invalid("targetRole", err.Error())
			}
			upd.TargetRole = &role
		}
	}

	if input.CustomerID != nil {
		if strings.TrimSpace(*input.CustomerID) == "" {
			upd.ClearCustomer = true
		} else {
			cid, err := uuid.Parse(strings.TrimSpace(*input.CustomerID))
			if err != nil {
				return nil, invalid("customerId", "must be a valid id")
			}
			upd.CustomerID = &cid
		}
	}

	resultAssignee := current.AssignedToID
	if input.AssignedTo != nil {
		if strings.TrimSpace(*input.AssignedTo) == "" {
			upd.ClearAssignedTo = true
			resultAssignee = nil
		} else {
			assignee, err := e.lookupAssignee(ctx, *input.AssignedTo)
			if err != nil {
				return nil, err
			}
			upd.AssignedToID = &assignee
			resultAssignee = &assignee
		}
	}

	resultStatus := current.Status
	if input.Status != nil {
		s, err := models.ParseStatus(*input.Status)
		if err != nil {
			return nil, invalid("status", err.Error())
		}
		if !current.Status.CanTransitionTo(s) {
			return nil, conflict(fmt.Sprintf("task cannot move from %s to %s", current.Status, s))
		}
		upd.Status = &s
		resultStatus = s
	}

	if resultStatus == models.StatusCanceled {
		if current.AssignedToID != nil || resultAssignee != nil {
			return nil, conflict("assigned task cannot be canceled")
		}
		// a concurrent claim between read and write must also fail the cancel
		upd.RequireUnassigned = true
	}

	switch {
	case resultStatus == models.StatusCompleted && (current.Status != models.StatusCompleted || current.CompletedAt == nil):
		upd.CompletedAt = &now
	case resultStatus != models.StatusCompleted && current.CompletedAt != nil:
		upd.ClearCompletedAt = true
	}

	ok, err := e.tasks.Update(ctx, id, upd)
	if err != nil {
		return nil, err
	}
	if !ok {
		latest, err := e.tasks.GetByID(ctx, id)
		if err != nil {
			return nil, taskLookupError(err, id)
		}
		if upd.RequireUnassigned && latest.AssignedToID != nil {
			return nil, conflict("assigned task cannot be canceled")
		}
		return nil, conflict("task changed during update")
	}

	if upd.Status != nil && *upd.Status != current.Status {
		log.Printf("[dispatch] Task %s moved %s -> %s by %s", id, current.Status, *upd.Status, actor.ID)
	}
	return e.GetTask(ctx, id)
}

// DeleteTask removes a task that is still in a pool.
func (e *Engine) DeleteTask(ctx context.Context, id uuid.UUID, actor *models.Actor) error {
	if actor == nil {
		return &UnauthorizedError{Reason: "authentication required"}
	}

	ok, err := e.tasks.DeleteUnassigned(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		if _, err := e.tasks.GetByID(ctx, id); err != nil {
			return taskLookupError(err, id)
		}
		return conflict("assigned task cannot be deleted")
	}

	log.Printf("[dispatch] Task %s deleted by %s", id, actor.ID)
	return nil
}

// lookupAssignee resolves an explicit reassignment. Unlike creation, a bad
// reference fails the update.
func (e *Engine) lookupAssignee(ctx context.Context, ref string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(ref))
	if err != nil {
		return uuid.Nil, invalid("assignedTo", "must be a valid id")
	}
	actor, err := e.actors.GetByID(ctx, id)
	if repository.IsNotFound(err) {
		return uuid.Nil, &NotFoundError{Resource: "actor", ID: id.String()}
	}
	if err != nil {
		return uuid.Nil, err
	}
	return actor.ID, nil
}

func taskLookupError(err error, id uuid.UUID) error {
	if repository.IsNotFound(err) {
		return &NotFoundError{Resource: "task", ID: id.String()}
	}
	return err
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
