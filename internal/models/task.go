package models

import (
	"time"

	"github.com/google/uuid"
)

// Task is a unit of store work. A nil AssignedToID means the task sits in a pool.
type Task struct {
	ID               uuid.UUID         `json:"id"`
	Title            string            `json:"title"`
	Description      string            `json:"description,omitempty"`
	Type             string            `json:"type"`
	Priority         Priority          `json:"priority"`
	Status           TaskStatus        `json:"status"`
	DueDate          *time.Time        `json:"dueDate,omitempty"`
	Notes            string            `json:"notes,omitempty"`
	DeliveryLocation *DeliveryLocation `json:"deliveryLocation,omitempty"`
	TargetRole       *Role             `json:"targetRole,omitempty"`
	ProductCode      string            `json:"productCode,omitempty"`
	CompletedAt      *time.Time        `json:"completedAt,omitempty"`
	AssignedToID     *uuid.UUID        `json:"assignedToId,omitempty"`
	CreatedByID      uuid.UUID         `json:"createdById"`
	CustomerID       *uuid.UUID        `json:"customerId,omitempty"`
	CreatedAt        time.Time         `json:"createdAt"`
	UpdatedAt        time.Time         `json:"updatedAt"`
}

// InPool reports whether the task can still be claimed.
func (t *Task) InPool() bool {
	return t.AssignedToID == nil && t.Status == StatusPending
}

// TaskType is a catalog entry for a task category.
type TaskType struct {
	Code            string `json:"code"`
	Label           string `json:"label"`
	RequiresProduct bool   `json:"requiresProduct"`
	Active          bool   `json:"active"`
}

// Actor is an authenticated member of store staff.
type Actor struct {
	ID        uuid.UUID `json:"id"`
	FullName  string    `json:"fullName"`
	Email     string    `json:"email"`
	Active    bool      `json:"active"`
	Roles     []Role    `json:"roles"` // active memberships, primary first
	CreatedAt time.Time `json:"createdAt"`
}

// PrimaryRole is the first active role membership.
func (a *Actor) PrimaryRole() (Role, bool) {
	if a == nil || len(a.Roles) == 0 {
		return "", false
	}
	return a.Roles[0], true
}

// HasRole reports whether the actor holds r.
func (a *Actor) HasRole(r Role) bool {
	if a == nil {
		return false
	}
	for _, role := range a.Roles {
		if role == r {
			return true
		}
	}
	return false
}

// Workload pairs a worker with the number of active tasks assigned to them.
type Workload struct {
	Actor       Actor
	ActiveCount int
}
