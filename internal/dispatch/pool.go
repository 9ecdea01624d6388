package dispatch

import (
	"context"
	"fmt"
	"strings"

	"github.com/gurkanbulca/storeflow/internal/models"
	"github.com/gurkanbulca/storeflow/internal/repository"
)

// Scope selects whose tasks a listing or report covers.
type Scope string

const (
	ScopeMine     Scope = "mine"     // assigned to the actor
	ScopeRequests Scope = "requests" // created by the actor
	ScopeAll      Scope = "all"
)

// ParseScope defaults an empty value to ScopeMine.
func ParseScope(s string) (Scope, error) {
	switch Scope(strings.ToLower(strings.TrimSpace(s))) {
	case "", ScopeMine:
		return ScopeMine, nil
	case ScopeRequests:
		return ScopeRequests, nil
	case ScopeAll:
		return ScopeAll, nil
	}
	return "", invalid("scope", fmt.Sprintf("unknown scope %q", s))
}

// PoolFilter narrows a pool listing. A non-empty Role requests the strict
// role view, where untargeted tasks are hidden.
type PoolFilter struct {
	Search   string `json:"search,omitempty"`
	Priority string `json:"priority,omitempty"`
	Role     string `json:"role,omitempty"`
	Limit    int    `json:"limit,omitempty"`
	Offset   int    `json:"offset,omitempty"`
}

// ListPool returns unclaimed pending tasks visible to actor, most urgent
// first. Store managers see every pool; other actors see untargeted tasks
// and tasks targeted at their primary role.
func (e *Engine) ListPool(ctx context.Context, actor *models.Actor, filter PoolFilter) (*TaskPage, error) {
	if actor == nil {
		return nil, &UnauthorizedError{Reason: "authentication required"}
	}

	limit, offset := e.page(filter.Limit, filter.Offset)
	q := repository.TaskFilter{
		Unassigned: true,
		Statuses:   models.StatusLabels(models.StatusPending),
		Search:     strings.TrimSpace(filter.Search),
		SortBy:     "priority",
		Limit:      limit,
		Offset:     offset,
	}

	if strings.TrimSpace(filter.Priority) != "" {
		p, err := models.ParsePriority(filter.Priority)
		if err != nil {
			return nil, invalid("priority", err.Error())
		}
		q.Priority = &p
	}

	switch {
	case strings.TrimSpace(filter.Role) != "":
		role, err := models.ParseRole(filter.Role)
		if err != nil {
			return nil, invalid("role", err.Error())
		}
		q.TargetRoles = []models.Role{role}
	case actor.HasRole(models.RoleStoreManager):
	default:
		if primary, ok := actor.PrimaryRole(); ok {
			q.TargetRoleOrUnset = &primary
		} else {
			q.Untargeted = true
		}
	}

	tasks, total, err := e.tasks.List(ctx, q)
	if err != nil {
		return nil, err
	}
	return &TaskPage{Tasks: tasks, Total: total, Limit: limit, Offset: offset}, nil
}

// ListFilter narrows a scoped listing.
type ListFilter struct {
	Scope    string `json:"scope,omitempty"`
	Status   string `json:"status,omitempty"`
	Priority string `json:"priority,omitempty"`
	Type     string `json:"type,omitempty"`
	Search   string `json:"search,omitempty"`
	Limit    int    `json:"limit,omitempty"`
	Offset   int    `json:"offset,omitempty"`
}

// ListByScope lists the actor's tasks, or every task for ScopeAll, newest
// first. Status accepts any synonym.
func (e *Engine) ListByScope(ctx context.Context, actor *models.Actor, filter ListFilter) (*TaskPage, error) {
	if actor == nil {
		return nil, &UnauthorizedError{Reason: "authentication required"}
	}
	scope, err := ParseScope(filter.Scope)
	if err != nil {
		return nil, err
	}

	limit, offset := e.page(filter.Limit, filter.Offset)
	q := scopeFilter(scope, actor)
	q.Type = strings.TrimSpace(filter.Type)
	q.Search = strings.TrimSpace(filter.Search)
	q.Limit = limit
	q.Offset = offset

	if strings.TrimSpace(filter.Status) != "" {
		s, err := models.ParseStatus(filter.Status)
		if err != nil {
			return nil, invalid("status", err.Error())
		}
		q.Statuses = models.StatusLabels(s)
	}
	if strings.TrimSpace(filter.Priority) != "" {
		p, err := models.ParsePriority(filter.Priority)
		if err != nil {
			return nil, invalid("priority", err.Error())
		}
		q.Priority = &p
	}

	tasks, total, err := e.tasks.List(ctx, q)
	if err != nil {
		return nil, err
	}
	return &TaskPage{Tasks: tasks, Total: total, Limit: limit, Offset: offset}, nil
}

func scopeFilter(scope Scope, actor *models.Actor) repository.TaskFilter {
	var f repository.TaskFilter
	id := actor.ID
	switch scope {
	case ScopeMine:
		f.AssignedTo = &id
	case ScopeRequests:
		f.CreatedBy = &id
	}
	return f
}
