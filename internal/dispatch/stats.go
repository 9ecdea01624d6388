package dispatch

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/gurkanbulca/storeflow/internal/models"
	"github.com/gurkanbulca/storeflow/internal/repository"
)

// unassignedLabel names the assignee bucket of pool tasks.
const unassignedLabel = "Atanmamış"

// StatsReport summarizes the tasks in one scope.
type StatsReport struct {
	Scope      Scope           `json:"scope"`
	Total      int             `json:"total"`
	Pending    int             `json:"pending"`
	InProgress int             `json:"inProgress"`
	Completed  int             `json:"completed"`
	Canceled   int             `json:"canceled"`
	Overdue    int             `json:"overdue"`
	ByPriority map[string]int  `json:"byPriority"`
	ByType     map[string]int  `json:"byType"`
	ByAssignee []AssigneeCount `json:"byAssignee"`
}

type AssigneeCount struct {
	ActorID *uuid.UUID `json:"actorId,omitempty"`
	Name    string     `json:"name"`
	Count   int        `json:"count"`
}

// TaskStats counts tasks in scope. The counts run concurrently and may
// drift slightly from each other under concurrent writes.
func (e *Engine) TaskStats(ctx context.Context, actor *models.Actor, scope Scope) (*StatsReport, error) {
	if actor == nil {
		return nil, &UnauthorizedError{Reason: "authentication required"}
	}
	scope, err := ParseScope(string(scope))
	if err != nil {
		return nil, err
	}

	base := scopeFilter(scope, actor)
	report := &StatsReport{Scope: scope}

	var byStatus, byAssignee map[string]int
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		n, err := e.tasks.Count(gctx, base)
		report.Total = n
		return err
	})
	g.Go(func() error {
		var err error
		byStatus, err = e.tasks.CountBy(gctx, base, repository.GroupByStatus)
		return err
	})
	g.Go(func() error {
		f := base
		now := e.now()
		f.DueBefore = &now
		f.ExcludeStatuses = models.StatusLabels(models.StatusCompleted, models.StatusCanceled)
		n, err := e.tasks.Count(gctx, f)
		report.Overdue = n
		return err
	})
	g.Go(func() error {
		var err error
		report.ByPriority, err = e.tasks.CountBy(gctx, base, repository.GroupByPriority)
		return err
	})
	g.Go(func() error {
		var err error
		report.ByType, err = e.tasks.CountBy(gctx, base, repository.GroupByType)
		return err
	})
	g.Go(func() error {
		var err error
		byAssignee, err = e.tasks.CountBy(gctx, base, repository.GroupByAssignedTo)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	for label, n := range byStatus {
		s, err := models.ParseStatus(label)
		if err != nil {
			continue
		}
		switch s {
		case models.StatusPending:
			report.Pending += n
		case models.StatusInProgress:
			report.InProgress += n
		case models.StatusCompleted:
			report.Completed += n
		case models.StatusCanceled:
			report.Canceled += n
		}
	}

	assignees, err := e.resolveAssignees(ctx, byAssignee)
	if err != nil {
		return nil, err
	}
	report.ByAssignee = assignees
	return report, nil
}

// resolveAssignees turns assignee id counts into named buckets, largest first.
func (e *Engine) resolveAssignees(ctx context.Context, counts map[string]int) ([]AssigneeCount, error) {
	ids := make([]uuid.UUID, 0, len(counts))
	for key := range counts {
		if id, err := uuid.Parse(key); err == nil {
			ids = append(ids, id)
		}
	}
	names, err := e.actors.DisplayNames(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]AssigneeCount, 0, len(counts))
	for key, n := range counts {
		id, err := uuid.Parse(key)
		if err != nil {
			out = append(out, AssigneeCount{Name: unassignedLabel, Count: n})
			continue
		}
		name, ok := names[id]
		if !ok {
			name = id.String()
		}
		out = append(out, AssigneeCount{ActorID: &id, Name: name, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// Worker activity labels.
const (
	WorkerActive = "active"
	WorkerIdle   = "idle"
)

// ManagerReport is the store manager's dashboard for one role or all roles.
type ManagerReport struct {
	Role           string        `json:"role"`
	Pending        int           `json:"pending"`
	InProgress     int           `json:"inProgress"`
	Completed      int           `json:"completed"`
	CompletedToday int           `json:"completedToday"`
	Workers        []WorkerStats `json:"workers"`
}

type WorkerStats struct {
	ActorID        uuid.UUID   `json:"actorId"`
	Name           string      `json:"name"`
	Role           models.Role `json:"role"`
	ActiveCount    int         `json:"activeCount"`
	CompletedToday int         `json:"completedToday"`
	State          string      `json:"state"`
}

// ManagerRoleStats builds the manager dashboard. For a specific role,
// pending and completed counts follow the task's target role while the
// in-progress count follows the assignee's role.
func (e *Engine) ManagerRoleStats(ctx context.Context, roleFilter string) (*ManagerReport, error) {
	var role *models.Role
	if f := strings.TrimSpace(roleFilter); f != "" && !strings.EqualFold(f, string(ScopeAll)) {
		r, err := models.ParseRole(f)
		if err != nil {
			return nil, invalid("role", err.Error())
		}
		role = &r
	}

	dayStart, dayEnd := e.dayWindow(e.now())

	pending := repository.TaskFilter{Unassigned: true, Statuses: models.StatusLabels(models.StatusPending)}
	inProgress := repository.TaskFilter{Statuses: models.StatusLabels(models.StatusInProgress)}
	completed := repository.TaskFilter{Statuses: models.StatusLabels(models.StatusCompleted)}
	workerRoles := models.WorkerRoles
	report := &ManagerReport{Role: string(ScopeAll)}

	if role != nil {
		report.Role = string(*role)
		targeted := []models.Role{*role}
		pending.TargetRoles = targeted
		inProgress.AssigneeRole = role
		completed.TargetRoles = targeted
		workerRoles = targeted
	}
	completedToday := completed
	completedToday.CompletedFrom = &dayStart
	completedToday.CompletedBefore = &dayEnd

	var workloads []models.Workload
	g, gctx := errgroup.WithContext(ctx)
	count := func(f repository.TaskFilter, dst *int) {
		g.Go(func() error {
			n, err := e.tasks.Count(gctx, f)
			*dst = n
			return err
		})
	}
	count(pending, &report.Pending)
	count(inProgress, &report.InProgress)
	count(completed, &report.Completed)
	count(completedToday, &report.CompletedToday)
	g.Go(func() error {
		var err error
		workloads, err = e.actors.ListWorkloads(gctx, workerRoles, models.StatusLabels(models.ActiveStatuses()...))
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report.Workers = make([]WorkerStats, 0, len(workloads))
	if len(workloads) == 0 {
		return report, nil
	}

	ids := make([]uuid.UUID, len(workloads))
	for i, w := range workloads {
		ids[i] = w.Actor.ID
	}
	doneToday, err := e.tasks.CountBy(ctx, repository.TaskFilter{
		AssignedToAny:   ids,
		Statuses:        models.StatusLabels(models.StatusCompleted),
		CompletedFrom:   &dayStart,
		CompletedBefore: &dayEnd,
	}, repository.GroupByAssignedTo)
	if err != nil {
		return nil, err
	}

	for _, w := range workloads {
		ws := WorkerStats{
			ActorID:        w.Actor.ID,
			Name:           w.Actor.FullName,
			ActiveCount:    w.ActiveCount,
			CompletedToday: doneToday[w.Actor.ID.String()],
			State:          WorkerIdle,
		}
		if role != nil {
			ws.Role = *role
		} else if primary, ok := w.Actor.PrimaryRole(); ok {
			ws.Role = primary
		}
		if w.ActiveCount > 0 {
			ws.State = WorkerActive
		}
		report.Workers = append(report.Workers, ws)
	}
	return report, nil
}
