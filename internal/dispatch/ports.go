package dispatch

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/gurkanbulca/storeflow/internal/models"
	"github.com/gurkanbulca/storeflow/internal/repository"
)

// TaskStore persists tasks. *repository.TaskRepository implements it.
type TaskStore interface {
	Create(ctx context.Context, task *models.Task) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error)
	List(ctx context.Context, filter repository.TaskFilter) ([]*models.Task, int, error)
	Count(ctx context.Context, filter repository.TaskFilter) (int, error)
	CountBy(ctx context.Context, filter repository.TaskFilter, column string) (map[string]int, error)
	Update(ctx context.Context, id uuid.UUID, input *repository.TaskUpdateInput) (bool, error)
	Claim(ctx context.Context, id, actorID uuid.UUID, poolStatuses []string, status models.TaskStatus, at time.Time) (bool, error)
	DeleteUnassigned(ctx context.Context, id uuid.UUID) (bool, error)
}

// ActorDirectory resolves store staff.
type ActorDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Actor, error)
	ListWorkloads(ctx context.Context, roles []models.Role, statuses []string) ([]models.Workload, error)
	DisplayNames(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error)
}

// TaskTypeCatalog looks up task type definitions.
type TaskTypeCatalog interface {
	Lookup(ctx context.Context, code string) (*models.TaskType, error)
}

// FlagSource exposes runtime switches.
type FlagSource interface {
	AutoAssignmentEnabled(ctx context.Context) (bool, error)
}
