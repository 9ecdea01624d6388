// internal/repository/catalog_repository.go
package repository

import (
	"context"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/gurkanbulca/storeflow/internal/database"
	"github.com/gurkanbulca/storeflow/internal/models"
)

const (
	taskTypesTable  = "task_types"
	parametersTable = "parameters"
	customersTable  = "customers"
)

// TaskTypeRepository manages the task type catalog.
type TaskTypeRepository struct {
	db *database.DB
}

func NewTaskTypeRepository(db *database.DB) *TaskTypeRepository {
	return &TaskTypeRepository{db: db}
}

type taskTypeRow struct {
	Code            string `db:"code"`
	Label           string `db:"label"`
	RequiresProduct bool   `db:"requires_product"`
	Active          bool   `db:"is_active"`
}

// Lookup returns the catalog entry for code, or ErrNotFound.
func (r *TaskTypeRepository) Lookup(ctx context.Context, code string) (*models.TaskType, error) {
	query, args := entsql.Dialect(r.db.Dialect).
		Select("code", "label", "requires_product", "is_active").
		From(entsql.Table(taskTypesTable)).
		Where(entsql.EQ("code", code)).
		Query()

	var row taskTypeRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		return nil, notFound(err, "task type")
	}
	return &models.TaskType{
		Code:            row.Code,
		Label:           row.Label,
		RequiresProduct: row.RequiresProduct,
		Active:          row.Active,
	}, nil
}

// Upsert creates or replaces a catalog entry.
func (r *TaskTypeRepository) Upsert(ctx context.Context, t *models.TaskType) error {
	query, args := entsql.Dialect(r.db.Dialect).
		Insert(taskTypesTable).
		Columns("code", "label", "requires_product", "is_active").
		Values(t.Code, t.Label, t.RequiresProduct, t.Active).
		OnConflict(
			entsql.ConflictColumns("code"),
			entsql.ResolveWithNewValues(),
		).
		Query()

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert task type: %w", err)
	}
	return nil
}

// ParameterRepository reads and writes named runtime parameters.
type ParameterRepository struct {
	db *database.DB
}

func NewParameterRepository(db *database.DB) *ParameterRepository {
	return &ParameterRepository{db: db}
}

// Get returns the raw parameter value, or ErrNotFound.
func (r *ParameterRepository) Get(ctx context.Context, name string) (string, error) {
	query, args := entsql.Dialect(r.db.Dialect).
		Select("value").
		From(entsql.Table(parametersTable)).
		Where(entsql.EQ("name", name)).
		Query()

	var value string
	if err := r.db.GetContext(ctx, &value, query, args...); err != nil {
		return "", notFound(err, "parameter")
	}
	return value, nil
}

func (r *ParameterRepository) Set(ctx context.Context, name, value string) error {
	query, args := entsql.Dialect(r.db.Dialect).
		Insert(parametersTable).
		Columns("name", "value", "updated_at").
		Values(name, value, time.Now().UTC()).
		OnConflict(
			entsql.ConflictColumns("name"),
			entsql.ResolveWithNewValues(),
		).
		Query()

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("set parameter %s: %w", name, err)
	}
	return nil
}

// CustomerRepository stores the customer records tasks may reference.
type CustomerRepository struct {
	db *database.DB
}

func NewCustomerRepository(db *database.DB) *CustomerRepository {
	return &CustomerRepository{db: db}
}

func (r *CustomerRepository) Create(ctx context.Context, fullName, phone string) (uuid.UUID, error) {
	id := uuid.New()
	query, args := entsql.Dialect(r.db.Dialect).
		Insert(customersTable).
		Columns("id", "full_name", "phone", "created_at").
		Values(id, fullName, nullString(phone), time.Now().UTC()).
		Query()

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return uuid.Nil, fmt.Errorf("insert customer: %w", err)
	}
	return id, nil
}
