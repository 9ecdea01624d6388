// internal/repository/actor_repository.go
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
	usersTable     = "users"
	userRolesTable = "user_roles"
)

// ActorRepository is the SQL-backed actor directory.
type ActorRepository struct {
	db *database.DB
}

func NewActorRepository(db *database.DB) *ActorRepository {
	return &ActorRepository{db: db}
}

type actorRow struct {
	ID        uuid.UUID `db:"id"`
	FullName  string    `db:"full_name"`
	Email     string    `db:"email"`
	Active    bool      `db:"is_active"`
	CreatedAt time.Time `db:"created_at"`
}

type membershipRow struct {
	UserID uuid.UUID `db:"user_id"`
	Role   string    `db:"role"`
}

func (r actorRow) toModel() models.Actor {
	return models.Actor{
		ID:        r.ID,
		FullName:  r.FullName,
		Email:     r.Email,
		Active:    r.Active,
		CreatedAt: r.CreatedAt,
	}
}

// GetByID returns the actor with its active role memberships, primary first.
func (r *ActorRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Actor, error) {
	query, args := entsql.Dialect(r.db.Dialect).
		Select("id", "full_name", "email", "is_active", "created_at").
		From(entsql.Table(usersTable)).
		Where(entsql.EQ("id", id)).
		Query()

	var row actorRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		return nil, notFound(err, "actor")
	}

	roles, err := r.loadRoles(ctx, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}

	actor := row.toModel()
	actor.Roles = roles[id]
	return &actor, nil
}

// loadRoles returns active memberships keyed by user, ordered by position.
func (r *ActorRepository) loadRoles(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID][]models.Role, error) {
	roles := make(map[uuid.UUID][]models.Role, len(ids))
	if len(ids) == 0 {
		return roles, nil
	}

	query, args := entsql.Dialect(r.db.Dialect).
		Select("user_id", "role").
		From(entsql.Table(userRolesTable)).
		Where(entsql.And(
			entsql.In("user_id", uuidArgs(ids)...),
			entsql.EQ("is_active", true),
		)).
		OrderBy("user_id", "position", "created_at").
		Query()

	var rows []membershipRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("query roles: %w", err)
	}
	for _, m := range rows {
		roles[m.UserID] = append(roles[m.UserID], models.Role(m.Role))
	}
	return roles, nil
}

// ListWorkloads returns active actors holding any of roles, oldest first, each
// with the number of tasks assigned to them whose status is in statuses.
func (r *ActorRepository) ListWorkloads(ctx context.Context, roles []models.Role, statuses []string) ([]models.Workload, error) {
	if len(roles) == 0 {
		return nil, nil
	}
	roleArgs := make([]any, len(roles))
	for i, role := range roles {
		roleArgs[i] = string(role)
	}

	b := entsql.Dialect(r.db.Dialect)
	u := b.Table(usersTable).As("u")
	ur := b.Table(userRolesTable).As("ur")
	query, args := b.Select(u.C("id"), u.C("full_name"), u.C("email"), u.C("is_active"), u.C("created_at")).
		Distinct().
		From(u).
		Join(ur).
		On(u.C("id"), ur.C("user_id")).
		Where(entsql.And(
			entsql.In(ur.C("role"), roleArgs...),
			entsql.EQ(ur.C("is_active"), true),
			entsql.EQ(u.C("is_active"), true),
		)).
		OrderBy(u.C("created_at"), u.C("id")).
		Query()

	var rows []actorRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("query workers: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	ids := make([]uuid.UUID, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}

	memberships, err := r.loadRoles(ctx, ids)
	if err != nil {
		return nil, err
	}
	counts, err := r.countAssigned(ctx, ids, statuses)
	if err != nil {
		return nil, err
	}

	workloads := make([]models.Workload, len(rows))
	for i, row := range rows {
		actor := row.toModel()
		actor.Roles = memberships[row.ID]
		workloads[i] = models.Workload{Actor: actor, ActiveCount: counts[row.ID]}
	}
	return workloads, nil
}

type assignedCountRow struct {
	UserID uuid.UUID `db:"assigned_to_id"`
	Total  int       `db:"total"`
}

func (r *ActorRepository) countAssigned(ctx context.Context, ids []uuid.UUID, statuses []string) (map[uuid.UUID]int, error) {
	query, args := entsql.Dialect(r.db.Dialect).
		Select("assigned_to_id", entsql.As(entsql.Count("*"), "total")).
		From(entsql.Table(tasksTable)).
		Where(entsql.And(
			entsql.In("assigned_to_id", uuidArgs(ids)...),
			entsql.In("status", stringArgs(statuses)...),
		)).
		GroupBy("assigned_to_id").
		Query()

	var rows []assignedCountRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("count assigned tasks: %w", err)
	}
	counts := make(map[uuid.UUID]int, len(rows))
	for _, row := range rows {
		counts[row.UserID] = row.Total
	}
	return counts, nil
}

type displayNameRow struct {
	ID       uuid.UUID `db:"id"`
	FullName string    `db:"full_name"`
}

// DisplayNames resolves actor ids to full names. Unknown ids are omitted.
func (r *ActorRepository) DisplayNames(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	names := make(map[uuid.UUID]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}

	query, args := entsql.Dialect(r.db.Dialect).
		Select("id", "full_name").
		From(entsql.Table(usersTable)).
		Where(entsql.In("id", uuidArgs(ids)...)).
		Query()

	var rows []displayNameRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("query display names: %w", err)
	}
	for _, row := range rows {
		names[row.ID] = row.FullName
	}
	return names, nil
}

// Create inserts the actor and its role memberships in one transaction. The
// order of actor.Roles becomes the membership position.
func (r *ActorRepository) Create(ctx context.Context, actor *models.Actor) error {
	if actor.ID == uuid.Nil {
		actor.ID = uuid.New()
	}
	if actor.CreatedAt.IsZero() {
		actor.CreatedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	b := entsql.Dialect(r.db.Dialect)
	query, args := b.Insert(usersTable).
		Columns("id", "full_name", "email", "is_active", "created_at").
		Values(actor.ID, actor.FullName, actor.Email, actor.Active, actor.CreatedAt.UTC()).
		Query()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return rollback(tx, fmt.Errorf("insert actor: %w", err))
	}

	if len(actor.Roles) > 0 {
		insert := b.Insert(userRolesTable).
			Columns("user_id", "role", "is_active", "position", "created_at")
		for i, role := range actor.Roles {
			insert = insert.Values(actor.ID, string(role), true, i, actor.CreatedAt.UTC())
		}
		query, args = insert.Query()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return rollback(tx, fmt.Errorf("insert roles: %w", err))
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit actor: %w", err)
	}
	return nil
}
