package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gurkanbulca/storeflow/internal/models"
	"github.com/gurkanbulca/storeflow/internal/testutil"
)

func taskIDs(page *TaskPage) []uuid.UUID {
	ids := make([]uuid.UUID, len(page.Tasks))
	for i, task := range page.Tasks {
		ids[i] = task.ID
	}
	return ids
}

// Pool visibility follows the target role and the viewer's primary role.
func TestListPool_Visibility(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()

	manager := testutil.InsertActor(t, env.db, "Mehmet Kaya", models.RoleStoreManager)
	consultant := testutil.InsertActor(t, env.db, "Ayşe Yılmaz", models.RoleSalesConsultant)
	runner := testutil.InsertActor(t, env.db, "Can Runner", models.RoleRunner)
	noRole := testutil.InsertActor(t, env.db, "Yeni Personel")

	forRunner := testutil.InsertTask(t, env.db, &models.Task{Title: "runner", TargetRole: testutil.RolePtr(models.RoleRunner)})
	forConsultant := testutil.InsertTask(t, env.db, &models.Task{Title: "consultant", TargetRole: testutil.RolePtr(models.RoleSalesConsultant)})
	untargeted := testutil.InsertTask(t, env.db, &models.Task{Title: "anyone"})

	// not in any pool
	testutil.InsertTask(t, env.db, &models.Task{AssignedToID: &runner.ID, Status: models.StatusInProgress, TargetRole: testutil.RolePtr(models.RoleRunner)})
	testutil.InsertTask(t, env.db, &models.Task{Status: models.StatusCompleted, TargetRole: testutil.RolePtr(models.RoleRunner)})
	testutil.InsertTask(t, env.db, &models.Task{Status: models.StatusCanceled})

	tests := []struct {
		name   string
		actor  *models.Actor
		filter PoolFilter
		want   []uuid.UUID
	}{
		{"runner general pool", runner, PoolFilter{}, []uuid.UUID{forRunner.ID, untargeted.ID}},
		{"consultant general pool", consultant, PoolFilter{}, []uuid.UUID{forConsultant.ID, untargeted.ID}},
		{"manager sees every pool", manager, PoolFilter{}, []uuid.UUID{forRunner.ID, forConsultant.ID, untargeted.ID}},
		{"actor without role", noRole, PoolFilter{}, []uuid.UUID{untargeted.ID}},
		{"strict runner view", consultant, PoolFilter{Role: "Runner"}, []uuid.UUID{forRunner.ID}},
		{"strict consultant view", runner, PoolFilter{Role: "Satış Danışmanı"}, []uuid.UUID{forConsultant.ID}},
		{"strict view for manager", manager, PoolFilter{Role: "sales_consultant"}, []uuid.UUID{forConsultant.ID}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := env.engine.ListPool(ctx, tt.actor, tt.filter)
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.want, taskIDs(page))
			assert.Equal(t, len(tt.want), page.Total)
		})
	}
}

func TestListPool_OrderingAndPagination(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()
	runner := testutil.InsertActor(t, env.db, "Can Runner", models.RoleRunner)

	base := time.Date(2024, 5, 10, 8, 0, 0, 0, time.UTC)
	insert := func(p models.Priority, age time.Duration) *models.Task {
		return testutil.InsertTask(t, env.db, &models.Task{Priority: p, CreatedAt: base.Add(-age)})
	}
	lowNew := insert(models.PriorityLow, 0)
	urgentOld := insert(models.PriorityUrgent, 3*time.Hour)
	highNew := insert(models.PriorityHigh, time.Hour)
	urgentNew := insert(models.PriorityUrgent, time.Minute)
	mediumOld := insert(models.PriorityMedium, 5*time.Hour)

	page, err := env.engine.ListPool(ctx, runner, PoolFilter{})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{urgentNew.ID, urgentOld.ID, highNew.ID, mediumOld.ID, lowNew.ID}, taskIDs(page))

	page, err = env.engine.ListPool(ctx, runner, PoolFilter{Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{highNew.ID, mediumOld.ID}, taskIDs(page))
	assert.Equal(t, 5, page.Total)
	assert.Equal(t, 2, page.Limit)
	assert.Equal(t, 2, page.Offset)
}

func TestListPool_SearchAndPriority(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()
	runner := testutil.InsertActor(t, env.db, "Can Runner", models.RoleRunner)

	customerID := uuid.New()
	_, err := env.db.ExecContext(ctx,
		"INSERT INTO customers (id, full_name, created_at) VALUES (?, ?, ?)",
		customerID, "Zeynep Demir", time.Now().UTC())
	require.NoError(t, err)

	byTitle := testutil.InsertTask(t, env.db, &models.Task{Title: "Mavi Gömlek getir", Priority: models.PriorityHigh})
	byDescription := testutil.InsertTask(t, env.db, &models.Task{Title: "Ürün", Description: "mavi kazak", Priority: models.PriorityLow})
	byCustomer := testutil.InsertTask(t, env.db, &models.Task{Title: "Paket", CustomerID: &customerID, Priority: models.PriorityHigh})
	testutil.InsertTask(t, env.db, &models.Task{Title: "Kırmızı etek"})

	page, err := env.engine.ListPool(ctx, runner, PoolFilter{Search: "MAVI"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{byTitle.ID, byDescription.ID}, taskIDs(page))

	page, err = env.engine.ListPool(ctx, runner, PoolFilter{Search: "zeynep"})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{byCustomer.ID}, taskIDs(page))

	page, err = env.engine.ListPool(ctx, runner, PoolFilter{Priority: "high"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{byTitle.ID, byCustomer.ID}, taskIDs(page))

	_, err = env.engine.ListPool(ctx, runner, PoolFilter{Priority: "asap"})
	assert.True(t, IsValidation(err), "got %v", err)

	_, err = env.engine.ListPool(ctx, runner, PoolFilter{Role: "cashier"})
	assert.True(t, IsValidation(err), "got %v", err)
}

func TestListByScope(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()
	consultant := testutil.InsertActor(t, env.db, "Ayşe Yılmaz", models.RoleSalesConsultant)
	runner := testutil.InsertActor(t, env.db, "Can Runner", models.RoleRunner)

	requested := testutil.InsertTask(t, env.db, &models.Task{CreatedByID: consultant.ID, Type: "delivery"})
	mineActive := testutil.InsertTask(t, env.db, &models.Task{AssignedToID: &consultant.ID, Status: models.StatusInProgress, Type: "greeting"})
	mineDone := testutil.InsertTask(t, env.db, &models.Task{AssignedToID: &consultant.ID, Status: models.TaskStatus("Tamamlandı"), Type: "delivery"})
	others := testutil.InsertTask(t, env.db, &models.Task{AssignedToID: &runner.ID, Status: models.StatusInProgress, Type: "restock"})

	tests := []struct {
		name   string
		filter ListFilter
		want   []uuid.UUID
	}{
		{"default scope is mine", ListFilter{}, []uuid.UUID{mineActive.ID, mineDone.ID}},
		{"requests", ListFilter{Scope: "requests"}, []uuid.UUID{requested.ID}},
		{"all", ListFilter{Scope: "all"}, []uuid.UUID{requested.ID, mineActive.ID, mineDone.ID, others.ID}},
		{"status synonym", ListFilter{Scope: "mine", Status: "COMPLETED"}, []uuid.UUID{mineDone.ID}},
		{"type", ListFilter{Scope: "all", Type: "delivery"}, []uuid.UUID{requested.ID, mineDone.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := env.engine.ListByScope(ctx, consultant, tt.filter)
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.want, taskIDs(page))
		})
	}

	_, err := env.engine.ListByScope(ctx, consultant, ListFilter{Scope: "team"})
	assert.True(t, IsValidation(err), "got %v", err)
}
