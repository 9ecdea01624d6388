package dispatch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gurkanbulca/storeflow/internal/models"
	"github.com/gurkanbulca/storeflow/internal/testutil"
)

func strPtr(s string) *string { return &s }

func TestTakeTask(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()
	runner := testutil.InsertActor(t, env.db, "Can Runner", models.RoleRunner)
	task := testutil.InsertTask(t, env.db, &models.Task{TargetRole: testutil.RolePtr(models.RoleRunner)})

	env.advance(time.Minute)
	taken, err := env.engine.TakeTask(ctx, task.ID, runner)
	require.NoError(t, err)

	require.NotNil(t, taken.AssignedToID)
	assert.Equal(t, runner.ID, *taken.AssignedToID)
	assert.Equal(t, models.StatusInProgress, taken.Status)
	assert.True(t, taken.UpdatedAt.Equal(env.now))
}

func TestTakeTask_LegacyPendingLabel(t *testing.T) {
	env := newTestEnv(t, false)
	runner := testutil.InsertActor(t, env.db, "Can Runner", models.RoleRunner)
	task := testutil.InsertTask(t, env.db, &models.Task{Status: models.TaskStatus("Bekliyor")})

	taken, err := env.engine.TakeTask(context.Background(), task.ID, runner)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, taken.Status)
}

func TestTakeTask_Errors(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()
	runner := testutil.InsertActor(t, env.db, "Can Runner", models.RoleRunner)
	other := testutil.InsertActor(t, env.db, "Deniz Runner", models.RoleRunner)

	assigned := testutil.InsertTask(t, env.db, &models.Task{AssignedToID: &other.ID, Status: models.StatusInProgress})
	completed := testutil.InsertTask(t, env.db, &models.Task{Status: models.StatusCompleted})

	_, err := env.engine.TakeTask(ctx, uuid.New(), runner)
	assert.True(t, IsNotFound(err), "got %v", err)

	_, err = env.engine.TakeTask(ctx, assigned.ID, runner)
	require.True(t, IsConflict(err), "got %v", err)
	assert.Contains(t, err.Error(), "already assigned")

	_, err = env.engine.TakeTask(ctx, completed.ID, runner)
	require.True(t, IsConflict(err), "got %v", err)
	assert.Contains(t, err.Error(), "not in pool")

	_, err = env.engine.TakeTask(ctx, completed.ID, nil)
	assert.True(t, IsUnauthorized(err))
}

// Any actor may take a pool task; the target role only shapes pool listings.
func TestTakeTask_TargetRoleDoesNotRestrictClaim(t *testing.T) {
	env := newTestEnv(t, false)
	consultant := testutil.InsertActor(t, env.db, "Ayşe Yılmaz", models.RoleSalesConsultant)
	task := testutil.InsertTask(t, env.db, &models.Task{TargetRole: testutil.RolePtr(models.RoleRunner)})

	taken, err := env.engine.TakeTask(context.Background(), task.ID, consultant)
	require.NoError(t, err)
	require.NotNil(t, taken.AssignedToID)
	assert.Equal(t, consultant.ID, *taken.AssignedToID)
}

// Claim exclusivity: concurrent takes of one pool task have exactly one winner.
func TestTakeTask_ConcurrentClaimsHaveOneWinner(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()
	task := testutil.InsertTask(t, env.db, &models.Task{TargetRole: testutil.RolePtr(models.RoleRunner)})

	const claimants = 8
	actors := make([]*models.Actor, claimants)
	for i := range actors {
		actors[i] = testutil.InsertActor(t, env.db, "Runner", models.RoleRunner)
	}

	var (
		wg      sync.WaitGroup
		start   = make(chan struct{})
		winners = make(chan uuid.UUID, claimants)
		errs    = make(chan error, claimants)
	)
	for _, a := range actors {
		wg.Add(1)
		go func(a *models.Actor) {
			defer wg.Done()
			<-start
			if _, err := env.engine.TakeTask(ctx, task.ID, a); err != nil {
				errs <- err
				return
			}
			winners <- a.ID
		}(a)
	}
	close(start)
	wg.Wait()
	close(winners)
	close(errs)

	var won []uuid.UUID
	for id := range winners {
		won = append(won, id)
	}
	require.Len(t, won, 1)

	losses := 0
	for err := range errs {
		assert.True(t, IsConflict(err), "loser got %v", err)
		losses++
	}
	assert.Equal(t, claimants-1, losses)

	final := env.reload(t, task)
	require.NotNil(t, final.AssignedToID)
	assert.Equal(t, won[0], *final.AssignedToID)
	assert.Equal(t, models.StatusInProgress, final.Status)
}

// Cancel guard: an assigned task cannot be canceled and is left untouched.
func TestUpdateTask_CancelGuard(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()
	manager := testutil.InsertActor(t, env.db, "Mehmet Kaya", models.RoleStoreManager)
	runner := testutil.InsertActor(t, env.db, "Can Runner", models.RoleRunner)

	for _, label := range []string{"canceled", "İptal", "CANCELLED"} {
		t.Run(label, func(t *testing.T) {
			task := testutil.InsertTask(t, env.db, &models.Task{
				Title:        "Getir",
				AssignedToID: &runner.ID,
				Status:       models.StatusInProgress,
			})
			before := env.reload(t, task)

			env.advance(time.Minute)
			_, err := env.engine.UpdateTask(ctx, task.ID, UpdateTaskInput{Status: strPtr(label)}, manager)
			require.True(t, IsConflict(err), "got %v", err)

			after := env.reload(t, task)
			assert.Equal(t, before, after)
		})
	}

	t.Run("unassign and cancel together", func(t *testing.T) {
		task := testutil.InsertTask(t, env.db, &models.Task{AssignedToID: &runner.ID, Status: models.StatusInProgress})
		_, err := env.engine.UpdateTask(ctx, task.ID, UpdateTaskInput{Status: strPtr("canceled"), AssignedTo: strPtr("")}, manager)
		assert.True(t, IsConflict(err), "got %v", err)
	})

	t.Run("assign a canceled task", func(t *testing.T) {
		task := testutil.InsertTask(t, env.db, &models.Task{Status: models.StatusCanceled})
		_, err := env.engine.UpdateTask(ctx, task.ID, UpdateTaskInput{AssignedTo: strPtr(runner.ID.String())}, manager)
		assert.True(t, IsConflict(err), "got %v", err)
	})

	t.Run("pool task can be canceled", func(t *testing.T) {
		task := testutil.InsertTask(t, env.db, &models.Task{})
		updated, err := env.engine.UpdateTask(ctx, task.ID, UpdateTaskInput{Status: strPtr("İptal Edildi")}, manager)
		require.NoError(t, err)
		assert.Equal(t, models.StatusCanceled, updated.Status)
	})
}

// Canceled is entered only from pending or in progress and never left.
func TestUpdateTask_StatusTransitions(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()
	manager := testutil.InsertActor(t, env.db, "Mehmet Kaya", models.RoleStoreManager)

	tests := []struct {
		name    string
		from    models.TaskStatus
		to      string
		wantErr bool
	}{
		{"completed to canceled", models.StatusCompleted, "canceled", true},
		{"completed to İptal", models.StatusCompleted, "İptal", true},
		{"canceled to in progress", models.StatusCanceled, "in_progress", true},
		{"canceled to pending", models.StatusCanceled, "Bekliyor", true},
		{"canceled to completed", models.StatusCanceled, "completed", true},
		{"canceled stays canceled", models.StatusCanceled, "CANCELLED", false},
		{"pending to canceled", models.StatusPending, "canceled", false},
		{"pending to completed", models.StatusPending, "Tamamlandı", false},
		{"completed reopened", models.StatusCompleted, "pending", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := testutil.InsertTask(t, env.db, &models.Task{Status: tt.from})
			before := env.reload(t, task)

			env.advance(time.Minute)
			updated, err := env.engine.UpdateTask(ctx, task.ID, UpdateTaskInput{Status: strPtr(tt.to)}, manager)
			if tt.wantErr {
				require.True(t, IsConflict(err), "got %v", err)
				assert.Equal(t, before, env.reload(t, task))
				return
			}
			require.NoError(t, err)
			want, err := models.ParseStatus(tt.to)
			require.NoError(t, err)
			assert.Equal(t, want, updated.Status)
		})
	}
}

// Delete guard: only pool tasks can be deleted.
func TestDeleteTask(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()
	manager := testutil.InsertActor(t, env.db, "Mehmet Kaya", models.RoleStoreManager)
	runner := testutil.InsertActor(t, env.db, "Can Runner", models.RoleRunner)

	assigned := testutil.InsertTask(t, env.db, &models.Task{AssignedToID: &runner.ID, Status: models.StatusInProgress})
	err := env.engine.DeleteTask(ctx, assigned.ID, manager)
	require.True(t, IsConflict(err), "got %v", err)
	env.reload(t, assigned)

	pooled := testutil.InsertTask(t, env.db, &models.Task{})
	require.NoError(t, env.engine.DeleteTask(ctx, pooled.ID, manager))

	_, err = env.engine.GetTask(ctx, pooled.ID)
	assert.True(t, IsNotFound(err), "got %v", err)

	err = env.engine.DeleteTask(ctx, pooled.ID, manager)
	assert.True(t, IsNotFound(err), "got %v", err)
}

// completedAt is set on entry to completed and cleared on exit.
func TestUpdateTask_CompletedAtFollowsStatus(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()
	runner := testutil.InsertActor(t, env.db, "Can Runner", models.RoleRunner)
	task := testutil.InsertTask(t, env.db, &models.Task{AssignedToID: &runner.ID, Status: models.StatusInProgress})

	steps := []struct {
		status        string
		wantStatus    models.TaskStatus
		wantCompleted bool
		stampAtStep   bool
	}{
		{"completed", models.StatusCompleted, true, true},
		{"Tamamlandı", models.StatusCompleted, true, false}, // no transition, keep stamp
		{"Devam Ediyor", models.StatusInProgress, false, false},
		{"COMPLETED", models.StatusCompleted, true, true},
		{"pending", models.StatusPending, false, false},
	}

	var stamp time.Time
	for _, step := range steps {
		env.advance(10 * time.Minute)
		updated, err := env.engine.UpdateTask(ctx, task.ID, UpdateTaskInput{Status: strPtr(step.status)}, runner)
		require.NoError(t, err, step.status)
		assert.Equal(t, step.wantStatus, updated.Status, step.status)

		if !step.wantCompleted {
			assert.Nil(t, updated.CompletedAt, step.status)
			continue
		}
		require.NotNil(t, updated.CompletedAt, step.status)
		if step.stampAtStep {
			stamp = env.now
		}
		assert.True(t, updated.CompletedAt.Equal(stamp), "%s: completedAt %v want %v", step.status, updated.CompletedAt, stamp)
	}
}

// Partial updates keep every omitted field.
func TestUpdateTask_PreservesOmittedFields(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()
	manager := testutil.InsertActor(t, env.db, "Mehmet Kaya", models.RoleStoreManager)
	due := time.Date(2024, 5, 12, 9, 0, 0, 0, time.UTC)
	location := models.LocationCheckout
	task := testutil.InsertTask(t, env.db, &models.Task{
		Title:            "Kasaya getir",
		Description:      "Mavi gömlek, M beden",
		Type:             "delivery",
		Priority:         models.PriorityUrgent,
		Notes:            "Müşteri bekliyor",
		DueDate:          &due,
		DeliveryLocation: &location,
		TargetRole:       testutil.RolePtr(models.RoleRunner),
		ProductCode:      "SKU-42",
	})

	updated, err := env.engine.UpdateTask(ctx, task.ID, UpdateTaskInput{Status: strPtr("in_progress")}, manager)
	require.NoError(t, err)

	assert.Equal(t, models.StatusInProgress, updated.Status)
	assert.Equal(t, "Kasaya getir", updated.Title)
	assert.Equal(t, "Mavi gömlek, M beden", updated.Description)
	assert.Equal(t, "delivery", updated.Type)
	assert.Equal(t, models.PriorityUrgent, updated.Priority)
	assert.Equal(t, "Müşteri bekliyor", updated.Notes)
	assert.Equal(t, "SKU-42", updated.ProductCode)
	require.NotNil(t, updated.DueDate)
	assert.True(t, updated.DueDate.Equal(due))
	require.NotNil(t, updated.DeliveryLocation)
	assert.Equal(t, models.LocationCheckout, *updated.DeliveryLocation)
	require.NotNil(t, updated.TargetRole)
	assert.Equal(t, models.RoleRunner, *updated.TargetRole)
	assert.Nil(t, updated.AssignedToID)
}

func TestUpdateTask_FieldChanges(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()
	manager := testutil.InsertActor(t, env.db, "Mehmet Kaya", models.RoleStoreManager)
	runner := testutil.InsertActor(t, env.db, "Can Runner", models.RoleRunner)
	location := models.LocationShowroom
	task := testutil.InsertTask(t, env.db, &models.Task{
		DeliveryLocation: &location,
		TargetRole:       testutil.RolePtr(models.RoleSalesConsultant),
	})

	updated, err := env.engine.UpdateTask(ctx, task.ID, UpdateTaskInput{
		Title:            strPtr("Yeni başlık"),
		Priority:         strPtr("low"),
		AssignedTo:       strPtr(runner.ID.String()),
		DeliveryLocation: strPtr(""),
		TargetRole:       strPtr("Runner"),
		ClearDueDate:     true,
	}, manager)
	require.NoError(t, err)

	assert.Equal(t, "Yeni başlık", updated.Title)
	assert.Equal(t, models.PriorityLow, updated.Priority)
	require.NotNil(t, updated.AssignedToID)
	assert.Equal(t, runner.ID, *updated.AssignedToID)
	assert.Nil(t, updated.DeliveryLocation)
	require.NotNil(t, updated.TargetRole)
	assert.Equal(t, models.RoleRunner, *updated.TargetRole)
	assert.Nil(t, updated.DueDate)
}

func TestUpdateTask_Errors(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()
	manager := testutil.InsertActor(t, env.db, "Mehmet Kaya", models.RoleStoreManager)
	task := testutil.InsertTask(t, env.db, &models.Task{})

	_, err := env.engine.UpdateTask(ctx, uuid.New(), UpdateTaskInput{Title: strPtr("x")}, manager)
	assert.True(t, IsNotFound(err), "got %v", err)

	_, err = env.engine.UpdateTask(ctx, task.ID, UpdateTaskInput{Title: strPtr("  ")}, manager)
	assert.True(t, IsValidation(err), "got %v", err)

	_, err = env.engine.UpdateTask(ctx, task.ID, UpdateTaskInput{Status: strPtr("archived")}, manager)
	assert.True(t, IsValidation(err), "got %v", err)

	_, err = env.engine.UpdateTask(ctx, task.ID, UpdateTaskInput{AssignedTo: strPtr(uuid.NewString())}, manager)
	assert.True(t, IsNotFound(err), "got %v", err)

	_, err = env.engine.UpdateTask(ctx, task.ID, UpdateTaskInput{AssignedTo: strPtr("someone")}, manager)
	assert.True(t, IsValidation(err), "got %v", err)
}
