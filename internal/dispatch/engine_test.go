package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gurkanbulca/storeflow/internal/config"
	"github.com/gurkanbulca/storeflow/internal/database"
	"github.com/gurkanbulca/storeflow/internal/models"
	"github.com/gurkanbulca/storeflow/internal/repository"
	"github.com/gurkanbulca/storeflow/internal/testutil"
)

var storeZone = time.FixedZone("TRT", 3*60*60)

type staticFlag bool

func (f staticFlag) AutoAssignmentEnabled(context.Context) (bool, error) {
	return bool(f), nil
}

type testEnv struct {
	db     *database.DB
	engine *Engine
	now    time.Time
}

func newTestEnv(t *testing.T, autoAssign bool) *testEnv {
	t.Helper()

	env := &testEnv{
		db:  testutil.NewDB(t),
		now: time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC),
	}
	env.engine = New(
		repository.NewTaskRepository(env.db),
		repository.NewActorRepository(env.db),
		repository.NewTaskTypeRepository(env.db),
		staticFlag(autoAssign),
		WithClock(func() time.Time { return env.now }),
		WithLocation(storeZone),
		WithPageSizes(20, 100),
		WithLimits(config.ValidationConfig{MaxTitleLength: 200, MaxDescriptionLength: 5000, MaxNotesLength: 2000}),
	)
	return env
}

func (env *testEnv) advance(d time.Duration) {
	env.now = env.now.Add(d)
}

func (env *testEnv) reload(t *testing.T, task *models.Task) *models.Task {
	t.Helper()
	got, err := env.engine.GetTask(context.Background(), task.ID)
	require.NoError(t, err)
	return got
}

func TestPage(t *testing.T) {
	e := New(nil, nil, nil, nil, WithPageSizes(20, 50))

	tests := []struct {
		name       string
		limit      int
		offset     int
		wantLimit  int
		wantOffset int
	}{
		{"defaults", 0, 0, 20, 0},
		{"explicit", 10, 30, 10, 30},
		{"clamped", 500, -4, 50, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, o := e.page(tt.limit, tt.offset)
			assert.Equal(t, tt.wantLimit, l)
			assert.Equal(t, tt.wantOffset, o)
		})
	}
}

func TestDayWindow(t *testing.T) {
	e := New(nil, nil, nil, nil, WithLocation(storeZone))

	// 22:30 UTC is already the next day in the store zone.
	start, end := e.dayWindow(time.Date(2024, 5, 10, 22, 30, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2024, 5, 11, 0, 0, 0, 0, storeZone), start)
	assert.Equal(t, 24*time.Hour, end.Sub(start))
}
