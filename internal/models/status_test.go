package models

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	tests := []struct {
		input string
		want  TaskStatus
	}{
		{"pending", StatusPending},
		{"PENDING", StatusPending},
		{"Bekliyor", StatusPending},
		{"  bekliyor ", StatusPending},
		{"Devam Ediyor", StatusInProgress},
		{"ASSIGNED", StatusInProgress},
		{"in-progress", StatusInProgress},
		{"Tamamlandı", StatusCompleted},
		{"COMPLETED", StatusCompleted},
		{"İptal", StatusCanceled},
		{"cancelled", StatusCanceled},
		{"CANCELED", StatusCanceled},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseStatus(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseStatus("archived")
	assert.Error(t, err)
}

func TestStatusSynonymsRoundTrip(t *testing.T) {
	for _, status := range AllStatuses {
		for _, label := range status.Synonyms() {
			got, err := ParseStatus(label)
			require.NoError(t, err, label)
			assert.Equal(t, status, got, label)
		}
		assert.Equal(t, string(status), status.Synonyms()[0], "canonical value comes first")
	}
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, StatusPending.IsTerminal())
	assert.False(t, StatusInProgress.IsTerminal())
	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusCanceled.IsTerminal())
}

func TestStatusCanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to TaskStatus
		want     bool
	}{
		{StatusPending, StatusInProgress, true},
		{StatusPending, StatusCompleted, true},
		{StatusPending, StatusCanceled, true},
		{StatusInProgress, StatusPending, true},
		{StatusInProgress, StatusCompleted, true},
		{StatusInProgress, StatusCanceled, true},
		{StatusCompleted, StatusInProgress, true},
		{StatusCompleted, StatusPending, true},
		{StatusCompleted, StatusCanceled, false},
		{StatusCanceled, StatusPending, false},
		{StatusCanceled, StatusInProgress, false},
		{StatusCanceled, StatusCompleted, false},
		{StatusCanceled, StatusCanceled, true},
		{StatusCompleted, StatusCompleted, true},
		{TaskStatus("archived"), StatusPending, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestParseRole(t *testing.T) {
	tests := []struct {
		input   string
		want    Role
		wantErr bool
	}{
		{input: "runner", want: RoleRunner},
		{input: "Runner", want: RoleRunner},
		{input: "Satış Danışmanı", want: RoleSalesConsultant},
		{input: "sales_consultant", want: RoleSalesConsultant},
		{input: "Mağaza Müdürü", want: RoleStoreManager},
		{input: "cashier", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseRole(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParsePriority(t *testing.T) {
	p, err := ParsePriority("URGENT")
	require.NoError(t, err)
	assert.Equal(t, PriorityUrgent, p)

	_, err = ParsePriority("critical")
	assert.Error(t, err)

	assert.Greater(t, PriorityUrgent.Rank(), PriorityHigh.Rank())
	assert.Greater(t, PriorityHigh.Rank(), PriorityMedium.Rank())
	assert.Greater(t, PriorityMedium.Rank(), PriorityLow.Rank())
}

func TestActorPrimaryRole(t *testing.T) {
	a := &Actor{ID: uuid.New(), Roles: []Role{RoleRunner, RoleSalesConsultant}}
	r, ok := a.PrimaryRole()
	require.True(t, ok)
	assert.Equal(t, RoleRunner, r)
	assert.True(t, a.HasRole(RoleSalesConsultant))
	assert.False(t, a.HasRole(RoleStoreManager))

	_, ok = (&Actor{}).PrimaryRole()
	assert.False(t, ok)
}
