package middleware

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/gurkanbulca/storeflow/internal/models"
	"github.com/gurkanbulca/storeflow/internal/repository"
	"github.com/gurkanbulca/storeflow/pkg/auth"
	"github.com/gurkanbulca/storeflow/pkg/security"
)

type fakeActors map[uuid.UUID]*models.Actor

func (f fakeActors) GetByID(_ context.Context, id uuid.UUID) (*models.Actor, error) {
	if actor, ok := f[id]; ok {
		return actor, nil
	}
	return nil, repository.ErrNotFound
}

type failingActors struct{}

func (failingActors) GetByID(context.Context, uuid.UUID) (*models.Actor, error) {
	return nil, errors.New("connection reset")
}

func bearerContext(token string) context.Context {
	return metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer "+token))
}

func TestAuthInterceptor_Unary(t *testing.T) {
	tokens := auth.NewTokenManager("test-secret", time.Hour, "storeflow")

	runner := &models.Actor{ID: uuid.New(), FullName: "Can Runner", Active: true, Roles: []models.Role{models.RoleRunner}}
	retired := &models.Actor{ID: uuid.New(), FullName: "Eski Personel", Active: false}
	actors := fakeActors{runner.ID: runner, retired.ID: retired}

	issue := func(id uuid.UUID) string {
		token, _, err := tokens.Issue(id)
		require.NoError(t, err)
		return token
	}

	tests := []struct {
		name     string
		ctx      context.Context
		method   string
		wantCode codes.Code
		wantID   uuid.UUID
	}{
		{"valid token", bearerContext(issue(runner.ID)), "/storeflow.task.v1.TaskService/ListPool", codes.OK, runner.ID},
		{"health is public", context.Background(), "/grpc.health.v1.Health/Check", codes.OK, uuid.Nil},
		{"missing metadata", context.Background(), "/storeflow.task.v1.TaskService/ListPool", codes.Unauthenticated, uuid.Nil},
		{"malformed header", metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Token abc")), "/storeflow.task.v1.TaskService/ListPool", codes.Unauthenticated, uuid.Nil},
		{"garbage token", bearerContext("not-a-jwt"), "/storeflow.task.v1.TaskService/ListPool", codes.Unauthenticated, uuid.Nil},
		{"unknown actor", bearerContext(issue(uuid.New())), "/storeflow.task.v1.TaskService/ListPool", codes.Unauthenticated, uuid.Nil},
		{"inactive actor", bearerContext(issue(retired.ID)), "/storeflow.task.v1.TaskService/ListPool", codes.Unauthenticated, uuid.Nil},
	}

	interceptor := NewAuthInterceptor(tokens, actors, nil).Unary()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen *models.Actor
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				seen, _ = ActorFromContext(ctx)
				return "ok", nil
			}

			resp, err := interceptor(tt.ctx, nil, &grpc.UnaryServerInfo{FullMethod: tt.method}, handler)
			assert.Equal(t, tt.wantCode, status.Code(err))
			if tt.wantCode != codes.OK {
				assert.Nil(t, resp)
				return
			}
			assert.Equal(t, "ok", resp)
			if tt.wantID != uuid.Nil {
				require.NotNil(t, seen)
				assert.Equal(t, tt.wantID, seen.ID)
			}
		})
	}
}

func TestAuthInterceptor_DirectoryFailure(t *testing.T) {
	tokens := auth.NewTokenManager("test-secret", time.Hour, "storeflow")
	token, _, err := tokens.Issue(uuid.New())
	require.NoError(t, err)

	interceptor := NewAuthInterceptor(tokens, failingActors{}, nil).Unary()
	_, err = interceptor(bearerContext(token), nil, &grpc.UnaryServerInfo{FullMethod: "/storeflow.task.v1.TaskService/GetTask"},
		func(ctx context.Context, req interface{}) (interface{}, error) { return nil, nil })

	assert.Equal(t, codes.Internal, status.Code(err))
	assert.NotContains(t, err.Error(), "connection reset")
}

type memoryRecorder struct {
	events []*security.Event
}

func (m *memoryRecorder) Record(_ context.Context, e *security.Event) error {
	m.events = append(m.events, e)
	return nil
}

func TestAuthInterceptor_RecordsRejections(t *testing.T) {
	tokens := auth.NewTokenManager("test-secret", time.Hour, "storeflow")
	retired := &models.Actor{ID: uuid.New(), Active: false}
	recorder := &memoryRecorder{}
	interceptor := NewAuthInterceptor(tokens, fakeActors{retired.ID: retired}, NewSecurityLogger(recorder)).Unary()

	ghost := uuid.New()
	ghostToken, _, err := tokens.Issue(ghost)
	require.NoError(t, err)
	retiredToken, _, err := tokens.Issue(retired.ID)
	require.NoError(t, err)

	handler := func(ctx context.Context, req interface{}) (interface{}, error) { return nil, nil }
	info := &grpc.UnaryServerInfo{FullMethod: "/storeflow.task.v1.TaskService/TakeTask"}
	for _, ctx := range []context.Context{bearerContext("forged"), bearerContext(ghostToken), bearerContext(retiredToken)} {
		_, err := interceptor(ctx, nil, info, handler)
		require.Equal(t, codes.Unauthenticated, status.Code(err))
	}

	require.Len(t, recorder.events, 3)
	assert.Equal(t, security.EventTypeTokenRejected, recorder.events[0].EventType)
	assert.Nil(t, recorder.events[0].ActorID)
	assert.Equal(t, security.EventTypeActorUnknown, recorder.events[1].EventType)
	assert.Equal(t, ghost, *recorder.events[1].ActorID)
	assert.Equal(t, security.SeverityHigh, recorder.events[1].Severity)
	assert.Equal(t, security.EventTypeActorInactive, recorder.events[2].EventType)
	assert.Equal(t, info.FullMethod, recorder.events[2].Method)
}

func TestRequireRole(t *testing.T) {
	manager := &models.Actor{ID: uuid.New(), Active: true, Roles: []models.Role{models.RoleStoreManager}}
	runner := &models.Actor{ID: uuid.New(), Active: true, Roles: []models.Role{models.RoleRunner}}

	assert.NoError(t, RequireRole(WithActor(context.Background(), manager), models.RoleStoreManager))
	assert.Equal(t, codes.PermissionDenied, status.Code(RequireRole(WithActor(context.Background(), runner), models.RoleStoreManager)))
	assert.Equal(t, codes.Unauthenticated, status.Code(RequireRole(context.Background(), models.RoleStoreManager)))
}

func TestGetClientInfoFromContext(t *testing.T) {
	ctx := peer.NewContext(context.Background(), &peer.Peer{Addr: &net.TCPAddr{IP: net.ParseIP("10.0.0.7"), Port: 5123}})
	ctx = metadata.NewIncomingContext(ctx, metadata.Pairs("user-agent", "storectl/1.0"))

	var info *ClientInfo
	_, err := NewMetadataExtractorInterceptor().Unary()(ctx, nil, &grpc.UnaryServerInfo{},
		func(ctx context.Context, req interface{}) (interface{}, error) {
			actor := &models.Actor{ID: uuid.New(), Roles: []models.Role{models.RoleRunner}}
			info = GetClientInfoFromContext(WithActor(ctx, actor))
			return nil, nil
		})
	require.NoError(t, err)

	assert.Equal(t, "10.0.0.7", info.IPAddress)
	assert.Equal(t, "storectl/1.0", info.UserAgent)
	assert.Equal(t, "runner", info.ActorRole)
	assert.NotEmpty(t, info.ActorID)
}
