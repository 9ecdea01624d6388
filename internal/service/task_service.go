// internal/service/task_service.go
package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/gurkanbulca/storeflow/internal/dispatch"
	"github.com/gurkanbulca/storeflow/internal/middleware"
	"github.com/gurkanbulca/storeflow/internal/models"
)

type TaskService struct {
	engine         *dispatch.Engine
	securityLogger *middleware.SecurityLogger
}

// NewTaskService creates the gRPC task service. securityLogger may be nil.
func NewTaskService(engine *dispatch.Engine, securityLogger *middleware.SecurityLogger) *TaskService {
	return &TaskService{
		engine:         engine,
		securityLogger: securityLogger,
	}
}

type idRequest struct {
	ID string `json:"id"`
}

type updateTaskRequest struct {
	ID string `json:"id"`
	dispatch.UpdateTaskInput
}

type statsRequest struct {
	Scope string `json:"scope,omitempty"`
}

type managerStatsRequest struct {
	Role string `json:"role,omitempty"`
}

// taskView adds display labels to a task.
type taskView struct {
	*models.Task
	StatusLabel    string `json:"statusLabel"`
	TargetRoleName string `json:"targetRoleName,omitempty"`
}

type pageView struct {
	Tasks  []taskView `json:"tasks"`
	Total  int        `json:"total"`
	Limit  int        `json:"limit"`
	Offset int        `json:"offset"`
}

// CreateTask routes a new task to an assignee or a pool
func (s *TaskService) CreateTask(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var input dispatch.CreateTaskInput
	if err := decode(req, &input); err != nil {
		return nil, err
	}

	actor, _ := middleware.ActorFromContext(ctx)
	task, err := s.engine.CreateTask(ctx, input, actor)
	if err != nil {
		return nil, toStatus("create task", err)
	}

	return encode(viewOf(task))
}

// GetTask retrieves a task by ID
func (s *TaskService) GetTask(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in idRequest
	if err := decode(req, &in); err != nil {
		return nil, err
	}
	id, err := parseTaskID(in.ID)
	if err != nil {
		return nil, err
	}

	task, err := s.engine.GetTask(ctx, id)
	if err != nil {
		return nil, toStatus("get task", err)
	}

	return encode(viewOf(task))
}

// UpdateTask applies a partial update; omitted fields keep their values
func (s *TaskService) UpdateTask(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in updateTaskRequest
	if err := decode(req, &in); err != nil {
		return nil, err
	}
	id, err := parseTaskID(in.ID)
	if err != nil {
		return nil, err
	}

	actor, _ := middleware.ActorFromContext(ctx)
	task, err := s.engine.UpdateTask(ctx, id, in.UpdateTaskInput, actor)
	if err != nil {
		return nil, toStatus("update task", err)
	}

	return encode(viewOf(task))
}

// DeleteTask removes an unassigned task
func (s *TaskService) DeleteTask(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in idRequest
	if err := decode(req, &in); err != nil {
		return nil, err
	}
	id, err := parseTaskID(in.ID)
	if err != nil {
		return nil, err
	}

	actor, _ := middleware.ActorFromContext(ctx)
	if err := s.engine.DeleteTask(ctx, id, actor); err != nil {
		return nil, toStatus("delete task", err)
	}

	return &structpb.Struct{Fields: map[string]*structpb.Value{}}, nil
}

// TakeTask claims a pool task for the caller
func (s *TaskService) TakeTask(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in idRequest
	if err := decode(req, &in); err != nil {
		return nil, err
	}
	id, err := parseTaskID(in.ID)
	if err != nil {
		return nil, err
	}

	actor, _ := middleware.ActorFromContext(ctx)
	task, err := s.engine.TakeTask(ctx, id, actor)
	if err != nil {
		return nil, toStatus("take task", err)
	}

	return encode(viewOf(task))
}

// ListPool lists claimable tasks visible to the caller
func (s *TaskService) ListPool(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var filter dispatch.PoolFilter
	if err := decode(req, &filter); err != nil {
		return nil, err
	}

	actor, _ := middleware.ActorFromContext(ctx)
	page, err := s.engine.ListPool(ctx, actor, filter)
	if err != nil {
		return nil, toStatus("list pool", err)
	}

	return encode(pageOf(page))
}

// ListTasks lists the caller's assigned tasks, their requests, or every task
func (s *TaskService) ListTasks(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var filter dispatch.ListFilter
	if err := decode(req, &filter); err != nil {
		return nil, err
	}
	if err := s.requireScope(ctx, "ListTasks", filter.Scope); err != nil {
		return nil, err
	}

	actor, _ := middleware.ActorFromContext(ctx)
	page, err := s.engine.ListByScope(ctx, actor, filter)
	if err != nil {
		return nil, toStatus("list tasks", err)
	}

	return encode(pageOf(page))
}

// GetTaskStats summarizes tasks in the requested scope
func (s *TaskService) GetTaskStats(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in statsRequest
	if err := decode(req, &in); err != nil {
		return nil, err
	}
	if err := s.requireScope(ctx, "GetTaskStats", in.Scope); err != nil {
		return nil, err
	}

	actor, _ := middleware.ActorFromContext(ctx)
	report, err := s.engine.TaskStats(ctx, actor, dispatch.Scope(in.Scope))
	if err != nil {
		return nil, toStatus("task stats", err)
	}

	return encode(report)
}

// GetManagerStats reports pool and worker figures per role
func (s *TaskService) GetManagerStats(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if err := s.requireManager(ctx, "GetManagerStats"); err != nil {
		return nil, err
	}

	var in managerStatsRequest
	if err := decode(req, &in); err != nil {
		return nil, err
	}

	report, err := s.engine.ManagerRoleStats(ctx, in.Role)
	if err != nil {
		return nil, toStatus("manager stats", err)
	}

	return encode(report)
}

// requireScope restricts the store-wide scope to managers.
func (s *TaskService) requireScope(ctx context.Context, method, raw string) error {
	scope, err := dispatch.ParseScope(raw)
	if err != nil {
		return toStatus("parse scope", err)
	}
	if scope == dispatch.ScopeAll {
		return s.requireManager(ctx, method)
	}
	return nil
}

func (s *TaskService) requireManager(ctx context.Context, method string) error {
	err := middleware.RequireRole(ctx, models.RoleStoreManager)
	if status.Code(err) == codes.PermissionDenied {
		s.securityLogger.LogPermissionDenied(ctx, "/"+TaskServiceName+"/"+method, "store manager role required")
	}
	return err
}

func parseTaskID(raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, status.Error(codes.InvalidArgument, "id is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, status.Error(codes.InvalidArgument, "invalid task ID format")
	}
	return id, nil
}

func viewOf(task *models.Task) taskView {
	view := taskView{Task: task, StatusLabel: task.Status.Label()}
	if task.TargetRole != nil {
		view.TargetRoleName = task.TargetRole.DisplayName()
	}
	return view
}

func pageOf(page *dispatch.TaskPage) pageView {
	out := pageView{
		Tasks:  make([]taskView, len(page.Tasks)),
		Total:  page.Total,
		Limit:  page.Limit,
		Offset: page.Offset,
	}
	for i, task := range page.Tasks {
		out.Tasks[i] = viewOf(task)
	}
	return out
}

// decode maps a Struct payload onto a request type. Unknown keys are rejected.
func decode(req *structpb.Struct, v any) error {
	if req == nil {
		return nil
	}
	raw, err := protojson.Marshal(req)
	if err != nil {
		return status.Errorf(codes.InvalidArgument, "malformed request: %v", err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return status.Errorf(codes.InvalidArgument, "malformed request: %v", err)
	}
	return nil
}

func encode(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, toStatus("encode response", err)
	}

	out := &structpb.Struct{}
	if err := protojson.Unmarshal(raw, out); err != nil {
		return nil, toStatus("encode response", err)
	}
	return out, nil
}

// toStatus maps engine errors onto gRPC codes. Anything unclassified is
// logged and hidden from the caller.
func toStatus(op string, err error) error {
	switch {
	case dispatch.IsValidation(err):
		return status.Error(codes.InvalidArgument, err.Error())
	case dispatch.IsNotFound(err):
		return status.Error(codes.NotFound, err.Error())
	case dispatch.IsConflict(err):
		return status.Error(codes.FailedPrecondition, err.Error())
	case dispatch.IsUnauthorized(err):
		return status.Error(codes.Unauthenticated, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	}

	if _, ok := status.FromError(err); ok {
		return err
	}

	log.Printf("[task-service] Error: %s: %v", op, err)
	return status.Error(codes.Internal, "internal error")
}
