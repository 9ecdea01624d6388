package service

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// TaskServiceName is the fully qualified gRPC service name.
const TaskServiceName = "storeflow.task.v1.TaskService"

// TaskServiceServer is the server API for TaskService. Every method takes and
// returns a JSON object carried as google.protobuf.Struct.
type TaskServiceServer interface {
	CreateTask(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetTask(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdateTask(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteTask(context.Context, *structpb.Struct) (*structpb.Struct, error)
	TakeTask(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListPool(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListTasks(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetTaskStats(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetManagerStats(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

var _ TaskServiceServer = (*TaskService)(nil)

type unaryMethod func(TaskServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

// TaskServiceMethods lists the method names in registration order.
var TaskServiceMethods = []string{
	"CreateTask", "GetTask", "UpdateTask", "DeleteTask", "TakeTask",
	"ListPool", "ListTasks", "GetTaskStats", "GetManagerStats",
}

var taskServiceHandlers = map[string]unaryMethod{
	"CreateTask":      TaskServiceServer.CreateTask,
	"GetTask":         TaskServiceServer.GetTask,
	"UpdateTask":      TaskServiceServer.UpdateTask,
	"DeleteTask":      TaskServiceServer.DeleteTask,
	"TakeTask":        TaskServiceServer.TakeTask,
	"ListPool":        TaskServiceServer.ListPool,
	"ListTasks":       TaskServiceServer.ListTasks,
	"GetTaskStats":    TaskServiceServer.GetTaskStats,
	"GetManagerStats": TaskServiceServer.GetManagerStats,
}

func methodDesc(name string, call unaryMethod) grpc.MethodDesc {
	fullMethod := "/" + TaskServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(TaskServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: fullMethod,
			}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(TaskServiceServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

func taskServiceDesc() *grpc.ServiceDesc {
	methods := make([]grpc.MethodDesc, 0, len(TaskServiceMethods))
	for _, name := range TaskServiceMethods {
		methods = append(methods, methodDesc(name, taskServiceHandlers[name]))
	}
	return &grpc.ServiceDesc{
		ServiceName: TaskServiceName,
		HandlerType: (*TaskServiceServer)(nil),
		Methods:     methods,
		Streams:     []grpc.StreamDesc{},
	}
}

// RegisterTaskServiceServer registers srv on s.
func RegisterTaskServiceServer(s grpc.ServiceRegistrar, srv TaskServiceServer) {
	s.RegisterService(taskServiceDesc(), srv)
}

// TaskServiceClient calls TaskService methods by name.
type TaskServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewTaskServiceClient(cc grpc.ClientConnInterface) *TaskServiceClient {
	return &TaskServiceClient{cc: cc}
}

// Call invokes method with a JSON object payload.
func (c *TaskServiceClient) Call(ctx context.Context, method string, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+TaskServiceName+"/"+method, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
