package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "schoolsched.v1.SchedulingService"

// SchedulingServiceServer is the server API for schoolsched.v1.SchedulingService.
// Every method exchanges a google.protobuf.Struct whose fields match the JSON
// bodies of the HTTP API.
type SchedulingServiceServer interface {
	AddClassroom(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListClassrooms(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetClassroom(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteClassroom(context.Context, *structpb.Struct) (*structpb.Struct, error)
	AddClass(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListClasses(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetClass(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteClass(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetStats(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(SchedulingServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(method string, call unaryCall) grpc.MethodHandler {
	fullMethod := "/" + ServiceName + "/" + method
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		s := srv.(SchedulingServiceServer)
		if interceptor == nil {
			return call(s, ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(s, ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var SchedulingServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SchedulingServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "AddClassroom", Handler: unaryHandler("AddClassroom", SchedulingServiceServer.AddClassroom)},
		{MethodName: "ListClassrooms", Handler: unaryHandler("ListClassrooms", SchedulingServiceServer.ListClassrooms)},
		{MethodName: "GetClassroom", Handler: unaryHandler("GetClassroom", SchedulingServiceServer.GetClassroom)},
		{MethodName: "DeleteClassroom", Handler: unaryHandler("DeleteClassroom", SchedulingServiceServer.DeleteClassroom)},
		{MethodName: "AddClass", Handler: unaryHandler("AddClass", SchedulingServiceServer.AddClass)},
		{MethodName: "ListClasses", Handler: unaryHandler("ListClasses", SchedulingServiceServer.ListClasses)},
		{MethodName: "GetClass", Handler: unaryHandler("GetClass", SchedulingServiceServer.GetClass)},
		{MethodName: "DeleteClass", Handler: unaryHandler("DeleteClass", SchedulingServiceServer.DeleteClass)},
		{MethodName: "GetStats", Handler: unaryHandler("GetStats", SchedulingServiceServer.GetStats)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "schoolsched/v1/scheduling.proto",
}

func RegisterSchedulingServiceServer(s grpc.ServiceRegistrar, srv SchedulingServiceServer) {
	s.RegisterService(&SchedulingServiceDesc, srv)
}

// SchedulingClient calls SchedulingService methods by name.
type SchedulingClient struct {
	cc grpc.ClientConnInterface
}

func NewSchedulingClient(cc grpc.ClientConnInterface) *SchedulingClient {
	return &SchedulingClient{cc: cc}
}

func (c *SchedulingClient) Call(ctx context.Context, method string, in map[string]any, opts ...grpc.CallOption) (map[string]any, error) {
	req, err := structpb.NewStruct(in)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, req, out, opts...); err != nil {
		return nil, err
	}
	return out.AsMap(), nil
}
