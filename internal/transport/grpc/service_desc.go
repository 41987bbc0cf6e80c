package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "gobarber.v1.AppointmentsService"

const (
	MethodCheckAvailability = "/" + ServiceName + "/CheckAvailability"
	MethodCreateAppointment = "/" + ServiceName + "/CreateAppointment"
	MethodCancelAppointment = "/" + ServiceName + "/CancelAppointment"
	MethodListProviders     = "/" + ServiceName + "/ListProviders"
	MethodListAppointments  = "/" + ServiceName + "/ListAppointments"
)

// AppointmentsServiceServer is the server side of the booking API. Requests and
// responses are google.protobuf.Struct messages.
type AppointmentsServiceServer interface {
	CheckAvailability(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CreateAppointment(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CancelAppointment(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListProviders(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListAppointments(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(AppointmentsServiceServer) func(context.Context, *structpb.Struct) (*structpb.Struct, error)

// methodHandler matches grpc.MethodDesc.Handler, whose named type is unexported.
type methodHandler = func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error)

func unaryHandler(fullMethod string, pick unaryMethod) methodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		call := pick(srv.(AppointmentsServiceServer))
		if interceptor == nil {
			return call(ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var AppointmentsServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AppointmentsServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "CheckAvailability",
			Handler: unaryHandler(MethodCheckAvailability, func(s AppointmentsServiceServer) func(context.Context, *structpb.Struct) (*structpb.Struct, error) {
				return s.CheckAvailability
			}),
		},
		{
			MethodName: "CreateAppointment",
			Handler: unaryHandler(MethodCreateAppointment, func(s AppointmentsServiceServer) func(context.Context, *structpb.Struct) (*structpb.Struct, error) {
				return s.CreateAppointment
			}),
		},
		{
			MethodName: "CancelAppointment",
			Handler: unaryHandler(MethodCancelAppointment, func(s AppointmentsServiceServer) func(context.Context, *structpb.Struct) (*structpb.Struct, error) {
				return s.CancelAppointment
			}),
		},
		{
			MethodName: "ListProviders",
			Handler: unaryHandler(MethodListProviders, func(s AppointmentsServiceServer) func(context.Context, *structpb.Struct) (*structpb.Struct, error) {
				return s.ListProviders
			}),
		},
		{
			MethodName: "ListAppointments",
			Handler: unaryHandler(MethodListAppointments, func(s AppointmentsServiceServer) func(context.Context, *structpb.Struct) (*structpb.Struct, error) {
				return s.ListAppointments
			}),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "gobarber/v1/appointments.proto",
}

func RegisterAppointmentsServiceServer(s grpc.ServiceRegistrar, srv AppointmentsServiceServer) {
	s.RegisterService(&AppointmentsServiceDesc, srv)
}

// AppointmentsClient calls the booking API over an existing connection.
type AppointmentsClient struct {
	cc grpc.ClientConnInterface
}

func NewAppointmentsClient(cc grpc.ClientConnInterface) *AppointmentsClient {
	return &AppointmentsClient{cc: cc}
}

func (c *AppointmentsClient) call(ctx context.Context, method string, in map[string]any, opts ...grpc.CallOption) (*structpb.Struct, error) {
	req, err := structpb.NewStruct(in)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *AppointmentsClient) CheckAvailability(ctx context.Context, in map[string]any, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.call(ctx, MethodCheckAvailability, in, opts...)
}

func (c *AppointmentsClient) CreateAppointment(ctx context.Context, in map[string]any, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.call(ctx, MethodCreateAppointment, in, opts...)
}

func (c *AppointmentsClient) CancelAppointment(ctx context.Context, in map[string]any, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.call(ctx, MethodCancelAppointment, in, opts...)
}

func (c *AppointmentsClient) ListProviders(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.call(ctx, MethodListProviders, map[string]any{}, opts...)
}

func (c *AppointmentsClient) ListAppointments(ctx context.Context, in map[string]any, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.call(ctx, MethodListAppointments, in, opts...)
}
