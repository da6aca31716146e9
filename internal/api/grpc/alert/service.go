package alert

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/timestamppb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "alerthub.v1.AlertService"

// Full method names.
const (
	GetAlertMethod        = "/" + ServiceName + "/GetAlert"
	ListAlertsMethod      = "/" + ServiceName + "/ListAlerts"
	ListAlertsSinceMethod = "/" + ServiceName + "/ListAlertsSince"
	RespondToMethod       = "/" + ServiceName + "/RespondTo"
	RaiseAlertMethod      = "/" + ServiceName + "/RaiseAlert"
)

// AlertServiceServer is the server API of the alert service.
type AlertServiceServer interface {
	// GetAlert returns one alert by composite ID.
	GetAlert(ctx context.Context, id *wrapperspb.StringValue) (*structpb.Struct, error)
	// ListAlerts returns alerts changed after the given time.
	ListAlerts(ctx context.Context, since *timestamppb.Timestamp) (*structpb.ListValue, error)
	// ListAlertsSince returns alerts changed after the given alert.
	ListAlertsSince(ctx context.Context, id *wrapperspb.StringValue) (*structpb.ListValue, error)
	// RespondTo applies an action to an alert and reports whether it ran.
	RespondTo(ctx context.Context, request *structpb.Struct) (*wrapperspb.BoolValue, error)
	// RaiseAlert creates an alert in a named source and returns its composite ID.
	RaiseAlert(ctx context.Context, request *structpb.Struct) (*wrapperspb.StringValue, error)
}

// RegisterAlertServiceServer registers srv on s.
func RegisterAlertServiceServer(s grpc.ServiceRegistrar, srv AlertServiceServer) {
	s.RegisterService(&serviceDesc, srv)
}

//nolint:gochecknoglobals // Service descriptors are package-level by gRPC convention.
var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AlertServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "GetAlert",
			Handler:    unary(GetAlertMethod, AlertServiceServer.GetAlert),
		},
		{
			MethodName: "ListAlerts",
			Handler:    unary(ListAlertsMethod, AlertServiceServer.ListAlerts),
		},
		{
			MethodName: "ListAlertsSince",
			Handler:    unary(ListAlertsSinceMethod, AlertServiceServer.ListAlertsSince),
		},
		{
			MethodName: "RespondTo",
			Handler:    unary(RespondToMethod, AlertServiceServer.RespondTo),
		},
		{
			MethodName: "RaiseAlert",
			Handler:    unary(RaiseAlertMethod, AlertServiceServer.RaiseAlert),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "alerthub/v1/alert_service.proto",
}

// unary builds a method handler that decodes Req and dispatches to call,
// honoring any configured interceptor.
func unary[Req, Resp any](
	method string,
	call func(AlertServiceServer, context.Context, *Req) (Resp, error),
) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}

		impl, _ := srv.(AlertServiceServer)

		if interceptor == nil {
			resp, err := call(impl, ctx, in)

			return resp, err
		}

		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: method,
		}

		handler := func(ctx context.Context, req any) (any, error) {
			typed, _ := req.(*Req)
			resp, err := call(impl, ctx, typed)

			return resp, err
		}

		return interceptor(ctx, in, info, handler)
	}
}

// AlertServiceClient is the client API of the alert service.
type AlertServiceClient interface {
	GetAlert(ctx context.Context, id *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error)
	ListAlerts(ctx context.Context, since *timestamppb.Timestamp, opts ...grpc.CallOption) (*structpb.ListValue, error)
	ListAlertsSince(ctx context.Context, id *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.ListValue, error)
	RespondTo(ctx context.Context, request *structpb.Struct, opts ...grpc.CallOption) (*wrapperspb.BoolValue, error)
	RaiseAlert(ctx context.Context, request *structpb.Struct, opts ...grpc.CallOption) (*wrapperspb.StringValue, error)
}

type alertServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewAlertServiceClient creates a client on cc.
//
//nolint:ireturn // Mirrors generated gRPC constructors.
func NewAlertServiceClient(cc grpc.ClientConnInterface) AlertServiceClient {
	return &alertServiceClient{cc: cc}
}

func (c *alertServiceClient) GetAlert(
	ctx context.Context,
	id *wrapperspb.StringValue,
	opts ...grpc.CallOption,
) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, GetAlertMethod, id, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}

func (c *alertServiceClient) ListAlerts(
	ctx context.Context,
	since *timestamppb.Timestamp,
	opts ...grpc.CallOption,
) (*structpb.ListValue, error) {
	out := new(structpb.ListValue)
	if err := c.cc.Invoke(ctx, ListAlertsMethod, since, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}

func (c *alertServiceClient) ListAlertsSince(
	ctx context.Context,
	id *wrapperspb.StringValue,
	opts ...grpc.CallOption,
) (*structpb.ListValue, error) {
	out := new(structpb.ListValue)
	if err := c.cc.Invoke(ctx, ListAlertsSinceMethod, id, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}

func (c *alertServiceClient) RespondTo(
	ctx context.Context,
	request *structpb.Struct,
	opts ...grpc.CallOption,
) (*wrapperspb.BoolValue, error) {
	out := new(wrapperspb.BoolValue)
	if err := c.cc.Invoke(ctx, RespondToMethod, request, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}

func (c *alertServiceClient) RaiseAlert(
	ctx context.Context,
	request *structpb.Struct,
	opts ...grpc.CallOption,
) (*wrapperspb.StringValue, error) {
	out := new(wrapperspb.StringValue)
	if err := c.cc.Invoke(ctx, RaiseAlertMethod, request, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}
