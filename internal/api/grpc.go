package api

import (
	"context"
	"encoding/json"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"xsmom/pkg/xsmom"
)

// BacktestServiceName is the fully-qualified gRPC service name.
const BacktestServiceName = "xsmom.v1.BacktestService"

const (
	runBacktestMethod = "/" + BacktestServiceName + "/RunBacktest"
	getRunMethod      = "/" + BacktestServiceName + "/GetRun"
)

// BacktestServer is the server API of xsmom.v1.BacktestService. Messages are
// google.protobuf.Struct values holding the JSON form of the xsmom wire
// types.
type BacktestServer interface {
	RunBacktest(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetRun(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// BacktestServiceDesc describes xsmom.v1.BacktestService for grpc.Server.
var BacktestServiceDesc = grpc.ServiceDesc{
	ServiceName: BacktestServiceName,
	HandlerType: (*BacktestServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "RunBacktest", Handler: unaryHandler(runBacktestMethod, BacktestServer.RunBacktest)},
		{MethodName: "GetRun", Handler: unaryHandler(getRunMethod, BacktestServer.GetRun)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "xsmom/v1/backtest.proto",
}

// RegisterBacktestServer registers srv on the given gRPC server.
func RegisterBacktestServer(s grpc.ServiceRegistrar, srv BacktestServer) {
	s.RegisterService(&BacktestServiceDesc, srv)
}

type unaryMethod func(BacktestServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, call unaryMethod) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(BacktestServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(BacktestServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// grpcBacktest implements BacktestServer on top of a Service.
type grpcBacktest struct {
	svc     *Service
	metrics *Metrics
}

// RunBacktest decodes a BacktestRequest and returns the resulting run with
// its return series.
func (g *grpcBacktest) RunBacktest(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req xsmom.BacktestRequest
	if err := fromStruct(in, &req); err != nil {
		g.metrics.observeRequest("grpc", "RunBacktest", classInvalid)
		return nil, status.Errorf(codes.InvalidArgument, "decoding request: %v", err)
	}
	run, err := g.svc.RunBacktest(ctx, req)
	g.metrics.observeRequest("grpc", "RunBacktest", outcome(err))
	if err != nil {
		return nil, grpcError(err)
	}
	return toStruct(toWire(run, true))
}

// GetRun looks up the run named by the request's "id" field.
func (g *grpcBacktest) GetRun(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id := in.GetFields()["id"].GetStringValue()
	if id == "" {
		g.metrics.observeRequest("grpc", "GetRun", classInvalid)
		return nil, status.Error(codes.InvalidArgument, "id is required")
	}
	run, err := g.svc.GetRun(ctx, id)
	g.metrics.observeRequest("grpc", "GetRun", outcome(err))
	if err != nil {
		return nil, grpcError(err)
	}
	return toStruct(toWire(run, true))
}

// grpcError maps a service error to a status error.
func grpcError(err error) error {
	code := codes.Internal
	switch outcome(err) {
	case classInvalid:
		code = codes.InvalidArgument
	case classNotFound:
		code = codes.NotFound
	case classNoData:
		code = codes.FailedPrecondition
	case classCancelled:
		code = codes.Canceled
		if errors.Is(err, context.DeadlineExceeded) {
			code = codes.DeadlineExceeded
		}
	}
	return status.Error(code, err.Error())
}

// BacktestClient is a client for xsmom.v1.BacktestService.
type BacktestClient struct {
	cc grpc.ClientConnInterface
}

// NewBacktestClient creates a BacktestClient over cc.
func NewBacktestClient(cc grpc.ClientConnInterface) *BacktestClient {
	return &BacktestClient{cc: cc}
}

// RunBacktest runs a backtest on the server.
func (c *BacktestClient) RunBacktest(ctx context.Context, req xsmom.BacktestRequest, opts ...grpc.CallOption) (*xsmom.Run, error) {
	in, err := toStruct(req)
	if err != nil {
		return nil, err
	}
	return c.invokeRun(ctx, runBacktestMethod, in, opts)
}

// GetRun fetches a stored run by ID.
func (c *BacktestClient) GetRun(ctx context.Context, id string, opts ...grpc.CallOption) (*xsmom.Run, error) {
	in, err := structpb.NewStruct(map[string]any{"id": id})
	if err != nil {
		return nil, err
	}
	return c.invokeRun(ctx, getRunMethod, in, opts)
}

func (c *BacktestClient) invokeRun(ctx context.Context, method string, in *structpb.Struct, opts []grpc.CallOption) (*xsmom.Run, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	var run xsmom.Run
	if err := fromStruct(out, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// toStruct converts v to a Struct through its JSON encoding.
func toStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	s := new(structpb.Struct)
	if err := protojson.Unmarshal(b, s); err != nil {
		return nil, err
	}
	return s, nil
}

// fromStruct decodes a Struct into v through its JSON encoding.
func fromStruct(s *structpb.Struct, v any) error {
	b, err := protojson.Marshal(s)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}
