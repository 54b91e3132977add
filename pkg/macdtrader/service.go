package macdtrader

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// RunMethod is the full gRPC method name of Backtest.Run.
const RunMethod = "/macdtrader.v1.Backtest/Run"

// BacktestServer is the server API for the Backtest service.
type BacktestServer interface {
	Run(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// RegisterBacktestServer registers srv on s.
func RegisterBacktestServer(s grpc.ServiceRegistrar, srv BacktestServer) {
	s.RegisterService(&BacktestServiceDesc, srv)
}

func backtestRunHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BacktestServer).Run(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: RunMethod,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(BacktestServer).Run(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// BacktestServiceDesc describes the Backtest service. Messages are
// google.protobuf.Struct values in the RunRequest and RunResponse shapes.
var BacktestServiceDesc = grpc.ServiceDesc{
	ServiceName: "macdtrader.v1.Backtest",
	HandlerType: (*BacktestServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Run",
			Handler:    backtestRunHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "macdtrader/v1/backtest.proto",
}
