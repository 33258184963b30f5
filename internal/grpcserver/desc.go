package grpcserver

import (
	"context"

	"google.golang.org/grpc"
)

const (
	catalogService = "jornada.Catalog"
	planService    = "jornada.Plan"
)

var catalogServiceDesc = grpc.ServiceDesc{
	ServiceName: catalogService,
	HandlerType: (*CatalogServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Search", Handler: unary(func(s CatalogServer, ctx context.Context, req *SearchRequest) (any, error) {
			return s.Search(ctx, req)
		}, "/"+catalogService+"/Search")},
		{MethodName: "Tracks", Handler: unary(func(s CatalogServer, ctx context.Context, req *TracksRequest) (any, error) {
			return s.Tracks(ctx, req)
		}, "/"+catalogService+"/Tracks")},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "jornada",
}

var planServiceDesc = grpc.ServiceDesc{
	ServiceName: planService,
	HandlerType: (*PlanServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "List", Handler: unary(func(s PlanServer, ctx context.Context, req *PlanListRequest) (any, error) {
			return s.List(ctx, req)
		}, "/"+planService+"/List")},
		{MethodName: "Progress", Handler: unary(func(s PlanServer, ctx context.Context, req *ProgressRequest) (any, error) {
			return s.Progress(ctx, req)
		}, "/"+planService+"/Progress")},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "jornada",
}

// unary adapts a typed method to the handler shape grpc.MethodDesc expects,
// the same shape protoc-gen-go-grpc emits.
func unary[S any, Req any](call func(S, context.Context, *Req) (any, error), fullMethod string) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(S), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(S), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}
