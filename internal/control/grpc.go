package control

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName is the fully-qualified control service name used in method
// full-names, mirroring what protoc-gen-go-grpc would emit for a
// `nostrss.control.v1.Control` service definition.
const ServiceName = "nostrss.control.v1.Control"

// RegisterControlServer attaches srv to s under ServiceName, using the
// hand-written ServiceDesc below in place of protoc-generated registration
// code (see DESIGN.md for why no .pb.go exists for this service).
func RegisterControlServer(s *grpc.Server, srv Handler) {
	s.RegisterService(&serviceDesc, srv)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*Handler)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod("State", func(h Handler, ctx context.Context, req any) (any, error) {
			return h.State(ctx, req.(*StateRequest))
		}, func() any { return new(StateRequest) }),
		unaryMethod("FeedsList", func(h Handler, ctx context.Context, req any) (any, error) {
			return h.FeedsList(ctx, req.(*FeedsListRequest))
		}, func() any { return new(FeedsListRequest) }),
		unaryMethod("FeedInfo", func(h Handler, ctx context.Context, req any) (any, error) {
			return h.FeedInfo(ctx, req.(*FeedInfoRequest))
		}, func() any { return new(FeedInfoRequest) }),
		unaryMethod("AddFeed", func(h Handler, ctx context.Context, req any) (any, error) {
			return h.AddFeed(ctx, req.(*AddFeedRequest))
		}, func() any { return new(AddFeedRequest) }),
		unaryMethod("DeleteFeed", func(h Handler, ctx context.Context, req any) (any, error) {
			return h.DeleteFeed(ctx, req.(*DeleteFeedRequest))
		}, func() any { return new(DeleteFeedRequest) }),
		unaryMethod("ProfilesList", func(h Handler, ctx context.Context, req any) (any, error) {
			return h.ProfilesList(ctx, req.(*ProfilesListRequest))
		}, func() any { return new(ProfilesListRequest) }),
		unaryMethod("ProfileInfo", func(h Handler, ctx context.Context, req any) (any, error) {
			return h.ProfileInfo(ctx, req.(*ProfileInfoRequest))
		}, func() any { return new(ProfileInfoRequest) }),
		unaryMethod("AddProfile", func(h Handler, ctx context.Context, req any) (any, error) {
			return h.AddProfile(ctx, req.(*AddProfileRequest))
		}, func() any { return new(AddProfileRequest) }),
		unaryMethod("DeleteProfile", func(h Handler, ctx context.Context, req any) (any, error) {
			return h.DeleteProfile(ctx, req.(*DeleteProfileRequest))
		}, func() any { return new(DeleteProfileRequest) }),
		unaryMethod("StartJob", func(h Handler, ctx context.Context, req any) (any, error) {
			return h.StartJob(ctx, req.(*StartJobRequest))
		}, func() any { return new(StartJobRequest) }),
		unaryMethod("StopJob", func(h Handler, ctx context.Context, req any) (any, error) {
			return h.StopJob(ctx, req.(*StopJobRequest))
		}, func() any { return new(StopJobRequest) }),
	},
	Metadata: "control.nostrss",
}

// unaryMethod builds a grpc.MethodDesc for one RPC, wiring the shared
// interceptor chain through exactly as protoc-gen-go-grpc's generated
// handlers do: decode into a fresh request, then either call straight
// through or via the configured interceptor.
func unaryMethod(name string, call func(h Handler, ctx context.Context, req any) (any, error), newReq func() any) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			req := newReq()
			if err := dec(req); err != nil {
				return nil, err
			}
			h := srv.(Handler)
			if interceptor == nil {
				return call(h, ctx, req)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + name}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(h, ctx, req)
			}
			return interceptor(ctx, req, info, handler)
		},
	}
}
