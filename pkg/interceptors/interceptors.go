package interceptors

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"nostrss/pkg/apperror"
	"nostrss/pkg/logger"
	"nostrss/pkg/telemetry"
)

// ServerConfig configures the server interceptor chain.
type ServerConfig struct {
	ServiceName   string
	EnableTracing bool
}

// validatable is implemented by request types carrying their own validation.
type validatable interface {
	Validate() error
}

// RecoveryInterceptor recovers from panics in unary handlers and converts
// them into an Internal gRPC error.
func RecoveryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Log.Error("recovered from panic in gRPC handler",
					"method", info.FullMethod,
					"panic", r,
				)
				err = status.Errorf(codes.Internal, "internal error: %v", r)
			}
		}()
		return handler(ctx, req)
	}
}

// StreamRecoveryInterceptor is the streaming counterpart of RecoveryInterceptor.
func StreamRecoveryInterceptor() grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Log.Error("recovered from panic in gRPC stream handler",
					"method", info.FullMethod,
					"panic", r,
				)
				err = status.Errorf(codes.Internal, "internal error: %v", r)
			}
		}()
		return handler(srv, ss)
	}
}

// ValidationInterceptor calls Validate() on any request implementing it
// and maps a non-nil result onto an InvalidArgument gRPC error.
func ValidationInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if v, ok := req.(validatable); ok {
			if err := v.Validate(); err != nil {
				return nil, apperror.ToGRPC(apperror.Wrap(err, apperror.CodeInvalidArgument, fmt.Sprintf("invalid request for %s", info.FullMethod)))
			}
		}
		return handler(ctx, req)
	}
}

// UnaryServerInterceptors returns the chained unary interceptor stack.
func UnaryServerInterceptors(cfg *ServerConfig) grpc.UnaryServerInterceptor {
	chain := []grpc.UnaryServerInterceptor{
		RecoveryInterceptor(),
	}

	if cfg.EnableTracing {
		chain = append(chain, telemetry.UnaryServerInterceptor())
	}

	chain = append(chain,
		MetricsInterceptor(cfg.ServiceName),
		LoggingInterceptor(),
		ValidationInterceptor(),
	)

	return chainUnaryInterceptors(chain...)
}

// StreamServerInterceptors returns the chained stream interceptor stack.
func StreamServerInterceptors(cfg *ServerConfig) grpc.StreamServerInterceptor {
	chain := []grpc.StreamServerInterceptor{
		StreamRecoveryInterceptor(),
	}

	if cfg.EnableTracing {
		chain = append(chain, telemetry.StreamServerInterceptor())
	}

	chain = append(chain,
		StreamMetricsInterceptor(cfg.ServiceName),
		StreamLoggingInterceptor(),
	)

	return chainStreamInterceptors(chain...)
}
