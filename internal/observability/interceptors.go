// Package observability provides gRPC interceptors and the metrics HTTP server.
package observability

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	"voice-scribe-service/internal/observability/logging"
	"voice-scribe-service/internal/observability/metrics"
)

// Health probes arrive every few seconds; they are only logged at debug level.
const healthPrefix = "/grpc.health.v1.Health/"

// UnaryServerInterceptor returns a gRPC unary interceptor for logging.
func UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	logger := logging.WithComponent("grpc")
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		start := time.Now()

		resp, err := handler(ctx, req)

		duration := time.Since(start)
		st, _ := status.FromError(err)

		callEvent(logger, info.FullMethod, err).
			Str("method", info.FullMethod).
			Str("code", st.Code().String()).
			Dur("duration", duration).
			Msg("gRPC unary call")

		return resp, err
	}
}

// StreamServerInterceptor returns a gRPC stream interceptor for metrics and logging.
func StreamServerInterceptor(m *metrics.Metrics) grpc.StreamServerInterceptor {
	logger := logging.WithComponent("grpc")
	return func(
		srv interface{},
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		start := time.Now()
		m.RecordStreamStart(metrics.Inbound)

		err := handler(srv, ss)

		duration := time.Since(start)
		success := err == nil
		m.RecordStreamEnd(metrics.Inbound, success, duration.Seconds())

		st, _ := status.FromError(err)

		callEvent(logger, info.FullMethod, err).
			Str("method", info.FullMethod).
			Str("code", st.Code().String()).
			Dur("duration", duration).
			Bool("success", success).
			Msg("gRPC stream completed")

		return err
	}
}

func callEvent(logger zerolog.Logger, method string, err error) *zerolog.Event {
	switch {
	case err != nil:
		return logger.Warn()
	case strings.HasPrefix(method, healthPrefix):
		return logger.Debug()
	default:
		return logger.Info()
	}
}
