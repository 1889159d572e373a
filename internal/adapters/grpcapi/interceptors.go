package grpcapi

import (
	"context"
	"log/slog"
	"path"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/kvetinski/phonebook/internal/telemetry"
)

// UnaryObserveInterceptor records metrics and an access log line per call.
// Failed calls with a server-side code log at warn level.
func UnaryObserveInterceptor(metrics *telemetry.Metrics, logger *slog.Logger) grpc.UnaryServerInterceptor {
	if logger == nil {
		logger = slog.Default()
	}

	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (resp any, err error) {
		method := path.Base(info.FullMethod)
		start := time.Now()

		metrics.IncRPCInFlight()
		defer metrics.DecRPCInFlight()

		resp, err = handler(ctx, req)
		code := status.Code(err)
		metrics.ObserveRPC(method, code.String(), time.Since(start))

		level := slog.LevelInfo
		switch code {
		case codes.Internal, codes.Unknown, codes.Unavailable, codes.DataLoss:
			level = slog.LevelWarn
		}
		logger.Log(ctx, level, "grpc request",
			"method", method,
			"code", code.String(),
			"duration_ms", time.Since(start).Milliseconds(),
		)

		return resp, err
	}
}
