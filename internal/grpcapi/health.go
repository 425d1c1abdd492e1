// Package grpcapi serves the gRPC health protocol backed by the same
// readiness probe as /readyz.
package grpcapi

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"ongon.org/internal/obs"
)

// ServiceName is the service reported alongside the overall "" service.
const ServiceName = "ongon.api"

// Readiness reports whether the process can serve traffic.
type Readiness interface {
	Check(ctx context.Context) error
}

// Health implements grpc.health.v1.Health.
type Health struct {
	healthpb.UnimplementedHealthServer

	readiness Readiness
}

// NewHealth creates the health service. A nil probe is always ready.
func NewHealth(r Readiness) *Health {
	return &Health{readiness: r}
}

// Check reports SERVING when the readiness probe passes.
func (h *Health) Check(ctx context.Context, req *healthpb.HealthCheckRequest) (*healthpb.HealthCheckResponse, error) {
	if svc := req.GetService(); svc != "" && svc != ServiceName {
		return nil, status.Errorf(codes.NotFound, "unknown service %q", svc)
	}
	if h.readiness != nil {
		if err := h.readiness.Check(ctx); err != nil {
			obs.SetReady(false)
			obs.Logger().WarnContext(ctx, "grpc readiness check failed", obs.Err(err))
			return &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_NOT_SERVING}, nil
		}
	}
	obs.SetReady(true)
	return &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_SERVING}, nil
}

// NewServer builds a gRPC server exposing the health service.
func NewServer(r Readiness) *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(logUnary))
	healthpb.RegisterHealthServer(srv, NewHealth(r))
	return srv
}

func logUnary(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	obs.Logger().LogAttrs(ctx, slog.LevelDebug, "grpc_complete",
		slog.String("method", info.FullMethod),
		slog.String("code", status.Code(err).String()),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
	return resp, err
}
