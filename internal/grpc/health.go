// Package grpcserver runs the gRPC health service that orchestrators poll.
package grpcserver

import (
	"context"
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the health service name reported alongside the overall ("") status.
const ServiceName = "civic.Reporting"

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthServer wraps grpc-go's health implementation and reports the store's state.
type HealthServer struct {
	srv    *grpc.Server
	health *health.Server
	store  Pinger
	logger *zap.Logger
}

// NewHealthServer registers the health service on a fresh gRPC server.
func NewHealthServer(store Pinger, logger *zap.Logger) *HealthServer {
	srv := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	return &HealthServer{srv: srv, health: hs, store: store, logger: logger}
}

// Refresh pings the store and updates the serving status accordingly.
func (h *HealthServer) Refresh(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	status := healthpb.HealthCheckResponse_SERVING
	if err := h.store.PingContext(ctx); err != nil {
		h.logger.Warn("store ping failed", zap.Error(err))
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	h.health.SetServingStatus("", status)
	h.health.SetServingStatus(ServiceName, status)
	return status
}

// Serve refreshes the status and serves on lis in the background.
func (h *HealthServer) Serve(ctx context.Context, lis net.Listener) {
	h.Refresh(ctx)
	go func() {
		if err := h.srv.Serve(lis); err != nil {
			h.logger.Error("grpc serve", zap.Error(err))
		}
	}()
}

// Start listens on addr and serves. It returns a shutdown function.
func Start(ctx context.Context, addr string, store Pinger, logger *zap.Logger) (*HealthServer, func(context.Context) error, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, err
	}
	h := NewHealthServer(store, logger)
	h.Serve(ctx, lis)
	return h, h.Shutdown, nil
}

// Shutdown marks the service NOT_SERVING and stops gracefully, forcing a stop
// when ctx expires first.
func (h *HealthServer) Shutdown(ctx context.Context) error {
	h.health.Shutdown()
	done := make(chan struct{})
	go func() { h.srv.GracefulStop(); close(done) }()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		h.srv.Stop()
		return ctx.Err()
	}
}
