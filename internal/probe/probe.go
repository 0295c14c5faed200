// Package probe exposes process and inference-mode health over the standard
// gRPC health checking protocol.
package probe

import (
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
)

// RemoteInferenceService reports SERVING only when a model credential is configured.
const RemoteInferenceService = "aifriend.RemoteInference"

// Server is a gRPC server carrying only the health service.
type Server struct {
	grpc   *grpc.Server
	health *health.Server
}

// New creates a probe server. The overall service ("") is SERVING until Stop.
func New(remoteEnabled bool) *Server {
	s := &Server{
		grpc: grpc.NewServer(
			grpc.KeepaliveParams(keepalive.ServerParameters{
				Time:    2 * time.Minute,
				Timeout: 10 * time.Second,
			}),
		),
		health: health.NewServer(),
	}
	healthpb.RegisterHealthServer(s.grpc, s.health)

	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	s.SetRemoteEnabled(remoteEnabled)
	return s
}

// SetRemoteEnabled updates the inference service status.
func (s *Server) SetRemoteEnabled(enabled bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if enabled {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(RemoteInferenceService, status)
}

// Serve accepts connections on lis until Stop is called.
func (s *Server) Serve(lis net.Listener) error {
	slog.Info("gRPC health probe listening", "addr", lis.Addr().String())
	return s.grpc.Serve(lis)
}

// Stop marks every service NOT_SERVING so watchers see the shutdown, then
// drains in-flight RPCs.
func (s *Server) Stop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}
