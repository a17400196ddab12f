package observability

import (
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// HealthService es el nombre registrado en grpc.health.v1.
const HealthService = "gtrc"

// HealthServer publica el estado del loop por gRPC health checking.
type HealthServer struct {
	srv    *grpc.Server
	status *health.Server
}

func NewHealthServer() *HealthServer {
	h := &HealthServer{
		srv:    grpc.NewServer(),
		status: health.NewServer(),
	}
	healthpb.RegisterHealthServer(h.srv, h.status)
	h.status.SetServingStatus(HealthService, healthpb.HealthCheckResponse_NOT_SERVING)
	return h
}

func (h *HealthServer) Serve(lis net.Listener) error {
	return h.srv.Serve(lis)
}

func (h *HealthServer) SetServing(serving bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		st = healthpb.HealthCheckResponse_SERVING
	}
	h.status.SetServingStatus(HealthService, st)
}

func (h *HealthServer) Stop() {
	h.status.Shutdown()
	h.srv.GracefulStop()
}

// Track marca SERVING mientras run corre y vuelve a NOT_SERVING cuando
// termina, con o sin error. Un HealthServer nil sólo ejecuta run.
func (h *HealthServer) Track(run func() error) error {
	if h == nil {
		return run()
	}
	h.SetServing(true)
	defer h.SetServing(false)
	return run()
}
