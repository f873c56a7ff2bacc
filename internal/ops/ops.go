// Package ops serves the diagnostics surface of a running server: an HTTP
// router exposing health, Prometheus metrics and the session list, and a
// gRPC health service.
package ops

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/cory-johannsen/cubeserver/internal/gameserver"
)

// ServiceName is the gRPC health service name reported for the protocol
// server.
const ServiceName = "cubeserver"

const shutdownTimeout = 5 * time.Second

// SessionLister reports the open sessions. *gameserver.Server satisfies it.
type SessionLister interface {
	Sessions() []gameserver.SessionInfo
}

// NewRouter builds the diagnostics router.
//
// Precondition: gatherer and sessions must be non-nil.
func NewRouter(gatherer prometheus.Gatherer, sessions SessionLister, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	r.Get("/sessions", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(sessions.Sessions()); err != nil {
			logger.Warn("writing session list", zap.Error(err))
		}
	})
	return r
}

// HTTPService runs the diagnostics router as a server.Service.
type HTTPService struct {
	addr   string
	srv    *http.Server
	logger *zap.Logger
}

// NewHTTPService creates an HTTPService listening on addr.
func NewHTTPService(addr string, h http.Handler, logger *zap.Logger) *HTTPService {
	return &HTTPService{
		addr:   addr,
		srv:    &http.Server{Addr: addr, Handler: h, ReadHeaderTimeout: 5 * time.Second},
		logger: logger,
	}
}

// Start listens and serves until Stop is called.
func (s *HTTPService) Start(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.addr, err)
	}
	return s.Serve(lis)
}

// Serve serves on an existing listener.
func (s *HTTPService) Serve(lis net.Listener) error {
	s.logger.Info("ops http listening", zap.String("addr", lis.Addr().String()))
	if err := s.srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop shuts the server down, waiting up to a few seconds for in-flight
// requests.
func (s *HTTPService) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(ctx); err != nil {
		s.logger.Warn("ops http shutdown", zap.Error(err))
	}
}

// HealthService runs a gRPC server carrying only the standard health
// service. The protocol server reports SERVING while the service runs and
// NOT_SERVING once Drain or Stop is called.
type HealthService struct {
	addr   string
	grpc   *grpc.Server
	health *health.Server
	logger *zap.Logger
}

// NewHealthService creates a HealthService listening on addr.
func NewHealthService(addr string, logger *zap.Logger) *HealthService {
	hs := health.NewServer()
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	g := grpc.NewServer()
	healthpb.RegisterHealthServer(g, hs)
	return &HealthService{addr: addr, grpc: g, health: hs, logger: logger}
}

// Start listens and serves until Stop is called.
func (s *HealthService) Start(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.addr, err)
	}
	return s.Serve(lis)
}

// Serve marks the server SERVING and serves on lis.
func (s *HealthService) Serve(lis net.Listener) error {
	s.logger.Info("grpc health listening", zap.String("addr", lis.Addr().String()))
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	s.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	if err := s.grpc.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}

// Drain reports NOT_SERVING and leaves the server running.
func (s *HealthService) Drain() {
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	s.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
}

// Stop reports NOT_SERVING and stops the server gracefully.
func (s *HealthService) Stop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}
