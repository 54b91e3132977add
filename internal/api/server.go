// Package api provides the gRPC backtest server and its Prometheus metrics
// endpoint.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	"macdtrader/internal/config"
	"macdtrader/pkg/macdtrader"
)

// Server hosts the Backtest gRPC service and the metrics HTTP endpoint.
type Server struct {
	grpcAddr    string
	metricsAddr string
	grpc        *grpc.Server
	http        *http.Server
	log         *slog.Logger
}

// NewServer creates a Server for svc configured from cfg.Server. Metrics are
// served only when cfg.Server.MetricsAddr is set and m is non-nil.
func NewServer(cfg *config.Config, svc *BacktestService, m *Metrics, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		grpcAddr:    net.JoinHostPort(cfg.Server.Host, fmt.Sprint(cfg.Server.GRPCPort)),
		metricsAddr: cfg.Server.MetricsAddr,
		log:         log.With("component", "server"),
	}
	s.grpc = grpc.NewServer(grpc.UnaryInterceptor(s.logUnary))
	macdtrader.RegisterBacktestServer(s.grpc, svc)

	if m != nil && s.metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		s.http = &http.Server{
			Addr:              s.metricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
	}
	return s
}

// Serve runs the gRPC server on lis until Shutdown is called.
func (s *Server) Serve(lis net.Listener) error {
	return s.grpc.Serve(lis)
}

// ListenAndServe starts the gRPC and metrics listeners and blocks until the
// context is cancelled or a listener fails.
func (s *Server) ListenAndServe(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.grpcAddr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.grpcAddr, err)
	}

	errCh := make(chan error, 2)
	go func() {
		s.log.Info("grpc listening", "addr", lis.Addr().String())
		errCh <- s.Serve(lis)
	}()
	if s.http != nil {
		go func() {
			s.log.Info("metrics listening", "addr", s.metricsAddr)
			if err := s.http.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("metrics server: %w", err)
			}
		}()
	}

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			s.log.Error("server failed", "error", err)
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.Shutdown(shutdownCtx)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.Shutdown(shutdownCtx)
}

// Shutdown stops accepting new requests and waits for in-flight ones until
// ctx expires, after which remaining calls are cut off.
func (s *Server) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.grpc.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.grpc.Stop()
	}

	if s.http != nil {
		if err := s.http.Shutdown(ctx); err != nil {
			return fmt.Errorf("metrics shutdown: %w", err)
		}
	}
	s.log.Info("server stopped")
	return nil
}

func (s *Server) logUnary(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	s.log.Debug("rpc",
		"method", info.FullMethod,
		"code", status.Code(err).String(),
		"elapsed", time.Since(start),
	)
	return resp, err
}
