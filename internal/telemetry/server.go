package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/patronarby/triarb/internal/busx"
)

// Server exposes /healthz and /metrics, grounded on the teacher's
// api.Server Start/Stop lifecycle and chidi150c-coinbase's
// promhttp.Handler wiring.
type Server struct {
	bus    *busx.Bus
	server *http.Server
	logger *slog.Logger
}

// NewServer builds a Server listening on addr (e.g. ":9090").
func NewServer(addr string, bus *busx.Bus, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "telemetry.Server")

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if bus.StopTrading() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("stopped\n"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	return &Server{
		bus: bus,
		server: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}
}

// Start blocks serving HTTP until the server is stopped. Run it in a
// goroutine; it returns nil on a clean Stop.
func (s *Server) Start() error {
	s.logger.Info("serving telemetry", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("telemetry server: %w", err)
	}
	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop() error {
	s.logger.Info("stopping telemetry server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}
