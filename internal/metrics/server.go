package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"overlay/internal/logging"
)

const shutdownTimeout = 2 * time.Second

// Server serves /metrics for one collector.
type Server struct {
	listener net.Listener
	server   *http.Server
	logger   *slog.Logger
	done     chan struct{}
}

// Serve starts an HTTP listener on bind and stops it when ctx ends.
func Serve(ctx context.Context, bind string, collector *Collector, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	listener, err := net.Listen("tcp", bind)
	if err != nil {
		return nil, fmt.Errorf("listen on metrics bind %s: %w", bind, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(collector.Registry(), promhttp.HandlerOpts{}))

	s := &Server{
		listener: listener,
		server:   &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second},
		logger:   logging.NewComponentLogger(logger, "metrics"),
		done:     make(chan struct{}),
	}

	go func() {
		defer close(s.done)
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.WarnWithContext(s.logger, "metrics server stopped", "metrics_serve_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "metrics are no longer exported"),
				logging.String(logging.FieldErrorHint, "check metrics.bind"),
			)
		}
	}()
	go func() {
		<-ctx.Done()
		s.Close()
	}()

	s.logger.Info("metrics endpoint listening", logging.String("address", s.Addr()))
	return s, nil
}

// Addr returns the bound address.
func (s *Server) Addr() string { return s.listener.Addr().String() }

// Close shuts the server down and waits for it to exit.
func (s *Server) Close() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)
	<-s.done
}
