package ops

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config is the environment surface for the operational HTTP server.
type Config struct {
	Addr            string        `env:"OPS_ADDR" envDefault:":8080"`           // Addr is the listen address.
	ReadTimeout     time.Duration `env:"OPS_READ_TIMEOUT" envDefault:"10s"`     // ReadTimeout bounds request reads.
	WriteTimeout    time.Duration `env:"OPS_WRITE_TIMEOUT" envDefault:"30s"`    // WriteTimeout bounds response writes.
	ShutdownTimeout time.Duration `env:"OPS_SHUTDOWN_TIMEOUT" envDefault:"10s"` // ShutdownTimeout bounds graceful shutdown.
}

// Server is the operational HTTP surface: health, queue statistics,
// metrics, and the producer-facing notification endpoints.
type Server struct {
	cfg Config
	srv *http.Server
	log *slog.Logger
}

// NewServer wires the handler onto a chi router and returns the server.
func NewServer(cfg Config, h *Handler, log *slog.Logger) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.Health)
	r.Get("/queue/stats", h.QueueStats)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/notifications", func(r chi.Router) {
		r.Post("/", h.CreateNotification)
		r.Get("/{id}", h.GetNotification)
		r.Delete("/{id}", h.CancelNotification)
	})

	return &Server{
		cfg: cfg,
		srv: &http.Server{
			Addr:         cfg.Addr,
			Handler:      r,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		log: log,
	}
}

// Start listens until the server is shut down.
func (s *Server) Start() error {
	s.log.Info("ops server listening", slog.String("addr", s.cfg.Addr))
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests within the configured timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
