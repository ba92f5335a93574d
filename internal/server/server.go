package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	apperrors "github.com/yaelahrip/botasaurus-requests/internal/errors"
	"github.com/yaelahrip/botasaurus-requests/internal/gateway"
	"github.com/yaelahrip/botasaurus-requests/internal/observability"
	"github.com/yaelahrip/botasaurus-requests/internal/server/handlers"
	servermw "github.com/yaelahrip/botasaurus-requests/internal/server/middleware"
)

// Default HTTP timeouts. The write timeout leaves room for the upstream
// call to finish before the connection is cut.
const (
	DefaultReadTimeout  = 30 * time.Second
	DefaultWriteTimeout = 90 * time.Second
	DefaultIdleTimeout  = 120 * time.Second
)

// Options wires the gateway components into the HTTP server.
type Options struct {
	Host string
	Port int

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	TLSCertFile string
	TLSKeyFile  string

	Gate       *gateway.Gate
	Normalizer *gateway.Normalizer
	Dispatcher *gateway.Dispatcher
	Health     *handlers.HealthManager

	// MetricsPort is the Prometheus exporter port proxied at /metrics when
	// the exporter does not report its own.
	MetricsPort int

	// AdminToken enables POST /admin/signal when set.
	AdminToken string
}

// Server represents the HTTP server
type Server struct {
	router *chi.Mux
	opts   Options

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
}

// New creates a new HTTP server instance
func New(opts Options) *Server {
	if opts.Health == nil {
		opts.Health = handlers.NewHealthManager(handlers.AppVersion)
	}

	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(servermw.RequestID)
	r.Use(servermw.RequestMetrics)
	r.Use(servermw.Recovery)

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		HandleError(w, req, apperrors.NewNotFoundError("The requested resource was not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		HandleError(w, req, apperrors.NewMethodNotAllowedError("The requested method is not allowed for this resource"))
	})

	s := &Server{
		router: r,
		opts:   opts,
	}

	handlers.SetErrorResponder(HandleError)

	s.registerRoutes()

	return s
}

// Start listens on the configured address and serves until Shutdown. HTTPS
// is used when both TLS files are configured.
func (s *Server) Start() error {
	addr := net.JoinHostPort(s.opts.Host, fmt.Sprintf("%d", s.opts.Port))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	return s.Serve(listener)
}

// Serve accepts connections on listener.
func (s *Server) Serve(listener net.Listener) error {
	httpServer := &http.Server{
		Handler:      s.router,
		ReadTimeout:  orDefault(s.opts.ReadTimeout, DefaultReadTimeout),
		WriteTimeout: orDefault(s.opts.WriteTimeout, DefaultWriteTimeout),
		IdleTimeout:  orDefault(s.opts.IdleTimeout, DefaultIdleTimeout),
	}

	s.mu.Lock()
	s.server = httpServer
	s.listener = listener
	s.mu.Unlock()

	tlsEnabled := s.opts.TLSCertFile != "" && s.opts.TLSKeyFile != ""
	if logger := observability.ServerLogger; logger != nil {
		logger.Info("Starting HTTP server",
			zap.String("addr", listener.Addr().String()),
			zap.Bool("tls", tlsEnabled))
	}

	if tlsEnabled {
		err := httpServer.ServeTLS(listener, s.opts.TLSCertFile, s.opts.TLSKeyFile)
		return ignoreClosed(err)
	}
	return ignoreClosed(httpServer.Serve(listener))
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	httpServer := s.server
	s.mu.Unlock()
	if httpServer == nil {
		return nil
	}
	if logger := observability.ServerLogger; logger != nil {
		logger.Info("Shutting down HTTP server")
	}
	return httpServer.Shutdown(ctx)
}

// Addr returns the bound address once the server is serving.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Handler exposes the underlying router for testing and instrumentation
func (s *Server) Handler() http.Handler {
	return s.router
}

// Port returns the configured server port
func (s *Server) Port() int {
	return s.opts.Port
}

func orDefault(value, fallback time.Duration) time.Duration {
	if value <= 0 {
		return fallback
	}
	return value
}

func ignoreClosed(err error) error {
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
