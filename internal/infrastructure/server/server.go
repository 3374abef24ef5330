package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/fdchannel/internal/descriptor"
	"github.com/GriffinCanCode/AgentOS/fdchannel/internal/infrastructure/monitoring"
)

const shutdownTimeout = 5 * time.Second

// Server exposes metrics and the open-descriptor table over HTTP
type Server struct {
	router  *gin.Engine
	tracker *descriptor.Tracker
	metrics *monitoring.Metrics
	logger  *zap.Logger
	origins []string
	rps     int
	burst   int
}

// New creates a server. tracker may be nil, in which case /descriptors
// reports an empty table.
func New(tracker *descriptor.Tracker, metrics *monitoring.Metrics, logger *zap.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if tracker == nil {
		tracker = descriptor.NewTracker()
	}

	s := &Server{
		tracker: tracker,
		metrics: metrics,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(monitoring.Middleware(s.metrics))
	if len(s.origins) > 0 {
		router.Use(corsMiddleware(s.origins))
	}
	if s.rps > 0 {
		router.Use(rateLimit(s.rps, s.burst))
	}

	router.GET("/healthz", s.health)
	router.GET("/descriptors", s.descriptors)
	router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	router.GET("/metrics/json", s.metricsJSON)
	return router
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	s.logger.Info("Metrics server listening", zap.String("addr", ln.Addr().String()))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("Metrics server shutdown failed", zap.Error(err))
			return err
		}
		return nil
	}
}

// ListenAndServe listens on addr and calls Serve
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}
