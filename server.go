package procfixture

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"vawter.tech/stopper"
)

// Server exposes the fault routes over HTTP.
type Server struct {
	cfg      Config
	log      zerolog.Logger
	engine   *gin.Engine
	routes   *RouteTable
	metrics  *Metrics
	injector *Injector
}

// HealthResponse is the body of the health route. PID lets a harness attach
// a monitor to the service it just started.
type HealthResponse struct {
	Status  string `json:"status"`
	PID     int    `json:"pid"`
	Version string `json:"version"`
}

// NewServer builds the engine with every fault route of the catalogue.
// Injector options are applied after the server's own metrics and logger,
// so callers can replace the exit function.
func NewServer(cfg Config, logger zerolog.Logger, opts ...InjectorOption) *Server {
	s := &Server{
		cfg:     cfg,
		log:     logger,
		metrics: NewMetrics(),
	}
	injOpts := append([]InjectorOption{WithMetrics(s.metrics), WithLogger(logger)}, opts...)
	s.injector = NewInjector(cfg, injOpts...)
	s.routes = DefaultRoutes(s.injector)

	engine := gin.New()
	engine.HandleMethodNotAllowed = true
	engine.Use(
		requestID(),
		requestLogger(logger),
		requestMetrics(s.metrics),
		recoverFaults(logger, s.metrics),
	)
	for _, r := range s.routes.Routes() {
		engine.GET(r.Path, s.faultHandler(r))
	}
	engine.GET(HealthPath, func(c *gin.Context) {
		c.JSON(http.StatusOK, HealthResponse{Status: "ok", PID: os.Getpid(), Version: Version})
	})
	engine.GET(MetricsPath, gin.WrapH(promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{})))
	s.engine = engine
	return s
}

func (s *Server) faultHandler(r Route) gin.HandlerFunc {
	return func(c *gin.Context) {
		s.metrics.RecordFault(r.Fault)
		r.Handler(c.Request.Context())
		if !c.Writer.Written() {
			c.Status(http.StatusOK)
		}
	}
}

// Handler returns the HTTP handler of the server
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Routes returns the fault route table
func (s *Server) Routes() *RouteTable {
	return s.routes
}

// Metrics returns the server's collectors
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Injector returns the injector behind the fault routes
func (s *Server) Injector() *Injector {
	return s.injector
}

// Run listens on the configured address and serves until ctx is done
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully within
// the configured timeout.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	sctx := stopper.WithContext(ctx)

	sctx.Go(func(sctx *stopper.Context) error {
		s.log.Info().Str("addr", ln.Addr().String()).Int("pid", os.Getpid()).Msg("serving faults")
		err := srv.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		sctx.Stop(0)
		return err
	})

	sctx.Go(func(sctx *stopper.Context) error {
		select {
		case <-ctx.Done():
		case <-sctx.Stopping():
		}
		shutdownCtx := context.Background()
		if s.cfg.ShutdownTimeout > 0 {
			var cancel context.CancelFunc
			shutdownCtx, cancel = context.WithTimeout(shutdownCtx, s.cfg.ShutdownTimeout)
			defer cancel()
		}
		err := srv.Shutdown(shutdownCtx)
		sctx.Stop(0)
		s.log.Info().Err(err).Msg("server stopped")
		return err
	})

	return sctx.Wait()
}
