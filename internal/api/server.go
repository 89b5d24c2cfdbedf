// Package api exposes the gateway's HTTP surfaces: the proxy endpoint,
// the management REST API, metrics, and health.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/striped-zebra-dev/oagw/internal/controlplane"
	"github.com/striped-zebra-dev/oagw/internal/dataplane"
	"github.com/striped-zebra-dev/oagw/internal/logging"
	"github.com/striped-zebra-dev/oagw/internal/metrics"
)

// Config tunes the HTTP server.
type Config struct {
	// Listen is the bind address, e.g. ":8080".
	Listen string
	// MaxBodyBytes caps inbound proxy bodies; defaults to 100 MiB.
	MaxBodyBytes int64
	// Metrics, when set, serves /metrics from its registry.
	Metrics *metrics.Metrics
	// Introspection, when set, is served (already redacted) at
	// /oagw/v1/config.
	Introspection func() any
}

// Server wires the control and data planes into an http.Server.
type Server struct {
	cp            *controlplane.Service
	dp            *dataplane.Service
	maxBodyBytes  int64
	introspection func() any

	httpServer *http.Server
	logger     *zap.Logger
}

// NewServer builds the router and middleware stack.
func NewServer(cfg Config, cp *controlplane.Service, dp *dataplane.Service) *Server {
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}

	s := &Server{
		cp:            cp,
		dp:            dp,
		maxBodyBytes:  maxBody,
		introspection: cfg.Introspection,
		logger:        logging.With(zap.String("component", "api")),
	}

	router := httprouter.New()

	// Management API.
	router.POST("/oagw/v1/upstreams", s.createUpstream)
	router.GET("/oagw/v1/upstreams", s.listUpstreams)
	router.GET("/oagw/v1/upstreams/:id", s.getUpstream)
	router.PUT("/oagw/v1/upstreams/:id", s.updateUpstream)
	router.DELETE("/oagw/v1/upstreams/:id", s.deleteUpstream)
	router.GET("/oagw/v1/upstreams/:id/routes", s.listUpstreamRoutes)
	router.POST("/oagw/v1/routes", s.createRoute)
	router.GET("/oagw/v1/routes/:id", s.getRoute)
	router.PUT("/oagw/v1/routes/:id", s.updateRoute)
	router.DELETE("/oagw/v1/routes/:id", s.deleteRoute)

	// Proxy catch-all, registered for every supported method.
	for _, method := range []string{
		http.MethodGet, http.MethodPost, http.MethodPut,
		http.MethodDelete, http.MethodPatch, http.MethodHead, http.MethodOptions,
	} {
		router.Handle(method, "/api/oagw/v1/proxy/*path", s.proxy)
	}

	router.HandlerFunc(http.MethodGet, "/healthz", s.health)
	if s.introspection != nil {
		router.HandlerFunc(http.MethodGet, "/oagw/v1/config", s.config)
	}
	if cfg.Metrics != nil {
		router.Handler(http.MethodGet, "/metrics", cfg.Metrics.Handler())
	}

	handler := Chain(RequestID(), Recovery(), AccessLog())(router)

	s.httpServer = &http.Server{
		Addr:    cfg.Listen,
		Handler: handler,
		// No write timeout: proxied bodies stream indefinitely.
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the root handler (used by tests and the SDK test rig).
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// config serves the redacted configuration for operators.
func (s *Server) config(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.introspection())
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("listening", zap.String("addr", s.httpServer.Addr))
		err := s.httpServer.ListenAndServe()
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
