// Package ops serves the operational HTTP surface: liveness, aggregated
// health, and Prometheus metrics.
package ops

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/OpenVidu/openvidu-meet-sub010/pkg/config"
	"github.com/OpenVidu/openvidu-meet-sub010/pkg/health"
	"github.com/OpenVidu/openvidu-meet-sub010/pkg/observability/logger"
)

const shutdownTimeout = 5 * time.Second

// Server is the ops HTTP endpoint.
type Server struct {
	registry *health.Registry
	log      logger.Logger
	http     *http.Server
}

// NewServer builds the ops server. It does not start listening.
func NewServer(cfg config.OpsConfig, registry *health.Registry, log logger.Logger) (*Server, error) {
	if registry == nil {
		return nil, errors.New("health registry is required")
	}
	if log == nil {
		return nil, errors.New("logger is required")
	}

	s := &Server{registry: registry, log: log}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/livez", s.handleLiveness)
	router.GET("/healthz", s.handleHealth)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.http = &http.Server{
		Addr:              cfg.Address,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s, nil
}

// Start listens until Stop is called. It returns only on listener failure.
func (s *Server) Start() error {
	s.log.Info("ops server listening", "address", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop drains in-flight requests and shuts the listener down.
func (s *Server) Stop(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	return s.http.Shutdown(shutdownCtx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

func (s *Server) handleLiveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleHealth(c *gin.Context) {
	results, healthy := s.registry.CheckAll(c.Request.Context())

	status := http.StatusOK
	overall := health.StatusHealthy
	if !healthy {
		status = http.StatusServiceUnavailable
		overall = health.StatusUnhealthy
	}
	c.JSON(status, gin.H{
		"status": overall,
		"checks": results,
	})
}
