package ui

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gradelens/app"
	"gradelens/internal"
)

// ServerOptions configures the HTTP API
type ServerOptions struct {
	// MaxUploadBytes caps multipart uploads
	MaxUploadBytes int64
	// AllowLocalFiles lets POST /api/sessions open a path on the server
	AllowLocalFiles bool
	// Metrics serves the Prometheus registry at /metrics
	Metrics bool
}

// Server is the JSON API in front of the analysis service
type Server struct {
	router  *gin.Engine
	service *app.AnalysisService
	options ServerOptions
	logger  *internal.Logger
}

// NewServer creates a new API server with its routes in place
func NewServer(service *app.AnalysisService, options ServerOptions, logger *internal.Logger) *Server {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	if options.MaxUploadBytes <= 0 {
		options.MaxUploadBytes = 32 << 20
	}
	s := &Server{
		router:  gin.New(),
		service: service,
		options: options,
		logger:  logger.Component("http"),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures Gin middleware
func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.requestLogger())
}

// setupRoutes configures the application routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)
	if s.options.Metrics {
		s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	api := s.router.Group("/api")
	api.GET("/sessions", s.handleListSessions)
	api.POST("/sessions", s.handleOpenSession)

	sess := api.Group("/sessions/:id")
	sess.GET("", s.handleGetSession)
	sess.DELETE("", s.handleCloseSession)
	sess.GET("/values/:column", s.handleValues)
	sess.POST("/aggregate", s.handleAggregate)
	sess.POST("/crosstab", s.handleCrosstab)
	sess.POST("/correlate", s.handleCorrelate)
	sess.POST("/cohort", s.handleCohort)
	sess.POST("/cohorts/compare", s.handleCompareCohorts)
	sess.POST("/histogram", s.handleHistogram)
	sess.POST("/distribution", s.handleDistribution)
	sess.POST("/summary", s.handleSummary)
	sess.POST("/dashboard", s.handleDashboard)
	sess.POST("/export", s.handleExport)
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves on addr until ctx is canceled, then drains in-flight
// requests for up to ten seconds.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening on http://%s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("%s %s %d %s", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start).Round(time.Microsecond))
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
