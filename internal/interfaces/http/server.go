// Package http exposes the workflow over a gin HTTP surface.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/gtsops/gts-workflow/internal/application/port"
	"github.com/gtsops/gts-workflow/internal/application/service"
	"github.com/gtsops/gts-workflow/internal/config"
)

// Server hosts the workflow gateway.
type Server struct {
	cfg      config.ServerConfig
	router   *gin.Engine
	srv      *http.Server
	handlers *Handlers
	logger   *zap.Logger
}

// NewServer builds the router and wires all routes.
func NewServer(
	cfg config.ServerConfig,
	trips service.TripService,
	station service.StationService,
	tokens service.TokenService,
	notifications service.NotificationService,
	tripStore port.TripStore,
	sessionStore port.SessionStore,
	tokenStore port.TokenStore,
	logger *zap.Logger,
) *Server {
	h := &Handlers{
		trips:         trips,
		station:       station,
		tokens:        tokens,
		notifications: notifications,
		tripStore:     tripStore,
		sessionStore:  sessionStore,
		tokenStore:    tokenStore,
		logger:        logger,
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(loggingMiddleware(logger))
	router.Use(corsMiddleware())

	s := &Server{cfg: cfg, router: router, handlers: h, logger: logger}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	r := s.router
	h := s.handlers

	r.GET("/health", h.Health)

	driver := r.Group("/driver")
	{
		driver.POST("/trip/:id/accept", h.AcceptTrip)
		driver.GET("/:id/token", h.ActiveToken)
		driver.GET("/trip/status", h.TripStatus)
		driver.POST("/trip/complete", h.CompleteTrip)
		driver.POST("/location", h.UpdateLocation)
		driver.POST("/emergency", h.ReportEmergency)
	}

	ms := r.Group("/ms")
	{
		ms.POST("/confirm-arrival", h.ConfirmArrival)
		ms.POST("/pre-reading", h.PreReading)
		ms.POST("/post-reading", h.PostReading)
		ms.POST("/confirm-sap", h.ConfirmSAP)
		ms.GET("/session/:id", h.GetSession)
		ms.GET("/sessions", h.ListSessions)
	}

	dbs := r.Group("/dbs/decant")
	{
		dbs.POST("/arrive", h.DecantArrive)
		dbs.POST("/pre", h.DecantPre)
		dbs.POST("/start", h.DecantStart)
		dbs.POST("/end", h.DecantEnd)
		dbs.POST("/confirm", h.DecantConfirm)
	}

	r.GET("/tokens", h.ListTokens)
	r.POST("/tokens/:id/revoke", h.RevokeToken)

	for _, role := range []string{"driver", "dbs", "ms", "eic"} {
		r.POST("/"+role+"/notifications/register", h.RegisterDevice(role))
		r.POST("/"+role+"/notifications/unregister", h.UnregisterDevice(role))
		r.GET("/"+role+"/notifications", h.ListDevices(role))
	}
}

// Router exposes the gin engine, mainly for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Start begins serving and blocks until the listener fails.
func (s *Server) Start() error {
	s.srv = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}
	s.logger.Info("HTTP server listening", zap.String("addr", s.srv.Addr))
	return s.srv.ListenAndServe()
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		)
	}
}

// corsMiddleware adds CORS headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-User-Id")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
