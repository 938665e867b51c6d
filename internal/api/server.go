package api

import (
	"context"
	"net/http"
	"time"

	"example.com/tableside/config"
	"example.com/tableside/internal/api/handlers"
	"example.com/tableside/internal/services"
	"example.com/tableside/internal/tracing"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Server represents the HTTP server
type Server struct {
	config     config.Config
	router     *gin.Engine
	httpServer *http.Server
}

// Deps are the services the handlers are built from.
type Deps struct {
	Orders     *services.OrderService
	Engagement *services.EngagementService
	Entities   *handlers.EntityHandler
	Settings   *handlers.SettingsHandler
	Tracer     tracing.Tracer
}

// NewServer creates a new HTTP server
func NewServer(cfg config.Config, deps Deps) *Server {
	server := &Server{config: cfg}

	router := server.setupRouter(deps)
	server.router = router

	server.httpServer = &http.Server{
		Addr:    cfg.ServerAddress,
		Handler: router,
	}

	return server
}

// setupRouter configures the HTTP router
func (s *Server) setupRouter(deps Deps) *gin.Engine {
	if s.config.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	router.Use(gin.Recovery())

	ordersHandler := handlers.NewOrdersHandler(deps.Orders, deps.Tracer)
	ordersHandler.RegisterRoutes(router)

	engagementHandler := handlers.NewEngagementHandler(deps.Engagement)
	engagementHandler.RegisterRoutes(router)

	deps.Entities.RegisterRoutes(router)
	deps.Settings.RegisterRoutes(router)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	log.Info().Str("address", s.config.ServerAddress).Msg("Starting HTTP server")

	if err := s.httpServer.ListenAndServe(); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "HTTP server error")
	}

	return nil
}

// Shutdown gracefully stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("Shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "HTTP server shutdown error")
	}

	log.Info().Msg("HTTP server shut down successfully")
	return nil
}
