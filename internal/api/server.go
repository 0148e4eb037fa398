// Package api exposes the engine over HTTP for the dashboard and the agent
// process. Framing is plain JSON; error codes follow the engine taxonomy.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/marcus/missionctl/internal/config"
	"github.com/marcus/missionctl/internal/engine"
	"github.com/marcus/missionctl/internal/logging"
	"github.com/marcus/missionctl/internal/reprioritizer"
	"github.com/marcus/missionctl/internal/store"
)

// FlagSource supplies current calendar flags per request.
type FlagSource func() reprioritizer.Flags

// Server hosts the missionctl HTTP API.
type Server struct {
	engine     *engine.Engine
	reprio     *reprioritizer.Service
	store      *store.Store
	flags      FlagSource
	logger     *logging.Logger
	httpServer *http.Server
}

// NewServer builds the router and wires all handlers.
func NewServer(cfg config.ServerConfig, eng *engine.Engine, reprio *reprioritizer.Service, st *store.Store, flags FlagSource) *Server {
	s := &Server{
		engine: eng,
		reprio: reprio,
		store:  st,
		flags:  flags,
		logger: logging.Component("api"),
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	if cfg.CORSEnabled {
		corsConfig := cors.DefaultConfig()
		corsConfig.AllowAllOrigins = true
		corsConfig.AllowMethods = []string{"GET", "POST", "PATCH", "OPTIONS"}
		corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
		router.Use(cors.New(corsConfig))
	}

	router.GET("/healthz", s.handleHealth)

	agentGroup := router.Group("/api/agent")
	{
		agentGroup.GET("", s.handleAgentState)
		agentGroup.PATCH("", s.handleUpdateAgent)
		agentGroup.GET("/pickup", s.handlePickup)
		agentGroup.POST("/assign", s.handleAssign)
		agentGroup.POST("/complete", s.handleComplete)
	}

	router.POST("/api/calendar/reprioritize", s.handleReprioritize)
	router.GET("/api/tasks", s.handleListTasks)
	router.GET("/api/tasks/:id", s.handleGetTask)
	router.GET("/api/activity", s.handleListActivity)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.logger.InfoCtx("api listening", map[string]any{"addr": s.httpServer.Addr})
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}
