// Package admin exposes the management HTTP API: proxy statistics,
// encryption key inventory, key rotation and retirement.
package admin

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/loochek/pgproxy/pkg/keystore"
	"github.com/loochek/pgproxy/pkg/proxy"
)

// Server is the management HTTP server.
type Server struct {
	proxy        *proxy.Proxy
	store        *keystore.Store
	router       *gin.Engine
	addr         string
	readTimeout  time.Duration
	writeTimeout time.Duration
	httpServer   *http.Server
	log          zerolog.Logger
}

// Config holds server configuration.
type Config struct {
	Addr         string
	EnableCORS   bool
	RateLimit    int // requests per minute per client IP
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultConfig returns the default server configuration.
func DefaultConfig() *Config {
	return &Config{
		Addr:         "127.0.0.1:8080",
		EnableCORS:   true,
		RateLimit:    120,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

// NewServer creates a management server over the given proxy and keystore.
func NewServer(p *proxy.Proxy, store *keystore.Store, log zerolog.Logger, config *Config) *Server {
	if config == nil {
		config = DefaultConfig()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	server := &Server{
		proxy:        p,
		store:        store,
		router:       router,
		addr:         config.Addr,
		readTimeout:  config.ReadTimeout,
		writeTimeout: config.WriteTimeout,
		log:          log,
	}

	server.setupMiddleware(config)
	server.setupRoutes()

	return server
}

func (s *Server) setupMiddleware(config *Config) {
	if config.EnableCORS {
		s.router.Use(CORSMiddleware())
	}
	s.router.Use(RateLimitMiddleware(NewRateLimiter(config.RateLimit)))
	s.router.Use(LoggingMiddleware(s.log))
	s.router.Use(gin.Recovery())
}

func (s *Server) setupRoutes() {
	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/stats", s.handleStats)

		keys := v1.Group("/keys")
		{
			keys.GET("", s.handleListKeys)
			keys.POST("", s.handleRotateKey)
			keys.POST("/:id/retire", s.handleRetireKey)
		}
	}

	s.router.GET("/health", s.handleHealth)
}

// Start runs the HTTP server until the context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         s.addr,
		Handler:      s.router,
		ReadTimeout:  s.readTimeout,
		WriteTimeout: s.writeTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		s.log.Info().Str("addr", s.addr).Msg("admin API listening")
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error().Err(err).Msg("admin API failed")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

// Stop shuts the HTTP server down.
func (s *Server) Stop() error {
	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// HealthResponse reports process liveness.
type HealthResponse struct {
	Success bool   `json:"success"`
	Status  string `json:"status"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Success: true,
		Status:  "ok",
	})
}

// StatsResponse wraps the proxy activity counters.
type StatsResponse struct {
	Success bool           `json:"success"`
	Stats   proxy.Snapshot `json:"stats"`
}

func (s *Server) handleStats(c *gin.Context) {
	c.JSON(http.StatusOK, StatsResponse{
		Success: true,
		Stats:   s.proxy.Stats().Snapshot(),
	})
}
