package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/katatrina/xsmb-live/internal/stream"
	"github.com/katatrina/xsmb-live/internal/util"
	"github.com/rs/zerolog/log"
)

// HealthChecker reports whether the store/broker backend is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

type Server struct {
	router        *gin.Engine
	httpServer    *http.Server
	config        *util.Config
	streamService *stream.Service
	health        HealthChecker
	location      *time.Location
}

// NewServer creates a new HTTP server and set up routing.
func NewServer(config *util.Config, streamService *stream.Service, health HealthChecker, location *time.Location) *Server {
	server := &Server{
		config:        config,
		streamService: streamService,
		health:        health,
		location:      location,
	}

	server.setupRouter()
	log.Info().Msg("HTTP router created successfully ✅")
	return server
}

// setupRouter configures the HTTP server routes.
func (server *Server) setupRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())
	router.Use(cors.New(cors.Config{
		AllowOrigins: server.config.AllowedOrigins,
		AllowMethods: []string{"GET", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Cache-Control", "Last-Event-ID"},
	}))

	initialLimiter := newIPRateLimiter(server.config.InitialRateLimit, server.config.InitialRateWindow)
	streamLimiter := newIPRateLimiter(server.config.StreamRateLimit, server.config.StreamRateWindow)

	// Kết quả đã đối chiếu tại thời điểm gọi (JSON)
	router.GET("/initial", rateLimitMiddleware(initialLimiter), server.getInitialResults)

	// Luồng SSE trực tiếp của buổi quay
	router.GET("/", rateLimitMiddleware(streamLimiter), server.streamDrawEvents)

	router.GET("/healthz", server.healthCheck)

	server.router = router
	return router
}

// Handler exposes the router, e.g. for httptest.
func (server *Server) Handler() http.Handler {
	return server.router
}

// Start runs the HTTP server on a specific address.
// It returns http.ErrServerClosed after Shutdown.
func (server *Server) Start(address string) error {
	server.httpServer = &http.Server{
		Addr:              address,
		Handler:           server.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return server.httpServer.ListenAndServe()
}

// Shutdown stops accepting connections. Open SSE streams are not drained:
// their request contexts are cancelled when the listener closes them.
func (server *Server) Shutdown(ctx context.Context) error {
	if server.httpServer == nil {
		return nil
	}
	if err := server.httpServer.Shutdown(ctx); err != nil {
		return server.httpServer.Close()
	}
	return nil
}
