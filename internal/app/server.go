package app

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"barter_backend/internal/ai"
	"barter_backend/internal/auth"
	"barter_backend/internal/chat"
	"barter_backend/internal/config"
	"barter_backend/internal/deck"
	"barter_backend/internal/jobs"
	"barter_backend/internal/listing"
	"barter_backend/internal/match"
	"barter_backend/internal/middleware"
	"barter_backend/internal/platform/elasticsearch"
	"barter_backend/internal/presence"
	"barter_backend/internal/shared"
	"barter_backend/internal/swipe"
	"barter_backend/internal/user"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RouteRegistrar is implemented by every feature handler.
type RouteRegistrar interface {
	RegisterRoutes(router *gin.RouterGroup, authMW gin.HandlerFunc)
}

// Handlers groups the feature handlers so the injector can pass them as one.
type Handlers struct {
	Auth    *auth.Handler
	User    *user.Handler
	Deck    *deck.Handler
	Listing *listing.Handler
	Swipe   *swipe.Handler
	Match   *match.Handler
	Chat    *chat.Handler
	AI      *ai.Handler
}

// registrars returns the handlers in registration order. The deck handler
// goes before listings so its static /listings/deck route is explicit.
func (h Handlers) registrars() []RouteRegistrar {
	return []RouteRegistrar{h.Auth, h.User, h.Deck, h.Listing, h.Swipe, h.Match, h.Chat, h.AI}
}

// Server struct holds the dependencies for the HTTP server.
type Server struct {
	httpServer *http.Server
	router     *gin.Engine
	cfg        *config.Config
	hub        *presence.Hub
	auditJob   *jobs.MatchExpiryAuditJob

	// Exposed for startup tasks run from main.
	ESClient  *elasticsearch.ESClientWrapper
	AppLogger *zap.Logger
}

// NewServer creates a new instance of our application server.
func NewServer(
	cfg *config.Config,
	logger *zap.Logger,
	handlers Handlers,
	authenticator shared.Authenticator,
	hub *presence.Hub,
	auditJob *jobs.MatchExpiryAuditJob,
	esClient *elasticsearch.ESClientWrapper,
) *Server {
	gin.SetMode(cfg.GinMode)
	router := gin.New()

	router.Use(middleware.ZapLogger(logger, cfg))
	router.Use(middleware.ErrorHandler(logger))
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if allowAllOrigins(cfg.WSAllowedOrigins) {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.WSAllowedOrigins
		corsConfig.AllowCredentials = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader}
	corsConfig.ExposeHeaders = []string{"Content-Length", middleware.RequestIDHeader}
	router.Use(cors.New(corsConfig))

	authMW := middleware.AuthMiddleware(authenticator, logger.Named("AuthMiddleware"))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "online_users": hub.OnlineUsers()})
	})
	// Uploaded images are served here unless a CDN URL is configured.
	if mount := strings.TrimRight(cfg.ImagePublicBaseURL, "/"); strings.HasPrefix(mount, "/") && cfg.ImageStoragePath != "" {
		router.Static(mount, cfg.ImageStoragePath)
	}

	v1 := router.Group("/api/v1")
	for _, r := range handlers.registrars() {
		r.RegisterRoutes(v1, authMW)
	}

	addr := fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		cfg:        cfg,
		hub:        hub,
		auditJob:   auditJob,
		ESClient:   esClient,
		AppLogger:  logger,
	}
}

// Router exposes the engine for in-process tests.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	if s.auditJob != nil {
		if err := s.auditJob.SetupAndStart(); err != nil {
			s.AppLogger.Error("Failed to start match expiry audit", zap.Error(err))
		}
	}

	s.AppLogger.Info("HTTP Server starting",
		zap.String("address", s.httpServer.Addr),
		zap.String("gin_mode", s.cfg.GinMode),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		s.AppLogger.Error("Failed to start HTTP server", zap.Error(err))
		return err
	}
	s.AppLogger.Info("HTTP Server stopped")
	return nil
}

// Shutdown stops the scheduler and drains HTTP requests. Hijacked WebSocket
// connections are not tracked by http.Server and end with the process.
func (s *Server) Shutdown(ctx context.Context) error {
	s.AppLogger.Info("Attempting graceful server shutdown...",
		zap.Int("open_websockets", s.hub.ConnectionCount()))
	if s.auditJob != nil {
		s.auditJob.Stop()
	}
	return s.httpServer.Shutdown(ctx)
}

// allowAllOrigins reports whether the origin list is empty or contains "*".
func allowAllOrigins(origins []string) bool {
	if len(origins) == 0 {
		return true
	}
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}
