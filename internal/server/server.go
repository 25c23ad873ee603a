package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/foodgram-dev/foodgram/backend/config"
	"github.com/foodgram-dev/foodgram/backend/internal/api"
	"github.com/foodgram-dev/foodgram/backend/internal/middleware"
	"github.com/foodgram-dev/foodgram/backend/internal/service"
)

// Options carries the optional collaborators of the server
type Options struct {
	// Images stores recipe images and avatars; nil rejects image uploads
	Images service.ImageStore
	// Redis enables the recipe creation rate limit when set
	Redis *redis.Client
}

// Server represents the HTTP server
type Server struct {
	cfg    *config.Config
	router *gin.Engine
	http   *http.Server
	db     *gorm.DB
}

// New wires services and handlers into a new server instance
func New(cfg *config.Config, db *gorm.DB, opts Options) *Server {
	router := gin.New()
	router.Use(middleware.Recovery(), middleware.RequestLogger(), middleware.CORS(cfg.CORSOrigins))

	authService := service.NewAuthService(db, cfg.JWTSecret, cfg.TokenTTL)
	recipeService := service.NewRecipeService(db, opts.Images)
	relationService := service.NewRelationService(db)

	requireAuth := middleware.AuthMiddleware(authService)
	optionalAuth := middleware.OptionalAuth(authService)

	recipeHandler := api.NewRecipeHandler(recipeService, relationService, service.NewShoppingListService(db), cfg.PublicBaseURL, cfg.PageSize)
	if opts.Redis != nil && cfg.RecipeRateLimit > 0 {
		recipeHandler.WithCreateRateLimit(middleware.NewRecipeCreationRateLimiter(opts.Redis, cfg.RecipeRateLimit))
	} else {
		slog.Info("recipe creation rate limit disabled")
	}

	api.NewHealthHandler(db, opts.Redis).RegisterRoutes(router)
	recipeHandler.RegisterShortLinkRoutes(router)

	v1 := router.Group("/api")
	api.NewAuthHandler(authService).RegisterRoutes(v1, requireAuth)
	api.NewUserHandler(authService, service.NewUserService(db, opts.Images), relationService, cfg.PageSize).
		RegisterRoutes(v1, optionalAuth, requireAuth)
	api.NewCatalogHandler(service.NewCatalogService(db)).RegisterRoutes(v1, requireAuth, middleware.AdminOnly())
	recipeHandler.RegisterRoutes(v1, optionalAuth, requireAuth)

	return &Server{
		cfg:    cfg,
		router: router,
		db:     db,
	}
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on the configured address and blocks until the server stops
func (s *Server) Start() error {
	s.http = &http.Server{
		Addr:              s.cfg.Addr(),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("starting server", "addr", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http != nil {
		return s.http.Shutdown(ctx)
	}
	return nil
}
