package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/researchmatch/identity-service/internal/api/handler"
	"github.com/researchmatch/identity-service/internal/api/middleware"
	"github.com/researchmatch/identity-service/internal/core/crypto"
	"github.com/researchmatch/identity-service/internal/core/domain"
	"github.com/researchmatch/identity-service/internal/core/service"
	"github.com/researchmatch/identity-service/internal/infrastructure/config"
	mongodb "github.com/researchmatch/identity-service/internal/infrastructure/db/mongo"
	redisdb "github.com/researchmatch/identity-service/internal/infrastructure/db/redis"
	healthhandlers "github.com/researchmatch/identity-service/internal/infrastructure/http/handlers"
)

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(db *mongo.Database, rdb *redis.Client, cfg *config.Config, log zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())
	e.Use(echoprometheus.NewMiddleware("identity"))

	// --- Dependencies ---
	accountRepo := mongodb.NewAccountRepository(db)
	auditRepo := mongodb.NewAuditRepository(db)
	throttle := redisdb.NewLoginThrottle(rdb, cfg.Throttle.Limit, cfg.Throttle.Window)
	hasher := crypto.NewPasswordHasher(cfg.BcryptCost)
	tokens := service.NewTokenService(cfg.JWTSecret)
	identity := service.NewIdentityService(accountRepo, auditRepo, tokens, hasher, throttle, cfg.TokenTTL, log)

	authHandler := handler.NewAuthHandler(identity)
	authMiddleware := middleware.Auth(tokens)

	// --- Auth routes ---
	e.POST("/auth/register", authHandler.Register)
	e.POST("/auth/login", authHandler.Login)
	e.GET("/auth/me", authHandler.Me)
	e.GET("/auth/logins", authHandler.RecentLogins,
		authMiddleware, middleware.RBAC(domain.RoleFaculty, domain.RoleStudent))

	// --- Observability ---
	e.GET("/metrics", echoprometheus.NewHandler())

	// --- Health probes (no auth required) ---
	healthHandler := healthhandlers.NewHealthHandler()
	healthDepsHandler := healthhandlers.NewHealthDependenciesHandler(db, rdb)

	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?

	return e
}
