package router

import (
	"tillkeeper/internal/config"
	"tillkeeper/internal/handler"
	"tillkeeper/internal/infra"
	"tillkeeper/internal/middleware"
	"tillkeeper/internal/service"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Deps are the already-built dependencies the HTTP layer needs.
// DB, RDB and SMTPBreaker may be nil; they only feed the health check.
type Deps struct {
	Registers   service.CashRegisterService
	DB          *gorm.DB
	RDB         *redis.Client
	SMTPBreaker *infra.CircuitBreaker
}

// New returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, deps Deps) (*gin.Engine, error) {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	limiter, err := middleware.NewRateLimiter(cfg.RateLimit)
	if err != nil {
		return nil, err
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimit(limiter))

	registersH := handler.NewCashRegisterHandler(deps.Registers)

	// Public
	r.GET("/health", handler.Health(deps.DB, deps.RDB, deps.SMTPBreaker))

	anyRole := middleware.RequireRole(middleware.RoleCashier, middleware.RoleSupervisor, middleware.RoleAdmin)
	managers := middleware.RequireRole(middleware.RoleSupervisor, middleware.RoleAdmin)

	v1 := r.Group("/v1", middleware.JWTAuth(cfg.JWTSecret))
	{
		regs := v1.Group("/cash-registers")
		{
			regs.GET("/active", anyRole, registersH.Active)
			regs.POST("/open", anyRole, registersH.Open)
			regs.PUT("/:id/close", anyRole, registersH.Close)
			regs.PUT("/:id/expire", managers, registersH.Expire)
			regs.POST("/:id/transactions", anyRole, registersH.RecordTransaction)
			regs.GET("/:id", anyRole, registersH.Get)
			regs.GET("", managers, registersH.History)
		}
	}

	// Swagger UI, outside production only
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r, nil
}
