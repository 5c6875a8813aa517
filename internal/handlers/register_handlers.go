package handlers

import (
	"fmt"
	"net/http"

	"github.com/SscSPs/portfolio_ledger/cmd/docs"
	portssvc "github.com/SscSPs/portfolio_ledger/internal/core/ports/services"
	"github.com/SscSPs/portfolio_ledger/internal/middleware"
	"github.com/SscSPs/portfolio_ledger/internal/platform/config"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

// RegisterRoutes sets up all application routes, injecting dependencies using interfaces
func RegisterRoutes(
	r *gin.Engine,
	cfg *config.Config,
	services *portssvc.ServiceContainer,
) error {
	r.GET("/health", getHealth)

	if err := setupAPIV1Routes(r, cfg, services); err != nil {
		return err
	}

	setupSwaggerRoutes(r, cfg)
	return nil
}

// getHealth godoc
// @Summary Liveness probe
// @Tags root
// @Produce plain
// @Success 200 {string} string "OK"
// @Router /health [get]
func getHealth(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

// setupAPIV1Routes configures the /api/v1 group and delegates to specific route registrations
func setupAPIV1Routes(
	r *gin.Engine,
	cfg *config.Config,
	services *portssvc.ServiceContainer,
) error {
	rate, err := limiter.NewRateFromFormatted(cfg.RateLimit)
	if err != nil {
		return fmt.Errorf("invalid RATE_LIMIT %q: %w", cfg.RateLimit, err)
	}
	apiLimiter := limiter.New(memory.NewStore(), rate)

	// Auth runs first so the limiter can key on the user id.
	v1 := r.Group("/api/v1",
		middleware.AuthMiddleware(cfg.JWTSecret, cfg.JWTIssuer),
		middleware.RateLimit(apiLimiter),
	)

	RegisterLedgerRoutes(v1, services.Ledger)
	RegisterValuationRoutes(v1, services.Valuation)
	RegisterSnapshotRoutes(v1, services.Snapshot)
	RegisterMetricsRoutes(v1, services.Metrics)
	return nil
}

// setupSwaggerRoutes configures the swagger documentation routes
func setupSwaggerRoutes(r *gin.Engine, cfg *config.Config) {
	if cfg.IsProduction {
		//no swagger in prod
		return
	}
	docs.SwaggerInfo.BasePath = "/api/v1"
	swagger := r.Group("/swagger")
	swagger.GET("/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}
