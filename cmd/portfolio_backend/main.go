package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SscSPs/portfolio_ledger/internal/adapters/cache"
	"github.com/SscSPs/portfolio_ledger/internal/adapters/providers/binance"
	"github.com/SscSPs/portfolio_ledger/internal/adapters/providers/fxsource"
	"github.com/SscSPs/portfolio_ledger/internal/adapters/providers/twelvedata"
	"github.com/SscSPs/portfolio_ledger/internal/core/ports/providers"
	"github.com/SscSPs/portfolio_ledger/internal/core/services"
	"github.com/SscSPs/portfolio_ledger/internal/handlers"
	"github.com/SscSPs/portfolio_ledger/internal/middleware"
	"github.com/SscSPs/portfolio_ledger/internal/platform/config"
	"github.com/SscSPs/portfolio_ledger/internal/repositories/database/pgsql"
	"github.com/SscSPs/portfolio_ledger/pkg/database"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	migrate "github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// @title Portfolio Ledger API
// @version 1.0
// @description Multi-asset portfolio ledger, valuation and daily snapshot service.

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @security BearerAuth
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Amounts are serialized as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbPool, err := database.NewPgxPool(ctx, cfg.DatabaseURL, cfg.EnableDBCheck)
	if err != nil {
		logger.Error("Failed to initialize database pool", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer database.ClosePgxPool(dbPool)
	logger.Info("Database connection pool established.")

	if err := runMigrations(logger, cfg.DatabaseURL); err != nil {
		logger.Error("Failed to apply migrations", slog.String("error", err.Error()))
		os.Exit(1)
	}

	market, err := newMarketData(cfg)
	if err != nil {
		logger.Error("Failed to configure market data", slog.String("error", err.Error()))
		os.Exit(1)
	}

	repos := pgsql.NewRepositoryProvider(dbPool)
	store := cache.NewLRUStore(cfg.CacheSize)
	serviceContainer := services.NewServiceContainer(cfg, repos, market, store)

	runner, err := newScheduler(cfg, logger, repos.UserRepo, repos.AssetRepo, serviceContainer.Ledger, serviceContainer.Price, serviceContainer.Snapshot)
	if err != nil {
		logger.Error("Failed to configure scheduler", slog.String("error", err.Error()))
		os.Exit(1)
	}
	runner.Start()
	defer runner.Stop()

	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.StructuredLoggingMiddleware(logger), gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSAllowedOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	if err := r.SetTrustedProxies(nil); err != nil {
		logger.Error("Failed to set trusted proxies", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := handlers.RegisterRoutes(r, cfg, serviceContainer); err != nil {
		logger.Error("Failed to register routes", slog.String("error", err.Error()))
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("Server starting", slog.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed to run", slog.String("error", err.Error()))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", slog.String("error", err.Error()))
	}
}

// runMigrations applies every pending migration under ./migrations.
func runMigrations(logger *slog.Logger, databaseURL string) error {
	logger.Info("Running database migrations...")
	// Using pgx/v5/stdlib driver to be compatible with the main pool
	migrationDB, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := migrationDB.Close(); cerr != nil {
			logger.Error("Error closing migration DB connection", slog.String("error", cerr.Error()))
		}
	}()
	if err := migrationDB.Ping(); err != nil {
		return err
	}

	driver, err := postgres.WithInstance(migrationDB, &postgres.Config{})
	if err != nil {
		return err
	}
	m, err := migrate.NewWithDatabaseInstance("file://migrations", "postgres", driver)
	if err != nil {
		return err
	}

	upErr := m.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return upErr
	}
	if sourceErr, dbErr := m.Close(); sourceErr != nil || dbErr != nil {
		return errors.Join(sourceErr, dbErr)
	}

	if errors.Is(upErr, migrate.ErrNoChange) {
		logger.Info("No new migrations to apply.")
	} else {
		logger.Info("Database migrations applied successfully.")
	}
	return nil
}

func newMarketData(cfg *config.Config) (providers.Set, error) {
	fxSources, err := fxsource.NewAll(cfg.FxSources, cfg.ProviderTimeout)
	if err != nil {
		return providers.Set{}, err
	}
	return providers.Set{
		StockFx:   twelvedata.NewClient(cfg.TwelveDataBaseURL, cfg.TwelveDataAPIKey, cfg.ProviderTimeout),
		Crypto:    binance.NewClient(cfg.BinanceBaseURL, cfg.ProviderTimeout),
		FxSources: fxSources,
	}, nil
}
