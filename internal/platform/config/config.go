package config

import (
	"encoding/json"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// FxSourceConfig describes one JSON FX rate endpoint. The URL may contain
// {base} and {quote} placeholders; the paths are JSONPath expressions.
type FxSourceConfig struct {
	Name       string `json:"name"`
	URL        string `json:"url"`
	BuyPath    string `json:"buyPath"`
	SellPath   string `json:"sellPath"`
	BasePath   string `json:"basePath"`
	QuotePath  string `json:"quotePath"`
	RateAtPath string `json:"rateAtPath"`
}

// Config holds application configuration.
type Config struct {
	DatabaseURL   string
	Port          string
	IsProduction  bool
	EnableDBCheck bool
	JWTSecret     string
	JWTIssuer     string

	// Market data
	TwelveDataAPIKey  string
	TwelveDataBaseURL string
	BinanceBaseURL    string
	ProviderTimeout   time.Duration
	FxSources         []FxSourceConfig

	// Caching
	PriceFreshnessWindow time.Duration
	LivePriceTTL         time.Duration
	HoldingsCacheTTL     time.Duration
	AllocationCacheTTL   time.Duration
	CacheSize            int

	// Background jobs
	SnapshotSyncTime  string // HH:MM in SchedulerTimezone
	PriceSyncInterval time.Duration
	SchedulerTimezone string

	RateLimit          string // ulule/limiter format, e.g. "100-M"
	CORSAllowedOrigins []string
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	viper.SetDefault("PGSQL_URL", "")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("IS_PRODUCTION", false)
	viper.SetDefault("ENABLE_DB_CHECK", false)
	viper.SetDefault("JWT_SECRET", "a-very-secret-key-should-be-longer-and-random")
	viper.SetDefault("JWT_ISSUER", "portfolio-ledger")
	viper.SetDefault("TWELVEDATA_API_KEY", "")
	viper.SetDefault("TWELVEDATA_BASE_URL", "https://api.twelvedata.com")
	viper.SetDefault("BINANCE_BASE_URL", "https://api.binance.com")
	viper.SetDefault("PROVIDER_TIMEOUT", "10s")
	viper.SetDefault("FX_SOURCES", "")
	viper.SetDefault("PRICE_FRESHNESS_WINDOW", "30m")
	viper.SetDefault("LIVE_PRICE_TTL", "60s")
	viper.SetDefault("HOLDINGS_CACHE_TTL", "180s")
	viper.SetDefault("ALLOCATION_CACHE_TTL", "300s")
	viper.SetDefault("CACHE_SIZE", 10000)
	viper.SetDefault("SNAPSHOT_SYNC_TIME", "23:55")
	viper.SetDefault("PRICE_SYNC_INTERVAL", "15m")
	viper.SetDefault("SCHEDULER_TIMEZONE", "UTC")
	viper.SetDefault("RATE_LIMIT", "300-M")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")

	viper.AutomaticEnv()

	cfg := &Config{}

	cfg.DatabaseURL = viper.GetString("PGSQL_URL")
	if cfg.DatabaseURL == "" {
		log.Println("Warning: PGSQL_URL environment variable not set.")
	}

	cfg.Port = viper.GetString("PORT")
	cfg.IsProduction = viper.GetBool("IS_PRODUCTION")
	cfg.EnableDBCheck = viper.GetBool("ENABLE_DB_CHECK")

	cfg.JWTSecret = viper.GetString("JWT_SECRET")
	if cfg.JWTSecret == "a-very-secret-key-should-be-longer-and-random" {
		log.Println("Warning: JWT_SECRET environment variable not set. Using default insecure key.")
	}
	cfg.JWTIssuer = viper.GetString("JWT_ISSUER")

	cfg.TwelveDataAPIKey = viper.GetString("TWELVEDATA_API_KEY")
	if cfg.TwelveDataAPIKey == "" {
		log.Println("Warning: TWELVEDATA_API_KEY not set. Stock and FX quotes will be unavailable.")
	}
	cfg.TwelveDataBaseURL = viper.GetString("TWELVEDATA_BASE_URL")
	cfg.BinanceBaseURL = viper.GetString("BINANCE_BASE_URL")
	cfg.ProviderTimeout = durationOr("PROVIDER_TIMEOUT", 10*time.Second)

	if raw := viper.GetString("FX_SOURCES"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &cfg.FxSources); err != nil {
			log.Printf("Warning: Invalid value for FX_SOURCES (%v). No blended FX sources configured.\n", err)
			cfg.FxSources = nil
		}
	}

	cfg.PriceFreshnessWindow = durationOr("PRICE_FRESHNESS_WINDOW", 30*time.Minute)
	cfg.LivePriceTTL = durationOr("LIVE_PRICE_TTL", 60*time.Second)
	cfg.HoldingsCacheTTL = durationOr("HOLDINGS_CACHE_TTL", 180*time.Second)
	cfg.AllocationCacheTTL = durationOr("ALLOCATION_CACHE_TTL", 300*time.Second)
	cfg.CacheSize = viper.GetInt("CACHE_SIZE")
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 10000
	}

	cfg.SnapshotSyncTime = viper.GetString("SNAPSHOT_SYNC_TIME")
	if _, err := time.Parse("15:04", cfg.SnapshotSyncTime); err != nil {
		log.Printf("Warning: Invalid value for SNAPSHOT_SYNC_TIME ('%s'). Defaulting to 23:55.\n", cfg.SnapshotSyncTime)
		cfg.SnapshotSyncTime = "23:55"
	}
	cfg.PriceSyncInterval = durationOr("PRICE_SYNC_INTERVAL", 15*time.Minute)
	cfg.SchedulerTimezone = viper.GetString("SCHEDULER_TIMEZONE")
	if _, err := time.LoadLocation(cfg.SchedulerTimezone); err != nil {
		log.Printf("Warning: Unknown SCHEDULER_TIMEZONE ('%s'). Defaulting to UTC.\n", cfg.SchedulerTimezone)
		cfg.SchedulerTimezone = "UTC"
	}

	cfg.RateLimit = viper.GetString("RATE_LIMIT")
	for _, origin := range strings.Split(viper.GetString("CORS_ALLOWED_ORIGINS"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, origin)
		}
	}

	return cfg, nil
}

func durationOr(key string, fallback time.Duration) time.Duration {
	raw := viper.GetString(key)
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		if raw != "" {
			log.Printf("Warning: Invalid value for %s ('%s'). Defaulting to %s.\n", key, raw, fallback.String())
		}
		return fallback
	}
	return d
}
