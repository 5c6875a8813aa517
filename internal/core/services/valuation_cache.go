package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	portscache "github.com/SscSPs/portfolio_ledger/internal/core/ports/cache"
	"github.com/SscSPs/portfolio_ledger/internal/middleware"
)

const (
	// DefaultHoldingsTTL bounds staleness of per-account valuations.
	DefaultHoldingsTTL = 180 * time.Second
	// DefaultAllocationTTL bounds staleness of allocation and distribution.
	DefaultAllocationTTL = 300 * time.Second
	// DefaultLivePriceTTL bounds staleness of the current-price endpoint.
	DefaultLivePriceTTL = 60 * time.Second
)

// HoldingsKey is the cache key of one account valuation.
func HoldingsKey(userID, accountID, quote string) string {
	return "valuation:holdings:" + userID + ":" + accountID + ":" + strings.ToUpper(quote)
}

// AllocationKey is the cache key of a user's asset allocation.
func AllocationKey(userID, quote string) string {
	return "valuation:allocation:" + userID + ":" + strings.ToUpper(quote)
}

// DistributionKey is the cache key of a user's platform distribution.
func DistributionKey(userID, quote string) string {
	return "valuation:distribution:" + userID + ":" + strings.ToUpper(quote)
}

// LivePriceKey is the cache key of the current price of an asset.
func LivePriceKey(assetID, quote string) string {
	return "price:live:" + assetID + ":" + strings.ToUpper(quote)
}

// ValuationCache stores valuation results as JSON in a key-value store and
// drops them when the ledger changes.
type ValuationCache struct {
	store         portscache.Store
	holdingsTTL   time.Duration
	allocationTTL time.Duration
	livePriceTTL  time.Duration
}

// NewValuationCache creates a cache over store. Zero TTLs take the defaults.
func NewValuationCache(store portscache.Store, holdingsTTL, allocationTTL, livePriceTTL time.Duration) *ValuationCache {
	if holdingsTTL <= 0 {
		holdingsTTL = DefaultHoldingsTTL
	}
	if allocationTTL <= 0 {
		allocationTTL = DefaultAllocationTTL
	}
	if livePriceTTL <= 0 {
		livePriceTTL = DefaultLivePriceTTL
	}
	return &ValuationCache{store: store, holdingsTTL: holdingsTTL, allocationTTL: allocationTTL, livePriceTTL: livePriceTTL}
}

var _ CacheInvalidator = (*ValuationCache)(nil)

// InvalidateAccounts drops the valuations of the touched accounts in every
// quote currency, and the user's portfolio-wide views.
func (c *ValuationCache) InvalidateAccounts(ctx context.Context, userID string, accountIDs []string) {
	if c == nil || c.store == nil {
		return
	}
	removed := 0
	for _, accountID := range accountIDs {
		removed += c.store.DeleteByPattern(ctx, HoldingsKey(userID, accountID, "*"))
	}
	removed += c.store.DeleteByPattern(ctx, AllocationKey(userID, "*"))
	removed += c.store.DeleteByPattern(ctx, DistributionKey(userID, "*"))
	middleware.GetLoggerFromCtx(ctx).Debug("Valuation cache invalidated",
		slog.String("user_id", userID),
		slog.Int("accounts", len(accountIDs)),
		slog.Int("removed", removed))
}

func (c *ValuationCache) get(ctx context.Context, key string, out any) bool {
	if c == nil || c.store == nil {
		return false
	}
	raw, ok := c.store.Get(ctx, key)
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		middleware.GetLoggerFromCtx(ctx).Warn("Dropping undecodable cache entry", slog.String("key", key), slog.String("error", err.Error()))
		return false
	}
	return true
}

func (c *ValuationCache) set(ctx context.Context, key string, value any, ttl time.Duration) {
	if c == nil || c.store == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		middleware.GetLoggerFromCtx(ctx).Warn("Failed to encode cache entry", slog.String("key", key), slog.String("error", err.Error()))
		return
	}
	c.store.SetEx(ctx, key, raw, ttl)
}
