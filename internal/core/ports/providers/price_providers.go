package providers

import (
	"context"
	"time"

	"github.com/SscSPs/portfolio_ledger/internal/core/domain"
)

// PriceProvider pulls quotes from an external market-data API.
//
// Price unavailability is expected: implementations return nil on any network,
// HTTP or decoding failure instead of an error, and log the cause themselves.
type PriceProvider interface {
	// Kind tags the capability of the provider (stock/fx or crypto).
	Kind() domain.ProviderKind

	// Source is the name persisted alongside fetched prices.
	Source() string

	// GetQuote returns the latest quote per requested symbol. Symbols the
	// provider does not know are absent from the map.
	GetQuote(ctx context.Context, symbols []string) map[string]domain.Quote

	// GetHistorical returns daily closes for symbol within [start, end], oldest first.
	GetHistorical(ctx context.Context, symbol string, start, end time.Time) []domain.Quote
}

// FxRateSource is one independent buy/sell exchange-rate source.
type FxRateSource interface {
	Name() string

	// FetchRate returns the source's current rate for the pair.
	FetchRate(ctx context.Context, base, quote string) (*domain.FxRate, error)
}

// Set groups the market-data adapters handed to the service container.
type Set struct {
	StockFx   PriceProvider
	Crypto    PriceProvider
	FxSources []FxRateSource
}
