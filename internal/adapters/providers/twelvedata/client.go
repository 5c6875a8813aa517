// Package twelvedata is the stock and FX quote provider backed by the Twelve Data REST API.
package twelvedata

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/SscSPs/portfolio_ledger/internal/adapters/providers"
	"github.com/SscSPs/portfolio_ledger/internal/core/domain"
	portsproviders "github.com/SscSPs/portfolio_ledger/internal/core/ports/providers"
	"github.com/SscSPs/portfolio_ledger/internal/middleware"
	"github.com/shopspring/decimal"
)

const sourceName = "twelvedata"

// Client implements portsproviders.PriceProvider for stocks, ETFs, commodities and FX pairs.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

var _ portsproviders.PriceProvider = (*Client)(nil)

// NewClient creates a Twelve Data client.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    providers.NewHTTPClient(timeout),
	}
}

func (c *Client) Kind() domain.ProviderKind { return domain.ProviderStockFx }

func (c *Client) Source() string { return sourceName }

type quoteItem struct {
	Symbol    string `json:"symbol"`
	Close     string `json:"close"`
	Currency  string `json:"currency"`
	Timestamp int64  `json:"timestamp"`
	Status    string `json:"status"`
	Code      int    `json:"code"`
}

func (q quoteItem) failed() bool { return q.Status == "error" || q.Code != 0 }

// GetQuote calls /quote. A single symbol answers with one object, several with
// an object keyed by symbol. Failed entries are skipped.
func (c *Client) GetQuote(ctx context.Context, symbols []string) map[string]domain.Quote {
	if len(symbols) == 0 {
		return nil
	}
	logger := middleware.GetLoggerFromCtx(ctx).With(slog.String("provider", sourceName))

	params := url.Values{}
	params.Set("symbol", strings.Join(symbols, ","))
	params.Set("apikey", c.apiKey)

	var raw json.RawMessage
	if err := providers.GetJSON(ctx, c.http, c.baseURL+"/quote?"+params.Encode(), &raw); err != nil {
		logger.Warn("Quote request failed", slog.String("error", err.Error()), slog.Int("symbols", len(symbols)))
		return nil
	}

	items, err := decodeQuotes(raw, len(symbols) == 1)
	if err != nil {
		logger.Warn("Quote response not understood", slog.String("error", err.Error()))
		return nil
	}

	out := make(map[string]domain.Quote, len(items))
	for key, item := range items {
		if item.failed() {
			logger.Warn("Symbol not quoted", slog.String("symbol", key))
			continue
		}
		price, err := decimal.NewFromString(item.Close)
		if err != nil {
			continue
		}
		symbol := item.Symbol
		if symbol == "" {
			symbol = key
		}
		asOf := time.Now().UTC()
		if item.Timestamp > 0 {
			asOf = time.Unix(item.Timestamp, 0).UTC()
		}
		out[symbol] = domain.Quote{
			Symbol:   symbol,
			Close:    price,
			Currency: strings.ToUpper(item.Currency),
			Source:   sourceName,
			AsOf:     asOf,
		}
	}
	return out
}

func decodeQuotes(raw json.RawMessage, single bool) (map[string]quoteItem, error) {
	if single {
		var item quoteItem
		if err := json.Unmarshal(raw, &item); err != nil {
			return nil, err
		}
		return map[string]quoteItem{item.Symbol: item}, nil
	}
	var items map[string]quoteItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, err
	}
	return items, nil
}

type timeSeries struct {
	Meta struct {
		Symbol   string `json:"symbol"`
		Currency string `json:"currency"`
	} `json:"meta"`
	Values []struct {
		Datetime string `json:"datetime"`
		Close    string `json:"close"`
	} `json:"values"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// GetHistorical calls /time_series with a daily interval, oldest first.
func (c *Client) GetHistorical(ctx context.Context, symbol string, start, end time.Time) []domain.Quote {
	logger := middleware.GetLoggerFromCtx(ctx).With(slog.String("provider", sourceName), slog.String("symbol", symbol))

	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("interval", "1day")
	params.Set("start_date", start.UTC().Format(domain.DateLayout))
	params.Set("end_date", end.UTC().Format(domain.DateLayout))
	params.Set("order", "ASC")
	params.Set("apikey", c.apiKey)

	var series timeSeries
	if err := providers.GetJSON(ctx, c.http, c.baseURL+"/time_series?"+params.Encode(), &series); err != nil {
		logger.Warn("Time series request failed", slog.String("error", err.Error()))
		return nil
	}
	if series.Status == "error" {
		logger.Warn("Time series rejected", slog.String("message", series.Message))
		return nil
	}

	out := make([]domain.Quote, 0, len(series.Values))
	for _, v := range series.Values {
		day, err := time.Parse(domain.DateLayout, v.Datetime)
		if err != nil {
			continue
		}
		price, err := decimal.NewFromString(v.Close)
		if err != nil || !price.IsPositive() {
			continue
		}
		out = append(out, domain.Quote{
			Symbol:   symbol,
			Close:    price,
			Currency: strings.ToUpper(series.Meta.Currency),
			Source:   sourceName,
			AsOf:     day,
		})
	}
	return out
}
