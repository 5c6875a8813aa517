// Package binance is the crypto quote provider backed by the Binance public market-data API.
package binance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/SscSPs/portfolio_ledger/internal/adapters/providers"
	"github.com/SscSPs/portfolio_ledger/internal/core/domain"
	portsproviders "github.com/SscSPs/portfolio_ledger/internal/core/ports/providers"
	"github.com/SscSPs/portfolio_ledger/internal/middleware"
	"github.com/shopspring/decimal"
)

const (
	sourceName = "binance"
	// quoteCurrency is the settlement asset of every symbol requested from this provider.
	quoteCurrency = "USDT"
	klineLimit    = 1000
)

// Client implements portsproviders.PriceProvider for crypto pairs.
type Client struct {
	baseURL string
	http    *http.Client
}

var _ portsproviders.PriceProvider = (*Client)(nil)

// NewClient creates a Binance client.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    providers.NewHTTPClient(timeout),
	}
}

func (c *Client) Kind() domain.ProviderKind { return domain.ProviderCrypto }

func (c *Client) Source() string { return sourceName }

type ticker struct {
	Symbol    string `json:"symbol"`
	LastPrice string `json:"lastPrice"`
	CloseTime int64  `json:"closeTime"`
}

func (t ticker) toQuote() (domain.Quote, bool) {
	price, err := decimal.NewFromString(t.LastPrice)
	if err != nil || !price.IsPositive() {
		return domain.Quote{}, false
	}
	asOf := time.Now().UTC()
	if t.CloseTime > 0 {
		asOf = time.UnixMilli(t.CloseTime).UTC()
	}
	return domain.Quote{Symbol: t.Symbol, Close: price, Currency: quoteCurrency, Source: sourceName, AsOf: asOf}, true
}

// GetQuote requests all symbols in one 24hr ticker call. Binance rejects the
// whole batch when one symbol is unknown, so a 400 falls back to one call per symbol.
func (c *Client) GetQuote(ctx context.Context, symbols []string) map[string]domain.Quote {
	if len(symbols) == 0 {
		return nil
	}
	logger := middleware.GetLoggerFromCtx(ctx).With(slog.String("provider", sourceName))

	tickers, err := c.batchTickers(ctx, symbols)
	var statusErr *providers.StatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusBadRequest {
		logger.Warn("Batch ticker rejected, retrying per symbol", slog.Int("symbols", len(symbols)))
		tickers, err = c.singleTickers(ctx, symbols), nil
	}
	if err != nil {
		logger.Warn("Ticker request failed", slog.String("error", err.Error()))
		return nil
	}

	out := make(map[string]domain.Quote, len(tickers))
	for _, t := range tickers {
		if q, ok := t.toQuote(); ok {
			out[q.Symbol] = q
		}
	}
	return out
}

func (c *Client) batchTickers(ctx context.Context, symbols []string) ([]ticker, error) {
	encoded, err := json.Marshal(symbols)
	if err != nil {
		return nil, err
	}
	params := url.Values{}
	params.Set("symbols", string(encoded))
	params.Set("type", "MINI")

	var tickers []ticker
	if err := providers.GetJSON(ctx, c.http, c.baseURL+"/api/v3/ticker/24hr?"+params.Encode(), &tickers); err != nil {
		return nil, err
	}
	return tickers, nil
}

func (c *Client) singleTickers(ctx context.Context, symbols []string) []ticker {
	logger := middleware.GetLoggerFromCtx(ctx)
	out := make([]ticker, 0, len(symbols))
	for _, symbol := range symbols {
		params := url.Values{}
		params.Set("symbol", symbol)
		params.Set("type", "MINI")

		var t ticker
		if err := providers.GetJSON(ctx, c.http, c.baseURL+"/api/v3/ticker/24hr?"+params.Encode(), &t); err != nil {
			logger.Warn("Symbol not quoted", slog.String("provider", sourceName), slog.String("symbol", symbol), slog.String("error", err.Error()))
			continue
		}
		out = append(out, t)
	}
	return out
}

// GetHistorical returns daily kline closes within [start, end], oldest first.
func (c *Client) GetHistorical(ctx context.Context, symbol string, start, end time.Time) []domain.Quote {
	logger := middleware.GetLoggerFromCtx(ctx).With(slog.String("provider", sourceName), slog.String("symbol", symbol))

	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("interval", "1d")
	params.Set("startTime", strconv.FormatInt(start.UnixMilli(), 10))
	params.Set("endTime", strconv.FormatInt(end.UnixMilli(), 10))
	params.Set("limit", strconv.Itoa(klineLimit))

	var klines [][]json.RawMessage
	if err := providers.GetJSON(ctx, c.http, c.baseURL+"/api/v3/klines?"+params.Encode(), &klines); err != nil {
		logger.Warn("Kline request failed", slog.String("error", err.Error()))
		return nil
	}

	out := make([]domain.Quote, 0, len(klines))
	for _, k := range klines {
		q, err := parseKline(symbol, k)
		if err != nil {
			logger.Debug("Skipping kline", slog.String("error", err.Error()))
			continue
		}
		out = append(out, q)
	}
	return out
}

// parseKline reads open time (index 0) and close (index 4) from a kline row.
func parseKline(symbol string, row []json.RawMessage) (domain.Quote, error) {
	if len(row) < 5 {
		return domain.Quote{}, fmt.Errorf("kline has %d fields", len(row))
	}
	var openTime int64
	if err := json.Unmarshal(row[0], &openTime); err != nil {
		return domain.Quote{}, fmt.Errorf("open time: %w", err)
	}
	var closeStr string
	if err := json.Unmarshal(row[4], &closeStr); err != nil {
		return domain.Quote{}, fmt.Errorf("close: %w", err)
	}
	price, err := decimal.NewFromString(closeStr)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("close: %w", err)
	}
	if !price.IsPositive() {
		return domain.Quote{}, errors.New("non-positive close")
	}
	return domain.Quote{
		Symbol:   symbol,
		Close:    price,
		Currency: quoteCurrency,
		Source:   sourceName,
		AsOf:     time.UnixMilli(openTime).UTC(),
	}, nil
}
