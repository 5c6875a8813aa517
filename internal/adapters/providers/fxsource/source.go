// Package fxsource adapts arbitrary JSON FX endpoints into buy/sell rate sources.
// Each source is described by a URL template and JSONPath expressions, so new
// banks or exchanges can be added through configuration alone.
package fxsource

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/SscSPs/portfolio_ledger/internal/adapters/providers"
	"github.com/SscSPs/portfolio_ledger/internal/core/domain"
	portsproviders "github.com/SscSPs/portfolio_ledger/internal/core/ports/providers"
	"github.com/SscSPs/portfolio_ledger/internal/platform/config"
	"github.com/shopspring/decimal"
)

// Source is one configured FX endpoint.
type Source struct {
	cfg  config.FxSourceConfig
	http *http.Client
	now  func() time.Time
}

var _ portsproviders.FxRateSource = (*Source)(nil)

// New creates a source from its configuration.
func New(cfg config.FxSourceConfig, timeout time.Duration) (*Source, error) {
	if cfg.Name == "" || cfg.URL == "" || cfg.BuyPath == "" {
		return nil, fmt.Errorf("fx source %q needs name, url and buyPath", cfg.Name)
	}
	return &Source{cfg: cfg, http: providers.NewHTTPClient(timeout), now: time.Now}, nil
}

// NewAll builds every configured source, skipping none.
func NewAll(cfgs []config.FxSourceConfig, timeout time.Duration) ([]portsproviders.FxRateSource, error) {
	out := make([]portsproviders.FxRateSource, 0, len(cfgs))
	for _, c := range cfgs {
		s, err := New(c, timeout)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (s *Source) Name() string { return s.cfg.Name }

// FetchRate fetches the configured URL for the pair and extracts the rate fields.
func (s *Source) FetchRate(ctx context.Context, base, quote string) (*domain.FxRate, error) {
	base, quote = strings.ToUpper(base), strings.ToUpper(quote)
	addr := strings.NewReplacer("{base}", base, "{quote}", quote).Replace(s.cfg.URL)

	var doc any
	if err := providers.GetJSON(ctx, s.http, addr, &doc); err != nil {
		return nil, fmt.Errorf("%s: %w", s.cfg.Name, err)
	}

	buy, err := decimalAt(s.cfg.BuyPath, doc)
	if err != nil {
		return nil, fmt.Errorf("%s buy rate: %w", s.cfg.Name, err)
	}
	sell := buy
	if s.cfg.SellPath != "" {
		if sell, err = decimalAt(s.cfg.SellPath, doc); err != nil {
			return nil, fmt.Errorf("%s sell rate: %w", s.cfg.Name, err)
		}
	}

	rate := &domain.FxRate{
		Base:     base,
		Quote:    quote,
		BuyRate:  buy,
		SellRate: sell,
		RateAt:   s.now().UTC(),
		Source:   s.cfg.Name,
	}
	if s.cfg.BasePath != "" {
		if rate.Base, err = stringAt(s.cfg.BasePath, doc); err != nil {
			return nil, fmt.Errorf("%s base: %w", s.cfg.Name, err)
		}
		rate.Base = strings.ToUpper(rate.Base)
	}
	if s.cfg.QuotePath != "" {
		if rate.Quote, err = stringAt(s.cfg.QuotePath, doc); err != nil {
			return nil, fmt.Errorf("%s quote: %w", s.cfg.Name, err)
		}
		rate.Quote = strings.ToUpper(rate.Quote)
	}
	if s.cfg.RateAtPath != "" {
		if at, err := timeAt(s.cfg.RateAtPath, doc); err == nil {
			rate.RateAt = at
		}
	}
	return rate, nil
}

// lookup evaluates path and unwraps single-element results, since JSONPath
// filters and slices always return lists.
func lookup(path string, doc any) (any, error) {
	v, err := jsonpath.Get(path, doc)
	if err != nil {
		return nil, err
	}
	if list, ok := v.([]any); ok {
		if len(list) == 0 {
			return nil, errors.New("no match")
		}
		v = list[0]
	}
	return v, nil
}

func decimalAt(path string, doc any) (decimal.Decimal, error) {
	v, err := lookup(path, doc)
	if err != nil {
		return decimal.Zero, err
	}
	switch n := v.(type) {
	case float64:
		return decimal.NewFromFloat(n), nil
	case string:
		return decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(n), ",", ""))
	}
	return decimal.Zero, fmt.Errorf("unexpected %T at %s", v, path)
}

func stringAt(path string, doc any) (string, error) {
	v, err := lookup(path, doc)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("unexpected %T at %s", v, path)
	}
	return s, nil
}

// timeAt accepts unix seconds, unix milliseconds or RFC 3339 values.
func timeAt(path string, doc any) (time.Time, error) {
	v, err := lookup(path, doc)
	if err != nil {
		return time.Time{}, err
	}
	switch t := v.(type) {
	case float64:
		return fromUnix(int64(t)), nil
	case string:
		if n, err := strconv.ParseInt(t, 10, 64); err == nil {
			return fromUnix(n), nil
		}
		return time.Parse(time.RFC3339, t)
	}
	return time.Time{}, fmt.Errorf("unexpected %T at %s", v, path)
}

func fromUnix(n int64) time.Time {
	if n > 1e12 {
		return time.UnixMilli(n).UTC()
	}
	return time.Unix(n, 0).UTC()
}
