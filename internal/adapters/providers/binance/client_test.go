package binance

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, time.Second)
}

func TestGetQuote_Batch(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/ticker/24hr", r.URL.Path)
		assert.Equal(t, `["BTCUSDT","ETHUSDT"]`, r.URL.Query().Get("symbols"))
		_, _ = w.Write([]byte(`[
			{"symbol":"BTCUSDT","lastPrice":"42000.10","closeTime":1710000000000},
			{"symbol":"ETHUSDT","lastPrice":"0.00000000","closeTime":1710000000000}
		]`))
	})

	quotes := client.GetQuote(context.Background(), []string{"BTCUSDT", "ETHUSDT"})

	require.Len(t, quotes, 1)
	btc := quotes["BTCUSDT"]
	assert.Equal(t, "42000.1", btc.Close.String())
	assert.Equal(t, "USDT", btc.Currency)
	assert.Equal(t, time.UnixMilli(1710000000000).UTC(), btc.AsOf)
}

func TestGetQuote_InvalidSymbolFallsBackPerSymbol(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch {
		case q.Get("symbols") != "":
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"code":-1121,"msg":"Invalid symbol."}`))
		case q.Get("symbol") == "BTCUSDT":
			_, _ = w.Write([]byte(`{"symbol":"BTCUSDT","lastPrice":"41000","closeTime":1710000000000}`))
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	})

	quotes := client.GetQuote(context.Background(), []string{"BTCUSDT", "FAKEUSDT"})

	require.Len(t, quotes, 1)
	assert.Equal(t, "41000", quotes["BTCUSDT"].Close.String())
}

func TestGetQuote_ServerErrorReturnsNil(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	assert.Nil(t, client.GetQuote(context.Background(), []string{"BTCUSDT"}))
}

func TestGetHistorical_ReadsKlineClose(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/api/v3/klines", r.URL.Path)
		assert.Equal(t, "1d", q.Get("interval"))
		assert.Equal(t, "1704067200000", q.Get("startTime"))
		_, _ = w.Write([]byte(`[
			[1704067200000,"42283.58","44184.10","42180.77","44179.55","27174.29",1704153599999,"0",1,"0","0","0"],
			[1704153600000,"44179.55","45879.63","44148.34","44946.91","65146.40",1704239999999,"0",1,"0","0","0"],
			[1704240000000]
		]`))
	})

	series := client.GetHistorical(context.Background(), "BTCUSDT", start, start.AddDate(0, 0, 2))

	require.Len(t, series, 2)
	assert.Equal(t, start, series[0].AsOf)
	assert.Equal(t, "44179.55", series[0].Close.String())
	assert.Equal(t, "44946.91", series[1].Close.String())
}
