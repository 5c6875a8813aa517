package twelvedata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "key", time.Second)
}

func TestGetQuote_SingleSymbol(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/quote", r.URL.Path)
		assert.Equal(t, "AAPL", r.URL.Query().Get("symbol"))
		assert.Equal(t, "key", r.URL.Query().Get("apikey"))
		_, _ = w.Write([]byte(`{"symbol":"AAPL","close":"180.25","currency":"USD","timestamp":1710000000}`))
	})

	quotes := client.GetQuote(context.Background(), []string{"AAPL"})

	require.Contains(t, quotes, "AAPL")
	assert.Equal(t, "180.25", quotes["AAPL"].Close.String())
	assert.Equal(t, "USD", quotes["AAPL"].Currency)
	assert.Equal(t, "twelvedata", quotes["AAPL"].Source)
	assert.Equal(t, time.Unix(1710000000, 0).UTC(), quotes["AAPL"].AsOf)
}

func TestGetQuote_BatchSkipsFailedSymbols(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "AAPL,USD/EUR,NOPE", r.URL.Query().Get("symbol"))
		_, _ = w.Write([]byte(`{
			"AAPL": {"symbol":"AAPL","close":"180.25","currency":"USD"},
			"USD/EUR": {"symbol":"USD/EUR","close":"0.92","currency":"EUR"},
			"NOPE": {"code":404,"message":"symbol not found","status":"error"}
		}`))
	})

	quotes := client.GetQuote(context.Background(), []string{"AAPL", "USD/EUR", "NOPE"})

	assert.Len(t, quotes, 2)
	assert.Equal(t, "0.92", quotes["USD/EUR"].Close.String())
	assert.NotContains(t, quotes, "NOPE")
}

func TestGetQuote_HTTPFailureReturnsNil(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	assert.Nil(t, client.GetQuote(context.Background(), []string{"AAPL"}))
}

func TestGetHistorical_ParsesDailyCloses(t *testing.T) {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC)
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/time_series", r.URL.Path)
		assert.Equal(t, "1day", q.Get("interval"))
		assert.Equal(t, "2024-01-02", q.Get("start_date"))
		assert.Equal(t, "2024-01-04", q.Get("end_date"))
		assert.Equal(t, "ASC", q.Get("order"))
		_, _ = w.Write([]byte(`{
			"meta": {"symbol":"AAPL","currency":"USD"},
			"values": [
				{"datetime":"2024-01-02","close":"185.64"},
				{"datetime":"2024-01-03","close":"bad"},
				{"datetime":"2024-01-04","close":"181.91"}
			],
			"status":"ok"
		}`))
	})

	series := client.GetHistorical(context.Background(), "AAPL", start, end)

	require.Len(t, series, 2)
	assert.Equal(t, start, series[0].AsOf)
	assert.Equal(t, "181.91", series[1].Close.String())
	assert.Equal(t, "USD", series[1].Currency)
}

func TestGetHistorical_ErrorStatus(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":400,"message":"no data","status":"error"}`))
	})

	assert.Empty(t, client.GetHistorical(context.Background(), "AAPL", time.Now(), time.Now()))
}
