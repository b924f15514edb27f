package collector

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"BreakoutScreener/internal/httputil"
	"BreakoutScreener/internal/model"
)

var fastRetry = httputil.RetryConfig{MaxAttempts: 2, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}

func day(n int) time.Time {
	return time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func TestCleanBars(t *testing.T) {
	bars := []model.OHLCV{
		{Time: day(2), Open: 3, High: 3, Low: 3, Close: 3, Volume: 30},
		{Time: day(0), Open: 1, High: 1, Low: 1, Close: 1, Volume: 10},
		{Time: day(1), Open: math.NaN(), High: 2, Low: 2, Close: 2, Volume: 20},
		{Time: day(3)},
		{Time: day(2).Add(6 * time.Hour), Open: 4, High: 4, Low: 4, Close: 4, Volume: 40},
		{Open: 5, High: 5, Low: 5, Close: 5},
	}
	got := CleanBars(bars)
	require.Len(t, got, 2)
	assert.Equal(t, day(0), got[0].Time)
	assert.Equal(t, 4.0, got[1].Close, "duplicate day keeps the later row")
}

func TestCollectorFetch_OK(t *testing.T) {
	m := &MockFetcher{Price: 100}
	c := NewCollector(m, 60, time.Second)
	res := c.Fetch(context.Background(), "ABC")
	require.True(t, res.OK())
	assert.Equal(t, "ABC", res.Series.Symbol)
	assert.Equal(t, "mock", res.Series.Source)
	assert.Len(t, res.Series.Bars, 60)
	assert.Equal(t, []string{"ABC"}, m.Calls())
}

func TestCollectorFetch_Failures(t *testing.T) {
	m := &MockFetcher{
		Series: map[string][]model.OHLCV{"EMPTY": {}},
		Errors: map[string]error{
			"DOWN": errors.New("connection refused"),
			"BAD":  fmt.Errorf("decode: %w", model.ErrMalformed),
		},
	}
	c := NewCollector(m, 60, time.Second)

	tests := []struct {
		symbol string
		want   error
	}{
		{"DOWN", model.ErrDataUnavailable},
		{"BAD", model.ErrMalformed},
		{"EMPTY", model.ErrDataUnavailable},
		{"UNKNOWN", model.ErrDataUnavailable},
	}
	for _, tt := range tests {
		res := c.Fetch(context.Background(), tt.symbol)
		assert.False(t, res.OK(), tt.symbol)
		assert.ErrorIs(t, res.Err, tt.want, tt.symbol)
	}
}

func TestCollectorFetch_Timeout(t *testing.T) {
	m := &MockFetcher{Price: 100, Delay: time.Second}
	c := NewCollector(m, 60, 20*time.Millisecond)
	res := c.Fetch(context.Background(), "SLOW")
	assert.ErrorIs(t, res.Err, model.ErrTimeout)
	assert.Equal(t, model.SkipTimeout, model.ClassifySkip(res.Err))
}

func TestCollectorFetch_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := NewCollector(&MockFetcher{Price: 100, Delay: time.Second}, 60, 0)
	res := c.Fetch(ctx, "ABC")
	assert.ErrorIs(t, res.Err, model.ErrDataUnavailable)
}

const yahooBody = `{"chart":{"result":[{"timestamp":[1735776000,1735689600,1735862400],
"indicators":{"quote":[{"open":[11,10,null],"high":[12,11,13],"low":[10,9,11],
"close":[11.5,10.5,12],"volume":[2000,1000,3000]}]}}],"error":null}}`

func TestYahooFetcher(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.Write([]byte(yahooBody))
	}))
	defer srv.Close()

	f := NewYahooFetcher(".NS", "")
	f.BaseURL = srv.URL
	f.Retry = fastRetry

	bars, err := f.FetchDailyBars(context.Background(), "RELIANCE", 182)
	require.NoError(t, err)
	assert.Equal(t, "/RELIANCE.NS", gotPath)
	assert.Contains(t, gotQuery, "range=6mo")
	assert.Contains(t, gotQuery, "interval=1d")

	require.Len(t, bars, 2, "row with a null open is dropped")
	assert.True(t, bars[0].Time.Before(bars[1].Time))
	assert.Equal(t, 10.5, bars[0].Close)
	assert.EqualValues(t, 2000, bars[1].Volume)
}

func TestYahooFetcher_SymbolMapping(t *testing.T) {
	f := NewYahooFetcher(".NS", "")
	f.SymbolMap["NIFTY"] = "^NSEI"
	assert.Equal(t, "^NSEI", f.yahooSymbol("NIFTY"))
	assert.Equal(t, "TCS.NS", f.yahooSymbol("TCS"))
	assert.Equal(t, "TCS.NS", f.yahooSymbol("TCS.NS"))

	f = NewYahooFetcher("", "")
	assert.Equal(t, "AAPL", f.yahooSymbol("AAPL"))
}

func TestYahooFetcher_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"not found", http.StatusNotFound, `{}`, model.ErrDataUnavailable},
		{"garbage", http.StatusOK, `not json`, model.ErrMalformed},
		{"empty result", http.StatusOK, `{"chart":{"result":[],"error":null}}`, model.ErrDataUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			f := NewYahooFetcher("", "")
			f.BaseURL = srv.URL
			f.Retry = fastRetry
			_, err := f.FetchDailyBars(context.Background(), "X", 30)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`))
	}))
	defer srv.Close()
	f := NewYahooFetcher("", "")
	f.BaseURL = srv.URL
	_, err := f.FetchDailyBars(context.Background(), "X", 30)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "No data found")
}

func TestYahooRange(t *testing.T) {
	assert.Equal(t, "1mo", yahooRange(20))
	assert.Equal(t, "3mo", yahooRange(90))
	assert.Equal(t, "6mo", yahooRange(182))
	assert.Equal(t, "1y", yahooRange(365))
	assert.Equal(t, "2y", yahooRange(700))
	assert.Equal(t, "5y", yahooRange(2000))
}

func TestRESTFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/bars/daily", r.URL.Path)
		assert.Equal(t, "INFY", r.URL.Query().Get("symbol"))
		assert.Equal(t, "2025-01-01", r.URL.Query().Get("from"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.Write([]byte(`[
			{"timestamp":1735862400,"open":2,"high":3,"low":1,"close":2.5,"volume":200},
			{"timestamp":1735776000,"open":1,"high":2,"low":1,"close":1.5,"volume":100},
			{"timestamp":1735948800,"open":null,"high":3,"low":1,"close":2.5,"volume":200}
		]`))
	}))
	defer srv.Close()

	f := NewRESTFetcher(srv.URL, "secret", "")
	f.Retry = fastRetry
	f.now = func() time.Time { return time.Date(2025, 1, 31, 12, 0, 0, 0, time.UTC) }

	bars, err := f.FetchDailyBars(context.Background(), "INFY", 30)
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, 1.5, bars[0].Close)
	assert.EqualValues(t, 200, bars[1].Volume)
}

func TestRESTFetcher_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte("denied"))
	}))
	defer srv.Close()

	f := NewRESTFetcher(srv.URL, "", "")
	f.Retry = fastRetry
	_, err := f.FetchDailyBars(context.Background(), "INFY", 30)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "status 403"))
}

type fakeBars struct {
	bars []marketdata.Bar
	err  error
	req  marketdata.GetBarsRequest
}

func (f *fakeBars) GetBars(symbol string, req marketdata.GetBarsRequest) ([]marketdata.Bar, error) {
	f.req = req
	return f.bars, f.err
}

func TestAlpacaFetcher(t *testing.T) {
	now := time.Date(2025, 6, 30, 20, 0, 0, 0, time.UTC)
	fake := &fakeBars{bars: []marketdata.Bar{
		{Timestamp: day(0), Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 100},
		{Timestamp: day(1), Open: 1.5, High: 2.5, Low: 1, Close: 2, Volume: 200},
	}}
	f := &AlpacaFetcher{client: fake, feed: marketdata.IEX, now: func() time.Time { return now }}

	bars, err := f.FetchDailyBars(context.Background(), "AAPL", 182)
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.EqualValues(t, 200, bars[1].Volume)
	assert.Equal(t, now.AddDate(0, 0, -182), fake.req.Start)
	assert.Equal(t, marketdata.OneDay, fake.req.TimeFrame)

	fake.err = errors.New("forbidden")
	_, err = f.FetchDailyBars(context.Background(), "AAPL", 182)
	assert.Error(t, err)
}
