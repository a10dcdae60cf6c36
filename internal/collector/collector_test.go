package collector

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StopHunter/internal/model"
)

const yahooFixture = `{"chart":{"result":[{"timestamp":[1700000300,1700000000,1700000600],
"indicators":{"quote":[{"open":[101,100,null],"high":[103,102,null],"low":[100,99,null],
"close":[102,101,null],"volume":[2000,1000,null]}]}}],"error":null}}`

func TestYahooFetcher_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v8/finance/chart/^GSPC", r.URL.Path)
		assert.Equal(t, "5m", r.URL.Query().Get("interval"))
		assert.Equal(t, "1d", r.URL.Query().Get("range"))
		w.Write([]byte(yahooFixture))
	}))
	defer srv.Close()

	f := NewYahooFetcher("", 5*time.Second)
	f.BaseURL = srv.URL

	series, err := f.Fetch(context.Background(), "SPX", "1d", "5m")
	require.NoError(t, err)
	require.Len(t, series.Bars, 2, "null bar must be skipped")
	assert.Equal(t, "SPX", series.Symbol)
	assert.Equal(t, 101.0, series.Bars[0].Close, "bars sorted oldest first")
	assert.Equal(t, 2000.0, series.Bars[1].Volume)
	latest, ok := series.Latest()
	require.True(t, ok)
	assert.Equal(t, 102.0, latest.Close)
}

func TestYahooFetcher_ExchangeTimezone(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v8/finance/chart/^NSEI", r.URL.Path)
		w.Write([]byte(`{"chart":{"result":[{"meta":{"exchangeTimezoneName":"Asia/Kolkata"},
"timestamp":[1700000000],"indicators":{"quote":[{"open":[1],"high":[2],"low":[0.5],"close":[1.5],"volume":[null]}]}}],"error":null}}`))
	}))
	defer srv.Close()

	f := NewYahooFetcher("", time.Second)
	f.BaseURL = srv.URL
	series, err := f.Fetch(context.Background(), "NIFTY", "20d", "1d")
	require.NoError(t, err)
	require.Len(t, series.Bars, 1)
	assert.Equal(t, "Asia/Kolkata", series.Bars[0].Time.Location().String())
	assert.Zero(t, series.Bars[0].Volume)
}

func TestYahooFetcher_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`))
	}))
	defer srv.Close()

	f := NewYahooFetcher("", time.Second)
	f.BaseURL = srv.URL
	_, err := f.Fetch(context.Background(), "GONE.NS", "1d", "5m")
	assert.ErrorIs(t, err, ErrDataUnavailable)
}

func TestYahooFetcher_Empty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"chart":{"result":[],"error":null}}`))
	}))
	defer srv.Close()

	f := NewYahooFetcher("", time.Second)
	f.BaseURL = srv.URL
	_, err := f.Fetch(context.Background(), "NOPE", "1d", "5m")
	assert.ErrorIs(t, err, ErrDataUnavailable)
}

func TestYahooFetcher_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Bad Request","description":"invalid range"}}}`))
	}))
	defer srv.Close()

	f := NewYahooFetcher("", time.Second)
	f.BaseURL = srv.URL
	_, err := f.Fetch(context.Background(), "AAPL", "bogus", "1d")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrDataUnavailable)
	assert.Contains(t, err.Error(), "invalid range")
}

func TestRESTFetcher_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/bars", r.URL.Path)
		assert.Equal(t, "RELIANCE.NS", r.URL.Query().Get("symbol"))
		assert.Equal(t, "20d", r.URL.Query().Get("period"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.Write([]byte(`[{"timestamp":200,"open":1,"high":2,"low":0.5,"close":1.5,"volume":10},
{"timestamp":100,"open":1,"high":2,"low":0.5,"close":1.2,"volume":20}]`))
	}))
	defer srv.Close()

	f := NewRESTFetcher(srv.URL, "secret", "", time.Second)
	series, err := f.Fetch(context.Background(), "RELIANCE.NS", "20d", "1d")
	require.NoError(t, err)
	require.Len(t, series.Bars, 2)
	assert.Equal(t, 1.2, series.Bars[0].Close)
}

func TestRESTFetcher_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := NewRESTFetcher(srv.URL, "", "", time.Second)
	_, err := f.Fetch(context.Background(), "X", "1d", "5m")
	assert.ErrorIs(t, err, ErrDataUnavailable)
}

type countingFetcher struct {
	calls atomic.Int32
	err   error
}

func (c *countingFetcher) Name() string { return "counting" }

func (c *countingFetcher) Fetch(_ context.Context, symbol, period, interval string) (*model.BarSeries, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return &model.BarSeries{Symbol: symbol, Bars: []model.OHLCV{{Close: 1}}}, nil
}

func TestGuardedFetcher_TripsOnFailures(t *testing.T) {
	inner := &countingFetcher{err: errors.New("connection reset")}
	g := NewGuardedFetcher(inner, 0, 1)

	for i := 0; i < 3; i++ {
		_, err := g.Fetch(context.Background(), "A", "1d", "5m")
		require.Error(t, err)
		assert.NotErrorIs(t, err, gobreaker.ErrOpenState)
	}
	_, err := g.Fetch(context.Background(), "A", "1d", "5m")
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(3), inner.calls.Load())
	assert.Equal(t, gobreaker.StateOpen, g.State())
}

func TestGuardedFetcher_ObserveReportsTransitions(t *testing.T) {
	inner := &countingFetcher{err: errors.New("connection reset")}
	g := NewGuardedFetcher(inner, 0, 1)

	var states []gobreaker.State
	g.Observe(func(source string, state gobreaker.State) {
		assert.Equal(t, "counting", source)
		states = append(states, state)
	})
	for i := 0; i < 3; i++ {
		_, _ = g.Fetch(context.Background(), "A", "1d", "5m")
	}
	assert.Equal(t, []gobreaker.State{gobreaker.StateClosed, gobreaker.StateOpen}, states)
}

func TestGuardedFetcher_DataUnavailableDoesNotTrip(t *testing.T) {
	inner := &countingFetcher{err: ErrDataUnavailable}
	g := NewGuardedFetcher(inner, 0, 1)

	for i := 0; i < 5; i++ {
		_, err := g.Fetch(context.Background(), "A", "1d", "5m")
		assert.ErrorIs(t, err, ErrDataUnavailable)
	}
	assert.Equal(t, gobreaker.StateClosed, g.State())
}

func TestGuardedFetcher_RateLimitHonoursContext(t *testing.T) {
	g := NewGuardedFetcher(&countingFetcher{}, 0.001, 1)
	_, err := g.Fetch(context.Background(), "A", "1d", "5m")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = g.Fetch(ctx, "A", "1d", "5m")
	assert.Error(t, err)
}

func TestCollector_Collect(t *testing.T) {
	day := []model.OHLCV{{Low: 1, High: 2, Close: 1.5, Volume: 1}}
	intraday := []model.OHLCV{{Low: 1.1, High: 1.9, Close: 1.4, Volume: 3}}
	m := &MockFetcher{Series: map[string][]model.OHLCV{
		MockKey("A", "1d"): day,
		MockKey("A", "5m"): intraday,
	}}
	c := NewCollector(m, DefaultWindows)

	snap, err := c.Collect(context.Background(), "A")
	require.NoError(t, err)
	assert.Equal(t, intraday, snap.Intraday.Bars)
	assert.Equal(t, day, snap.Zone.Bars)
	assert.Equal(t, "20d", snap.Zone.Period)

	_, err = c.Collect(context.Background(), "B")
	assert.ErrorIs(t, err, ErrDataUnavailable)
}

func TestMockFetcher_Generated(t *testing.T) {
	m := &MockFetcher{Price: 100}
	s, err := m.Fetch(context.Background(), "A", "1d", "5m")
	require.NoError(t, err)
	assert.Len(t, s.Bars, 60)
	assert.True(t, s.Bars[0].Time.Before(s.Bars[59].Time))

	_, err = m.Fetch(context.Background(), "A", "1d", "1mo")
	assert.Error(t, err)
}
