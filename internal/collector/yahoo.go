package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"
	_ "time/tzdata"

	"StopHunter/internal/model"
)

const yahooBaseURL = "https://query1.finance.yahoo.com"

// YahooFetcher reads bars from the Yahoo Finance v8 chart API.
type YahooFetcher struct {
	BaseURL string
	Client  *http.Client
	// Aliases maps watchlist names to Yahoo tickers.
	Aliases map[string]string
}

// NewYahooFetcher creates a Yahoo fetcher with optional proxy.
func NewYahooFetcher(proxyURL string, timeout time.Duration) *YahooFetcher {
	return &YahooFetcher{
		BaseURL: yahooBaseURL,
		Client:  newHTTPClient(proxyURL, timeout),
		Aliases: map[string]string{
			"NIFTY":     "^NSEI",
			"BANKNIFTY": "^NSEBANK",
			"SENSEX":    "^BSESN",
			"SPX":       "^GSPC",
		},
	}
}

func (f *YahooFetcher) Name() string { return "yahoo" }

func (f *YahooFetcher) ticker(symbol string) string {
	if t, ok := f.Aliases[symbol]; ok {
		return t
	}
	return symbol
}

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *chartError   `json:"error"`
	} `json:"chart"`
}

type chartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type chartResult struct {
	Meta struct {
		ExchangeTimezoneName string `json:"exchangeTimezoneName"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []chartQuote `json:"quote"`
	} `json:"indicators"`
}

// Yahoo emits null for halted or missing intervals.
type chartQuote struct {
	Open   []*float64 `json:"open"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
	Close  []*float64 `json:"close"`
	Volume []*float64 `json:"volume"`
}

func (q chartQuote) bar(i int, t time.Time) (model.OHLCV, bool) {
	o, h, l, c := value(q.Open, i), value(q.High, i), value(q.Low, i), value(q.Close, i)
	if o == nil || h == nil || l == nil || c == nil {
		return model.OHLCV{}, false
	}
	b := model.OHLCV{Time: t, Open: *o, High: *h, Low: *l, Close: *c}
	if v := value(q.Volume, i); v != nil {
		b.Volume = *v
	}
	return b, true
}

func value(vs []*float64, i int) *float64 {
	if i < len(vs) {
		return vs[i]
	}
	return nil
}

// Fetch passes period straight through as the chart range, so it accepts
// anything Yahoo does ("1d", "5d", "20d", "1mo", ...). Bar times are in the
// exchange's time zone when Yahoo reports one.
func (f *YahooFetcher) Fetch(ctx context.Context, symbol, period, interval string) (*model.BarSeries, error) {
	base := f.BaseURL
	if base == "" {
		base = yahooBaseURL
	}
	q := url.Values{}
	q.Set("interval", interval)
	q.Set("range", period)
	u := fmt.Sprintf("%s/v8/finance/chart/%s?%s", base, url.PathEscape(f.ticker(symbol)), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("yahoo %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("yahoo %s read body: %w", symbol, err)
	}

	var chart chartResponse
	decodeErr := json.Unmarshal(body, &chart)
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("yahoo %s: %w", symbol, ErrDataUnavailable)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("yahoo %s: status %d, body: %s", symbol, resp.StatusCode, string(body))
	case decodeErr != nil:
		return nil, fmt.Errorf("yahoo %s decode: %w", symbol, decodeErr)
	case chart.Chart.Error != nil:
		return nil, fmt.Errorf("yahoo %s: %s: %s", symbol, chart.Chart.Error.Code, chart.Chart.Error.Description)
	case len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Indicators.Quote) == 0:
		return nil, fmt.Errorf("yahoo %s: %w", symbol, ErrDataUnavailable)
	}

	result := chart.Chart.Result[0]
	quote := result.Indicators.Quote[0]
	loc := time.UTC
	if tz := result.Meta.ExchangeTimezoneName; tz != "" {
		if l, err := time.LoadLocation(tz); err == nil {
			loc = l
		}
	}

	bars := make([]model.OHLCV, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if b, ok := quote.bar(i, time.Unix(ts, 0).In(loc)); ok {
			bars = append(bars, b)
		}
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("yahoo %s: %w", symbol, ErrDataUnavailable)
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })

	return &model.BarSeries{
		Symbol:    symbol,
		Period:    period,
		Interval:  interval,
		Bars:      bars,
		FetchedAt: time.Now(),
	}, nil
}
