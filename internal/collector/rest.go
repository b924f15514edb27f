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

	"BreakoutScreener/internal/httputil"
	"BreakoutScreener/internal/model"
)

// RESTFetcher implements Fetcher against a plain JSON bars endpoint:
// GET {base}/api/v1/bars/daily?symbol=X&from=YYYY-MM-DD
type RESTFetcher struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
	Retry   httputil.RetryConfig
	now     func() time.Time
}

// NewRESTFetcher creates a new fetcher with optional proxy support.
func NewRESTFetcher(baseURL, apiKey, proxyURL string) *RESTFetcher {
	return &RESTFetcher{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Client:  httputil.NewClient(proxyURL, 30*time.Second),
		Retry:   httputil.DefaultRetry,
		now:     time.Now,
	}
}

func (f *RESTFetcher) Name() string { return "rest" }

// restBar is the expected JSON shape from the bars API. Pointer fields
// distinguish missing values from zeros.
type restBar struct {
	Timestamp int64    `json:"timestamp"`
	Open      *float64 `json:"open"`
	High      *float64 `json:"high"`
	Low       *float64 `json:"low"`
	Close     *float64 `json:"close"`
	Volume    *float64 `json:"volume"`
}

func (f *RESTFetcher) FetchDailyBars(ctx context.Context, symbol string, days int) ([]model.OHLCV, error) {
	from := f.now().AddDate(0, 0, -days).Format("2006-01-02")
	endpoint := fmt.Sprintf("%s/api/v1/bars/daily?symbol=%s&from=%s",
		f.BaseURL, url.QueryEscape(symbol), from)

	resp, err := httputil.Do(ctx, f.Client, f.Retry, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		if f.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+f.APIKey)
		}
		return req, nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetch bars: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("fetch bars: %w: symbol %s not found", model.ErrDataUnavailable, symbol)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("fetch bars: status %d, body: %s", resp.StatusCode, string(body))
	}

	var raw []restBar
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode bars: %w: %v", model.ErrMalformed, err)
	}
	bars := make([]model.OHLCV, 0, len(raw))
	for _, rb := range raw {
		if rb.Open == nil || rb.High == nil || rb.Low == nil || rb.Close == nil || rb.Volume == nil {
			continue
		}
		bars = append(bars, model.OHLCV{
			Time:   time.Unix(rb.Timestamp, 0).UTC(),
			Open:   *rb.Open,
			High:   *rb.High,
			Low:    *rb.Low,
			Close:  *rb.Close,
			Volume: int64(*rb.Volume),
		})
	}
	// Ensure chronological order
	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars, nil
}
