package universe

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"BreakoutScreener/internal/httputil"
	"BreakoutScreener/internal/model"
)

// NSEEquityListURL is the NSE registry of listed equities.
const NSEEquityListURL = "https://archives.nseindia.com/content/equities/EQUITY_L.csv"

// Source retrieves the current symbol universe.
type Source interface {
	FetchSymbols(ctx context.Context) ([]string, error)
	Name() string
}

// Provider is what a screening run needs: the symbol list for this run.
type Provider interface {
	Symbols(ctx context.Context) ([]string, error)
}

// CSVSource downloads a CSV registry and reads one symbol column.
type CSVSource struct {
	URL    string
	Column string
	Client *http.Client
	Retry  httputil.RetryConfig
}

// NewCSVSource creates a source for the given URL and column (default "SYMBOL").
func NewCSVSource(url, column, proxyURL string) *CSVSource {
	if column == "" {
		column = "SYMBOL"
	}
	return &CSVSource{
		URL:    url,
		Column: column,
		Client: httputil.NewClient(proxyURL, 60*time.Second),
		Retry:  httputil.DefaultRetry,
	}
}

func (s *CSVSource) Name() string { return s.URL }

func (s *CSVSource) FetchSymbols(ctx context.Context) ([]string, error) {
	resp, err := httputil.Do(ctx, s.Client, s.Retry, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", "Mozilla/5.0")
		return req, nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetch universe: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("fetch universe: status %d, body: %s", resp.StatusCode, string(body))
	}
	return ParseSymbolsCSV(resp.Body, s.Column)
}

// ParseSymbolsCSV reads the named column, dropping blanks and duplicates
// while preserving first-seen order.
func ParseSymbolsCSV(r io.Reader, column string) ([]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty universe csv")
		}
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	idx := -1
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")), column) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("csv has no %q column", column)
	}

	var raw []string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		if idx < len(rec) {
			raw = append(raw, rec[idx])
		}
	}
	return Normalize(raw), nil
}

// Normalize trims symbols, drops blanks and removes duplicates, keeping first-seen order.
func Normalize(symbols []string) []string {
	seen := make(map[string]bool, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// StaticSource serves a fixed symbol list from configuration.
type StaticSource struct {
	List []string
}

func (s *StaticSource) Name() string { return "static" }

func (s *StaticSource) FetchSymbols(_ context.Context) ([]string, error) {
	return Normalize(s.List), nil
}

// SourceProvider adapts a Source into an uncached Provider.
type SourceProvider struct {
	Source Source
}

func (p SourceProvider) Symbols(ctx context.Context) ([]string, error) {
	symbols, err := p.Source.FetchSymbols(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrUniverseUnavailable, err)
	}
	if len(symbols) == 0 {
		return nil, fmt.Errorf("%w: source %s returned no symbols", model.ErrUniverseUnavailable, p.Source.Name())
	}
	return symbols, nil
}
