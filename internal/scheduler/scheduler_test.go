package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"BreakoutScreener/internal/calculator"
	"BreakoutScreener/internal/collector"
	"BreakoutScreener/internal/model"
	"BreakoutScreener/internal/notifier"
	"BreakoutScreener/internal/report"
	"BreakoutScreener/internal/screener"
	"BreakoutScreener/internal/strategy"
	"BreakoutScreener/internal/universe"
)

func rally() []model.OHLCV {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]model.OHLCV, 60)
	for i := range bars {
		c := 100 + float64(i)
		bars[i] = model.OHLCV{Time: start.AddDate(0, 0, i), Open: c, High: c * 1.01, Low: c * 0.99, Close: c, Volume: 1_000_000}
	}
	bars[0].High = 318
	bars[59].Volume = 3_000_000
	return bars
}

type memRecorder struct {
	mu   sync.Mutex
	runs []*model.ScreenResult
}

func (m *memRecorder) RecordRun(r *model.ScreenResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, r)
	return nil
}

func (m *memRecorder) LastRun() (*model.ScreenResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.runs) == 0 {
		return nil, nil
	}
	return m.runs[len(m.runs)-1], nil
}

func (m *memRecorder) Close() error { return nil }

func newTestScheduler(t *testing.T, f collector.Fetcher, symbols []string, tn *notifier.TelegramNotifier) (*Scheduler, *memRecorder) {
	col := collector.NewCollector(f, 182, time.Second)
	scr := screener.New(col, calculator.DefaultParams(), strategy.DefaultThresholds(), screener.Options{Workers: 2})
	rec := &memRecorder{}
	s := NewScheduler(context.Background(), scr, universe.SourceProvider{Source: &universe.StaticSource{List: symbols}}, tn, rec, time.UTC)
	s.CSVPath = filepath.Join(t.TempDir(), "out.csv")
	return s, rec
}

func TestRunNow_RecordsExportsAndNotifies(t *testing.T) {
	var messages []string
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		mu.Lock()
		messages = append(messages, body["text"].(string))
		mu.Unlock()
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()
	tn := notifier.NewTelegramNotifier("tok", "42", "")
	tn.BaseURL = srv.URL

	m := &collector.MockFetcher{Series: map[string][]model.OHLCV{"AAA": rally()}}
	s, rec := newTestScheduler(t, m, []string{"AAA", "MISSING"}, tn)

	res, err := s.RunNow()
	require.NoError(t, err)
	require.Len(t, res.Candidates, 1)
	assert.Len(t, rec.runs, 1)

	data, err := os.ReadFile(s.CSVPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "AAA,159.00,160.59,318.00,3000000,1100000,100.00,100.00")

	mu.Lock()
	require.Len(t, messages, 1)
	assert.Contains(t, messages[0], "Found 1 breakout candidate")
	mu.Unlock()

	last := s.HandleCommand("/last")
	assert.Contains(t, last, "AAA")
}

func TestRunNow_TimestampedExport(t *testing.T) {
	m := &collector.MockFetcher{Series: map[string][]model.OHLCV{"AAA": rally()}}
	s, _ := newTestScheduler(t, m, []string{"AAA"}, nil)
	s.CSVTimestamped = true

	res, err := s.RunNow()
	require.NoError(t, err)

	_, statErr := os.Stat(s.CSVPath)
	assert.True(t, os.IsNotExist(statErr), "fixed path is left alone")
	data, err := os.ReadFile(report.TimestampedPath(s.CSVPath, res.StartedAt))
	require.NoError(t, err)
	assert.Contains(t, string(data), "AAA,159.00")
}

func TestRunNow_NoCandidatesSkipsExport(t *testing.T) {
	s, rec := newTestScheduler(t, &collector.MockFetcher{Price: 100}, []string{"FLAT"}, nil)
	res, err := s.RunNow()
	require.NoError(t, err)
	assert.Empty(t, res.Candidates)
	assert.Len(t, rec.runs, 1)

	entries, err := os.ReadDir(filepath.Dir(s.CSVPath))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRunNow_UniverseFailure(t *testing.T) {
	s, rec := newTestScheduler(t, &collector.MockFetcher{Price: 100}, nil, nil)
	res, err := s.RunNow()
	assert.ErrorIs(t, err, model.ErrUniverseUnavailable)
	assert.Nil(t, res)
	assert.Empty(t, rec.runs)
	_, statErr := os.Stat(s.CSVPath)
	assert.True(t, os.IsNotExist(statErr))
}

type blockingFetcher struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingFetcher) Name() string { return "blocking" }

func (b *blockingFetcher) FetchDailyBars(ctx context.Context, symbol string, days int) ([]model.OHLCV, error) {
	close(b.started)
	<-b.release
	return nil, errors.New("released")
}

func TestRunNow_SingleFlight(t *testing.T) {
	f := &blockingFetcher{started: make(chan struct{}), release: make(chan struct{})}
	s, _ := newTestScheduler(t, f, []string{"A"}, nil)

	done := make(chan struct{})
	go func() {
		s.RunNow()
		close(done)
	}()
	<-f.started

	_, err := s.RunNow()
	assert.ErrorIs(t, err, ErrAlreadyRunning)
	assert.Contains(t, s.HandleCommand("/screen"), "already in progress")

	close(f.release)
	<-done
}

func TestHandleCommand(t *testing.T) {
	s, rec := newTestScheduler(t, &collector.MockFetcher{}, []string{"A"}, nil)
	assert.Equal(t, "No screening has been run yet.", s.HandleCommand("/last"))
	assert.Equal(t, notifier.HelpText(), s.HandleCommand("/help"))
	assert.Equal(t, notifier.HelpText(), s.HandleCommand("/unknown"))

	rec.runs = append(rec.runs, &model.ScreenResult{UniverseSize: 5})
	assert.True(t, strings.Contains(s.HandleCommand("/last"), "No breakout candidates found."))
}

func TestRegister(t *testing.T) {
	s, _ := newTestScheduler(t, &collector.MockFetcher{}, []string{"A"}, nil)
	assert.NoError(t, s.Register("0 15 16 * * 1-5"))
	assert.Error(t, s.Register("not a cron"))
	s.Start()
	s.Stop()
}
