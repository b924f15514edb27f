package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"BreakoutScreener/internal/model"
	"BreakoutScreener/internal/notifier"
	"BreakoutScreener/internal/recorder"
	"BreakoutScreener/internal/report"
	"BreakoutScreener/internal/screener"
	"BreakoutScreener/internal/universe"
)

// ErrAlreadyRunning is returned when a run is requested while another is in progress.
var ErrAlreadyRunning = errors.New("screening already running")

// Scheduler runs screenings on a cron schedule and on demand.
type Scheduler struct {
	Cron     *cron.Cron
	Screener *screener.Screener
	Universe universe.Provider
	Notifier *notifier.TelegramNotifier
	Recorder recorder.Recorder
	CSVPath  string // empty disables the export
	TopN     int
	Ctx      context.Context

	// CSVTimestamped stamps each export with the run start time instead of
	// overwriting CSVPath.
	CSVTimestamped bool

	mu      sync.Mutex
	running bool
	last    *model.ScreenResult
}

// NewScheduler creates a new Scheduler whose cron expressions are read in loc.
func NewScheduler(ctx context.Context, scr *screener.Screener, provider universe.Provider, tn *notifier.TelegramNotifier, rec recorder.Recorder, loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds(), cron.WithLocation(loc)),
		Screener: scr,
		Universe: provider,
		Notifier: tn,
		Recorder: rec,
		TopN:     20,
		Ctx:      ctx,
	}
}

// Register adds the screening task under the given cron expression.
func (s *Scheduler) Register(screenCron string) error {
	if _, err := s.Cron.AddFunc(screenCron, s.screeningTask); err != nil {
		return fmt.Errorf("register screening task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Println("[INFO] scheduler started")
}

// Stop stops the cron scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Println("[INFO] scheduler stopped")
}

func (s *Scheduler) screeningTask() {
	if _, err := s.RunNow(); err != nil && !errors.Is(err, ErrAlreadyRunning) {
		log.Printf("[ERROR] scheduled screening: %v", err)
	}
}

// RunNow executes one screening immediately (manual trigger, RUN_ON_START).
// The result is recorded, exported and reported even when the run was
// canceled part way.
func (s *Scheduler) RunNow() (*model.ScreenResult, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil, ErrAlreadyRunning
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	log.Println("[INFO] running breakout screening")
	res, err := s.Screener.Run(s.Ctx, s.Universe)
	if res == nil {
		log.Printf("[ERROR] screening failed: %v", err)
		s.trySend(notifier.FormatRunError(err))
		return nil, err
	}

	s.mu.Lock()
	s.last = res
	s.mu.Unlock()

	log.Printf("[INFO] %s", report.Summary(res))
	if recErr := s.Recorder.RecordRun(res); recErr != nil {
		log.Printf("[ERROR] record run: %v", recErr)
	}
	s.exportCSV(res)
	s.trySend(notifier.FormatScreenReport(res, s.TopN))
	return res, err
}

func (s *Scheduler) exportCSV(res *model.ScreenResult) {
	if s.CSVPath == "" {
		return
	}
	if len(res.Candidates) == 0 {
		log.Println("[INFO] no candidates, csv export skipped")
		return
	}
	path := s.CSVPath
	if s.CSVTimestamped {
		path = report.TimestampedPath(path, res.StartedAt)
	}
	if err := report.SaveCSV(path, res.Candidates); err != nil {
		log.Printf("[ERROR] export csv: %v", err)
		return
	}
	log.Printf("[INFO] results written to %s", path)
}

// LastResult returns the latest run, falling back to the recorder after a restart.
func (s *Scheduler) LastResult() (*model.ScreenResult, error) {
	s.mu.Lock()
	last := s.last
	s.mu.Unlock()
	if last != nil {
		return last, nil
	}
	return s.Recorder.LastRun()
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(command string) string {
	switch command {
	case "/screen":
		s.mu.Lock()
		running := s.running
		s.mu.Unlock()
		if running {
			return "⏳ A screening run is already in progress."
		}
		go s.screeningTask()
		return "🔎 Screening started, results will follow."
	case "/last":
		last, err := s.LastResult()
		if err != nil {
			log.Printf("[ERROR] load last run: %v", err)
			return "Could not load the last result."
		}
		if last == nil {
			return "No screening has been run yet."
		}
		return notifier.FormatScreenReport(last, s.TopN)
	default:
		return notifier.HelpText()
	}
}

func (s *Scheduler) trySend(text string) {
	if !s.Notifier.Enabled() {
		return
	}
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		log.Printf("[ERROR] send notification: %v", err)
	}
}
