package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"BreakoutScreener/internal/app"
	"BreakoutScreener/internal/config"
	"BreakoutScreener/internal/report"
	"BreakoutScreener/internal/scheduler"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("[INFO] BreakoutScreener starting...")

	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("[FATAL] load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] config validation: %v", err)
	}

	// Context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg)
	if err != nil {
		log.Fatalf("[FATAL] init: %v", err)
	}
	defer a.Close()

	loc, err := cfg.Location()
	if err != nil {
		log.Fatalf("[FATAL] schedule timezone: %v", err)
	}
	sched := scheduler.NewScheduler(ctx, a.Screener, a.Universe, a.Notifier, a.Recorder, loc)
	sched.CSVPath = cfg.Output.CSVPath
	sched.CSVTimestamped = cfg.Output.Timestamped
	sched.TopN = cfg.Telegram.TopN

	// One-shot mode: screen, print the table and exit.
	if os.Getenv("RUN_ONCE") == "true" {
		res, err := sched.RunNow()
		if res == nil {
			log.Fatalf("[FATAL] screening: %v", err)
		}
		if err := report.WriteTable(os.Stdout, res.Candidates); err != nil {
			log.Printf("[ERROR] print table: %v", err)
		}
		if errors.Is(err, context.Canceled) {
			log.Println("[WARN] screening interrupted, table is partial")
		}
		return
	}

	if err := sched.Register(cfg.Schedule.Cron); err != nil {
		log.Fatalf("[FATAL] register cron tasks: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	// Start Telegram polling
	if a.Notifier.Enabled() {
		go a.Notifier.StartPolling(ctx, sched.HandleCommand)
		log.Println("[INFO] Telegram polling started")
	} else {
		log.Println("[WARN] telegram not configured, notifications disabled")
	}

	// Optional: run immediately on start
	if os.Getenv("RUN_ON_START") == "true" {
		log.Println("[INFO] RUN_ON_START enabled, executing screening now")
		go sched.RunNow()
	}

	log.Printf("[INFO] BreakoutScreener is running (cron %q, %s). Press Ctrl+C to stop.", cfg.Schedule.Cron, loc)

	<-ctx.Done()
	log.Println("[INFO] shutdown signal received, stopping...")
}
