package main

import (
	"context"
	"errors"
	"log"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"BreakoutScreener/internal/app"
	"BreakoutScreener/internal/config"
	"BreakoutScreener/internal/model"
	"BreakoutScreener/internal/notifier"
	"BreakoutScreener/internal/report"
)

var pipeline *app.App
var topN int

func init() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatal(err)
	}
	// Lambda has no persistent disk; history lives in Postgres when configured.
	if cfg.Database.Driver == "sqlite" {
		cfg.Database.Driver = "none"
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}
	topN = cfg.Telegram.TopN

	pipeline, err = app.Build(context.Background(), cfg)
	if err != nil {
		log.Fatal(err)
	}
}

func handler(ctx context.Context) (map[string]interface{}, error) {
	res, err := pipeline.Screener.Run(ctx, pipeline.Universe)
	if res == nil {
		log.Printf("[ERROR] screening failed: %v", err)
		if pipeline.Notifier.Enabled() {
			if sendErr := pipeline.Notifier.Send(notifier.FormatRunError(err)); sendErr != nil {
				log.Printf("[ERROR] send notification: %v", sendErr)
			}
		}
		status := 500
		if errors.Is(err, model.ErrUniverseUnavailable) {
			status = 503
		}
		return map[string]interface{}{"statusCode": status, "body": err.Error()}, nil
	}

	if recErr := pipeline.Recorder.RecordRun(res); recErr != nil {
		log.Printf("[ERROR] record run: %v", recErr)
	}
	if pipeline.Notifier.Enabled() {
		if sendErr := pipeline.Notifier.Send(notifier.FormatScreenReport(res, topN)); sendErr != nil {
			log.Printf("[ERROR] send notification: %v", sendErr)
		}
	}

	candidates := make([]map[string]interface{}, 0, len(res.Candidates))
	for _, c := range res.Candidates {
		candidates = append(candidates, map[string]interface{}{
			"symbol":               c.Symbol,
			"close":                c.Close.StringFixed(2),
			"high_20d":             c.High20.StringFixed(2),
			"high_52w":             c.High52w.StringFixed(2),
			"volume_today":         c.VolumeToday,
			"avg_volume":           c.AvgVolume,
			"rsi":                  c.RSI.StringFixed(2),
			"profit_potential_pct": c.ProfitPotentialPct.StringFixed(2),
		})
	}
	return map[string]interface{}{
		"statusCode": 200,
		"body": map[string]interface{}{
			"message":    report.Summary(res),
			"universe":   res.UniverseSize,
			"evaluated":  res.Evaluated,
			"skipped":    res.Skipped,
			"canceled":   res.Canceled,
			"candidates": candidates,
		},
	}, nil
}

func main() {
	lambda.Start(handler)
}
