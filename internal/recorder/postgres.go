package recorder

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"BreakoutScreener/internal/model"
)

// PostgresRecorder persists screening runs to PostgreSQL.
type PostgresRecorder struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

// Connect opens a pool for dsn and verifies it with a ping.
func Connect(dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	cfg.MaxConns = 4
	cfg.MinConns = 1
	cfg.MaxConnIdleTime = 30 * time.Second
	cfg.MaxConnLifetime = 5 * time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	p, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := p.Ping(ctx); err != nil {
		p.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return p, nil
}

// NewPostgresRecorder connects and creates the tables if needed.
func NewPostgresRecorder(dsn string) (*PostgresRecorder, error) {
	pool, err := Connect(dsn)
	if err != nil {
		return nil, err
	}
	r := &PostgresRecorder{pool: pool, timeout: 10 * time.Second}
	if err := r.migrate(); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	log.Println("[INFO] postgres recorder connected")
	return r, nil
}

func (r *PostgresRecorder) migrate() error {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS screening_runs (
			id              BIGSERIAL PRIMARY KEY,
			started_at      TIMESTAMPTZ NOT NULL,
			finished_at     TIMESTAMPTZ NOT NULL,
			universe_size   INTEGER,
			evaluated       INTEGER,
			skipped         INTEGER,
			skipped_detail  JSONB,
			candidate_count INTEGER,
			canceled        BOOLEAN
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON screening_runs(started_at)`,
		`CREATE TABLE IF NOT EXISTS breakout_candidates (
			id                   BIGSERIAL PRIMARY KEY,
			run_id               BIGINT NOT NULL REFERENCES screening_runs(id),
			rank                 INTEGER NOT NULL,
			symbol               TEXT NOT NULL,
			close                NUMERIC(18,2),
			high_20d             NUMERIC(18,2),
			high_52w             NUMERIC(18,2),
			volume_today         BIGINT,
			avg_volume           BIGINT,
			rsi                  NUMERIC(6,2),
			profit_potential_pct NUMERIC(10,2)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_candidates_run ON breakout_candidates(run_id)`,
	}
	for _, s := range stmts {
		if _, err := r.pool.Exec(ctx, s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *PostgresRecorder) RecordRun(res *model.ScreenResult) error {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var runID int64
	err = tx.QueryRow(ctx,
		`INSERT INTO screening_runs
		 (started_at, finished_at, universe_size, evaluated, skipped, skipped_detail, candidate_count, canceled)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		 RETURNING id`,
		res.StartedAt, res.FinishedAt, res.UniverseSize, res.Evaluated,
		res.SkippedTotal(), encodeSkipped(res.Skipped), len(res.Candidates), res.Canceled,
	).Scan(&runID)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	batch := &pgx.Batch{}
	for i, c := range res.Candidates {
		batch.Queue(`INSERT INTO breakout_candidates
			(run_id, rank, symbol, close, high_20d, high_52w, volume_today, avg_volume, rsi, profit_potential_pct)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
			runID, i+1, c.Symbol, c.Close, c.High20, c.High52w,
			c.VolumeToday, c.AvgVolume, c.RSI, c.ProfitPotentialPct,
		)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert candidates: %w", err)
		}
	}
	return tx.Commit(ctx)
}

func (r *PostgresRecorder) LastRun() (*model.ScreenResult, error) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	var (
		runID         int64
		skippedDetail string
		res           model.ScreenResult
	)
	err := r.pool.QueryRow(ctx,
		`SELECT id, started_at, finished_at, universe_size, evaluated, skipped_detail::text, canceled
		 FROM screening_runs ORDER BY id DESC LIMIT 1`).
		Scan(&runID, &res.StartedAt, &res.FinishedAt, &res.UniverseSize, &res.Evaluated, &skippedDetail, &res.Canceled)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query last run: %w", err)
	}
	res.Skipped = decodeSkipped(skippedDetail)

	rows, err := r.pool.Query(ctx,
		`SELECT rank, symbol, close::text, high_20d::text, high_52w::text, volume_today, avg_volume,
		        rsi::text, profit_potential_pct::text
		 FROM breakout_candidates WHERE run_id = $1 ORDER BY rank`, runID)
	if err != nil {
		return nil, fmt.Errorf("query candidates: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var row candidateRow
		if err := rows.Scan(&row.Rank, &row.Symbol, &row.Close, &row.High20, &row.High52w,
			&row.VolumeToday, &row.AvgVolume, &row.RSI, &row.Profit); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		c, err := row.candidate()
		if err != nil {
			return nil, fmt.Errorf("decode candidate %s: %w", row.Symbol, err)
		}
		res.Candidates = append(res.Candidates, c)
	}
	return &res, rows.Err()
}

func (r *PostgresRecorder) Close() error {
	log.Println("[INFO] closing postgres recorder")
	r.pool.Close()
	return nil
}
