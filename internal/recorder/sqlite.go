package recorder

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"BreakoutScreener/internal/model"
)

// SQLiteRecorder persists screening runs to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite recorder opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS screening_runs (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			started_at      INTEGER NOT NULL,
			finished_at     INTEGER NOT NULL,
			universe_size   INTEGER,
			evaluated       INTEGER,
			skipped         INTEGER,
			skipped_detail  TEXT,
			candidate_count INTEGER,
			canceled        INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON screening_runs(started_at)`,

		`CREATE TABLE IF NOT EXISTS breakout_candidates (
			id                   INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id               INTEGER NOT NULL REFERENCES screening_runs(id),
			rank                 INTEGER NOT NULL,
			symbol               TEXT NOT NULL,
			close                TEXT,
			high_20d             TEXT,
			high_52w             TEXT,
			volume_today         INTEGER,
			avg_volume           INTEGER,
			rsi                  TEXT,
			profit_potential_pct TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_candidates_run ON breakout_candidates(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_candidates_symbol ON breakout_candidates(symbol)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordRun(res *model.ScreenResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	out, err := tx.Exec(`INSERT INTO screening_runs
		(started_at, finished_at, universe_size, evaluated, skipped, skipped_detail, candidate_count, canceled)
		VALUES (?,?,?,?,?,?,?,?)`,
		res.StartedAt.Unix(), res.FinishedAt.Unix(), res.UniverseSize, res.Evaluated,
		res.SkippedTotal(), encodeSkipped(res.Skipped), len(res.Candidates), res.Canceled,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	runID, err := out.LastInsertId()
	if err != nil {
		return fmt.Errorf("run id: %w", err)
	}

	for i, c := range res.Candidates {
		row := toRow(i+1, c)
		if _, err := tx.Exec(`INSERT INTO breakout_candidates
			(run_id, rank, symbol, close, high_20d, high_52w, volume_today, avg_volume, rsi, profit_potential_pct)
			VALUES (?,?,?,?,?,?,?,?,?,?)`,
			runID, row.Rank, row.Symbol, row.Close, row.High20, row.High52w,
			row.VolumeToday, row.AvgVolume, row.RSI, row.Profit,
		); err != nil {
			return fmt.Errorf("insert candidate %s: %w", c.Symbol, err)
		}
	}
	return tx.Commit()
}

func (r *SQLiteRecorder) LastRun() (*model.ScreenResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var (
		runID             int64
		started, finished int64
		skippedDetail     string
		canceled          bool
		res               model.ScreenResult
	)
	err := r.db.QueryRow(`SELECT id, started_at, finished_at, universe_size, evaluated, skipped_detail, canceled
		FROM screening_runs ORDER BY id DESC LIMIT 1`).
		Scan(&runID, &started, &finished, &res.UniverseSize, &res.Evaluated, &skippedDetail, &canceled)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query last run: %w", err)
	}
	res.StartedAt = time.Unix(started, 0)
	res.FinishedAt = time.Unix(finished, 0)
	res.Skipped = decodeSkipped(skippedDetail)
	res.Canceled = canceled

	rows, err := r.db.Query(`SELECT rank, symbol, close, high_20d, high_52w, volume_today, avg_volume, rsi, profit_potential_pct
		FROM breakout_candidates WHERE run_id = ? ORDER BY rank`, runID)
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

func (r *SQLiteRecorder) Close() error {
	log.Println("[INFO] closing sqlite recorder")
	return r.db.Close()
}
