package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"xsmom/internal/domain"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface check.
var _ RunStore = (*SQLiteStore)(nil)

// SQLiteStore implements RunStore backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id             TEXT PRIMARY KEY,
	signal         TEXT    NOT NULL,
	tickers        TEXT    NOT NULL,
	start_date     TEXT    NOT NULL,
	end_date       TEXT    NOT NULL,
	cost_bps       REAL    NOT NULL,
	q              REAL    NOT NULL,
	created_at     INTEGER NOT NULL,
	ann_return     REAL    NOT NULL,
	ann_vol        REAL    NOT NULL,
	sharpe         REAL    NOT NULL,
	max_drawdown   REAL    NOT NULL,
	rebalances     INTEGER NOT NULL,
	total_turnover REAL    NOT NULL
);
CREATE INDEX IF NOT EXISTS runs_created_at ON runs (created_at DESC);
CREATE TABLE IF NOT EXISTS run_returns (
	run_id TEXT    NOT NULL REFERENCES runs (id) ON DELETE CASCADE,
	date   INTEGER NOT NULL,
	value  REAL    NOT NULL,
	PRIMARY KEY (run_id, date)
);
`

// NewSQLiteStore opens (or creates) a SQLite database at dbPath, applies the
// schema and returns a ready-to-use SQLiteStore.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// A single connection keeps writers serialized and lets ":memory:"
	// databases survive across calls.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveRun inserts a run and its return series in one transaction.
func (s *SQLiteStore) SaveRun(ctx context.Context, run *domain.Run) error {
	tickers, err := json.Marshal(run.Tickers)
	if err != nil {
		return fmt.Errorf("encoding tickers: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, signal, tickers, start_date, end_date, cost_bps, q, created_at,
			ann_return, ann_vol, sharpe, max_drawdown, rebalances, total_turnover)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Signal, string(tickers), run.Start, run.End, run.CostBps, run.Q,
		run.CreatedAt.UnixMilli(),
		run.AnnualizedReturn, run.AnnualizedVol, run.Sharpe, run.MaxDrawdown,
		run.Rebalances, run.TotalTurnover,
	)
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO run_returns (run_id, date, value) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, dt := range run.Returns.Dates {
		if _, err := stmt.ExecContext(ctx, run.ID, dt.UnixMilli(), run.Returns.Values[i]); err != nil {
			return fmt.Errorf("inserting return %s: %w", dt.Format(domain.DateLayout), err)
		}
	}

	return tx.Commit()
}

// GetRun retrieves a run and its return series by ID.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*domain.Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	run.Returns, err = s.RunReturns(ctx, id)
	if err != nil {
		return nil, err
	}
	return run, nil
}

// RunReturns loads the daily strategy return series of a run in date order.
// An unknown ID yields an empty series.
func (s *SQLiteStore) RunReturns(ctx context.Context, id string) (domain.Series, error) {
	var series domain.Series
	rows, err := s.db.QueryContext(ctx,
		`SELECT date, value FROM run_returns WHERE run_id = ? ORDER BY date`, id)
	if err != nil {
		return series, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			ms int64
			v  float64
		)
		if err := rows.Scan(&ms, &v); err != nil {
			return series, err
		}
		series.Dates = append(series.Dates, time.UnixMilli(ms).UTC())
		series.Values = append(series.Values, v)
	}
	return series, rows.Err()
}

// ListRuns returns the most recent runs, newest first, up to limit.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]domain.Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []domain.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

const runColumns = `id, signal, tickers, start_date, end_date, cost_bps, q, created_at,
	ann_return, ann_vol, sharpe, max_drawdown, rebalances, total_turnover`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*domain.Run, error) {
	var (
		run     domain.Run
		tickers string
		created int64
	)
	err := sc.Scan(&run.ID, &run.Signal, &tickers, &run.Start, &run.End, &run.CostBps, &run.Q, &created,
		&run.AnnualizedReturn, &run.AnnualizedVol, &run.Sharpe, &run.MaxDrawdown,
		&run.Rebalances, &run.TotalTurnover)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(tickers), &run.Tickers); err != nil {
		return nil, fmt.Errorf("decoding tickers of run %s: %w", run.ID, err)
	}
	run.CreatedAt = time.UnixMilli(created).UTC()
	return &run, nil
}
