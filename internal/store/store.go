// Package store defines storage interfaces for persisting and retrieving
// daily bars and backtest runs, with Parquet and SQLite implementations.
package store

import (
	"context"
	"errors"
	"time"

	"xsmom/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// BarStore persists and retrieves OHLCV bar data.
type BarStore interface {
	// WriteBars persists a batch of bars to storage.
	WriteBars(ctx context.Context, bars []domain.Bar) error

	// ReadBars returns bars for the given symbol and market within [start, end].
	ReadBars(ctx context.Context, symbol string, market string, start, end time.Time) ([]domain.Bar, error)

	// ListSymbols returns all distinct symbols available in the given market.
	ListSymbols(ctx context.Context, market string) ([]string, error)
}

// RunStore persists and retrieves backtest runs.
type RunStore interface {
	// SaveRun inserts a run together with its daily return series.
	SaveRun(ctx context.Context, run *domain.Run) error

	// GetRun retrieves a run and its return series by ID.
	GetRun(ctx context.Context, id string) (*domain.Run, error)

	// ListRuns returns the most recent runs, newest first, up to limit.
	// Return series are not loaded.
	ListRuns(ctx context.Context, limit int) ([]domain.Run, error)
}
