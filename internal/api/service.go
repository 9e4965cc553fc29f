// Package api exposes backtests over HTTP and gRPC, with Prometheus metrics.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"xsmom/internal/config"
	"xsmom/internal/domain"
	"xsmom/internal/gather/us"
	"xsmom/internal/store"
	"xsmom/internal/strategy"
	"xsmom/pkg/xsmom"
)

// Service runs and looks up backtests on behalf of both transports.
type Service struct {
	bt       *strategy.Backtester
	runs     store.RunStore
	defaults config.BacktestConfig
	metrics  *Metrics
	log      *slog.Logger
}

// NewService creates a Service. Requests fall back to defaults for omitted
// fields. runs serves run lookups and may be nil.
func NewService(bt *strategy.Backtester, runs store.RunStore, defaults config.BacktestConfig, m *Metrics) *Service {
	return &Service{
		bt:       bt,
		runs:     runs,
		defaults: defaults,
		metrics:  m,
		log:      slog.Default().With("component", "api"),
	}
}

// RunRequest resolves an API request against the configured defaults.
func (s *Service) RunRequest(req xsmom.BacktestRequest) strategy.RunRequest {
	out := strategy.RunRequest{
		Tickers:      req.Tickers,
		Start:        req.Start,
		End:          req.End,
		Signal:       req.Signal,
		Params:       strategy.Params{CostBps: s.defaults.CostBps, Q: s.defaults.Q},
		RiskFreeRate: s.defaults.RiskFreeRate,
	}
	if len(out.Tickers) == 0 {
		out.Tickers = s.defaults.Tickers
	}
	if out.Start == "" {
		out.Start = s.defaults.Start
	}
	if out.End == "" {
		out.End = s.defaults.End
	}
	if out.Signal == "" {
		out.Signal = s.defaults.Signal
	}
	if req.CostBps != nil {
		out.Params.CostBps = *req.CostBps
	}
	if req.Q != nil {
		out.Params.Q = *req.Q
	}
	if req.RiskFreeRate != nil {
		out.RiskFreeRate = *req.RiskFreeRate
	}
	return out
}

// RunBacktest runs and records one backtest.
func (s *Service) RunBacktest(ctx context.Context, req xsmom.BacktestRequest) (*domain.Run, error) {
	started := time.Now()
	res, err := s.bt.Run(ctx, s.RunRequest(req))
	s.metrics.observeRun(outcome(err), time.Since(started))
	if err != nil {
		s.log.Warn("backtest failed", "err", err)
		return nil, err
	}
	return res.Run, nil
}

// GetRun returns a stored run with its return series.
func (s *Service) GetRun(ctx context.Context, id string) (*domain.Run, error) {
	if s.runs == nil {
		return nil, fmt.Errorf("run %s: %w", id, store.ErrNotFound)
	}
	return s.runs.GetRun(ctx, id)
}

// ListRuns returns the most recent stored runs.
func (s *Service) ListRuns(ctx context.Context, limit int) ([]domain.Run, error) {
	if s.runs == nil {
		return nil, nil
	}
	return s.runs.ListRuns(ctx, limit)
}

// Error classes shared by the HTTP and gRPC mappings.
const (
	classOK        = "ok"
	classInvalid   = "invalid"
	classNotFound  = "not_found"
	classNoData    = "no_data"
	classCancelled = "cancelled"
	classInternal  = "error"
)

// outcome classifies err for metrics and status mapping.
func outcome(err error) string {
	switch {
	case err == nil:
		return classOK
	case errors.Is(err, strategy.ErrInvalidParams),
		errors.Is(err, strategy.ErrUnknownSignal),
		errors.Is(err, us.ErrInvalidRequest):
		return classInvalid
	case errors.Is(err, store.ErrNotFound):
		return classNotFound
	case errors.Is(err, us.ErrNoData):
		return classNoData
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return classCancelled
	default:
		return classInternal
	}
}

// toWire converts a run to its API form. The return series is included
// when withReturns is set.
func toWire(r *domain.Run, withReturns bool) xsmom.Run {
	out := xsmom.Run{
		ID:               r.ID,
		Signal:           r.Signal,
		Tickers:          r.Tickers,
		Start:            r.Start,
		End:              r.End,
		CostBps:          r.CostBps,
		Q:                r.Q,
		CreatedAt:        r.CreatedAt,
		AnnualizedReturn: r.AnnualizedReturn,
		AnnualizedVol:    r.AnnualizedVol,
		Sharpe:           r.Sharpe,
		MaxDrawdown:      r.MaxDrawdown,
		Rebalances:       r.Rebalances,
		TotalTurnover:    r.TotalTurnover,
	}
	if withReturns {
		out.Returns = make([]xsmom.Point, r.Returns.Len())
		for i, dt := range r.Returns.Dates {
			out.Returns[i] = xsmom.Point{Date: dt.Format(domain.DateLayout), Value: r.Returns.Values[i]}
		}
	}
	return out
}
