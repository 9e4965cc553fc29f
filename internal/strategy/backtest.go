package strategy

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"xsmom/internal/domain"
	"xsmom/internal/metrics"
	"xsmom/internal/store"
)

// PriceSource loads a table of adjusted close prices.
type PriceSource interface {
	LoadAdjClose(ctx context.Context, req domain.PriceRequest) (*domain.Table, error)
}

// RunRequest describes one backtest over a ticker universe and date range.
type RunRequest struct {
	Tickers      []string `json:"tickers"`
	Start        string   `json:"start"`
	End          string   `json:"end"`
	Signal       string   `json:"signal"`
	Params       Params   `json:"params"`
	RiskFreeRate float64  `json:"risk_free_rate"`
}

// BacktestResult holds the strategy series, its equity curve and the
// summary metrics produced by a backtest run.
type BacktestResult struct {
	Run     *domain.Run
	Result  *Result
	Equity  domain.Series
	Summary metrics.Summary
}

// Backtester loads prices, computes the requested signal, runs the
// monthly long/short engine and records the outcome.
type Backtester struct {
	prices   PriceSource
	registry *Registry
	runs     store.RunStore
	log      *slog.Logger
}

// NewBacktester creates a Backtester that reads prices from src and looks up
// signals in registry. runs may be nil, in which case results are not
// persisted.
func NewBacktester(src PriceSource, registry *Registry, runs store.RunStore) *Backtester {
	return &Backtester{
		prices:   src,
		registry: registry,
		runs:     runs,
		log:      slog.Default().With("component", "backtester"),
	}
}

// Run executes a backtest for the named signal over the requested tickers
// and date range.
func (bt *Backtester) Run(ctx context.Context, req RunRequest) (*BacktestResult, error) {
	if err := req.Params.Validate(); err != nil {
		return nil, err
	}
	sig, ok := bt.registry.Get(req.Signal)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSignal, req.Signal)
	}

	started := time.Now()
	bt.log.Info("backtest starting",
		"signal", req.Signal,
		"tickers", req.Tickers,
		"start", req.Start,
		"end", req.End,
		"costBps", req.Params.CostBps,
		"q", req.Params.Q,
	)

	prices, err := bt.prices.LoadAdjClose(ctx, domain.PriceRequest{
		Tickers: req.Tickers,
		Start:   req.Start,
		End:     req.End,
	})
	if err != nil {
		return nil, fmt.Errorf("loading prices: %w", err)
	}

	rets := Returns(prices)
	signal := sig.Compute(prices)

	out := Evaluate(rets, signal, req.Params, req.RiskFreeRate)
	out.Run.ID = uuid.NewString()
	out.Run.Signal = req.Signal
	out.Run.Tickers = append([]string(nil), req.Tickers...)
	out.Run.Start = req.Start
	out.Run.End = req.End
	out.Run.CreatedAt = time.Now().UTC()

	if bt.runs != nil {
		if err := bt.runs.SaveRun(ctx, out.Run); err != nil {
			return nil, fmt.Errorf("saving run %s: %w", out.Run.ID, err)
		}
	}

	bt.log.Info("backtest complete",
		"run", out.Run.ID,
		"days", out.Result.Returns.Len(),
		"rebalances", len(out.Result.Rebalances),
		"sharpe", out.Summary.Sharpe,
		"elapsed", time.Since(started).Round(time.Millisecond),
	)
	return out, nil
}

// Evaluate runs the engine on prepared returns and signal tables and
// summarizes the result. It performs no I/O.
func Evaluate(returns, signal *domain.Table, p Params, rf float64) *BacktestResult {
	res := BacktestMonthlyLongShort(returns, signal, p)
	sum := metrics.Summarize(res.Returns.Values, rf)
	return &BacktestResult{
		Run: &domain.Run{
			CostBps:          p.CostBps,
			Q:                p.Q,
			AnnualizedReturn: sum.AnnualizedReturn,
			AnnualizedVol:    sum.AnnualizedVol,
			Sharpe:           sum.Sharpe,
			MaxDrawdown:      sum.MaxDrawdown,
			Rebalances:       len(res.Rebalances),
			TotalTurnover:    res.TotalTurnover(),
			Returns:          res.Returns,
		},
		Result:  res,
		Equity:  metrics.EquitySeries(res.Returns),
		Summary: sum,
	}
}
