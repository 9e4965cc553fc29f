package strategy

import (
	"context"
	"runtime"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"xsmom/internal/domain"
)

// SweepResult pairs one parameter set with its evaluated backtest.
type SweepResult struct {
	Params Params
	*BacktestResult
}

// Grid returns the cartesian product of cost and quantile settings, costs
// varying slowest.
func Grid(costBps, qs []float64) []Params {
	grid := make([]Params, 0, len(costBps)*len(qs))
	for _, c := range costBps {
		for _, q := range qs {
			grid = append(grid, Params{CostBps: c, Q: q})
		}
	}
	return grid
}

// Sweep evaluates every parameter set in grid against the same returns and
// signal tables. Invocations share no state, so they run concurrently with
// at most limit in flight (GOMAXPROCS when limit <= 0). Results keep grid
// order. The first invalid parameter set aborts the sweep.
func Sweep(ctx context.Context, returns, signal *domain.Table, grid []Params, rf float64, limit int) ([]SweepResult, error) {
	for _, p := range grid {
		if err := p.Validate(); err != nil {
			return nil, err
		}
	}
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}

	results := make([]SweepResult, len(grid))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, p := range grid {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = SweepResult{Params: p, BacktestResult: Evaluate(returns, signal, p, rf)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Best returns the sweep result with the highest Sharpe ratio. Ties keep the
// earliest grid entry. It reports false for an empty sweep.
func Best(results []SweepResult) (SweepResult, bool) {
	if len(results) == 0 {
		return SweepResult{}, false
	}
	return lo.MaxBy(results, func(a, b SweepResult) bool {
		return a.Summary.Sharpe > b.Summary.Sharpe
	}), true
}
