package strategy

import (
	"errors"
	"fmt"
	"time"

	"xsmom/internal/domain"
)

// DefaultCostBps is the linear transaction cost, in basis points of traded
// notional, charged per unit of turnover.
const DefaultCostBps = 5.0

// ErrInvalidParams is returned when backtest parameters are out of range.
var ErrInvalidParams = errors.New("invalid backtest parameters")

// Params configures the monthly long/short backtest.
type Params struct {
	CostBps float64 `json:"cost_bps"`
	Q       float64 `json:"q"`
}

// DefaultParams returns 5 bps costs and tercile buckets.
func DefaultParams() Params {
	return Params{CostBps: DefaultCostBps, Q: DefaultQuantile}
}

// Validate checks that Q lies in (0, 0.5] and CostBps is non-negative.
func (p Params) Validate() error {
	if !(p.Q > 0 && p.Q <= 0.5) {
		return fmt.Errorf("%w: q=%v must be in (0, 0.5]", ErrInvalidParams, p.Q)
	}
	if p.CostBps < 0 {
		return fmt.Errorf("%w: cost_bps=%v must be >= 0", ErrInvalidParams, p.CostBps)
	}
	return nil
}

// Rebalance records one reweighting of the portfolio.
type Rebalance struct {
	Date     time.Time
	Turnover float64
	Cost     float64
	Weights  domain.Weights
}

// Result is the output of a backtest run: one strategy return per date of
// the returns table, plus the rebalance trace.
type Result struct {
	Returns    domain.Series
	Rebalances []Rebalance
}

// TotalTurnover sums turnover over all rebalances.
func (r *Result) TotalTurnover() float64 {
	var t float64
	for _, rb := range r.Rebalances {
		t += rb.Turnover
	}
	return t
}

// BacktestMonthlyLongShort runs the monthly-rebalanced long/short strategy.
//
// The signal is first aligned onto the returns table. On the last trading
// date of each month the portfolio is reweighted from that date's signal row
// and a cost of CostBps/10000 per unit of turnover is deducted from the same
// day's return. Between rebalances the weights are held unchanged. Undefined
// returns contribute nothing to the day's portfolio return.
//
// The function is a pure fold over the returns dates: identical inputs give
// bit-identical outputs.
func BacktestMonthlyLongShort(returns, signal *domain.Table, p Params) *Result {
	aligned := Align(signal, returns)
	dates := returns.Dates()
	symbols := returns.Symbols()

	rebalDays := make(map[time.Time]struct{})
	for _, d := range MonthEndDates(dates) {
		rebalDays[d] = struct{}{}
	}

	current := make(domain.Weights, len(symbols))
	for _, sym := range symbols {
		current[sym] = 0
	}
	costRate := p.CostBps / 10000.0

	res := &Result{
		Returns: domain.Series{
			Dates:  append([]time.Time(nil), dates...),
			Values: make([]float64, len(dates)),
		},
	}

	for i, dt := range dates {
		_, rebalance := rebalDays[dt]

		var cost float64
		if rebalance {
			next := LongShortWeights(aligned.RowAt(i), symbols, p.Q)
			turnover := Turnover(current, next)
			cost = costRate * turnover
			current = next
			res.Rebalances = append(res.Rebalances, Rebalance{
				Date:     dt,
				Turnover: turnover,
				Cost:     cost,
				Weights:  next,
			})
		}

		row := returns.RowAt(i)
		var r float64
		for _, sym := range symbols {
			if v, ok := row[sym]; ok {
				r += current[sym] * v
			}
		}
		if rebalance {
			r -= cost
		}
		res.Returns.Values[i] = r
	}
	return res
}
