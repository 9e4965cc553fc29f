// Package builtins provides the signal implementations that ship with
// xsmom.
package builtins

import (
	"xsmom/internal/domain"
	"xsmom/internal/strategy"
)

// Compile-time interface check.
var _ strategy.Signal = (*Momentum)(nil)

const (
	// TradingDaysPerMonth approximates one month of sessions.
	TradingDaysPerMonth = 21
	// TradingDaysPerYear approximates one year of sessions.
	TradingDaysPerYear = 252
)

// Momentum scores each symbol by its trailing return from lookback sessions
// ago up to skip sessions ago: p[t-skip]/p[t-lookback] - 1. Skipping the
// most recent stretch avoids the short-term reversal effect.
type Momentum struct {
	name     string
	lookback int
	skip     int
}

// NewMomentum creates a momentum signal with the given row offsets. skip
// must be smaller than lookback.
func NewMomentum(name string, lookback, skip int) *Momentum {
	return &Momentum{
		name:     name,
		lookback: lookback,
		skip:     skip,
	}
}

// NewMomentum12m1m returns the classic 12-month momentum that skips the
// latest month.
func NewMomentum12m1m() *Momentum {
	return NewMomentum("mom-12-1", TradingDaysPerYear, TradingDaysPerMonth)
}

// Name returns the signal identifier, e.g. "mom-12-1".
func (m *Momentum) Name() string {
	return m.name
}

// Compute returns the momentum table. Offsets are positional over the
// price table's rows, so a symbol needs lookback rows of history and both
// lagged prices defined.
func (m *Momentum) Compute(prices *domain.Table) *domain.Table {
	dates := prices.Dates()
	out := domain.NewTable(dates, prices.Symbols())
	for _, sym := range prices.Symbols() {
		px, ok := prices.Column(sym)
		for i := m.lookback; i < len(dates); i++ {
			recent, base := i-m.skip, i-m.lookback
			if !ok[recent] || !ok[base] || px[base] == 0 {
				continue
			}
			out.Set(dates[i], sym, px[recent]/px[base]-1)
		}
	}
	return out
}

// RegisterDefaults adds the built-in signals to r.
func RegisterDefaults(r *strategy.Registry) {
	r.Register(NewMomentum12m1m())
}
