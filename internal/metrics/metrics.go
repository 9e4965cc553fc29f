// Package metrics computes risk and return statistics of a daily return
// series: annualized return and volatility, Sharpe ratio and maximum
// drawdown of the cumulative wealth curve.
package metrics

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"xsmom/internal/domain"
)

// TradingDaysPerYear is the annualization factor for daily data.
const TradingDaysPerYear = 252

// Summary bundles the headline statistics of a return series.
type Summary struct {
	AnnualizedReturn float64 `json:"ann_return"`
	AnnualizedVol    float64 `json:"ann_vol"`
	Sharpe           float64 `json:"sharpe"`
	MaxDrawdown      float64 `json:"max_drawdown"`
}

// AnnualizedReturn compounds the series and scales the growth to a 252-day
// year.
func AnnualizedReturn(r []float64) float64 {
	if len(r) == 0 {
		return 0
	}
	growth := 1.0
	for _, v := range r {
		growth *= 1 + v
	}
	return math.Pow(growth, TradingDaysPerYear/float64(len(r))) - 1
}

// AnnualizedVol is the sample standard deviation scaled by sqrt(252).
func AnnualizedVol(r []float64) float64 {
	if len(r) < 2 {
		return 0
	}
	return stat.StdDev(r, nil) * math.Sqrt(TradingDaysPerYear)
}

// SharpeRatio is the annualized mean excess return over its standard
// deviation. rf is an annual risk-free rate, de-annualized per day. A
// series with zero dispersion has a Sharpe of 0.
func SharpeRatio(r []float64, rf float64) float64 {
	if len(r) < 2 {
		return 0
	}
	sd := stat.StdDev(r, nil)
	if sd == 0 || math.IsNaN(sd) {
		return 0
	}
	excess := stat.Mean(r, nil) - rf/TradingDaysPerYear
	return excess / sd * math.Sqrt(TradingDaysPerYear)
}

// EquityCurve returns the cumulative product of (1 + r).
func EquityCurve(r []float64) []float64 {
	out := make([]float64, len(r))
	if len(r) == 0 {
		return out
	}
	for i, v := range r {
		out[i] = 1 + v
	}
	floats.CumProd(out, out)
	return out
}

// EquitySeries is EquityCurve over a dated series.
func EquitySeries(s domain.Series) domain.Series {
	return domain.Series{
		Dates:  append(s.Dates[:0:0], s.Dates...),
		Values: EquityCurve(s.Values),
	}
}

// MaxDrawdown returns the worst peak-to-trough decline of a wealth curve,
// as a non-positive fraction.
func MaxDrawdown(equity []float64) float64 {
	var (
		peak  = math.Inf(-1)
		worst float64
	)
	for _, v := range equity {
		peak = math.Max(peak, v)
		if dd := v/peak - 1; dd < worst {
			worst = dd
		}
	}
	return worst
}

// Summarize computes the Summary of a daily return series with annual
// risk-free rate rf.
func Summarize(r []float64, rf float64) Summary {
	return Summary{
		AnnualizedReturn: AnnualizedReturn(r),
		AnnualizedVol:    AnnualizedVol(r),
		Sharpe:           SharpeRatio(r, rf),
		MaxDrawdown:      MaxDrawdown(EquityCurve(r)),
	}
}
