// Package domain defines the core data types shared across xsmom: price bars,
// date x symbol tables, weight vectors and return series.
package domain

import (
	"time"
)

// Market identifies the exchange group a symbol trades on.
type Market string

const (
	MarketUS Market = "us"
)

// DateLayout is the calendar-date format used by requests and configuration.
const DateLayout = "2006-01-02"

// Bar is a single daily OHLCV bar. Close is the adjusted close when the bar
// was fetched with split and dividend adjustment.
type Bar struct {
	Symbol     string
	Timestamp  time.Time
	Open       float64
	High       float64
	Low        float64
	Close      float64
	Volume     int64
	TradeCount int64
	VWAP       float64
}

// PriceRequest describes a block of daily prices to load: the instrument
// list and a [Start, End) date range in YYYY-MM-DD form.
type PriceRequest struct {
	Tickers []string
	Start   string
	End     string
}

// Weights maps a symbol to its signed fraction of capital. A weight vector
// produced by the strategy always spans the full symbol set.
type Weights map[string]float64

// Gross returns the sum of absolute weights.
func (w Weights) Gross() float64 {
	var g float64
	for _, v := range w {
		if v < 0 {
			g -= v
		} else {
			g += v
		}
	}
	return g
}

// Net returns the signed sum of weights.
func (w Weights) Net() float64 {
	var n float64
	for _, v := range w {
		n += v
	}
	return n
}

// Series is a date-indexed sequence of scalars, such as the daily strategy
// return series or its equity curve.
type Series struct {
	Dates  []time.Time
	Values []float64
}

// Len returns the number of observations.
func (s Series) Len() int { return len(s.Values) }

// Day truncates t to midnight UTC of its calendar date. Table keys and
// series dates are always day-normalized.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD date into a day-normalized time.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return Day(t), nil
}
