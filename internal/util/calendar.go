package util

import (
	"fmt"
	"time"
	_ "time/tzdata" // Session times need exchange zones on hosts without zoneinfo.

	"xsmom/internal/domain"
)

// TradingCalendar knows the session timing of one market: its time zone
// and the hour after which a day's bars are final.
type TradingCalendar struct {
	market  domain.Market
	loc     *time.Location
	settled time.Duration // offset from local midnight
}

// NewTradingCalendar creates a TradingCalendar for the given market. US bars
// settle at 20:05 ET, after the extended-hours session.
func NewTradingCalendar(market domain.Market) (*TradingCalendar, error) {
	switch market {
	case domain.MarketUS:
		loc, err := time.LoadLocation("America/New_York")
		if err != nil {
			return nil, fmt.Errorf("loading ET timezone: %w", err)
		}
		return &TradingCalendar{market: market, loc: loc, settled: 20*time.Hour + 5*time.Minute}, nil
	default:
		return nil, fmt.Errorf("unsupported market %q", market)
	}
}

// Location returns the exchange time zone.
func (tc *TradingCalendar) Location() *time.Location { return tc.loc }

// Settled reports whether the session of the given calendar day has produced
// its final daily bar as of now.
func (tc *TradingCalendar) Settled(day, now time.Time) bool {
	local := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, tc.loc)
	return !now.Before(local.Add(tc.settled))
}

// PrevWeekday returns the closest Monday-to-Friday day strictly before t.
func PrevWeekday(t time.Time) time.Time {
	d := domain.Day(t).AddDate(0, 0, -1)
	for d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
		d = d.AddDate(0, 0, -1)
	}
	return d
}
