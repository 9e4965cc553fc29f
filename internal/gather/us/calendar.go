package us

import (
	"fmt"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"

	"xsmom/internal/domain"
	"xsmom/internal/util"
)

// CalendarClient is the subset of the Alpaca trading client that serves the
// market calendar.
type CalendarClient interface {
	GetCalendar(req alpaca.GetCalendarRequest) ([]alpaca.CalendarDay, error)
}

// NewCalendarClient creates an Alpaca trading API client for calendar
// lookups. baseURL may be empty for the default endpoint.
func NewCalendarClient(apiKey, apiSecret, baseURL string) *alpaca.Client {
	return alpaca.NewClient(alpaca.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
		BaseURL:   baseURL,
	})
}

// LatestFinishedTradingDay returns the most recent trading day, as of now,
// whose daily bar has settled according to cal.
func LatestFinishedTradingDay(client CalendarClient, cal *util.TradingCalendar, now time.Time) (time.Time, error) {
	now = now.In(cal.Location())
	days, err := client.GetCalendar(alpaca.GetCalendarRequest{
		Start: now.AddDate(0, 0, -7),
		End:   now,
	})
	if err != nil {
		return time.Time{}, fmt.Errorf("GetCalendar: %w", err)
	}
	if len(days) == 0 {
		return time.Time{}, fmt.Errorf("no trading days returned from calendar")
	}

	for i := len(days) - 1; i >= 0; i-- {
		day, err := time.Parse(domain.DateLayout, days[i].Date)
		if err != nil {
			continue
		}
		if cal.Settled(day, now) {
			return day, nil
		}
	}
	return time.Time{}, fmt.Errorf("could not determine latest finished trading day")
}
