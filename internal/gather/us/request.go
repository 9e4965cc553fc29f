package us

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/samber/lo"

	"xsmom/internal/domain"
	"xsmom/internal/gather"
)

var (
	// ErrInvalidRequest is returned for a malformed price request.
	ErrInvalidRequest = errors.New("invalid price request")
	// ErrNoData is returned when no bars exist for the requested tickers
	// and range.
	ErrNoData = errors.New("no data returned; check tickers and date range")
)

// ParseRequest validates a price request. It returns the upper-cased,
// de-duplicated tickers in request order and the half-open date range.
func ParseRequest(req domain.PriceRequest) ([]string, gather.DateRange, error) {
	var rng gather.DateRange

	tickers := lo.Uniq(lo.FilterMap(req.Tickers, func(t string, _ int) (string, bool) {
		t = strings.ToUpper(strings.TrimSpace(t))
		return t, t != ""
	}))
	if len(tickers) == 0 {
		return nil, rng, fmt.Errorf("%w: no tickers", ErrInvalidRequest)
	}

	start, err := domain.ParseDate(req.Start)
	if err != nil {
		return nil, rng, fmt.Errorf("%w: start: %v", ErrInvalidRequest, err)
	}
	end, err := domain.ParseDate(req.End)
	if err != nil {
		return nil, rng, fmt.Errorf("%w: end: %v", ErrInvalidRequest, err)
	}
	if !start.Before(end) {
		return nil, rng, fmt.Errorf("%w: start %s is not before end %s", ErrInvalidRequest, req.Start, req.End)
	}

	rng.Start, rng.End = start, end
	return tickers, rng, nil
}

// BarsToTable builds a price table of close prices over the given symbols,
// one row per distinct bar day. Symbols defaults to the symbols present in
// bars, sorted. Rows with no price at all are dropped.
func BarsToTable(bars []domain.Bar, symbols []string) *domain.Table {
	if len(symbols) == 0 {
		symbols = lo.Uniq(lo.Map(bars, func(b domain.Bar, _ int) string { return b.Symbol }))
		slices.Sort(symbols)
	}
	dates := lo.Map(bars, func(b domain.Bar, _ int) time.Time { return domain.Day(b.Timestamp) })

	tbl := domain.NewTable(dates, symbols)
	for _, b := range bars {
		tbl.Set(b.Timestamp, b.Symbol, b.Close)
	}
	return tbl.DropEmptyRows()
}
