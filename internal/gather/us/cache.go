package us

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"xsmom/internal/domain"
	"xsmom/internal/gather"
	"xsmom/internal/store"
)

// BarFetcher downloads daily bars for a set of symbols.
type BarFetcher interface {
	FetchBars(ctx context.Context, symbols []string, rng gather.DateRange) ([]domain.Bar, error)
}

// Compile-time interface check.
var _ BarFetcher = (*AlpacaPriceSource)(nil)

// edgeSlack is how far the first or last cached bar may sit inside the
// requested range before the cache counts as incomplete. It spans a long
// weekend plus a holiday.
const edgeSlack = 4 * 24 * time.Hour

// CachedPriceSource serves adjusted closes from a local bar store. Symbols
// whose cached bars do not cover the requested range are fetched from
// upstream over the whole range and merged back into the store. A nil
// upstream makes the source offline-only.
type CachedPriceSource struct {
	store    store.BarStore
	upstream BarFetcher
	now      func() time.Time
	log      *slog.Logger
}

// NewCachedPriceSource creates a CachedPriceSource over s.
func NewCachedPriceSource(s store.BarStore, upstream BarFetcher) *CachedPriceSource {
	return &CachedPriceSource{
		store:    s,
		upstream: upstream,
		now:      time.Now,
		log:      slog.Default().With("component", "cached-prices"),
	}
}

// LoadAdjClose returns the adjusted close table for the request, filling
// cache misses from upstream.
func (c *CachedPriceSource) LoadAdjClose(ctx context.Context, req domain.PriceRequest) (*domain.Table, error) {
	tickers, rng, err := ParseRequest(req)
	if err != nil {
		return nil, err
	}

	var (
		bars    []domain.Bar
		missing []string
	)
	for _, sym := range tickers {
		cached, err := c.store.ReadBars(ctx, sym, string(domain.MarketUS), rng.Start, rng.LastDay())
		if err != nil {
			return nil, fmt.Errorf("reading cached bars for %s: %w", sym, err)
		}
		bars = append(bars, cached...)
		if !c.covers(cached, rng) {
			missing = append(missing, sym)
		}
	}

	if len(missing) > 0 && c.upstream != nil {
		c.log.Info("cache incomplete, fetching upstream", "symbols", missing)
		fetched, err := c.upstream.FetchBars(ctx, missing, rng)
		if err != nil {
			return nil, err
		}
		if len(fetched) > 0 {
			if err := c.store.WriteBars(ctx, fetched); err != nil {
				return nil, fmt.Errorf("caching bars: %w", err)
			}
		}
		// Appended after the cached bars so fetched closes win on shared dates.
		bars = append(bars, fetched...)
	} else if len(missing) > 0 {
		c.log.Warn("serving incomplete cached history offline", "symbols", missing)
	}

	if len(bars) == 0 {
		return nil, fmt.Errorf("%v %s..%s: %w", tickers, req.Start, req.End, ErrNoData)
	}
	return BarsToTable(bars, tickers), nil
}

// covers reports whether bars reach both ends of rng. The far end is capped
// at yesterday so a range running into the future does not refetch forever.
func (c *CachedPriceSource) covers(bars []domain.Bar, rng gather.DateRange) bool {
	if len(bars) == 0 {
		return false
	}
	first, last := bars[0].Timestamp, bars[0].Timestamp
	for _, b := range bars[1:] {
		if b.Timestamp.Before(first) {
			first = b.Timestamp
		}
		if b.Timestamp.After(last) {
			last = b.Timestamp
		}
	}
	end := rng.LastDay()
	if yesterday := domain.Day(c.now()).AddDate(0, 0, -1); yesterday.Before(end) {
		end = yesterday
	}
	return first.Sub(rng.Start) <= edgeSlack && end.Sub(last) <= edgeSlack
}
