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

// Compile-time interface check.
var _ gather.Gatherer = (*BarGatherer)(nil)

// BarGatherer refreshes the local bar store for a fixed ticker list so that
// later backtests can run from the cache.
type BarGatherer struct {
	fetcher BarFetcher
	store   store.BarStore
	tickers []string
	rng     gather.DateRange
	log     *slog.Logger
}

// NewBarGatherer creates a BarGatherer for the request's tickers and range.
func NewBarGatherer(fetcher BarFetcher, s store.BarStore, req domain.PriceRequest) (*BarGatherer, error) {
	tickers, rng, err := ParseRequest(req)
	if err != nil {
		return nil, err
	}
	return &BarGatherer{
		fetcher: fetcher,
		store:   s,
		tickers: tickers,
		rng:     rng,
		log:     slog.Default().With("gatherer", "us-bars"),
	}, nil
}

// Name returns the gatherer identifier.
func (g *BarGatherer) Name() string { return "us-bars" }

// Run downloads bars for all tickers and merges them into the store.
func (g *BarGatherer) Run(ctx context.Context) error {
	started := time.Now()
	g.log.Info("gathering bars",
		"tickers", len(g.tickers),
		"start", g.rng.Start.Format(domain.DateLayout),
		"end", g.rng.End.Format(domain.DateLayout),
	)

	bars, err := g.fetcher.FetchBars(ctx, g.tickers, g.rng)
	if err != nil {
		return err
	}
	if len(bars) == 0 {
		return fmt.Errorf("%v: %w", g.tickers, ErrNoData)
	}
	if err := g.store.WriteBars(ctx, bars); err != nil {
		return fmt.Errorf("writing bars: %w", err)
	}

	g.log.Info("gather complete",
		"bars", len(bars),
		"elapsed", time.Since(started).Round(time.Millisecond),
	)
	return nil
}
