package us

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/samber/lo"

	"xsmom/internal/domain"
	"xsmom/internal/gather"
	"xsmom/internal/util"
)

// barsClient is the subset of the Alpaca market-data client used here.
type barsClient interface {
	GetMultiBars(symbols []string, req marketdata.GetBarsRequest) (map[string][]marketdata.Bar, error)
}

// Compile-time interface check.
var _ barsClient = (*marketdata.Client)(nil)

// AlpacaOptions tunes batching, throttling and retries of Alpaca requests.
type AlpacaOptions struct {
	Feed            marketdata.Feed // "sip" or "iex"
	BatchSize       int             // symbols per API call
	RateLimitPerMin int             // 0 disables throttling
	MaxRetries      int             // attempts per batch
	RetryDelay      time.Duration   // first backoff delay
}

func (o AlpacaOptions) withDefaults() AlpacaOptions {
	if o.Feed == "" {
		o.Feed = marketdata.SIP
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 100
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = 3
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = time.Second
	}
	return o
}

// AlpacaPriceSource loads split- and dividend-adjusted daily closes from the
// Alpaca market-data API.
type AlpacaPriceSource struct {
	client  barsClient
	opts    AlpacaOptions
	limiter *util.RateLimiter
	log     *slog.Logger
}

// NewAlpacaPriceSource creates an AlpacaPriceSource configured with the given
// Alpaca credentials. dataURL may be empty for the default endpoint.
func NewAlpacaPriceSource(apiKey, apiSecret, dataURL string, opts AlpacaOptions) *AlpacaPriceSource {
	clientOpts := marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if dataURL != "" {
		clientOpts.BaseURL = dataURL
	}
	return newAlpacaPriceSource(marketdata.NewClient(clientOpts), opts)
}

func newAlpacaPriceSource(client barsClient, opts AlpacaOptions) *AlpacaPriceSource {
	opts = opts.withDefaults()
	return &AlpacaPriceSource{
		client:  client,
		opts:    opts,
		limiter: util.NewRateLimiter(opts.RateLimitPerMin, 1),
		log:     slog.Default().With("component", "alpaca-prices"),
	}
}

// LoadAdjClose returns the adjusted close table for the request's tickers
// over [start, end). It fails with ErrInvalidRequest for a malformed request
// and ErrNoData when the provider returns no bars at all.
func (s *AlpacaPriceSource) LoadAdjClose(ctx context.Context, req domain.PriceRequest) (*domain.Table, error) {
	tickers, rng, err := ParseRequest(req)
	if err != nil {
		return nil, err
	}
	bars, err := s.FetchBars(ctx, tickers, rng)
	if err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%v %s..%s: %w", tickers, req.Start, req.End, ErrNoData)
	}
	return BarsToTable(bars, tickers), nil
}

// FetchBars downloads adjusted daily bars for symbols in batches. Bar
// timestamps are normalized to UTC midnight and bars outside rng are
// discarded.
func (s *AlpacaPriceSource) FetchBars(ctx context.Context, symbols []string, rng gather.DateRange) ([]domain.Bar, error) {
	var bars []domain.Bar
	batches := lo.Chunk(symbols, s.opts.BatchSize)
	for i, batch := range batches {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		var multiBars map[string][]marketdata.Bar
		err := util.Retry(ctx, s.opts.MaxRetries, s.opts.RetryDelay, func() error {
			var err error
			multiBars, err = s.client.GetMultiBars(batch, marketdata.GetBarsRequest{
				TimeFrame:  marketdata.OneDay,
				Adjustment: marketdata.All,
				Start:      rng.Start,
				End:        rng.End,
				Feed:       s.opts.Feed,
			})
			if err != nil {
				s.log.Warn("GetMultiBars failed", "batch", fmt.Sprintf("%d/%d", i+1, len(batches)), "err", err)
			}
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("GetMultiBars: %w", err)
		}

		for symbol, alpacaBars := range multiBars {
			for _, ab := range alpacaBars {
				day := domain.Day(ab.Timestamp)
				if !rng.Contains(day) {
					continue
				}
				bars = append(bars, domain.Bar{
					Symbol:     strings.ToUpper(symbol),
					Timestamp:  day,
					Open:       ab.Open,
					High:       ab.High,
					Low:        ab.Low,
					Close:      ab.Close,
					Volume:     int64(ab.Volume),
					TradeCount: int64(ab.TradeCount),
					VWAP:       ab.VWAP,
				})
			}
		}
	}

	s.log.Debug("fetched bars", "symbols", len(symbols), "bars", len(bars))
	return bars, nil
}
