package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"xsmom/internal/gather/us"
	"xsmom/internal/store"
	"xsmom/internal/strategy"
	"xsmom/internal/strategy/builtins"
)

// alpacaSource returns the Alpaca price source, or nil without credentials.
func (a *app) alpacaSource() *us.AlpacaPriceSource {
	if a.cfg.Alpaca.APIKey == "" || a.cfg.Alpaca.APISecret == "" {
		return nil
	}
	return us.NewAlpacaPriceSource(a.cfg.Alpaca.APIKey, a.cfg.Alpaca.APISecret, a.cfg.Alpaca.DataURL, us.AlpacaOptions{
		Feed:            marketdata.Feed(a.cfg.Alpaca.Feed),
		BatchSize:       a.cfg.Gather.BatchSize,
		RateLimitPerMin: a.cfg.Gather.RateLimitPerMin,
		MaxRetries:      a.cfg.Gather.MaxRetries,
	})
}

// priceSource serves prices from the local bar cache, filling misses from
// Alpaca unless offline is set or no credentials are configured.
func (a *app) priceSource(offline bool) strategy.PriceSource {
	var upstream us.BarFetcher
	if !offline {
		if src := a.alpacaSource(); src != nil {
			upstream = src
		} else {
			a.log.Warn("no Alpaca credentials; serving prices from the local cache only")
		}
	}
	return us.NewCachedPriceSource(store.NewParquetStore(a.cfg.Storage.DataDir), upstream)
}

// openRuns opens the SQLite run registry, creating its directory.
func (a *app) openRuns() (*store.SQLiteStore, error) {
	path := a.cfg.Storage.SQLitePath
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}
	return store.NewSQLiteStore(path)
}

// registry returns the signal registry with the built-in signals.
func registry() *strategy.Registry {
	r := strategy.NewRegistry()
	builtins.RegisterDefaults(r)
	return r
}
