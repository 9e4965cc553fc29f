package us

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"xsmom/internal/domain"
)

// fakeBars serves canned bars per symbol and records each request.
type fakeBars struct {
	mu       sync.Mutex
	bars     map[string][]marketdata.Bar
	failures int // fail this many calls first
	calls    [][]string
	reqs     []marketdata.GetBarsRequest
}

func (f *fakeBars) GetMultiBars(symbols []string, req marketdata.GetBarsRequest) (map[string][]marketdata.Bar, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, symbols)
	f.reqs = append(f.reqs, req)
	if f.failures > 0 {
		f.failures--
		return nil, errors.New("503 service unavailable")
	}
	out := make(map[string][]marketdata.Bar)
	for _, s := range symbols {
		if b, ok := f.bars[s]; ok {
			out[s] = b
		}
	}
	return out, nil
}

// et4 is midnight ET expressed in UTC, the stamp Alpaca puts on daily bars.
func et4(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 4, 0, 0, 0, time.UTC)
}

func testBars() map[string][]marketdata.Bar {
	return map[string][]marketdata.Bar{
		"SPY": {
			{Timestamp: et4(2024, 1, 2), Close: 472.7, Volume: 100},
			{Timestamp: et4(2024, 1, 3), Close: 468.8, Volume: 90},
			{Timestamp: et4(2024, 1, 5), Close: 467.9, Volume: 80}, // end day, excluded
		},
		"QQQ": {
			{Timestamp: et4(2024, 1, 3), Close: 396.3},
		},
	}
}

func TestAlpacaLoadAdjClose(t *testing.T) {
	client := &fakeBars{bars: testBars()}
	src := newAlpacaPriceSource(client, AlpacaOptions{BatchSize: 1, RetryDelay: time.Millisecond})

	tbl, err := src.LoadAdjClose(context.Background(), domain.PriceRequest{
		Tickers: []string{"spy", "QQQ", "IWM"},
		Start:   "2024-01-01",
		End:     "2024-01-05",
	})
	if err != nil {
		t.Fatalf("LoadAdjClose: %v", err)
	}

	if len(client.calls) != 3 {
		t.Errorf("GetMultiBars called %d times, want 3 (one per batch)", len(client.calls))
	}
	req := client.reqs[0]
	if req.Adjustment != marketdata.All || req.TimeFrame != marketdata.OneDay || req.Feed != marketdata.SIP {
		t.Errorf("request = %+v", req)
	}

	if got := tbl.Symbols(); len(got) != 3 || got[0] != "SPY" || got[2] != "IWM" {
		t.Errorf("symbols = %v, want request order [SPY QQQ IWM]", got)
	}
	if tbl.Len() != 2 {
		t.Fatalf("rows = %d, want 2", tbl.Len())
	}
	jan3 := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)
	if !tbl.Dates()[1].Equal(jan3) {
		t.Errorf("dates not normalized to UTC midnight: %v", tbl.Dates())
	}
	if v, _ := tbl.Get(jan3, "QQQ"); v != 396.3 {
		t.Errorf("QQQ close = %v", v)
	}
	if _, ok := tbl.Get(tbl.Dates()[0], "QQQ"); ok {
		t.Error("QQQ should be undefined on Jan 2")
	}
}

func TestAlpacaRetries(t *testing.T) {
	client := &fakeBars{bars: testBars(), failures: 2}
	src := newAlpacaPriceSource(client, AlpacaOptions{MaxRetries: 3, RetryDelay: time.Millisecond})

	tbl, err := src.LoadAdjClose(context.Background(), domain.PriceRequest{
		Tickers: []string{"SPY"}, Start: "2024-01-01", End: "2024-02-01",
	})
	if err != nil {
		t.Fatalf("LoadAdjClose after transient failures: %v", err)
	}
	if tbl.Len() != 3 {
		t.Errorf("rows = %d, want 3", tbl.Len())
	}

	client = &fakeBars{bars: testBars(), failures: 5}
	src = newAlpacaPriceSource(client, AlpacaOptions{MaxRetries: 2, RetryDelay: time.Millisecond})
	if _, err := src.LoadAdjClose(context.Background(), domain.PriceRequest{
		Tickers: []string{"SPY"}, Start: "2024-01-01", End: "2024-02-01",
	}); err == nil {
		t.Error("LoadAdjClose should fail once retries are exhausted")
	}
}

func TestAlpacaNoData(t *testing.T) {
	src := newAlpacaPriceSource(&fakeBars{}, AlpacaOptions{})
	_, err := src.LoadAdjClose(context.Background(), domain.PriceRequest{
		Tickers: []string{"ZZZZ"}, Start: "2024-01-01", End: "2024-02-01",
	})
	if !errors.Is(err, ErrNoData) {
		t.Errorf("err = %v, want ErrNoData", err)
	}
}

func TestAlpacaInvalidRequest(t *testing.T) {
	client := &fakeBars{}
	src := newAlpacaPriceSource(client, AlpacaOptions{})
	_, err := src.LoadAdjClose(context.Background(), domain.PriceRequest{Start: "2024-01-01", End: "2024-02-01"})
	if !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("err = %v, want ErrInvalidRequest", err)
	}
	if len(client.calls) != 0 {
		t.Error("invalid request reached the API")
	}
}
