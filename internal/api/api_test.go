package api

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"xsmom/internal/config"
	"xsmom/internal/domain"
	"xsmom/internal/gather/us"
	"xsmom/internal/store"
	"xsmom/internal/strategy"
	"xsmom/pkg/xsmom"
)

// fakePrices grows A, keeps B flat and shrinks C on every weekday of the
// request range.
type fakePrices struct{}

func (fakePrices) LoadAdjClose(_ context.Context, req domain.PriceRequest) (*domain.Table, error) {
	tickers, rng, err := us.ParseRequest(req)
	if err != nil {
		return nil, err
	}
	var dates []time.Time
	for d := rng.Start; d.Before(rng.End); d = d.AddDate(0, 0, 1) {
		if d.Weekday() != time.Saturday && d.Weekday() != time.Sunday {
			dates = append(dates, d)
		}
	}
	px := domain.NewTable(dates, tickers)
	for j, sym := range tickers {
		growth := 1 + 0.001*float64(1-j)
		v := 100.0
		for _, d := range dates {
			px.Set(d, sym, v)
			v *= growth
		}
	}
	return px, nil
}

// lastPrice ranks symbols by their latest price.
type lastPrice struct{}

func (lastPrice) Name() string { return "last" }

func (lastPrice) Compute(p *domain.Table) *domain.Table { return p }

func newTestServer(t *testing.T) (*Server, *Metrics) {
	t.Helper()
	runs, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { runs.Close() })

	reg := strategy.NewRegistry()
	reg.Register(lastPrice{})
	bt := strategy.NewBacktester(fakePrices{}, reg, runs)

	defaults := config.Default().Backtest
	defaults.Signal = "last"
	defaults.Tickers = []string{"A", "B", "C"}
	defaults.Start, defaults.End = "2023-01-01", "2023-07-01"

	m := NewMetrics()
	return NewServer(config.Default().Server, NewService(bt, runs, defaults, m), m), m
}

func TestRunRequestDefaults(t *testing.T) {
	svc := NewService(nil, nil, config.Default().Backtest, nil)

	got := svc.RunRequest(xsmom.BacktestRequest{})
	if got.Signal != "mom-12-1" || len(got.Tickers) != 3 || got.Params.CostBps != 5 || got.Params.Q != 1.0/3.0 {
		t.Errorf("defaults = %+v", got)
	}

	got = svc.RunRequest(xsmom.BacktestRequest{CostBps: xsmom.Float(0), Q: xsmom.Float(0.5), Start: "2020-01-01"})
	if got.Params.CostBps != 0 || got.Params.Q != 0.5 || got.Start != "2020-01-01" || got.End != "2024-01-01" {
		t.Errorf("overrides = %+v", got)
	}
}

func TestHTTPBacktestLifecycle(t *testing.T) {
	srv, m := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	body, _ := json.Marshal(xsmom.BacktestRequest{Q: xsmom.Float(0.34)})
	resp, err := http.Post(ts.URL+"/api/v1/backtest", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST backtest: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}
	var run xsmom.Run
	if err := json.NewDecoder(resp.Body).Decode(&run); err != nil {
		t.Fatalf("decoding run: %v", err)
	}
	if run.ID == "" || run.Rebalances != 6 || len(run.Returns) == 0 {
		t.Errorf("run = id %q rebalances %d returns %d", run.ID, run.Rebalances, len(run.Returns))
	}
	if run.AnnualizedReturn <= 0 {
		t.Errorf("ann return = %v, want positive", run.AnnualizedReturn)
	}
	if loc := resp.Header.Get("Location"); loc != "/api/v1/runs/"+run.ID {
		t.Errorf("Location = %q", loc)
	}

	c := xsmom.NewClient(ts.URL)
	got, err := c.GetRun(context.Background(), run.ID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if len(got.Returns) != len(run.Returns) || got.Sharpe != run.Sharpe {
		t.Errorf("stored run differs: %d returns, sharpe %v vs %v", len(got.Returns), got.Sharpe, run.Sharpe)
	}

	list, err := c.ListRuns(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(list) != 1 || list[0].ID != run.ID || len(list[0].Returns) != 0 {
		t.Errorf("ListRuns = %+v", list)
	}

	if got := testutil.ToFloat64(m.runsTotal.WithLabelValues(classOK)); got != 1 {
		t.Errorf("runs_total{outcome=ok} = %v, want 1", got)
	}
}

func TestHTTPErrors(t *testing.T) {
	srv, m := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"bad json", http.MethodPost, "/api/v1/backtest", "{", http.StatusBadRequest},
		{"unknown field", http.MethodPost, "/api/v1/backtest", `{"lookback":12}`, http.StatusBadRequest},
		{"bad q", http.MethodPost, "/api/v1/backtest", `{"q":0.9}`, http.StatusBadRequest},
		{"unknown signal", http.MethodPost, "/api/v1/backtest", `{"signal":"nope"}`, http.StatusBadRequest},
		{"bad dates", http.MethodPost, "/api/v1/backtest", `{"start":"2024-01-01","end":"2023-01-01"}`, http.StatusBadRequest},
		{"missing run", http.MethodGet, "/api/v1/runs/nope", "", http.StatusNotFound},
		{"bad limit", http.MethodGet, "/api/v1/runs?limit=x", "", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest(tt.method, ts.URL+tt.path, strings.NewReader(tt.body))
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatalf("%s %s: %v", tt.method, tt.path, err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
			var e xsmom.ErrorResponse
			if err := json.NewDecoder(resp.Body).Decode(&e); err != nil || e.Error == "" {
				t.Errorf("error body = %+v, %v", e, err)
			}
		})
	}

	if got := testutil.ToFloat64(m.runsTotal.WithLabelValues(classInvalid)); got != 3 {
		t.Errorf("runs_total{outcome=invalid} = %v, want 3", got)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/api/v1/backtest", "application/json", strings.NewReader(`{}`))
	if err != nil {
		t.Fatalf("POST backtest: %v", err)
	}
	resp.Body.Close()

	resp, err = http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	var buf bytes.Buffer
	buf.ReadFrom(resp.Body)
	for _, want := range []string{
		`xsmom_backtest_runs_total{outcome="ok"} 1`,
		"xsmom_backtest_run_duration_seconds_count 1",
		`xsmom_api_requests_total{method="RunBacktest",outcome="ok",transport="http"} 1`,
	} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("/metrics missing %q", want)
		}
	}
}

func TestGRPCBacktestService(t *testing.T) {
	srv, _ := newTestServer(t)

	lis := bufconn.Listen(1 << 20)
	go srv.GRPCServer().Serve(lis)
	defer srv.GRPCServer().Stop()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("grpc.NewClient: %v", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client := NewBacktestClient(conn)

	run, err := client.RunBacktest(ctx, xsmom.BacktestRequest{CostBps: xsmom.Float(0)})
	if err != nil {
		t.Fatalf("RunBacktest: %v", err)
	}
	if run.ID == "" || run.CostBps != 0 || run.Rebalances != 6 || len(run.Tickers) != 3 {
		t.Errorf("run = %+v", run)
	}

	got, err := client.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.ID != run.ID || len(got.Returns) != len(run.Returns) {
		t.Errorf("GetRun = id %q, %d returns", got.ID, len(got.Returns))
	}

	if _, err := client.GetRun(ctx, "nope"); status.Code(err) != codes.NotFound {
		t.Errorf("GetRun(nope) code = %v, want NotFound", status.Code(err))
	}
	if _, err := client.GetRun(ctx, ""); status.Code(err) != codes.InvalidArgument {
		t.Errorf("GetRun(\"\") code = %v, want InvalidArgument", status.Code(err))
	}
	if _, err := client.RunBacktest(ctx, xsmom.BacktestRequest{Q: xsmom.Float(0)}); status.Code(err) != codes.InvalidArgument {
		t.Errorf("RunBacktest(q=0) code = %v, want InvalidArgument", status.Code(err))
	}
}

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	writeJSON(rec, http.StatusCreated, xsmom.Run{ID: "r1"})
	if rec.Code != http.StatusCreated {
		t.Errorf("status = %d, want 201", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	var run xsmom.Run
	if err := json.Unmarshal(rec.Body.Bytes(), &run); err != nil || run.ID != "r1" {
		t.Errorf("body = %q, err = %v", rec.Body.String(), err)
	}
}

func TestWriteJSONEncodeFailure(t *testing.T) {
	rec := httptest.NewRecorder()
	rec.Header().Set("Location", "/api/v1/runs/r1")
	writeJSON(rec, http.StatusCreated, map[string]float64{"ann_return": math.NaN()})

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if rec.Header().Get("Location") != "" {
		t.Errorf("Location still set on failed response")
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	var e xsmom.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &e); err != nil || !strings.Contains(e.Error, "encoding response") {
		t.Errorf("body = %q, err = %v", rec.Body.String(), err)
	}
}
