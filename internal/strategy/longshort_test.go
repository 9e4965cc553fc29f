package strategy

import (
	"errors"
	"maps"
	"math"
	"testing"
	"time"

	"xsmom/internal/domain"
)

var abc = []string{"A", "B", "C"}

// rankedSignal scores A > B > C on every date.
func rankedSignal(dates []time.Time) *domain.Table {
	score := map[string]float64{"A": 3, "B": 2, "C": 1}
	return fill(dates, abc, func(_ int, s string) float64 { return score[s] })
}

func TestParamsValidate(t *testing.T) {
	if err := DefaultParams().Validate(); err != nil {
		t.Fatalf("DefaultParams().Validate() = %v", err)
	}
	bad := []Params{
		{CostBps: 5, Q: 0},
		{CostBps: 5, Q: 0.51},
		{CostBps: 5, Q: math.NaN()},
		{CostBps: -1, Q: 0.25},
	}
	for _, p := range bad {
		if err := p.Validate(); !errors.Is(err, ErrInvalidParams) {
			t.Errorf("Validate(%+v) = %v, want ErrInvalidParams", p, err)
		}
	}
}

func TestBacktestZeroReturnsThirteenMonths(t *testing.T) {
	dates := businessDays(d(2023, 1, 1), d(2024, 2, 1))
	rets := fill(dates, abc, func(int, string) float64 { return 0 })
	sig := rankedSignal(dates)

	p := Params{CostBps: 5, Q: 1.0 / 3.0}
	res := BacktestMonthlyLongShort(rets, sig, p)

	if res.Returns.Len() != len(dates) {
		t.Fatalf("len(Returns) = %d, want %d", res.Returns.Len(), len(dates))
	}
	if len(res.Rebalances) != 13 {
		t.Fatalf("rebalances = %d, want 13", len(res.Rebalances))
	}

	for i, rb := range res.Rebalances {
		if rb.Weights["A"] != 0.5 || rb.Weights["B"] != 0 || rb.Weights["C"] != -0.5 {
			t.Errorf("rebalance %d weights = %v", i, rb.Weights)
		}
		wantTurnover := 0.0
		if i == 0 {
			wantTurnover = 1.0
		}
		if math.Abs(rb.Turnover-wantTurnover) > tol {
			t.Errorf("rebalance %d turnover = %v, want %v", i, rb.Turnover, wantTurnover)
		}
	}

	first := res.Rebalances[0].Date
	wantCost := -5.0 / 10000 * 1.0
	for i, dt := range res.Returns.Dates {
		v := res.Returns.Values[i]
		if dt.Equal(first) {
			if math.Abs(v-wantCost) > tol {
				t.Errorf("first rebalance day %v = %v, want %v", dt, v, wantCost)
			}
			continue
		}
		if v != 0 {
			t.Errorf("%v = %v, want 0", dt, v)
		}
	}
	if !first.Equal(d(2023, 1, 31)) {
		t.Errorf("first rebalance = %v, want 2023-01-31", first)
	}
}

func TestBacktestSameDayCostAndHolding(t *testing.T) {
	dates := businessDays(d(2024, 1, 1), d(2024, 3, 1))
	daily := map[string]float64{"A": 0.01, "B": 0, "C": -0.01}
	rets := fill(dates, abc, func(_ int, s string) float64 { return daily[s] })
	sig := rankedSignal(dates)

	res := BacktestMonthlyLongShort(rets, sig, Params{CostBps: 5, Q: DefaultQuantile})

	jan31 := d(2024, 1, 31)
	for i, dt := range res.Returns.Dates {
		v := res.Returns.Values[i]
		var want float64
		switch {
		case dt.Before(jan31):
			want = 0 // flat before the first rebalance
		case dt.Equal(jan31):
			want = 0.01 - 0.0005 // new weights earn the day, cost deducted same day
		default:
			want = 0.01 // held weights, unchanged at the Feb rebalance
		}
		if math.Abs(v-want) > tol {
			t.Errorf("%s: got %v, want %v", dt.Format("2006-01-02"), v, want)
		}
	}
}

func TestBacktestUndefinedReturnContributesNothing(t *testing.T) {
	dates := businessDays(d(2024, 1, 29), d(2024, 2, 6))
	rets := fill(dates, abc, func(int, string) float64 { return 0.02 })
	// A has no return on 2024-02-01.
	rets.Set(d(2024, 2, 1), "A", math.NaN())
	sig := rankedSignal(dates)

	res := BacktestMonthlyLongShort(rets, sig, Params{CostBps: 0, Q: DefaultQuantile})
	for i, dt := range res.Returns.Dates {
		if dt.Equal(d(2024, 2, 1)) {
			// Only C's short leg counts: -0.5 * 0.02.
			if got := res.Returns.Values[i]; math.Abs(got+0.01) > tol {
				t.Errorf("2024-02-01 = %v, want -0.01", got)
			}
		}
	}
}

func TestBacktestNoOverlapIsZero(t *testing.T) {
	dates := businessDays(d(2024, 1, 1), d(2024, 4, 1))
	rets := fill(dates, abc, func(i int, _ string) float64 { return 0.001 * float64(i%5) })
	sig := fill(dates, []string{"X", "Y"}, func(i int, _ string) float64 { return float64(i) })

	res := BacktestMonthlyLongShort(rets, sig, DefaultParams())
	for i, v := range res.Returns.Values {
		if v != 0 {
			t.Fatalf("day %d = %v, want 0", i, v)
		}
	}
	if res.TotalTurnover() != 0 {
		t.Errorf("TotalTurnover = %v, want 0", res.TotalTurnover())
	}
}

func TestBacktestDegenerateRowKeepsZeroWeights(t *testing.T) {
	dates := businessDays(d(2024, 1, 1), d(2024, 3, 1))
	rets := fill(dates, abc, func(int, string) float64 { return 0.01 })
	sig := rankedSignal(dates)
	// Wipe the January rebalance row: that month's weights are all zero.
	for _, s := range abc {
		sig.Set(d(2024, 1, 31), s, math.NaN())
	}

	res := BacktestMonthlyLongShort(rets, sig, DefaultParams())
	if got := res.Rebalances[0].Weights.Gross(); got != 0 {
		t.Errorf("January gross = %v, want 0", got)
	}
	if got := res.Rebalances[0].Turnover; got != 0 {
		t.Errorf("January turnover = %v, want 0", got)
	}
	if got := res.Rebalances[1].Weights.Gross(); math.Abs(got-1) > tol {
		t.Errorf("February gross = %v, want 1", got)
	}
}

func TestBacktestTurnoverNonNegative(t *testing.T) {
	dates := businessDays(d(2022, 1, 1), d(2024, 1, 1))
	syms := []string{"A", "B", "C", "D", "E", "F"}
	rets := fill(dates, syms, func(i int, s string) float64 { return 0.001 * math.Sin(float64(i)+float64(s[0])) })
	sig := fill(dates, syms, func(i int, s string) float64 { return math.Cos(float64(i/30) * float64(s[0])) })

	checkTurnover := func(name string, res *Result) (unchanged int) {
		t.Helper()
		prev := make(domain.Weights, len(syms))
		for _, s := range syms {
			prev[s] = 0
		}
		for i, rb := range res.Rebalances {
			if rb.Turnover < 0 {
				t.Errorf("%s: rebalance %d turnover %v < 0", name, i, rb.Turnover)
			}
			same := maps.Equal(prev, rb.Weights)
			if same != (rb.Turnover == 0) {
				t.Errorf("%s: rebalance %d turnover %v but weights unchanged = %v", name, i, rb.Turnover, same)
			}
			if same {
				unchanged++
			}
			prev = rb.Weights
		}
		return unchanged
	}

	checkTurnover("varying", BacktestMonthlyLongShort(rets, sig, DefaultParams()))

	// A fixed ranking holds the same book after the first rebalance.
	fixed := fill(dates, syms, func(_ int, s string) float64 { return float64(s[0]) })
	res := BacktestMonthlyLongShort(rets, fixed, DefaultParams())
	if n := checkTurnover("fixed", res); n != len(res.Rebalances)-1 {
		t.Errorf("fixed ranking: %d unchanged rebalances, want %d", n, len(res.Rebalances)-1)
	}
}

func TestBacktestDeterministic(t *testing.T) {
	dates := businessDays(d(2021, 1, 1), d(2023, 1, 1))
	syms := []string{"A", "B", "C", "D", "E", "F", "G"}
	rets := fill(dates, syms, func(i int, s string) float64 { return 0.003 * math.Sin(float64(i*int(s[0]))) })
	sig := fill(dates, syms, func(i int, s string) float64 { return math.Sin(float64(i/20 + int(s[0]))) })

	a := BacktestMonthlyLongShort(rets, sig, DefaultParams())
	b := BacktestMonthlyLongShort(rets, sig, DefaultParams())

	if a.Returns.Len() != b.Returns.Len() {
		t.Fatal("lengths differ between identical runs")
	}
	for i := range a.Returns.Values {
		if math.Float64bits(a.Returns.Values[i]) != math.Float64bits(b.Returns.Values[i]) {
			t.Fatalf("day %d differs: %v vs %v", i, a.Returns.Values[i], b.Returns.Values[i])
		}
		if !a.Returns.Dates[i].Equal(dates[i]) {
			t.Fatalf("day %d date = %v, want %v", i, a.Returns.Dates[i], dates[i])
		}
	}
}

func TestBacktestEmptyReturns(t *testing.T) {
	res := BacktestMonthlyLongShort(domain.NewTable(nil, abc), domain.NewTable(nil, abc), DefaultParams())
	if res.Returns.Len() != 0 || len(res.Rebalances) != 0 {
		t.Errorf("empty input gave %d returns, %d rebalances", res.Returns.Len(), len(res.Rebalances))
	}
}
