package strategy

import (
	"testing"
	"time"
)

func TestMonthEndDates(t *testing.T) {
	// 2024-03-29 is a Friday; March 30/31 fall on the weekend.
	dates := businessDays(d(2024, 2, 26), d(2024, 4, 3))
	got := MonthEndDates(dates)

	want := []time.Time{d(2024, 2, 29), d(2024, 3, 29), d(2024, 4, 2)}
	if len(got) != len(want) {
		t.Fatalf("MonthEndDates returned %v, want %v", got, want)
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Errorf("MonthEndDates[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestMonthEndDatesSubsetAndOnePerMonth(t *testing.T) {
	dates := businessDays(d(2022, 11, 15), d(2024, 2, 10))
	got := MonthEndDates(dates)

	input := make(map[time.Time]bool, len(dates))
	months := make(map[[2]int]bool)
	for _, dt := range dates {
		input[dt] = true
		months[[2]int{dt.Year(), int(dt.Month())}] = true
	}

	seen := make(map[[2]int]int)
	for i, dt := range got {
		if !input[dt] {
			t.Errorf("%v is not an input date", dt)
		}
		if i > 0 && !got[i-1].Before(dt) {
			t.Errorf("output not strictly ascending at %d", i)
		}
		seen[[2]int{dt.Year(), int(dt.Month())}]++
	}
	if len(seen) != len(months) {
		t.Errorf("got %d months, want %d", len(seen), len(months))
	}
	for m, n := range seen {
		if n != 1 {
			t.Errorf("month %v has %d rebalance dates, want 1", m, n)
		}
	}
}

func TestMonthEndDatesSingleDay(t *testing.T) {
	got := MonthEndDates([]time.Time{d(2024, 5, 15)})
	if len(got) != 1 || !got[0].Equal(d(2024, 5, 15)) {
		t.Errorf("MonthEndDates(single) = %v, want [2024-05-15]", got)
	}
}

func TestMonthEndDatesEmptyAndUnsorted(t *testing.T) {
	if got := MonthEndDates(nil); len(got) != 0 {
		t.Errorf("MonthEndDates(nil) = %v, want empty", got)
	}
	got := MonthEndDates([]time.Time{d(2024, 1, 31), d(2024, 1, 5), d(2024, 1, 31)})
	if len(got) != 1 || !got[0].Equal(d(2024, 1, 31)) {
		t.Errorf("MonthEndDates = %v, want [2024-01-31]", got)
	}
}

func TestMonthEndDatesSkipsGapMonth(t *testing.T) {
	// No observations at all in February.
	got := MonthEndDates([]time.Time{d(2024, 1, 10), d(2024, 1, 20), d(2024, 3, 4)})
	want := []time.Time{d(2024, 1, 20), d(2024, 3, 4)}
	if len(got) != 2 || !got[0].Equal(want[0]) || !got[1].Equal(want[1]) {
		t.Errorf("MonthEndDates = %v, want %v", got, want)
	}
}

func TestMonthEndDatesKeepsInputTimestamps(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	closes := []time.Time{
		time.Date(2024, 1, 30, 16, 0, 0, 0, ny),
		time.Date(2024, 1, 31, 16, 0, 0, 0, ny),
		time.Date(2024, 2, 1, 16, 0, 0, 0, ny),
		time.Date(2024, 2, 29, 16, 0, 0, 0, ny),
	}
	got := MonthEndDates(closes)
	want := []time.Time{closes[1], closes[3]}
	if len(got) != len(want) {
		t.Fatalf("MonthEndDates = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("MonthEndDates[%d] = %v, want input value %v", i, got[i], want[i])
		}
	}
}
