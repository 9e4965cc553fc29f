package strategy

import (
	"slices"
	"time"
)

// MonthEndDates returns the last observed trading date of each calendar
// month in dates. Every returned value is one of the inputs, unchanged, so a
// month-end that falls on a weekend or holiday resolves to the prior
// session. Months are read in each date's own location. The result is
// ascending and duplicate-free.
func MonthEndDates(dates []time.Time) []time.Time {
	ds := slices.Clone(dates)
	slices.SortStableFunc(ds, func(a, b time.Time) int { return a.Compare(b) })
	ds = slices.CompactFunc(ds, time.Time.Equal)

	var out []time.Time
	for i, d := range ds {
		if i == len(ds)-1 || !sameMonth(d, ds[i+1]) {
			out = append(out, d)
		}
	}
	return out
}

func sameMonth(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}
