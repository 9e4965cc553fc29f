package strategy

import (
	"xsmom/internal/domain"
)

// Returns computes simple daily returns p[t]/p[t-1] - 1 for every symbol of
// a price table. The first row and any cell whose current or prior price is
// undefined (or a zero prior price) stay undefined.
func Returns(prices *domain.Table) *domain.Table {
	dates := prices.Dates()
	out := domain.NewTable(dates, prices.Symbols())
	for _, sym := range prices.Symbols() {
		px, ok := prices.Column(sym)
		for i := 1; i < len(dates); i++ {
			if !ok[i] || !ok[i-1] || px[i-1] == 0 {
				continue
			}
			out.Set(dates[i], sym, px[i]/px[i-1]-1)
		}
	}
	return out
}

// EqualWeight returns the equal-weighted benchmark: the mean of the defined
// returns on each date, or 0 for a date with none.
func EqualWeight(returns *domain.Table) domain.Series {
	dates := returns.Dates()
	s := domain.Series{
		Dates:  append(dates[:0:0], dates...),
		Values: make([]float64, len(dates)),
	}
	for i := range dates {
		row := returns.RowAt(i)
		if len(row) == 0 {
			continue
		}
		var sum float64
		for _, sym := range returns.Symbols() {
			sum += row[sym]
		}
		s.Values[i] = sum / float64(len(row))
	}
	return s
}
