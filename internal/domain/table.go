package domain

import (
	"math"
	"slices"
	"time"

	"github.com/samber/lo"
)

// Table is a sparse date x symbol grid of float cells. Dates are ascending
// and unique, symbols keep their construction order. A cell that was never
// set is undefined, which is distinct from a stored zero.
type Table struct {
	dates   []time.Time
	symbols []string
	index   map[time.Time]int
	rows    []map[string]float64
}

// NewTable creates an empty table over the given dates and symbols. Dates
// are day-normalized, sorted and de-duplicated; duplicate symbols are
// dropped keeping the first occurrence.
func NewTable(dates []time.Time, symbols []string) *Table {
	ds := make([]time.Time, len(dates))
	for i, d := range dates {
		ds[i] = Day(d)
	}
	slices.SortFunc(ds, func(a, b time.Time) int { return a.Compare(b) })
	ds = lo.Uniq(ds)

	t := &Table{
		dates:   ds,
		symbols: lo.Uniq(symbols),
		index:   make(map[time.Time]int, len(ds)),
		rows:    make([]map[string]float64, len(ds)),
	}
	for i, d := range ds {
		t.index[d] = i
		t.rows[i] = make(map[string]float64)
	}
	return t
}

// Dates returns the table's date index. Callers must not modify it.
func (t *Table) Dates() []time.Time { return t.dates }

// Symbols returns the table's instrument set. Callers must not modify it.
func (t *Table) Symbols() []string { return t.symbols }

// Len returns the number of dates.
func (t *Table) Len() int { return len(t.dates) }

// HasSymbol reports whether symbol is part of the table's instrument set.
func (t *Table) HasSymbol(symbol string) bool {
	return slices.Contains(t.symbols, symbol)
}

// Set defines the cell at (date, symbol). Setting NaN makes the cell
// undefined. It returns false and leaves the table unchanged when the date
// or symbol is outside the table's shape.
func (t *Table) Set(date time.Time, symbol string, v float64) bool {
	i, ok := t.index[Day(date)]
	if !ok || !t.HasSymbol(symbol) {
		return false
	}
	if math.IsNaN(v) {
		delete(t.rows[i], symbol)
		return true
	}
	t.rows[i][symbol] = v
	return true
}

// Get returns the cell at (date, symbol) and whether it is defined.
func (t *Table) Get(date time.Time, symbol string) (float64, bool) {
	i, ok := t.index[Day(date)]
	if !ok {
		return 0, false
	}
	v, ok := t.rows[i][symbol]
	return v, ok
}

// Row returns a copy of the defined cells on date. Unknown dates give an
// empty row.
func (t *Table) Row(date time.Time) map[string]float64 {
	i, ok := t.index[Day(date)]
	if !ok {
		return map[string]float64{}
	}
	return rowCopy(t.rows[i])
}

// RowAt returns a copy of the defined cells of the i-th date.
func (t *Table) RowAt(i int) map[string]float64 {
	return rowCopy(t.rows[i])
}

// Column returns the values of symbol in date order along with a parallel
// mask marking which of them are defined.
func (t *Table) Column(symbol string) ([]float64, []bool) {
	vals := make([]float64, len(t.dates))
	ok := make([]bool, len(t.dates))
	for i, row := range t.rows {
		vals[i], ok[i] = row[symbol]
	}
	return vals, ok
}

// Defined returns the number of defined cells.
func (t *Table) Defined() int {
	n := 0
	for _, row := range t.rows {
		n += len(row)
	}
	return n
}

// DropEmptyRows returns a new table without the dates that have no defined
// cell.
func (t *Table) DropEmptyRows() *Table {
	keep := make([]time.Time, 0, len(t.dates))
	for i, d := range t.dates {
		if len(t.rows[i]) > 0 {
			keep = append(keep, d)
		}
	}
	out := NewTable(keep, t.symbols)
	for i, d := range t.dates {
		for sym, v := range t.rows[i] {
			out.Set(d, sym, v)
		}
	}
	return out
}

func rowCopy(row map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(row))
	for k, v := range row {
		out[k] = v
	}
	return out
}
