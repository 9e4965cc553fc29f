package strategy

import (
	"xsmom/internal/domain"
)

// Align reindexes src onto target's exact date index and instrument set.
// Cells present in src are copied; every other cell of the result is
// undefined. Nothing is filled forward or interpolated.
func Align(src, target *domain.Table) *domain.Table {
	out := domain.NewTable(target.Dates(), target.Symbols())
	for _, d := range target.Dates() {
		for sym, v := range src.Row(d) {
			// Set ignores symbols outside the target's instrument set.
			out.Set(d, sym, v)
		}
	}
	return out
}
