// Package report renders backtest results for the terminal.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"xsmom/internal/domain"
	"xsmom/internal/metrics"
	"xsmom/internal/strategy"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("4"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	gainStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	lossStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// signed colors v green when positive and red when negative.
func signed(v float64) string {
	s := fmt.Sprintf("%.4f", v)
	switch {
	case v > 0:
		return gainStyle.Render(s)
	case v < 0:
		return lossStyle.Render(s)
	}
	return s
}

func writeMetrics(b *strings.Builder, s metrics.Summary) {
	fmt.Fprintf(b, "%s %s\n", labelStyle.Render("AnnReturn:"), signed(s.AnnualizedReturn))
	fmt.Fprintf(b, "%s %s\n", labelStyle.Render("AnnVol:   "), fmt.Sprintf("%.4f", s.AnnualizedVol))
	fmt.Fprintf(b, "%s %s\n", labelStyle.Render("Sharpe:   "), signed(s.Sharpe))
	fmt.Fprintf(b, "%s %s\n", labelStyle.Render("MaxDD:    "), signed(s.MaxDrawdown))
}

func runSummary(run *domain.Run) metrics.Summary {
	return metrics.Summary{
		AnnualizedReturn: run.AnnualizedReturn,
		AnnualizedVol:    run.AnnualizedVol,
		Sharpe:           run.Sharpe,
		MaxDrawdown:      run.MaxDrawdown,
	}
}

// Summary prints a run's metrics rounded to four decimals, its date span,
// rebalance count and total turnover.
func Summary(w io.Writer, run *domain.Run) error {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf(" %s  %s ", run.Signal, strings.Join(run.Tickers, ","))))
	b.WriteString("\n")
	writeMetrics(&b, runSummary(run))

	span := fmt.Sprintf("%s .. %s", run.Start, run.End)
	if n := run.Returns.Len(); n > 0 {
		span = fmt.Sprintf("%s .. %s (%d days)",
			run.Returns.Dates[0].Format(domain.DateLayout),
			run.Returns.Dates[n-1].Format(domain.DateLayout), n)
	}
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("Range:    "), span)
	fmt.Fprintf(&b, "%s %d\n", labelStyle.Render("Rebalances:"), run.Rebalances)
	fmt.Fprintf(&b, "%s %.4f\n", labelStyle.Render("Turnover: "), run.TotalTurnover)
	if run.ID != "" {
		fmt.Fprintf(&b, "%s\n", dimStyle.Render("run "+run.ID))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// Shape describes the row and column counts of one table.
type Shape struct {
	Name       string
	Rows, Cols int
}

// TableShape returns the shape of t under the given name.
func TableShape(name string, t *domain.Table) Shape {
	return Shape{Name: name, Rows: t.Len(), Cols: len(t.Symbols())}
}

// Smoke prints table shapes followed by the equal-weight benchmark metrics.
func Smoke(w io.Writer, shapes []Shape, benchmark metrics.Summary) error {
	var b strings.Builder
	b.WriteString(titleStyle.Render(" equal-weight benchmark "))
	b.WriteString("\n")
	for _, s := range shapes {
		fmt.Fprintf(&b, "%s %d x %d\n", labelStyle.Render("Rows/Cols "+s.Name+":"), s.Rows, s.Cols)
	}
	writeMetrics(&b, benchmark)

	_, err := io.WriteString(w, b.String())
	return err
}

// Sweep prints one line per parameter set and marks the best Sharpe.
func Sweep(w io.Writer, results []strategy.SweepResult) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", headerStyle.Render(fmt.Sprintf("%8s %8s %10s %8s %8s %8s %9s",
		"cost_bps", "q", "ann_ret", "ann_vol", "sharpe", "max_dd", "turnover")))

	best, ok := strategy.Best(results)
	for _, r := range results {
		s := r.Summary
		line := fmt.Sprintf("%8.2f %8.4f %10.4f %8.4f %8.4f %8.4f %9.4f",
			r.Params.CostBps, r.Params.Q, s.AnnualizedReturn, s.AnnualizedVol, s.Sharpe, s.MaxDrawdown,
			r.Result.TotalTurnover())
		if ok && r.Params == best.Params {
			line = gainStyle.Render(line + "  *")
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// Runs prints a table of stored runs, newest first.
func Runs(w io.Writer, runs []domain.Run) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", headerStyle.Render(fmt.Sprintf("%-36s %-16s %-10s %-10s %8s %8s",
		"id", "created", "start", "end", "sharpe", "max_dd")))
	for _, r := range runs {
		fmt.Fprintf(&b, "%-36s %-16s %-10s %-10s %8.4f %8.4f\n",
			r.ID, r.CreatedAt.Format("2006-01-02 15:04"), r.Start, r.End, r.Sharpe, r.MaxDrawdown)
	}
	if len(runs) == 0 {
		b.WriteString(dimStyle.Render("no runs"))
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}
