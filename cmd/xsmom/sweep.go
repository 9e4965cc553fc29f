package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"xsmom/internal/domain"
	"xsmom/internal/report"
	"xsmom/internal/strategy"
)

func sweepCmd(a *app) *cobra.Command {
	var (
		flags    runFlags
		costs    []float64
		qs       []float64
		parallel int
	)

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Evaluate a grid of cost and quantile settings",
		Long: `Load prices once, then run the backtest for every combination of
--costs and --qs concurrently and mark the best Sharpe ratio.

Example:
  xsmom sweep --costs 0,5,10,25 --qs 0.2,0.25,0.3333`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req := flags.request(cmd, a)
			sig, ok := registry().Get(req.Signal)
			if !ok {
				return fmt.Errorf("%w: %q", strategy.ErrUnknownSignal, req.Signal)
			}

			prices, err := a.priceSource(flags.offline).LoadAdjClose(cmd.Context(), domain.PriceRequest{
				Tickers: req.Tickers, Start: req.Start, End: req.End,
			})
			if err != nil {
				return err
			}

			grid := strategy.Grid(costs, qs)
			a.log.Info("sweeping", "points", len(grid), "signal", req.Signal)
			results, err := strategy.Sweep(cmd.Context(), strategy.Returns(prices), sig.Compute(prices), grid, req.RiskFreeRate, parallel)
			if err != nil {
				return err
			}
			return report.Sweep(cmd.OutOrStdout(), results)
		},
	}

	flags.register(cmd)
	cmd.Flags().Float64SliceVar(&costs, "costs", []float64{0, 5, 10, 25}, "Cost settings in basis points")
	cmd.Flags().Float64SliceVar(&qs, "qs", []float64{0.2, 0.25, 1.0 / 3.0, 0.5}, "Quantile settings")
	cmd.Flags().IntVar(&parallel, "parallel", 0, "Concurrent evaluations (default GOMAXPROCS)")
	return cmd
}
