package main

import (
	"github.com/spf13/cobra"

	"xsmom/internal/api"
	"xsmom/internal/strategy"
)

func serveCmd(a *app) *cobra.Command {
	var offline bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the backtest HTTP and gRPC APIs",
		Long: `Start the HTTP API (POST /api/v1/backtest, GET /api/v1/runs,
GET /api/v1/runs/{id}, GET /metrics) and the gRPC xsmom.v1.BacktestService.
Runs until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			runs, err := a.openRuns()
			if err != nil {
				return err
			}
			defer runs.Close()

			m := api.NewMetrics()
			bt := strategy.NewBacktester(a.priceSource(offline), registry(), runs)
			svc := api.NewService(bt, runs, a.cfg.Backtest, m)
			return api.NewServer(a.cfg.Server, svc, m).ListenAndServe(cmd.Context())
		},
	}
	cmd.Flags().BoolVar(&offline, "offline", false, "Use only locally cached bars")
	return cmd
}
