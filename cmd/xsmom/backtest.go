package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"xsmom/internal/api"
	"xsmom/internal/domain"
	"xsmom/internal/metrics"
	"xsmom/internal/report"
	"xsmom/internal/store"
	"xsmom/internal/strategy"
	"xsmom/pkg/xsmom"
)

// runFlags are the run parameters shared by backtest, smoke and sweep. Unset
// flags fall back to the config's backtest section.
type runFlags struct {
	tickers []string
	start   string
	end     string
	signal  string
	costBps float64
	q       float64
	rf      float64
	offline bool
}

func (f *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVarP(&f.tickers, "tickers", "t", nil, "Comma-separated tickers")
	cmd.Flags().StringVar(&f.start, "start", "", "Start date YYYY-MM-DD (inclusive)")
	cmd.Flags().StringVar(&f.end, "end", "", "End date YYYY-MM-DD (exclusive)")
	cmd.Flags().StringVar(&f.signal, "signal", "", "Signal name")
	cmd.Flags().Float64Var(&f.costBps, "cost-bps", 0, "Cost in basis points per unit turnover")
	cmd.Flags().Float64Var(&f.q, "q", 0, "Quantile per bucket, in (0, 0.5]")
	cmd.Flags().Float64Var(&f.rf, "rf", 0, "Annual risk-free rate for the Sharpe ratio")
	cmd.Flags().BoolVar(&f.offline, "offline", false, "Use only locally cached bars")
}

// request resolves the flags against the config defaults.
func (f *runFlags) request(cmd *cobra.Command, a *app) strategy.RunRequest {
	d := a.cfg.Backtest
	req := strategy.RunRequest{
		Tickers:      d.Tickers,
		Start:        d.Start,
		End:          d.End,
		Signal:       d.Signal,
		Params:       strategy.Params{CostBps: d.CostBps, Q: d.Q},
		RiskFreeRate: d.RiskFreeRate,
	}
	fl := cmd.Flags()
	if fl.Changed("tickers") {
		req.Tickers = f.tickers
	}
	if fl.Changed("start") {
		req.Start = f.start
	}
	if fl.Changed("end") {
		req.End = f.end
	}
	if fl.Changed("signal") {
		req.Signal = f.signal
	}
	if fl.Changed("cost-bps") {
		req.Params.CostBps = f.costBps
	}
	if fl.Changed("q") {
		req.Params.Q = f.q
	}
	if fl.Changed("rf") {
		req.RiskFreeRate = f.rf
	}
	return req
}

func backtestCmd(a *app) *cobra.Command {
	var (
		flags  runFlags
		noSave bool
		export bool
		remote string
	)

	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Run the monthly long/short momentum backtest",
		Long: `Load adjusted closes, compute the signal, run the monthly long/short
backtest and print AnnReturn, AnnVol, Sharpe and MaxDD.

Example:
  xsmom backtest
  xsmom backtest --tickers XLK,XLF,XLE,XLV,XLI,XLP --start 2010-01-01 --q 0.25
  xsmom backtest --remote 127.0.0.1:9090`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req := flags.request(cmd, a)
			if remote != "" {
				return runRemote(cmd, remote, req)
			}

			var runs store.RunStore
			if !noSave {
				s, err := a.openRuns()
				if err != nil {
					return err
				}
				defer s.Close()
				runs = s
			}

			bt := strategy.NewBacktester(a.priceSource(flags.offline), registry(), runs)
			res, err := bt.Run(cmd.Context(), req)
			if err != nil {
				return err
			}

			if export {
				ps := store.NewParquetStore(a.cfg.Storage.DataDir)
				if err := ps.WriteReturns(res.Run.ID, res.Result.Returns, res.Equity); err != nil {
					return err
				}
				a.log.Info("exported returns", "run", res.Run.ID, "dir", a.cfg.Storage.DataDir)
			}
			return report.Summary(cmd.OutOrStdout(), res.Run)
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&noSave, "no-save", false, "Do not record the run in the SQLite registry")
	cmd.Flags().BoolVar(&export, "export", false, "Export daily returns and equity to <data_dir>/runs/<id>.parquet")
	cmd.Flags().StringVar(&remote, "remote", "", "Run on an xsmom server at this gRPC address")
	return cmd
}

// runRemote submits the backtest to a server over gRPC.
func runRemote(cmd *cobra.Command, addr string, req strategy.RunRequest) error {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", addr, err)
	}
	defer conn.Close()

	run, err := api.NewBacktestClient(conn).RunBacktest(cmd.Context(), xsmom.BacktestRequest{
		Tickers:      req.Tickers,
		Start:        req.Start,
		End:          req.End,
		Signal:       req.Signal,
		CostBps:      xsmom.Float(req.Params.CostBps),
		Q:            xsmom.Float(req.Params.Q),
		RiskFreeRate: xsmom.Float(req.RiskFreeRate),
	})
	if err != nil {
		return err
	}
	return report.Summary(cmd.OutOrStdout(), fromWire(run))
}

// fromWire converts an API run for local reporting.
func fromWire(r *xsmom.Run) *domain.Run {
	run := &domain.Run{
		ID:               r.ID,
		Signal:           r.Signal,
		Tickers:          r.Tickers,
		Start:            r.Start,
		End:              r.End,
		CostBps:          r.CostBps,
		Q:                r.Q,
		CreatedAt:        r.CreatedAt,
		AnnualizedReturn: r.AnnualizedReturn,
		AnnualizedVol:    r.AnnualizedVol,
		Sharpe:           r.Sharpe,
		MaxDrawdown:      r.MaxDrawdown,
		Rebalances:       r.Rebalances,
		TotalTurnover:    r.TotalTurnover,
	}
	for _, p := range r.Returns {
		dt, err := time.Parse(domain.DateLayout, p.Date)
		if err != nil {
			continue
		}
		run.Returns.Dates = append(run.Returns.Dates, dt)
		run.Returns.Values = append(run.Returns.Values, p.Value)
	}
	return run
}

func smokeCmd(a *app) *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "smoke",
		Short: "Check the data pipeline with an equal-weight benchmark",
		Long: `Load prices, compute returns and the signal, print their shapes and
the metrics of an equal-weighted portfolio of all tickers.`,
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
			rets := strategy.Returns(prices)
			signal := sig.Compute(prices)
			ew := strategy.EqualWeight(rets)

			return report.Smoke(cmd.OutOrStdout(), []report.Shape{
				report.TableShape("prices", prices),
				report.TableShape("returns", rets),
				report.TableShape(req.Signal, signal),
			}, metrics.Summarize(ew.Values, req.RiskFreeRate))
		},
	}

	flags.register(cmd)
	return cmd
}
