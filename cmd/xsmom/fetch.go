package main

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"xsmom/internal/domain"
	"xsmom/internal/gather/us"
	"xsmom/internal/store"
	"xsmom/internal/util"
)

func fetchCmd(a *app) *cobra.Command {
	var (
		tickers []string
		start   string
		end     string
	)

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download adjusted daily bars into the local Parquet cache",
		Long: `Fetch split- and dividend-adjusted daily bars from Alpaca and merge them
into <data_dir>/us/daily. Without --end the range runs through the latest
trading day whose bars have settled.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			src := a.alpacaSource()
			if src == nil {
				return errors.New("fetch needs Alpaca credentials (APCA_API_KEY_ID / APCA_API_SECRET_KEY)")
			}
			if !cmd.Flags().Changed("tickers") {
				tickers = a.cfg.Backtest.Tickers
			}
			if start == "" {
				start = a.cfg.Backtest.Start
			}
			if end == "" {
				last, err := a.latestTradingDay()
				if err != nil {
					return err
				}
				end = last.AddDate(0, 0, 1).Format(domain.DateLayout)
			}

			g, err := us.NewBarGatherer(src, store.NewParquetStore(a.cfg.Storage.DataDir), domain.PriceRequest{
				Tickers: tickers, Start: start, End: end,
			})
			if err != nil {
				return err
			}
			return g.Run(cmd.Context())
		},
	}

	cmd.Flags().StringSliceVarP(&tickers, "tickers", "t", nil, "Comma-separated tickers (default: config backtest.tickers)")
	cmd.Flags().StringVar(&start, "start", "", "Start date YYYY-MM-DD (default: config backtest.start)")
	cmd.Flags().StringVar(&end, "end", "", "End date YYYY-MM-DD, exclusive")
	return cmd
}

// latestTradingDay asks the Alpaca calendar for the last settled session.
func (a *app) latestTradingDay() (time.Time, error) {
	cal, err := util.NewTradingCalendar(domain.MarketUS)
	if err != nil {
		return time.Time{}, err
	}
	client := us.NewCalendarClient(a.cfg.Alpaca.APIKey, a.cfg.Alpaca.APISecret, a.cfg.Alpaca.BaseURL)
	return us.LatestFinishedTradingDay(client, cal, time.Now())
}
