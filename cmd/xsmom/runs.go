package main

import (
	"github.com/spf13/cobra"

	"xsmom/internal/domain"
	"xsmom/internal/report"
	"xsmom/pkg/xsmom"
)

func runsCmd(a *app) *cobra.Command {
	var (
		limit  int
		server string
	)

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded backtest runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var runs []domain.Run
			if server != "" {
				list, err := xsmom.NewClient(server).ListRuns(cmd.Context(), limit)
				if err != nil {
					return err
				}
				for i := range list {
					runs = append(runs, *fromWire(&list[i]))
				}
			} else {
				s, err := a.openRuns()
				if err != nil {
					return err
				}
				defer s.Close()
				if runs, err = s.ListRuns(cmd.Context(), limit); err != nil {
					return err
				}
			}
			return report.Runs(cmd.OutOrStdout(), runs)
		},
	}
	cmd.PersistentFlags().StringVar(&server, "server", "", "Query an xsmom server at this HTTP base URL instead of the local registry")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum runs to list")

	cmd.AddCommand(&cobra.Command{
		Use:   "show <id>",
		Short: "Show one recorded run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if server != "" {
				run, err := xsmom.NewClient(server).GetRun(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return report.Summary(cmd.OutOrStdout(), fromWire(run))
			}
			s, err := a.openRuns()
			if err != nil {
				return err
			}
			defer s.Close()
			run, err := s.GetRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return report.Summary(cmd.OutOrStdout(), run)
		},
	})
	return cmd
}
