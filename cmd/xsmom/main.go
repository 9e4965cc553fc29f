// xsmom runs cross-sectional momentum long/short backtests.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"xsmom/internal/config"
	"xsmom/internal/util"
)

var version = "dev"

// app carries the state shared by all subcommands once flags are parsed.
type app struct {
	cfgPath  string
	logLevel string
	cfg      *config.Config
	log      *slog.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	rootCmd := &cobra.Command{
		Use:   "xsmom",
		Short: "Cross-sectional momentum long/short backtester",
		Long: `xsmom backtests a monthly-rebalanced, dollar-neutral long/short strategy:
long the top quantile of a cross-sectional signal, short the bottom quantile,
with turnover-based transaction costs.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&a.cfgPath, "config", "c", "", "Config file (default $XSMOM_CONFIG or "+config.DefaultPath+")")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config)")

	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(backtestCmd(a))
	rootCmd.AddCommand(smokeCmd(a))
	rootCmd.AddCommand(sweepCmd(a))
	rootCmd.AddCommand(fetchCmd(a))
	rootCmd.AddCommand(runsCmd(a))
	rootCmd.AddCommand(serveCmd(a))
	return rootCmd
}

func (a *app) init() error {
	cfg, err := config.LoadOrDefault(config.ResolvePath(a.cfgPath))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	a.cfg = cfg
	a.log = util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(a.log)
	return nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "xsmom version %s\n", version)
		},
	}
}
