package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/AtashM95/tradebot/internal/di"
	"github.com/AtashM95/tradebot/internal/domain/models"
	internalrepo "github.com/AtashM95/tradebot/internal/repository"
	"github.com/AtashM95/tradebot/internal/services/features"
	"github.com/AtashM95/tradebot/pkg/config"
	applogger "github.com/AtashM95/tradebot/pkg/logger"
)

type loader func() (*config.Config, error)

func newServeCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the orchestrator",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			app, cleanup, err := di.InitializeApp(cfg)
			if err != nil {
				return fmt.Errorf("app initialization failed: %w", err)
			}
			defer cleanup()

			return app.Run(cmd.Context())
		},
	}
}

func newBacktestCmd(load loader) *cobra.Command {
	var (
		symbols  []string
		strategy string
		years    int
		train    int
		test     int
		step     int
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Run one walk-forward backtest and print the results",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			app, cleanup, err := di.InitializeApp(cfg)
			if err != nil {
				return fmt.Errorf("app initialization failed: %w", err)
			}
			defer cleanup()

			p := models.BacktestParams{
				Symbols:   symbols,
				Strategy:  orDefault(strategy, cfg.Backtest.Strategy),
				Years:     orDefaultInt(years, cfg.Backtest.Years),
				TrainDays: orDefaultInt(train, cfg.Backtest.TrainDays),
				TestDays:  orDefaultInt(test, cfg.Backtest.TestDays),
				StepDays:  orDefaultInt(step, cfg.Backtest.StepDays),
			}
			run, err := app.Backtester().Run(cmd.Context(), p)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(run)
			}
			printRun(cmd, run)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringSliceVar(&symbols, "symbols", nil, "symbols to test (default: current watchlist)")
	f.StringVar(&strategy, "strategy", "", "strategy name")
	f.IntVar(&years, "years", 0, "years of history")
	f.IntVar(&train, "train", 0, "training window in bars")
	f.IntVar(&test, "test", 0, "test window in bars")
	f.IntVar(&step, "step", 0, "step between windows in bars")
	f.BoolVar(&asJSON, "json", false, "print the full run as JSON")
	return cmd
}

func printRun(cmd *cobra.Command, run *models.BacktestRun) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run %s  strategy=%s  partial=%t  took=%s\n",
		run.ID, run.Strategy, run.Partial, run.Duration.Round(time.Millisecond))

	table := tablewriter.NewWriter(out)
	table.Header("Symbol", "Status", "Bars", "Windows", "Total", "Mean", "MaxDD", "Hit", "Sharpe", "Trades")
	for _, s := range run.Symbols {
		if s.Aggregate == nil {
			table.Append(s.Symbol, string(s.Status), fmt.Sprintf("%d", s.Bars), "0", "-", "-", "-", "-", "-", s.Error)
			continue
		}
		a := s.Aggregate
		table.Append(
			s.Symbol,
			string(s.Status),
			fmt.Sprintf("%d", s.Bars),
			fmt.Sprintf("%d", a.Windows),
			fmt.Sprintf("%.2f%%", a.TotalReturn*100),
			fmt.Sprintf("%.2f%%", a.MeanReturn*100),
			fmt.Sprintf("%.2f%%", a.MaxDrawdown*100),
			fmt.Sprintf("%.0f%%", a.HitRate*100),
			fmt.Sprintf("%.2f", a.Sharpe),
			fmt.Sprintf("%d", a.Trades),
		)
	}
	table.Render()

	if len(run.Errored) > 0 {
		fmt.Fprintf(out, "errored: %s\n", strings.Join(run.Errored, ", "))
	}
}

func newModelsCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List registered models",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			app, cleanup, err := di.InitializeApp(cfg)
			if err != nil {
				return fmt.Errorf("app initialization failed: %w", err)
			}
			defer cleanup()

			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.Header("ID", "Algorithm", "Created", "Accuracy", "HitRate", "MeanRet", "Samples", "Active")
			for _, m := range app.Registry().List() {
				active := ""
				if m.Active {
					active = "*"
				}
				table.Append(
					m.ID,
					m.Algorithm,
					m.CreatedAt.UTC().Format(time.RFC3339),
					fmt.Sprintf("%.3f", m.Metrics.Accuracy),
					fmt.Sprintf("%.3f", m.Metrics.HitRate),
					fmt.Sprintf("%.4f", m.Metrics.MeanReturn),
					fmt.Sprintf("%d", m.Metrics.Samples),
					active,
				)
			}
			table.Render()
			return nil
		},
	}
}

// newSeedCmd fills the ClickHouse bar table with synthetic history so the
// clickhouse data source can run without an external feed.
func newSeedCmd(load loader) *cobra.Command {
	var (
		symbols []string
		years   int
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Write synthetic daily bars into ClickHouse",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if cfg.Data.Source != config.DataSourceClickHouse {
				return fmt.Errorf("seed requires data.source=%s", config.DataSourceClickHouse)
			}
			l, err := di.ProvideLogger(cfg)
			if err != nil {
				return err
			}
			ch, cleanup, err := di.ProvideClickHouseClient(cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			if len(symbols) == 0 {
				symbols = cfg.Watchlist.Defaults
			}
			sink := internalrepo.NewClickHouseBarSource(ch, cfg.ClickHouse.Database, cfg.ClickHouse.Table, l)
			gen := internalrepo.NewSyntheticBarSource()
			limit := years * features.TradingDaysPerYear

			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
			defer cancel()
			for _, sym := range symbols {
				bars, err := gen.DailyBars(ctx, sym, limit)
				if err != nil {
					return fmt.Errorf("generate %s: %w", sym, err)
				}
				if err := sink.InsertBars(ctx, sym, bars); err != nil {
					return fmt.Errorf("insert %s: %w", sym, err)
				}
				l.Info("seeded bars", applogger.String("symbol", sym), applogger.Int("bars", len(bars)))
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&symbols, "symbols", nil, "symbols to seed (default: watchlist defaults)")
	cmd.Flags().IntVar(&years, "years", 10, "years of history to generate")
	return cmd
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func orDefaultInt(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}
