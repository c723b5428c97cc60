package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/AtashM95/tradebot/pkg/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "tradebot",
		Short:         "Trading orchestrator, walk-forward backtester and model governance API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "config/config.yaml", "config file path")

	load := func() (*config.Config, error) {
		cfg, err := config.LoadWithEnv(configPath)
		if err != nil {
			return nil, fmt.Errorf("config load failed: %w", err)
		}
		return cfg, nil
	}

	serve := newServeCmd(load)
	root.RunE = serve.RunE
	root.AddCommand(
		serve,
		newBacktestCmd(load),
		newModelsCmd(load),
		newSeedCmd(load),
	)
	return root
}
