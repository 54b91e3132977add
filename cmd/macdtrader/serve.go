package main

import (
	"github.com/spf13/cobra"

	"macdtrader/internal/api"
)

func newServeCmd(a *app) *cobra.Command {
	var storeKind string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve backtests over gRPC with Prometheus metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			bs, closeStore, err := a.openStore(storeKind)
			if err != nil {
				return err
			}
			defer closeStore()

			bt, err := a.newBacktester(bs)
			if err != nil {
				return err
			}
			m := api.NewMetrics()
			svc := api.NewBacktestService(bt, a.cfg.Backtest.Strategy, a.cfg.Backtest.Settings(), m, a.log)
			return api.NewServer(a.cfg, svc, m, a.log).ListenAndServe(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&storeKind, "store", "parquet", "bar store backing symbol requests: parquet or sqlite")
	return cmd
}
