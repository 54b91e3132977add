package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"macdtrader/internal/gather"
)

func newFetchCmd(a *app) *cobra.Command {
	var (
		start, end string
		storeKind  string
		batchSize  int
	)
	cmd := &cobra.Command{
		Use:   "fetch SYMBOL...",
		Short: "Download daily bars from Alpaca into the bar store",
		Long: `Download adjusted daily bars from the Alpaca market-data API.

Credentials come from alpaca.api_key/api_secret or APCA_API_KEY_ID and
APCA_API_SECRET_KEY (a .env file is honoured).

Examples:
  macdtrader fetch AAPL MSFT --start 2015-01-01
  macdtrader fetch SPY --store sqlite`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, symbols []string) error {
			if a.cfg.Alpaca.APIKey == "" || a.cfg.Alpaca.APISecret == "" {
				return fmt.Errorf("alpaca credentials are not configured")
			}

			from, err := time.Parse("2006-01-02", start)
			if err != nil {
				return fmt.Errorf("--start %q: %w", start, err)
			}
			to := time.Now().UTC()
			if end != "" {
				if to, err = time.Parse("2006-01-02", end); err != nil {
					return fmt.Errorf("--end %q: %w", end, err)
				}
			}

			bs, closeStore, err := a.openStore(storeKind)
			if err != nil {
				return err
			}
			defer closeStore()

			g := gather.NewDailyBarGatherer(
				a.cfg.Alpaca.APIKey,
				a.cfg.Alpaca.APISecret,
				a.cfg.Alpaca.DataURL,
				bs,
				gather.DailyOptions{
					Symbols:         symbols,
					Range:           gather.DateRange{Start: from, End: to},
					Feed:            a.cfg.Alpaca.Feed,
					BatchSize:       batchSize,
					RateLimitPerMin: a.cfg.Alpaca.RateLimitPerMin,
				},
				a.log,
			)
			return g.Run(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&start, "start", "2015-01-01", "first day to fetch (YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "last day to fetch (default today)")
	cmd.Flags().StringVar(&storeKind, "store", "parquet", "target store: parquet or sqlite")
	cmd.Flags().IntVar(&batchSize, "batch", 100, "symbols per API request")
	return cmd
}
