package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"macdtrader/internal/domain"
	"macdtrader/internal/store"
)

func newImportCmd(a *app) *cobra.Command {
	var (
		symbol            string
		dateCol, priceCol int
		storeKind         string
	)
	cmd := &cobra.Command{
		Use:   "import FILE.csv",
		Short: "Copy a CSV price series into the bar store",
		Long: `Copy a CSV price series into the Parquet or SQLite bar store.

Each price becomes a bar with open, high, low and close equal to it.

Example:
  macdtrader import data2.csv --symbol WIG20 --price-col 4`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if symbol == "" {
				return fmt.Errorf("--symbol is required")
			}
			series, err := store.NewCSVFile(args[0], strings.ToUpper(symbol), dateCol, priceCol).ReadSeries(cmd.Context())
			if err != nil {
				return err
			}

			bs, closeStore, err := a.openStore(storeKind)
			if err != nil {
				return err
			}
			defer closeStore()

			if err := bs.WriteBars(cmd.Context(), domain.BarsFromSeries(series)); err != nil {
				return fmt.Errorf("writing %s: %w", series.Symbol, err)
			}
			a.log.Info("imported", "symbol", series.Symbol, "bars", series.Len(), "store", storeKind)
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d bars of %s\n", series.Len(), series.Symbol)
			return nil
		},
	}
	cmd.Flags().StringVar(&symbol, "symbol", "", "symbol to store the series under")
	cmd.Flags().IntVar(&dateCol, "date-col", 0, "zero-based date column")
	cmd.Flags().IntVar(&priceCol, "price-col", 1, "zero-based price column")
	cmd.Flags().StringVar(&storeKind, "store", "parquet", "target store: parquet or sqlite")
	return cmd
}
