// Package report renders backtest results as text and CSV.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"macdtrader/internal/domain"
	"macdtrader/internal/store"
	"macdtrader/internal/strategy"
)

// Summary writes the one-line result of a run.
func Summary(w io.Writer, r *strategy.Result) error {
	cur := r.Settings.Currency
	_, err := fmt.Fprintf(w,
		"In the end we have %s %s which gives us %s %s (%s%%) of profit using MACD indicator.\n",
		FormatMoney(r.FinalCash), cur, FormatMoney(r.Profit), cur, FormatMoney(r.ProfitPercent))
	return err
}

// Trades writes an aligned table of the executed trades followed by the
// closing account state.
func Trades(w io.Writer, r *strategy.Result) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "#\tDATE\tSIDE\tPRICE\tQTY\tCASH DELTA\t")
	for i, t := range r.Trades {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t\n",
			FormatInt(i+1), t.Timestamp.Format(store.DateLayout), t.Side,
			FormatPrice(t.Price), FormatQuantity(t.Quantity), FormatMoney(t.CashDelta))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if !r.WarmedUp {
		_, err := fmt.Fprintf(w, "series of %s bars is shorter than the %d-bar warm-up; no trades evaluated\n",
			FormatInt(r.Series.Len()), r.Lines.WarmUp)
		return err
	}
	_, err := fmt.Fprintf(w, "%s trades, closing cash %s %s, holding %s, percent %s\n",
		FormatInt(len(r.Trades)), FormatMoney(r.Cash), r.Settings.Currency,
		FormatQuantity(r.Holding), FormatPercent(r.ProfitPercent))
	return err
}

// WriteSeriesCSV exports date, price, macd, signal and side per bar, for
// external charting. Side is empty on bars without a trade.
func WriteSeriesCSV(w io.Writer, r *strategy.Result) error {
	if len(r.Lines.Indicator) != r.Series.Len() || len(r.Lines.Signal) != r.Series.Len() {
		return fmt.Errorf("series %d, lines %d/%d: %w",
			r.Series.Len(), len(r.Lines.Indicator), len(r.Lines.Signal), domain.ErrLengthMismatch)
	}

	sides := make(map[int]domain.Side, len(r.Trades))
	for _, t := range r.Trades {
		sides[t.Index] = t.Side
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"date", "price", "macd", "signal", "side"}); err != nil {
		return err
	}
	for i, p := range r.Series.Points {
		rec := []string{
			p.Timestamp.Format(store.DateLayout),
			strconv.FormatFloat(p.Price, 'f', -1, 64),
			strconv.FormatFloat(r.Lines.Indicator[i], 'f', -1, 64),
			strconv.FormatFloat(r.Lines.Signal[i], 'f', -1, 64),
			string(sides[i]),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
