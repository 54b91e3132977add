package report

import (
	"bytes"
	"encoding/csv"
	"errors"
	"strings"
	"testing"
	"time"

	"macdtrader/internal/domain"
	"macdtrader/internal/strategy"
)

func sampleResult() *strategy.Result {
	day := func(d int) time.Time { return time.Date(2021, 1, d, 0, 0, 0, 0, time.UTC) }
	s := strategy.DefaultSettings()
	s.Currency = "PLN"
	return &strategy.Result{
		Series: domain.PriceSeries{Symbol: "X", Points: []domain.PricePoint{
			{Timestamp: day(4), Price: 10},
			{Timestamp: day(5), Price: 12},
			{Timestamp: day(6), Price: 11.5},
		}},
		Lines: strategy.Lines{
			Indicator: []float64{0, 0.5, -0.25},
			Signal:    []float64{0, 0.1, 0.2},
			WarmUp:    1,
		},
		Settings: s,
		Trades: []domain.TradeEvent{
			{Index: 1, Timestamp: day(5), Price: 12, Side: domain.SideBuy, Quantity: 833, CashDelta: -9996},
			{Index: 2, Timestamp: day(6), Price: 11.5, Side: domain.SideSell, Quantity: 834, CashDelta: 9591},
		},
		WarmedUp:      true,
		Cash:          9595,
		Holding:       0,
		InitialValue:  10010,
		FinalCash:     9595,
		Profit:        -415,
		ProfitPercent: -4.15,
	}
}

func TestSummary(t *testing.T) {
	var buf bytes.Buffer
	if err := Summary(&buf, sampleResult()); err != nil {
		t.Fatalf("Summary: %v", err)
	}
	want := "In the end we have 9595.00 PLN which gives us -415.00 PLN (-4.15%) of profit using MACD indicator.\n"
	if buf.String() != want {
		t.Errorf("Summary =\n  %q\nwant\n  %q", buf.String(), want)
	}
}

func TestTrades(t *testing.T) {
	var buf bytes.Buffer
	if err := Trades(&buf, sampleResult()); err != nil {
		t.Fatalf("Trades: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"SIDE", "2021-01-05", "buy", "-9996.00", "sell", "2 trades", "-4.15%"} {
		if !strings.Contains(out, want) {
			t.Errorf("Trades output missing %q:\n%s", want, out)
		}
	}

	r := sampleResult()
	r.WarmedUp = false
	r.Trades = nil
	buf.Reset()
	if err := Trades(&buf, r); err != nil {
		t.Fatalf("Trades: %v", err)
	}
	if !strings.Contains(buf.String(), "shorter than the 1-bar warm-up") {
		t.Errorf("short-series output = %q", buf.String())
	}
}

func TestWriteSeriesCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSeriesCSV(&buf, sampleResult()); err != nil {
		t.Fatalf("WriteSeriesCSV: %v", err)
	}
	recs, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("reading export: %v", err)
	}
	want := [][]string{
		{"date", "price", "macd", "signal", "side"},
		{"2021-01-04", "10", "0", "0", ""},
		{"2021-01-05", "12", "0.5", "0.1", "buy"},
		{"2021-01-06", "11.5", "-0.25", "0.2", "sell"},
	}
	if len(recs) != len(want) {
		t.Fatalf("got %d records, want %d", len(recs), len(want))
	}
	for i := range want {
		if strings.Join(recs[i], ",") != strings.Join(want[i], ",") {
			t.Errorf("record %d = %v, want %v", i, recs[i], want[i])
		}
	}

	r := sampleResult()
	r.Lines.Signal = r.Lines.Signal[:2]
	if err := WriteSeriesCSV(&buf, r); !errors.Is(err, domain.ErrLengthMismatch) {
		t.Errorf("err = %v, want ErrLengthMismatch", err)
	}
}

func TestFormatHelpers(t *testing.T) {
	tests := []struct {
		got, want string
	}{
		{FormatInt(999), "999"},
		{FormatInt(1234567), "1,234,567"},
		{FormatInt(-12345), "-12,345"},
		{FormatMoney(1330), "1330.00"},
		{FormatMoney(0.125), "0.12"},
		{FormatMoney(-996), "-996.00"},
		{FormatPercent(33), "+33.00%"},
		{FormatPercent(-4.15), "-4.15%"},
		{FormatPrice(0), "-"},
		{FormatPrice(12.5), "12.50"},
		{FormatQuantity(83), "83"},
		{FormatQuantity(0.5), "0.5"},
		{FormatQuantity(1.0 / 3.0), "0.333333"},
	}
	for i, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("case %d: got %q, want %q", i, tt.got, tt.want)
		}
	}
}
