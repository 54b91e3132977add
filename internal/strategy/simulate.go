package strategy

import (
	"fmt"

	"macdtrader/internal/domain"
)

// Settings configures a single simulated account.
type Settings struct {
	StartingBudget   float64
	StartingQuantity float64
	// BuyingMultiplier is the fraction of cash spent on each buy signal.
	BuyingMultiplier float64
	// SellingMultiplier is the fraction of the holding sold on each sell
	// signal.
	SellingMultiplier float64
	// Divisible permits fractional quantities; otherwise trades are sized in
	// whole units.
	Divisible bool
	Currency  string
}

// DefaultSettings returns an all-in, all-out account of 10000 with whole
// unit trading.
func DefaultSettings() Settings {
	return Settings{
		StartingBudget:    10000,
		BuyingMultiplier:  1,
		SellingMultiplier: 1,
		Currency:          "USD",
	}
}

// Validate checks the settings before a run.
func (s Settings) Validate() error {
	if s.StartingBudget < 0 {
		return fmt.Errorf("starting budget %v is negative: %w", s.StartingBudget, domain.ErrInvalidConfig)
	}
	if s.StartingQuantity < 0 {
		return fmt.Errorf("starting quantity %v is negative: %w", s.StartingQuantity, domain.ErrInvalidConfig)
	}
	if !(s.BuyingMultiplier > 0 && s.BuyingMultiplier <= 1) {
		return fmt.Errorf("buying multiplier %v outside (0,1]: %w", s.BuyingMultiplier, domain.ErrInvalidConfig)
	}
	if !(s.SellingMultiplier > 0 && s.SellingMultiplier <= 1) {
		return fmt.Errorf("selling multiplier %v outside (0,1]: %w", s.SellingMultiplier, domain.ErrInvalidConfig)
	}
	return nil
}

// Result is the outcome of one simulation run.
type Result struct {
	Series   domain.PriceSeries
	Lines    Lines
	Settings Settings
	Trades   []domain.TradeEvent

	// WarmedUp is false when the series was too short for any crossover to
	// be evaluated.
	WarmedUp bool

	// Cash and Holding are the account state after the last bar, before the
	// closing valuation.
	Cash    float64
	Holding float64

	InitialValue  float64
	FinalCash     float64
	Profit        float64
	ProfitPercent float64
}

// account is the mutable state of a run. It never outlives Simulate.
type account struct {
	cash    float64
	holding float64
	isOver  bool
}

// Simulate runs the crossover state machine over series. The indicator is
// compared with the signal on every bar from lines.WarmUp onward: a rise
// above buys, a fall below sells, and ties change nothing.
func Simulate(series domain.PriceSeries, lines Lines, s Settings) (*Result, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	rows := series.Len()
	if rows == 0 {
		return nil, fmt.Errorf("simulate %s: %w", series.Symbol, domain.ErrNoData)
	}
	if err := series.Validate(); err != nil {
		return nil, fmt.Errorf("simulate %s: %w", series.Symbol, err)
	}
	if len(lines.Indicator) != rows || len(lines.Signal) != rows {
		return nil, fmt.Errorf("simulate %s: %d prices, %d indicator, %d signal: %w",
			series.Symbol, rows, len(lines.Indicator), len(lines.Signal), domain.ErrLengthMismatch)
	}
	if lines.WarmUp < 0 {
		return nil, fmt.Errorf("simulate %s: warm-up %d: %w", series.Symbol, lines.WarmUp, domain.ErrInvalidConfig)
	}

	prices := series.Prices()
	initial := s.StartingBudget + s.StartingQuantity*prices[0]
	if initial == 0 {
		return nil, fmt.Errorf("simulate %s: profit percent of zero initial value: %w",
			series.Symbol, domain.ErrDivisionByZero)
	}

	res := &Result{
		Series:       series,
		Lines:        lines,
		Settings:     s,
		InitialValue: initial,
	}

	acct := account{cash: s.StartingBudget, holding: s.StartingQuantity}
	t0 := lines.WarmUp

	if rows <= t0 {
		res.Cash = acct.cash
		res.Holding = acct.holding
		res.FinalCash = initial
		return res, nil
	}

	res.WarmedUp = true
	acct.isOver = lines.Indicator[t0] > lines.Signal[t0]

	for i := t0; i < rows; i++ {
		ind, sig, price := lines.Indicator[i], lines.Signal[i], prices[i]

		switch {
		case acct.isOver && ind < sig:
			sold := s.SellingMultiplier * acct.holding
			if !s.Divisible {
				sold = roundUnits(sold)
			}
			proceeds := roundCents(sold * price)
			acct.cash += proceeds
			acct.holding -= sold
			acct.isOver = false
			res.Trades = append(res.Trades, tradeAt(series, i, domain.SideSell, sold, proceeds))

		case !acct.isOver && ind > sig:
			var bought, cost float64
			if s.Divisible {
				bought = s.BuyingMultiplier * acct.cash / price
				cost = roundCents(s.BuyingMultiplier * acct.cash)
			} else {
				bought = roundUnits(s.BuyingMultiplier * acct.cash / price)
				cost = roundCents(bought * price)
			}
			acct.cash -= cost
			acct.holding += bought
			acct.isOver = true
			res.Trades = append(res.Trades, tradeAt(series, i, domain.SideBuy, bought, -cost))
		}
	}

	res.Cash = acct.cash
	res.Holding = acct.holding
	res.FinalCash = acct.cash + roundCents(acct.holding*prices[rows-1])
	res.Profit = roundCents(res.FinalCash - initial)
	res.ProfitPercent = roundCents(res.Profit / initial * 100)
	return res, nil
}

func tradeAt(series domain.PriceSeries, i int, side domain.Side, qty, cashDelta float64) domain.TradeEvent {
	p := series.Points[i]
	return domain.TradeEvent{
		Index:     i,
		Timestamp: p.Timestamp,
		Price:     p.Price,
		Side:      side,
		Quantity:  qty,
		CashDelta: cashDelta,
	}
}
