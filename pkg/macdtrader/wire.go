package macdtrader

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// RunRequest asks the server for one backtest. When Prices is non-empty the
// series is taken inline (Dates in YYYY-MM-DD, same length); otherwise it is
// read from the server's bar store by Symbol, Market and the Start/End window.
type RunRequest struct {
	Strategy   string `json:"strategy,omitempty"`
	Symbol     string `json:"symbol"`
	Market     string `json:"market,omitempty"`
	Start      string `json:"start,omitempty"`
	End        string `json:"end,omitempty"`
	PriceField string `json:"price_field,omitempty"`

	Dates  []string  `json:"dates,omitempty"`
	Prices []float64 `json:"prices,omitempty"`

	StartingBudget    float64 `json:"starting_budget"`
	StartingQuantity  float64 `json:"starting_quantity"`
	BuyingMultiplier  float64 `json:"buying_multiplier"`
	SellingMultiplier float64 `json:"selling_multiplier"`
	Divisible         bool    `json:"divisible"`
	Currency          string  `json:"currency,omitempty"`
}

// Trade is one executed simulated trade.
type Trade struct {
	Index     int     `json:"index"`
	Date      string  `json:"date"`
	Side      string  `json:"side"`
	Price     float64 `json:"price"`
	Quantity  float64 `json:"quantity"`
	CashDelta float64 `json:"cash_delta"`
}

// RunResponse is the outcome of a backtest.
type RunResponse struct {
	Symbol        string  `json:"symbol"`
	Bars          int     `json:"bars"`
	WarmedUp      bool    `json:"warmed_up"`
	Trades        []Trade `json:"trades"`
	Cash          float64 `json:"cash"`
	Holding       float64 `json:"holding"`
	InitialValue  float64 `json:"initial_value"`
	FinalCash     float64 `json:"final_cash"`
	Profit        float64 `json:"profit"`
	ProfitPercent float64 `json:"profit_percent"`
	Currency      string  `json:"currency"`
}

// Encode converts a wire value into the protobuf Struct carried by the
// Backtest service.
func Encode(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding %T: %w", v, err)
	}
	s := &structpb.Struct{}
	if err := protojson.Unmarshal(b, s); err != nil {
		return nil, fmt.Errorf("encoding %T: %w", v, err)
	}
	return s, nil
}

// Decode fills v from a protobuf Struct produced by Encode.
func Decode(s *structpb.Struct, v any) error {
	b, err := protojson.Marshal(s)
	if err != nil {
		return fmt.Errorf("decoding %T: %w", v, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decoding %T: %w", v, err)
	}
	return nil
}
