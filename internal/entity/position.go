package entity

import "github.com/shopspring/decimal"

// Position is derived from the order event history and has no lifecycle of
// its own. Quantity is signed: BUY positive, SELL negative.
type Position struct {
	Symbol       string          `json:"symbol"`
	Quantity     decimal.Decimal `json:"quantity"`
	AveragePrice decimal.Decimal `json:"average_price"`
}
