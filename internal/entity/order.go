package entity

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

type OrderSide string
type OrderType string
type OrderStatus string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"

	OrderTypeMarket     OrderType = "MARKET"
	OrderTypeLimit      OrderType = "LIMIT"
	OrderTypeStopMarket OrderType = "STOP_MARKET"

	OrderStatusPending         OrderStatus = "PENDING"
	OrderStatusFilled          OrderStatus = "FILLED"
	OrderStatusPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	OrderStatusRejected        OrderStatus = "REJECTED"
	OrderStatusCancelled       OrderStatus = "CANCELLED"
)

var (
	ErrInvalidSymbol   = errors.New("symbol is required")
	ErrInvalidSide     = errors.New("side must be BUY or SELL")
	ErrInvalidType     = errors.New("type must be MARKET, LIMIT or STOP_MARKET")
	ErrInvalidQuantity = errors.New("quantity must be greater than zero")
	ErrInvalidPrice    = errors.New("price must be greater than zero")
	ErrPriceRequired   = errors.New("price is required for LIMIT orders")
)

func (s OrderSide) Valid() bool {
	return s == OrderSideBuy || s == OrderSideSell
}

func (t OrderType) Valid() bool {
	return t == OrderTypeMarket || t == OrderTypeLimit || t == OrderTypeStopMarket
}

// IsTerminal reports whether no further status transition is allowed.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusFilled, OrderStatusPartiallyFilled, OrderStatusRejected, OrderStatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo allows exactly one edge per command: PENDING -> terminal.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	return s == OrderStatusPending && next.IsTerminal()
}

// OrderCommand is the durable record of a submitted order intent. It is
// created by the submission path and mutated only by the execution worker
// (single PENDING -> terminal status transition). Rows are never deleted.
type OrderCommand struct {
	ID        string           `db:"id" json:"id"`
	OrderID   string           `db:"order_id" json:"order_id"`
	UserID    string           `db:"user_id" json:"user_id"`
	Symbol    string           `db:"symbol" json:"symbol"`
	Side      OrderSide        `db:"side" json:"side"`
	Type      OrderType        `db:"type" json:"type"`
	Quantity  decimal.Decimal  `db:"quantity" json:"quantity"`
	Price     *decimal.Decimal `db:"price" json:"price"`
	Status    OrderStatus      `db:"status" json:"status"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt time.Time        `db:"updated_at" json:"updated_at"`
}

func (OrderCommand) TableName() string {
	return "order_commands"
}

func (c OrderCommand) Validate() error {
	if c.Symbol == "" {
		return ErrInvalidSymbol
	}
	if !c.Side.Valid() {
		return ErrInvalidSide
	}
	if !c.Type.Valid() {
		return ErrInvalidType
	}
	if !c.Quantity.GreaterThan(decimal.Zero) {
		return ErrInvalidQuantity
	}
	if c.Type == OrderTypeLimit {
		if c.Price == nil {
			return ErrPriceRequired
		}
	}
	if c.Price != nil && !c.Price.GreaterThan(decimal.Zero) {
		return ErrInvalidPrice
	}
	return nil
}

// OrderEvent is the append-only record of an execution outcome. Owned and
// created solely by the execution worker; order_id is unique so redelivered
// commands cannot produce a second event.
type OrderEvent struct {
	ID        string           `db:"id" json:"id"`
	OrderID   string           `db:"order_id" json:"order_id"`
	UserID    string           `db:"user_id" json:"user_id"`
	Status    OrderStatus      `db:"status" json:"status"`
	Symbol    string           `db:"symbol" json:"symbol"`
	Side      OrderSide        `db:"side" json:"side"`
	Quantity  decimal.Decimal  `db:"quantity" json:"quantity"`
	Price     *decimal.Decimal `db:"price" json:"price"`
	Error     *string          `db:"error_message" json:"error_message"`
	Timestamp time.Time        `db:"timestamp" json:"timestamp"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
}

func (OrderEvent) TableName() string {
	return "order_events"
}
