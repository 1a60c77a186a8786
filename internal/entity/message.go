package entity

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
)

var ErrMalformedMessage = errors.New("malformed message payload")

// OrderCommandMessage is the wire payload on the command channel. Field set
// is fixed; unknown or missing required fields are rejected at the boundary.
type OrderCommandMessage struct {
	OrderID   string           `json:"order_id"`
	UserID    string           `json:"user_id"`
	Symbol    string           `json:"symbol"`
	Side      OrderSide        `json:"side"`
	Type      OrderType        `json:"type"`
	Quantity  decimal.Decimal  `json:"quantity"`
	Price     *decimal.Decimal `json:"price,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

// OrderEventMessage is the wire payload on the event channel.
type OrderEventMessage struct {
	OrderID   string           `json:"order_id"`
	UserID    string           `json:"user_id"`
	Status    OrderStatus      `json:"status"`
	Symbol    string           `json:"symbol"`
	Side      OrderSide        `json:"side"`
	Quantity  decimal.Decimal  `json:"quantity"`
	Price     *decimal.Decimal `json:"price,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Error     *string          `json:"error,omitempty"`
}

func DecodeOrderCommandMessage(data []byte) (*OrderCommandMessage, error) {
	var msg OrderCommandMessage
	if err := decodeStrict(data, &msg); err != nil {
		return nil, err
	}

	if msg.OrderID == "" || msg.UserID == "" || msg.Symbol == "" {
		return nil, fmt.Errorf("%w: missing required fields", ErrMalformedMessage)
	}
	if !msg.Side.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrMalformedMessage, ErrInvalidSide)
	}
	if !msg.Type.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrMalformedMessage, ErrInvalidType)
	}
	if !msg.Quantity.GreaterThan(decimal.Zero) {
		return nil, fmt.Errorf("%w: %s", ErrMalformedMessage, ErrInvalidQuantity)
	}

	return &msg, nil
}

func DecodeOrderEventMessage(data []byte) (*OrderEventMessage, error) {
	var msg OrderEventMessage
	if err := decodeStrict(data, &msg); err != nil {
		return nil, err
	}

	if msg.OrderID == "" || msg.UserID == "" || msg.Symbol == "" {
		return nil, fmt.Errorf("%w: missing required fields", ErrMalformedMessage)
	}
	if !msg.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: non-terminal event status %q", ErrMalformedMessage, msg.Status)
	}

	return &msg, nil
}

func decodeStrict(data []byte, target any) error {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		return fmt.Errorf("%w: %s", ErrMalformedMessage, err)
	}
	return nil
}
