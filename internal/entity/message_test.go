package entity

import (
	"errors"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
)

func TestDecodeOrderCommandMessage(t *testing.T) {
	valid := OrderCommandMessage{
		OrderID:   "order-1",
		UserID:    "user-1",
		Symbol:    "BTCUSDT",
		Side:      OrderSideBuy,
		Type:      OrderTypeLimit,
		Quantity:  decimal.NewFromFloat(0.5),
		Price:     decimalPtr("50000"),
		Timestamp: time.Now().UTC(),
	}
	validPayload, err := json.Marshal(valid)
	if err != nil {
		t.Fatal(err)
	}

	msg, err := DecodeOrderCommandMessage(validPayload)
	if err != nil {
		t.Fatalf("DecodeOrderCommandMessage() error = %v", err)
	}
	if msg.OrderID != valid.OrderID || !msg.Quantity.Equal(valid.Quantity) {
		t.Fatalf("decoded message %+v does not match input", msg)
	}

	tests := []struct {
		name    string
		payload string
	}{
		{name: "empty payload", payload: ``},
		{name: "not json", payload: `not-json`},
		{name: "unknown field", payload: `{"order_id":"o","user_id":"u","symbol":"BTCUSDT","side":"BUY","type":"MARKET","quantity":"1","timestamp":"2026-09-01T00:00:00Z","leverage":"20"}`},
		{name: "missing order id", payload: `{"user_id":"u","symbol":"BTCUSDT","side":"BUY","type":"MARKET","quantity":"1","timestamp":"2026-09-01T00:00:00Z"}`},
		{name: "missing user id", payload: `{"order_id":"o","symbol":"BTCUSDT","side":"BUY","type":"MARKET","quantity":"1","timestamp":"2026-09-01T00:00:00Z"}`},
		{name: "invalid side", payload: `{"order_id":"o","user_id":"u","symbol":"BTCUSDT","side":"HOLD","type":"MARKET","quantity":"1","timestamp":"2026-09-01T00:00:00Z"}`},
		{name: "invalid type", payload: `{"order_id":"o","user_id":"u","symbol":"BTCUSDT","side":"BUY","type":"ICEBERG","quantity":"1","timestamp":"2026-09-01T00:00:00Z"}`},
		{name: "zero quantity", payload: `{"order_id":"o","user_id":"u","symbol":"BTCUSDT","side":"BUY","type":"MARKET","quantity":"0","timestamp":"2026-09-01T00:00:00Z"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeOrderCommandMessage([]byte(tt.payload)); !errors.Is(err, ErrMalformedMessage) {
				t.Fatalf("DecodeOrderCommandMessage() error = %v, want %v", err, ErrMalformedMessage)
			}
		})
	}
}

func TestDecodeOrderEventMessage(t *testing.T) {
	errMsg := "insufficient balance"
	valid := OrderEventMessage{
		OrderID:   "order-1",
		UserID:    "user-1",
		Status:    OrderStatusRejected,
		Symbol:    "BTCUSDT",
		Side:      OrderSideSell,
		Quantity:  decimal.NewFromInt(2),
		Timestamp: time.Now().UTC(),
		Error:     &errMsg,
	}
	validPayload, err := json.Marshal(valid)
	if err != nil {
		t.Fatal(err)
	}

	msg, err := DecodeOrderEventMessage(validPayload)
	if err != nil {
		t.Fatalf("DecodeOrderEventMessage() error = %v", err)
	}
	if msg.Status != OrderStatusRejected || msg.Error == nil || *msg.Error != errMsg {
		t.Fatalf("decoded message %+v does not match input", msg)
	}

	tests := []struct {
		name    string
		payload string
	}{
		{name: "not json", payload: `{`},
		{name: "unknown field", payload: `{"order_id":"o","user_id":"u","status":"FILLED","symbol":"BTCUSDT","side":"BUY","quantity":"1","timestamp":"2026-09-01T00:00:00Z","extra":true}`},
		{name: "missing symbol", payload: `{"order_id":"o","user_id":"u","status":"FILLED","side":"BUY","quantity":"1","timestamp":"2026-09-01T00:00:00Z"}`},
		{name: "non-terminal status", payload: `{"order_id":"o","user_id":"u","status":"PENDING","symbol":"BTCUSDT","side":"BUY","quantity":"1","timestamp":"2026-09-01T00:00:00Z"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeOrderEventMessage([]byte(tt.payload)); !errors.Is(err, ErrMalformedMessage) {
				t.Fatalf("DecodeOrderEventMessage() error = %v, want %v", err, ErrMalformedMessage)
			}
		})
	}
}
