package fanout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/krobus00/trading-service/internal/broker"
	"github.com/krobus00/trading-service/internal/constant"
	"github.com/krobus00/trading-service/internal/entity"
	"github.com/krobus00/trading-service/internal/session"
	"github.com/shopspring/decimal"
)

type recordingSink struct {
	payloads [][]byte
	err      error
}

func (s *recordingSink) Send(payload []byte) error {
	if s.err != nil {
		return s.err
	}
	s.payloads = append(s.payloads, payload)
	return nil
}

func eventMessage(userID string) entity.OrderEventMessage {
	price := decimal.RequireFromString("50000")
	return entity.OrderEventMessage{
		OrderID:   "order-1",
		UserID:    userID,
		Status:    entity.OrderStatusFilled,
		Symbol:    "BTCUSDT",
		Side:      entity.OrderSideBuy,
		Quantity:  decimal.NewFromInt(1),
		Price:     &price,
		Timestamp: time.Now().UTC(),
	}
}

func TestFanoutDeliversToAllUserSessions(t *testing.T) {
	registry := session.NewRegistry()
	bridge := broker.NewMemoryBridge()
	svc := NewFanoutService(registry, bridge)

	if err := svc.Subscribe(context.Background()); err != nil {
		t.Fatal(err)
	}

	first := &recordingSink{}
	second := &recordingSink{}
	other := &recordingSink{}
	registry.Register("user-1", "session-a", first)
	registry.Register("user-1", "session-b", second)
	registry.Register("user-2", "session-c", other)

	if err := bridge.Publish(constant.OrderEventSubject, eventMessage("user-1")); err != nil {
		t.Fatal(err)
	}

	if len(first.payloads) != 1 || len(second.payloads) != 1 {
		t.Fatalf("user-1 sessions got %d and %d payloads, want 1 each", len(first.payloads), len(second.payloads))
	}
	if len(other.payloads) != 0 {
		t.Fatalf("user-2 session got %d payloads, want 0", len(other.payloads))
	}

	var push PushMessage
	if err := json.Unmarshal(first.payloads[0], &push); err != nil {
		t.Fatal(err)
	}
	if push.Type != PushTypeOrderUpdate {
		t.Fatalf("push type = %s, want %s", push.Type, PushTypeOrderUpdate)
	}
	if push.Data.OrderID != "order-1" || push.Data.Status != entity.OrderStatusFilled {
		t.Fatalf("push data = %+v", push.Data)
	}
}

func TestFanoutFailingSinkDoesNotBlockOthers(t *testing.T) {
	registry := session.NewRegistry()
	bridge := broker.NewMemoryBridge()
	svc := NewFanoutService(registry, bridge)

	if err := svc.Subscribe(context.Background()); err != nil {
		t.Fatal(err)
	}

	broken := &recordingSink{err: errors.New("connection gone")}
	healthy := &recordingSink{}
	registry.Register("user-1", "session-a", broken)
	registry.Register("user-1", "session-b", healthy)

	if err := bridge.Publish(constant.OrderEventSubject, eventMessage("user-1")); err != nil {
		t.Fatal(err)
	}

	if len(healthy.payloads) != 1 {
		t.Fatalf("healthy session got %d payloads, want 1", len(healthy.payloads))
	}
}

func TestFanoutNoLiveSessions(t *testing.T) {
	registry := session.NewRegistry()
	svc := NewFanoutService(registry, broker.NewMemoryBridge())

	payload, err := json.Marshal(eventMessage("user-without-sessions"))
	if err != nil {
		t.Fatal(err)
	}

	// events for users without sessions are silently dropped
	if err := svc.HandleOrderEvent(context.Background(), payload); err != nil {
		t.Fatalf("HandleOrderEvent() error = %v", err)
	}
}

func TestFanoutMalformedEvent(t *testing.T) {
	registry := session.NewRegistry()
	svc := NewFanoutService(registry, broker.NewMemoryBridge())

	sink := &recordingSink{}
	registry.Register("user-1", "session-a", sink)

	// malformed payloads are dropped, not retried
	if err := svc.HandleOrderEvent(context.Background(), []byte(`{"bogus":true}`)); err != nil {
		t.Fatalf("HandleOrderEvent() error = %v", err)
	}
	if len(sink.payloads) != 0 {
		t.Fatalf("sink got %d payloads, want 0", len(sink.payloads))
	}
}
