package order

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/krobus00/trading-service/internal/broker"
	"github.com/krobus00/trading-service/internal/constant"
	"github.com/krobus00/trading-service/internal/entity"
	"github.com/krobus00/trading-service/internal/repository"
	"github.com/shopspring/decimal"
)

type fakeCommandStore struct {
	created   []*entity.OrderCommand
	createErr error
	commands  []entity.OrderCommand
	listErr   error
}

func (s *fakeCommandStore) Create(_ context.Context, command *entity.OrderCommand) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.created = append(s.created, command)
	return nil
}

func (s *fakeCommandStore) ListByUser(_ context.Context, _ string) ([]entity.OrderCommand, error) {
	return s.commands, s.listErr
}

type fakeEventStore struct {
	latest map[string]entity.OrderEvent
	err    error
}

func (s *fakeEventStore) ListLatestByOrderIDs(_ context.Context, _ []string) (map[string]entity.OrderEvent, error) {
	return s.latest, s.err
}

type failingBridge struct{}

func (failingBridge) Publish(_ string, _ any) error { return errors.New("broker gone") }
func (failingBridge) QueueSubscribe(_ context.Context, _, _ string, _ broker.Handler) error {
	return nil
}
func (failingBridge) Subscribe(_ context.Context, _ string, _ broker.Handler) error { return nil }

func validRequest() SubmitOrderRequest {
	return SubmitOrderRequest{
		UserID:   "user-1",
		Symbol:   "btcusdt",
		Side:     entity.OrderSideBuy,
		Type:     entity.OrderTypeMarket,
		Quantity: decimal.NewFromFloat(0.5),
	}
}

func TestSubmitGeneratesOrderID(t *testing.T) {
	store := &fakeCommandStore{}
	bridge := broker.NewMemoryBridge()

	var published []entity.OrderCommandMessage
	err := bridge.Subscribe(context.Background(), constant.OrderCommandSubject, func(_ context.Context, data []byte) error {
		var msg entity.OrderCommandMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return err
		}
		published = append(published, msg)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	svc := NewOrderService(store, &fakeEventStore{}, bridge)

	command, err := svc.Submit(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	if command.OrderID == "" {
		t.Fatal("order id was not generated")
	}
	if command.Status != entity.OrderStatusPending {
		t.Fatalf("status = %s, want PENDING", command.Status)
	}
	if command.Symbol != "BTCUSDT" {
		t.Fatalf("symbol = %s, want BTCUSDT", command.Symbol)
	}

	if len(store.created) != 1 {
		t.Fatalf("created commands = %d, want 1", len(store.created))
	}
	if len(published) != 1 {
		t.Fatalf("published commands = %d, want 1", len(published))
	}
	if published[0].OrderID != command.OrderID {
		t.Fatalf("published order id = %s, want %s", published[0].OrderID, command.OrderID)
	}
}

func TestSubmitKeepsClientOrderID(t *testing.T) {
	store := &fakeCommandStore{}
	svc := NewOrderService(store, &fakeEventStore{}, broker.NewMemoryBridge())

	clientOrderID := "client-order-42"
	req := validRequest()
	req.OrderID = &clientOrderID

	command, err := svc.Submit(context.Background(), req)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if command.OrderID != clientOrderID {
		t.Fatalf("order id = %s, want %s", command.OrderID, clientOrderID)
	}
}

func TestSubmitValidationFailureCreatesNothing(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*SubmitOrderRequest)
		wantErr error
	}{
		{
			name:    "missing symbol",
			mutate:  func(r *SubmitOrderRequest) { r.Symbol = " " },
			wantErr: entity.ErrInvalidSymbol,
		},
		{
			name:    "invalid side",
			mutate:  func(r *SubmitOrderRequest) { r.Side = "HOLD" },
			wantErr: entity.ErrInvalidSide,
		},
		{
			name:    "zero quantity",
			mutate:  func(r *SubmitOrderRequest) { r.Quantity = decimal.Zero },
			wantErr: entity.ErrInvalidQuantity,
		},
		{
			name:    "limit without price",
			mutate:  func(r *SubmitOrderRequest) { r.Type = entity.OrderTypeLimit },
			wantErr: entity.ErrPriceRequired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeCommandStore{}
			svc := NewOrderService(store, &fakeEventStore{}, broker.NewMemoryBridge())

			req := validRequest()
			tt.mutate(&req)

			if _, err := svc.Submit(context.Background(), req); !errors.Is(err, tt.wantErr) {
				t.Fatalf("Submit() error = %v, want %v", err, tt.wantErr)
			}
			if len(store.created) != 0 {
				t.Fatalf("created commands = %d, want 0", len(store.created))
			}
		})
	}
}

func TestSubmitDuplicateOrderID(t *testing.T) {
	store := &fakeCommandStore{createErr: repository.ErrDuplicateOrder}
	svc := NewOrderService(store, &fakeEventStore{}, broker.NewMemoryBridge())

	if _, err := svc.Submit(context.Background(), validRequest()); !errors.Is(err, ErrDuplicateOrder) {
		t.Fatalf("Submit() error = %v, want %v", err, ErrDuplicateOrder)
	}
}

func TestSubmitPublishFailure(t *testing.T) {
	store := &fakeCommandStore{}
	svc := NewOrderService(store, &fakeEventStore{}, failingBridge{})

	if _, err := svc.Submit(context.Background(), validRequest()); !errors.Is(err, ErrPublishCommandFailed) {
		t.Fatalf("Submit() error = %v, want %v", err, ErrPublishCommandFailed)
	}

	// the command was durably recorded before the publish attempt
	if len(store.created) != 1 {
		t.Fatalf("created commands = %d, want 1", len(store.created))
	}
	if store.created[0].Status != entity.OrderStatusPending {
		t.Fatalf("status = %s, want PENDING", store.created[0].Status)
	}
}

func TestListOrdersPairsLatestEvents(t *testing.T) {
	now := time.Now().UTC()
	price := decimal.RequireFromString("50000")

	store := &fakeCommandStore{
		commands: []entity.OrderCommand{
			{OrderID: "order-2", UserID: "user-1", Symbol: "BTCUSDT", Status: entity.OrderStatusPending, CreatedAt: now},
			{OrderID: "order-1", UserID: "user-1", Symbol: "BTCUSDT", Status: entity.OrderStatusFilled, CreatedAt: now.Add(-time.Minute)},
		},
	}
	events := &fakeEventStore{
		latest: map[string]entity.OrderEvent{
			"order-1": {OrderID: "order-1", Status: entity.OrderStatusFilled, Price: &price, Timestamp: now},
		},
	}

	svc := NewOrderService(store, events, broker.NewMemoryBridge())

	orders, err := svc.ListOrders(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("ListOrders() error = %v", err)
	}

	if len(orders) != 2 {
		t.Fatalf("orders = %d, want 2", len(orders))
	}
	if orders[0].Command.OrderID != "order-2" || orders[0].LatestEvent != nil {
		t.Fatalf("pending order must have no event: %+v", orders[0])
	}
	if orders[1].LatestEvent == nil || orders[1].LatestEvent.Status != entity.OrderStatusFilled {
		t.Fatalf("filled order must carry its event: %+v", orders[1])
	}
}

func TestListOrdersErrors(t *testing.T) {
	svc := NewOrderService(&fakeCommandStore{listErr: errors.New("boom")}, &fakeEventStore{}, broker.NewMemoryBridge())
	if _, err := svc.ListOrders(context.Background(), "user-1"); !errors.Is(err, ErrListOrdersFailed) {
		t.Fatalf("ListOrders() error = %v, want %v", err, ErrListOrdersFailed)
	}

	svc = NewOrderService(&fakeCommandStore{}, &fakeEventStore{err: errors.New("boom")}, broker.NewMemoryBridge())
	if _, err := svc.ListOrders(context.Background(), "user-1"); !errors.Is(err, ErrListLatestEventsFailed) {
		t.Fatalf("ListOrders() error = %v, want %v", err, ErrListLatestEventsFailed)
	}
}
