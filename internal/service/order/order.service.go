package order

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/krobus00/trading-service/internal/broker"
	"github.com/krobus00/trading-service/internal/constant"
	"github.com/krobus00/trading-service/internal/entity"
	"github.com/krobus00/trading-service/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var (
	ErrDuplicateOrder         = errors.New("duplicate order")
	ErrCreateCommandFailed    = errors.New("failed to create order command")
	ErrPublishCommandFailed   = errors.New("failed to publish order command")
	ErrListOrdersFailed       = errors.New("failed to list orders")
	ErrListLatestEventsFailed = errors.New("failed to list latest order events")
)

type CommandStore interface {
	Create(ctx context.Context, command *entity.OrderCommand) error
	ListByUser(ctx context.Context, userID string) ([]entity.OrderCommand, error)
}

type EventStore interface {
	ListLatestByOrderIDs(ctx context.Context, orderIDs []string) (map[string]entity.OrderEvent, error)
}

type SubmitOrderRequest struct {
	UserID   string
	OrderID  *string // optional, server-generated when absent
	Symbol   string
	Side     entity.OrderSide
	Type     entity.OrderType
	Quantity decimal.Decimal
	Price    *decimal.Decimal
}

// OrderWithLatestEvent pairs a durable command with its most recent
// execution event, if one exists yet.
type OrderWithLatestEvent struct {
	Command     entity.OrderCommand
	LatestEvent *entity.OrderEvent
}

// OrderService is the submission path: it validates intents, records them
// durably as PENDING and hands them to the broker for asynchronous
// execution.
type OrderService struct {
	commandStore CommandStore
	eventStore   EventStore
	bridge       broker.Bridge
}

func NewOrderService(commandStore CommandStore, eventStore EventStore, bridge broker.Bridge) *OrderService {
	return &OrderService{
		commandStore: commandStore,
		eventStore:   eventStore,
		bridge:       bridge,
	}
}

// Submit validates and records the order intent, then publishes the command
// message. Validation failures surface synchronously and create nothing.
func (s *OrderService) Submit(ctx context.Context, req SubmitOrderRequest) (*entity.OrderCommand, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	orderID := ""
	if req.OrderID != nil {
		orderID = strings.TrimSpace(*req.OrderID)
	}
	if orderID == "" {
		orderID = uuid.NewString()
	}

	now := time.Now().UTC()
	command := &entity.OrderCommand{
		OrderID:   orderID,
		UserID:    req.UserID,
		Symbol:    strings.ToUpper(strings.TrimSpace(req.Symbol)),
		Side:      req.Side,
		Type:      req.Type,
		Quantity:  req.Quantity,
		Price:     req.Price,
		Status:    entity.OrderStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := command.Validate(); err != nil {
		return nil, err
	}

	if err := s.commandStore.Create(ctx, command); err != nil {
		if errors.Is(err, repository.ErrDuplicateOrder) {
			logrus.Warnf("duplicate order id: %s", orderID)
			return nil, ErrDuplicateOrder
		}
		logrus.Error(err)
		return nil, ErrCreateCommandFailed
	}

	message := entity.OrderCommandMessage{
		OrderID:   command.OrderID,
		UserID:    command.UserID,
		Symbol:    command.Symbol,
		Side:      command.Side,
		Type:      command.Type,
		Quantity:  command.Quantity,
		Price:     command.Price,
		Timestamp: now,
	}

	if err := s.bridge.Publish(constant.OrderCommandSubject, message); err != nil {
		// the command is recorded but not dispatched; it stays PENDING and
		// is visible to the caller through the orders listing
		logrus.Errorf("failed to publish order command %s: %v", command.OrderID, err)
		return nil, ErrPublishCommandFailed
	}

	logrus.WithFields(logrus.Fields{
		"order_id": command.OrderID,
		"user_id":  command.UserID,
		"symbol":   command.Symbol,
	}).Info("order command submitted")

	return command, nil
}

// ListOrders returns the user's commands newest first, each paired with its
// latest event.
func (s *OrderService) ListOrders(ctx context.Context, userID string) ([]OrderWithLatestEvent, error) {
	commands, err := s.commandStore.ListByUser(ctx, userID)
	if err != nil {
		logrus.Error(err)
		return nil, ErrListOrdersFailed
	}

	orderIDs := make([]string, 0, len(commands))
	for _, command := range commands {
		orderIDs = append(orderIDs, command.OrderID)
	}

	latestEvents, err := s.eventStore.ListLatestByOrderIDs(ctx, orderIDs)
	if err != nil {
		logrus.Error(err)
		return nil, ErrListLatestEventsFailed
	}

	orders := make([]OrderWithLatestEvent, 0, len(commands))
	for _, command := range commands {
		entry := OrderWithLatestEvent{Command: command}
		if event, ok := latestEvents[command.OrderID]; ok {
			eventCopy := event
			entry.LatestEvent = &eventCopy
		}
		orders = append(orders, entry)
	}

	return orders, nil
}
