package executor

import (
	"context"
	"errors"
	"time"

	"github.com/krobus00/trading-service/internal/broker"
	"github.com/krobus00/trading-service/internal/constant"
	"github.com/krobus00/trading-service/internal/entity"
	"github.com/krobus00/trading-service/internal/exchange"
	"github.com/krobus00/trading-service/internal/locker"
	"github.com/krobus00/trading-service/internal/repository"
	"github.com/krobus00/trading-service/internal/vault"
	"github.com/sirupsen/logrus"
)

var ErrAppendEventFailed = errors.New("failed to append order event")

type CommandStore interface {
	UpdateStatus(ctx context.Context, orderID string, status entity.OrderStatus) error
}

type EventStore interface {
	Append(ctx context.Context, event *entity.OrderEvent) error
	GetByOrderID(ctx context.Context, orderID string) (*entity.OrderEvent, error)
}

type CredentialSource interface {
	GetCredentials(ctx context.Context, userID string) (*entity.UserCredentials, error)
}

// ExecutorService consumes order commands from the command channel, executes
// them against the exchange and emits the outcome on the event channel.
type ExecutorService struct {
	commandStore   CommandStore
	eventStore     EventStore
	credentials    CredentialSource
	vault          *vault.Vault
	exchangeClient exchange.Client
	orderLocker    locker.OrderLocker
	bridge         broker.Bridge
}

func NewExecutorService(
	commandStore CommandStore,
	eventStore EventStore,
	credentials CredentialSource,
	credentialVault *vault.Vault,
	exchangeClient exchange.Client,
	orderLocker locker.OrderLocker,
	bridge broker.Bridge,
) *ExecutorService {
	return &ExecutorService{
		commandStore:   commandStore,
		eventStore:     eventStore,
		credentials:    credentials,
		vault:          credentialVault,
		exchangeClient: exchangeClient,
		orderLocker:    orderLocker,
		bridge:         bridge,
	}
}

func (s *ExecutorService) Subscribe(ctx context.Context) error {
	return s.bridge.QueueSubscribe(ctx, constant.OrderCommandSubject, constant.ExecutionQueueGroup, s.HandleCommandMessage)
}

// HandleCommandMessage processes one command delivery. Redelivery of an
// already-processed command must produce no second exchange call and no
// second event: the per-order lock covers commands in flight, the event
// store lookup plus its unique constraint cover commands already settled.
func (s *ExecutorService) HandleCommandMessage(ctx context.Context, data []byte) error {
	logger := logrus.WithFields(logrus.Fields{
		"req": string(data),
	})

	command, err := entity.DecodeOrderCommandMessage(data)
	if err != nil {
		// malformed payloads are terminal, redelivery cannot fix them
		logger.Error(err)
		return nil
	}

	logger = logrus.WithFields(logrus.Fields{
		"order_id": command.OrderID,
		"user_id":  command.UserID,
	})

	acquired, err := s.orderLocker.Acquire(ctx, command.OrderID)
	if err != nil {
		logger.Error(err)
		return err
	}
	if !acquired {
		logger.Warn("order is already being processed, skipping duplicate delivery")
		return nil
	}
	defer func() {
		if err := s.orderLocker.Release(context.WithoutCancel(ctx), command.OrderID); err != nil {
			logger.Errorf("failed to release order lock: %v", err)
		}
	}()

	if existing, err := s.eventStore.GetByOrderID(ctx, command.OrderID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		logger.Error(err)
		return err
	} else if existing != nil {
		logger.Warn("order already has an execution event, skipping duplicate delivery")
		return nil
	}

	credentials, err := s.credentials.GetCredentials(ctx, command.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// command stays PENDING; there is no retry path for a missing user
			logger.Error("user not found, dropping order command")
			return nil
		}
		logger.Error(err)
		return err
	}

	apiKey, err := s.vault.Open(credentials.APIKeyEnc)
	if err != nil {
		logger.Errorf("failed to decrypt api key, dropping order command: %v", err)
		return nil
	}

	apiSecret, err := s.vault.Open(credentials.APISecretEnc)
	if err != nil {
		logger.Errorf("failed to decrypt api secret, dropping order command: %v", err)
		return nil
	}

	result := s.exchangeClient.Submit(ctx, apiKey, apiSecret, *command)

	now := time.Now().UTC()
	event := &entity.OrderEvent{
		OrderID:   command.OrderID,
		UserID:    command.UserID,
		Status:    result.Status,
		Symbol:    command.Symbol,
		Side:      command.Side,
		Quantity:  command.Quantity,
		Price:     result.FillPrice,
		Timestamp: now,
		CreatedAt: now,
	}
	if result.Error != "" {
		errMsg := result.Error
		event.Error = &errMsg
	}

	if err := s.eventStore.Append(ctx, event); err != nil {
		if errors.Is(err, repository.ErrDuplicateEvent) {
			logger.Warn("order event already persisted, suppressing duplicate processing")
			return nil
		}
		logger.Error(err)
		return ErrAppendEventFailed
	}

	if err := s.commandStore.UpdateStatus(ctx, command.OrderID, result.Status); err != nil {
		// the outcome event is persisted; a failed status write must not
		// block fan-out, so log and keep going
		logger.Errorf("failed to update order command status: %v", err)
	}

	message := entity.OrderEventMessage{
		OrderID:   event.OrderID,
		UserID:    event.UserID,
		Status:    event.Status,
		Symbol:    event.Symbol,
		Side:      event.Side,
		Quantity:  event.Quantity,
		Price:     event.Price,
		Timestamp: event.Timestamp,
		Error:     event.Error,
	}

	if err := s.bridge.Publish(constant.OrderEventSubject, message); err != nil {
		// delivery to sessions is best-effort; clients recover current state
		// through the pull endpoints
		logger.Errorf("failed to publish order event: %v", err)
		return nil
	}

	logger.WithField("status", event.Status).Info("order command executed")

	return nil
}
