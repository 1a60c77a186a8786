package fanout

import (
	"context"

	"github.com/goccy/go-json"
	"github.com/krobus00/trading-service/internal/broker"
	"github.com/krobus00/trading-service/internal/constant"
	"github.com/krobus00/trading-service/internal/entity"
	"github.com/krobus00/trading-service/internal/session"
	"github.com/sirupsen/logrus"
)

// PushMessage is the envelope delivered to session clients.
type PushMessage struct {
	Type string                   `json:"type"`
	Data entity.OrderEventMessage `json:"data"`
}

const PushTypeOrderUpdate = "ORDER_UPDATE"

// FanoutService pushes order events to every live session of the owning
// user. Delivery is best-effort and per-session independent: one slow or
// broken session never blocks the others, and events for users without live
// sessions are dropped (connecting clients pull current state instead).
type FanoutService struct {
	registry *session.Registry
	bridge   broker.Bridge
}

func NewFanoutService(registry *session.Registry, bridge broker.Bridge) *FanoutService {
	return &FanoutService{
		registry: registry,
		bridge:   bridge,
	}
}

func (s *FanoutService) Subscribe(ctx context.Context) error {
	return s.bridge.Subscribe(ctx, constant.OrderEventSubject, s.HandleOrderEvent)
}

func (s *FanoutService) HandleOrderEvent(ctx context.Context, data []byte) error {
	logger := logrus.WithFields(logrus.Fields{
		"req": string(data),
	})

	event, err := entity.DecodeOrderEventMessage(data)
	if err != nil {
		logger.Error(err)
		return nil
	}

	sinks := s.registry.Sessions(event.UserID)
	if len(sinks) == 0 {
		return nil
	}

	payload, err := json.Marshal(PushMessage{
		Type: PushTypeOrderUpdate,
		Data: *event,
	})
	if err != nil {
		logger.Error(err)
		return nil
	}

	delivered := 0
	for _, sink := range sinks {
		if err := sink.Send(payload); err != nil {
			logger.Warnf("failed to deliver order event to session: %v", err)
			continue
		}
		delivered++
	}

	logger.WithFields(logrus.Fields{
		"order_id":  event.OrderID,
		"user_id":   event.UserID,
		"delivered": delivered,
		"sessions":  len(sinks),
	}).Info("order event fanned out")

	return nil
}
