package broker

import (
	"context"
	"errors"
	"time"

	"github.com/goccy/go-json"
	"github.com/krobus00/trading-service/internal/constant"
	"github.com/krobus00/trading-service/internal/util"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

const defaultHandlerTimeout = 30 * time.Second

// JetStreamBridge implements Bridge on NATS JetStream. Handler execution is
// bounded by per-subject timeouts from config; messages are acked only after
// the handler returns without error.
type JetStreamBridge struct {
	js              nats.JetStreamContext
	handlerTimeouts map[string]time.Duration
}

func NewJetStreamBridge(js nats.JetStreamContext, handlerTimeouts map[string]time.Duration) *JetStreamBridge {
	return &JetStreamBridge{
		js:              js,
		handlerTimeouts: handlerTimeouts,
	}
}

// InitOrderStream creates or updates the stream backing the command and
// event channels.
func (b *JetStreamBridge) InitOrderStream(ctx context.Context) error {
	streamConfig := &nats.StreamConfig{
		Name:      constant.OrderStreamName,
		Subjects:  []string{constant.OrderStreamSubjectAll},
		Retention: nats.LimitsPolicy,
		Storage:   nats.FileStorage,
		MaxAge:    24 * time.Hour,
	}

	stream, err := b.js.StreamInfo(constant.OrderStreamName, nats.Context(ctx))
	if err != nil && !errors.Is(err, nats.ErrStreamNotFound) {
		logrus.Error(err)
		return err
	}

	if stream == nil {
		logrus.Infof("creating stream: %s", constant.OrderStreamName)
		_, err = b.js.AddStream(streamConfig, nats.Context(ctx))
		return err
	}

	logrus.Infof("updating stream: %s", constant.OrderStreamName)
	_, err = b.js.UpdateStream(streamConfig, nats.Context(ctx))
	if err != nil {
		logrus.Error(err)
		return err
	}

	return nil
}

func (b *JetStreamBridge) Publish(subject string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	_, err = b.js.Publish(subject, data)
	if err != nil {
		return err
	}

	return nil
}

func (b *JetStreamBridge) QueueSubscribe(ctx context.Context, subject, queue string, handler Handler) error {
	_, err := b.js.QueueSubscribe(
		subject,
		queue,
		func(msg *nats.Msg) {
			err := b.process(subject, msg.Data, handler)
			if err != nil {
				logrus.Errorf("error processing message: %v", err)
				return
			}

			err = msg.Ack()
			if err != nil {
				logrus.Errorf("failed to acknowledge message: %v", err)
				return
			}
		},
		nats.ManualAck(),
		nats.Durable(queue),
	)

	return err
}

func (b *JetStreamBridge) Subscribe(ctx context.Context, subject string, handler Handler) error {
	_, err := b.js.Subscribe(
		subject,
		func(msg *nats.Msg) {
			if err := b.process(subject, msg.Data, handler); err != nil {
				logrus.Errorf("error processing message: %v", err)
			}
		},
		// only deliver messages published after this subscriber attached;
		// a connecting client pulls current state instead of replaying
		nats.DeliverNew(),
	)

	return err
}

func (b *JetStreamBridge) process(subject string, data []byte, handler Handler) error {
	timeout := b.handlerTimeouts[subject]
	if timeout <= 0 {
		timeout = defaultHandlerTimeout
	}

	return util.ProcessWithTimeout(timeout, data, handler)
}
