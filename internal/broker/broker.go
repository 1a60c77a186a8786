// Package broker is the thin publish/subscribe contract over the external
// message broker. Delivery is at-most-once from the pipeline's point of
// view: no ordering across subscribers, no acknowledgment semantics are
// assumed by callers, and idempotency is enforced downstream.
package broker

import "context"

type Handler func(ctx context.Context, data []byte) error

type Bridge interface {
	// Publish marshals payload to JSON and publishes it on subject.
	Publish(subject string, payload any) error
	// QueueSubscribe shares messages on subject across the members of queue;
	// one member handles each message.
	QueueSubscribe(ctx context.Context, subject, queue string, handler Handler) error
	// Subscribe delivers every message on subject to this subscriber.
	Subscribe(ctx context.Context, subject string, handler Handler) error
}
