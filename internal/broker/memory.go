package broker

import (
	"context"
	"sync"

	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"
)

// MemoryBridge is an in-process Bridge used in tests and local development.
// It mirrors the broker contract: at-most-once, no ordering across
// subscribers, queue members share messages round-robin.
type MemoryBridge struct {
	mu          sync.RWMutex
	subscribers map[string][]Handler
	queues      map[string]map[string][]Handler
	queueNext   map[string]int
}

func NewMemoryBridge() *MemoryBridge {
	return &MemoryBridge{
		subscribers: make(map[string][]Handler),
		queues:      make(map[string]map[string][]Handler),
		queueNext:   make(map[string]int),
	}
}

func (b *MemoryBridge) Publish(subject string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	b.mu.Lock()
	handlers := make([]Handler, len(b.subscribers[subject]))
	copy(handlers, b.subscribers[subject])

	for queue, members := range b.queues[subject] {
		if len(members) == 0 {
			continue
		}
		key := subject + "/" + queue
		next := b.queueNext[key] % len(members)
		b.queueNext[key] = next + 1
		handlers = append(handlers, members[next])
	}
	b.mu.Unlock()

	for _, handler := range handlers {
		if err := handler(context.Background(), data); err != nil {
			logrus.Errorf("memory bridge handler failed: %v", err)
		}
	}

	return nil
}

func (b *MemoryBridge) QueueSubscribe(_ context.Context, subject, queue string, handler Handler) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.queues[subject] == nil {
		b.queues[subject] = make(map[string][]Handler)
	}
	b.queues[subject][queue] = append(b.queues[subject][queue], handler)

	return nil
}

func (b *MemoryBridge) Subscribe(_ context.Context, subject string, handler Handler) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.subscribers[subject] = append(b.subscribers[subject], handler)

	return nil
}
