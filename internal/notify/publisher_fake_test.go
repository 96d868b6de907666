package notify

import (
	"context"
	"errors"
	"sync"
)

type published struct {
	topic    string
	retained bool
	payload  []byte
}

// fakePublisher records MQTT publishes.
type fakePublisher struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (f *fakePublisher) Publish(topic string, retained bool, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, published{topic: topic, retained: retained, payload: payload})
	return nil
}

type countingNotifier struct {
	calls int
	err   error
}

func (c *countingNotifier) Notify(context.Context, ReportEvent) error {
	c.calls++
	return c.err
}

var errBroker = errors.New("broker unavailable")
