package myredis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"coprocfleet/helpers"
	"coprocfleet/interfaces"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/go-redis/redis/v8"
)

// ErrPubSubClosed is returned by Subscribe after Close.
var ErrPubSubClosed = errors.New("pubsub is closed")

const subscribeTimeout = 5 * time.Second

// PubSub implements interfaces.PubSub over redis channels; topics map 1:1 to channel names.
type PubSub struct {
	client redis.UniversalClient
	logger log.Logger

	mu     sync.Mutex
	subs   []*redis.PubSub
	closed bool
}

var _ interfaces.PubSub = (*PubSub)(nil)

// NewPubSub wraps client. Panics on nil client or logger.
func NewPubSub(client redis.UniversalClient, logger log.Logger) *PubSub {
	return &PubSub{
		client: helpers.NilPanic(client, "adapters.myredis.pubsub.go: redis client is required"),
		logger: log.With(helpers.NilPanic(logger, "adapters.myredis.pubsub.go: logger is required"), "component", "redis_pubsub"),
	}
}

// Subscribe waits for redis to confirm the subscription, then delivers every message on topic
// to handler from a dedicated goroutine. A panicking handler is logged and the delivery loop
// keeps going.
func (p *PubSub) Subscribe(topic string, handler func(payload []byte)) error {
	helpers.NilPanic(handler, "adapters.myredis.pubsub.go: handler is required")
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPubSubClosed
	}

	ctx, cancel := context.WithTimeout(context.Background(), subscribeTimeout)
	defer cancel()
	sub := p.client.Subscribe(ctx, topic)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}
	p.subs = append(p.subs, sub)
	go p.deliver(topic, sub.Channel(), handler)
	level.Info(p.logger).Log("msg", "subscribed", "topic", topic)
	return nil
}

// Publish sends payload on topic.
func (p *PubSub) Publish(ctx context.Context, topic string, payload []byte) error {
	if err := p.client.Publish(ctx, topic, payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// Close ends every subscription. The underlying client is left open.
func (p *PubSub) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	var errs []error
	for _, sub := range p.subs {
		if err := sub.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	p.subs = nil
	return errors.Join(errs...)
}

func (p *PubSub) deliver(topic string, ch <-chan *redis.Message, handler func([]byte)) {
	for msg := range ch {
		p.dispatch(topic, handler, []byte(msg.Payload))
	}
	level.Debug(p.logger).Log("msg", "subscription closed", "topic", topic)
}

func (p *PubSub) dispatch(topic string, handler func([]byte), payload []byte) {
	defer func() {
		if r := recover(); r != nil {
			level.Error(p.logger).Log("msg", "subscriber handler panicked", "topic", topic, "panic", r)
		}
	}()
	handler(payload)
}
