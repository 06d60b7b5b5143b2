package service

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
)

// Publication is a piece of controller state pushed to the node bus on every tick.
type Publication interface {
	Topic() string
	Payload() ([]byte, error)
}

type publicationFunc struct {
	topic   string
	payload func() ([]byte, error)
}

func (p publicationFunc) Topic() string            { return p.topic }
func (p publicationFunc) Payload() ([]byte, error) { return p.payload() }

// NewPublication publishes whatever payload returns at the time of each tick on topic.
func NewPublication(topic string, payload func() ([]byte, error)) Publication {
	helpers.StrPanic(topic, "service.publisher.go: topic is required")
	return publicationFunc{topic: topic, payload: helpers.NilPanic(payload, "service.publisher.go: payload is required")}
}

// PeriodicPublisher publishes a set of publications to the bus at a fixed interval.
// Publications are sent in registration order; a failing one does not stop the rest.
type PeriodicPublisher struct {
	bus     interfaces.Publisher
	logger  log.Logger
	metrics *Metrics

	mu           sync.Mutex
	publications []Publication
}

// NewPeriodicPublisher panics on nil bus or logger. metrics may be nil.
func NewPeriodicPublisher(bus interfaces.Publisher, logger log.Logger, metrics *Metrics) *PeriodicPublisher {
	return &PeriodicPublisher{
		bus:     helpers.NilPanic(bus, "service.publisher.go: publisher is required"),
		logger:  log.With(helpers.NilPanic(logger, "service.publisher.go: logger is required"), "component", "publisher"),
		metrics: metrics,
	}
}

// Add registers p for every following tick.
func (pp *PeriodicPublisher) Add(p Publication) {
	helpers.NilPanic(p, "service.publisher.go: publication is required")
	pp.mu.Lock()
	defer pp.mu.Unlock()
	pp.publications = append(pp.publications, p)
}

// Len returns the number of registered publications.
func (pp *PeriodicPublisher) Len() int {
	pp.mu.Lock()
	defer pp.mu.Unlock()
	return len(pp.publications)
}

// PublishOnce sends every publication once and joins the failures.
func (pp *PeriodicPublisher) PublishOnce(ctx context.Context) error {
	pp.mu.Lock()
	publications := append([]Publication(nil), pp.publications...)
	pp.mu.Unlock()

	var errs []error
	for _, p := range publications {
		err := pp.publish(ctx, p)
		pp.metrics.published(err)
		if err != nil {
			level.Warn(pp.logger).Log("msg", "publication failed", "topic", p.Topic(), "err", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (pp *PeriodicPublisher) publish(ctx context.Context, p Publication) error {
	payload, err := p.Payload()
	if err != nil {
		return fmt.Errorf("build payload for %s: %w", p.Topic(), err)
	}
	return pp.bus.Publish(ctx, p.Topic(), payload)
}

// Run publishes on every tick of interval until ctx is done, then returns ctx.Err().
// Failures are logged and counted; they never end the loop.
func (pp *PeriodicPublisher) Run(ctx context.Context, interval time.Duration) error {
	helpers.PositivePanic(interval, "service.publisher.go: interval must be positive")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	level.Info(pp.logger).Log("msg", "publishing", "interval", interval, "publications", pp.Len())
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			_ = pp.PublishOnce(ctx)
		}
	}
}
