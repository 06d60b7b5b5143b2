package service

import (
	"fmt"
	"io"
	"sync"

	"coprocfleet/domain"
	"coprocfleet/helpers"
	"coprocfleet/interfaces"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// LogSink receives decoded log envelopes. It runs on the transport's delivery goroutine and
// should return quickly.
type LogSink func(domain.LogEnvelope)

// LogSubscriber decodes node log envelopes arriving on the pub/sub bus.
type LogSubscriber struct {
	bus     interfaces.PubSub
	logger  log.Logger
	metrics *Metrics
}

// NewLogSubscriber panics on nil bus or logger. metrics may be nil.
func NewLogSubscriber(bus interfaces.PubSub, logger log.Logger, metrics *Metrics) *LogSubscriber {
	return &LogSubscriber{
		bus:     helpers.NilPanic(bus, "service.log_subscriber.go: pubsub is required"),
		logger:  log.With(helpers.NilPanic(logger, "service.log_subscriber.go: logger is required"), "component", "log_subscriber"),
		metrics: metrics,
	}
}

// Subscribe delivers every well-formed envelope on topic to sink. Malformed payloads and sink
// panics are logged and dropped; the subscription stays up.
func (s *LogSubscriber) Subscribe(topic string, sink LogSink) error {
	helpers.StrPanic(topic, "service.log_subscriber.go: topic is required")
	helpers.NilPanic(sink, "service.log_subscriber.go: sink is required")
	if err := s.bus.Subscribe(topic, func(payload []byte) { s.handle(topic, payload, sink) }); err != nil {
		level.Error(s.logger).Log("msg", "failed to subscribe", "topic", topic, "err", err)
		return err
	}
	return nil
}

func (s *LogSubscriber) handle(topic string, payload []byte, sink LogSink) {
	envelope, err := DecodeLogEnvelope(payload)
	if err != nil {
		s.metrics.envelope(true)
		level.Warn(s.logger).Log("msg", "dropping log envelope", "topic", topic, "bytes", len(payload), "err", err)
		return
	}
	s.metrics.envelope(false)
	defer func() {
		if r := recover(); r != nil {
			level.Error(s.logger).Log("msg", "log sink panicked", "topic", topic, "panic", fmt.Sprint(r))
		}
	}()
	sink(envelope)
}

// LoggerSink writes envelopes to logger, one record per envelope.
func LoggerSink(logger log.Logger) LogSink {
	helpers.NilPanic(logger, "service.log_subscriber.go: logger is required")
	return func(e domain.LogEnvelope) {
		level.Info(logger).Log("node", e.NodeName, "prefix", e.Prefix, "msg", e.Message)
	}
}

// WriterSink writes envelopes to w as "<prefix> <node>: <message>" lines.
func WriterSink(w io.Writer) LogSink {
	helpers.NilPanic(w, "service.log_subscriber.go: writer is required")
	var mu sync.Mutex
	return func(e domain.LogEnvelope) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintln(w, e.String())
	}
}
