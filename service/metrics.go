package service

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Command operations, used as the "operation" label.
const (
	opSetConfig    = "set_config"
	opStart        = "start"
	opStop         = "stop"
	opStopSingle   = "stop_single"
	outcomeOK      = "ok"
	outcomeFailed  = "failed"
	outcomeSkipped = "skipped"
)

// Metrics collects control-plane counters. A nil *Metrics is valid and records nothing.
type Metrics struct {
	CommandCalls      *prometheus.CounterVec
	CommandDuration   *prometheus.HistogramVec
	NodeLoad          *prometheus.GaugeVec
	EnvelopesReceived prometheus.Counter
	EnvelopesDropped  prometheus.Counter
	Publications      *prometheus.CounterVec
}

// NewMetrics builds the collectors and registers them on reg when reg is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CommandCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "coprocfleet",
			Name:      "command_calls_total",
			Help:      "Command channel calls by operation and outcome.",
		}, []string{"operation", "outcome"}),
		CommandDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "coprocfleet",
			Name:      "command_call_duration_seconds",
			Help:      "Command channel call latency.",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"operation"}),
		NodeLoad: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "coprocfleet",
			Name:      "node_assigned_weight",
			Help:      "Aggregate weight assigned to a node after placement.",
		}, []string{"node"}),
		EnvelopesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "coprocfleet",
			Name:      "log_envelopes_received_total",
			Help:      "Log envelopes decoded from the node bus.",
		}),
		EnvelopesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "coprocfleet",
			Name:      "log_envelopes_dropped_total",
			Help:      "Malformed log envelopes dropped.",
		}),
		Publications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "coprocfleet",
			Name:      "publications_total",
			Help:      "Periodic publications sent to the node bus by outcome.",
		}, []string{"outcome"}),
	}
	if reg != nil {
		reg.MustRegister(m.CommandCalls, m.CommandDuration, m.NodeLoad, m.EnvelopesReceived, m.EnvelopesDropped, m.Publications)
	}
	return m
}

func (m *Metrics) observeCall(operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	outcome := outcomeOK
	if err != nil {
		outcome = outcomeFailed
	}
	m.CommandCalls.WithLabelValues(operation, outcome).Inc()
	m.CommandDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func (m *Metrics) skipCall(operation string) {
	if m == nil {
		return
	}
	m.CommandCalls.WithLabelValues(operation, outcomeSkipped).Inc()
}

func (m *Metrics) setLoad(node string, load float64) {
	if m == nil {
		return
	}
	m.NodeLoad.WithLabelValues(node).Set(load)
}

func (m *Metrics) envelope(dropped bool) {
	if m == nil {
		return
	}
	if dropped {
		m.EnvelopesDropped.Inc()
		return
	}
	m.EnvelopesReceived.Inc()
}

func (m *Metrics) published(err error) {
	if m == nil {
		return
	}
	outcome := outcomeOK
	if err != nil {
		outcome = outcomeFailed
	}
	m.Publications.WithLabelValues(outcome).Inc()
}
