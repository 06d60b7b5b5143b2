package service

import (
	"fmt"
	"net"
	"strconv"
	"sync"

	"coprocfleet/domain"
	"coprocfleet/helpers"
	"coprocfleet/interfaces"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// FleetOption configures a Fleet or AutoPlacingFleet.
type FleetOption func(*fleetOptions)

type fleetOptions struct {
	metrics     *Metrics
	commandPort int
	pubsubPort  int
	baseWeights map[string]float64
}

func defaultFleetOptions() fleetOptions {
	return fleetOptions{
		commandPort: domain.DefaultCommandPort,
		pubsubPort:  domain.DefaultPubSubPort,
		baseWeights: map[string]float64{},
	}
}

// WithMetrics records command calls and node loads on m.
func WithMetrics(m *Metrics) FleetOption {
	return func(o *fleetOptions) { o.metrics = m }
}

// WithDefaultPorts overrides the ports used for nodes that do not specify their own.
// A zero port keeps the process-wide default.
func WithDefaultPorts(commandPort, pubsubPort int) FleetOption {
	return func(o *fleetOptions) {
		if commandPort != 0 {
			o.commandPort = commandPort
		}
		if pubsubPort != 0 {
			o.pubsubPort = pubsubPort
		}
	}
}

// WithBaseWeights sets the base weight of discovered nodes, keyed by advertised system name.
func WithBaseWeights(weights map[string]float64) FleetOption {
	return func(o *fleetOptions) {
		for name, w := range weights {
			o.baseWeights[name] = w
		}
	}
}

// Fleet is an ordered set of nodes with batch lifecycle operations. The first node added is
// the main node; nodes are never removed or reordered.
type Fleet[P domain.WeightedProcess] struct {
	factory    interfaces.CommandChannelFactory
	logger     log.Logger
	nodeLogger log.Logger
	opts       fleetOptions

	mu    sync.RWMutex
	nodes []*NodeEndpoint[P]
}

// NewFleet creates an empty fleet whose nodes get their command channel from factory.
// Panics on nil factory or logger.
func NewFleet[P domain.WeightedProcess](factory interfaces.CommandChannelFactory, logger log.Logger, opts ...FleetOption) *Fleet[P] {
	o := defaultFleetOptions()
	for _, opt := range opts {
		opt(&o)
	}
	helpers.NilPanic(logger, "service.fleet.go: logger is required")
	return &Fleet[P]{
		factory:    helpers.NilPanic(factory, "service.fleet.go: command channel factory is required"),
		logger:     log.With(logger, "component", "fleet"),
		nodeLogger: logger,
		opts:       o,
	}
}

// NewNode builds a node wired to the fleet's channel factory, logger and metrics without
// adding it. Zero ports in spec take the fleet defaults, then the process-wide ones.
// The channel is dialled at the node's own command address.
func (f *Fleet[P]) NewNode(spec NodeSpec, processes ...P) *NodeEndpoint[P] {
	spec.CommandPort = portOr(spec.CommandPort, f.opts.commandPort, domain.DefaultCommandPort)
	spec.PubSubPort = portOr(spec.PubSubPort, f.opts.pubsubPort, domain.DefaultPubSubPort)
	channel := f.factory(CommandAddress(spec.Host, spec.CommandPort))
	return NewNodeEndpoint(spec, channel, f.nodeLogger, f.opts.metrics, processes...)
}

// portOr returns the first non-zero port.
func portOr(ports ...int) int {
	for _, p := range ports {
		if p != 0 {
			return p
		}
	}
	return 0
}

// Add appends node to the fleet.
func (f *Fleet[P]) Add(node *NodeEndpoint[P]) {
	helpers.NilPanic(node, "service.fleet.go: node is required")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nodes = append(f.nodes, node)
}

// AddHost adds a node at host on the default ports.
func (f *Fleet[P]) AddHost(host string, processes ...P) *NodeEndpoint[P] {
	node := f.NewNode(NodeSpec{Host: host}, processes...)
	f.Add(node)
	return node
}

// AddHostWithPorts adds a node at host with explicit command and pub/sub ports.
func (f *Fleet[P]) AddHostWithPorts(host string, commandPort, pubsubPort int, processes ...P) *NodeEndpoint[P] {
	node := f.NewNode(NodeSpec{Host: host, CommandPort: commandPort, PubSubPort: pubsubPort}, processes...)
	f.Add(node)
	return node
}

// AddNamed adds a node from its pub/sub address ("host:port") under a display name. The command
// channel uses the default command port.
func (f *Fleet[P]) AddNamed(pubsubAddress, name string, processes ...P) (*NodeEndpoint[P], error) {
	host, portStr, err := net.SplitHostPort(pubsubAddress)
	if err != nil {
		return nil, NewBadParameterError(fmt.Sprintf("invalid pub/sub address %q", pubsubAddress), err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return nil, NewBadParameterError(fmt.Sprintf("invalid pub/sub port in %q", pubsubAddress), err)
	}
	node := f.NewNode(NodeSpec{Host: host, PubSubPort: port, DisplayName: name}, processes...)
	f.Add(node)
	return node, nil
}

// MainNode returns the first node added. Calling it on an empty fleet is a programming error
// and panics.
func (f *Fleet[P]) MainNode() *NodeEndpoint[P] {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if len(f.nodes) == 0 {
		panic("service.fleet.go: main node requested from an empty fleet")
	}
	return f.nodes[0]
}

// Nodes returns the nodes in fleet order.
func (f *Fleet[P]) Nodes() []*NodeEndpoint[P] {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]*NodeEndpoint[P](nil), f.nodes...)
}

func (f *Fleet[P]) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.nodes)
}

// StartAll starts every node's assigned processes. True iff every node succeeded.
func (f *Fleet[P]) StartAll() bool {
	return f.forEach("start", func(n *NodeEndpoint[P]) bool {
		return n.StartAssignedProcesses()
	})
}

// StopAll stops every node's assigned processes. True iff every node succeeded.
func (f *Fleet[P]) StopAll() bool {
	return f.forEach("stop", func(n *NodeEndpoint[P]) bool {
		return n.StopAssignedProcesses()
	})
}

// SetConfigAll pushes rawConfig to every node. True iff every node acknowledged it.
func (f *Fleet[P]) SetConfigAll(rawConfig string) bool {
	return f.forEach("set_config", func(n *NodeEndpoint[P]) bool {
		return n.SetConfiguration(rawConfig)
	})
}

// RestartAll stops the whole fleet and, only if every stop succeeded, starts it again.
func (f *Fleet[P]) RestartAll() bool {
	if !f.StopAll() {
		level.Warn(f.logger).Log("msg", "restart aborted, not every node stopped cleanly")
		return false
	}
	return f.StartAll()
}

// forEach runs op on every node concurrently and waits for all of them.
func (f *Fleet[P]) forEach(operation string, op func(*NodeEndpoint[P]) bool) bool {
	nodes := f.Nodes()
	results := make([]bool, len(nodes))
	var wg sync.WaitGroup
	for i, node := range nodes {
		wg.Add(1)
		go func(i int, node *NodeEndpoint[P]) {
			defer wg.Done()
			results[i] = op(node)
		}(i, node)
	}
	wg.Wait()

	failed := 0
	for _, ok := range results {
		if !ok {
			failed++
		}
	}
	if failed > 0 {
		level.Warn(f.logger).Log("msg", "fleet operation incomplete", "operation", operation, "failed", failed, "nodes", len(nodes))
		return false
	}
	level.Debug(f.logger).Log("msg", "fleet operation complete", "operation", operation, "nodes", len(nodes))
	return true
}

// NodePlacement is one node's share of the fleet's work.
type NodePlacement struct {
	Node       string   `json:"node" yaml:"node"`
	SystemName string   `json:"system_name,omitempty" yaml:"system_name,omitempty"`
	Processes  []string `json:"processes" yaml:"processes"`
	Load       float64  `json:"load" yaml:"load"`
}

// Placement reports every node's assigned processes and aggregate weight, in fleet order.
func (f *Fleet[P]) Placement() []NodePlacement {
	nodes := f.Nodes()
	out := make([]NodePlacement, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, NodePlacement{
			Node:       n.DisplayName(),
			SystemName: n.SystemName(),
			Processes:  domain.ProcessIDs(n.Processes()),
			Load:       n.AggregateWeight(),
		})
	}
	return out
}
