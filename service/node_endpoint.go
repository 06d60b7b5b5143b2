package service

import (
	"net"
	"strconv"
	"sync"
	"time"

	"coprocfleet/domain"
	"coprocfleet/helpers"
	"coprocfleet/interfaces"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// NodeSpec describes how to reach a coprocessor. Zero ports are replaced by the
// process-wide defaults; an empty DisplayName falls back to the command address.
type NodeSpec struct {
	Host        string
	CommandPort int
	PubSubPort  int
	DisplayName string
	SystemName  string
	BaseWeight  float64
}

// NodeEndpoint is one coprocessor: its two addresses, the processes assigned to it and the
// command channel used to drive them. Remote calls are best effort: failures are logged and
// reported as false, never retried.
type NodeEndpoint[P domain.WeightedProcess] struct {
	host           string
	commandAddress string
	pubsubAddress  string
	displayName    string
	systemName     string
	channel        interfaces.CommandChannel
	logger         log.Logger
	metrics        *Metrics

	mu         sync.Mutex
	processes  []P
	baseWeight float64
}

// NewNodeEndpoint creates a node that sends commands through channel. metrics may be nil.
// Panics on empty host, nil channel or nil logger.
func NewNodeEndpoint[P domain.WeightedProcess](
	spec NodeSpec,
	channel interfaces.CommandChannel,
	logger log.Logger,
	metrics *Metrics,
	processes ...P,
) *NodeEndpoint[P] {
	helpers.StrPanic(spec.Host, "service.node_endpoint.go: host is required")
	commandPort := spec.CommandPort
	if commandPort == 0 {
		commandPort = domain.DefaultCommandPort
	}
	pubsubPort := spec.PubSubPort
	if pubsubPort == 0 {
		pubsubPort = domain.DefaultPubSubPort
	}
	commandAddress := CommandAddress(spec.Host, commandPort)
	displayName := spec.DisplayName
	if displayName == "" {
		displayName = commandAddress
	}
	n := &NodeEndpoint[P]{
		host:           spec.Host,
		commandAddress: commandAddress,
		pubsubAddress:  net.JoinHostPort(spec.Host, strconv.Itoa(pubsubPort)),
		displayName:    displayName,
		systemName:     spec.SystemName,
		channel:        helpers.NilPanic(channel, "service.node_endpoint.go: command channel is required"),
		metrics:        metrics,
		processes:      append([]P(nil), processes...),
		baseWeight:     spec.BaseWeight,
	}
	n.logger = log.With(helpers.NilPanic(logger, "service.node_endpoint.go: logger is required"),
		"component", "node", "node", displayName, "address", commandAddress)
	return n
}

// CommandAddress is the base URL of a node's command channel.
func CommandAddress(host string, port int) string {
	return "http://" + net.JoinHostPort(host, strconv.Itoa(port))
}

func (n *NodeEndpoint[P]) Host() string           { return n.host }
func (n *NodeEndpoint[P]) CommandAddress() string { return n.commandAddress }
func (n *NodeEndpoint[P]) PubSubAddress() string  { return n.pubsubAddress }
func (n *NodeEndpoint[P]) DisplayName() string    { return n.displayName }

// SystemName is the name the node advertised during discovery; empty for manually added nodes.
func (n *NodeEndpoint[P]) SystemName() string { return n.systemName }

// AddProcess appends processes to the assignment list. Callers keep the list free of duplicates.
func (n *NodeEndpoint[P]) AddProcess(processes ...P) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.processes = append(n.processes, processes...)
}

// Processes returns a copy of the assignment list.
func (n *NodeEndpoint[P]) Processes() []P {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]P(nil), n.processes...)
}

// HasProcess reports whether p is assigned to the node.
func (n *NodeEndpoint[P]) HasProcess(p P) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, assigned := range n.processes {
		if assigned == p {
			return true
		}
	}
	return false
}

func (n *NodeEndpoint[P]) BaseWeight() float64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.baseWeight
}

func (n *NodeEndpoint[P]) SetBaseWeight(w float64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.baseWeight = w
}

// AggregateWeight is the sum of the assigned processes' weights plus the base weight.
func (n *NodeEndpoint[P]) AggregateWeight() float64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return domain.TotalWeight(n.processes) + n.baseWeight
}

// SetConfiguration pushes rawConfig to the node. Returns true iff the node acknowledged it.
func (n *NodeEndpoint[P]) SetConfiguration(rawConfig string) bool {
	start := time.Now()
	err := n.channel.SetConfig(rawConfig)
	n.metrics.observeCall(opSetConfig, start, err)
	if err != nil {
		level.Error(n.logger).Log("msg", "failed to set config", "err", err)
		return false
	}
	return true
}

// StartAssignedProcesses sends the whole assignment list in one request. With nothing assigned
// it returns false without contacting the node.
func (n *NodeEndpoint[P]) StartAssignedProcesses() bool {
	processes := n.Processes()
	if len(processes) == 0 {
		n.metrics.skipCall(opStart)
		level.Warn(n.logger).Log("msg", "no processes to start")
		return false
	}
	start := time.Now()
	err := n.channel.StartProcesses(domain.ProcessIDs(processes))
	n.metrics.observeCall(opStart, start, err)
	if err != nil {
		level.Error(n.logger).Log("msg", "failed to start processes", "processes", len(processes), "err", err)
		return false
	}
	return true
}

// StopAssignedProcesses sends the whole assignment list, even when it is empty.
func (n *NodeEndpoint[P]) StopAssignedProcesses() bool {
	processes := n.Processes()
	start := time.Now()
	err := n.channel.StopProcesses(domain.ProcessIDs(processes))
	n.metrics.observeCall(opStop, start, err)
	if err != nil {
		level.Error(n.logger).Log("msg", "failed to stop processes", "processes", len(processes), "err", err)
		return false
	}
	return true
}

// StopProcess drops p from the assignment list and then asks the node to stop it. The local
// removal stands even if the request fails.
func (n *NodeEndpoint[P]) StopProcess(p P) bool {
	n.mu.Lock()
	kept := n.processes[:0]
	for _, assigned := range n.processes {
		if assigned != p {
			kept = append(kept, assigned)
		}
	}
	n.processes = kept
	n.mu.Unlock()

	start := time.Now()
	err := n.channel.StopProcesses([]string{p.String()})
	n.metrics.observeCall(opStopSingle, start, err)
	if err != nil {
		level.Error(n.logger).Log("msg", "failed to stop process", "process", p.String(), "err", err)
		return false
	}
	return true
}
