package service

import (
	"fmt"
	"sync"
	"time"

	"coprocfleet/domain"
	"coprocfleet/helpers"
	"coprocfleet/interfaces"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// PlacementSpec is the input of an automatic placement run.
type PlacementSpec[P domain.WeightedProcess] struct {
	// Timeout is the discovery window. Zero means domain.DefaultDiscoveryTimeout.
	Timeout time.Duration
	// Work is placed in this order.
	Work []P
	// Constraints may be nil.
	Constraints *ConstraintTable[P]
}

// AutoPlacingFleet is a Fleet populated by discovery, with declared work spread across the
// discovered nodes.
type AutoPlacingFleet[P domain.WeightedProcess] struct {
	*Fleet[P]

	discoverer  interfaces.Discoverer
	timeout     time.Duration
	work        []P
	constraints *ConstraintTable[P]
	logger      log.Logger

	initMu sync.Mutex
}

func NewAutoPlacingFleet[P domain.WeightedProcess](
	discoverer interfaces.Discoverer,
	spec PlacementSpec[P],
	factory interfaces.CommandChannelFactory,
	logger log.Logger,
	opts ...FleetOption,
) *AutoPlacingFleet[P] {
	timeout := spec.Timeout
	if timeout == 0 {
		timeout = domain.DefaultDiscoveryTimeout
	}
	constraints := spec.Constraints
	if constraints == nil {
		constraints = NewConstraintTable[P]()
	}
	fleet := NewFleet[P](factory, logger, opts...)
	return &AutoPlacingFleet[P]{
		Fleet:       fleet,
		discoverer:  helpers.NilPanic(discoverer, "service.auto_fleet.go: discoverer is required"),
		timeout:     helpers.PositivePanic(timeout, "service.auto_fleet.go: discovery timeout must be positive"),
		work:        append([]P(nil), spec.Work...),
		constraints: constraints,
		logger:      log.With(logger, "component", "auto_fleet"),
	}
}

// Initialize runs one discovery pass, adds the discovered nodes and places the declared work.
//
// Every node whose system name a constraint allows gets that constrained process. Remaining
// work goes, in declaration order, to the node with the smallest aggregate weight; ties go to
// the earliest node in fleet order. Work already assigned by an earlier run is left where it is.
//
// The fleet is only modified when the whole run succeeds.
func (a *AutoPlacingFleet[P]) Initialize() error {
	a.initMu.Lock()
	defer a.initMu.Unlock()

	descriptors, err := a.discoverer.Discover(a.timeout)
	if err != nil {
		level.Error(a.logger).Log("msg", "discovery failed", "err", err)
		return NewDiscoveryFailedError("failed to discover nodes", err)
	}
	level.Info(a.logger).Log("msg", "discovery complete", "nodes", len(descriptors), "window", a.timeout)

	staged := make([]*NodeEndpoint[P], 0, len(descriptors))
	for _, d := range descriptors {
		if d.Hostname == "" {
			level.Warn(a.logger).Log("msg", "skipping node without hostname", "descriptor", d.String())
			continue
		}
		staged = append(staged, a.NewNode(a.nodeSpec(d)))
	}

	candidates := append(a.Nodes(), staged...)
	loads := make([]float64, len(candidates))
	for i, n := range candidates {
		loads[i] = n.AggregateWeight()
	}
	assignments := make([][]P, len(candidates))
	assign := func(i int, p P) {
		assignments[i] = append(assignments[i], p)
		loads[i] += p.Weight()
	}

	for _, c := range a.constraints.Entries() {
		for i, n := range candidates {
			if n.SystemName() != "" && c.Allows(n.SystemName()) && !n.HasProcess(c.Process) {
				assign(i, c.Process)
			}
		}
	}

	for _, p := range a.work {
		if c, ok := a.constraints.Lookup(p); ok {
			if !anyAllowed(candidates, c) {
				level.Error(a.logger).Log("msg", "constrained process has no eligible node", "process", p.String(), "hosts", fmt.Sprint(c.HostList()))
				return NewUnsatisfiableConstraintError(
					fmt.Sprintf("no discovered node may run %s (allowed: %v)", p, c.HostList()), nil)
			}
			continue
		}
		if placed(candidates, assignments, p) {
			continue
		}
		if len(candidates) == 0 {
			level.Error(a.logger).Log("msg", "no nodes to place work on", "process", p.String())
			return NewNoNodesAvailableError(fmt.Sprintf("no nodes available to run %s", p), nil)
		}
		best := 0
		for i := 1; i < len(candidates); i++ {
			if loads[i] < loads[best] {
				best = i
			}
		}
		assign(best, p)
	}

	for _, node := range staged {
		a.Add(node)
	}
	for i, n := range candidates {
		n.AddProcess(assignments[i]...)
		a.opts.metrics.setLoad(n.DisplayName(), loads[i])
		level.Info(a.logger).Log("msg", "node placement", "node", n.DisplayName(),
			"processes", fmt.Sprint(domain.ProcessIDs(n.Processes())), "load", loads[i])
	}
	return nil
}

func (a *AutoPlacingFleet[P]) nodeSpec(d domain.NodeDescriptor) NodeSpec {
	return NodeSpec{
		Host:        d.Hostname,
		CommandPort: d.CommandPortOr(a.opts.commandPort),
		PubSubPort:  d.PubSubPortOr(a.opts.pubsubPort),
		DisplayName: d.SystemName,
		SystemName:  d.SystemName,
		BaseWeight:  a.opts.baseWeights[d.SystemName],
	}
}

func anyAllowed[P domain.WeightedProcess](nodes []*NodeEndpoint[P], c Constraint[P]) bool {
	for _, n := range nodes {
		if n.SystemName() != "" && c.Allows(n.SystemName()) {
			return true
		}
	}
	return false
}

func placed[P domain.WeightedProcess](nodes []*NodeEndpoint[P], pending [][]P, p P) bool {
	for i, n := range nodes {
		if n.HasProcess(p) {
			return true
		}
		for _, q := range pending[i] {
			if q == p {
				return true
			}
		}
	}
	return false
}
