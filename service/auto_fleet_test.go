package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"coprocfleet/domain"
	"coprocfleet/helpers"
	"coprocfleet/interfaces/mock"

	"github.com/go-kit/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discovering(descriptors ...domain.NodeDescriptor) *mock.DiscovererMock {
	return &mock.DiscovererMock{DiscoverFunc: func(time.Duration) ([]domain.NodeDescriptor, error) {
		return descriptors, nil
	}}
}

func newAutoFleet(
	d *mock.DiscovererMock,
	spec PlacementSpec[visionProcess],
	opts ...FleetOption,
) (*AutoPlacingFleet[visionProcess], *channelRegistry) {
	reg := newChannelRegistry(nil)
	return NewAutoPlacingFleet(d, spec, reg.factory, log.NewNopLogger(), opts...), reg
}

func processesOf(f *Fleet[visionProcess]) [][]visionProcess {
	var out [][]visionProcess
	for _, n := range f.Nodes() {
		out = append(out, n.Processes())
	}
	return out
}

func TestNewAutoPlacingFleet_Panics(t *testing.T) {
	reg := newChannelRegistry(nil)
	assert.PanicsWithValue(t, "service.auto_fleet.go: discoverer is required", func() {
		NewAutoPlacingFleet[visionProcess](nil, PlacementSpec[visionProcess]{}, reg.factory, log.NewNopLogger())
	})
	assert.PanicsWithValue(t, "service.auto_fleet.go: discovery timeout must be positive", func() {
		NewAutoPlacingFleet(discovering(), PlacementSpec[visionProcess]{Timeout: -time.Second}, reg.factory, log.NewNopLogger())
	})
}

func TestAutoPlacingFleet_DiscoveryWindow(t *testing.T) {
	d := discovering()
	f, _ := newAutoFleet(d, PlacementSpec[visionProcess]{})
	require.NoError(t, f.Initialize())
	require.Len(t, d.DiscoverCalls(), 1)
	assert.Equal(t, domain.DefaultDiscoveryTimeout, d.DiscoverCalls()[0].Timeout)

	d = discovering()
	f, _ = newAutoFleet(d, PlacementSpec[visionProcess]{Timeout: 7 * time.Second})
	require.NoError(t, f.Initialize())
	assert.Equal(t, 7*time.Second, d.DiscoverCalls()[0].Timeout)
}

func TestAutoPlacingFleet_GreedyTrace(t *testing.T) {
	nodes := []domain.NodeDescriptor{
		{SystemName: "pi-a", Hostname: "10.0.0.1"},
		{SystemName: "pi-b", Hostname: "10.0.0.2"},
	}

	t.Run("declaration_order_least_loaded", func(t *testing.T) {
		f, _ := newAutoFleet(discovering(nodes...), PlacementSpec[visionProcess]{
			Work: []visionProcess{objectDetection, poseFusion, aprilTagFront},
		})
		require.NoError(t, f.Initialize())

		assert.Equal(t, [][]visionProcess{
			{objectDetection},
			{poseFusion, aprilTagFront},
		}, processesOf(f.Fleet))
		assert.Equal(t, []NodePlacement{
			{Node: "pi-a", SystemName: "pi-a", Processes: []string{"object_detection"}, Load: 3},
			{Node: "pi-b", SystemName: "pi-b", Processes: []string{"pose_fusion", "april_tag_front"}, Load: 3},
		}, f.Placement())
	})

	t.Run("tie_goes_to_first_node", func(t *testing.T) {
		f, _ := newAutoFleet(discovering(nodes...), PlacementSpec[visionProcess]{
			Work: []visionProcess{objectDetection, poseFusion, aprilTagFront, aprilTagRear},
		})
		require.NoError(t, f.Initialize())

		assert.Equal(t, [][]visionProcess{
			{objectDetection, aprilTagRear},
			{poseFusion, aprilTagFront},
		}, processesOf(f.Fleet))
		assert.Equal(t, 5.0, f.MainNode().AggregateWeight())
	})
}

func TestAutoPlacingFleet_BalanceBound(t *testing.T) {
	var work []domain.NamedProcess
	maxWeight := 0.0
	for i, w := range []float64{7, 1, 3, 3, 9, 2, 5, 4, 1, 6, 8, 2} {
		work = append(work, domain.NamedProcess{Name: fmt.Sprintf("job-%02d", i), Cost: w})
		if w > maxWeight {
			maxWeight = w
		}
	}
	d := discovering(
		domain.NodeDescriptor{SystemName: "pi-a", Hostname: "10.0.0.1"},
		domain.NodeDescriptor{SystemName: "pi-b", Hostname: "10.0.0.2"},
		domain.NodeDescriptor{SystemName: "pi-c", Hostname: "10.0.0.3"},
	)
	reg := newChannelRegistry(nil)
	f := NewAutoPlacingFleet(d, PlacementSpec[domain.NamedProcess]{Work: work}, reg.factory, log.NewNopLogger())
	require.NoError(t, f.Initialize())

	placedCount := 0
	loads := make([]float64, 0, f.Len())
	for _, n := range f.Nodes() {
		placedCount += len(n.Processes())
		loads = append(loads, n.AggregateWeight())
	}
	assert.Equal(t, len(work), placedCount)
	for i := range loads {
		for j := range loads {
			assert.LessOrEqual(t, loads[i]-loads[j], maxWeight)
		}
	}
}

func TestAutoPlacingFleet_BaseWeights(t *testing.T) {
	d := discovering(
		domain.NodeDescriptor{SystemName: "busy", Hostname: "10.0.0.1"},
		domain.NodeDescriptor{SystemName: "idle", Hostname: "10.0.0.2"},
	)
	f, _ := newAutoFleet(d, PlacementSpec[visionProcess]{
		Work: []visionProcess{poseFusion, aprilTagFront},
	}, WithBaseWeights(map[string]float64{"busy": 10}))
	require.NoError(t, f.Initialize())

	assert.Equal(t, [][]visionProcess{nil, {poseFusion, aprilTagFront}}, processesOf(f.Fleet))
	assert.Equal(t, 10.0, f.MainNode().BaseWeight())
}

func TestAutoPlacingFleet_Constraints(t *testing.T) {
	nodes := []domain.NodeDescriptor{
		{SystemName: "front", Hostname: "10.0.0.1"},
		{SystemName: "rear", Hostname: "10.0.0.2"},
		{Hostname: "10.0.0.3"},
	}

	t.Run("constrained_work_only_on_allowed_nodes", func(t *testing.T) {
		table := NewConstraintTable[visionProcess]()
		table.Upsert(aprilTagFront, "front")
		table.Upsert(aprilTagRear, "rear")
		spec := PlacementSpec[visionProcess]{
			Work:        []visionProcess{aprilTagFront, aprilTagRear, lidarMapping, objectDetection},
			Constraints: table,
		}

		for run := 0; run < 3; run++ {
			f, _ := newAutoFleet(discovering(nodes...), spec)
			require.NoError(t, f.Initialize())
			got := processesOf(f.Fleet)
			assert.Equal(t, [][]visionProcess{
				{aprilTagFront, objectDetection},
				{aprilTagRear},
				{lidarMapping},
			}, got)
			for i, ps := range got {
				if i != 0 {
					assert.NotContains(t, ps, aprilTagFront)
				}
				if i != 1 {
					assert.NotContains(t, ps, aprilTagRear)
				}
			}
		}
	})

	t.Run("pre_assigned_to_every_allowed_node", func(t *testing.T) {
		table := NewConstraintTable[visionProcess]()
		table.Upsert(poseFusion, "front", "rear")
		f, _ := newAutoFleet(discovering(nodes...), PlacementSpec[visionProcess]{
			Work:        []visionProcess{poseFusion},
			Constraints: table,
		})
		require.NoError(t, f.Initialize())
		assert.Equal(t, [][]visionProcess{{poseFusion}, {poseFusion}, nil}, processesOf(f.Fleet))
	})

	t.Run("unsatisfiable_leaves_fleet_untouched", func(t *testing.T) {
		table := NewConstraintTable[visionProcess]()
		table.Upsert(lidarMapping, "top")
		table.Upsert(aprilTagFront, "front")
		f, _ := newAutoFleet(discovering(nodes...), PlacementSpec[visionProcess]{
			Work:        []visionProcess{objectDetection, lidarMapping},
			Constraints: table,
		})

		err := f.Initialize()
		require.Error(t, err)
		assert.True(t, IsUnsatisfiableConstraintError(err))
		assert.False(t, IsDiscoveryFailedError(err))
		assert.Equal(t, 0, f.Len())
	})

	t.Run("upsert_replaces_earlier_constraint", func(t *testing.T) {
		table := NewConstraintTable[visionProcess]()
		table.Upsert(lidarMapping, "front")
		table.Upsert(lidarMapping, "rear")
		f, _ := newAutoFleet(discovering(nodes...), PlacementSpec[visionProcess]{
			Work:        []visionProcess{lidarMapping},
			Constraints: table,
		})
		require.NoError(t, f.Initialize())
		assert.Equal(t, [][]visionProcess{nil, {lidarMapping}, nil}, processesOf(f.Fleet))
	})
}

func TestAutoPlacingFleet_Failures(t *testing.T) {
	t.Run("discovery_failure", func(t *testing.T) {
		cause := errors.New("no multicast interface")
		d := &mock.DiscovererMock{DiscoverFunc: func(time.Duration) ([]domain.NodeDescriptor, error) {
			return nil, cause
		}}
		f, _ := newAutoFleet(d, PlacementSpec[visionProcess]{Work: []visionProcess{poseFusion}})

		err := f.Initialize()
		require.Error(t, err)
		assert.True(t, IsDiscoveryFailedError(err))
		assert.ErrorIs(t, err, cause)
		assert.Equal(t, 0, f.Len())
	})

	t.Run("no_nodes_for_unconstrained_work", func(t *testing.T) {
		f, _ := newAutoFleet(discovering(), PlacementSpec[visionProcess]{Work: []visionProcess{poseFusion}})

		err := f.Initialize()
		require.Error(t, err)
		assert.True(t, IsNoNodesAvailableError(err))
		assert.False(t, IsDiscoveryFailedError(err))
		assert.False(t, IsUnsatisfiableConstraintError(err))
	})

	t.Run("no_nodes_and_no_work", func(t *testing.T) {
		f, _ := newAutoFleet(discovering(), PlacementSpec[visionProcess]{})
		assert.NoError(t, f.Initialize())
		assert.Equal(t, 0, f.Len())
	})
}

func TestAutoPlacingFleet_DescriptorPorts(t *testing.T) {
	d := discovering(
		domain.NodeDescriptor{Hostname: "plain.local"},
		domain.NodeDescriptor{Hostname: "custom.local", WatchdogPort: helpers.Ptr(6001), AutobahnPort: helpers.Ptr(9001)},
		domain.NodeDescriptor{SystemName: "ghost"},
	)

	t.Run("process_defaults", func(t *testing.T) {
		f, reg := newAutoFleet(d, PlacementSpec[visionProcess]{})
		require.NoError(t, f.Initialize())
		require.Equal(t, 2, f.Len())

		plain := f.Nodes()[0]
		assert.Equal(t, "http://plain.local:5000", plain.CommandAddress())
		assert.Equal(t, "plain.local:8080", plain.PubSubAddress())
		assert.Equal(t, "http://plain.local:5000", plain.DisplayName())
		assert.NotNil(t, reg.get("http://plain.local:5000"))

		custom := f.Nodes()[1]
		assert.Equal(t, "http://custom.local:6001", custom.CommandAddress())
		assert.Equal(t, "custom.local:9001", custom.PubSubAddress())
	})

	t.Run("fleet_defaults", func(t *testing.T) {
		f, _ := newAutoFleet(d, PlacementSpec[visionProcess]{}, WithDefaultPorts(5500, 8500))
		require.NoError(t, f.Initialize())
		assert.Equal(t, "http://plain.local:5500", f.Nodes()[0].CommandAddress())
		assert.Equal(t, "plain.local:8500", f.Nodes()[0].PubSubAddress())
		assert.Equal(t, "http://custom.local:6001", f.Nodes()[1].CommandAddress())
	})
}

func TestAutoPlacingFleet_SecondInitialize(t *testing.T) {
	d := discovering(domain.NodeDescriptor{SystemName: "pi-a", Hostname: "10.0.0.1"})
	f, _ := newAutoFleet(d, PlacementSpec[visionProcess]{
		Work: []visionProcess{lidarMapping, poseFusion},
	})
	require.NoError(t, f.Initialize())
	require.NoError(t, f.Initialize())

	assert.Equal(t, [][]visionProcess{{lidarMapping, poseFusion}, nil}, processesOf(f.Fleet))
}

func TestAutoPlacingFleet_ManualNodesJoinPlacement(t *testing.T) {
	f, _ := newAutoFleet(discovering(domain.NodeDescriptor{SystemName: "pi-b", Hostname: "10.0.0.2"}),
		PlacementSpec[visionProcess]{Work: []visionProcess{objectDetection, poseFusion}})
	manual := f.AddHost("10.0.0.1", lidarMapping)
	require.NoError(t, f.Initialize())

	assert.Same(t, manual, f.MainNode())
	assert.Equal(t, [][]visionProcess{{lidarMapping}, {objectDetection, poseFusion}}, processesOf(f.Fleet))
}

func TestAutoPlacingFleet_LoadMetrics(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	f, _ := newAutoFleet(discovering(
		domain.NodeDescriptor{SystemName: "pi-a", Hostname: "10.0.0.1"},
		domain.NodeDescriptor{SystemName: "pi-b", Hostname: "10.0.0.2"},
	), PlacementSpec[visionProcess]{Work: []visionProcess{lidarMapping, aprilTagFront}}, WithMetrics(m))
	require.NoError(t, f.Initialize())

	assert.Equal(t, 4.0, testutil.ToFloat64(m.NodeLoad.WithLabelValues("pi-a")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.NodeLoad.WithLabelValues("pi-b")))
}
