package service

import (
	"sort"
	"sync"

	"coprocfleet/domain"
)

// Constraint restricts a process kind to nodes advertising one of Hosts as their system name.
type Constraint[P domain.WeightedProcess] struct {
	Process P
	Hosts   map[string]struct{}
}

// Allows reports whether a node with the given system name may run the process.
func (c Constraint[P]) Allows(systemName string) bool {
	_, ok := c.Hosts[systemName]
	return ok
}

// HostList returns the allowed system names, sorted.
func (c Constraint[P]) HostList() []string {
	hosts := make([]string, 0, len(c.Hosts))
	for h := range c.Hosts {
		hosts = append(hosts, h)
	}
	sort.Strings(hosts)
	return hosts
}

// ConstraintTable maps process kinds to the system names allowed to run them. A kind with no
// entry may run anywhere. The table is owned by whoever builds it and handed to the fleets that
// read it; registration is safe from multiple goroutines.
type ConstraintTable[P domain.WeightedProcess] struct {
	mu      sync.RWMutex
	order   []P
	entries map[P]map[string]struct{}
}

func NewConstraintTable[P domain.WeightedProcess]() *ConstraintTable[P] {
	return &ConstraintTable[P]{entries: map[P]map[string]struct{}{}}
}

// Upsert restricts p to hosts, replacing any earlier restriction for p. The entry keeps the
// position of its first registration. An empty host list makes p unplaceable.
func (t *ConstraintTable[P]) Upsert(p P, hosts ...string) {
	set := make(map[string]struct{}, len(hosts))
	for _, h := range hosts {
		set[h] = struct{}{}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.entries[p]; !ok {
		t.order = append(t.order, p)
	}
	t.entries[p] = set
}

// Lookup returns the constraint for p, if any.
func (t *ConstraintTable[P]) Lookup(p P) (Constraint[P], bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	set, ok := t.entries[p]
	if !ok {
		return Constraint[P]{}, false
	}
	return Constraint[P]{Process: p, Hosts: copySet(set)}, true
}

// IsConstrained reports whether p has an entry.
func (t *ConstraintTable[P]) IsConstrained(p P) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.entries[p]
	return ok
}

// Entries returns a snapshot of every constraint in registration order.
func (t *ConstraintTable[P]) Entries() []Constraint[P] {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Constraint[P], 0, len(t.order))
	for _, p := range t.order {
		out = append(out, Constraint[P]{Process: p, Hosts: copySet(t.entries[p])})
	}
	return out
}

func (t *ConstraintTable[P]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.order)
}

func copySet(in map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(in))
	for k := range in {
		out[k] = struct{}{}
	}
	return out
}
