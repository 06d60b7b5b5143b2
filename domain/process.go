package domain

import (
	"fmt"
	"math"
)

// WeightedProcess is satisfied by every process kind that can be placed on a node. Kinds are
// comparable values (usually an enumerated int or string type); String is the identifier sent
// over the command channel and Weight is the relative, non-negative cost used for balancing.
type WeightedProcess interface {
	comparable
	fmt.Stringer
	Weight() float64
}

// NamedProcess is a process kind declared in configuration instead of code.
type NamedProcess struct {
	Name string
	Cost float64
}

// Weight returns Cost, clamped at zero. A NaN or infinite Cost weighs nothing.
func (p NamedProcess) Weight() float64 {
	if p.Cost < 0 || math.IsNaN(p.Cost) || math.IsInf(p.Cost, 0) {
		return 0
	}
	return p.Cost
}

func (p NamedProcess) String() string { return p.Name }

// ProcessIDs maps processes to their wire identifiers, preserving order.
func ProcessIDs[P WeightedProcess](processes []P) []string {
	ids := make([]string, 0, len(processes))
	for _, p := range processes {
		ids = append(ids, p.String())
	}
	return ids
}

// TotalWeight sums Weight over processes.
func TotalWeight[P WeightedProcess](processes []P) float64 {
	var sum float64
	for _, p := range processes {
		sum += p.Weight()
	}
	return sum
}
