package interfaces

import (
	"time"

	"coprocfleet/domain"
)

// Discoverer scans the local network for advertised coprocessors.
//
// Discover blocks for the whole timeout window and returns whatever resolved in it: one
// descriptor per host, possibly none. Slow networks yielding partial results are not an error;
// an error means the scan itself could not run (socket setup, interface enumeration).
//
// Implemented by adapters/mdns.Discoverer. Called from service.AutoPlacingFleet.Initialize.
//
//go:generate moq -stub -out mock/discoverer.go -pkg mock . Discoverer
type Discoverer interface {
	Discover(timeout time.Duration) ([]domain.NodeDescriptor, error)
}
