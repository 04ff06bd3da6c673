// Package loadbalance provides instance selection strategies for
// discovery clients:
//
//   - RoundRobin:      stateless services, equal-capacity instances
//   - WeightedRandom:  heterogeneous instances
//   - ConsistentHash:  key-based affinity (separate, key-driven API)
package loadbalance

import (
	"errors"

	"mini-jsonrpc/registry"
)

// ErrNoInstances reports that discovery returned nothing to pick from.
var ErrNoInstances = errors.New("loadbalance: no instances available")

// Balancer picks one instance per call. Pick must be goroutine-safe.
type Balancer interface {
	Pick(instances []registry.ServiceInstance) (*registry.ServiceInstance, error)

	// Name identifies the strategy in logs.
	Name() string
}
