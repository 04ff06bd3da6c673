package loadbalance

import (
	"sync"

	"github.com/lafikl/consistent"

	"mini-jsonrpc/registry"
)

// ConsistentHashBalancer maps keys to instances on a consistent hash
// ring, so the same key keeps hitting the same instance until the
// instance set changes. Useful for stateful services and local caches.
//
// PickKey takes a caller-chosen affinity key rather than the instance
// list, so the type does not implement the Balancer interface; callers
// feed it instance updates via Update (typically from Registry.Watch).
type ConsistentHashBalancer struct {
	mu     sync.RWMutex
	ring   *consistent.Consistent
	byAddr map[string]registry.ServiceInstance
}

func NewConsistentHashBalancer() *ConsistentHashBalancer {
	return &ConsistentHashBalancer{
		ring:   consistent.New(),
		byAddr: make(map[string]registry.ServiceInstance),
	}
}

// Update replaces the ring membership with the given instance set.
func (b *ConsistentHashBalancer) Update(instances []registry.ServiceInstance) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for addr := range b.byAddr {
		b.ring.Remove(addr)
		delete(b.byAddr, addr)
	}
	for _, inst := range instances {
		b.ring.Add(inst.Addr)
		b.byAddr[inst.Addr] = inst
	}
}

// PickKey returns the instance owning the given key on the ring.
func (b *ConsistentHashBalancer) PickKey(key string) (*registry.ServiceInstance, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if len(b.byAddr) == 0 {
		return nil, ErrNoInstances
	}
	addr, err := b.ring.Get(key)
	if err != nil {
		return nil, err
	}
	inst := b.byAddr[addr]
	return &inst, nil
}

func (b *ConsistentHashBalancer) Name() string {
	return "ConsistentHash"
}
