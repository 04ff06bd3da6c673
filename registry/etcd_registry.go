package registry

import (
	"context"
	"encoding/json"
	"fmt"

	clientv3 "go.etcd.io/etcd/client/v3"
)

// keyPrefix namespaces all registrations in etcd:
//
//	/mini-jsonrpc/{serviceName}/{addr} → JSON ServiceInstance
const keyPrefix = "/mini-jsonrpc/"

// EtcdRegistry implements Registry on etcd v3. Registrations are
// attached to TTL leases with background keepalive, so an instance
// that dies without deregistering expires on its own instead of
// lingering as a ghost entry.
type EtcdRegistry struct {
	client *clientv3.Client
}

// NewEtcdRegistry connects to the given etcd endpoints.
func NewEtcdRegistry(endpoints []string) (*EtcdRegistry, error) {
	c, err := clientv3.New(clientv3.Config{Endpoints: endpoints})
	if err != nil {
		return nil, fmt.Errorf("registry: connect etcd: %w", err)
	}
	return &EtcdRegistry{client: c}, nil
}

func instanceKey(serviceName, addr string) string {
	return keyPrefix + serviceName + "/" + addr
}

// Register grants a ttl-second lease, stores the instance under it,
// and starts background keepalive so the lease renews until the
// process exits or Deregister removes the key.
func (r *EtcdRegistry) Register(serviceName string, instance ServiceInstance, ttl int64) error {
	ctx := context.Background()

	lease, err := r.client.Grant(ctx, ttl)
	if err != nil {
		return fmt.Errorf("registry: grant lease: %w", err)
	}
	val, err := json.Marshal(instance)
	if err != nil {
		return fmt.Errorf("registry: marshal instance: %w", err)
	}
	_, err = r.client.Put(ctx, instanceKey(serviceName, instance.Addr), string(val), clientv3.WithLease(lease.ID))
	if err != nil {
		return fmt.Errorf("registry: put %s: %w", instanceKey(serviceName, instance.Addr), err)
	}

	ch, err := r.client.KeepAlive(ctx, lease.ID)
	if err != nil {
		return fmt.Errorf("registry: keepalive: %w", err)
	}
	// Drain keepalive acks; the channel closes when the lease dies.
	go func() {
		for range ch {
		}
	}()
	return nil
}

// Deregister deletes the instance key. The lease is left to expire.
func (r *EtcdRegistry) Deregister(serviceName string, addr string) error {
	_, err := r.client.Delete(context.Background(), instanceKey(serviceName, addr))
	if err != nil {
		return fmt.Errorf("registry: delete %s: %w", instanceKey(serviceName, addr), err)
	}
	return nil
}

// Discover lists all instances registered under serviceName.
func (r *EtcdRegistry) Discover(serviceName string) ([]ServiceInstance, error) {
	resp, err := r.client.Get(context.Background(), keyPrefix+serviceName+"/", clientv3.WithPrefix())
	if err != nil {
		return nil, fmt.Errorf("registry: get %s: %w", serviceName, err)
	}
	instances := make([]ServiceInstance, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		var instance ServiceInstance
		if err := json.Unmarshal(kv.Value, &instance); err != nil {
			continue // skip malformed entries
		}
		instances = append(instances, instance)
	}
	return instances, nil
}

// Watch re-lists the service after every change under its prefix and
// emits the fresh instance set. Server-push via the etcd watch API;
// the full re-list keeps consumers free of event bookkeeping.
func (r *EtcdRegistry) Watch(serviceName string) <-chan []ServiceInstance {
	ch := make(chan []ServiceInstance, 1)
	go func() {
		watchChan := r.client.Watch(context.Background(), keyPrefix+serviceName+"/", clientv3.WithPrefix())
		for range watchChan {
			instances, err := r.Discover(serviceName)
			if err != nil {
				continue
			}
			ch <- instances
		}
	}()
	return ch
}

// Close releases the etcd client.
func (r *EtcdRegistry) Close() error {
	return r.client.Close()
}
