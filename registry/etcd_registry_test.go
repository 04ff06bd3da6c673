package registry

import (
	"context"
	"testing"
	"time"
)

// newTestRegistry connects to a local etcd, skipping the test when no
// etcd is reachable.
func newTestRegistry(t *testing.T) *EtcdRegistry {
	t.Helper()
	reg, err := NewEtcdRegistry([]string{"127.0.0.1:2379"})
	if err != nil {
		t.Skipf("etcd not available: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := reg.client.Status(ctx, "127.0.0.1:2379"); err != nil {
		reg.Close()
		t.Skipf("etcd not available: %v", err)
	}
	t.Cleanup(func() { reg.Close() })
	return reg
}

func TestRegisterAndDiscover(t *testing.T) {
	reg := newTestRegistry(t)

	inst1 := ServiceInstance{Addr: "127.0.0.1:8001", Weight: 10, Version: "1.0"}
	inst2 := ServiceInstance{Addr: "127.0.0.1:8002", Weight: 5, Version: "1.0"}

	if err := reg.Register("jsonrpc-test", inst1, 10); err != nil {
		t.Fatal(err)
	}
	if err := reg.Register("jsonrpc-test", inst2, 10); err != nil {
		t.Fatal(err)
	}
	defer reg.Deregister("jsonrpc-test", inst2.Addr)

	instances, err := reg.Discover("jsonrpc-test")
	if err != nil {
		t.Fatal(err)
	}
	if len(instances) != 2 {
		t.Fatalf("expect 2 instances, got %d", len(instances))
	}

	if err := reg.Deregister("jsonrpc-test", inst1.Addr); err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)

	instances, err = reg.Discover("jsonrpc-test")
	if err != nil {
		t.Fatal(err)
	}
	if len(instances) != 1 {
		t.Fatalf("expect 1 instance after deregister, got %d", len(instances))
	}
	if instances[0].Addr != inst2.Addr {
		t.Fatalf("expect %s to remain, got %s", inst2.Addr, instances[0].Addr)
	}
}

func TestWatch(t *testing.T) {
	reg := newTestRegistry(t)

	ch := reg.Watch("jsonrpc-watch-test")
	inst := ServiceInstance{Addr: "127.0.0.1:8003", Weight: 1, Version: "1.0"}
	if err := reg.Register("jsonrpc-watch-test", inst, 10); err != nil {
		t.Fatal(err)
	}
	defer reg.Deregister("jsonrpc-watch-test", inst.Addr)

	select {
	case instances := <-ch:
		if len(instances) != 1 || instances[0].Addr != inst.Addr {
			t.Fatalf("unexpected watch event: %+v", instances)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no watch event after registration")
	}
}
