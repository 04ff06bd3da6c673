// Package test holds end-to-end tests wiring the full pipeline:
// client → transport → protocol → message → server → middleware →
// handler, plus optional etcd-backed discovery.
package test

import (
	"context"
	"testing"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
	"go.uber.org/zap"

	"mini-jsonrpc/client"
	"mini-jsonrpc/loadbalance"
	"mini-jsonrpc/message"
	"mini-jsonrpc/middleware"
	"mini-jsonrpc/registry"
	"mini-jsonrpc/server"
)

func sumHandler(_ context.Context, req *message.Request) (any, *message.ErrorObject) {
	if req.Params == nil {
		return nil, message.NewError(message.CodeInvalidParams, "params required")
	}
	var terms []int
	if err := req.Params.Unmarshal(&terms); err != nil {
		return nil, message.NewError(message.CodeInvalidParams, "params must be an array of integers")
	}
	total := 0
	for _, v := range terms {
		total += v
	}
	return total, nil
}

func echoHandler(_ context.Context, req *message.Request) (any, *message.ErrorObject) {
	return req.Method, nil
}

func startFullServer(t *testing.T, addr string) {
	t.Helper()
	svr := server.NewServer()
	svr.SetLogger(zap.NewNop())
	svr.Use(middleware.RecoverMiddleware(zap.NewNop()))
	svr.Use(middleware.LoggingMiddleware(zap.NewNop()))
	svr.Use(middleware.RateLimitMiddleware(1000, 1000))
	svr.Handle("echo", echoHandler)
	svr.Handle("sum", sumHandler)
	go svr.Serve("tcp", addr, "", nil)
	t.Cleanup(func() { svr.Shutdown(3 * time.Second) })
	time.Sleep(100 * time.Millisecond)
}

func TestEndToEndCall(t *testing.T) {
	startFullServer(t, ":19820")
	cli := client.NewClient("127.0.0.1:19820")

	params, err := message.ArrayParams(1, 2, 3)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := cli.Call(&message.Request{Method: "sum", Params: params, ID: message.IntID(1)})
	if err != nil {
		t.Fatal(err)
	}
	var total int
	if err := resp.UnmarshalResult(&total); err != nil {
		t.Fatal(err)
	}
	if total != 6 {
		t.Fatalf("expect 6, got %d", total)
	}
}

// The §8-style scenario: an echo call, a cast notification, and a
// mixed batch over the full stack.
func TestEndToEndScenario(t *testing.T) {
	startFullServer(t, ":19821")
	cli := client.NewClient("127.0.0.1:19821")

	// Single call: the result is the method name.
	resp, err := cli.Call(&message.Request{Method: "echo", ID: message.IntID(1)})
	if err != nil {
		t.Fatal(err)
	}
	var result string
	if err := resp.UnmarshalResult(&result); err != nil {
		t.Fatal(err)
	}
	if result != "echo" || !message.IntID(1).Equal(resp.ID) {
		t.Fatalf("unexpected response: id=%v result=%q", resp.ID, result)
	}

	// Cast: fire-and-forget, no reply expected.
	if err := cli.Cast(&message.Request{Method: "echo"}); err != nil {
		t.Fatal(err)
	}

	// Batch: two calls plus one notification → two ordered responses.
	resps, err := cli.CallBatch([]*message.Request{
		{Method: "echo", ID: message.IntID(10)},
		{Method: "echo"},
		{Method: "echo", ID: message.IntID(11)},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(resps) != 2 {
		t.Fatalf("expect 2 responses, got %d", len(resps))
	}
	if !message.IntID(10).Equal(resps[0].ID) || !message.IntID(11).Equal(resps[1].ID) {
		t.Fatalf("response order broken: %v, %v", resps[0].ID, resps[1].ID)
	}
}

func TestEndToEndInvalidParams(t *testing.T) {
	startFullServer(t, ":19822")
	cli := client.NewClient("127.0.0.1:19822")

	params, err := message.ObjectParams(map[string]int{"a": 1})
	if err != nil {
		t.Fatal(err)
	}
	resp, err := cli.Call(&message.Request{Method: "sum", Params: params, ID: message.IntID(2)})
	if err != nil {
		t.Fatal(err)
	}
	if !resp.IsError() || resp.Err.Code != message.CodeInvalidParams {
		t.Fatalf("expect invalid params error, got %+v", resp)
	}
}

// Full discovery path: register two servers in etcd, resolve through a
// round-robin balancer, and call both. Skipped without a local etcd.
func TestEndToEndWithEtcd(t *testing.T) {
	probe, err := clientv3.New(clientv3.Config{Endpoints: []string{"127.0.0.1:2379"}})
	if err != nil {
		t.Skipf("etcd not available: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	_, err = probe.Status(ctx, "127.0.0.1:2379")
	cancel()
	probe.Close()
	if err != nil {
		t.Skipf("etcd not available: %v", err)
	}

	reg, err := registry.NewEtcdRegistry([]string{"127.0.0.1:2379"})
	if err != nil {
		t.Fatal(err)
	}
	defer reg.Close()

	for _, addr := range []string{":19823", ":19824"} {
		svr := server.NewServer()
		svr.Handle("echo", echoHandler)
		advertise := "127.0.0.1" + addr
		go svr.Serve("tcp", addr, advertise, reg)
		t.Cleanup(func() { svr.Shutdown(3 * time.Second) })
	}
	time.Sleep(200 * time.Millisecond)

	cli := client.NewDiscoveryClient(reg, &loadbalance.RoundRobinBalancer{}, "jsonrpc")
	for i := 1; i <= 4; i++ {
		resp, err := cli.Call(&message.Request{Method: "echo", ID: message.IntID(int64(i))})
		if err != nil {
			t.Fatalf("call %d failed: %v", i, err)
		}
		if resp.IsError() {
			t.Fatalf("call %d: unexpected error %v", i, resp.Err)
		}
	}
}
