// Package client implements the synchronous JSON-RPC client.
//
// Every invocation dials its own connection: serialize the request (or
// batch), write one frame, and — for calls, not casts — block on one
// reply frame, then close. There are no timeouts and no in-flight
// concurrency on a connection; callers needing bounded latency must
// impose deadlines at the transport layer.
package client

import (
	"fmt"

	"mini-jsonrpc/loadbalance"
	"mini-jsonrpc/message"
	"mini-jsonrpc/registry"
	"mini-jsonrpc/transport"
)

// Client issues JSON-RPC calls over one-shot TCP connections. The
// target is either a fixed address or a service name resolved through
// a registry and balancer on every call.
type Client struct {
	addr     string
	service  string
	registry registry.Registry
	balancer loadbalance.Balancer
	bufSize  int
}

// NewClient creates a client that dials the fixed address addr.
func NewClient(addr string) *Client {
	return &Client{addr: addr}
}

// NewDiscoveryClient creates a client that resolves service through
// reg and picks an instance with bal before each call.
func NewDiscoveryClient(reg registry.Registry, bal loadbalance.Balancer, service string) *Client {
	return &Client{registry: reg, balancer: bal, service: service}
}

// SetBufferSize overrides the reply frame buffer size. The buffer must
// hold the largest expected reply; the framer performs no growth.
func (c *Client) SetBufferSize(n int) { c.bufSize = n }

// resolve returns the address to dial for this call.
func (c *Client) resolve() (string, error) {
	if c.registry == nil {
		return c.addr, nil
	}
	instances, err := c.registry.Discover(c.service)
	if err != nil {
		return "", fmt.Errorf("client: discover %s: %w", c.service, err)
	}
	instance, err := c.balancer.Pick(instances)
	if err != nil {
		return "", fmt.Errorf("client: pick instance for %s: %w", c.service, err)
	}
	return instance.Addr, nil
}

// Call performs one synchronous request/response exchange and returns
// the single decoded response.
func (c *Client) Call(req *message.Request) (*message.Response, error) {
	resps, err := c.CallBatch([]*message.Request{req})
	if err != nil {
		return nil, err
	}
	if len(resps) != 1 {
		return nil, fmt.Errorf("client: expected one response, got %d", len(resps))
	}
	return resps[0], nil
}

// CallBatch writes the batch as one frame and reads exactly one reply
// frame. The read happens regardless of whether every member was a
// notification, so a batch of pure notifications blocks until the peer
// answers or closes. An empty batch fails before any I/O.
func (c *Client) CallBatch(reqs []*message.Request) ([]*message.Response, error) {
	payload, err := message.EncodeRequests(reqs)
	if err != nil {
		return nil, err
	}
	addr, err := c.resolve()
	if err != nil {
		return nil, err
	}
	t, err := transport.Dial(addr, c.bufSize)
	if err != nil {
		return nil, err
	}
	defer t.Close()

	if err := t.WriteFrame(payload); err != nil {
		return nil, fmt.Errorf("client: write request: %w", err)
	}
	reply, err := t.ReadFrame()
	if err != nil {
		return nil, fmt.Errorf("client: read response: %w", err)
	}
	return message.DecodeResponses(reply)
}

// Cast fires a single request and closes without reading. This matches
// notification semantics; a cast request carrying an id is permitted,
// but any response the peer produces is discarded with the connection.
func (c *Client) Cast(req *message.Request) error {
	payload, err := message.EncodeRequests([]*message.Request{req})
	if err != nil {
		return err
	}
	addr, err := c.resolve()
	if err != nil {
		return err
	}
	t, err := transport.Dial(addr, c.bufSize)
	if err != nil {
		return err
	}
	defer t.Close()

	if err := t.WriteFrame(payload); err != nil {
		return fmt.Errorf("client: write request: %w", err)
	}
	return nil
}
