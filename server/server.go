// Package server implements the blocking JSON-RPC server loop with a
// method handler table, middleware chain, optional etcd registration,
// and graceful shutdown.
//
// Per-connection processing pipeline:
//
//	Accept conn → go handleConn (one goroutine per connection)
//	  → read one frame → decode batch-or-single request
//	  → dispatch each request in arrival order (middleware → handler)
//	  → write one newline-batch reply frame (none if all notifications)
//
// A connection is handled strictly serially, one frame at a time;
// responses preserve the arrival order of the id-bearing requests that
// produced them. Concurrency exists only across connections.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"mini-jsonrpc/message"
	"mini-jsonrpc/middleware"
	"mini-jsonrpc/protocol"
	"mini-jsonrpc/registry"
)

// Handler produces the result for one method call. On success it
// returns a value to marshal as "result"; on failure a JSON-RPC error
// object. For notifications the return values are discarded.
type Handler func(ctx context.Context, req *message.Request) (any, *message.ErrorObject)

// Server accepts connections and answers JSON-RPC frames.
type Server struct {
	// Name is the service name used for registry registration.
	Name string

	handlers      map[string]Handler
	listener      net.Listener
	wg            sync.WaitGroup // in-flight frame processing, for graceful shutdown
	shutdown      atomic.Bool
	middlewares   []middleware.Middleware
	dispatch      middleware.HandlerFunc // middleware chain around dispatchRequest
	registry      registry.Registry
	advertiseAddr string
	bufSize       int
	logger        *zap.Logger
}

// NewServer creates a server with an empty handler table and a no-op
// logger.
func NewServer() *Server {
	return &Server{
		Name:     "jsonrpc",
		handlers: make(map[string]Handler),
		logger:   zap.NewNop(),
	}
}

// SetLogger replaces the server's logger. Must be called before Serve.
func (svr *Server) SetLogger(logger *zap.Logger) {
	svr.logger = logger
}

// SetBufferSize sets the per-connection frame buffer size. The buffer
// must hold the largest expected request frame; the framer performs no
// growth. Must be called before Serve.
func (svr *Server) SetBufferSize(n int) {
	svr.bufSize = n
}

// Handle registers fn for the given method name.
func (svr *Server) Handle(method string, fn Handler) {
	svr.handlers[method] = fn
}

// Use appends a middleware. Middlewares run in registration order
// around the dispatch of every request, notifications included.
func (svr *Server) Use(mw middleware.Middleware) {
	svr.middlewares = append(svr.middlewares, mw)
}

// Serve listens on the given address and runs the accept loop until
// Shutdown or a listener error.
//
// advertiseAddr is the routable address registered in the registry
// (the listen address is often ":port", which is not routable). Pass
// reg == nil to skip registration.
func (svr *Server) Serve(network, address, advertiseAddr string, reg registry.Registry) error {
	listener, err := net.Listen(network, address)
	if err != nil {
		return err
	}
	svr.listener = listener

	// Build the middleware chain once, not per request.
	svr.dispatch = middleware.Chain(svr.middlewares...)(svr.dispatchRequest)

	svr.advertiseAddr = advertiseAddr
	if reg != nil {
		svr.registry = reg
		if err := reg.Register(svr.Name, registry.ServiceInstance{Addr: advertiseAddr}, 10); err != nil {
			return fmt.Errorf("server: register %s: %w", svr.Name, err)
		}
	}

	for {
		conn, err := listener.Accept()
		if err != nil {
			// Shutdown closes the listener; report that as a clean exit.
			if svr.shutdown.Load() {
				return nil
			}
			return err
		}
		go svr.handleConn(conn)
	}
}

// handleConn runs the blocking frame loop for one connection. Frames
// are processed strictly in arrival order; any transport or decode
// fault ends this connection's processing without touching the
// listener.
func (svr *Server) handleConn(conn net.Conn) {
	defer conn.Close()
	framer := protocol.NewFramer(conn, svr.bufSize)
	remote := conn.RemoteAddr().String()

	for {
		payload, err := framer.ReadMessage()
		if err != nil {
			if !errors.Is(err, protocol.ErrClosed) {
				svr.logger.Warn("read frame", zap.String("remote", remote), zap.Error(err))
			}
			return
		}
		if err := svr.handleFrame(framer, payload); err != nil {
			svr.logger.Warn("process frame", zap.String("remote", remote), zap.Error(err))
			return
		}
	}
}

// handleFrame decodes one frame payload, dispatches every request in
// arrival order, and writes the reply frame. Responses are collected
// only for id-bearing requests; a frame of pure notifications produces
// no reply frame at all.
func (svr *Server) handleFrame(framer *protocol.Framer, payload []byte) error {
	svr.wg.Add(1)
	defer svr.wg.Done()

	reqs, err := message.DecodeRequests(payload)
	if err != nil {
		return err
	}

	resps := make([]*message.Response, 0, len(reqs))
	for _, req := range reqs {
		resp := svr.dispatch(context.Background(), req)
		if req.IsNotification() {
			continue
		}
		resps = append(resps, resp)
	}
	if len(resps) == 0 {
		return nil
	}

	out, err := message.EncodeResponses(resps)
	if err != nil {
		return err
	}
	if err := framer.WriteMessage(out); err != nil {
		return fmt.Errorf("write reply frame: %w", err)
	}
	return nil
}

// dispatchRequest is the innermost handler wrapped by the middleware
// chain: look up the method, run its handler, and build the response.
// It returns nil for notifications, which run for side effect only.
func (svr *Server) dispatchRequest(ctx context.Context, req *message.Request) *message.Response {
	fn, ok := svr.handlers[req.Method]
	if !ok {
		if req.IsNotification() {
			return nil
		}
		return message.NewErrorResponse(req.ID,
			message.NewError(message.CodeMethodNotFound, fmt.Sprintf("method %q not found", req.Method)))
	}

	result, errObj := fn(ctx, req)
	if req.IsNotification() {
		return nil
	}
	if errObj != nil {
		return message.NewErrorResponse(req.ID, errObj)
	}
	resp, err := message.NewResponse(req.ID, result)
	if err != nil {
		svr.logger.Error("marshal result", zap.String("method", req.Method), zap.Error(err))
		return message.NewErrorResponse(req.ID,
			message.NewError(message.CodeInternalError, "failed to marshal result"))
	}
	return resp
}

// Shutdown gracefully stops the server: deregister from the registry
// so clients stop routing here, stop accepting, then wait for
// in-flight frame processing up to the timeout.
func (svr *Server) Shutdown(timeout time.Duration) error {
	if svr.registry != nil {
		if err := svr.registry.Deregister(svr.Name, svr.advertiseAddr); err != nil {
			svr.logger.Warn("deregister", zap.String("service", svr.Name), zap.Error(err))
		}
	}

	// The flag must be set before closing the listener so the Accept
	// error in Serve is recognized as intentional.
	svr.shutdown.Store(true)
	if svr.listener != nil {
		svr.listener.Close()
	}

	done := make(chan struct{})
	go func() {
		svr.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("server: timeout waiting for in-flight requests")
	}
}
