package middleware

import (
	"context"
	"time"

	"mini-jsonrpc/message"
)

// TimeoutMiddleware bounds handler execution. The handler runs in its
// own goroutine; when the deadline passes first, the caller gets a
// CodeTimeout error response and the handler's eventual result is
// discarded. The handler should honor ctx cancellation to avoid
// leaking work.
func TimeoutMiddleware(timeout time.Duration) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *message.Request) *message.Response {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			done := make(chan *message.Response, 1)
			go func() {
				done <- next(ctx, req)
			}()

			select {
			case resp := <-done:
				return resp
			case <-ctx.Done():
				return reject(req, CodeTimeout, "request timed out")
			}
		}
	}
}
