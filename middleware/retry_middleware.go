package middleware

import (
	"context"
	"time"

	"mini-jsonrpc/message"
)

// RetryMiddleware re-dispatches a request whose response carries a
// retryable error code (internal error or timeout), with exponential
// backoff starting at baseDelay. Responses with any other error code,
// successes, and notifications pass through untouched.
func RetryMiddleware(maxRetries int, baseDelay time.Duration) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *message.Request) *message.Response {
			resp := next(ctx, req)
			for i := 0; i < maxRetries; i++ {
				if !retryable(resp) {
					return resp
				}
				time.Sleep(baseDelay * time.Duration(1<<i))
				resp = next(ctx, req)
			}
			return resp
		}
	}
}

func retryable(resp *message.Response) bool {
	if resp == nil || !resp.IsError() {
		return false
	}
	return resp.Err.Code == message.CodeInternalError || resp.Err.Code == CodeTimeout
}
