package middleware

import (
	"context"

	"golang.org/x/time/rate"

	"mini-jsonrpc/message"
)

// RateLimitMiddleware rejects requests beyond r requests per second
// with bursts of up to burst, using a shared token bucket. Rejected
// id-bearing requests receive a CodeRateLimited error response;
// rejected notifications are dropped silently.
func RateLimitMiddleware(r float64, burst int) Middleware {
	limiter := rate.NewLimiter(rate.Limit(r), burst)
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *message.Request) *message.Response {
			if !limiter.Allow() {
				return reject(req, CodeRateLimited, "rate limit exceeded")
			}
			return next(ctx, req)
		}
	}
}
