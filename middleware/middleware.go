// Package middleware provides the server-side dispatch middleware
// chain and a set of stock middlewares: logging, rate limiting,
// timeouts, retries, and panic recovery.
//
// A middleware wraps a HandlerFunc, producing the onion model:
//
//	Chain(A, B, C)(handler) → A(B(C(handler)))
//
// Handlers return nil for notifications; middlewares must tolerate a
// nil response.
package middleware

import (
	"context"

	"mini-jsonrpc/message"
)

// HandlerFunc processes one decoded request and returns its response,
// or nil when the request is a notification.
type HandlerFunc func(ctx context.Context, req *message.Request) *message.Response

// Middleware wraps a handler with additional behavior.
type Middleware func(next HandlerFunc) HandlerFunc

// Server-defined error codes used by middleware rejections. All lie in
// the JSON-RPC server error range.
const (
	CodeTimeout     message.ErrorCode = -32001
	CodePanic       message.ErrorCode = -32002
	CodeRateLimited message.ErrorCode = -32003
)

// Chain composes middlewares into one. The first middleware is the
// outermost wrapper.
func Chain(middlewares ...Middleware) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}

// reject builds the error response for a middleware rejection, or nil
// when the request is a notification and no response may be emitted.
func reject(req *message.Request, code message.ErrorCode, msg string) *message.Response {
	if req.IsNotification() {
		return nil
	}
	return message.NewErrorResponse(req.ID, message.NewError(code, msg))
}
