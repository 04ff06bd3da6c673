package middleware

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"mini-jsonrpc/message"
)

// RecoverMiddleware converts a handler panic into a CodePanic error
// response so one bad request cannot take down its connection loop.
func RecoverMiddleware(logger *zap.Logger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *message.Request) (resp *message.Response) {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("handler panicked",
						zap.String("method", req.Method),
						zap.Any("panic", r))
					resp = reject(req, CodePanic, fmt.Sprintf("handler panicked: %v", r))
				}
			}()
			return next(ctx, req)
		}
	}
}
