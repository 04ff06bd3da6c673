package middleware

import (
	"context"
	"time"

	"go.uber.org/zap"

	"mini-jsonrpc/message"
)

// LoggingMiddleware logs one line per dispatched request: method, id,
// duration, and the error code when the response is the error variant.
func LoggingMiddleware(logger *zap.Logger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *message.Request) *message.Response {
			start := time.Now()
			resp := next(ctx, req)

			fields := []zap.Field{
				zap.String("method", req.Method),
				zap.Stringer("id", req.ID),
				zap.Duration("duration", time.Since(start)),
			}
			if resp != nil && resp.IsError() {
				fields = append(fields,
					zap.Int("code", int(resp.Err.Code)),
					zap.String("error", resp.Err.Message))
				logger.Warn("request failed", fields...)
				return resp
			}
			logger.Info("request handled", fields...)
			return resp
		}
	}
}
