package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/kestrelquant/kestrel"
)

// LoggingInterceptor creates an interceptor that logs broker calls using slog.
// It logs the start and end of each request, including duration and status.
// Transport failures are logged at error level; HTTP error statuses are not
// treated as failures.
func LoggingInterceptor(logger *slog.Logger) kestrel.Interceptor {
	if logger == nil {
		logger = slog.Default()
	}

	return func(ctx context.Context, req *http.Request, next kestrel.Invoker) (*kestrel.Response, error) {
		start := time.Now()

		attrs := []any{
			slog.String("method", req.Method),
			slog.String("path", req.URL.Path),
		}
		if info, ok := kestrel.CallFromContext(ctx); ok {
			attrs = append(attrs, slog.String("endpoint", info.Key()))
		}

		logger.InfoContext(ctx, "request started", attrs...)

		res, err := next(ctx, req)
		attrs = append(attrs, slog.Duration("duration", time.Since(start)))

		if err != nil {
			logger.ErrorContext(ctx, "request failed", append(attrs, slog.Any("error", err))...)
		} else {
			logger.InfoContext(ctx, "request completed", append(attrs, slog.Int("status", res.StatusCode))...)
		}

		return res, err
	}
}
