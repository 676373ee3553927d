package gptcommands

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
)

// Invoker executes one resolved command invocation.
type Invoker func(ctx context.Context, args map[string]json.RawMessage) (string, error)

// Middleware wraps an Invoker with cross-cutting behavior (logging, recovery,
// timeout). Middlewares are applied at registry construction via WithMiddleware.
type Middleware func(cmd *Command, next Invoker) Invoker

// WithLogging returns a middleware that logs start, end, duration, and errors.
func WithLogging(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(cmd *Command, next Invoker) Invoker {
		return func(ctx context.Context, args map[string]json.RawMessage) (string, error) {
			logger.Info("command start", "command", cmd.Name())
			start := time.Now()
			res, err := next(ctx, args)
			dur := time.Since(start)
			if err != nil {
				logger.Error("command error", "command", cmd.Name(), "duration", dur, "error", err)
				return "", err
			}
			logger.Info("command end", "command", cmd.Name(), "duration", dur)
			return res, nil
		}
	}
}

// WithRecovery returns a middleware that recovers panics and returns SystemError.
func WithRecovery() Middleware {
	return func(_ *Command, next Invoker) Invoker {
		return func(ctx context.Context, args map[string]json.RawMessage) (res string, err error) {
			defer func() {
				if p := recover(); p != nil {
					res = ""
					err = &SystemError{Err: &panicError{p: p}}
				}
			}()
			return next(ctx, args)
		}
	}
}

// WithTimeoutMiddleware returns a middleware that enforces a per-command
// timeout. Named with "Middleware" suffix to avoid collision with the registry
// option WithInvokeTimeout; when both apply, the inner context cancels first.
func WithTimeoutMiddleware(d time.Duration) Middleware {
	return func(_ *Command, next Invoker) Invoker {
		return func(ctx context.Context, args map[string]json.RawMessage) (string, error) {
			if d <= 0 {
				return next(ctx, args)
			}
			ctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()
			return next(ctx, args)
		}
	}
}
