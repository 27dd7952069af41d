package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/vango-dev/loom/pkg/protocol"
	"github.com/vango-dev/loom/pkg/server"
)

// PanicError is returned by Recover when a listener panics.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("listener panic: %v", e.Value)
}

// Recover creates middleware that converts a panic in later handlers into a
// *PanicError.
func Recover() server.Middleware {
	logger := slog.Default().With("component", "middleware")
	return func(next server.EventHandler) server.EventHandler {
		return func(ctx context.Context, ev *protocol.Event) (err error) {
			defer func() {
				if r := recover(); r != nil {
					stack := debug.Stack()
					logger.Error("listener panic", "type", ev.Type, "node", ev.Node, "panic", r, "stack", string(stack))
					err = &PanicError{Value: r, Stack: stack}
				}
			}()
			return next(ctx, ev)
		}
	}
}
