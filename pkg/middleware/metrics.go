package middleware

import (
	"context"
	"time"

	"github.com/vango-dev/loom/pkg/metrics"
	"github.com/vango-dev/loom/pkg/protocol"
	"github.com/vango-dev/loom/pkg/server"
)

// Prometheus creates middleware that records each event's type, listener
// duration and outcome in c.
func Prometheus(c *metrics.Collector) server.Middleware {
	return func(next server.EventHandler) server.EventHandler {
		return func(ctx context.Context, ev *protocol.Event) error {
			start := time.Now()
			err := next(ctx, ev)
			c.Event(ev.Type, time.Since(start), err)
			return err
		}
	}
}
