package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/vango-dev/loom/internal/demo"
	"github.com/vango-dev/loom/internal/errors"
	"github.com/vango-dev/loom/pkg/element"
	"github.com/vango-dev/loom/pkg/metrics"
	"github.com/vango-dev/loom/pkg/middleware"
	"github.com/vango-dev/loom/pkg/server"
	"github.com/vango-dev/loom/pkg/snapshot"
)

func serveCmd(g *globals) *cobra.Command {
	var (
		addr string
		app  string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a demo application over WebSocket",
		Long: `Serve starts an HTTP server. Every WebSocket connection to /ws gets its
own instance of the application; commits are streamed as patch frames and
client events are routed back to listeners.

Metrics are served at metrics.path. When snapshot.bucket is set, every
committed tree is uploaded to S3.

Examples:
  loom serve
  loom serve --addr :3000 --app todo`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				g.cfg.Server.Addr = addr
			}
			if app != "" {
				g.cfg.Server.App = app
			}
			if _, ok := demo.Lookup(g.cfg.Server.App); !ok {
				return errors.New(errors.CodeInvalidConfig).
					WithDetailf("unknown app %q", g.cfg.Server.App).
					WithSuggestion("Use one of: " + strings.Join(demo.Names(), ", "))
			}
			name := g.cfg.Server.App

			collector := metrics.New(metrics.WithNamespace(g.cfg.Metrics.Namespace))
			opts := []server.Option{
				server.WithMetrics(collector, prometheus.DefaultGatherer),
				server.WithMiddleware(
					middleware.Recover(),
					middleware.OpenTelemetry(),
					middleware.Prometheus(collector),
				),
			}
			if g.cfg.SnapshotsEnabled() {
				client := snapshot.NewS3Client(g.cfg.Snapshot.Region)
				opts = append(opts, server.WithSnapshotStore(
					snapshot.NewS3Store(client, g.cfg.Snapshot.Bucket, g.cfg.Snapshot.Prefix)))
				info("Snapshots: s3://%s/%s", g.cfg.Snapshot.Bucket, g.cfg.Snapshot.Prefix)
			} else {
				warn("snapshot.bucket not set, snapshots are kept in memory only")
			}

			srv := server.New(func() *element.Element {
				el, _ := demo.Lookup(name)
				return el
			}, server.FromFile(g.cfg), opts...)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			success("Serving %s on %s", name, g.cfg.Server.Addr)
			info("WebSocket: ws://localhost%s/ws", g.cfg.Server.Addr)
			info("Metrics:   http://localhost%s%s", g.cfg.Server.Addr, g.cfg.Metrics.Path)
			return srv.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default: server.addr)")
	cmd.Flags().StringVarP(&app, "app", "a", "", "Application to serve ("+strings.Join(demo.Names(), ", ")+")")

	return cmd
}
