// Package server serves loom applications over HTTP and WebSocket.
//
// Each WebSocket connection gets its own Session: a remote host mirroring
// the tree to the client, a scheduler reconciling the application into it,
// and a driver loop that owns both. Client events are decoded on the
// connection's read goroutine and submitted to the loop, so listeners and
// rendering never run concurrently.
//
// # Wire sequence
//
//	Server → Client: Hello   (session id, commit seq, current tree as HTML)
//	Server → Client: Patches (one frame per commit, seq increasing)
//	Client → Server: Event   (node id, event type, value)
//	Client ↔ Server: Control (ping/pong, resync → fresh Hello)
//	Server → Client: Error   (abandoned cycles, unknown nodes, bad frames)
//
// # Routes
//
//	GET /                        server-rendered HTML of a fresh application
//	GET /ws                      WebSocket session
//	GET /healthz                 liveness
//	GET /sessions                connected sessions as JSON
//	GET /sessions/{id}/snapshot  latest committed HTML of a session
//	GET /metrics                 Prometheus metrics (when a collector is set)
//
// # Usage
//
//	srv := server.New(demo.Counter.New, server.DefaultConfig(),
//	    server.WithMetrics(collector, prometheus.DefaultGatherer))
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package server
