// Package middleware provides event middleware for loom servers.
//
// Event middleware wraps the handling of each client event on a session's
// loop goroutine:
//
//	srv := server.New(app, cfg, server.WithMiddleware(
//	    middleware.Recover(),
//	    middleware.OpenTelemetry(),
//	    middleware.Prometheus(collector),
//	))
//
// OpenTelemetry starts a span per event with the event type and target node
// and records failures on it. Prometheus counts events and observes how long
// their listeners ran. Recover turns a panicking listener into an error so
// the client receives an error frame.
package middleware
