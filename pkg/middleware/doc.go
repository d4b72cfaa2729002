// Package middleware provides optional HTTP middleware for hstream
// applications: Prometheus metrics and OpenTelemetry tracing.
//
// Both constructors return standard func(http.Handler) http.Handler
// wrappers suitable for server.Config.Middleware:
//
//	cfg := server.DefaultConfig()
//	cfg.Middleware = []func(http.Handler) http.Handler{
//	    middleware.Prometheus(),
//	    middleware.OpenTelemetry(),
//	}
//
// The Prometheus middleware also arms the package-level recorders
// (RecordScriptRun, RecordReconcile, RecordValueChange). The engine
// feeds them through Recorder, wired via engine.WithObserver. Before
// Prometheus() runs, the recorders are no-ops.
package middleware
