// Package app wires the application together: logger, manifest loader,
// handler registry, cache store, supervisor, and the optional status
// HTTP server. It owns the lifecycle of one application instance.
package app
