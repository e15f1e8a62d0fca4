// Package server implements the HTTP surface and the share lifecycle
// for qrdrop. It wires together the HTTP routes, dependencies (object
// store, base-URL provider, code encoder), the retention janitor, and
// the middleware chain used by tests and the production binary.
package server
