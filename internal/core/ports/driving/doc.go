// Package driving defines interfaces that external actors (CLI, MCP) use
// to interact with core services. These are the "driving" ports in hexagonal
// architecture terminology - they drive the application.
//
// Every operation that can fail on bad input or unavailable providers reports
// the failure inside its result value, so callers can render it uniformly.
//
// Implementations of these interfaces live in internal/core/services.
package driving
