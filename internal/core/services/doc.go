// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// Services never import an adapter package; concrete adapters are
// wired in by internal/app.
package services
