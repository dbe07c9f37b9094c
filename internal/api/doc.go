// Package api implements the HTTP status API for ScreenPilot.
//
// This package provides:
//   - Read-only REST endpoints for the live perception snapshot
//   - Tracking loop statistics (frames, fps, tier hit rates)
//   - The list of registered policy names
//   - Middleware stack (request ID, logging, recovery)
//
// # Architecture
//
// The API server sits beside the perception/action loops and never
// touches them: handlers read snapshots from the perception store and
// counters from the tracking service. There is no mutation surface —
// behavior changes happen through configuration and the policy
// registry, not HTTP.
//
// # Security
//
// The server binds to localhost by default and carries no credentials;
// it is a local diagnostics port, not a control plane.
package api
