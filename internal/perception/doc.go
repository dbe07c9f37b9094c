// Package perception holds the shared perception state for screenpilot.
//
// The tracking service writes one Observation per tracked template each
// cycle; policies read them once per frame. The Store is the single piece
// of mutable state shared between the tracking goroutine and the script
// runner, so every read and write goes through one lock and readers only
// ever receive copies.
//
// # Key Types
//
//   - Observation: where (and whether) a named template was last seen
//   - Tier: which search stage produced an observation
//   - Store: thread-safe name → Observation table
//
// # Thread Safety
//
// All Store methods are safe for concurrent use from multiple goroutines.
package perception
