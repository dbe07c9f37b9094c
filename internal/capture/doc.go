// Package capture provides screen frame sources for the tracking loop.
//
// A Display grabs the selected monitor's framebuffer and hands it to the
// vision coordinator as a BGR mat, once per cycle.
//
// # Thread Affinity
//
// Capture handles on some platforms are bound to the thread that created
// them, so a Display must be constructed inside the goroutine that will
// call Grab — the tracking service does this by taking a factory and
// invoking it from its own loop. Never share one Display across
// goroutines.
package capture
