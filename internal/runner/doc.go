// Package runner drives policies: at a fixed frame rate it hands the
// current perception view and an action intent buffer to the policy,
// then flushes the accumulated intent as device input.
//
// Frame lifecycle:
//
//	┌──────────────────────────── one frame ───────────────────────────┐
//	│ policy(view, intent)  →  intent.Flush()  →  pace to frame budget │
//	└───────────────────────────────────────────────────────────────────┘
//
// A panicking or erroring policy never kills the loop — the frame is
// logged and the next one proceeds. Whatever way the loop exits, every
// held key and the mouse button are released.
package runner
