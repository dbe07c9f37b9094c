// Package input turns per-frame action intent into device keyboard/mouse
// operations.
//
// Policies never touch the device. They declare intent on an Intent buffer
// — hold these keys, aim here, attack, dash — any number of times per
// frame at zero device cost. The script runner then calls Flush exactly
// once per frame, which reconciles declared intent against the mirrored
// physical state:
//
//  1. dash — at most one per frame, the only blocking step (~30ms)
//  2. key reconciliation — release unwanted, press missing
//  3. aim — one pointer move
//  4. mouse button reconciliation
//  5. per-frame intent reset
//
// Reconciliation makes declarations idempotent: calling MoveLeft every
// frame produces one key-down on the first frame and one key-up on the
// first frame it is omitted, nothing in between.
//
// # Thread Safety
//
// An Intent buffer belongs to the runner's frame loop and is not safe for
// concurrent use.
package input
