// Package policy holds the behavior registry and the built-in combat
// behaviors. A policy reads the perception view and declares intent for
// one frame; it never performs device I/O itself and never blocks.
//
// Policies are resolved by name from a registry so behaviors can be
// swapped at runtime by re-registering under the same name and
// re-resolving — there is no code reload involved.
package policy
