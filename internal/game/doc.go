// Package game implements the multiplayer blackjack round engine: a shared
// shoe, per-player action handling (hit, stand, double, split, surrender,
// insurance), a sequential timer-driven turn cycle, and settlement against
// an external chip ledger.
//
// The engine is deliberately not goroutine-safe. A host is expected to own
// one Engine per table and funnel every call - player actions and timer
// expirations alike - through a single goroutine. Timers never touch engine
// state directly; they hand a closure to the Dispatch hook so the host's
// loop stays the only writer.
package game
