// Package engine implements hstream's reactive reconciliation core.
//
// A user script is straight-line procedural code that declares its output
// components through an explicit *Ctx. The engine re-executes the script per
// visitor session, compares the declared component set against the previous
// run, and classifies the change:
//
//   - key-set change (order-insensitive): the page structure changed, the
//     client must do a full reload
//   - attribute change on a stable key: only that component needs a refresh
//
// Decisions accumulate in the session's pending-refresh set until the
// transport layer drains them. Visitor-entered values (Record.CurrentValue)
// never participate in the comparison: the browser already reflects its own
// input, and refreshing on it would loop.
//
// All operations for one session run under a per-session mutex, so a client
// poll can never observe a half-applied reconciliation. Different sessions
// share no mutable state and proceed fully in parallel.
package engine
