// Package component defines the component record model shared by the
// reconciliation engine and the transport layer.
//
// A component is one declared unit of visitor-facing output produced by the
// user script, addressed by a stable key. Components form a flat,
// insertion-ordered set per session; there is no nesting and no DOM tree.
// The Set type preserves declaration order across overwrites and across
// serialization, because order is part of the page's structural identity.
package component
