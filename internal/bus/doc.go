// Package bus implements the subject-addressed notification router: a
// trie of nodes keyed by subject token, with subscriptions registered
// at the node their token path terminates on.
//
// # Routing
//
// Publish delivers to every callback registered at the node reached by
// following the published tokens exactly, and to every callback at the
// sibling wildcard node reached by replacing the final token with "*".
// The wildcard applies at the final segment only; there is no subtree
// wildcard.
//
// # Ordering and reentrancy
//
// Callbacks at one node fire in subscription (insertion) order, so
// delivery is deterministic. Delivery is synchronous and in-line on the
// caller's stack. A callback may subscribe, unsubscribe, or publish on
// the same bus while a publish is in flight: each publish iterates a
// snapshot of the subscriber set taken per node, so reentrant mutation
// never corrupts iteration, callbacks added mid-publish at a node do
// not receive the in-flight notification, and callbacks cancelled
// mid-publish are skipped.
//
// Publishing to a subject with no subscribers anywhere is a silent
// no-op, never an error. Unsubscribe is idempotent.
package bus
