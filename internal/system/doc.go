// Package system defines behavior units: ordered, per-tick invoked
// units with lifecycle hooks, registered on a world.
//
// A behavior unit moves through constructed -> initialized ->
// running -> destroyed. Init runs once when the unit is added to a
// world and establishes subscriptions and seed state; Destroy runs once
// on removal and tears them down. Each tick the world runs every unit's
// Update, then every unit's Process, in registration order; the two
// passes never interleave.
//
// Three flavors are provided:
//
//   - New builds a unit from a Config enumerating which hooks are
//     present; absent hooks default to no-ops.
//   - NewEventSystem auto-subscribes a declared subject -> callback
//     table on Init and unsubscribes it on Destroy.
//   - NewEntitySystem maintains a live set of entity ids matching a
//     predicate, kept current incrementally from lifecycle
//     notifications, and invokes per-entity hooks once per tick per
//     member.
package system
