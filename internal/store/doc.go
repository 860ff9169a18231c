// Package store holds the mutable simulation state: entities, their
// named component attachments, and the precomputed subject metadata
// used to emit lifecycle notifications on every mutation.
//
// # Entities
//
// An entity is an opaque, monotonically increasing 64-bit identifier,
// unique for the lifetime of its store and never reused. An entity may
// carry at most one human-readable name; the entity/name mapping is
// bijective. The per-entity state machine is
// nonexistent -> alive -> destroyed, with no resurrection.
//
// # Components
//
// A component is a named key/value record attached to an entity, or the
// boolean sentinel true when attached without data. Component tables
// are created lazily on first use.
//
// # Lifecycle notifications
//
// Every mutation publishes on a fixed set of canonical subjects, in a
// fixed order, so downstream consumers (derived-membership systems in
// particular) observe a deterministic stream. The token sequences are
// precomputed per entity, per component name, and per attachment pair,
// and are immutable once built. Publishing can be suppressed wholesale
// with SetNotify for bulk initialization.
package store
