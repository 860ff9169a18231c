// Package world provides the composition root: one store, one bus, and
// the ordered list of behavior units, driven by a two-phase tick.
package world

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/dkeel/simwire/internal/bus"
	"github.com/dkeel/simwire/internal/store"
	"github.com/dkeel/simwire/internal/subject"
	"github.com/dkeel/simwire/internal/system"
)

// Sentinel errors for system registration.
var (
	// ErrDuplicateSystem is returned when adding a system under a name
	// that is already registered.
	ErrDuplicateSystem = errors.New("system name already registered")

	// ErrUnknownSystem is returned when removing a system that is not
	// registered.
	ErrUnknownSystem = errors.New("system not registered")
)

// World exclusively owns its store, bus, and behavior units. No two
// worlds share state, and all operations run on a single execution
// thread; publish delivers subscribers in-line on the caller's stack.
type World struct {
	store *store.Store
	bus   *bus.Bus
	log   *zap.Logger

	// systems in registration order; byName indexes the same units.
	systems []namedSystem
	byName  map[string]system.System

	anonSeq int
}

type namedSystem struct {
	name string
	sys  system.System
}

// Option configures a world at construction.
type Option func(*World)

// WithLogger sets the world's logger. Defaults to a no-op logger.
func WithLogger(log *zap.Logger) Option {
	return func(w *World) {
		w.log = log
	}
}

// WithNotifications enables or disables lifecycle notification
// publishing. On by default; disable for bulk/initialization mutation.
func WithNotifications(on bool) Option {
	return func(w *World) {
		w.store.SetNotify(on)
	}
}

// New creates a world with a fresh store and bus.
func New(opts ...Option) *World {
	b := bus.New()
	w := &World{
		store:  store.New(b),
		bus:    b,
		log:    zap.NewNop(),
		byName: make(map[string]system.System),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// State returns the world's entity/component store.
func (w *World) State() *store.Store {
	return w.store
}

// Events returns the world's notification bus.
func (w *World) Events() *bus.Bus {
	return w.bus
}

// SetNotify toggles lifecycle notification publishing at runtime.
func (w *World) SetNotify(on bool) {
	w.store.SetNotify(on)
}

// Entity/component surface. These delegate to the store; lifecycle
// notifications fire synchronously before each call returns.

// CreateEntity creates an entity, optionally named (empty string means
// unnamed), with the given initial components attached.
func (w *World) CreateEntity(name string, components map[string]map[string]any) (store.EntityID, error) {
	id, err := w.store.CreateEntity(name, components)
	if err != nil {
		return 0, err
	}
	w.log.Debug("entity created", zap.Uint64("entity", uint64(id)), zap.String("name", name))
	return id, nil
}

// DestroyEntity destroys an entity, detaching its components first.
func (w *World) DestroyEntity(id store.EntityID) error {
	if err := w.store.DestroyEntity(id); err != nil {
		return err
	}
	w.log.Debug("entity destroyed", zap.Uint64("entity", uint64(id)))
	return nil
}

// AddComponent attaches a component to an entity.
func (w *World) AddComponent(id store.EntityID, name string, data map[string]any) error {
	return w.store.AddComponent(id, name, data)
}

// SetComponent shallow-merges patch into an attached component.
func (w *World) SetComponent(id store.EntityID, name string, patch map[string]any) error {
	return w.store.SetComponent(id, name, patch)
}

// SetComponentField sets one field of an attached component.
func (w *World) SetComponentField(id store.EntityID, name, key string, value any) error {
	return w.store.SetComponentField(id, name, key, value)
}

// RemoveComponent detaches a component from an entity.
func (w *World) RemoveComponent(id store.EntityID, name string) error {
	return w.store.RemoveComponent(id, name)
}

// GetComponent returns an entity's component value, absence-safe.
func (w *World) GetComponent(id store.EntityID, name string) (any, bool) {
	return w.store.GetComponent(id, name)
}

// GetComponentField returns one field of an entity's component.
func (w *World) GetComponentField(id store.EntityID, name, key string) (any, bool) {
	return w.store.GetComponentField(id, name, key)
}

// HasComponent reports whether the component is attached.
func (w *World) HasComponent(id store.EntityID, name string) bool {
	return w.store.HasComponent(id, name)
}

// GetEntity resolves a name to its entity id.
func (w *World) GetEntity(name string) (store.EntityID, bool) {
	return w.store.EntityByName(name)
}

// GetEntityName returns the name bound to an entity id, if any.
func (w *World) GetEntityName(id store.EntityID) (string, bool) {
	return w.store.EntityName(id)
}

// Subscribe parses subj and registers cb on the bus.
func (w *World) Subscribe(subj string, cb bus.Callback) *bus.Subscription {
	return w.bus.SubscribeSubject(subj, cb)
}

// Unsubscribe removes a subscription by handle; idempotent.
func (w *World) Unsubscribe(sub *bus.Subscription) {
	w.bus.Unsubscribe(sub)
}

// UnsubscribeFunc removes cb's registration on subj by callback
// identity; a missing registration is a no-op.
func (w *World) UnsubscribeFunc(subj string, cb bus.Callback) {
	w.bus.UnsubscribeSubject(subj, cb)
}

// Publish parses subj and delivers args to its subscribers
// synchronously. Publishing with no subscribers is a no-op.
func (w *World) Publish(subj string, args ...any) {
	w.bus.Publish(subject.Parse(subj), args...)
}

// AddSystem registers a behavior unit under name and initializes it.
// An empty name is assigned a generated one. Systems run each tick in
// registration order.
func (w *World) AddSystem(name string, sys system.System) error {
	if name == "" {
		w.anonSeq++
		name = fmt.Sprintf("system-%d", w.anonSeq)
	}
	if _, exists := w.byName[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateSystem, name)
	}

	if err := sys.Init(w); err != nil {
		return fmt.Errorf("initializing system %s: %w", name, err)
	}

	w.systems = append(w.systems, namedSystem{name: name, sys: sys})
	w.byName[name] = sys
	w.log.Debug("system added", zap.String("system", name))
	return nil
}

// RemoveSystem destroys and deregisters the named system.
func (w *World) RemoveSystem(name string) error {
	sys, exists := w.byName[name]
	if !exists {
		return fmt.Errorf("%w: %s", ErrUnknownSystem, name)
	}

	for i, ns := range w.systems {
		if ns.name == name {
			w.systems = append(w.systems[:i], w.systems[i+1:]...)
			break
		}
	}
	delete(w.byName, name)
	w.log.Debug("system removed", zap.String("system", name))
	return sys.Destroy()
}

// GetSystem returns the named system.
func (w *World) GetSystem(name string) (system.System, bool) {
	sys, ok := w.byName[name]
	return sys, ok
}

// Systems returns the registered system names in registration order.
func (w *World) Systems() []string {
	names := make([]string, len(w.systems))
	for i, ns := range w.systems {
		names[i] = ns.name
	}
	return names
}

// Update runs every system's Update in registration order. Every
// Update for the tick completes before any Process for the tick
// begins; call Process after Update, or use Step.
func (w *World) Update(dt float64) error {
	var errs error
	for _, ns := range w.systems {
		if err := ns.sys.Update(dt); err != nil {
			errs = errors.Join(errs, fmt.Errorf("system %s update: %w", ns.name, err))
		}
	}
	return errs
}

// Process runs every system's Process in registration order.
func (w *World) Process() error {
	var errs error
	for _, ns := range w.systems {
		if err := ns.sys.Process(); err != nil {
			errs = errors.Join(errs, fmt.Errorf("system %s process: %w", ns.name, err))
		}
	}
	return errs
}

// Step drives one full tick: the complete update pass, then the
// complete process pass.
func (w *World) Step(dt float64) error {
	if err := w.Update(dt); err != nil {
		return err
	}
	return w.Process()
}

// Close destroys every system in reverse registration order and clears
// the bus. The world is not usable afterwards.
func (w *World) Close() error {
	var errs error
	for i := len(w.systems) - 1; i >= 0; i-- {
		if err := w.systems[i].sys.Destroy(); err != nil {
			errs = errors.Join(errs, fmt.Errorf("system %s destroy: %w", w.systems[i].name, err))
		}
	}
	w.systems = nil
	w.byName = make(map[string]system.System)
	w.bus.Clear()
	return errs
}
