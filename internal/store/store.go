package store

import (
	"sort"

	"github.com/dkeel/simwire/internal/bus"
	"github.com/dkeel/simwire/internal/subject"
)

// EntityID is an opaque entity identifier, monotonically increasing
// and never reused within one store.
type EntityID uint64

// Store holds entities, named components, and the precomputed subject
// metadata used to emit lifecycle notifications. A store is owned by
// exactly one world and shares that world's single execution thread.
type Store struct {
	bus    *bus.Bus
	nextID EntityID

	// alive holds entity metadata; an entry exists iff the entity is
	// alive.
	alive  map[EntityID]*entityMeta
	names  map[string]EntityID
	nameOf map[EntityID]string

	// tables maps component name to its per-entity values. Inner
	// tables are created lazily on first attach and persist once
	// created, as does the per-name metadata beside them.
	tables   map[string]map[EntityID]any
	compMeta map[string]*componentMeta

	// pairs holds per-attachment metadata; an entry exists iff the
	// component is currently attached to the entity.
	pairs map[EntityID]map[string]*pairMeta

	notify bool
}

// New creates an empty store that emits lifecycle notifications on b.
func New(b *bus.Bus) *Store {
	return &Store{
		bus:      b,
		alive:    make(map[EntityID]*entityMeta),
		names:    make(map[string]EntityID),
		nameOf:   make(map[EntityID]string),
		tables:   make(map[string]map[EntityID]any),
		compMeta: make(map[string]*componentMeta),
		pairs:    make(map[EntityID]map[string]*pairMeta),
		notify:   true,
	}
}

// Bus returns the bus the store publishes lifecycle notifications on.
func (s *Store) Bus() *bus.Bus {
	return s.bus
}

// SetNotify enables or disables lifecycle notification publishing.
// With notify off, mutations apply silently; used for bulk
// initialization.
func (s *Store) SetNotify(on bool) {
	s.notify = on
}

// Notify reports whether lifecycle notifications are being published.
func (s *Store) Notify() bool {
	return s.notify
}

func (s *Store) publish(seq []subject.Token, args ...any) {
	if s.notify {
		s.bus.Publish(seq, args...)
	}
}

// CreateEntity allocates the next entity id, optionally binds name
// (empty string means unnamed), attaches each entry of components, and
// publishes the entity-created notification exactly once, after all
// initial components are attached. Component-added notifications for
// the initial components fire first, then entity-created.
func (s *Store) CreateEntity(name string, components map[string]map[string]any) (EntityID, error) {
	if name != "" {
		if _, taken := s.names[name]; taken {
			return 0, &EntityError{Entity: s.names[name], Err: ErrDuplicateName}
		}
	}

	s.nextID++
	id := s.nextID

	s.alive[id] = buildEntityMeta(id, name)
	if name != "" {
		s.names[name] = id
		s.nameOf[id] = name
	}

	// Attach in sorted order so the notification stream is
	// deterministic regardless of map iteration.
	for _, comp := range sortedKeys(components) {
		if err := s.AddComponent(id, comp, components[comp]); err != nil {
			return 0, err
		}
	}

	for _, seq := range s.alive[id].created {
		s.publish(seq, id)
	}
	return id, nil
}

// DestroyEntity removes the entity from every component table it
// appears in, publishing the component-removed notifications, then
// unbinds its name, discards its metadata, and publishes the
// entity-destroyed notification. The id is never reused.
func (s *Store) DestroyEntity(id EntityID) error {
	meta, ok := s.alive[id]
	if !ok {
		return entityErr(id, ErrUnknownEntity)
	}

	for _, comp := range sortedKeys(s.pairs[id]) {
		if err := s.RemoveComponent(id, comp); err != nil {
			return err
		}
	}

	// Mark the entity destroyed before publishing, so handlers of the
	// destroyed notification observe it as gone.
	if name, named := s.nameOf[id]; named {
		delete(s.names, name)
		delete(s.nameOf, id)
	}
	delete(s.pairs, id)
	delete(s.alive, id)

	for _, seq := range meta.destroyed {
		s.publish(seq, id)
	}
	return nil
}

// Alive reports whether id refers to a currently alive entity.
func (s *Store) Alive(id EntityID) bool {
	_, ok := s.alive[id]
	return ok
}

// Entities returns the ids of all alive entities in ascending order.
func (s *Store) Entities() []EntityID {
	ids := make([]EntityID, 0, len(s.alive))
	for id := range s.alive {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// EntityByName resolves a name to its entity id.
func (s *Store) EntityByName(name string) (EntityID, bool) {
	id, ok := s.names[name]
	return id, ok
}

// EntityName returns the name bound to id, if any.
func (s *Store) EntityName(id EntityID) (string, bool) {
	name, ok := s.nameOf[id]
	return name, ok
}

// AddComponent attaches the named component to the entity, storing
// data (or the sentinel true when data is nil) and publishing the
// component-scoped add notification. The notification carries
// (entity id, component name, stored value).
func (s *Store) AddComponent(id EntityID, name string, data map[string]any) error {
	if !s.Alive(id) {
		return entityErr(id, ErrUnknownEntity)
	}
	if s.HasComponent(id, name) {
		return componentErr(id, name, ErrDuplicateComponent)
	}

	table := s.tables[name]
	if table == nil {
		table = make(map[EntityID]any)
		s.tables[name] = table
		s.compMeta[name] = buildComponentMeta(name)
	}

	var value any
	if data == nil {
		value = true
	} else {
		// The store owns the record.
		rec := make(map[string]any, len(data))
		for k, v := range data {
			rec[k] = v
		}
		value = rec
	}
	table[id] = value

	if s.pairs[id] == nil {
		s.pairs[id] = make(map[string]*pairMeta)
	}
	entityName := s.nameOf[id]
	s.pairs[id][name] = buildPairMeta(id, entityName, name)

	s.publish(s.compMeta[name].added, id, name, value)
	s.publish(seqComponentAdded, id, name, value)
	return nil
}

// SetComponent shallow-merges patch into the stored component record
// and publishes change notifications: component-scoped, then
// entity-scoped, then name-scoped when the entity is named. A
// component stored as the bare sentinel is promoted to a record.
func (s *Store) SetComponent(id EntityID, name string, patch map[string]any) error {
	if !s.Alive(id) {
		return entityErr(id, ErrUnknownEntity)
	}
	pair, attached := s.pairs[id][name]
	if !attached {
		return componentErr(id, name, ErrMissingComponent)
	}

	rec, ok := s.tables[name][id].(map[string]any)
	if !ok {
		rec = make(map[string]any, len(patch))
		s.tables[name][id] = rec
	}
	for k, v := range patch {
		rec[k] = v
	}

	s.publishChange(pair, id, name, rec)
	return nil
}

// SetComponentField sets a single field of the stored component record
// and publishes the same change notifications as SetComponent.
func (s *Store) SetComponentField(id EntityID, name, key string, value any) error {
	return s.SetComponent(id, name, map[string]any{key: value})
}

func (s *Store) publishChange(pair *pairMeta, id EntityID, name string, rec map[string]any) {
	s.publish(s.compMeta[name].changed, id, name, rec)
	for _, seq := range pair.changed {
		s.publish(seq, id, name, rec)
	}
	s.publish(seqComponentChanged, id, name, rec)
}

// RemoveComponent detaches the named component, discarding its entry
// and attachment metadata, then publishes the component-scoped and
// entity-scoped remove notifications. The component table itself
// persists.
func (s *Store) RemoveComponent(id EntityID, name string) error {
	if !s.Alive(id) {
		return entityErr(id, ErrUnknownEntity)
	}
	pair, attached := s.pairs[id][name]
	if !attached {
		return componentErr(id, name, ErrMissingComponent)
	}

	delete(s.tables[name], id)
	delete(s.pairs[id], name)

	s.publish(s.compMeta[name].removed, id, name)
	for _, seq := range pair.removed {
		s.publish(seq, id, name)
	}
	s.publish(seqComponentRemoved, id, name)
	return nil
}

// GetComponent returns the stored component value. Absence of the
// entity or the component yields (nil, false), never an error.
func (s *Store) GetComponent(id EntityID, name string) (any, bool) {
	table := s.tables[name]
	if table == nil {
		return nil, false
	}
	value, ok := table[id]
	return value, ok
}

// GetComponentField returns one field of the stored component record.
// Absence at any level yields (nil, false).
func (s *Store) GetComponentField(id EntityID, name, key string) (any, bool) {
	value, ok := s.GetComponent(id, name)
	if !ok {
		return nil, false
	}
	rec, ok := value.(map[string]any)
	if !ok {
		return nil, false
	}
	field, ok := rec[key]
	return field, ok
}

// HasComponent reports whether the named component is attached to the
// entity. Safe on absent entities and components.
func (s *Store) HasComponent(id EntityID, name string) bool {
	_, ok := s.pairs[id][name]
	return ok
}

// Components returns the names of the components attached to the
// entity, sorted.
func (s *Store) Components(id EntityID) []string {
	return sortedKeys(s.pairs[id])
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
