package store

import (
	"strconv"

	"github.com/dkeel/simwire/internal/subject"
)

// Generic lifecycle sequences, shared by all entities and components.
// Derived-membership systems subscribe to these to react to any entity
// or any component name.
var (
	seqEntityCreated   = []subject.Token{subject.ScopeEntity, subject.ModAdd}
	seqEntityDestroyed = []subject.Token{subject.ScopeEntity, subject.ModRemove}

	seqComponentAdded   = []subject.Token{subject.ScopeComponent, subject.ModAdd}
	seqComponentChanged = []subject.Token{subject.ScopeComponent, subject.ModChange}
	seqComponentRemoved = []subject.Token{subject.ScopeComponent, subject.ModRemove}
)

// Canonical subject strings for the generic lifecycle sequences,
// exported for subscribers that address them by string.
const (
	SubjectEntityCreated   = "#.+"
	SubjectEntityDestroyed = "#.-"

	SubjectComponentAdded   = "@.+"
	SubjectComponentChanged = "@.~"
	SubjectComponentRemoved = "@.-"
)

// entityMeta holds the precomputed subject sequences for one alive
// entity: the generic sequence plus id-qualified and, when the entity
// is named, name-qualified variants. Immutable once built.
type entityMeta struct {
	created   [][]subject.Token
	destroyed [][]subject.Token
}

func buildEntityMeta(id EntityID, name string) *entityMeta {
	idTok := strconv.FormatUint(uint64(id), 10)

	m := &entityMeta{
		created: [][]subject.Token{
			seqEntityCreated,
			{subject.ScopeEntity, idTok, subject.ModAdd},
		},
		destroyed: [][]subject.Token{
			seqEntityDestroyed,
			{subject.ScopeEntity, idTok, subject.ModRemove},
		},
	}
	if name != "" {
		m.created = append(m.created, []subject.Token{subject.ScopeEntity, name, subject.ModAdd})
		m.destroyed = append(m.destroyed, []subject.Token{subject.ScopeEntity, name, subject.ModRemove})
	}
	return m
}

// componentMeta holds the name-scoped subject sequences for one
// component name. Built lazily on first attach and kept for the
// lifetime of the store.
type componentMeta struct {
	added   []subject.Token
	changed []subject.Token
	removed []subject.Token
}

func buildComponentMeta(name string) *componentMeta {
	return &componentMeta{
		added:   []subject.Token{subject.ScopeComponent, name, subject.ModAdd},
		changed: []subject.Token{subject.ScopeComponent, name, subject.ModChange},
		removed: []subject.Token{subject.ScopeComponent, name, subject.ModRemove},
	}
}

// pairMeta holds the entity-scoped subject sequences for one
// (entity, component) attachment, e.g. "#42.@inventory.~". It exists
// exactly while the component is attached to the entity. Nothing ever
// publishes an entity-scoped add: attaching publishes on the component
// scope only, so only change and remove sequences are kept.
type pairMeta struct {
	changed [][]subject.Token
	removed [][]subject.Token
}

func buildPairMeta(id EntityID, entityName, component string) *pairMeta {
	idTok := strconv.FormatUint(uint64(id), 10)

	m := &pairMeta{
		changed: [][]subject.Token{
			{subject.ScopeEntity, idTok, subject.ScopeComponent, component, subject.ModChange},
		},
		removed: [][]subject.Token{
			{subject.ScopeEntity, idTok, subject.ScopeComponent, component, subject.ModRemove},
		},
	}
	if entityName != "" {
		m.changed = append(m.changed, []subject.Token{subject.ScopeEntity, entityName, subject.ScopeComponent, component, subject.ModChange})
		m.removed = append(m.removed, []subject.Token{subject.ScopeEntity, entityName, subject.ScopeComponent, component, subject.ModRemove})
	}
	return m
}
