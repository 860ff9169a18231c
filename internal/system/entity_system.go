package system

import (
	"sort"

	"github.com/dkeel/simwire/internal/bus"
	"github.com/dkeel/simwire/internal/store"
)

// MatchFunc is the membership predicate of an entity system.
type MatchFunc func(s *store.Store, id store.EntityID) bool

// EntityConfig declares an entity system: a behavior unit that keeps a
// live set of entity ids matching a predicate and invokes per-entity
// hooks once per tick per member.
type EntityConfig struct {
	Config

	// Matches decides membership. Required; Init fails with
	// ErrUnimplemented when absent.
	Matches MatchFunc

	// UpdateEntity runs for each member during the update pass.
	UpdateEntity func(s *store.Store, id store.EntityID, dt float64) error

	// ProcessEntity runs for each member during the process pass.
	ProcessEntity func(s *store.Store, id store.EntityID) error

	// Entered and Left observe membership transitions. Optional.
	Entered func(id store.EntityID)
	Left    func(id store.EntityID)
}

// EntitySystem maintains derived membership over the store's entities.
// The membership set is owned exclusively by the system and mutated
// only from lifecycle notifications and Init.
type EntitySystem struct {
	base
	cfg     EntityConfig
	members map[store.EntityID]struct{}
	subs    []*bus.Subscription
}

// NewEntitySystem builds an entity system from cfg.
func NewEntitySystem(cfg EntityConfig) *EntitySystem {
	return &EntitySystem{
		base:    base{cfg: cfg.Config},
		cfg:     cfg,
		members: make(map[store.EntityID]struct{}),
	}
}

// Init seeds membership from every currently alive entity, then
// subscribes to the lifecycle notification classes: entity-created,
// entity-destroyed, and the component wildcard covering add, change,
// and remove for any component name.
func (es *EntitySystem) Init(rt Runtime) error {
	if es.cfg.Matches == nil {
		return ErrUnimplemented
	}
	if err := es.base.Init(rt); err != nil {
		return err
	}

	s := rt.State()
	for _, id := range s.Entities() {
		if es.cfg.Matches(s, id) {
			es.enter(id)
		}
	}

	es.subs = append(es.subs,
		rt.Subscribe(store.SubjectEntityCreated, es.onEntityEvent),
		rt.Subscribe(store.SubjectEntityDestroyed, es.onEntityDestroyed),
		rt.Subscribe("@.*", es.onComponentEvent),
	)
	return nil
}

// Destroy unsubscribes every lifecycle registration. Idempotent even
// when some registrations were never established.
func (es *EntitySystem) Destroy() error {
	for _, sub := range es.subs {
		es.rt.Unsubscribe(sub)
	}
	es.subs = nil
	return es.base.Destroy()
}

func (es *EntitySystem) onEntityEvent(args ...any) {
	if id, ok := entityArg(args); ok {
		es.reevaluate(id)
	}
}

// onEntityDestroyed clears membership unconditionally: the entity no
// longer exists, whatever the predicate would say.
func (es *EntitySystem) onEntityDestroyed(args ...any) {
	if id, ok := entityArg(args); ok {
		es.leave(id)
	}
}

func (es *EntitySystem) onComponentEvent(args ...any) {
	if id, ok := entityArg(args); ok {
		es.reevaluate(id)
	}
}

func entityArg(args []any) (store.EntityID, bool) {
	if len(args) == 0 {
		return 0, false
	}
	id, ok := args[0].(store.EntityID)
	return id, ok
}

func (es *EntitySystem) reevaluate(id store.EntityID) {
	s := es.rt.State()
	if s.Alive(id) && es.cfg.Matches(s, id) {
		es.enter(id)
	} else {
		es.leave(id)
	}
}

func (es *EntitySystem) enter(id store.EntityID) {
	if _, in := es.members[id]; in {
		return
	}
	es.members[id] = struct{}{}
	if es.cfg.Entered != nil {
		es.cfg.Entered(id)
	}
}

func (es *EntitySystem) leave(id store.EntityID) {
	if _, in := es.members[id]; !in {
		return
	}
	delete(es.members, id)
	if es.cfg.Left != nil {
		es.cfg.Left(id)
	}
}

// Contains reports whether id is currently a member.
func (es *EntitySystem) Contains(id store.EntityID) bool {
	_, in := es.members[id]
	return in
}

// Members returns the member ids in ascending order, the same stable
// order the per-tick hooks run in.
func (es *EntitySystem) Members() []store.EntityID {
	ids := make([]store.EntityID, 0, len(es.members))
	for id := range es.members {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Update runs the per-entity update hook for each member, then the
// unit's own Update hook. Members are snapshotted first, so a hook
// that mutates membership mid-pass never corrupts the iteration;
// entities that drop out mid-pass are skipped.
func (es *EntitySystem) Update(dt float64) error {
	if es.cfg.UpdateEntity != nil {
		s := es.rt.State()
		for _, id := range es.Members() {
			if !es.Contains(id) {
				continue
			}
			if err := es.cfg.UpdateEntity(s, id, dt); err != nil {
				return err
			}
		}
	}
	return es.base.Update(dt)
}

// Process runs the per-entity process hook for each member, then the
// unit's own Process hook.
func (es *EntitySystem) Process() error {
	if es.cfg.ProcessEntity != nil {
		s := es.rt.State()
		for _, id := range es.Members() {
			if !es.Contains(id) {
				continue
			}
			if err := es.cfg.ProcessEntity(s, id); err != nil {
				return err
			}
		}
	}
	return es.base.Process()
}
