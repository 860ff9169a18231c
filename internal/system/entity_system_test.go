package system

import (
	"errors"
	"reflect"
	"testing"

	"github.com/dkeel/simwire/internal/bus"
	"github.com/dkeel/simwire/internal/store"
	"github.com/dkeel/simwire/internal/subject"
)

// testRuntime is a minimal Runtime over a bare store and bus.
type testRuntime struct {
	s *store.Store
	b *bus.Bus
}

func newTestRuntime() *testRuntime {
	b := bus.New()
	return &testRuntime{s: store.New(b), b: b}
}

func (rt *testRuntime) State() *store.Store { return rt.s }
func (rt *testRuntime) Events() *bus.Bus    { return rt.b }

func (rt *testRuntime) Subscribe(subj string, cb bus.Callback) *bus.Subscription {
	return rt.b.SubscribeSubject(subj, cb)
}

func (rt *testRuntime) Unsubscribe(sub *bus.Subscription) {
	rt.b.Unsubscribe(sub)
}

func (rt *testRuntime) Publish(subj string, args ...any) {
	rt.b.Publish(subject.Parse(subj), args...)
}

func hasComponent(name string) MatchFunc {
	return func(s *store.Store, id store.EntityID) bool {
		return s.HasComponent(id, name)
	}
}

func TestEntitySystem_RequiresMatches(t *testing.T) {
	rt := newTestRuntime()
	es := NewEntitySystem(EntityConfig{})

	if err := es.Init(rt); !errors.Is(err, ErrUnimplemented) {
		t.Errorf("Init without Matches = %v, want ErrUnimplemented", err)
	}
}

func TestEntitySystem_SeedsFromAliveEntities(t *testing.T) {
	rt := newTestRuntime()

	with, _ := rt.s.CreateEntity("", map[string]map[string]any{"health": {"hp": 1}})
	without, _ := rt.s.CreateEntity("", nil)

	es := NewEntitySystem(EntityConfig{Matches: hasComponent("health")})
	if err := es.Init(rt); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	if !es.Contains(with) {
		t.Error("matching entity should be seeded into membership")
	}
	if es.Contains(without) {
		t.Error("non-matching entity should not be a member")
	}
}

func TestEntitySystem_MembershipOnCreate(t *testing.T) {
	rt := newTestRuntime()

	es := NewEntitySystem(EntityConfig{Matches: hasComponent("health")})
	if err := es.Init(rt); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	// Entity created with the component attached at creation time is a
	// member immediately after CreateEntity returns, no tick needed.
	id, err := rt.s.CreateEntity("", map[string]map[string]any{"health": {"hp": 1}})
	if err != nil {
		t.Fatalf("CreateEntity failed: %v", err)
	}
	if !es.Contains(id) {
		t.Error("entity should be a member immediately after CreateEntity")
	}
}

func TestEntitySystem_MembershipFollowsComponents(t *testing.T) {
	rt := newTestRuntime()

	es := NewEntitySystem(EntityConfig{Matches: hasComponent("health")})
	if err := es.Init(rt); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	id, _ := rt.s.CreateEntity("", nil)
	if es.Contains(id) {
		t.Error("entity without the component should not be a member")
	}

	if err := rt.s.AddComponent(id, "health", nil); err != nil {
		t.Fatalf("AddComponent failed: %v", err)
	}
	if !es.Contains(id) {
		t.Error("entity should join on component add")
	}

	if err := rt.s.RemoveComponent(id, "health"); err != nil {
		t.Fatalf("RemoveComponent failed: %v", err)
	}
	if es.Contains(id) {
		t.Error("entity should leave on component remove")
	}
}

func TestEntitySystem_MembershipFollowsChanges(t *testing.T) {
	rt := newTestRuntime()

	dead := func(s *store.Store, id store.EntityID) bool {
		hp, ok := s.GetComponentField(id, "health", "hp")
		if !ok {
			return false
		}
		n, ok := hp.(int)
		return ok && n <= 0
	}

	es := NewEntitySystem(EntityConfig{Matches: dead})
	if err := es.Init(rt); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	id, _ := rt.s.CreateEntity("", map[string]map[string]any{"health": {"hp": 10}})
	if es.Contains(id) {
		t.Error("entity with hp > 0 should not match")
	}

	if err := rt.s.SetComponentField(id, "health", "hp", 0); err != nil {
		t.Fatalf("SetComponentField failed: %v", err)
	}
	if !es.Contains(id) {
		t.Error("entity should join when the change makes the predicate true")
	}
}

func TestEntitySystem_DestroyClearsMembership(t *testing.T) {
	rt := newTestRuntime()

	// Predicate that would keep matching a destroyed id if it were
	// consulted: membership must clear unconditionally anyway.
	always := func(*store.Store, store.EntityID) bool { return true }

	es := NewEntitySystem(EntityConfig{Matches: always})
	if err := es.Init(rt); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	id, _ := rt.s.CreateEntity("", map[string]map[string]any{"health": nil})
	if !es.Contains(id) {
		t.Fatal("entity should be a member")
	}

	if err := rt.s.DestroyEntity(id); err != nil {
		t.Fatalf("DestroyEntity failed: %v", err)
	}
	if es.Contains(id) {
		t.Error("destroyed entity must leave membership immediately")
	}
}

func TestEntitySystem_EnterLeaveHooks(t *testing.T) {
	rt := newTestRuntime()

	var entered, left []store.EntityID
	es := NewEntitySystem(EntityConfig{
		Matches: hasComponent("health"),
		Entered: func(id store.EntityID) { entered = append(entered, id) },
		Left:    func(id store.EntityID) { left = append(left, id) },
	})
	if err := es.Init(rt); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	id, _ := rt.s.CreateEntity("", map[string]map[string]any{"health": nil})
	_ = rt.s.RemoveComponent(id, "health")

	if !reflect.DeepEqual(entered, []store.EntityID{id}) {
		t.Errorf("entered = %v, want [%d]", entered, id)
	}
	if !reflect.DeepEqual(left, []store.EntityID{id}) {
		t.Errorf("left = %v, want [%d]", left, id)
	}
}

func TestEntitySystem_MembersStableOrder(t *testing.T) {
	rt := newTestRuntime()

	es := NewEntitySystem(EntityConfig{Matches: hasComponent("tag")})
	if err := es.Init(rt); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	var ids []store.EntityID
	for i := 0; i < 5; i++ {
		id, _ := rt.s.CreateEntity("", map[string]map[string]any{"tag": nil})
		ids = append(ids, id)
	}

	if got := es.Members(); !reflect.DeepEqual(got, ids) {
		t.Errorf("Members() = %v, want ascending %v", got, ids)
	}
}

func TestEntitySystem_PerEntityHooks(t *testing.T) {
	rt := newTestRuntime()

	var updated, processed []store.EntityID
	es := NewEntitySystem(EntityConfig{
		Matches: hasComponent("tag"),
		UpdateEntity: func(_ *store.Store, id store.EntityID, dt float64) error {
			updated = append(updated, id)
			return nil
		},
		ProcessEntity: func(_ *store.Store, id store.EntityID) error {
			processed = append(processed, id)
			return nil
		},
	})
	if err := es.Init(rt); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	a, _ := rt.s.CreateEntity("", map[string]map[string]any{"tag": nil})
	b, _ := rt.s.CreateEntity("", map[string]map[string]any{"tag": nil})

	if err := es.Update(0.05); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if err := es.Process(); err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	want := []store.EntityID{a, b}
	if !reflect.DeepEqual(updated, want) {
		t.Errorf("updated = %v, want %v", updated, want)
	}
	if !reflect.DeepEqual(processed, want) {
		t.Errorf("processed = %v, want %v", processed, want)
	}
}

func TestEntitySystem_HookMayDestroyMembers(t *testing.T) {
	rt := newTestRuntime()

	es := NewEntitySystem(EntityConfig{
		Matches: hasComponent("doomed"),
		UpdateEntity: func(s *store.Store, id store.EntityID, dt float64) error {
			return s.DestroyEntity(id)
		},
	})
	if err := es.Init(rt); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		_, _ = rt.s.CreateEntity("", map[string]map[string]any{"doomed": nil})
	}

	if err := es.Update(0.05); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if len(es.Members()) != 0 {
		t.Errorf("members after destructive pass = %v, want none", es.Members())
	}
}

func TestEntitySystem_DestroyUnsubscribes(t *testing.T) {
	rt := newTestRuntime()

	es := NewEntitySystem(EntityConfig{Matches: hasComponent("health")})
	if err := es.Init(rt); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if err := es.Destroy(); err != nil {
		t.Fatalf("Destroy failed: %v", err)
	}

	id, _ := rt.s.CreateEntity("", map[string]map[string]any{"health": nil})
	if es.Contains(id) {
		t.Error("destroyed system must not track new entities")
	}

	// Idempotent, including on a never-initialized system.
	if err := es.Destroy(); err != nil {
		t.Fatalf("second Destroy failed: %v", err)
	}
	if err := NewEntitySystem(EntityConfig{Matches: hasComponent("x")}).Destroy(); err != nil {
		t.Fatalf("Destroy on uninitialized system failed: %v", err)
	}
}

func TestNew_NoOpDefaults(t *testing.T) {
	rt := newTestRuntime()
	sys := New(Config{})

	if err := sys.Init(rt); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if err := sys.Update(0.1); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if err := sys.Process(); err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if err := sys.Destroy(); err != nil {
		t.Fatalf("Destroy failed: %v", err)
	}
}

func TestEventSystem_SubscribesDeclaredSubjects(t *testing.T) {
	rt := newTestRuntime()

	var got []any
	sys := NewEventSystem(EventConfig{
		Subjects: map[string]bus.Callback{
			"@health.~": func(args ...any) { got = append(got, args...) },
		},
	})
	if err := sys.Init(rt); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	rt.Publish("@health.~", 7)
	if !reflect.DeepEqual(got, []any{7}) {
		t.Errorf("delivered = %v, want [7]", got)
	}

	if err := sys.Destroy(); err != nil {
		t.Fatalf("Destroy failed: %v", err)
	}
	rt.Publish("@health.~", 8)
	if len(got) != 1 {
		t.Error("destroyed event system must not receive notifications")
	}
}
