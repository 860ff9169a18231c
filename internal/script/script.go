// Package script runs Lua-authored behavior units. A script declares
// its hooks as global functions; the loader builds the matching
// behavior unit flavor around them.
//
// Recognized globals:
//
//	init()                   runs when the unit is added to a world
//	destroy()                runs when the unit is removed
//	update(dt)               runs during the update pass
//	process()                runs during the process pass
//	matches(id)              membership predicate; its presence makes
//	                         the unit an entity system
//	update_entity(id, dt)    per-member update hook (entity systems)
//	process_entity(id)       per-member process hook (entity systems)
//
// Scripts talk back through the global "world" table: spawn, destroy,
// add_component, set_component, get_component, has_component,
// remove_component, entity, entity_name, and publish.
package script

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"

	"github.com/dkeel/simwire/internal/store"
	"github.com/dkeel/simwire/internal/system"
)

// unit holds one script's Lua state and resolved hook functions. The
// state lives from load to Destroy and runs only on the world's
// execution thread.
type unit struct {
	L  *lua.LState
	rt system.Runtime

	init          *lua.LFunction
	destroy       *lua.LFunction
	update        *lua.LFunction
	process       *lua.LFunction
	matches       *lua.LFunction
	updateEntity  *lua.LFunction
	processEntity *lua.LFunction
}

// Load compiles and runs the script file, then builds a behavior unit
// around its declared hooks. Scripts declaring a matches function
// become entity systems.
func Load(path string) (system.System, error) {
	L := lua.NewState()
	if err := L.DoFile(path); err != nil {
		L.Close()
		return nil, fmt.Errorf("loading script %s: %w", path, err)
	}
	return build(L)
}

// LoadSource is Load for in-memory script source.
func LoadSource(name, source string) (system.System, error) {
	L := lua.NewState()
	if err := L.DoString(source); err != nil {
		L.Close()
		return nil, fmt.Errorf("loading script %s: %w", name, err)
	}
	return build(L)
}

func build(L *lua.LState) (system.System, error) {
	u := &unit{
		L:             L,
		init:          globalFn(L, "init"),
		destroy:       globalFn(L, "destroy"),
		update:        globalFn(L, "update"),
		process:       globalFn(L, "process"),
		matches:       globalFn(L, "matches"),
		updateEntity:  globalFn(L, "update_entity"),
		processEntity: globalFn(L, "process_entity"),
	}

	cfg := system.Config{
		Init:    u.onInit,
		Destroy: u.onDestroy,
		Update:  u.onUpdate,
		Process: u.onProcess,
	}

	if u.matches == nil {
		return system.New(cfg), nil
	}

	return system.NewEntitySystem(system.EntityConfig{
		Config:        cfg,
		Matches:       u.onMatches,
		UpdateEntity:  u.onUpdateEntity,
		ProcessEntity: u.onProcessEntity,
	}), nil
}

func globalFn(L *lua.LState, name string) *lua.LFunction {
	if fn, ok := L.GetGlobal(name).(*lua.LFunction); ok {
		return fn
	}
	return nil
}

func (u *unit) onInit(rt system.Runtime) error {
	u.rt = rt
	u.installAPI()
	if u.init == nil {
		return nil
	}
	return u.call(u.init, 0)
}

func (u *unit) onDestroy() error {
	var err error
	if u.destroy != nil {
		err = u.call(u.destroy, 0)
	}
	u.L.Close()
	return err
}

func (u *unit) onUpdate(dt float64) error {
	if u.update == nil {
		return nil
	}
	return u.call(u.update, 0, lua.LNumber(dt))
}

func (u *unit) onProcess() error {
	if u.process == nil {
		return nil
	}
	return u.call(u.process, 0)
}

func (u *unit) onMatches(_ *store.Store, id store.EntityID) bool {
	ret, err := u.call1(u.matches, lua.LNumber(id))
	if err != nil {
		return false
	}
	return lua.LVAsBool(ret)
}

func (u *unit) onUpdateEntity(_ *store.Store, id store.EntityID, dt float64) error {
	if u.updateEntity == nil {
		return nil
	}
	return u.call(u.updateEntity, 0, lua.LNumber(id), lua.LNumber(dt))
}

func (u *unit) onProcessEntity(_ *store.Store, id store.EntityID) error {
	if u.processEntity == nil {
		return nil
	}
	return u.call(u.processEntity, 0, lua.LNumber(id))
}

func (u *unit) call(fn *lua.LFunction, nret int, args ...lua.LValue) error {
	return u.L.CallByParam(lua.P{Fn: fn, NRet: nret, Protect: true}, args...)
}

func (u *unit) call1(fn *lua.LFunction, args ...lua.LValue) (lua.LValue, error) {
	if err := u.L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, args...); err != nil {
		return lua.LNil, err
	}
	ret := u.L.Get(-1)
	u.L.Pop(1)
	return ret, nil
}

// installAPI publishes the "world" table into the script's globals.
func (u *unit) installAPI() {
	L := u.L
	api := L.NewTable()

	L.SetFuncs(api, map[string]lua.LGFunction{
		"spawn":            u.apiSpawn,
		"destroy":          u.apiDestroy,
		"add_component":    u.apiAddComponent,
		"set_component":    u.apiSetComponent,
		"get_component":    u.apiGetComponent,
		"has_component":    u.apiHasComponent,
		"remove_component": u.apiRemoveComponent,
		"entity":           u.apiEntity,
		"entity_name":      u.apiEntityName,
		"publish":          u.apiPublish,
	})

	L.SetGlobal("world", api)
}

// apiSpawn: world.spawn([name], [components]) -> id
func (u *unit) apiSpawn(L *lua.LState) int {
	name := ""
	var compArg lua.LValue = lua.LNil
	switch L.GetTop() {
	case 0:
	case 1:
		if s, ok := L.Get(1).(lua.LString); ok {
			name = string(s)
		} else {
			compArg = L.Get(1)
		}
	default:
		name = L.CheckString(1)
		compArg = L.Get(2)
	}

	var components map[string]map[string]any
	if t, ok := compArg.(*lua.LTable); ok {
		components = make(map[string]map[string]any)
		t.ForEach(func(k, v lua.LValue) {
			components[k.String()] = tableToRecord(v)
		})
	}

	id, err := u.rt.State().CreateEntity(name, components)
	if err != nil {
		L.RaiseError("spawn: %v", err)
		return 0
	}
	L.Push(lua.LNumber(id))
	return 1
}

func (u *unit) apiDestroy(L *lua.LState) int {
	id := store.EntityID(L.CheckNumber(1))
	if err := u.rt.State().DestroyEntity(id); err != nil {
		L.RaiseError("destroy: %v", err)
	}
	return 0
}

func (u *unit) apiAddComponent(L *lua.LState) int {
	id := store.EntityID(L.CheckNumber(1))
	name := L.CheckString(2)
	var data map[string]any
	if L.GetTop() >= 3 {
		data = tableToRecord(L.Get(3))
	}
	if err := u.rt.State().AddComponent(id, name, data); err != nil {
		L.RaiseError("add_component: %v", err)
	}
	return 0
}

// apiSetComponent: world.set_component(id, name, patch_table) or
// world.set_component(id, name, key, value)
func (u *unit) apiSetComponent(L *lua.LState) int {
	id := store.EntityID(L.CheckNumber(1))
	name := L.CheckString(2)

	var err error
	if t, ok := L.Get(3).(*lua.LTable); ok {
		err = u.rt.State().SetComponent(id, name, tableToRecord(t))
	} else {
		key := L.CheckString(3)
		err = u.rt.State().SetComponentField(id, name, key, toGoValue(L.Get(4)))
	}
	if err != nil {
		L.RaiseError("set_component: %v", err)
	}
	return 0
}

// apiGetComponent: world.get_component(id, name, [key]) -> value|nil
func (u *unit) apiGetComponent(L *lua.LState) int {
	id := store.EntityID(L.CheckNumber(1))
	name := L.CheckString(2)

	if L.GetTop() >= 3 {
		field, ok := u.rt.State().GetComponentField(id, name, L.CheckString(3))
		if !ok {
			L.Push(lua.LNil)
			return 1
		}
		L.Push(toLuaValue(L, field))
		return 1
	}

	value, ok := u.rt.State().GetComponent(id, name)
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(toLuaValue(L, value))
	return 1
}

func (u *unit) apiHasComponent(L *lua.LState) int {
	id := store.EntityID(L.CheckNumber(1))
	L.Push(lua.LBool(u.rt.State().HasComponent(id, L.CheckString(2))))
	return 1
}

func (u *unit) apiRemoveComponent(L *lua.LState) int {
	id := store.EntityID(L.CheckNumber(1))
	if err := u.rt.State().RemoveComponent(id, L.CheckString(2)); err != nil {
		L.RaiseError("remove_component: %v", err)
	}
	return 0
}

func (u *unit) apiEntity(L *lua.LState) int {
	id, ok := u.rt.State().EntityByName(L.CheckString(1))
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(lua.LNumber(id))
	return 1
}

func (u *unit) apiEntityName(L *lua.LState) int {
	name, ok := u.rt.State().EntityName(store.EntityID(L.CheckNumber(1)))
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(lua.LString(name))
	return 1
}

func (u *unit) apiPublish(L *lua.LState) int {
	subj := L.CheckString(1)
	args := make([]any, 0, L.GetTop()-1)
	for i := 2; i <= L.GetTop(); i++ {
		args = append(args, toGoValue(L.Get(i)))
	}
	u.rt.Publish(subj, args...)
	return 0
}
