package script_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeel/simwire/internal/script"
	"github.com/dkeel/simwire/internal/system"
	"github.com/dkeel/simwire/internal/world"
)

func TestLoadSource_PlainSystem(t *testing.T) {
	const src = `
ticks = 0
total = 0

function update(dt)
	ticks = ticks + 1
	total = total + dt
	world.publish("game.tick.!", ticks)
end
`
	w := world.New()
	defer w.Close() //nolint:errcheck

	sys, err := script.LoadSource("ticker", src)
	require.NoError(t, err)

	var published []any
	w.Subscribe("game.tick.!", func(args ...any) {
		published = append(published, args...)
	})

	require.NoError(t, w.AddSystem("ticker", sys))
	require.NoError(t, w.Step(0.05))
	require.NoError(t, w.Step(0.05))

	assert.Equal(t, []any{int64(1), int64(2)}, published)
}

func TestLoadSource_WorldAPI(t *testing.T) {
	const src = `
function init()
	local id = world.spawn("player", { health = { hp = 110 } })
	world.add_component(id, "mana", { mp = 50 })
	world.set_component(id, "health", "hp", 100)
end
`
	w := world.New()
	defer w.Close() //nolint:errcheck

	sys, err := script.LoadSource("bootstrap", src)
	require.NoError(t, err)
	require.NoError(t, w.AddSystem("bootstrap", sys))

	id, ok := w.GetEntity("player")
	require.True(t, ok)

	hp, ok := w.GetComponentField(id, "health", "hp")
	require.True(t, ok)
	assert.EqualValues(t, 100, hp)

	assert.True(t, w.HasComponent(id, "mana"))
}

func TestLoadSource_EntitySystem(t *testing.T) {
	const src = `
function matches(id)
	return world.has_component(id, "burning")
end

function update_entity(id, dt)
	local hp = world.get_component(id, "health", "hp")
	world.set_component(id, "health", "hp", hp - 1)
end
`
	w := world.New()
	defer w.Close() //nolint:errcheck

	sys, err := script.LoadSource("burn", src)
	require.NoError(t, err)

	es, ok := sys.(*system.EntitySystem)
	require.True(t, ok, "a script with matches() builds an entity system")

	require.NoError(t, w.AddSystem("burn", sys))

	victim, err := w.CreateEntity("", map[string]map[string]any{
		"health":  {"hp": 10},
		"burning": nil,
	})
	require.NoError(t, err)
	bystander, err := w.CreateEntity("", map[string]map[string]any{
		"health": {"hp": 10},
	})
	require.NoError(t, err)

	assert.True(t, es.Contains(victim))
	assert.False(t, es.Contains(bystander))

	require.NoError(t, w.Step(0.05))

	hp, _ := w.GetComponentField(victim, "health", "hp")
	assert.EqualValues(t, 9, hp)
	hp, _ = w.GetComponentField(bystander, "health", "hp")
	assert.EqualValues(t, 10, hp)
}

func TestLoadSource_GetComponentTable(t *testing.T) {
	const src = `
seen = nil

function process()
	local id = world.entity("chest")
	seen = world.get_component(id, "loot")
	world.set_component(id, "loot", { opened = true })
end
`
	w := world.New()
	defer w.Close() //nolint:errcheck

	_, err := w.CreateEntity("chest", map[string]map[string]any{
		"loot": {"gold": 25, "opened": false},
	})
	require.NoError(t, err)

	sys, err := script.LoadSource("looter", src)
	require.NoError(t, err)
	require.NoError(t, w.AddSystem("looter", sys))

	require.NoError(t, w.Step(0.05))

	id, _ := w.GetEntity("chest")
	opened, ok := w.GetComponentField(id, "loot", "opened")
	require.True(t, ok)
	assert.Equal(t, true, opened)
	gold, ok := w.GetComponentField(id, "loot", "gold")
	require.True(t, ok)
	assert.EqualValues(t, 25, gold)
}

func TestLoadSource_SyntaxError(t *testing.T) {
	_, err := script.LoadSource("broken", "function update(")
	assert.Error(t, err)
}

func TestLoadSource_DestroyHook(t *testing.T) {
	const src = `
function destroy()
	-- teardown runs exactly once on removal
end

function update(dt)
end
`
	w := world.New()

	sys, err := script.LoadSource("brief", src)
	require.NoError(t, err)
	require.NoError(t, w.AddSystem("brief", sys))
	require.NoError(t, w.RemoveSystem("brief"))
	require.NoError(t, w.Close())
}
