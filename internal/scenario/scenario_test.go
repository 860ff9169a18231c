package scenario_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeel/simwire/internal/scenario"
	"github.com/dkeel/simwire/internal/store"
	"github.com/dkeel/simwire/internal/world"
)

const tomlScenario = `
[world]
notify = true

[[entities]]
name = "player"
[entities.components.health]
hp = 110
[entities.components.position]
x = 0
y = 0

[[entities]]
[entities.components.tag]

[[scripts]]
name = "regen"
path = "scripts/regen.lua"
`

const yamlScenario = `
world:
  notify: true
entities:
  - name: player
    components:
      health:
        hp: 110
      position:
        x: 0
        y: 0
  - components:
      tag: {}
scripts:
  - name: regen
    path: scripts/regen.lua
`

func TestDecode_TOML(t *testing.T) {
	sc, err := scenario.Decode([]byte(tomlScenario), ".toml")
	require.NoError(t, err)

	require.Len(t, sc.Entities, 2)
	assert.Equal(t, "player", sc.Entities[0].Name)
	assert.Contains(t, sc.Entities[0].Components, "health")
	assert.Contains(t, sc.Entities[0].Components, "position")

	require.Len(t, sc.Scripts, 1)
	assert.Equal(t, "regen", sc.Scripts[0].Name)
	assert.Equal(t, "scripts/regen.lua", sc.Scripts[0].Path)

	require.NotNil(t, sc.World.Notify)
	assert.True(t, *sc.World.Notify)
}

func TestDecode_YAML(t *testing.T) {
	sc, err := scenario.Decode([]byte(yamlScenario), ".yaml")
	require.NoError(t, err)

	require.Len(t, sc.Entities, 2)
	assert.Equal(t, "player", sc.Entities[0].Name)
	require.Len(t, sc.Scripts, 1)
}

func TestDecode_UnsupportedFormat(t *testing.T) {
	_, err := scenario.Decode([]byte("{}"), ".json")
	assert.ErrorIs(t, err, scenario.ErrUnsupportedFormat)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scenario.toml")
	require.NoError(t, os.WriteFile(path, []byte(tomlScenario), 0o644))

	sc, err := scenario.Load(path)
	require.NoError(t, err)
	assert.Len(t, sc.Entities, 2)

	_, err = scenario.Load(filepath.Join(dir, "missing.toml"))
	assert.Error(t, err)
}

func TestApply(t *testing.T) {
	sc, err := scenario.Decode([]byte(tomlScenario), ".toml")
	require.NoError(t, err)

	w := world.New()
	defer w.Close() //nolint:errcheck

	ids, err := sc.Apply(w)
	require.NoError(t, err)
	require.Len(t, ids, 2)

	player, ok := w.GetEntity("player")
	require.True(t, ok)
	assert.Equal(t, ids[0], player)

	hp, ok := w.GetComponentField(player, "health", "hp")
	require.True(t, ok)
	assert.EqualValues(t, 110, hp)

	// Empty component record attaches the bare sentinel.
	value, ok := w.GetComponent(ids[1], "tag")
	require.True(t, ok)
	assert.Equal(t, true, value)
}

func TestApply_Silent(t *testing.T) {
	sc, err := scenario.Decode([]byte(yamlScenario), ".yaml")
	require.NoError(t, err)

	w := world.New()
	defer w.Close() //nolint:errcheck

	hits := 0
	w.Subscribe(store.SubjectEntityCreated, func(args ...any) { hits++ })

	_, err = sc.Apply(w, scenario.Silent())
	require.NoError(t, err)
	assert.Zero(t, hits, "silent apply suppresses lifecycle notifications")

	// Notifications are restored afterwards.
	_, err = w.CreateEntity("", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, hits)
}

func TestApply_DuplicateNameFails(t *testing.T) {
	sc := &scenario.Scenario{
		Entities: []scenario.EntityDef{{Name: "dup"}, {Name: "dup"}},
	}

	w := world.New()
	defer w.Close() //nolint:errcheck

	_, err := sc.Apply(w)
	assert.ErrorIs(t, err, store.ErrDuplicateName)
}
