// Package scenario loads declarative world bootstrap files: world
// options, entity blueprints with component data, and script system
// references. Files may be TOML or YAML; the decoder is chosen by
// extension.
package scenario

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/dkeel/simwire/internal/store"
	"github.com/dkeel/simwire/internal/world"
)

// ErrUnsupportedFormat is returned for scenario files whose extension
// is neither TOML nor YAML.
var ErrUnsupportedFormat = errors.New("unsupported scenario format")

// Scenario is a declarative world bootstrap.
type Scenario struct {
	World    WorldConfig `toml:"world" yaml:"world"`
	Entities []EntityDef `toml:"entities" yaml:"entities"`
	Scripts  []ScriptDef `toml:"scripts" yaml:"scripts"`
}

// WorldConfig carries world-level options.
type WorldConfig struct {
	// Notify controls lifecycle notification publishing after the
	// scenario is applied. Defaults to on.
	Notify *bool `toml:"notify" yaml:"notify"`
}

// EntityDef is one entity blueprint.
type EntityDef struct {
	// Name optionally binds a unique entity name.
	Name string `toml:"name" yaml:"name"`

	// Components maps component name to its initial record. An empty
	// record attaches the component with the bare sentinel.
	Components map[string]map[string]any `toml:"components" yaml:"components"`
}

// ScriptDef references a Lua behavior unit to register.
type ScriptDef struct {
	Name string `toml:"name" yaml:"name"`
	Path string `toml:"path" yaml:"path"`
}

// Load reads and decodes a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario %s: %w", path, err)
	}
	return Decode(data, filepath.Ext(path))
}

// Decode parses scenario data in the format implied by ext
// (".toml", ".yaml", or ".yml").
func Decode(data []byte, ext string) (*Scenario, error) {
	var sc Scenario
	switch strings.ToLower(ext) {
	case ".toml":
		if err := toml.Unmarshal(data, &sc); err != nil {
			return nil, fmt.Errorf("parsing TOML scenario: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &sc); err != nil {
			return nil, fmt.Errorf("parsing YAML scenario: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	return &sc, nil
}

// ApplyOption configures Apply.
type ApplyOption func(*applyConfig)

type applyConfig struct {
	silent bool
}

// Silent suppresses lifecycle notifications while the scenario's
// entities are created, restoring the previous setting afterwards.
func Silent() ApplyOption {
	return func(c *applyConfig) {
		c.silent = true
	}
}

// Apply creates the scenario's entities on w, in declaration order,
// and applies world options. Script registration is left to the
// caller. Returns the created entity ids in declaration order.
func (sc *Scenario) Apply(w *world.World, opts ...ApplyOption) ([]store.EntityID, error) {
	var cfg applyConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.silent {
		prev := w.State().Notify()
		w.SetNotify(false)
		defer w.SetNotify(prev)
	}

	ids := make([]store.EntityID, 0, len(sc.Entities))
	for _, def := range sc.Entities {
		id, err := w.CreateEntity(def.Name, normalizeComponents(def.Components))
		if err != nil {
			return ids, fmt.Errorf("creating entity %q: %w", def.Name, err)
		}
		ids = append(ids, id)
	}

	if sc.World.Notify != nil {
		w.SetNotify(*sc.World.Notify)
	}
	return ids, nil
}

// normalizeComponents coerces decoded records to the store's value
// shape. YAML decodes nested maps as map[string]any already; TOML
// yields map[string]any too, but nested any values may themselves be
// maps with interface keys from YAML merges, so normalize one level.
func normalizeComponents(components map[string]map[string]any) map[string]map[string]any {
	if components == nil {
		return nil
	}
	out := make(map[string]map[string]any, len(components))
	for name, rec := range components {
		if len(rec) == 0 {
			// Attach with the bare sentinel.
			out[name] = nil
			continue
		}
		norm := make(map[string]any, len(rec))
		for k, v := range rec {
			norm[k] = normalizeValue(v)
		}
		out[name] = norm
	}
	return out
}

func normalizeValue(v any) any {
	switch val := v.(type) {
	case map[any]any:
		m := make(map[string]any, len(val))
		for k, inner := range val {
			m[fmt.Sprintf("%v", k)] = normalizeValue(inner)
		}
		return m
	case map[string]any:
		m := make(map[string]any, len(val))
		for k, inner := range val {
			m[k] = normalizeValue(inner)
		}
		return m
	case []any:
		s := make([]any, len(val))
		for i, inner := range val {
			s[i] = normalizeValue(inner)
		}
		return s
	default:
		return v
	}
}
