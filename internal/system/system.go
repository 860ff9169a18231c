package system

import (
	"errors"

	"github.com/dkeel/simwire/internal/bus"
	"github.com/dkeel/simwire/internal/store"
)

// ErrUnimplemented is returned when a behavior unit is invoked without
// a hook its flavor requires (an entity system without a Matches
// predicate, for example).
var ErrUnimplemented = errors.New("required behavior hook not implemented")

// Runtime is the world surface a behavior unit runs against. It is
// implemented by world.World; units hold it from Init to Destroy.
type Runtime interface {
	// State returns the world's entity/component store.
	State() *store.Store

	// Events returns the world's notification bus.
	Events() *bus.Bus

	// Subscribe registers cb on the parsed subject.
	Subscribe(subj string, cb bus.Callback) *bus.Subscription

	// Unsubscribe removes a subscription; idempotent.
	Unsubscribe(sub *bus.Subscription)

	// Publish parses the subject and delivers args to its subscribers.
	Publish(subj string, args ...any)
}

// System is the capability interface every behavior unit implements.
type System interface {
	// Init runs once when the unit is added to a world.
	Init(rt Runtime) error

	// Destroy runs once when the unit is removed from its world.
	Destroy() error

	// Update runs once per tick, during the world's first pass.
	Update(dt float64) error

	// Process runs once per tick, during the world's second pass.
	Process() error
}

// Config enumerates the hooks a plain behavior unit provides. Nil
// hooks become no-ops; there is no runtime field copying.
type Config struct {
	Init    func(rt Runtime) error
	Destroy func() error
	Update  func(dt float64) error
	Process func() error
}

// base is the unit built from a Config.
type base struct {
	cfg Config
	rt  Runtime
}

// New builds a behavior unit from cfg, supplying no-op defaults for
// absent hooks.
func New(cfg Config) System {
	return &base{cfg: cfg}
}

func (b *base) Init(rt Runtime) error {
	b.rt = rt
	if b.cfg.Init != nil {
		return b.cfg.Init(rt)
	}
	return nil
}

func (b *base) Destroy() error {
	if b.cfg.Destroy != nil {
		return b.cfg.Destroy()
	}
	return nil
}

func (b *base) Update(dt float64) error {
	if b.cfg.Update != nil {
		return b.cfg.Update(dt)
	}
	return nil
}

func (b *base) Process() error {
	if b.cfg.Process != nil {
		return b.cfg.Process()
	}
	return nil
}
