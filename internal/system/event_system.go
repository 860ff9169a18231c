package system

import (
	"sort"

	"github.com/dkeel/simwire/internal/bus"
)

// EventConfig declares an event system: a plain behavior unit whose
// subject -> callback table is subscribed automatically on Init and
// unsubscribed on Destroy.
type EventConfig struct {
	Config

	// Subjects maps subject strings to the callbacks to register on
	// them. Subscriptions are established in sorted subject order so
	// delivery among them is deterministic.
	Subjects map[string]bus.Callback
}

type eventSystem struct {
	base
	subjects map[string]bus.Callback
	subs     []*bus.Subscription
}

// NewEventSystem builds a behavior unit from cfg that manages its
// declared subscriptions across its lifecycle.
func NewEventSystem(cfg EventConfig) System {
	return &eventSystem{
		base:     base{cfg: cfg.Config},
		subjects: cfg.Subjects,
	}
}

func (e *eventSystem) Init(rt Runtime) error {
	subjects := make([]string, 0, len(e.subjects))
	for subj := range e.subjects {
		subjects = append(subjects, subj)
	}
	sort.Strings(subjects)

	for _, subj := range subjects {
		e.subs = append(e.subs, rt.Subscribe(subj, e.subjects[subj]))
	}
	return e.base.Init(rt)
}

func (e *eventSystem) Destroy() error {
	for _, sub := range e.subs {
		e.rt.Unsubscribe(sub)
	}
	e.subs = nil
	return e.base.Destroy()
}
