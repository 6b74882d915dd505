package effects

import (
	"sort"

	"github.com/google/uuid"

	"areacloud/effects/catalog"
)

// Instance is a running duration effect owned by a living target.
type Instance struct {
	Kind      catalog.Kind
	Remaining int
	Amplifier int
	Ambient   bool
	SourceID  uuid.UUID
}

// Tracker holds the running effects of one target keyed by kind id.
type Tracker struct {
	running map[string]*Instance
}

// NewTracker constructs an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{running: make(map[string]*Instance)}
}

// Add starts or merges a duration effect and reports whether the tracker
// changed. A higher amplifier replaces the running instance; an equal
// amplifier with a longer duration extends it; anything else is ignored.
// Instantaneous entries are never tracked.
func (t *Tracker) Add(entry Entry, source uuid.UUID) bool {
	if t == nil || entry.Instantaneous || entry.Duration <= 0 || entry.Kind.ID == "" {
		return false
	}
	if t.running == nil {
		t.running = make(map[string]*Instance)
	}
	current, ok := t.running[entry.Kind.ID]
	if !ok {
		t.running[entry.Kind.ID] = &Instance{
			Kind:      entry.Kind,
			Remaining: entry.Duration,
			Amplifier: entry.Amplifier,
			Ambient:   entry.Ambient,
			SourceID:  source,
		}
		return true
	}
	switch {
	case entry.Amplifier > current.Amplifier:
		current.Amplifier = entry.Amplifier
		current.Remaining = entry.Duration
	case entry.Amplifier == current.Amplifier && entry.Duration > current.Remaining:
		current.Remaining = entry.Duration
	default:
		return false
	}
	current.Ambient = entry.Ambient
	current.SourceID = source
	return true
}

// Get returns a copy of the running instance for the kind.
func (t *Tracker) Get(kindID string) (Instance, bool) {
	if t == nil {
		return Instance{}, false
	}
	inst, ok := t.running[kindID]
	if !ok {
		return Instance{}, false
	}
	return *inst, true
}

// Has reports whether the kind is running.
func (t *Tracker) Has(kindID string) bool {
	_, ok := t.Get(kindID)
	return ok
}

// Len returns the number of running effects.
func (t *Tracker) Len() int {
	if t == nil {
		return 0
	}
	return len(t.running)
}

// Instances returns copies of every running effect sorted by kind id.
func (t *Tracker) Instances() []Instance {
	if t == nil || len(t.running) == 0 {
		return nil
	}
	out := make([]Instance, 0, len(t.running))
	for _, inst := range t.running {
		out = append(out, *inst)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Kind.ID < out[j].Kind.ID })
	return out
}

// Remove stops the running effect for the kind.
func (t *Tracker) Remove(kindID string) bool {
	if t == nil {
		return false
	}
	if _, ok := t.running[kindID]; !ok {
		return false
	}
	delete(t.running, kindID)
	return true
}

// Tick advances every running effect by one tick. fire is invoked for
// periodic kinds whose period elapses this tick, before the duration is
// decremented. Expired effects are removed and returned in kind id order.
func (t *Tracker) Tick(fire func(Instance)) []Instance {
	if t == nil || len(t.running) == 0 {
		return nil
	}
	ids := make([]string, 0, len(t.running))
	for id := range t.running {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var expired []Instance
	for _, id := range ids {
		inst := t.running[id]
		if fire != nil && inst.Kind.Fires(inst.Remaining, inst.Amplifier) {
			fire(*inst)
		}
		inst.Remaining--
		if inst.Remaining <= 0 {
			expired = append(expired, *inst)
		}
	}
	for _, inst := range expired {
		delete(t.running, inst.Kind.ID)
	}
	return expired
}
