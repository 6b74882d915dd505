package cloud

import "github.com/google/uuid"

// Ledger gates reapplication to each target by expiry tick. It is memory
// only; a reloaded cloud starts with an empty ledger.
type Ledger struct {
	delay   int32
	expires map[uuid.UUID]uint64
}

// NewLedger constructs a ledger with the given reapplication delay.
func NewLedger(delay int32) *Ledger {
	return &Ledger{delay: delay, expires: make(map[uuid.UUID]uint64)}
}

// Delay returns the reapplication delay in ticks.
func (l *Ledger) Delay() int32 {
	return l.delay
}

// SetDelay changes the delay for future marks.
func (l *Ledger) SetDelay(delay int32) {
	l.delay = delay
}

// Prune drops every entry whose expiry is at or before tick.
func (l *Ledger) Prune(tick uint64) {
	var expired []uuid.UUID
	for id, expiry := range l.expires {
		if expiry <= tick {
			expired = append(expired, id)
		}
	}
	for _, id := range expired {
		delete(l.expires, id)
	}
}

// Eligible reports whether the target has no pending cooldown.
func (l *Ledger) Eligible(id uuid.UUID) bool {
	_, gated := l.expires[id]
	return !gated
}

// MarkApplied records an application at tick, replacing any prior entry.
func (l *Ledger) MarkApplied(id uuid.UUID, tick uint64) {
	expiry := int64(tick) + int64(l.delay)
	if expiry < 0 {
		expiry = 0
	}
	l.expires[id] = uint64(expiry)
}

// Expiry returns the tick at which the target becomes eligible again.
func (l *Ledger) Expiry(id uuid.UUID) (uint64, bool) {
	expiry, ok := l.expires[id]
	return expiry, ok
}

// Clear drops every entry.
func (l *Ledger) Clear() {
	clear(l.expires)
}

// Len returns the number of gated targets.
func (l *Ledger) Len() int {
	return len(l.expires)
}
