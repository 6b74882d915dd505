package cloud

// Phase is the lifecycle state of a cloud.
type Phase int

const (
	PhaseWaiting Phase = iota
	PhaseActive
	PhaseTerminated
)

func (p Phase) String() string {
	switch p {
	case PhaseWaiting:
		return "waiting"
	case PhaseActive:
		return "active"
	case PhaseTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Lifecycle derives the phase of a cloud from its age. Durations are signed
// so persisted negative values compare sanely.
type Lifecycle struct {
	WaitTicks     int32
	DurationTicks int32
}

// Waiting reports whether the cloud is still in its start-up delay.
func (l Lifecycle) Waiting(tick uint64) bool {
	return int64(tick) < int64(l.WaitTicks)
}

// Terminal reports whether the cloud has outlived its wait plus duration.
func (l Lifecycle) Terminal(tick uint64) bool {
	return int64(tick) >= int64(l.WaitTicks)+int64(l.DurationTicks)
}

// PhaseAt returns the phase at the given age.
func (l Lifecycle) PhaseAt(tick uint64) Phase {
	switch {
	case l.Terminal(tick):
		return PhaseTerminated
	case l.Waiting(tick):
		return PhaseWaiting
	default:
		return PhaseActive
	}
}
