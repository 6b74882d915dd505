package cloud

import (
	"math"

	"areacloud/internal/synced"
)

const (
	// MaxRadius bounds every radius write.
	MaxRadius float32 = 32
	// MinViableRadius is the survival threshold for radius steps.
	MinViableRadius float32 = 0.5
)

// Radius owns the synced radius field and its two mutation policies.
type Radius struct {
	store    *synced.Store
	perTick  float32
	onUse    float32
	onChange func(float32)
}

func newRadius(store *synced.Store, onChange func(float32)) *Radius {
	return &Radius{store: store, onChange: onChange}
}

// Value returns the synced radius.
func (r *Radius) Value() float32 {
	return synced.Get(r.store, keyRadius)
}

// Set clamps v to [0, MaxRadius] and writes it through the synced field. The
// change handler runs only when the stored value changed. NaN and writes on
// the observing side are ignored.
func (r *Radius) Set(v float32) {
	if !r.store.Authoritative() {
		return
	}
	clamped, ok := clampRadius(v)
	if !ok {
		return
	}
	if synced.Set(r.store, keyRadius, clamped) && r.onChange != nil {
		r.onChange(clamped)
	}
}

// Drift applies the per-tick change and reports whether the cloud survives.
func (r *Radius) Drift() bool {
	return r.step(r.perTick)
}

// UseStep applies the per-application change and reports whether the cloud
// survives.
func (r *Radius) UseStep() bool {
	return r.step(r.onUse)
}

func (r *Radius) step(delta float32) bool {
	if delta == 0 {
		return true
	}
	next := r.Value() + delta
	if next < MinViableRadius {
		return false
	}
	r.Set(next)
	return true
}

// clampRadius bounds v to [0, MaxRadius]. It reports false for NaN, which
// min and max would otherwise pass through.
func clampRadius(v float32) (float32, bool) {
	if math.IsNaN(float64(v)) {
		return 0, false
	}
	return min(max(v, 0), MaxRadius), true
}

// finite reports whether v is neither NaN nor an infinity.
func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
