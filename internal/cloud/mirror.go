package cloud

import (
	"math/rand"
	"slices"

	"github.com/google/uuid"

	"areacloud/internal/geom"
	"areacloud/internal/synced"
)

// NewMirror constructs an observing cloud that only changes through
// ApplyUpdates. Its Step emits cosmetic particles and never touches radius,
// ledger or effects.
func NewMirror(id uuid.UUID, position geom.Vec3, emitter Emitter, rng *rand.Rand) *Cloud {
	cfg := DefaultConfig()
	cfg.ID = id
	cfg.Position = position
	return newCloud(cfg, Deps{Emitter: emitter, RNG: rng}, synced.NewStore(false))
}

// ApplyUpdates installs replicated field values and runs the handlers of the
// fields that changed. It returns the changed field names.
func (c *Cloud) ApplyUpdates(updates []synced.Update) ([]string, error) {
	changed, err := c.store.Apply(updates)
	if slices.Contains(changed, FieldRadius) {
		c.refreshBounds()
	}
	return changed, err
}

func (c *Cloud) tickObserver() {
	emitParticles(
		c.deps.RNG,
		c.deps.Emitter,
		c.position,
		synced.Get(c.store, keyWaiting),
		synced.Get(c.store, keyRadius),
		synced.Get(c.store, keyParticle),
		synced.Get(c.store, keyColor),
	)
}
