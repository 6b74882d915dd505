// Package cloud implements the lingering area-effect cloud: a circular region
// that waits, then periodically applies an effect bundle to living targets
// inside it, gated per target by a cooldown ledger, until its lifetime runs
// out or its radius or duration is used up.
package cloud

import (
	"context"
	"errors"
	"math/rand"

	"github.com/google/uuid"

	"areacloud/internal/effects"
	"areacloud/internal/geom"
	"areacloud/internal/synced"
	"areacloud/logging"
	loggingcloud "areacloud/logging/cloud"
)

const (
	// ScanInterval is the number of ticks between target scans.
	ScanInterval = 5
	// InstantProximity is the strength factor passed to instant effects.
	InstantProximity = 0.5
	// Height is the vertical extent of the cloud footprint.
	Height = 0.5

	DefaultRadius             float32 = 3
	DefaultDurationTicks      int32   = 600
	DefaultWaitTicks          int32   = 20
	DefaultReapplicationDelay int32   = 20
)

// Discard reasons reported to the host and the event log.
const (
	ReasonExpired     = "expired"
	ReasonShrunk      = "shrunk"
	ReasonRadiusSpent = "radius_spent"
	ReasonDuration    = "duration_spent"
	ReasonRemoved     = "removed"
)

var (
	keyRadius   = synced.NewKey[float32]("radius")
	keyColor    = synced.NewKey[int32]("color")
	keyWaiting  = synced.NewKey[bool]("waiting")
	keyParticle = synced.NewKey[Particle]("particle")
)

// FieldRadius and the other field names identify synced fields on the wire.
var (
	FieldRadius   = keyRadius.Name()
	FieldColor    = keyColor.Name()
	FieldWaiting  = keyWaiting.Name()
	FieldParticle = keyParticle.Name()
)

// ErrNotWaiting is returned when the start-up delay of a cloud that already
// became active is changed.
var ErrNotWaiting = errors.New("cloud: no longer waiting")

// Target is a living entity a cloud can affect.
type Target interface {
	ID() uuid.UUID
	Position() geom.Vec3
	Alive() bool
	AffectedByEffects() bool
	Tags() []string
	AddEffect(ctx context.Context, entry effects.Entry, source uuid.UUID) bool
}

// InstantApplication is handed to the host for every instantaneous entry.
// Owner is nil when the cloud has no live owner.
type InstantApplication struct {
	Entry     effects.Entry
	SourceID  uuid.UUID
	Owner     Target
	Target    Target
	Proximity float64
}

// Host is the world a cloud lives in.
type Host interface {
	QueryTargets(region geom.AABB, filter func(Target) bool) []Target
	ResolveTarget(id uuid.UUID) (Target, bool)
	ApplyInstant(ctx context.Context, app InstantApplication)
	Discard(ctx context.Context, id uuid.UUID, reason string)
}

// Config carries the spawn parameters of a cloud. Zero values select the
// defaults except for the three step fields, whose default is zero.
type Config struct {
	ID                 uuid.UUID
	Position           geom.Vec3
	Radius             float32
	DurationTicks      int32
	WaitTicks          int32
	ReapplicationDelay int32
	RadiusPerTick      float32
	RadiusOnUse        float32
	DurationOnUse      int32
	Bundle             effects.Bundle
	Particle           Particle
	OwnerID            uuid.UUID
}

// DefaultConfig returns the spawn parameters of a freshly placed cloud.
func DefaultConfig() Config {
	return Config{
		Radius:             DefaultRadius,
		DurationTicks:      DefaultDurationTicks,
		WaitTicks:          DefaultWaitTicks,
		ReapplicationDelay: DefaultReapplicationDelay,
		Particle:           DefaultParticle(),
	}
}

// Deps bundles the runtime collaborators of a cloud.
type Deps struct {
	Host      Host
	Publisher logging.Publisher
	// OnPhaseChange runs once per waiting flag flip, after the synced field
	// was written.
	OnPhaseChange func(c *Cloud, phase Phase)

	// Emitter and RNG drive the cosmetic output of an observing cloud.
	Emitter Emitter
	RNG     *rand.Rand
}

// Cloud is one area-effect cloud entity. A cloud is ticked from a single
// goroutine; it has no internal locking.
type Cloud struct {
	id       uuid.UUID
	position geom.Vec3
	age      uint64
	removed  bool

	life          Lifecycle
	durationOnUse int32
	radius        *Radius
	ledger        *Ledger
	bundle        effects.Bundle
	owner         ownerRef
	bounds        geom.AABB

	store *synced.Store
	deps  Deps
}

// New constructs an authoritative cloud. The radius is clamped to
// [0, MaxRadius]; a NaN radius selects DefaultRadius.
func New(cfg Config, deps Deps) *Cloud {
	return newCloud(cfg, deps, synced.NewStore(true))
}

func newCloud(cfg Config, deps Deps, store *synced.Store) *Cloud {
	if deps.Publisher == nil {
		deps.Publisher = logging.NopPublisher{}
	}
	id := cfg.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	particle := cfg.Particle
	if particle.Type == "" {
		particle = DefaultParticle()
	}
	c := &Cloud{
		id:       id,
		position: cfg.Position,
		life: Lifecycle{
			WaitTicks:     cfg.WaitTicks,
			DurationTicks: cfg.DurationTicks,
		},
		durationOnUse: cfg.DurationOnUse,
		ledger:        NewLedger(cfg.ReapplicationDelay),
		bundle:        cfg.Bundle,
		owner:         ownerRef{id: cfg.OwnerID},
		store:         store,
		deps:          deps,
	}
	c.radius = newRadius(store, func(float32) { c.refreshBounds() })
	c.SetRadiusPerTick(cfg.RadiusPerTick)
	c.SetRadiusOnUse(cfg.RadiusOnUse)

	radius, ok := clampRadius(cfg.Radius)
	if !ok {
		radius = DefaultRadius
	}
	synced.Define(store, keyRadius, radius)
	synced.Define(store, keyColor, cfg.Bundle.Color())
	synced.Define(store, keyWaiting, c.life.Waiting(0))
	synced.Define(store, keyParticle, particle)
	c.refreshBounds()
	return c
}

// ID returns the stable identity of the cloud.
func (c *Cloud) ID() uuid.UUID {
	return c.id
}

// Position returns the centre of the cloud's base.
func (c *Cloud) Position() geom.Vec3 {
	return c.position
}

// Age returns the number of ticks the cloud has lived.
func (c *Cloud) Age() uint64 {
	return c.age
}

// Removed reports whether the cloud has been discarded.
func (c *Cloud) Removed() bool {
	return c.removed
}

// Store exposes the synced fields for replication.
func (c *Cloud) Store() *synced.Store {
	return c.store
}

// Bounds returns the footprint box of the cloud.
func (c *Cloud) Bounds() geom.AABB {
	return c.bounds
}

// Radius returns the synced radius.
func (c *Cloud) Radius() float32 {
	return c.radius.Value()
}

// SetRadius clamps and writes the radius on the authoritative side.
func (c *Cloud) SetRadius(v float32) {
	c.radius.Set(v)
}

// Waiting returns the synced waiting flag.
func (c *Cloud) Waiting() bool {
	return synced.Get(c.store, keyWaiting)
}

// Color returns the synced tint.
func (c *Cloud) Color() int32 {
	return synced.Get(c.store, keyColor)
}

// Particle returns the synced particle selection.
func (c *Cloud) Particle() Particle {
	return synced.Get(c.store, keyParticle)
}

// Phase returns the lifecycle phase at the current age.
func (c *Cloud) Phase() Phase {
	if c.removed {
		return PhaseTerminated
	}
	return c.life.PhaseAt(c.age)
}

// Lifecycle returns the wait and duration configuration.
func (c *Cloud) Lifecycle() Lifecycle {
	return c.life
}

// Bundle returns the effects applied by the cloud.
func (c *Cloud) Bundle() effects.Bundle {
	return c.bundle
}

// Ledger exposes the cooldown ledger for inspection.
func (c *Cloud) Ledger() *Ledger {
	return c.ledger
}

// RadiusPerTick returns the passive radius drift.
func (c *Cloud) RadiusPerTick() float32 {
	return c.radius.perTick
}

// RadiusOnUse returns the radius change per application.
func (c *Cloud) RadiusOnUse() float32 {
	return c.radius.onUse
}

// DurationOnUse returns the duration change per application.
func (c *Cloud) DurationOnUse() int32 {
	return c.durationOnUse
}

// SetBundle replaces the effects and re-derives the synced tint.
func (c *Cloud) SetBundle(b effects.Bundle) {
	c.bundle = b
	synced.Set(c.store, keyColor, b.Color())
}

// SetParticle replaces the particle selection. Invalid particles are
// rejected.
func (c *Cloud) SetParticle(p Particle) error {
	if err := p.Validate(); err != nil {
		return err
	}
	synced.Set(c.store, keyParticle, p)
	return nil
}

// SetDurationTicks changes the active lifetime.
func (c *Cloud) SetDurationTicks(ticks int32) {
	c.life.DurationTicks = ticks
}

// SetWaitTicks changes the start-up delay of a waiting cloud. The waiting
// flag is recomputed by the next tick, which publishes the phase change. An
// active cloud keeps its delay and ErrNotWaiting is returned.
func (c *Cloud) SetWaitTicks(ticks int32) error {
	if !c.Waiting() {
		return ErrNotWaiting
	}
	c.life.WaitTicks = ticks
	return nil
}

// SetReapplicationDelay changes the cooldown used for future applications.
func (c *Cloud) SetReapplicationDelay(ticks int32) {
	c.ledger.SetDelay(ticks)
}

// SetRadiusPerTick changes the passive drift. Non-finite values are ignored.
func (c *Cloud) SetRadiusPerTick(v float32) {
	if finite(float64(v)) {
		c.radius.perTick = v
	}
}

// SetRadiusOnUse changes the per-application radius step. Non-finite values
// are ignored.
func (c *Cloud) SetRadiusOnUse(v float32) {
	if finite(float64(v)) {
		c.radius.onUse = v
	}
}

// SetDurationOnUse changes the per-application duration step.
func (c *Cloud) SetDurationOnUse(v int32) {
	c.durationOnUse = v
}

// OwnerID returns the stable owner identity, or uuid.Nil.
func (c *Cloud) OwnerID() uuid.UUID {
	return c.owner.id
}

// SetOwner records the owner handle and identity. A nil owner clears both.
func (c *Cloud) SetOwner(owner Target) {
	if owner == nil {
		c.owner = ownerRef{}
		return
	}
	c.owner = ownerRef{id: owner.ID(), cached: owner}
}

// Owner resolves the owner lazily through the host.
func (c *Cloud) Owner() Target {
	c.owner.cached = ResolveOwner(c.owner.cached, c.owner.id, c.deps.Host)
	return c.owner.cached
}

// Ref returns the event log reference of the cloud.
func (c *Cloud) Ref() logging.EntityRef {
	return logging.EntityRef{ID: c.id.String(), Kind: logging.EntityKindCloud}
}

// Remove discards the cloud on behalf of the host.
func (c *Cloud) Remove(ctx context.Context) {
	c.discard(ctx, ReasonRemoved)
}

// Step runs one tick and then advances the age of a cloud that is still in
// the world.
func (c *Cloud) Step(ctx context.Context) {
	if c.removed {
		return
	}
	if c.store.Authoritative() {
		c.tickAuthoritative(ctx)
	} else {
		c.tickObserver()
	}
	if !c.removed {
		c.age++
	}
}

func (c *Cloud) tickAuthoritative(ctx context.Context) {
	age := c.age
	if c.life.Terminal(age) {
		c.discard(ctx, ReasonExpired)
		return
	}

	waiting := c.life.Waiting(age)
	if synced.Set(c.store, keyWaiting, waiting) {
		c.phaseChanged(ctx, age, waiting)
	}
	if waiting {
		return
	}

	if !c.radius.Drift() {
		c.discard(ctx, ReasonShrunk)
		return
	}

	if age%ScanInterval != 0 {
		return
	}
	c.scan(ctx, age)
}

func (c *Cloud) scan(ctx context.Context, age uint64) {
	c.ledger.Prune(age)
	if c.bundle.Empty() {
		c.ledger.Clear()
		return
	}
	if c.deps.Host == nil {
		return
	}

	targetEffects := c.bundle.TargetEffects()
	candidates := c.deps.Host.QueryTargets(c.bounds, func(t Target) bool {
		return t.Alive()
	})
	center := c.position
	for _, target := range candidates {
		if c.removed {
			break
		}
		if !c.ledger.Eligible(target.ID()) {
			continue
		}
		if !target.AffectedByEffects() || !anyApplies(targetEffects, target.Tags()) {
			continue
		}
		r := float64(c.radius.Value())
		if center.PlanarDistanceSq(target.Position()) > r*r {
			continue
		}

		c.ledger.MarkApplied(target.ID(), age)
		c.applyTo(ctx, age, target, targetEffects)

		if !c.radius.UseStep() {
			c.discard(ctx, ReasonRadiusSpent)
			break
		}
		if c.durationOnUse != 0 {
			c.life.DurationTicks += c.durationOnUse
			if c.life.DurationTicks <= 0 {
				c.discard(ctx, ReasonDuration)
				break
			}
		}
	}
}

func (c *Cloud) applyTo(ctx context.Context, age uint64, target Target, targetEffects []effects.Entry) {
	owner := c.Owner()
	payload := loggingcloud.AppliedPayload{}
	for _, entry := range targetEffects {
		if entry.Instantaneous {
			c.deps.Host.ApplyInstant(ctx, InstantApplication{
				Entry:     entry,
				SourceID:  c.id,
				Owner:     owner,
				Target:    target,
				Proximity: InstantProximity,
			})
			payload.Instant++
			continue
		}
		if target.AddEffect(ctx, entry, c.id) {
			payload.Duration++
		}
	}
	payload.Radius = c.radius.Value()
	targetRef := logging.EntityRef{ID: target.ID().String(), Kind: logging.EntityKindLiving}
	loggingcloud.Applied(ctx, c.deps.Publisher, age, c.Ref(), targetRef, payload)
}

func anyApplies(entries []effects.Entry, tags []string) bool {
	for _, entry := range entries {
		if entry.AppliesTo(tags) {
			return true
		}
	}
	return false
}

func (c *Cloud) phaseChanged(ctx context.Context, age uint64, waiting bool) {
	phase := PhaseActive
	if waiting {
		phase = PhaseWaiting
	}
	loggingcloud.PhaseChanged(ctx, c.deps.Publisher, age, c.Ref(), loggingcloud.PhaseChangedPayload{Phase: phase.String()})
	if c.deps.OnPhaseChange != nil {
		c.deps.OnPhaseChange(c, phase)
	}
}

func (c *Cloud) discard(ctx context.Context, reason string) {
	if c.removed {
		return
	}
	c.removed = true
	loggingcloud.Discarded(ctx, c.deps.Publisher, c.age, c.Ref(), loggingcloud.DiscardedPayload{Reason: reason})
	if c.deps.Host != nil {
		c.deps.Host.Discard(ctx, c.id, reason)
	}
}

func (c *Cloud) refreshBounds() {
	c.bounds = geom.Cylinder(c.position, float64(c.radius.Value()), Height)
}
