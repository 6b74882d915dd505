// Package world hosts living entities and area-effect clouds, answers the
// spatial queries clouds issue, and applies the health side of every effect.
package world

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"areacloud/effects/catalog"
	"areacloud/internal/cloud"
	"areacloud/internal/effects"
	"areacloud/internal/geom"
	"areacloud/internal/telemetry"
	"areacloud/logging"
	loggingcloud "areacloud/logging/cloud"
	"areacloud/logging/combat"
	"areacloud/logging/status_effects"
)

const (
	metricTicks          = "world_ticks_total"
	metricClouds         = "world_clouds"
	metricLiving         = "world_living"
	metricInstantApplied = "world_instant_applied_total"
	metricDefeats        = "world_defeats_total"
)

// Config wires the collaborators of a world.
type Config struct {
	CellSize  float64
	Kinds     effects.KindResolver
	Publisher logging.Publisher
	Metrics   telemetry.Metrics
	// OnCloudPhase runs when a cloud stops waiting.
	OnCloudPhase func(c *cloud.Cloud, phase cloud.Phase)
}

// World owns every entity. It is not safe for concurrent use; the simulation
// loop is its only caller.
type World struct {
	cfg   Config
	pub   logging.Publisher
	index *SpatialIndex

	living      map[uuid.UUID]*Living
	livingOrder []*Living
	clouds      map[uuid.UUID]*cloud.Cloud
	cloudOrder  []*cloud.Cloud

	tick          uint64
	seq           uint64
	removedClouds []uuid.UUID
}

// New constructs an empty world. A nil kind resolver selects the built-in
// catalog.
func New(cfg Config) *World {
	if cfg.Kinds == nil {
		cfg.Kinds = catalog.Default()
	}
	pub := cfg.Publisher
	if pub == nil {
		pub = logging.NopPublisher{}
	}
	return &World{
		cfg:    cfg,
		pub:    pub,
		index:  NewSpatialIndex(cfg.CellSize),
		living: make(map[uuid.UUID]*Living),
		clouds: make(map[uuid.UUID]*cloud.Cloud),
	}
}

// Tick returns the number of completed steps.
func (w *World) Tick() uint64 {
	return w.tick
}

// Kinds returns the effect kind resolver.
func (w *World) Kinds() effects.KindResolver {
	return w.cfg.Kinds
}

// SpawnLiving adds a living entity.
func (w *World) SpawnLiving(cfg LivingConfig) *Living {
	w.seq++
	l := newLiving(cfg, w.seq, w)
	if existing, ok := w.living[l.id]; ok {
		existing.removed = true
	}
	w.living[l.id] = l
	w.livingOrder = append(w.livingOrder, l)
	w.index.Upsert(l.id, l.Bounds())
	return l
}

// SpawnCloud places an authoritative cloud hosted by this world.
func (w *World) SpawnCloud(ctx context.Context, cfg cloud.Config) *cloud.Cloud {
	c := cloud.New(cfg, w.cloudDeps())
	w.addCloud(c)
	loggingcloud.Spawned(ctx, w.pub, w.tick, c.Ref(), loggingcloud.SpawnedPayload{
		Radius:        c.Radius(),
		WaitTicks:     c.Lifecycle().WaitTicks,
		DurationTicks: c.Lifecycle().DurationTicks,
		Effects:       c.Bundle().Len(),
	})
	return c
}

func (w *World) cloudDeps() cloud.Deps {
	return cloud.Deps{
		Host:          w,
		Publisher:     w.pub,
		OnPhaseChange: w.cfg.OnCloudPhase,
	}
}

func (w *World) addCloud(c *cloud.Cloud) {
	if existing, ok := w.clouds[c.ID()]; ok && !existing.Removed() {
		existing.Remove(context.Background())
	}
	w.clouds[c.ID()] = c
	w.cloudOrder = append(w.cloudOrder, c)
}

// Living looks up a living entity that is still alive.
func (w *World) Living(id uuid.UUID) (*Living, bool) {
	l, ok := w.living[id]
	if !ok || !l.Alive() {
		return nil, false
	}
	return l, true
}

// Cloud looks up a cloud that has not been discarded.
func (w *World) Cloud(id uuid.UUID) (*cloud.Cloud, bool) {
	c, ok := w.clouds[id]
	if !ok || c.Removed() {
		return nil, false
	}
	return c, true
}

// LivingEntities returns the live entities in spawn order.
func (w *World) LivingEntities() []*Living {
	out := make([]*Living, 0, len(w.livingOrder))
	for _, l := range w.livingOrder {
		if l.Alive() {
			out = append(out, l)
		}
	}
	return out
}

// Clouds returns the clouds still in the world in spawn order.
func (w *World) Clouds() []*cloud.Cloud {
	out := make([]*cloud.Cloud, 0, len(w.cloudOrder))
	for _, c := range w.cloudOrder {
		if !c.Removed() {
			out = append(out, c)
		}
	}
	return out
}

// MoveLiving teleports a living entity.
func (w *World) MoveLiving(id uuid.UUID, pos geom.Vec3) bool {
	l, ok := w.Living(id)
	if !ok {
		return false
	}
	l.position = pos
	w.index.Upsert(l.id, l.Bounds())
	return true
}

// Remove takes an entity out of the world. Removal during a step is deferred
// until the step completes.
func (w *World) Remove(ctx context.Context, id uuid.UUID) bool {
	if c, ok := w.Cloud(id); ok {
		c.Remove(ctx)
		return true
	}
	if l, ok := w.Living(id); ok {
		w.removeLiving(l)
		return true
	}
	return false
}

func (w *World) removeLiving(l *Living) {
	l.removed = true
	w.index.Remove(l.id)
}

// QueryLiving returns the live entities whose hitbox intersects region and
// that satisfy predicate, in ascending spawn order.
func (w *World) QueryLiving(region geom.AABB, predicate func(*Living) bool) []*Living {
	ids := w.index.Query(region)
	if len(ids) == 0 {
		return nil
	}
	out := make([]*Living, 0, len(ids))
	for _, id := range ids {
		l, ok := w.living[id]
		if !ok || !l.Alive() || !region.Intersects(l.Bounds()) {
			continue
		}
		if predicate != nil && !predicate(l) {
			continue
		}
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

// QueryTargets implements cloud.Host.
func (w *World) QueryTargets(region geom.AABB, filter func(cloud.Target) bool) []cloud.Target {
	var predicate func(*Living) bool
	if filter != nil {
		predicate = func(l *Living) bool { return filter(l) }
	}
	found := w.QueryLiving(region, predicate)
	if len(found) == 0 {
		return nil
	}
	out := make([]cloud.Target, len(found))
	for i, l := range found {
		out[i] = l
	}
	return out
}

// ResolveTarget implements cloud.Host. Missing entities yield a nil
// interface, never a typed nil.
func (w *World) ResolveTarget(id uuid.UUID) (cloud.Target, bool) {
	l, ok := w.Living(id)
	if !ok {
		return nil, false
	}
	return l, true
}

// ApplyInstant implements cloud.Host. Undead targets take the inverse of
// kinds flagged UndeadInverted. Damage is attributed to the owner when one
// is present.
func (w *World) ApplyInstant(ctx context.Context, app cloud.InstantApplication) {
	if app.Target == nil {
		return
	}
	target, ok := w.Living(app.Target.ID())
	if !ok {
		return
	}
	kind := app.Entry.Kind
	if kind.Instant == nil {
		return
	}
	amount := kind.InstantAmount(app.Entry.Amplifier, app.Proximity)
	action := kind.Instant.Action
	if kind.UndeadInverted && target.HasTag(catalog.TagUndead) {
		action = invert(action)
	}
	var attacker logging.EntityRef
	attackerID := uuid.Nil
	if app.Owner != nil {
		attackerID = app.Owner.ID()
		attacker = logging.EntityRef{ID: attackerID.String(), Kind: logging.EntityKindLiving}
	}
	w.metric(metricInstantApplied, 1)
	switch action {
	case catalog.ActionHeal:
		w.heal(ctx, target, amount, kind.ID)
	case catalog.ActionDamage:
		w.damage(ctx, target, amount, 0, attackerID, attacker, kind.ID)
	}
}

func invert(action string) string {
	switch action {
	case catalog.ActionHeal:
		return catalog.ActionDamage
	case catalog.ActionDamage:
		return catalog.ActionHeal
	default:
		return action
	}
}

// Discard implements cloud.Host. The cloud has already marked itself
// removed; the world forgets it at the end of the step.
func (w *World) Discard(_ context.Context, id uuid.UUID, _ string) {
	w.removedClouds = append(w.removedClouds, id)
}

// DrainRemovedClouds returns the ids discarded since the previous call.
func (w *World) DrainRemovedClouds() []uuid.UUID {
	removed := w.removedClouds
	w.removedClouds = nil
	return removed
}

// Step advances the world by one tick: running effects first, then clouds,
// all in spawn order.
func (w *World) Step(ctx context.Context) {
	for _, l := range w.livingOrder {
		if !l.Alive() {
			continue
		}
		w.tickEffects(ctx, l)
	}
	for _, c := range w.cloudOrder {
		c.Step(ctx)
	}
	w.compact()
	w.tick++
	w.metric(metricTicks, 1)
	w.store(metricClouds, uint64(len(w.cloudOrder)))
	w.store(metricLiving, uint64(len(w.livingOrder)))
}

func (w *World) tickEffects(ctx context.Context, l *Living) {
	expired := l.tracker.Tick(func(inst effects.Instance) {
		periodic := inst.Kind.Periodic
		if periodic == nil || !l.Alive() {
			return
		}
		switch periodic.Action {
		case catalog.ActionHeal:
			w.heal(ctx, l, periodic.Amount, inst.Kind.ID)
		case catalog.ActionDamage:
			w.damage(ctx, l, periodic.Amount, periodic.MinHealth, uuid.Nil, logging.EntityRef{}, inst.Kind.ID)
		}
	})
	for _, inst := range expired {
		status_effects.Expired(ctx, w.pub, w.tick, l.Ref(), status_effects.ExpiredPayload{StatusEffect: inst.Kind.ID})
	}
}

func (w *World) heal(ctx context.Context, l *Living, amount float64, effect string) {
	restored := l.Heal(amount)
	if restored <= 0 {
		return
	}
	combat.Heal(ctx, w.pub, w.tick, l.Ref(), combat.HealPayload{Effect: effect, Amount: restored, TargetHealth: l.health})
}

func (w *World) damage(ctx context.Context, l *Living, amount, floor float64, attackerID uuid.UUID, attacker logging.EntityRef, effect string) {
	dealt := l.Damage(amount, floor, attackerID)
	if dealt <= 0 {
		return
	}
	combat.Damage(ctx, w.pub, w.tick, attacker, l.Ref(), combat.DamagePayload{Effect: effect, Amount: dealt, TargetHealth: l.health})
	if l.health > 0 {
		return
	}
	w.removeLiving(l)
	w.metric(metricDefeats, 1)
	combat.Defeat(ctx, w.pub, w.tick, attacker, l.Ref(), combat.DefeatPayload{Effect: effect})
}

func (w *World) effectApplied(ctx context.Context, l *Living, entry effects.Entry, source uuid.UUID) {
	status_effects.Applied(ctx, w.pub, w.tick, logging.EntityRef{ID: source.String(), Kind: logging.EntityKindCloud}, l.Ref(), status_effects.AppliedPayload{
		StatusEffect:  entry.Kind.ID,
		SourceID:      source.String(),
		Amplifier:     entry.Amplifier,
		DurationTicks: entry.Duration,
	})
}

func (w *World) compact() {
	livingKept := w.livingOrder[:0]
	for _, l := range w.livingOrder {
		if l.removed || l.health <= 0 {
			if w.living[l.id] == l {
				delete(w.living, l.id)
				w.index.Remove(l.id)
			}
			continue
		}
		livingKept = append(livingKept, l)
	}
	clear(w.livingOrder[len(livingKept):])
	w.livingOrder = livingKept

	cloudsKept := w.cloudOrder[:0]
	for _, c := range w.cloudOrder {
		if c.Removed() {
			if w.clouds[c.ID()] == c {
				delete(w.clouds, c.ID())
			}
			continue
		}
		cloudsKept = append(cloudsKept, c)
	}
	clear(w.cloudOrder[len(cloudsKept):])
	w.cloudOrder = cloudsKept
}

func (w *World) metric(key string, delta uint64) {
	if w.cfg.Metrics != nil {
		w.cfg.Metrics.Add(key, delta)
	}
}

func (w *World) store(key string, value uint64) {
	if w.cfg.Metrics != nil {
		w.cfg.Metrics.Store(key, value)
	}
}
