package world

import (
	"context"
	"slices"

	"github.com/google/uuid"

	"areacloud/internal/effects"
	"areacloud/internal/geom"
	"areacloud/logging"
)

const (
	DefaultLivingWidth  = 0.6
	DefaultLivingHeight = 1.8
	DefaultMaxHealth    = 20.0
)

// LivingConfig describes a living entity to spawn.
type LivingConfig struct {
	ID        uuid.UUID
	Position  geom.Vec3
	Width     float64
	Height    float64
	Health    float64
	MaxHealth float64
	Tags      []string
	// ImmuneToEffects marks entities that clouds never affect.
	ImmuneToEffects bool
}

// Living is a target with health and running effects.
type Living struct {
	id        uuid.UUID
	position  geom.Vec3
	width     float64
	height    float64
	health    float64
	maxHealth float64
	tags      []string
	immune    bool
	tracker   *effects.Tracker
	removed   bool
	seq       uint64

	lastAttacker uuid.UUID
	world        *World
}

func newLiving(cfg LivingConfig, seq uint64, w *World) *Living {
	if cfg.ID == uuid.Nil {
		cfg.ID = uuid.New()
	}
	if cfg.Width <= 0 {
		cfg.Width = DefaultLivingWidth
	}
	if cfg.Height <= 0 {
		cfg.Height = DefaultLivingHeight
	}
	if cfg.MaxHealth <= 0 {
		cfg.MaxHealth = DefaultMaxHealth
	}
	if cfg.Health <= 0 || cfg.Health > cfg.MaxHealth {
		cfg.Health = cfg.MaxHealth
	}
	return &Living{
		id:        cfg.ID,
		position:  cfg.Position,
		width:     cfg.Width,
		height:    cfg.Height,
		health:    cfg.Health,
		maxHealth: cfg.MaxHealth,
		tags:      slices.Clone(cfg.Tags),
		immune:    cfg.ImmuneToEffects,
		tracker:   effects.NewTracker(),
		seq:       seq,
		world:     w,
	}
}

// ID returns the stable identity.
func (l *Living) ID() uuid.UUID {
	return l.id
}

// Position returns the feet position.
func (l *Living) Position() geom.Vec3 {
	return l.position
}

// Bounds returns the entity hitbox.
func (l *Living) Bounds() geom.AABB {
	return geom.Cylinder(l.position, l.width/2, l.height)
}

// Alive reports whether the entity has health and is still in the world.
func (l *Living) Alive() bool {
	return l != nil && !l.removed && l.health > 0
}

// AffectedByEffects reports whether clouds may target the entity.
func (l *Living) AffectedByEffects() bool {
	return !l.immune
}

// Tags returns the classification tags such as "undead".
func (l *Living) Tags() []string {
	return l.tags
}

// HasTag reports whether the entity carries tag.
func (l *Living) HasTag(tag string) bool {
	return slices.Contains(l.tags, tag)
}

// Health returns current health.
func (l *Living) Health() float64 {
	return l.health
}

// MaxHealth returns the health cap.
func (l *Living) MaxHealth() float64 {
	return l.maxHealth
}

// LastAttacker returns the id of the most recent attributed damage source.
func (l *Living) LastAttacker() uuid.UUID {
	return l.lastAttacker
}

// Effects exposes the running effects.
func (l *Living) Effects() *effects.Tracker {
	return l.tracker
}

// Ref returns the event log reference of the entity.
func (l *Living) Ref() logging.EntityRef {
	return logging.EntityRef{ID: l.id.String(), Kind: logging.EntityKindLiving}
}

// AddEffect merges a duration entry into the running effects. Entries the
// entity is immune to are refused.
func (l *Living) AddEffect(ctx context.Context, entry effects.Entry, source uuid.UUID) bool {
	if !l.Alive() || !entry.AppliesTo(l.tags) {
		return false
	}
	if !l.tracker.Add(entry, source) {
		return false
	}
	if l.world != nil {
		l.world.effectApplied(ctx, l, entry, source)
	}
	return true
}

// Heal restores health up to the cap and returns the amount restored.
func (l *Living) Heal(amount float64) float64 {
	if !l.Alive() || amount <= 0 {
		return 0
	}
	next := min(l.health+amount, l.maxHealth)
	restored := next - l.health
	l.health = next
	return restored
}

// Damage removes health, never below floor, and records the attacker. It
// returns the amount removed.
func (l *Living) Damage(amount, floor float64, attacker uuid.UUID) float64 {
	if !l.Alive() || amount <= 0 {
		return 0
	}
	next := l.health - amount
	if next < floor {
		next = floor
	}
	if next >= l.health {
		return 0
	}
	dealt := l.health - next
	l.health = next
	if attacker != uuid.Nil {
		l.lastAttacker = attacker
	}
	return dealt
}
