package combat

import (
	"context"

	"areacloud/logging"
)

const (
	// EventDamage is emitted when a living entity loses health.
	EventDamage logging.EventType = "combat.damage"
	// EventHeal is emitted when a living entity regains health.
	EventHeal logging.EventType = "combat.heal"
	// EventDefeat is emitted when a living entity dies.
	EventDefeat logging.EventType = "combat.defeat"
)

// DamagePayload captures the amount dealt to a single target.
type DamagePayload struct {
	Effect       string  `json:"effect,omitempty"`
	Amount       float64 `json:"amount"`
	TargetHealth float64 `json:"targetHealth"`
}

// HealPayload captures the amount restored to a single target.
type HealPayload struct {
	Effect       string  `json:"effect,omitempty"`
	Amount       float64 `json:"amount"`
	TargetHealth float64 `json:"targetHealth"`
}

// DefeatPayload describes the context for a fatal blow.
type DefeatPayload struct {
	Effect string `json:"effect,omitempty"`
}

// Damage publishes a damage event. The actor is the attacker and may be
// empty when no owner is known.
func Damage(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, target logging.EntityRef, payload DamagePayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventDamage,
		Tick:     tick,
		Actor:    actor,
		Targets:  []logging.EntityRef{target},
		Severity: logging.SeverityInfo,
		Category: "combat",
		Payload:  payload,
	})
}

// Heal publishes a heal event.
func Heal(ctx context.Context, pub logging.Publisher, tick uint64, target logging.EntityRef, payload HealPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventHeal,
		Tick:     tick,
		Actor:    target,
		Severity: logging.SeverityDebug,
		Category: "combat",
		Payload:  payload,
	})
}

// Defeat publishes a defeat event for the eliminated target.
func Defeat(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, target logging.EntityRef, payload DefeatPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventDefeat,
		Tick:     tick,
		Actor:    actor,
		Targets:  []logging.EntityRef{target},
		Severity: logging.SeverityInfo,
		Category: "combat",
		Payload:  payload,
	})
}
