package catalog

const (
	KindSpeed          = "speed"
	KindSlowness       = "slowness"
	KindHaste          = "haste"
	KindStrength       = "strength"
	KindInstantHealth  = "instant_health"
	KindInstantDamage  = "instant_damage"
	KindRegeneration   = "regeneration"
	KindResistance     = "resistance"
	KindFireResistance = "fire_resistance"
	KindPoison         = "poison"
	KindWither         = "wither"
	KindWeakness       = "weakness"
	KindAbsorption     = "absorption"
	KindInvisibility   = "invisibility"
)

const (
	ActionHeal   = "heal"
	ActionDamage = "damage"
)

// TagUndead marks targets that resist poison and regeneration and take
// inverted instant effects.
const TagUndead = "undead"

// DefaultKinds returns the built-in effect kinds.
func DefaultKinds() []KindDocument {
	return []KindDocument{
		{ID: KindSpeed, Beneficial: true, Color: 0x7CAFC6},
		{ID: KindSlowness, Color: 0x5A6C81},
		{ID: KindHaste, Beneficial: true, Color: 0xD9C043},
		{ID: KindStrength, Beneficial: true, Color: 0x932423},
		{
			ID:             KindInstantHealth,
			Instantaneous:  true,
			Beneficial:     true,
			Color:          0xF82423,
			UndeadInverted: true,
			Instant:        &InstantDocument{Action: ActionHeal, BaseAmount: 4},
		},
		{
			ID:             KindInstantDamage,
			Instantaneous:  true,
			Color:          0x430A09,
			UndeadInverted: true,
			Instant:        &InstantDocument{Action: ActionDamage, BaseAmount: 6},
		},
		{
			ID:         KindRegeneration,
			Beneficial: true,
			Color:      0xCD5CAB,
			ImmuneTags: []string{TagUndead},
			Periodic:   &PeriodicDocument{Action: ActionHeal, BaseInterval: 50, Amount: 1},
		},
		{ID: KindResistance, Beneficial: true, Color: 0x99453A},
		{ID: KindFireResistance, Beneficial: true, Color: 0xE49A3A},
		{
			ID:         KindPoison,
			Color:      0x4E9331,
			ImmuneTags: []string{TagUndead},
			Periodic:   &PeriodicDocument{Action: ActionDamage, BaseInterval: 25, Amount: 1, MinHealth: 1},
		},
		{
			ID:       KindWither,
			Color:    0x352A27,
			Periodic: &PeriodicDocument{Action: ActionDamage, BaseInterval: 40, Amount: 1},
		},
		{ID: KindWeakness, Color: 0x484D48},
		{ID: KindAbsorption, Beneficial: true, Color: 0x2552A5},
		{ID: KindInvisibility, Beneficial: true, Color: 0x7F8392},
	}
}
