package catalog

// PeriodicDocument configures the recurring action of a duration effect.
// The action fires when the remaining duration is a multiple of
// BaseInterval shifted right by the amplifier.
type PeriodicDocument struct {
	Action       string  `json:"action" jsonschema:"title=Action,enum=heal,enum=damage,description=Health change applied on each period"`
	BaseInterval int     `json:"baseInterval" jsonschema:"title=Base interval,minimum=1,description=Ticks between actions at amplifier 0"`
	Amount       float64 `json:"amount,omitempty" jsonschema:"title=Amount,description=Health delta per action (defaults to 1)"`
	MinHealth    float64 `json:"minHealth,omitempty" jsonschema:"title=Minimum health,description=Damage never lowers health below this floor"`
}

// InstantDocument configures the one-shot action of an instantaneous effect.
// The applied amount is proximity*(BaseAmount<<amplifier)+0.5 rounded down.
type InstantDocument struct {
	Action     string `json:"action" jsonschema:"title=Action,enum=heal,enum=damage"`
	BaseAmount int    `json:"baseAmount" jsonschema:"title=Base amount,minimum=1,description=Health delta at amplifier 0 and full proximity"`
}

// KindDocument represents a single effect kind as it appears on disk. The
// struct is exported so the schema generator can reflect over it.
type KindDocument struct {
	ID             string            `json:"id" jsonschema:"title=Effect kind id,description=Identifier referenced by cloud bundles.,pattern=^[a-z0-9_]+$,minLength=1,required"`
	Instantaneous  bool              `json:"instantaneous,omitempty" jsonschema:"title=Instantaneous,description=Applied once per scan instead of being tracked with a duration"`
	Beneficial     bool              `json:"beneficial,omitempty" jsonschema:"title=Beneficial"`
	Color          int32             `json:"color" jsonschema:"title=Color,description=Packed 0xRRGGBB colour used to tint clouds,minimum=0,maximum=16777215"`
	UndeadInverted bool              `json:"undeadInverted,omitempty" jsonschema:"title=Undead inverted,description=Heal and harm swap for undead targets"`
	ImmuneTags     []string          `json:"immuneTags,omitempty" jsonschema:"title=Immune tags,description=Targets carrying any of these tags cannot be affected"`
	Instant        *InstantDocument  `json:"instant,omitempty" jsonschema:"title=Instant action"`
	Periodic       *PeriodicDocument `json:"periodic,omitempty" jsonschema:"title=Periodic action"`
}

// FileDefinitions represents the contents of config/effects/kinds.json.
// The loader accepts either arrays or objects; the schema models the array
// format.
type FileDefinitions []KindDocument
