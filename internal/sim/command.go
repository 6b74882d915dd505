package sim

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"

	"areacloud/internal/cloud"
	"areacloud/internal/effects"
	"areacloud/internal/geom"
	"areacloud/internal/world"
)

// CommandType enumerates the supported simulation commands.
type CommandType string

const (
	CommandSpawnCloud  CommandType = "SpawnCloud"
	CommandSpawnLiving CommandType = "SpawnLiving"
	CommandMove        CommandType = "Move"
	CommandRemove      CommandType = "Remove"
	CommandConfigure   CommandType = "ConfigureCloud"
)

// EffectSpec names a bundle entry by catalog kind.
type EffectSpec struct {
	Kind      string `json:"kind"`
	Duration  int    `json:"duration"`
	Amplifier int    `json:"amplifier"`
	Ambient   bool   `json:"ambient,omitempty"`
}

// SpawnCloudCommand places a cloud. Nil pointers select the defaults.
type SpawnCloudCommand struct {
	Position           geom.Vec3      `json:"position"`
	Radius             *float32       `json:"radius,omitempty"`
	DurationTicks      *int32         `json:"durationTicks,omitempty"`
	WaitTicks          *int32         `json:"waitTicks,omitempty"`
	ReapplicationDelay *int32         `json:"reapplicationDelay,omitempty"`
	RadiusPerTick      float32        `json:"radiusPerTick,omitempty"`
	RadiusOnUse        float32        `json:"radiusOnUse,omitempty"`
	DurationOnUse      int32          `json:"durationOnUse,omitempty"`
	Effects            []EffectSpec   `json:"effects,omitempty"`
	Color              *int32         `json:"color,omitempty"`
	Particle           cloud.Particle `json:"particle"`
	OwnerID            uuid.UUID      `json:"ownerId"`
}

// SpawnLivingCommand places a living entity.
type SpawnLivingCommand struct {
	ID        uuid.UUID `json:"id,omitempty"`
	Position  geom.Vec3 `json:"position"`
	Health    float64   `json:"health,omitempty"`
	MaxHealth float64   `json:"maxHealth,omitempty"`
	Tags      []string  `json:"tags,omitempty"`
	Immune    bool      `json:"immune,omitempty"`
}

// MoveCommand teleports a living entity.
type MoveCommand struct {
	EntityID uuid.UUID `json:"entityId"`
	Position geom.Vec3 `json:"position"`
}

// RemoveCommand takes an entity out of the world.
type RemoveCommand struct {
	EntityID uuid.UUID `json:"entityId"`
}

// ConfigureCloudCommand changes the parameters of a live cloud. Nil fields
// are left alone. A non-nil Effects replaces the bundle; an empty list clears
// it.
type ConfigureCloudCommand struct {
	CloudID            uuid.UUID       `json:"cloudId"`
	Radius             *float32        `json:"radius,omitempty"`
	DurationTicks      *int32          `json:"durationTicks,omitempty"`
	WaitTicks          *int32          `json:"waitTicks,omitempty"`
	ReapplicationDelay *int32          `json:"reapplicationDelay,omitempty"`
	RadiusPerTick      *float32        `json:"radiusPerTick,omitempty"`
	RadiusOnUse        *float32        `json:"radiusOnUse,omitempty"`
	DurationOnUse      *int32          `json:"durationOnUse,omitempty"`
	Effects            []EffectSpec    `json:"effects,omitempty"`
	Color              *int32          `json:"color,omitempty"`
	Particle           *cloud.Particle `json:"particle,omitempty"`
}

// Command represents an intent captured for processing on the next tick.
type Command struct {
	OriginTick  uint64                 `json:"originTick"`
	Type        CommandType            `json:"type"`
	SpawnCloud  *SpawnCloudCommand     `json:"spawnCloud,omitempty"`
	SpawnLiving *SpawnLivingCommand    `json:"spawnLiving,omitempty"`
	Move        *MoveCommand           `json:"move,omitempty"`
	Remove      *RemoveCommand         `json:"remove,omitempty"`
	Configure   *ConfigureCloudCommand `json:"configure,omitempty"`
}

// ErrMissingPayload is returned when a command lacks the payload its type
// requires.
var ErrMissingPayload = errors.New("sim: command payload missing")

// Validate checks that the command carries the payload its type requires.
func (c Command) Validate() error {
	var present bool
	switch c.Type {
	case CommandSpawnCloud:
		present = c.SpawnCloud != nil
	case CommandSpawnLiving:
		present = c.SpawnLiving != nil
	case CommandMove:
		present = c.Move != nil
	case CommandRemove:
		present = c.Remove != nil
	case CommandConfigure:
		present = c.Configure != nil
	default:
		return fmt.Errorf("sim: unknown command type %q", c.Type)
	}
	if !present {
		return fmt.Errorf("%w: %s", ErrMissingPayload, c.Type)
	}
	return nil
}

// CloudConfig resolves the command into spawn parameters. Unknown effect
// kinds fail the whole command.
func (s SpawnCloudCommand) CloudConfig(kinds effects.KindResolver) (cloud.Config, error) {
	cfg := cloud.DefaultConfig()
	cfg.Position = s.Position
	if s.Radius != nil {
		cfg.Radius = *s.Radius
	}
	if s.DurationTicks != nil {
		cfg.DurationTicks = *s.DurationTicks
	}
	if s.WaitTicks != nil {
		cfg.WaitTicks = *s.WaitTicks
	}
	if s.ReapplicationDelay != nil {
		cfg.ReapplicationDelay = *s.ReapplicationDelay
	}
	cfg.RadiusPerTick = s.RadiusPerTick
	cfg.RadiusOnUse = s.RadiusOnUse
	cfg.DurationOnUse = s.DurationOnUse
	cfg.OwnerID = s.OwnerID
	if s.Particle.Type != "" {
		if err := s.Particle.Validate(); err != nil {
			return cloud.Config{}, err
		}
		cfg.Particle = s.Particle
	}
	bundle, err := resolveBundle(s.Effects, kinds)
	if err != nil {
		return cloud.Config{}, err
	}
	cfg.Bundle = bundle
	if s.Color != nil {
		cfg.Bundle = cfg.Bundle.WithColor(*s.Color)
	}
	return cfg, nil
}

func resolveBundle(specs []EffectSpec, kinds effects.KindResolver) (effects.Bundle, error) {
	entries := make([]effects.Entry, 0, len(specs))
	for _, spec := range specs {
		kind, ok := kinds.Resolve(spec.Kind)
		if !ok {
			return effects.Bundle{}, fmt.Errorf("sim: unknown effect kind %q", spec.Kind)
		}
		entries = append(entries, effects.NewEntry(kind, spec.Duration, spec.Amplifier, spec.Ambient))
	}
	return effects.NewBundle(entries...), nil
}

// Apply validates every field against c before changing anything, so a
// rejected command leaves the cloud untouched.
func (s ConfigureCloudCommand) Apply(c *cloud.Cloud, kinds effects.KindResolver) error {
	for name, v := range map[string]*float32{
		"radius":        s.Radius,
		"radiusPerTick": s.RadiusPerTick,
		"radiusOnUse":   s.RadiusOnUse,
	} {
		if v != nil && (math.IsNaN(float64(*v)) || math.IsInf(float64(*v), 0)) {
			return fmt.Errorf("sim: configure: %s is not finite", name)
		}
	}
	for name, v := range map[string]*int32{
		"durationTicks":      s.DurationTicks,
		"waitTicks":          s.WaitTicks,
		"reapplicationDelay": s.ReapplicationDelay,
	} {
		if v != nil && *v < 0 {
			return fmt.Errorf("sim: configure: %s must not be negative", name)
		}
	}
	if s.WaitTicks != nil && !c.Waiting() {
		return fmt.Errorf("sim: configure: %w", cloud.ErrNotWaiting)
	}
	if s.Particle != nil {
		if err := s.Particle.Validate(); err != nil {
			return err
		}
	}
	bundle := c.Bundle()
	if s.Effects != nil {
		resolved, err := resolveBundle(s.Effects, kinds)
		if err != nil {
			return err
		}
		bundle = resolved
	}
	if s.Color != nil {
		bundle = bundle.WithColor(*s.Color)
	}

	if s.Effects != nil || s.Color != nil {
		c.SetBundle(bundle)
	}
	if s.Particle != nil {
		if err := c.SetParticle(*s.Particle); err != nil {
			return err
		}
	}
	if s.WaitTicks != nil {
		if err := c.SetWaitTicks(*s.WaitTicks); err != nil {
			return err
		}
	}
	if s.DurationTicks != nil {
		c.SetDurationTicks(*s.DurationTicks)
	}
	if s.ReapplicationDelay != nil {
		c.SetReapplicationDelay(*s.ReapplicationDelay)
	}
	if s.RadiusPerTick != nil {
		c.SetRadiusPerTick(*s.RadiusPerTick)
	}
	if s.RadiusOnUse != nil {
		c.SetRadiusOnUse(*s.RadiusOnUse)
	}
	if s.DurationOnUse != nil {
		c.SetDurationOnUse(*s.DurationOnUse)
	}
	if s.Radius != nil {
		c.SetRadius(*s.Radius)
	}
	return nil
}

// apply executes one command against the world.
func apply(ctx context.Context, w *world.World, cmd Command) error {
	if err := cmd.Validate(); err != nil {
		return err
	}
	switch cmd.Type {
	case CommandSpawnCloud:
		cfg, err := cmd.SpawnCloud.CloudConfig(w.Kinds())
		if err != nil {
			return err
		}
		w.SpawnCloud(ctx, cfg)
	case CommandSpawnLiving:
		spec := cmd.SpawnLiving
		w.SpawnLiving(world.LivingConfig{
			ID:              spec.ID,
			Position:        spec.Position,
			Health:          spec.Health,
			MaxHealth:       spec.MaxHealth,
			Tags:            spec.Tags,
			ImmuneToEffects: spec.Immune,
		})
	case CommandMove:
		if !w.MoveLiving(cmd.Move.EntityID, cmd.Move.Position) {
			return fmt.Errorf("sim: move: no living entity %s", cmd.Move.EntityID)
		}
	case CommandRemove:
		if !w.Remove(ctx, cmd.Remove.EntityID) {
			return fmt.Errorf("sim: remove: no entity %s", cmd.Remove.EntityID)
		}
	case CommandConfigure:
		c, ok := w.Cloud(cmd.Configure.CloudID)
		if !ok || c.Removed() {
			return fmt.Errorf("sim: configure: no cloud %s", cmd.Configure.CloudID)
		}
		return cmd.Configure.Apply(c, w.Kinds())
	}
	return nil
}
