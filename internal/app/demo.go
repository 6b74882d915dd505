package app

import (
	"github.com/google/uuid"

	"areacloud/effects/catalog"
	"areacloud/internal/cloud"
	"areacloud/internal/geom"
	"areacloud/internal/sim"
)

// DemoCommands stage a small scene: a thrower, a villager and an undead
// standing in a lingering poison cloud, plus a shrinking healing cloud.
func DemoCommands() []sim.Command {
	thrower := uuid.New()
	radius := float32(4)
	duration := int32(400)
	healRadius := float32(2.5)
	return []sim.Command{
		{Type: sim.CommandSpawnLiving, SpawnLiving: &sim.SpawnLivingCommand{
			ID:       thrower,
			Position: geom.Vec3{X: -12},
			Tags:     []string{"player"},
		}},
		{Type: sim.CommandSpawnLiving, SpawnLiving: &sim.SpawnLivingCommand{
			Position: geom.Vec3{X: 1, Z: 1},
			Tags:     []string{"villager"},
		}},
		{Type: sim.CommandSpawnLiving, SpawnLiving: &sim.SpawnLivingCommand{
			Position: geom.Vec3{X: 8, Z: -1},
			Tags:     []string{catalog.TagUndead},
		}},
		{Type: sim.CommandSpawnCloud, SpawnCloud: &sim.SpawnCloudCommand{
			Radius:        &radius,
			DurationTicks: &duration,
			RadiusOnUse:   -0.5,
			RadiusPerTick: -radius / float32(duration),
			Effects:       []sim.EffectSpec{{Kind: catalog.KindPoison, Duration: 900}},
			OwnerID:       thrower,
		}},
		{Type: sim.CommandSpawnCloud, SpawnCloud: &sim.SpawnCloudCommand{
			Position:      geom.Vec3{X: 8},
			Radius:        &healRadius,
			DurationOnUse: -20,
			Effects:       []sim.EffectSpec{{Kind: catalog.KindInstantHealth, Amplifier: 1}},
			Particle:      cloud.Particle{Type: cloud.ParticleDust, Color: 0xF82423},
			OwnerID:       thrower,
		}},
	}
}
