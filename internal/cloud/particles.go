package cloud

import (
	"fmt"
	"math"
	"math/rand"

	"areacloud/internal/geom"
)

const (
	ParticleEntityEffect = "entity_effect"
	ParticleDust         = "dust"
	ParticleSmoke        = "smoke"
	ParticleFlame        = "flame"
	ParticleWitch        = "witch"
	ParticleDragonBreath = "dragon_breath"
)

var particleTypes = map[string]struct{}{
	ParticleEntityEffect: {},
	ParticleDust:         {},
	ParticleSmoke:        {},
	ParticleFlame:        {},
	ParticleWitch:        {},
	ParticleDragonBreath: {},
}

// Particle selects the cosmetic particle a cloud emits. Color is only used
// by dust; entity_effect particles take the bundle colour.
type Particle struct {
	Type  string `json:"type"`
	Color int32  `json:"color,omitempty"`
}

// DefaultParticle is the tinted swirl every cloud starts with.
func DefaultParticle() Particle {
	return Particle{Type: ParticleEntityEffect}
}

// Validate rejects unknown particle types.
func (p Particle) Validate() error {
	if _, ok := particleTypes[p.Type]; !ok {
		return fmt.Errorf("cloud: unknown particle type %q", p.Type)
	}
	if p.Color < 0 || p.Color > 0xFFFFFF {
		return fmt.Errorf("cloud: particle color %d out of range", p.Color)
	}
	return nil
}

// ParticleSpawn is one cosmetic particle emitted by the client tick.
type ParticleSpawn struct {
	Type     string
	Color    int32
	Position geom.Vec3
	Velocity geom.Vec3
}

// Emitter receives cosmetic particles.
type Emitter interface {
	Emit(ParticleSpawn)
}

// EmitterFunc adapts a function into an Emitter.
type EmitterFunc func(ParticleSpawn)

// Emit implements Emitter.
func (f EmitterFunc) Emit(p ParticleSpawn) {
	if f != nil {
		f(p)
	}
}

const (
	waitingParticleCount  = 2
	waitingParticleSpread = 0.2
	activeJitter          = 0.15
	activeRise            = 0.01
)

// emitParticles renders one frame of cosmetic output from the synced view of
// a cloud. Waiting clouds skip half of their frames and emit a small puff at
// the centre; active clouds fill their disc with about one particle per unit
// of area.
func emitParticles(rng *rand.Rand, emitter Emitter, center geom.Vec3, waiting bool, radius float32, particle Particle, bundleColor int32) {
	if rng == nil || emitter == nil {
		return
	}
	if waiting && rng.Intn(2) == 0 {
		return
	}
	count := waitingParticleCount
	spread := float64(waitingParticleSpread)
	if !waiting {
		spread = float64(radius)
		count = int(math.Ceil(math.Pi * spread * spread))
	}
	color := particle.Color
	if particle.Type == ParticleEntityEffect {
		color = bundleColor
	}
	for i := 0; i < count; i++ {
		angle := rng.Float64() * 2 * math.Pi
		distance := math.Sqrt(rng.Float64()) * spread
		spawn := ParticleSpawn{
			Type:  particle.Type,
			Color: color,
			Position: geom.Vec3{
				X: center.X + math.Cos(angle)*distance,
				Y: center.Y,
				Z: center.Z + math.Sin(angle)*distance,
			},
		}
		if !waiting && particle.Type != ParticleEntityEffect {
			spawn.Velocity = geom.Vec3{
				X: (0.5 - rng.Float64()) * activeJitter,
				Y: activeRise,
				Z: (0.5 - rng.Float64()) * activeJitter,
			}
		}
		emitter.Emit(spawn)
	}
}
