package cloud

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"

	"areacloud/internal/effects"
	"areacloud/internal/persist"
	"areacloud/internal/synced"
	"areacloud/logging/persistence"
)

const (
	fieldUUID               = "UUID"
	fieldPos                = "Pos"
	fieldAge                = "Age"
	fieldDuration           = "Duration"
	fieldWaitTime           = "WaitTime"
	fieldReapplicationDelay = "ReapplicationDelay"
	fieldDurationOnUse      = "DurationOnUse"
	fieldRadiusOnUse        = "RadiusOnUse"
	fieldRadiusPerTick      = "RadiusPerTick"
	fieldRadius             = "Radius"
	fieldOwner              = "Owner"
	fieldEffects            = "Effects"
	fieldParticle           = "Particle"
	fieldParticleType       = "Type"
	fieldParticleColor      = "Color"
)

// Save writes the persistent state of the cloud. The cooldown ledger is not
// saved.
func (c *Cloud) Save() persist.Compound {
	out := persist.Compound{
		fieldUUID:               c.id.String(),
		fieldPos:                []float64{c.position.X, c.position.Y, c.position.Z},
		fieldAge:                int64(c.age),
		fieldDuration:           c.life.DurationTicks,
		fieldWaitTime:           c.life.WaitTicks,
		fieldReapplicationDelay: c.ledger.Delay(),
		fieldDurationOnUse:      c.durationOnUse,
		fieldRadiusOnUse:        c.radius.onUse,
		fieldRadiusPerTick:      c.radius.perTick,
		fieldRadius:             c.radius.Value(),
	}
	if c.owner.id != uuid.Nil {
		out[fieldOwner] = c.owner.id.String()
	}
	effects.EncodeBundle(out, c.bundle)
	particle := c.Particle()
	out[fieldParticle] = persist.Compound{
		fieldParticleType:  particle.Type,
		fieldParticleColor: particle.Color,
	}
	return out
}

// Load rebuilds an authoritative cloud from a record written by Save.
// Missing fields keep their defaults. Malformed fields are skipped with a
// warning published through deps.Publisher; the count of skipped fields is
// returned. The waiting flag is recomputed from the restored age without a
// phase notification and the ledger starts empty.
func Load(ctx context.Context, data persist.Compound, kinds effects.KindResolver, deps Deps) (*Cloud, int) {
	l := loader{data: data}
	cfg := DefaultConfig()

	if raw, ok := l.str(fieldUUID); ok {
		if id, err := uuid.Parse(raw); err == nil {
			cfg.ID = id
		} else {
			l.skip(fieldUUID, err)
		}
	}
	if l.data.Has(fieldPos) {
		pos, ok := data.Floats(fieldPos)
		if ok && len(pos) == 3 && finite(pos[0]) && finite(pos[1]) && finite(pos[2]) {
			cfg.Position.X, cfg.Position.Y, cfg.Position.Z = pos[0], pos[1], pos[2]
		} else {
			l.skip(fieldPos, fmt.Errorf("expected three finite numbers"))
		}
	}
	cfg.DurationTicks = l.intField(fieldDuration, cfg.DurationTicks)
	cfg.WaitTicks = l.intField(fieldWaitTime, cfg.WaitTicks)
	cfg.ReapplicationDelay = l.intField(fieldReapplicationDelay, cfg.ReapplicationDelay)
	cfg.DurationOnUse = l.intField(fieldDurationOnUse, cfg.DurationOnUse)
	cfg.RadiusOnUse = l.floatField(fieldRadiusOnUse, cfg.RadiusOnUse)
	cfg.RadiusPerTick = l.floatField(fieldRadiusPerTick, cfg.RadiusPerTick)

	if raw, ok := l.str(fieldOwner); ok {
		if id, err := uuid.Parse(raw); err == nil {
			cfg.OwnerID = id
		} else {
			l.skip(fieldOwner, err)
		}
	}
	if effects.HasBundle(data) {
		bundle, err := effects.DecodeBundle(data, kinds)
		if err != nil {
			l.skip(fieldEffects, err)
		} else {
			cfg.Bundle = bundle
		}
	}
	if data.Has(fieldParticle) {
		particle, err := decodeParticle(data)
		if err != nil {
			l.skip(fieldParticle, err)
		} else {
			cfg.Particle = particle
		}
	}

	c := New(cfg, deps)
	if data.Has(fieldRadius) {
		if radius, ok := data.Float(fieldRadius); ok && finite(radius) {
			c.SetRadius(float32(radius))
		} else {
			l.skip(fieldRadius, fmt.Errorf("not a finite number"))
		}
	}
	if data.Has(fieldAge) {
		if age, ok := data.Int(fieldAge); ok && age >= 0 {
			c.age = uint64(age)
		} else {
			l.skip(fieldAge, fmt.Errorf("not a non-negative integer"))
		}
	}
	synced.Set(c.store, keyWaiting, c.life.Waiting(c.age))

	for _, s := range l.skipped {
		persistence.FieldSkipped(ctx, c.deps.Publisher, c.age, c.Ref(), persistence.FieldSkippedPayload{
			Field: s.field,
			Error: s.err.Error(),
		})
	}
	return c, len(l.skipped)
}

func decodeParticle(data persist.Compound) (Particle, error) {
	record, ok := data.Compound(fieldParticle)
	if !ok {
		return Particle{}, fmt.Errorf("not a record")
	}
	typ, ok := record.String(fieldParticleType)
	if !ok {
		return Particle{}, fmt.Errorf("missing %s", fieldParticleType)
	}
	particle := Particle{Type: typ}
	if color, ok := record.Int(fieldParticleColor); ok {
		if color < math.MinInt32 || color > math.MaxInt32 {
			return Particle{}, fmt.Errorf("%s %d out of range", fieldParticleColor, color)
		}
		particle.Color = int32(color)
	}
	if err := particle.Validate(); err != nil {
		return Particle{}, err
	}
	return particle, nil
}

type skippedField struct {
	field string
	err   error
}

type loader struct {
	data    persist.Compound
	skipped []skippedField
}

func (l *loader) skip(field string, err error) {
	l.skipped = append(l.skipped, skippedField{field: field, err: err})
}

func (l *loader) str(field string) (string, bool) {
	if !l.data.Has(field) {
		return "", false
	}
	value, ok := l.data.String(field)
	if !ok {
		l.skip(field, fmt.Errorf("not a string"))
	}
	return value, ok
}

func (l *loader) intField(field string, fallback int32) int32 {
	if !l.data.Has(field) {
		return fallback
	}
	value, ok := l.data.Int(field)
	if !ok {
		l.skip(field, fmt.Errorf("not an integer"))
		return fallback
	}
	if value < math.MinInt32 || value > math.MaxInt32 {
		l.skip(field, fmt.Errorf("%d out of range", value))
		return fallback
	}
	return int32(value)
}

func (l *loader) floatField(field string, fallback float32) float32 {
	if !l.data.Has(field) {
		return fallback
	}
	value, ok := l.data.Float(field)
	if !ok || !finite(value) || !finite(float64(float32(value))) {
		l.skip(field, fmt.Errorf("not a finite number"))
		return fallback
	}
	return float32(value)
}
