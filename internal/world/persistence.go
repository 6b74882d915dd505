package world

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"areacloud/internal/cloud"
	"areacloud/internal/effects"
	"areacloud/internal/persist"
	"areacloud/logging"
	"areacloud/logging/persistence"
)

const (
	keyTick   = "Tick"
	keyClouds = "Clouds"
	keyLiving = "Living"

	keyUUID          = "UUID"
	keyPos           = "Pos"
	keyWidth         = "Width"
	keyHeight        = "Height"
	keyHealth        = "Health"
	keyMaxHealth     = "MaxHealth"
	keyTags          = "Tags"
	keyImmune        = "ImmuneToEffects"
	keyLastAttacker  = "LastAttacker"
	keyActiveEffects = "ActiveEffects"
)

// Snapshot encodes every entity still in the world.
func (w *World) Snapshot() persist.Compound {
	clouds := make([]any, 0, len(w.cloudOrder))
	for _, c := range w.Clouds() {
		clouds = append(clouds, c.Save())
	}
	living := make([]any, 0, len(w.livingOrder))
	for _, l := range w.LivingEntities() {
		living = append(living, saveLiving(l))
	}
	return persist.Compound{
		keyTick:   int64(w.tick),
		keyClouds: clouds,
		keyLiving: living,
	}
}

// Save writes the world snapshot under key.
func (w *World) Save(ctx context.Context, store persist.Store, key string) error {
	started := time.Now()
	snapshot := w.Snapshot()
	data, err := persist.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("world: encode snapshot: %w", err)
	}
	if err := store.Save(ctx, key, data); err != nil {
		return fmt.Errorf("world: save snapshot %q: %w", key, err)
	}
	clouds, _ := snapshot[keyClouds].([]any)
	living, _ := snapshot[keyLiving].([]any)
	persistence.Saved(ctx, w.pub, w.tick, persistence.SnapshotPayload{
		Key:      key,
		Clouds:   len(clouds),
		Living:   len(living),
		Bytes:    len(data),
		Duration: time.Since(started).Milliseconds(),
	})
	return nil
}

// Load replaces every entity with the snapshot stored under key. A missing
// snapshot returns an error wrapping persist.ErrNotFound and leaves the world
// untouched.
func (w *World) Load(ctx context.Context, store persist.Store, key string) error {
	started := time.Now()
	data, err := persist.LoadCompound(ctx, store, key)
	if err != nil {
		return fmt.Errorf("world: load snapshot %q: %w", key, err)
	}
	skipped := w.Restore(ctx, data)
	persistence.Loaded(ctx, w.pub, w.tick, persistence.SnapshotPayload{
		Key:      key,
		Clouds:   len(w.cloudOrder),
		Living:   len(w.livingOrder),
		Skipped:  skipped,
		Duration: time.Since(started).Milliseconds(),
	})
	return nil
}

// Restore replaces every entity with the decoded snapshot and returns the
// number of skipped fields and records. Records that cannot be decoded are
// skipped with a warning.
func (w *World) Restore(ctx context.Context, data persist.Compound) int {
	w.index = NewSpatialIndex(w.cfg.CellSize)
	w.living = make(map[uuid.UUID]*Living)
	w.livingOrder = nil
	w.clouds = make(map[uuid.UUID]*cloud.Cloud)
	w.cloudOrder = nil
	w.removedClouds = nil
	w.seq = 0
	w.tick = 0
	if tick, ok := data.Int(keyTick); ok && tick >= 0 {
		w.tick = uint64(tick)
	}

	skipped := 0
	world := logging.EntityRef{Kind: logging.EntityKindWorld}
	if data.Has(keyLiving) {
		records, ok := data.List(keyLiving)
		if !ok {
			skipped++
			persistence.FieldSkipped(ctx, w.pub, w.tick, world, persistence.FieldSkippedPayload{Field: keyLiving, Error: "not a list of records"})
		}
		for _, record := range records {
			skipped += w.restoreLiving(ctx, record)
		}
	}
	if data.Has(keyClouds) {
		records, ok := data.List(keyClouds)
		if !ok {
			skipped++
			persistence.FieldSkipped(ctx, w.pub, w.tick, world, persistence.FieldSkippedPayload{Field: keyClouds, Error: "not a list of records"})
		}
		for _, record := range records {
			c, n := cloud.Load(ctx, record, w.cfg.Kinds, w.cloudDeps())
			skipped += n
			w.addCloud(c)
		}
	}
	return skipped
}

func saveLiving(l *Living) persist.Compound {
	out := persist.Compound{
		keyUUID:      l.id.String(),
		keyPos:       []float64{l.position.X, l.position.Y, l.position.Z},
		keyWidth:     l.width,
		keyHeight:    l.height,
		keyHealth:    l.health,
		keyMaxHealth: l.maxHealth,
		keyImmune:    l.immune,
	}
	if len(l.tags) > 0 {
		out[keyTags] = append([]string(nil), l.tags...)
	}
	if l.lastAttacker != uuid.Nil {
		out[keyLastAttacker] = l.lastAttacker.String()
	}
	if running := effects.EncodeTracker(l.tracker); len(running) > 0 {
		out[keyActiveEffects] = running
	}
	return out
}

func (w *World) restoreLiving(ctx context.Context, record persist.Compound) int {
	cfg := LivingConfig{}
	var problems []persistence.FieldSkippedPayload
	if raw, ok := record.String(keyUUID); ok {
		if id, err := uuid.Parse(raw); err == nil {
			cfg.ID = id
		} else {
			problems = append(problems, persistence.FieldSkippedPayload{Field: keyUUID, Error: err.Error()})
		}
	}
	if pos, ok := record.Floats(keyPos); ok && len(pos) == 3 {
		cfg.Position.X, cfg.Position.Y, cfg.Position.Z = pos[0], pos[1], pos[2]
	} else if record.Has(keyPos) {
		problems = append(problems, persistence.FieldSkippedPayload{Field: keyPos, Error: "expected three numbers"})
	}
	cfg.Width, _ = record.Float(keyWidth)
	cfg.Height, _ = record.Float(keyHeight)
	cfg.Health, _ = record.Float(keyHealth)
	cfg.MaxHealth, _ = record.Float(keyMaxHealth)
	cfg.ImmuneToEffects, _ = record.Bool(keyImmune)
	if tags, ok := record.Strings(keyTags); ok {
		cfg.Tags = tags
	}

	l := w.SpawnLiving(cfg)
	if raw, ok := record.String(keyLastAttacker); ok {
		if id, err := uuid.Parse(raw); err == nil {
			l.lastAttacker = id
		}
	}
	if record.Has(keyActiveEffects) {
		list, ok := record.List(keyActiveEffects)
		if ok {
			tracker, errs := effects.DecodeTracker(list, w.cfg.Kinds)
			l.tracker = tracker
			for _, err := range errs {
				problems = append(problems, persistence.FieldSkippedPayload{Field: keyActiveEffects, Error: err.Error()})
			}
		} else {
			problems = append(problems, persistence.FieldSkippedPayload{Field: keyActiveEffects, Error: "not a list of records"})
		}
	}
	for _, problem := range problems {
		persistence.FieldSkipped(ctx, w.pub, w.tick, l.Ref(), problem)
	}
	return len(problems)
}
