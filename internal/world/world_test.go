package world

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"areacloud/effects/catalog"
	"areacloud/internal/cloud"
	"areacloud/internal/effects"
	"areacloud/internal/geom"
	"areacloud/internal/persist"
	"areacloud/internal/telemetry"
	loggingcloud "areacloud/logging/cloud"
	"areacloud/logging/combat"
	"areacloud/logging/sinks"
)

func kind(t *testing.T, id string) catalog.Kind {
	t.Helper()
	k, ok := catalog.Default().Resolve(id)
	if !ok {
		t.Fatalf("expected builtin kind %q", id)
	}
	return k
}

func cloudWith(entries ...effects.Entry) cloud.Config {
	cfg := cloud.DefaultConfig()
	cfg.WaitTicks = 0
	cfg.Bundle = effects.NewBundle(entries...)
	return cfg
}

type memoryStore struct {
	data map[string][]byte
}

func (m *memoryStore) Save(_ context.Context, key string, data []byte) error {
	if m.data == nil {
		m.data = make(map[string][]byte)
	}
	m.data[key] = append([]byte(nil), data...)
	return nil
}

func (m *memoryStore) Load(_ context.Context, key string) ([]byte, error) {
	data, ok := m.data[key]
	if !ok {
		return nil, persist.ErrNotFound
	}
	return data, nil
}

func (m *memoryStore) Close() error { return nil }

func TestQueryLivingOrdersBySpawn(t *testing.T) {
	w := New(Config{})
	first := w.SpawnLiving(LivingConfig{Position: geom.Vec3{X: 2}})
	second := w.SpawnLiving(LivingConfig{Position: geom.Vec3{X: -2}})
	w.SpawnLiving(LivingConfig{Position: geom.Vec3{X: 40}})

	found := w.QueryLiving(geom.Cylinder(geom.Vec3{}, 3, 0.5), nil)
	if len(found) != 2 || found[0] != first || found[1] != second {
		t.Fatalf("expected first and second in spawn order, got %d", len(found))
	}

	found = w.QueryLiving(geom.Cylinder(geom.Vec3{}, 3, 0.5), func(l *Living) bool { return l != first })
	if len(found) != 1 || found[0] != second {
		t.Fatalf("expected predicate to filter")
	}
	if got := w.QueryLiving(geom.Cylinder(geom.Vec3{Y: 10}, 3, 0.5), nil); len(got) != 0 {
		t.Fatalf("expected vertical separation to exclude, got %d", len(got))
	}
}

func TestMoveLivingUpdatesIndex(t *testing.T) {
	w := New(Config{})
	l := w.SpawnLiving(LivingConfig{Position: geom.Vec3{X: 100}})
	region := geom.Cylinder(geom.Vec3{}, 3, 0.5)
	if len(w.QueryLiving(region, nil)) != 0 {
		t.Fatalf("expected entity out of range")
	}
	w.MoveLiving(l.ID(), geom.Vec3{X: 1})
	if len(w.QueryLiving(region, nil)) != 1 {
		t.Fatalf("expected moved entity to be found")
	}
}

func TestCloudAppliesRunningEffects(t *testing.T) {
	memory := sinks.NewMemory()
	w := New(Config{Publisher: memory})
	target := w.SpawnLiving(LivingConfig{})
	c := w.SpawnCloud(context.Background(), cloudWith(effects.NewEntry(kind(t, catalog.KindSpeed), 40, 1, false)))

	w.Step(context.Background())

	inst, ok := target.Effects().Get(catalog.KindSpeed)
	if !ok {
		t.Fatalf("expected speed running")
	}
	if inst.Remaining != 10 || inst.Amplifier != 1 || inst.SourceID != c.ID() {
		t.Fatalf("unexpected instance %+v", inst)
	}
	if len(memory.OfType(loggingcloud.EventSpawned)) != 1 || len(memory.OfType(loggingcloud.EventApplied)) != 1 {
		t.Fatalf("expected spawn and applied events")
	}
}

func TestInstantHarmUsesProximityAndOwner(t *testing.T) {
	w := New(Config{})
	owner := w.SpawnLiving(LivingConfig{Position: geom.Vec3{X: 100}})
	target := w.SpawnLiving(LivingConfig{})
	cfg := cloudWith(effects.NewEntry(kind(t, catalog.KindInstantDamage), 0, 0, false))
	cfg.OwnerID = owner.ID()
	w.SpawnCloud(context.Background(), cfg)

	w.Step(context.Background())

	// floor(0.5*6+0.5) = 3
	if target.Health() != DefaultMaxHealth-3 {
		t.Fatalf("expected 3 damage, got health %v", target.Health())
	}
	if target.LastAttacker() != owner.ID() {
		t.Fatalf("expected owner attributed")
	}
}

func TestUndeadInvertsInstantEffects(t *testing.T) {
	w := New(Config{})
	zombie := w.SpawnLiving(LivingConfig{Health: 10, Tags: []string{catalog.TagUndead}})
	w.SpawnCloud(context.Background(), cloudWith(effects.NewEntry(kind(t, catalog.KindInstantDamage), 0, 1, false)))

	w.Step(context.Background())

	// floor(0.5*12+0.5) = 6 healed instead of dealt
	if zombie.Health() != 16 {
		t.Fatalf("expected undead healed to 16, got %v", zombie.Health())
	}

	w2 := New(Config{})
	skeleton := w2.SpawnLiving(LivingConfig{Tags: []string{catalog.TagUndead}})
	w2.SpawnCloud(context.Background(), cloudWith(effects.NewEntry(kind(t, catalog.KindInstantHealth), 0, 0, false)))
	w2.Step(context.Background())
	// floor(0.5*4+0.5) = 2
	if skeleton.Health() != DefaultMaxHealth-2 {
		t.Fatalf("expected undead harmed by healing, got %v", skeleton.Health())
	}
}

func TestPoisonNeverKills(t *testing.T) {
	w := New(Config{})
	target := w.SpawnLiving(LivingConfig{Health: 2})
	target.Effects().Add(effects.NewEntry(kind(t, catalog.KindPoison), 200, 0, false), uuid.Nil)

	for i := 0; i < 200; i++ {
		w.Step(context.Background())
	}
	if target.Health() != 1 || !target.Alive() {
		t.Fatalf("expected poison to stop at 1 health, got %v", target.Health())
	}
	if target.Effects().Has(catalog.KindPoison) {
		t.Fatalf("expected poison expired")
	}
}

func TestWitherDefeatCompactsEntity(t *testing.T) {
	memory := sinks.NewMemory()
	metrics := telemetry.NewCounters()
	w := New(Config{Publisher: memory, Metrics: metrics})
	target := w.SpawnLiving(LivingConfig{Health: 1})
	target.Effects().Add(effects.NewEntry(kind(t, catalog.KindWither), 80, 0, false), uuid.Nil)

	for i := 0; i < 80 && target.Alive(); i++ {
		w.Step(context.Background())
	}
	if target.Alive() {
		t.Fatalf("expected wither to kill")
	}
	if _, ok := w.Living(target.ID()); ok {
		t.Fatalf("expected defeated entity removed")
	}
	if len(w.LivingEntities()) != 0 {
		t.Fatalf("expected empty living list")
	}
	if len(memory.OfType(combat.EventDefeat)) != 1 {
		t.Fatalf("expected defeat event")
	}
	if metrics.Snapshot()[metricDefeats] != 1 {
		t.Fatalf("expected defeat metric")
	}
}

func TestDiscardedCloudsAreCompacted(t *testing.T) {
	w := New(Config{})
	cfg := cloudWith()
	cfg.DurationTicks = 1
	c := w.SpawnCloud(context.Background(), cfg)

	w.Step(context.Background())
	if len(w.Clouds()) != 1 {
		t.Fatalf("expected cloud alive after first tick")
	}
	w.Step(context.Background())
	if len(w.Clouds()) != 0 {
		t.Fatalf("expected expired cloud compacted")
	}
	if _, ok := w.Cloud(c.ID()); ok {
		t.Fatalf("expected cloud lookup to fail")
	}
	removed := w.DrainRemovedClouds()
	if len(removed) != 1 || removed[0] != c.ID() {
		t.Fatalf("expected removal reported once, got %v", removed)
	}
	if len(w.DrainRemovedClouds()) != 0 {
		t.Fatalf("expected drain to reset")
	}
}

func TestResolveTargetMissingIsNilInterface(t *testing.T) {
	w := New(Config{})
	target, ok := w.ResolveTarget(uuid.New())
	if ok || target != nil {
		t.Fatalf("expected absent target")
	}
}

func TestRemoveDuringStepIsDeferred(t *testing.T) {
	w := New(Config{})
	l := w.SpawnLiving(LivingConfig{})
	if !w.Remove(context.Background(), l.ID()) {
		t.Fatalf("expected removal")
	}
	if l.Alive() {
		t.Fatalf("expected removed entity not alive")
	}
	w.Step(context.Background())
	if len(w.livingOrder) != 0 {
		t.Fatalf("expected compaction after step")
	}
	if w.Remove(context.Background(), l.ID()) {
		t.Fatalf("expected second removal to fail")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store := &memoryStore{}
	w := New(Config{})
	owner := w.SpawnLiving(LivingConfig{Position: geom.Vec3{X: 50}, Tags: []string{"player"}})
	target := w.SpawnLiving(LivingConfig{Health: 15})
	target.Effects().Add(effects.NewEntry(kind(t, catalog.KindRegeneration), 100, 1, true), uuid.Nil)
	cfg := cloudWith(effects.NewEntry(kind(t, catalog.KindSlowness), 80, 0, false))
	cfg.OwnerID = owner.ID()
	cfg.Position = geom.Vec3{X: 100}
	c := w.SpawnCloud(context.Background(), cfg)
	for i := 0; i < 3; i++ {
		w.Step(context.Background())
	}
	if err := w.Save(context.Background(), store, "world"); err != nil {
		t.Fatalf("save: %v", err)
	}

	memory := sinks.NewMemory()
	restored := New(Config{Publisher: memory})
	if err := restored.Load(context.Background(), store, "world"); err != nil {
		t.Fatalf("load: %v", err)
	}
	if restored.Tick() != 3 {
		t.Fatalf("expected tick 3, got %d", restored.Tick())
	}
	living := restored.LivingEntities()
	if len(living) != 2 || living[0].ID() != owner.ID() || living[1].ID() != target.ID() {
		t.Fatalf("expected living restored in order")
	}
	if !living[0].HasTag("player") || living[1].Health() != target.Health() {
		t.Fatalf("expected tags and health restored")
	}
	inst, ok := living[1].Effects().Get(catalog.KindRegeneration)
	if !ok || inst.Amplifier != 1 || !inst.Ambient {
		t.Fatalf("expected running effect restored, got %+v", inst)
	}
	clouds := restored.Clouds()
	if len(clouds) != 1 || clouds[0].ID() != c.ID() || clouds[0].Age() != 3 {
		t.Fatalf("expected cloud restored with age")
	}
	if owner := clouds[0].Owner(); owner == nil || owner.ID() != cfg.OwnerID {
		t.Fatalf("expected owner to resolve in restored world")
	}
}

func TestLoadMissingSnapshot(t *testing.T) {
	w := New(Config{})
	w.SpawnLiving(LivingConfig{})
	err := w.Load(context.Background(), &memoryStore{}, "absent")
	if !errors.Is(err, persist.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if len(w.LivingEntities()) != 1 {
		t.Fatalf("expected world untouched")
	}
}
