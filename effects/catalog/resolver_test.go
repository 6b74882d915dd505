package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type memorySource struct {
	path string
	data []byte
	err  error
}

func (m memorySource) Load() ([]byte, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.data, nil
}

func (m memorySource) Path() string {
	return m.path
}

func TestDefaultResolverContainsBuiltins(t *testing.T) {
	r := Default()
	heal, ok := r.Resolve(KindInstantHealth)
	if !ok {
		t.Fatalf("expected instant_health to be registered")
	}
	if !heal.Instantaneous || !heal.UndeadInverted {
		t.Fatalf("unexpected instant_health definition: %+v", heal)
	}
	poison, ok := r.Resolve(KindPoison)
	if !ok || poison.Periodic == nil || poison.Periodic.BaseInterval != 25 {
		t.Fatalf("unexpected poison definition: %+v", poison)
	}
	if poison.AppliesTo([]string{TagUndead}) {
		t.Fatalf("expected poison to skip undead targets")
	}
	if !poison.AppliesTo(nil) {
		t.Fatalf("expected poison to apply to untagged targets")
	}
	if len(r.Kinds()) != len(DefaultKinds()) {
		t.Fatalf("expected %d kinds, got %d", len(DefaultKinds()), len(r.Kinds()))
	}
}

func TestResolveReturnsIndependentCopies(t *testing.T) {
	r := Default()
	first, _ := r.Resolve(KindRegeneration)
	first.ImmuneTags[0] = "mutated"
	first.Periodic.BaseInterval = 1
	second, _ := r.Resolve(KindRegeneration)
	if second.ImmuneTags[0] != TagUndead || second.Periodic.BaseInterval != 50 {
		t.Fatalf("expected resolver state to be isolated from callers, got %+v", second)
	}
}

func TestInstantAmountMatchesProximityFormula(t *testing.T) {
	r := Default()
	heal, _ := r.Resolve(KindInstantHealth)
	harm, _ := r.Resolve(KindInstantDamage)
	if got := heal.InstantAmount(0, 0.5); got != 2 {
		t.Fatalf("expected heal 2 at amplifier 0, got %v", got)
	}
	if got := heal.InstantAmount(1, 0.5); got != 4 {
		t.Fatalf("expected heal 4 at amplifier 1, got %v", got)
	}
	if got := harm.InstantAmount(0, 0.5); got != 3 {
		t.Fatalf("expected harm 3 at amplifier 0, got %v", got)
	}
	if got := harm.InstantAmount(1, 1); got != 12 {
		t.Fatalf("expected harm 12 at amplifier 1 full proximity, got %v", got)
	}
	if got := (Kind{ID: "speed"}).InstantAmount(3, 1); got != 0 {
		t.Fatalf("expected zero for kinds without instant action, got %v", got)
	}
}

func TestFiresScalesWithAmplifier(t *testing.T) {
	kind := Kind{ID: "regen", Periodic: &Periodic{Action: ActionHeal, BaseInterval: 50}}
	if !kind.Fires(100, 0) || kind.Fires(99, 0) {
		t.Fatalf("expected amplifier 0 to fire every 50 ticks")
	}
	if !kind.Fires(75, 1) {
		t.Fatalf("expected amplifier 1 to fire every 25 ticks")
	}
	if !kind.Fires(7, 6) {
		t.Fatalf("expected large amplifier to fire every tick")
	}
	if (Kind{ID: "speed"}).Fires(10, 0) {
		t.Fatalf("expected non-periodic kind never to fire")
	}
}

func TestSourceOverridesAndExtendsDefaults(t *testing.T) {
	src := memorySource{path: "mem", data: []byte(`{
		"speed": {"color": 255, "beneficial": true},
		"glowing": {"color": 9740385}
	}`)}
	r, err := NewResolver(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	speed, _ := r.Resolve(KindSpeed)
	if speed.Color != 255 {
		t.Fatalf("expected overridden color 255, got %d", speed.Color)
	}
	if _, ok := r.Resolve("glowing"); !ok {
		t.Fatalf("expected new kind to be registered")
	}
}

func TestReloadRejectsInvalidDocuments(t *testing.T) {
	cases := map[string]string{
		"missing id":     `[{"color": 1}]`,
		"duplicate":      `[{"id": "a"}, {"id": "a"}]`,
		"color range":    `[{"id": "a", "color": 20000000}]`,
		"bad action":     `[{"id": "a", "periodic": {"action": "teleport", "baseInterval": 5}}]`,
		"bad interval":   `[{"id": "a", "periodic": {"action": "heal"}}]`,
		"instant period": `[{"id": "a", "instantaneous": true, "periodic": {"action": "heal", "baseInterval": 5}}]`,
		"key mismatch":   `{"a": {"id": "b"}}`,
		"instant flag":   `[{"id": "a", "instant": {"action": "heal", "baseAmount": 4}}]`,
		"instant amount": `[{"id": "a", "instantaneous": true, "instant": {"action": "heal"}}]`,
		"bad token":      `7`,
	}
	for name, body := range cases {
		if _, err := NewResolver(memorySource{path: name, data: []byte(body)}); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestLoadIgnoresMissingFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kinds.json")
	r, err := Load(path, "  ")
	if err != nil {
		t.Fatalf("unexpected error for missing file: %v", err)
	}
	if _, ok := r.Resolve(KindWither); !ok {
		t.Fatalf("expected defaults when file is missing")
	}

	if err := os.WriteFile(path, []byte(`[{"id": "levitation", "color": 13565951}]`), 0o644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	if err := r.Reload(); err != nil {
		t.Fatalf("unexpected reload error: %v", err)
	}
	if _, ok := r.Resolve("levitation"); !ok {
		t.Fatalf("expected reload to pick up new file")
	}

	if err := os.WriteFile(path, []byte(`[`), 0o644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	if err := r.Reload(); err == nil || !strings.Contains(err.Error(), "failed parsing") {
		t.Fatalf("expected parse error, got %v", err)
	}
}
