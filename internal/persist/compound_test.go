package persist

import (
	"context"
	"errors"
	"testing"
)

func TestRoundTripKeepsNumericAccessors(t *testing.T) {
	record := Compound{
		"Age":      int64(42),
		"Duration": int32(600),
		"Radius":   float32(2.5),
		"Owner":    "f47ac10b-58cc-4372-a567-0e02b2c3d479",
		"Effects": []any{
			map[string]any{"Id": "speed", "Amplifier": int8(1)},
		},
		"Particle": map[string]any{"Type": "dust"},
		"Pos":      []float64{1.5, 64, -3},
		"Tags":     []string{"undead"},
	}
	data, err := Marshal(record)
	if err != nil {
		t.Fatalf("unexpected marshal error: %v", err)
	}
	decoded, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("unexpected unmarshal error: %v", err)
	}

	if age, ok := decoded.Int("Age"); !ok || age != 42 {
		t.Fatalf("expected age 42, got %d (%v)", age, ok)
	}
	if duration, ok := decoded.Int("Duration"); !ok || duration != 600 {
		t.Fatalf("expected duration 600, got %d (%v)", duration, ok)
	}
	if radius, ok := decoded.Float("Radius"); !ok || radius != 2.5 {
		t.Fatalf("expected radius 2.5, got %v (%v)", radius, ok)
	}
	if owner, ok := decoded.String("Owner"); !ok || owner == "" {
		t.Fatalf("expected owner string, got %q", owner)
	}
	effects, ok := decoded.List("Effects")
	if !ok || len(effects) != 1 {
		t.Fatalf("expected one effect, got %v", effects)
	}
	if id, _ := effects[0].String("Id"); id != "speed" {
		t.Fatalf("expected effect id speed, got %q", id)
	}
	if amp, _ := effects[0].Int("Amplifier"); amp != 1 {
		t.Fatalf("expected amplifier 1, got %d", amp)
	}
	if pos, ok := decoded.Floats("Pos"); !ok || len(pos) != 3 || pos[0] != 1.5 || pos[2] != -3 {
		t.Fatalf("unexpected position %v (%v)", pos, ok)
	}
	if tags, ok := decoded.Strings("Tags"); !ok || len(tags) != 1 || tags[0] != "undead" {
		t.Fatalf("unexpected tags %v (%v)", tags, ok)
	}
	particle, ok := decoded.Compound("Particle")
	if !ok {
		t.Fatalf("expected particle compound")
	}
	if typ, _ := particle.String("Type"); typ != "dust" {
		t.Fatalf("expected particle type dust, got %q", typ)
	}
}

func TestAccessorsRejectWrongTypes(t *testing.T) {
	record := Compound{
		"Radius":  "wide",
		"Effects": []any{"not-a-record"},
		"Flag":    int64(1),
	}
	if _, ok := record.Float("Radius"); ok {
		t.Fatalf("expected string radius to be rejected")
	}
	if _, ok := record.List("Effects"); ok {
		t.Fatalf("expected list of strings to be rejected")
	}
	if _, ok := record.Int("Missing"); ok {
		t.Fatalf("expected missing key to be absent")
	}
	if flag, ok := record.Bool("Flag"); !ok || !flag {
		t.Fatalf("expected integer flag to read as true")
	}
	var empty Compound
	if empty.Has("Age") {
		t.Fatalf("expected nil compound to report no keys")
	}
}

func TestUnmarshalRejectsGarbage(t *testing.T) {
	if _, err := Unmarshal([]byte{0xc1}); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx := context.Background()

	if _, err := store.Load(ctx, "world"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := SaveCompound(ctx, store, "world", Compound{"Age": int64(7)}); err != nil {
		t.Fatalf("unexpected save error: %v", err)
	}
	loaded, err := LoadCompound(ctx, store, "world")
	if err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}
	if age, _ := loaded.Int("Age"); age != 7 {
		t.Fatalf("expected age 7, got %d", age)
	}
	if err := store.Save(ctx, "../escape", nil); err == nil {
		t.Fatalf("expected path traversal key to be rejected")
	}
}

func TestFileStoreHonoursCancelledContext(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := store.Save(ctx, "world", []byte{1}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
