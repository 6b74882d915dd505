package effects

import (
	"testing"

	"github.com/google/uuid"

	"areacloud/effects/catalog"
)

func TestTrackerMergesByAmplifierThenDuration(t *testing.T) {
	tracker := NewTracker()
	speed := mustKind(t, catalog.KindSpeed)
	source := uuid.New()

	if !tracker.Add(NewEntry(speed, 100, 0, false), source) {
		t.Fatalf("expected first add to change tracker")
	}
	if tracker.Add(NewEntry(speed, 50, 0, false), source) {
		t.Fatalf("expected shorter same-amplifier add to be ignored")
	}
	if !tracker.Add(NewEntry(speed, 150, 0, false), source) {
		t.Fatalf("expected longer same-amplifier add to extend")
	}
	if inst, _ := tracker.Get(catalog.KindSpeed); inst.Remaining != 150 {
		t.Fatalf("expected remaining 150, got %d", inst.Remaining)
	}
	if !tracker.Add(NewEntry(speed, 10, 1, false), source) {
		t.Fatalf("expected higher amplifier to replace")
	}
	inst, _ := tracker.Get(catalog.KindSpeed)
	if inst.Amplifier != 1 || inst.Remaining != 10 {
		t.Fatalf("expected amplifier 1 remaining 10, got %+v", inst)
	}
	if tracker.Add(NewEntry(speed, 500, 0, false), source) {
		t.Fatalf("expected lower amplifier to be ignored")
	}
}

func TestTrackerIgnoresInstantaneousEntries(t *testing.T) {
	tracker := NewTracker()
	if tracker.Add(NewEntry(mustKind(t, catalog.KindInstantDamage), 1, 0, false), uuid.Nil) {
		t.Fatalf("expected instantaneous entry to be rejected")
	}
	if tracker.Len() != 0 {
		t.Fatalf("expected empty tracker")
	}
}

func TestTrackerTickFiresAndExpires(t *testing.T) {
	tracker := NewTracker()
	regen := mustKind(t, catalog.KindRegeneration)
	tracker.Add(NewEntry(regen, 100, 0, false), uuid.Nil)
	tracker.Add(NewEntry(mustKind(t, catalog.KindSpeed), 2, 0, false), uuid.Nil)

	fired := 0
	var expired []Instance
	for i := 0; i < 100; i++ {
		expired = append(expired, tracker.Tick(func(inst Instance) {
			if inst.Kind.ID == catalog.KindRegeneration {
				fired++
			}
		})...)
	}
	if fired != 2 {
		t.Fatalf("expected regeneration to fire at remaining 100 and 50, got %d", fired)
	}
	if len(expired) != 2 || expired[0].Kind.ID != catalog.KindSpeed || expired[1].Kind.ID != catalog.KindRegeneration {
		t.Fatalf("unexpected expiry order %+v", expired)
	}
	if tracker.Len() != 0 {
		t.Fatalf("expected tracker to be empty, got %d", tracker.Len())
	}
}
