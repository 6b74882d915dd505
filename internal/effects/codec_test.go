package effects

import (
	"testing"

	"github.com/google/uuid"

	"areacloud/effects/catalog"
	"areacloud/internal/persist"
)

func TestBundleCodecRoundTrip(t *testing.T) {
	kinds := catalog.Default()
	bundle := NewBundle(
		NewEntry(mustKind(t, catalog.KindSpeed), 40, 1, true),
		NewEntry(mustKind(t, catalog.KindInstantHealth), 1, 0, false),
	).WithColor(0x00FF00)

	record := persist.Compound{}
	EncodeBundle(record, bundle)
	data, err := persist.Marshal(record)
	if err != nil {
		t.Fatalf("unexpected marshal error: %v", err)
	}
	decodedRecord, err := persist.Unmarshal(data)
	if err != nil {
		t.Fatalf("unexpected unmarshal error: %v", err)
	}
	if !HasBundle(decodedRecord) {
		t.Fatalf("expected decoded record to carry bundle")
	}
	decoded, err := DecodeBundle(decodedRecord, kinds)
	if err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	entries := decoded.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected two entries, got %d", len(entries))
	}
	if entries[0].Kind.ID != catalog.KindSpeed || entries[0].Duration != 40 || entries[0].Amplifier != 1 || !entries[0].Ambient {
		t.Fatalf("unexpected first entry %+v", entries[0])
	}
	if !entries[1].Instantaneous {
		t.Fatalf("expected instantaneous flag to be derived from kind")
	}
	if color, ok := decoded.FixedColor(); !ok || color != 0x00FF00 {
		t.Fatalf("expected fixed color, got %#x (%v)", color, ok)
	}
}

func TestDecodeBundleRejectsMalformedData(t *testing.T) {
	kinds := catalog.Default()
	cases := []persist.Compound{
		{"Effects": "speed"},
		{"Effects": []any{map[string]any{"Id": "unknown"}}},
		{"Effects": []any{map[string]any{"Duration": int32(5)}}},
		{"Color": "green"},
	}
	for i, record := range cases {
		if _, err := DecodeBundle(record, kinds); err == nil {
			t.Fatalf("case %d: expected error", i)
		}
	}
}

func TestTrackerCodecSkipsUnknownKinds(t *testing.T) {
	kinds := catalog.Default()
	source := uuid.New()
	tracker := NewTracker()
	tracker.Add(NewEntry(mustKind(t, catalog.KindPoison), 30, 1, false), source)

	list := EncodeTracker(tracker)
	list = append(list, map[string]any{"Id": "unknown", "Remaining": int32(5)})
	record := persist.Compound{"Running": list}
	items, ok := record.List("Running")
	if !ok {
		t.Fatalf("expected running list")
	}
	restored, skipped := DecodeTracker(items, kinds)
	if len(skipped) != 1 {
		t.Fatalf("expected one skipped entry, got %v", skipped)
	}
	inst, ok := restored.Get(catalog.KindPoison)
	if !ok || inst.Remaining != 30 || inst.Amplifier != 1 || inst.SourceID != source {
		t.Fatalf("unexpected restored instance %+v", inst)
	}
}
