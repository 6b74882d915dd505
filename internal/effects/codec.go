package effects

import (
	"fmt"

	"github.com/google/uuid"

	"areacloud/effects/catalog"
	"areacloud/internal/persist"
)

// KindResolver looks up effect kinds by id.
type KindResolver interface {
	Resolve(id string) (catalog.Kind, bool)
}

const (
	keyEffects   = "Effects"
	keyColor     = "Color"
	keyID        = "Id"
	keyDuration  = "Duration"
	keyAmplifier = "Amplifier"
	keyAmbient   = "Ambient"
	keyRemaining = "Remaining"
	keySource    = "Source"
)

// EncodeBundle writes the bundle entries and fixed colour into c. An empty
// bundle without a fixed colour writes nothing.
func EncodeBundle(c persist.Compound, b Bundle) {
	if c == nil {
		return
	}
	if len(b.entries) > 0 {
		list := make([]any, 0, len(b.entries))
		for _, entry := range b.entries {
			list = append(list, map[string]any{
				keyID:        entry.Kind.ID,
				keyDuration:  int32(entry.Duration),
				keyAmplifier: int32(entry.Amplifier),
				keyAmbient:   entry.Ambient,
			})
		}
		c[keyEffects] = list
	}
	if color, ok := b.FixedColor(); ok {
		c[keyColor] = color
	}
}

// HasBundle reports whether c carries any bundle data.
func HasBundle(c persist.Compound) bool {
	return c.Has(keyEffects) || c.Has(keyColor)
}

// DecodeBundle reads a bundle written by EncodeBundle. Any malformed entry or
// unknown kind fails the whole bundle.
func DecodeBundle(c persist.Compound, kinds KindResolver) (Bundle, error) {
	var bundle Bundle
	if c.Has(keyEffects) {
		list, ok := c.List(keyEffects)
		if !ok {
			return Bundle{}, fmt.Errorf("effects: %s is not a list of records", keyEffects)
		}
		entries := make([]Entry, 0, len(list))
		for i, item := range list {
			entry, err := decodeEntry(item, kinds)
			if err != nil {
				return Bundle{}, fmt.Errorf("effects: entry %d: %w", i, err)
			}
			entries = append(entries, entry)
		}
		bundle = NewBundle(entries...)
	}
	if c.Has(keyColor) {
		color, ok := c.Int(keyColor)
		if !ok {
			return Bundle{}, fmt.Errorf("effects: %s is not a number", keyColor)
		}
		bundle = bundle.WithColor(int32(color))
	}
	return bundle, nil
}

func decodeEntry(c persist.Compound, kinds KindResolver) (Entry, error) {
	id, ok := c.String(keyID)
	if !ok || id == "" {
		return Entry{}, fmt.Errorf("missing %s", keyID)
	}
	if kinds == nil {
		return Entry{}, fmt.Errorf("no kind resolver for %q", id)
	}
	kind, ok := kinds.Resolve(id)
	if !ok {
		return Entry{}, fmt.Errorf("unknown kind %q", id)
	}
	duration, _ := c.Int(keyDuration)
	amplifier, _ := c.Int(keyAmplifier)
	ambient, _ := c.Bool(keyAmbient)
	return NewEntry(kind, int(duration), int(amplifier), ambient), nil
}

// EncodeTracker writes the running effects as a list of records.
func EncodeTracker(t *Tracker) []any {
	instances := t.Instances()
	if len(instances) == 0 {
		return nil
	}
	list := make([]any, 0, len(instances))
	for _, inst := range instances {
		record := map[string]any{
			keyID:        inst.Kind.ID,
			keyRemaining: int32(inst.Remaining),
			keyAmplifier: int32(inst.Amplifier),
			keyAmbient:   inst.Ambient,
		}
		if inst.SourceID != uuid.Nil {
			record[keySource] = inst.SourceID.String()
		}
		list = append(list, record)
	}
	return list
}

// DecodeTracker restores running effects. Records naming unknown kinds or
// carrying no remaining duration are skipped and reported in skipped.
func DecodeTracker(list []persist.Compound, kinds KindResolver) (*Tracker, []error) {
	tracker := NewTracker()
	var skipped []error
	for i, record := range list {
		id, _ := record.String(keyID)
		var kind catalog.Kind
		found := false
		if kinds != nil && id != "" {
			kind, found = kinds.Resolve(id)
		}
		if !found {
			skipped = append(skipped, fmt.Errorf("effects: running entry %d: unknown kind %q", i, id))
			continue
		}
		remaining, _ := record.Int(keyRemaining)
		if remaining <= 0 {
			skipped = append(skipped, fmt.Errorf("effects: running entry %d: no remaining duration", i))
			continue
		}
		amplifier, _ := record.Int(keyAmplifier)
		ambient, _ := record.Bool(keyAmbient)
		source := uuid.Nil
		if raw, ok := record.String(keySource); ok {
			if parsed, err := uuid.Parse(raw); err == nil {
				source = parsed
			}
		}
		tracker.Add(NewEntry(kind, int(remaining), int(amplifier), ambient), source)
	}
	return tracker, skipped
}
