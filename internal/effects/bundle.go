// Package effects models the effect descriptors a cloud carries and the
// running effects a living target tracks.
package effects

import "areacloud/effects/catalog"

// DefaultColor is the tint of a bundle with no effects.
const DefaultColor int32 = 0x385DC6

// DurationScale divides the duration of every non-instantaneous entry when a
// cloud hands it to a target.
const DurationScale = 4

// Entry describes one effect applied by a bundle.
type Entry struct {
	Kind          catalog.Kind
	Duration      int
	Amplifier     int
	Ambient       bool
	Instantaneous bool
}

// NewEntry builds an entry for the kind. Negative durations and amplifiers
// are clamped to zero.
func NewEntry(kind catalog.Kind, duration, amplifier int, ambient bool) Entry {
	if duration < 0 {
		duration = 0
	}
	if amplifier < 0 {
		amplifier = 0
	}
	return Entry{
		Kind:          kind,
		Duration:      duration,
		Amplifier:     amplifier,
		Ambient:       ambient,
		Instantaneous: kind.Instantaneous,
	}
}

// AppliesTo reports whether a target with the given tags can receive the
// entry.
func (e Entry) AppliesTo(tags []string) bool {
	return e.Kind.AppliesTo(tags)
}

// Bundle is an immutable list of entries plus an optional fixed colour.
type Bundle struct {
	entries  []Entry
	color    int32
	hasColor bool
}

// NewBundle copies the entries into a new bundle.
func NewBundle(entries ...Entry) Bundle {
	if len(entries) == 0 {
		return Bundle{}
	}
	return Bundle{entries: append([]Entry(nil), entries...)}
}

// WithColor returns a copy of the bundle tinted with a fixed colour.
func (b Bundle) WithColor(color int32) Bundle {
	b.entries = append([]Entry(nil), b.entries...)
	b.color = color & 0xFFFFFF
	b.hasColor = true
	return b
}

// Empty reports whether the bundle has no entries.
func (b Bundle) Empty() bool {
	return len(b.entries) == 0
}

// Len returns the number of entries.
func (b Bundle) Len() int {
	return len(b.entries)
}

// Entries returns a copy of the entries.
func (b Bundle) Entries() []Entry {
	if len(b.entries) == 0 {
		return nil
	}
	return append([]Entry(nil), b.entries...)
}

// FixedColor returns the explicit colour, if any.
func (b Bundle) FixedColor() (int32, bool) {
	return b.color, b.hasColor
}

// Color returns the explicit colour when one is set, otherwise the blend of
// the entry colours weighted by amplifier.
func (b Bundle) Color() int32 {
	if b.hasColor {
		return b.color
	}
	return BlendColor(b.entries)
}

// TargetEffects derives the entries handed to each target. Instantaneous
// entries are unchanged; duration entries are scaled by DurationScale with a
// minimum of one tick. The bundle itself is never modified.
func (b Bundle) TargetEffects() []Entry {
	if len(b.entries) == 0 {
		return nil
	}
	out := make([]Entry, 0, len(b.entries))
	for _, entry := range b.entries {
		if !entry.Instantaneous {
			entry.Duration = max(entry.Duration/DurationScale, 1)
		}
		out = append(out, entry)
	}
	return out
}

// BlendColor averages the entry colours, weighting each by amplifier+1.
func BlendColor(entries []Entry) int32 {
	if len(entries) == 0 {
		return DefaultColor
	}
	var r, g, b float64
	total := 0
	for _, entry := range entries {
		color := entry.Kind.Color
		weight := entry.Amplifier + 1
		r += float64(weight) * float64((color>>16)&0xFF) / 255
		g += float64(weight) * float64((color>>8)&0xFF) / 255
		b += float64(weight) * float64(color&0xFF) / 255
		total += weight
	}
	if total <= 0 {
		return DefaultColor
	}
	red := int32(r / float64(total) * 255)
	green := int32(g / float64(total) * 255)
	blue := int32(b / float64(total) * 255)
	return red<<16 | green<<8 | blue
}
