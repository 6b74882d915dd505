package persistence

import (
	"context"

	"areacloud/logging"
)

const (
	// EventFieldSkipped is emitted when a persisted field cannot be decoded
	// and its default is kept.
	EventFieldSkipped logging.EventType = "persistence.field_skipped"
	// EventSaved is emitted after a world snapshot is written.
	EventSaved logging.EventType = "persistence.saved"
	// EventLoaded is emitted after a world snapshot is restored.
	EventLoaded logging.EventType = "persistence.loaded"
)

// FieldSkippedPayload names the field and the decode failure.
type FieldSkippedPayload struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

// SnapshotPayload summarises a saved or loaded world.
type SnapshotPayload struct {
	Key      string `json:"key"`
	Clouds   int    `json:"clouds"`
	Living   int    `json:"living"`
	Skipped  int    `json:"skipped,omitempty"`
	Bytes    int    `json:"bytes,omitempty"`
	Duration int64  `json:"durationMs,omitempty"`
}

// FieldSkipped publishes a warning about a malformed persisted field.
func FieldSkipped(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload FieldSkippedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventFieldSkipped,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityWarn,
		Category: "persistence",
		Payload:  payload,
	})
}

// Saved publishes a snapshot write event.
func Saved(ctx context.Context, pub logging.Publisher, tick uint64, payload SnapshotPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventSaved,
		Tick:     tick,
		Actor:    logging.EntityRef{Kind: logging.EntityKindWorld},
		Severity: logging.SeverityInfo,
		Category: "persistence",
		Payload:  payload,
	})
}

// Loaded publishes a snapshot restore event.
func Loaded(ctx context.Context, pub logging.Publisher, tick uint64, payload SnapshotPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventLoaded,
		Tick:     tick,
		Actor:    logging.EntityRef{Kind: logging.EntityKindWorld},
		Severity: logging.SeverityInfo,
		Category: "persistence",
		Payload:  payload,
	})
}
