package cloud

import (
	"context"

	"areacloud/logging"
)

const (
	// EventSpawned is emitted when a cloud enters the world.
	EventSpawned logging.EventType = "cloud.spawned"
	// EventPhaseChanged is emitted once when a cloud stops waiting.
	EventPhaseChanged logging.EventType = "cloud.phase_changed"
	// EventApplied is emitted when a cloud applies its bundle to a target.
	EventApplied logging.EventType = "cloud.applied"
	// EventDiscarded is emitted when a cloud leaves the world.
	EventDiscarded logging.EventType = "cloud.discarded"
)

const category = "cloud"

// SpawnedPayload captures the initial cloud parameters.
type SpawnedPayload struct {
	Radius        float32 `json:"radius"`
	WaitTicks     int32   `json:"waitTicks"`
	DurationTicks int32   `json:"durationTicks"`
	Effects       int     `json:"effects"`
}

// PhaseChangedPayload captures the phase a cloud moved into.
type PhaseChangedPayload struct {
	Phase string `json:"phase"`
}

// AppliedPayload captures one successful application.
type AppliedPayload struct {
	Instant  int     `json:"instant,omitempty"`
	Duration int     `json:"duration,omitempty"`
	Radius   float32 `json:"radius"`
}

// DiscardedPayload captures why a cloud left the world.
type DiscardedPayload struct {
	Reason string `json:"reason"`
}

// Spawned publishes a cloud spawn event.
func Spawned(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload SpawnedPayload) {
	publish(ctx, pub, logging.Event{Type: EventSpawned, Tick: tick, Actor: actor, Severity: logging.SeverityDebug, Payload: payload})
}

// PhaseChanged publishes a phase transition event.
func PhaseChanged(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload PhaseChangedPayload) {
	publish(ctx, pub, logging.Event{Type: EventPhaseChanged, Tick: tick, Actor: actor, Severity: logging.SeverityDebug, Payload: payload})
}

// Applied publishes a bundle application event.
func Applied(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, target logging.EntityRef, payload AppliedPayload) {
	publish(ctx, pub, logging.Event{
		Type:     EventApplied,
		Tick:     tick,
		Actor:    actor,
		Targets:  []logging.EntityRef{target},
		Severity: logging.SeverityInfo,
		Payload:  payload,
	})
}

// Discarded publishes a cloud removal event.
func Discarded(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload DiscardedPayload) {
	publish(ctx, pub, logging.Event{Type: EventDiscarded, Tick: tick, Actor: actor, Severity: logging.SeverityInfo, Payload: payload})
}

func publish(ctx context.Context, pub logging.Publisher, event logging.Event) {
	if pub == nil {
		return
	}
	event.Category = category
	pub.Publish(ctx, event)
}
