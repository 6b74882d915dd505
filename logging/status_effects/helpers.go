package status_effects

import (
	"context"

	"areacloud/logging"
)

const (
	// EventApplied is emitted when a running effect starts or is refreshed.
	EventApplied logging.EventType = "status_effects.applied"
	// EventExpired is emitted when a running effect runs out.
	EventExpired logging.EventType = "status_effects.expired"
)

// AppliedPayload captures details about a running effect application.
type AppliedPayload struct {
	StatusEffect  string `json:"statusEffect"`
	SourceID      string `json:"sourceId,omitempty"`
	Amplifier     int    `json:"amplifier"`
	DurationTicks int    `json:"durationTicks"`
}

// ExpiredPayload names the effect that ran out.
type ExpiredPayload struct {
	StatusEffect string `json:"statusEffect"`
}

// Applied publishes a running effect application event.
func Applied(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, target logging.EntityRef, payload AppliedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventApplied,
		Tick:     tick,
		Actor:    actor,
		Targets:  []logging.EntityRef{target},
		Severity: logging.SeverityDebug,
		Category: "status_effects",
		Payload:  payload,
	})
}

// Expired publishes a running effect expiry event.
func Expired(ctx context.Context, pub logging.Publisher, tick uint64, target logging.EntityRef, payload ExpiredPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventExpired,
		Tick:     tick,
		Actor:    target,
		Severity: logging.SeverityDebug,
		Category: "status_effects",
		Payload:  payload,
	})
}
