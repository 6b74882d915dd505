package network

import (
	"context"

	"areacloud/logging"
)

const (
	// EventSubscriberJoined is emitted when a replication subscriber connects.
	EventSubscriberJoined logging.EventType = "network.subscriber_joined"
	// EventSubscriberLeft is emitted when a replication subscriber goes away.
	EventSubscriberLeft logging.EventType = "network.subscriber_left"
)

// SubscriberPayload describes a replication session.
type SubscriberPayload struct {
	Session string `json:"session"`
	Remote  string `json:"remote,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// SubscriberJoined publishes a session open event.
func SubscriberJoined(ctx context.Context, pub logging.Publisher, tick uint64, payload SubscriberPayload) {
	publish(ctx, pub, EventSubscriberJoined, logging.SeverityInfo, tick, payload)
}

// SubscriberLeft publishes a session close event.
func SubscriberLeft(ctx context.Context, pub logging.Publisher, tick uint64, payload SubscriberPayload) {
	publish(ctx, pub, EventSubscriberLeft, logging.SeverityInfo, tick, payload)
}

func publish(ctx context.Context, pub logging.Publisher, typ logging.EventType, severity logging.Severity, tick uint64, payload SubscriberPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     typ,
		Tick:     tick,
		Severity: severity,
		Category: "network",
		Payload:  payload,
	})
}
