// Package proto defines the JSON payloads exchanged over the replication
// websocket.
package proto

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"areacloud/internal/geom"
	"areacloud/internal/sim"
	"areacloud/internal/synced"
)

const (
	// Version tracks the wire-protocol revision expected by clients.
	Version = 1

	// Server message type identifiers.
	TypeState         = "state"
	TypeCommandAck    = "commandAck"
	TypeCommandReject = "commandReject"
	TypeHeartbeat     = "heartbeat"

	// Client message type identifiers.
	TypeCommand = "command"
)

// Reject reasons reported to clients.
const (
	RejectInvalid     = "invalid"
	RejectQueueFull   = "queue_full"
	RejectUnavailable = "unavailable"
)

// CloudState carries replicated fields of one cloud. A snapshot lists every
// field; an update lists the fields changed since the previous frame.
type CloudState struct {
	ID       uuid.UUID       `json:"id"`
	Position geom.Vec3       `json:"position"`
	Fields   []synced.Update `json:"fields,omitempty"`
}

// State is a replication frame.
type State struct {
	Ver     int          `json:"ver"`
	Type    string       `json:"type"`
	Tick    uint64       `json:"tick"`
	Resync  bool         `json:"resync,omitempty"`
	Clouds  []CloudState `json:"clouds,omitempty"`
	Removed []uuid.UUID  `json:"removed,omitempty"`
}

// ClientMessage is any payload sent by a client.
type ClientMessage struct {
	Ver     int          `json:"ver,omitempty"`
	Type    string       `json:"type"`
	Seq     uint64       `json:"seq,omitempty"`
	SentAt  int64        `json:"sentAt,omitempty"`
	Command *sim.Command `json:"command,omitempty"`
}

// CommandAck confirms a staged command.
type CommandAck struct {
	Ver  int    `json:"ver"`
	Type string `json:"type"`
	Seq  uint64 `json:"seq"`
	Tick uint64 `json:"tick,omitempty"`
}

// CommandReject explains why a command was not staged.
type CommandReject struct {
	Ver    int    `json:"ver"`
	Type   string `json:"type"`
	Seq    uint64 `json:"seq"`
	Reason string `json:"reason"`
	Retry  bool   `json:"retry,omitempty"`
}

// Heartbeat echoes the client clock back with the server time.
type Heartbeat struct {
	Ver        int    `json:"ver"`
	Type       string `json:"type"`
	ServerTime int64  `json:"serverTime"`
	ClientTime int64  `json:"clientTime"`
}

type envelope struct {
	Ver  int    `json:"ver"`
	Type string `json:"type"`
}

// EncodeState renders a state frame, filling in the version and type.
func EncodeState(msg State) ([]byte, error) {
	msg.Ver = Version
	msg.Type = TypeState
	return json.Marshal(msg)
}

// PeekType returns the type identifier of a payload without decoding the
// rest of it. Payloads from a newer protocol revision are refused.
func PeekType(data []byte) (string, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", err
	}
	if env.Ver > Version {
		return "", fmt.Errorf("proto: unsupported version %d", env.Ver)
	}
	if env.Type == "" {
		return "", fmt.Errorf("proto: missing message type")
	}
	return env.Type, nil
}
