// Package ws replicates cloud state to websocket clients and accepts their
// simulation commands.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	nethttp "net/http"
	"time"

	"github.com/gorilla/websocket"

	"areacloud/internal/net/proto"
	"areacloud/internal/sim"
	"areacloud/internal/telemetry"
)

// HandlerConfig wires the optional collaborators of a handler.
type HandlerConfig struct {
	Logger telemetry.Logger
}

// Handler upgrades requests and serves one replication session each.
type Handler struct {
	hub      *Hub
	logger   telemetry.Logger
	upgrader websocket.Upgrader
}

// NewHandler constructs a websocket session handler for the given hub.
func NewHandler(hub *Hub, cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.LoggerFunc(nil)
	}
	return &Handler{
		hub:    hub,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *nethttp.Request) bool {
				return true
			},
		},
	}
}

// Handle upgrades the request and runs the session until the client leaves.
func (h *Handler) Handle(w nethttp.ResponseWriter, r *nethttp.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("upgrade failed for %s: %v", r.RemoteAddr, err)
		return
	}
	ctx := context.WithoutCancel(r.Context())
	sub, err := h.hub.Subscribe(ctx, conn, r.RemoteAddr)
	if err != nil {
		message := websocket.FormatCloseMessage(websocket.CloseTryAgainLater, err.Error())
		conn.WriteMessage(websocket.CloseMessage, message)
		conn.Close()
		return
	}
	h.serve(ctx, sub)
}

func (h *Handler) serve(ctx context.Context, sub *Subscriber) {
	for {
		_, payload, err := sub.conn.ReadMessage()
		if err != nil {
			reason := "read failed"
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) || errors.Is(err, io.EOF) {
				reason = "client closed"
			}
			h.hub.Unsubscribe(ctx, sub.id, reason)
			return
		}

		typ, err := proto.PeekType(payload)
		if err != nil {
			h.logger.Printf("discarding malformed message from %s: %v", sub.id, err)
			continue
		}

		var msg proto.ClientMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			h.logger.Printf("discarding malformed %s message from %s: %v", typ, sub.id, err)
			continue
		}

		var reply any
		switch typ {
		case proto.TypeCommand:
			reply = h.handleCommand(sub, msg)
		case proto.TypeHeartbeat:
			reply = proto.Heartbeat{
				Ver:        proto.Version,
				Type:       proto.TypeHeartbeat,
				ServerTime: time.Now().UnixMilli(),
				ClientTime: msg.SentAt,
			}
		default:
			h.logger.Printf("unknown message type %q from %s", typ, sub.id)
		}
		if reply == nil {
			continue
		}
		if err := sub.WriteJSON(reply); err != nil {
			h.hub.Unsubscribe(ctx, sub.id, "write failed")
			return
		}
	}
}

// handleCommand stages the command and returns the ack or reject to send.
// Commands without a sequence number get no reply. Sequence numbers at or
// below the last accepted one are acknowledged again without staging.
func (h *Handler) handleCommand(sub *Subscriber, msg proto.ClientMessage) any {
	seq := msg.Seq
	reject := func(reason string, retry bool) any {
		if seq == 0 {
			return nil
		}
		return proto.CommandReject{Ver: proto.Version, Type: proto.TypeCommandReject, Seq: seq, Reason: reason, Retry: retry}
	}

	if seq > 0 {
		if last := sub.lastCommandSeq.Load(); last > 0 && seq <= last {
			return proto.CommandAck{Ver: proto.Version, Type: proto.TypeCommandAck, Seq: seq}
		}
	}
	if msg.Command == nil {
		return reject(proto.RejectInvalid, false)
	}
	sink := h.hub.cfg.Commands
	if sink == nil {
		return reject(proto.RejectUnavailable, false)
	}

	cmd := *msg.Command
	cmd.OriginTick = h.hub.Tick()
	if err := sink.Enqueue(cmd); err != nil {
		if errors.Is(err, sim.ErrQueueFull) {
			return reject(proto.RejectQueueFull, true)
		}
		h.logger.Printf("rejected command from %s: %v", sub.id, err)
		return reject(proto.RejectInvalid, false)
	}
	if seq == 0 {
		return nil
	}
	sub.lastCommandSeq.Store(seq)
	return proto.CommandAck{Ver: proto.Version, Type: proto.TypeCommandAck, Seq: seq, Tick: cmd.OriginTick}
}
