// Package net exposes the HTTP surface of the server.
package net

import (
	"encoding/json"
	"errors"
	nethttp "net/http"
	"time"

	"areacloud/internal/net/ws"
	"areacloud/internal/sim"
	"areacloud/internal/telemetry"
)

// CounterSnapshot exposes recorded metrics for diagnostics.
type CounterSnapshot interface {
	Snapshot() map[string]uint64
}

// HTTPHandlerConfig wires the collaborators of the HTTP surface.
type HTTPHandlerConfig struct {
	Logger   telemetry.Logger
	Commands ws.CommandSink
	Metrics  CounterSnapshot
	TickRate int
}

// NewHTTPHandler routes health, diagnostics, command intake and the
// replication websocket.
func NewHTTPHandler(hub *ws.Hub, cfg HTTPHandlerConfig) nethttp.Handler {
	mux := nethttp.NewServeMux()

	mux.HandleFunc("/health", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/diagnostics", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		payload := struct {
			Status      string            `json:"status"`
			ServerTime  int64             `json:"serverTime"`
			Tick        uint64            `json:"tick"`
			TickRate    int               `json:"tickRate"`
			Subscribers int               `json:"subscribers"`
			Telemetry   map[string]uint64 `json:"telemetry,omitempty"`
		}{
			Status:      "ok",
			ServerTime:  time.Now().UnixMilli(),
			Tick:        hub.Tick(),
			TickRate:    cfg.TickRate,
			Subscribers: hub.Subscribers(),
		}
		if cfg.Metrics != nil {
			payload.Telemetry = cfg.Metrics.Snapshot()
		}
		writeJSON(w, nethttp.StatusOK, payload)
	})

	mux.HandleFunc("/commands", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodPost {
			httpError(w, "method not allowed", nethttp.StatusMethodNotAllowed)
			return
		}
		if cfg.Commands == nil {
			httpError(w, "commands unavailable", nethttp.StatusServiceUnavailable)
			return
		}
		defer r.Body.Close()
		var cmd sim.Command
		if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
			httpError(w, "invalid payload", nethttp.StatusBadRequest)
			return
		}
		cmd.OriginTick = hub.Tick()
		if err := cfg.Commands.Enqueue(cmd); err != nil {
			if errors.Is(err, sim.ErrQueueFull) {
				httpError(w, err.Error(), nethttp.StatusServiceUnavailable)
				return
			}
			httpError(w, err.Error(), nethttp.StatusBadRequest)
			return
		}
		writeJSON(w, nethttp.StatusAccepted, struct {
			Status string `json:"status"`
			Tick   uint64 `json:"tick"`
		}{Status: "queued", Tick: cmd.OriginTick})
	})

	handler := ws.NewHandler(hub, ws.HandlerConfig{Logger: cfg.Logger})
	mux.HandleFunc("/ws", handler.Handle)

	return mux
}

func writeJSON(w nethttp.ResponseWriter, status int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		httpError(w, "failed to encode", nethttp.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

func httpError(w nethttp.ResponseWriter, message string, status int) {
	nethttp.Error(w, message, status)
}
