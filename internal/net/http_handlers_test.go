package net

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"areacloud/internal/net/ws"
	"areacloud/internal/sim"
	"areacloud/internal/telemetry"
	"areacloud/internal/world"
)

func newTestHandler(t *testing.T) (http.Handler, *sim.Loop) {
	t.Helper()
	w := world.New(world.Config{})
	loop := sim.NewLoop(w, sim.LoopConfig{CommandCapacity: 1}, sim.LoopHooks{}, sim.LoopDeps{})
	hub := ws.NewHub(ws.HubConfig{Commands: loop})
	metrics := telemetry.NewCounters()
	metrics.Add("world_ticks_total", 7)
	return NewHTTPHandler(hub, HTTPHandlerConfig{Commands: loop, Metrics: metrics, TickRate: 20}), loop
}

func TestHealth(t *testing.T) {
	handler, _ := newTestHandler(t)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health", nil))
	if resp.Code != http.StatusOK || resp.Body.String() != "ok" {
		t.Fatalf("expected ok, got %d %q", resp.Code, resp.Body.String())
	}
}

func TestDiagnosticsIncludesTelemetry(t *testing.T) {
	handler, _ := newTestHandler(t)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/diagnostics", nil))

	if contentType := resp.Header().Get("Content-Type"); contentType != "application/json" {
		t.Fatalf("expected Content-Type application/json, got %q", contentType)
	}
	var payload struct {
		TickRate  int               `json:"tickRate"`
		Telemetry map[string]uint64 `json:"telemetry"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode diagnostics: %v", err)
	}
	if payload.TickRate != 20 || payload.Telemetry["world_ticks_total"] != 7 {
		t.Fatalf("unexpected diagnostics %s", resp.Body.String())
	}
}

func TestCommandsEndpoint(t *testing.T) {
	handler, loop := newTestHandler(t)

	body := `{"type":"SpawnLiving","spawnLiving":{"position":{"x":1,"y":0,"z":2}}}`
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/commands", strings.NewReader(body)))
	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", resp.Code, resp.Body.String())
	}
	if loop.Pending() != 1 {
		t.Fatalf("expected command staged, got %d", loop.Pending())
	}

	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/commands", strings.NewReader(body)))
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 when the queue is full, got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/commands", bytes.NewReader([]byte(`{"type":"Move"}`))))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a missing payload, got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/commands", nil))
	if resp.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.Code)
	}
}
