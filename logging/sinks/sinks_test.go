package sinks

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"areacloud/logging"
)

func sampleEvent() logging.Event {
	return logging.Event{
		Type:     "cloud.applied",
		Tick:     25,
		Time:     time.Unix(1700, 0),
		Actor:    logging.EntityRef{ID: "c1", Kind: logging.EntityKindCloud},
		Targets:  []logging.EntityRef{{ID: "l1", Kind: logging.EntityKindLiving}},
		Severity: logging.SeverityWarn,
		Category: "cloud",
		Payload:  map[string]int{"effects": 2},
		Extra:    map[string]any{"region": "spawn"},
	}
}

func TestConsoleFormatsEvent(t *testing.T) {
	var buf bytes.Buffer
	sink := NewConsole(&buf)
	if err := sink.Write(sampleEvent()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	line := buf.String()
	for _, want := range []string{"[cloud.applied]", "tick=25", "actor=cloud:c1", "severity=warn", "targets=living:l1", `payload={"effects":2}`} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %q in %q", want, line)
		}
	}
}

func TestJSONWritesOneObjectPerEvent(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSON(&buf, 0)
	if err := sink.Write(sampleEvent()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("expected valid json, got %q: %v", buf.String(), err)
	}
	if decoded["type"] != "cloud.applied" || decoded["severity"] != "warn" {
		t.Fatalf("unexpected payload %v", decoded)
	}
	if err := sink.Close(context.Background()); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}
}

func TestLogrusMapsSeverityAndFields(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.DebugLevel)

	if err := NewLogrus(logger).Write(sampleEvent()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("expected json log line, got %q: %v", buf.String(), err)
	}
	if decoded["level"] != "warning" || decoded["msg"] != "cloud.applied" {
		t.Fatalf("unexpected level or message: %v", decoded)
	}
	if decoded["actor"] != "cloud:c1" || decoded["region"] != "spawn" {
		t.Fatalf("expected actor and extra fields, got %v", decoded)
	}
}

func TestMemoryIsolatesStoredEvents(t *testing.T) {
	sink := NewMemory()
	event := sampleEvent()
	sink.Publish(context.Background(), event)
	event.Extra["region"] = "mutated"
	stored := sink.OfType("cloud.applied")
	if len(stored) != 1 || stored[0].Extra["region"] != "spawn" {
		t.Fatalf("expected stored event to be isolated, got %+v", stored)
	}
	sink.Reset()
	if len(sink.Events()) != 0 {
		t.Fatalf("expected reset to clear events")
	}
}
