package telemetry

import (
	"bytes"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestLogrusSatisfiesLogger(t *testing.T) {
	var buf bytes.Buffer
	base := logrus.New()
	base.SetOutput(&buf)
	base.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})

	var logger Logger = base
	logger.Printf("hello %s", "world")
	if !strings.Contains(buf.String(), "hello world") {
		t.Fatalf("unexpected log output: %q", buf.String())
	}
}

func TestLoggerFunc(t *testing.T) {
	var got string
	logger := LoggerFunc(func(format string, args ...any) {
		got = format
	})
	logger.Printf("ping")
	if got != "ping" {
		t.Fatalf("expected forwarded format, got %q", got)
	}

	var nilFunc LoggerFunc
	nilFunc.Printf("ignored")
}

func TestCounters(t *testing.T) {
	metrics := NewCounters()
	metrics.Add("test_counter", 2)
	metrics.Store("test_counter", 5)
	metrics.Add("test_counter", 3)
	metrics.Add("other", 1)

	snapshot := metrics.Snapshot()
	if got := snapshot["test_counter"]; got != 8 {
		t.Fatalf("unexpected metric value: %d", got)
	}
	if keys := metrics.Keys(); len(keys) != 2 || keys[0] != "other" {
		t.Fatalf("unexpected keys: %v", keys)
	}

	var nilCounters *Counters
	nilCounters.Add("ignored", 1)
	nilCounters.Store("ignored", 1)
}
