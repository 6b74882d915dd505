package sim

import (
	"testing"

	"areacloud/internal/telemetry"
)

func TestCommandBufferWraparound(t *testing.T) {
	buffer := NewCommandBuffer(3, nil)
	cmds := []Command{
		{OriginTick: 1},
		{OriginTick: 2},
		{OriginTick: 3},
	}
	for _, cmd := range cmds {
		if !buffer.Push(cmd) {
			t.Fatalf("expected push to succeed for %+v", cmd)
		}
	}
	if buffer.Push(Command{OriginTick: 4}) {
		t.Fatalf("expected push to fail when buffer full")
	}
	drained := buffer.Drain()
	if len(drained) != len(cmds) {
		t.Fatalf("expected %d commands, got %d", len(cmds), len(drained))
	}
	for i, cmd := range drained {
		if cmd.OriginTick != cmds[i].OriginTick {
			t.Fatalf("expected drain order %d, got %d", cmds[i].OriginTick, cmd.OriginTick)
		}
	}
	for _, cmd := range []Command{{OriginTick: 5}, {OriginTick: 6}} {
		if !buffer.Push(cmd) {
			t.Fatalf("expected push to succeed after drain for %+v", cmd)
		}
	}
	wrapped := buffer.Drain()
	if len(wrapped) != 2 || wrapped[0].OriginTick != 5 || wrapped[1].OriginTick != 6 {
		t.Fatalf("unexpected order after wraparound: %+v", wrapped)
	}
}

func TestCommandBufferMetrics(t *testing.T) {
	metrics := telemetry.NewCounters()
	buffer := NewCommandBuffer(1, metrics)
	buffer.Push(Command{})
	buffer.Push(Command{})

	snapshot := metrics.Snapshot()
	if snapshot[commandBufferOverflowMetricKey] != 1 {
		t.Fatalf("expected one overflow, got %d", snapshot[commandBufferOverflowMetricKey])
	}
	if snapshot[commandBufferOccupancyMetricKey] != 1 {
		t.Fatalf("expected occupancy 1, got %d", snapshot[commandBufferOccupancyMetricKey])
	}
	buffer.Drain()
	if metrics.Snapshot()[commandBufferOccupancyMetricKey] != 0 {
		t.Fatalf("expected occupancy reset")
	}
}
