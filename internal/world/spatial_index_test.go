package world

import (
	"testing"

	"github.com/google/uuid"

	"areacloud/internal/geom"
)

func TestSpatialIndexUpsertMovesEntity(t *testing.T) {
	idx := NewSpatialIndex(4)
	id := uuid.New()
	idx.Upsert(id, geom.Cylinder(geom.Vec3{X: 1, Z: 1}, 0.3, 1.8))

	near := geom.Cylinder(geom.Vec3{}, 2, 0.5)
	far := geom.Cylinder(geom.Vec3{X: 40, Z: 40}, 2, 0.5)
	if got := idx.Query(near); len(got) != 1 || got[0] != id {
		t.Fatalf("expected entity near origin, got %v", got)
	}
	idx.Upsert(id, geom.Cylinder(geom.Vec3{X: 40, Z: 40}, 0.3, 1.8))
	if got := idx.Query(near); len(got) != 0 {
		t.Fatalf("expected entity moved away, got %v", got)
	}
	if got := idx.Query(far); len(got) != 1 {
		t.Fatalf("expected entity at new cell, got %v", got)
	}
	if idx.Len() != 1 {
		t.Fatalf("expected one entry, got %d", idx.Len())
	}
}

func TestSpatialIndexQueryDeduplicatesAcrossCells(t *testing.T) {
	idx := NewSpatialIndex(1)
	id := uuid.New()
	idx.Upsert(id, geom.AABB{Min: geom.Vec3{X: -2, Z: -2}, Max: geom.Vec3{X: 2, Z: 2}})
	got := idx.Query(geom.AABB{Min: geom.Vec3{X: -3, Z: -3}, Max: geom.Vec3{X: 3, Z: 3}})
	if len(got) != 1 {
		t.Fatalf("expected a single id, got %d", len(got))
	}
	idx.Remove(id)
	if idx.Len() != 0 || len(idx.cells) != 0 {
		t.Fatalf("expected index emptied")
	}
}
