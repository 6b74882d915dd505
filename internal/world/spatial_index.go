package world

import (
	"math"

	"github.com/google/uuid"

	"areacloud/internal/geom"
)

// SpatialCellKey identifies a grid cell on the X/Z plane.
type SpatialCellKey struct {
	X int
	Z int
}

type spatialEntry struct {
	cells []SpatialCellKey
}

const (
	// DefaultSpatialCellSize is the edge length of one grid cell in blocks.
	DefaultSpatialCellSize = 8.0
	// SpatialMinExtentFraction clamps narrow bounds to ensure occupancy.
	SpatialMinExtentFraction = 0.25
)

// SpatialIndex buckets entity footprints into a uniform X/Z grid.
type SpatialIndex struct {
	cellSize    float64
	invCellSize float64
	cells       map[SpatialCellKey][]uuid.UUID
	entries     map[uuid.UUID]*spatialEntry
}

// NewSpatialIndex constructs an index. A non-positive cell size selects the
// default.
func NewSpatialIndex(cellSize float64) *SpatialIndex {
	if cellSize <= 0 {
		cellSize = DefaultSpatialCellSize
	}
	return &SpatialIndex{
		cellSize:    cellSize,
		invCellSize: 1.0 / cellSize,
		cells:       make(map[SpatialCellKey][]uuid.UUID),
		entries:     make(map[uuid.UUID]*spatialEntry),
	}
}

// Upsert inserts or moves an entity footprint.
func (idx *SpatialIndex) Upsert(id uuid.UUID, box geom.AABB) {
	if idx == nil || id == uuid.Nil {
		return
	}
	if entry, ok := idx.entries[id]; ok {
		idx.removeFromCells(id, entry.cells)
	}
	cells := idx.cellsFor(box)
	idx.entries[id] = &spatialEntry{cells: cells}
	for _, cell := range cells {
		idx.cells[cell] = append(idx.cells[cell], id)
	}
}

// Remove deletes an entity from the index.
func (idx *SpatialIndex) Remove(id uuid.UUID) {
	if idx == nil {
		return
	}
	entry, ok := idx.entries[id]
	if !ok {
		return
	}
	idx.removeFromCells(id, entry.cells)
	delete(idx.entries, id)
}

// Len returns the number of indexed entities.
func (idx *SpatialIndex) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.entries)
}

// Query returns the ids of every entity sharing a cell with the region. Each
// id appears once; order is unspecified.
func (idx *SpatialIndex) Query(region geom.AABB) []uuid.UUID {
	if idx == nil || len(idx.entries) == 0 {
		return nil
	}
	seen := make(map[uuid.UUID]struct{})
	var out []uuid.UUID
	for _, cell := range idx.cellsFor(region) {
		for _, id := range idx.cells[cell] {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}

func (idx *SpatialIndex) removeFromCells(id uuid.UUID, cells []SpatialCellKey) {
	for _, cell := range cells {
		bucket := idx.cells[cell]
		for i := range bucket {
			if bucket[i] != id {
				continue
			}
			bucket[i] = bucket[len(bucket)-1]
			bucket = bucket[:len(bucket)-1]
			break
		}
		if len(bucket) == 0 {
			delete(idx.cells, cell)
		} else {
			idx.cells[cell] = bucket
		}
	}
}

func (idx *SpatialIndex) cellsFor(box geom.AABB) []SpatialCellKey {
	minExtent := idx.cellSize * SpatialMinExtentFraction
	width := math.Max(math.Abs(box.Max.X-box.Min.X), minExtent)
	depth := math.Max(math.Abs(box.Max.Z-box.Min.Z), minExtent)
	minX := idx.coordToCell(box.Min.X)
	minZ := idx.coordToCell(box.Min.Z)
	maxX := idx.coordToCell(box.Min.X + width)
	maxZ := idx.coordToCell(box.Min.Z + depth)
	cells := make([]SpatialCellKey, 0, (maxX-minX+1)*(maxZ-minZ+1))
	for row := minZ; row <= maxZ; row++ {
		for col := minX; col <= maxX; col++ {
			cells = append(cells, SpatialCellKey{X: col, Z: row})
		}
	}
	return cells
}

func (idx *SpatialIndex) coordToCell(value float64) int {
	return int(math.Floor(value * idx.invCellSize))
}
