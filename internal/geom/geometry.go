// Package geom holds the small 3D value types shared by the world and its
// entities. Y is up; the ground plane is X/Z.
package geom

// Vec3 is a point or displacement in world space.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Add returns v+o.
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z}
}

// PlanarDistanceSq returns the squared horizontal distance between v and o,
// ignoring height.
func (v Vec3) PlanarDistanceSq(o Vec3) float64 {
	dx := o.X - v.X
	dz := o.Z - v.Z
	return dx*dx + dz*dz
}

// AABB is an axis-aligned box with inclusive bounds.
type AABB struct {
	Min Vec3 `json:"min"`
	Max Vec3 `json:"max"`
}

// Cylinder returns the bounding box of an upright cylinder whose base centre
// is at base.
func Cylinder(base Vec3, radius, height float64) AABB {
	return AABB{
		Min: Vec3{X: base.X - radius, Y: base.Y, Z: base.Z - radius},
		Max: Vec3{X: base.X + radius, Y: base.Y + height, Z: base.Z + radius},
	}
}

// Intersects reports whether the boxes overlap, touching faces included.
func (b AABB) Intersects(o AABB) bool {
	return b.Min.X <= o.Max.X && b.Max.X >= o.Min.X &&
		b.Min.Y <= o.Max.Y && b.Max.Y >= o.Min.Y &&
		b.Min.Z <= o.Max.Z && b.Max.Z >= o.Min.Z
}

// Width returns the X extent.
func (b AABB) Width() float64 {
	return b.Max.X - b.Min.X
}
