// Package mathx collects the small set of vector/matrix/ray helpers the
// rest of the renderer shares, built on top of mgl32 rather than
// reinventing column-major matrix math.
package mathx

import "github.com/go-gl/mathgl/mgl32"

// AABB is an axis-aligned bounding box in whatever space it was computed in.
type AABB struct {
	Min mgl32.Vec3
	Max mgl32.Vec3
}

// EmptyAABB returns an AABB primed so the first Union call establishes real bounds.
func EmptyAABB() AABB {
	inf := float32(1e30)
	return AABB{
		Min: mgl32.Vec3{inf, inf, inf},
		Max: mgl32.Vec3{-inf, -inf, -inf},
	}
}

// Valid reports whether the box has ever been extended past EmptyAABB.
func (a AABB) Valid() bool {
	return a.Min.X() <= a.Max.X() && a.Min.Y() <= a.Max.Y() && a.Min.Z() <= a.Max.Z()
}

// ExtendPoint grows the box to contain p.
func (a AABB) ExtendPoint(p mgl32.Vec3) AABB {
	return AABB{
		Min: compMin(a.Min, p),
		Max: compMax(a.Max, p),
	}
}

// Union returns the box containing both a and b.
func (a AABB) Union(b AABB) AABB {
	return AABB{
		Min: compMin(a.Min, b.Min),
		Max: compMax(a.Max, b.Max),
	}
}

// Corners returns the 8 corners of the box, in a fixed enumeration order.
func (a AABB) Corners() [8]mgl32.Vec3 {
	return [8]mgl32.Vec3{
		{a.Min.X(), a.Min.Y(), a.Min.Z()},
		{a.Max.X(), a.Min.Y(), a.Min.Z()},
		{a.Min.X(), a.Max.Y(), a.Min.Z()},
		{a.Max.X(), a.Max.Y(), a.Min.Z()},
		{a.Min.X(), a.Min.Y(), a.Max.Z()},
		{a.Max.X(), a.Min.Y(), a.Max.Z()},
		{a.Min.X(), a.Max.Y(), a.Max.Z()},
		{a.Max.X(), a.Max.Y(), a.Max.Z()},
	}
}

// TransformAABB transforms the box's 8 corners by m and returns the new
// (conservative, super-set) AABB of the transformed corners.
func TransformAABB(a AABB, m mgl32.Mat4) AABB {
	out := EmptyAABB()
	for _, c := range a.Corners() {
		wc := m.Mul4x1(c.Vec4(1.0)).Vec3()
		out = out.ExtendPoint(wc)
	}
	return out
}

func compMin(a, b mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{min32(a.X(), b.X()), min32(a.Y(), b.Y()), min32(a.Z(), b.Z())}
}

func compMax(a, b mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{max32(a.X(), b.X()), max32(a.Y(), b.Y()), max32(a.Z(), b.Z())}
}

func min32(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func max32(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}
