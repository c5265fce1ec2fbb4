package mathx

import "github.com/go-gl/mathgl/mgl32"

// Ray is a world- or object-space ray, depending on caller context.
type Ray struct {
	Origin    mgl32.Vec3
	Direction mgl32.Vec3
}

// IntersectAABB runs the standard slab test and returns the entry/exit
// distances along the ray. tMin > tMax (or tMax < 0) means a miss.
func IntersectAABB(r Ray, box AABB) (tMin, tMax float32) {
	invDX := 1.0 / (r.Direction.X() + tinyEps(r.Direction.X()))
	invDY := 1.0 / (r.Direction.Y() + tinyEps(r.Direction.Y()))
	invDZ := 1.0 / (r.Direction.Z() + tinyEps(r.Direction.Z()))

	t1x := (box.Min.X() - r.Origin.X()) * invDX
	t2x := (box.Max.X() - r.Origin.X()) * invDX
	t1y := (box.Min.Y() - r.Origin.Y()) * invDY
	t2y := (box.Max.Y() - r.Origin.Y()) * invDY
	t1z := (box.Min.Z() - r.Origin.Z()) * invDZ
	t2z := (box.Max.Z() - r.Origin.Z()) * invDZ

	tMin = max32(max32(min32(t1x, t2x), min32(t1y, t2y)), min32(t1z, t2z))
	tMax = min32(min32(max32(t1x, t2x), max32(t1y, t2y)), max32(t1z, t2z))
	return tMin, tMax
}

// tinyEps nudges a near-zero direction component so 1/d never divides by
// exactly zero; the sign keeps the nudge consistent with the component.
func tinyEps(d float32) float32 {
	const eps = 1e-8
	if d < 0 {
		return -eps
	}
	return eps
}

// TriangleHit is the result of a Möller-Trumbore intersection.
type TriangleHit struct {
	T    float32
	U, V float32
}

const triangleEpsilon = 1e-7

// IntersectTriangle implements Möller-Trumbore with an explicit
// determinant epsilon. ok is false on a miss or a grazing/degenerate
// triangle.
func IntersectTriangle(r Ray, v0, v1, v2 mgl32.Vec3) (hit TriangleHit, ok bool) {
	edge1 := v1.Sub(v0)
	edge2 := v2.Sub(v0)
	pvec := r.Direction.Cross(edge2)
	det := edge1.Dot(pvec)
	if det > -triangleEpsilon && det < triangleEpsilon {
		return TriangleHit{}, false
	}
	invDet := 1.0 / det

	tvec := r.Origin.Sub(v0)
	u := tvec.Dot(pvec) * invDet
	if u < 0 || u > 1 {
		return TriangleHit{}, false
	}

	qvec := tvec.Cross(edge1)
	v := r.Direction.Dot(qvec) * invDet
	if v < 0 || u+v > 1 {
		return TriangleHit{}, false
	}

	t := edge2.Dot(qvec) * invDet
	return TriangleHit{T: t, U: u, V: v}, true
}
