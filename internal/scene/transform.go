package scene

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/rayforge/pathtrace/internal/mathx"
)

// Transform is position/Euler-rotation(ZYX, radians)/scale. Scale must
// stay strictly positive; callers are responsible for enforcing the
// UI's 0.1 minimum — this package only guarantees it never divides by
// a literal zero.
type Transform struct {
	Position mgl32.Vec3
	Rotation mgl32.Vec3 // Euler angles, radians, ZYX
	Scale    mgl32.Vec3
}

// NewTransform returns the identity transform.
func NewTransform() Transform {
	return Transform{
		Position: mgl32.Vec3{0, 0, 0},
		Rotation: mgl32.Vec3{0, 0, 0},
		Scale:    mgl32.Vec3{1, 1, 1},
	}
}

// safeScale clamps each scale component away from zero so downstream
// division (WorldToObject, local ray scaling) never produces Inf/NaN.
func (t Transform) safeScale() mgl32.Vec3 {
	const minScale = 1e-4
	fix := func(s float32) float32 {
		if s >= 0 && s < minScale {
			return minScale
		}
		if s < 0 && s > -minScale {
			return -minScale
		}
		return s
	}
	return mgl32.Vec3{fix(t.Scale.X()), fix(t.Scale.Y()), fix(t.Scale.Z())}
}

// HasNaN reports whether any Position/Rotation/Scale component is NaN,
// for callers that must refuse to feed a malformed transform into the
// renderer or GPU instance buffer.
func (t Transform) HasNaN() bool {
	vecs := [3]mgl32.Vec3{t.Position, t.Rotation, t.Scale}
	for _, v := range vecs {
		if math.IsNaN(float64(v.X())) || math.IsNaN(float64(v.Y())) || math.IsNaN(float64(v.Z())) {
			return true
		}
	}
	return false
}

// RotationMat3 is the Euler(ZYX)->rotation matrix.
func (t Transform) RotationMat3() mgl32.Mat3 {
	return mathx.EulerZYXMat3(t.Rotation)
}

// ObjectToWorld composes translate * rotate * scale (T*R*S).
func (t Transform) ObjectToWorld() mgl32.Mat4 {
	s := t.safeScale()
	translate := mgl32.Translate3D(t.Position.X(), t.Position.Y(), t.Position.Z())
	rotate := t.RotationMat3().Mat4()
	scale := mgl32.Scale3D(s.X(), s.Y(), s.Z())
	return translate.Mul4(rotate).Mul4(scale)
}

// WorldToObject is the cheap analytic inverse of ObjectToWorld: inverse
// scale, then the rotation transpose (valid since R is orthonormal),
// then inverse translate.
func (t Transform) WorldToObject() mgl32.Mat4 {
	s := t.safeScale()
	invScale := mgl32.Scale3D(1.0/s.X(), 1.0/s.Y(), 1.0/s.Z())
	invRotate := t.RotationMat3().Transpose().Mat4()
	invTranslate := mgl32.Translate3D(-t.Position.X(), -t.Position.Y(), -t.Position.Z())
	return invScale.Mul4(invRotate).Mul4(invTranslate)
}
