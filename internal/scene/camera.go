package scene

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Camera clamp bounds.
const (
	MinDistance = 0.5
	MaxDistance = 100.0
	// Kept strictly inside +-pi/2 so the view direction never becomes
	// parallel to Up, which would degenerate View's look-at matrix.
	minElevation = -math.Pi/2 + 0.1
	maxElevation = math.Pi/2 - 0.1
	ZNear        = 0.1
	ZFar         = 1000.0
)

// Camera is an orbit camera: position is derived from Target plus a
// distance/azimuth/elevation offset. The teacher's camera
// (voxelrt/rt/core/camera.go) was a first-person yaw/pitch rig; this
// redesigns it to orbit around a target point, since a scene editor
// orbits its subject rather than flies through a world (an explicit
// feature change, see DESIGN.md).
type Camera struct {
	Target    mgl32.Vec3
	Up        mgl32.Vec3
	FovY      float32 // radians
	Distance  float32
	Azimuth   float32 // radians, wraps freely
	Elevation float32 // radians, clamped to (-pi/2+0.1, pi/2-0.1)
}

// NewCamera returns a reasonable default orbit camera.
func NewCamera() Camera {
	return Camera{
		Target:    mgl32.Vec3{0, 0, 0},
		Up:        mgl32.Vec3{0, 1, 0},
		FovY:      mgl32.DegToRad(50),
		Distance:  8,
		Azimuth:   mgl32.DegToRad(45),
		Elevation: mgl32.DegToRad(30),
	}
}

// Clamped returns c with Distance/Elevation pulled back inside their
// legal ranges; Azimuth is left to wrap freely.
func (c Camera) Clamped() Camera {
	c.Distance = clamp32(c.Distance, MinDistance, MaxDistance)
	c.Elevation = clamp32(c.Elevation, float32(minElevation), float32(maxElevation))
	return c
}

func clamp32(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Position is target + distance * (cos(el)*sin(az), sin(el), cos(el)*cos(az)).
func (c Camera) Position() mgl32.Vec3 {
	sa, ca := math.Sincos(float64(c.Azimuth))
	se, ce := math.Sincos(float64(c.Elevation))
	offset := mgl32.Vec3{
		float32(ce * sa),
		float32(se),
		float32(ce * ca),
	}
	return c.Target.Add(offset.Mul(c.Distance))
}

// View is the standard look-at view matrix toward Target.
func (c Camera) View() mgl32.Mat4 {
	return mgl32.LookAtV(c.Position(), c.Target, c.Up)
}

// Projection is a standard perspective projection with zNear=0.1, zFar=1000.
func (c Camera) Projection(aspect float32) mgl32.Mat4 {
	return mgl32.Perspective(c.FovY, aspect, ZNear, ZFar)
}

// InverseView and InverseProjection feed the compute shader's primary
// ray unprojection: NDC -> view -> world.
func (c Camera) InverseView() mgl32.Mat4 {
	return c.View().Inv()
}

func (c Camera) InverseProjection(aspect float32) mgl32.Mat4 {
	return c.Projection(aspect).Inv()
}
