package scene

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransformRoundTrip(t *testing.T) {
	tr := Transform{
		Position: mgl32.Vec3{1, 2, 3},
		Rotation: mgl32.Vec3{0.3, 0.6, 1.1},
		Scale:    mgl32.Vec3{2, 0.5, 3},
	}
	o2w := tr.ObjectToWorld()
	w2o := tr.WorldToObject()

	p := mgl32.Vec3{0.4, -0.2, 0.9}
	world := mgl32.TransformCoordinate(p, o2w)
	back := mgl32.TransformCoordinate(world, w2o)

	assert.InDelta(t, p.X(), back.X(), 1e-3)
	assert.InDelta(t, p.Y(), back.Y(), 1e-3)
	assert.InDelta(t, p.Z(), back.Z(), 1e-3)
}

func TestTransformZeroScaleClamped(t *testing.T) {
	tr := NewTransform()
	tr.Scale = mgl32.Vec3{0, 1, 1}
	w2o := tr.WorldToObject()
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			v := w2o.At(i, j)
			assert.False(t, math.IsInf(float64(v), 0))
			assert.False(t, math.IsNaN(float64(v)))
		}
	}
}

func TestTransformHasNaNDetectsEachComponent(t *testing.T) {
	ok := NewTransform()
	assert.False(t, ok.HasNaN())

	badPos := NewTransform()
	badPos.Position = mgl32.Vec3{float32(math.NaN()), 0, 0}
	assert.True(t, badPos.HasNaN())

	badRot := NewTransform()
	badRot.Rotation = mgl32.Vec3{0, float32(math.NaN()), 0}
	assert.True(t, badRot.HasNaN())

	badScale := NewTransform()
	badScale.Scale = mgl32.Vec3{0, 0, float32(math.NaN())}
	assert.True(t, badScale.HasNaN())
}

func TestCameraClampedDistanceAndElevation(t *testing.T) {
	c := NewCamera()
	c.Distance = 1000
	c.Elevation = math.Pi
	c = c.Clamped()
	assert.LessOrEqual(t, c.Distance, float32(MaxDistance))
	assert.Less(t, c.Elevation, float32(math.Pi/2))
	assert.Greater(t, c.Elevation, float32(-math.Pi/2))

	c2 := NewCamera()
	c2.Distance = 0.01
	c2 = c2.Clamped()
	assert.GreaterOrEqual(t, c2.Distance, float32(MinDistance))
}

func TestCameraPositionAtZeroElevationLiesInXZPlane(t *testing.T) {
	c := NewCamera()
	c.Elevation = 0
	c.Azimuth = 0
	c.Distance = 5
	c.Target = mgl32.Vec3{0, 0, 0}
	pos := c.Position()
	assert.InDelta(t, 0.0, pos.Y(), 1e-5)
	assert.InDelta(t, 5.0, pos.Z(), 1e-4)
}

func TestSceneAddObjectRespectsCap(t *testing.T) {
	s := NewScene()
	for i := 0; i < MaxInstances; i++ {
		require.NoError(t, s.AddObject(Object{ID: "o", Visible: true}))
	}
	err := s.AddObject(Object{ID: "overflow"})
	require.Error(t, err)
	assert.Len(t, s.Objects, MaxInstances)
}

func TestSceneVersionIncrementsOnMutation(t *testing.T) {
	s := NewScene()
	v0 := s.Version
	require.NoError(t, s.AddObject(Object{ID: "a"}))
	assert.Greater(t, s.Version, v0)

	v1 := s.Version
	s.SetSelected("a")
	assert.Greater(t, s.Version, v1)

	v2 := s.Version
	s.UpdateTransform("a", NewTransform())
	assert.Greater(t, s.Version, v2)

	v3 := s.Version
	s.RemoveObject("a")
	assert.Greater(t, s.Version, v3)
	assert.Empty(t, s.Objects)
	assert.Empty(t, s.SelectedID)
}

func TestSnapshotIsIndependentCopy(t *testing.T) {
	s := NewScene()
	require.NoError(t, s.AddObject(Object{ID: "a", Name: "A"}))
	snap := s.Snapshot()

	require.NoError(t, s.AddObject(Object{ID: "b", Name: "B"}))
	assert.Len(t, snap.Objects, 1)
	assert.Len(t, s.Objects, 2)
}

func TestComputeWorldAABBUnderRotation(t *testing.T) {
	tr := NewTransform()
	tr.Rotation = mgl32.Vec3{0, mgl32.DegToRad(45), 0}
	o2w := tr.ObjectToWorld()

	aabb := computeWorldAABB(o2w, mgl32.Vec3{-1, -1, -1}, mgl32.Vec3{1, 1, 1})
	assert.Greater(t, aabb.Max.X(), float32(1.0))
	assert.Less(t, aabb.Min.X(), float32(-1.0))
}
