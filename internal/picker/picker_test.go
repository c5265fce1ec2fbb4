package picker

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/rayforge/pathtrace/internal/mathx"
	"github.com/rayforge/pathtrace/internal/meshlib"
	"github.com/rayforge/pathtrace/internal/scene"
	"github.com/stretchr/testify/require"
)

func sphereInstance(pos mgl32.Vec3, lib *meshlib.Library) scene.Instance {
	tr := scene.NewTransform()
	tr.Position = pos
	obj := scene.Object{
		ID:        "sphere",
		Type:      scene.Sphere,
		Transform: tr,
		Material:  scene.DefaultMaterial(),
		Visible:   true,
	}
	return scene.NewInstance(obj, lib.AABBMin[meshlib.MeshSphere], lib.AABBMax[meshlib.MeshSphere], false)
}

func TestPickHitsNearestSphere(t *testing.T) {
	lib := meshlib.Build(8)

	near := sphereInstance(mgl32.Vec3{0, 0, 0}, lib)
	far := sphereInstance(mgl32.Vec3{0, 0, -10}, lib)

	ray := mathx.Ray{Origin: mgl32.Vec3{0, 0, 5}, Direction: mgl32.Vec3{0, 0, -1}}

	hit, ok := Pick(ray, lib, []scene.Instance{near, far})
	require.True(t, ok)
	require.Equal(t, 0, hit.InstanceIndex)
	require.InDelta(t, 4.0, hit.T, 0.05)
}

func TestPickMissesWhenNoInstanceInPath(t *testing.T) {
	lib := meshlib.Build(8)
	inst := sphereInstance(mgl32.Vec3{10, 10, 10}, lib)

	ray := mathx.Ray{Origin: mgl32.Vec3{0, 0, 5}, Direction: mgl32.Vec3{0, 0, -1}}

	_, ok := Pick(ray, lib, []scene.Instance{inst})
	require.False(t, ok)
}

func TestPickNormalMatchesAnalyticSphereNormal(t *testing.T) {
	lib := meshlib.Build(8)
	inst := sphereInstance(mgl32.Vec3{0, 0, 0}, lib)

	ray := mathx.Ray{Origin: mgl32.Vec3{0, 0, 5}, Direction: mgl32.Vec3{0, 0, -1}}

	hit, ok := Pick(ray, lib, []scene.Instance{inst})
	require.True(t, ok)

	hitPoint := ray.Origin.Add(ray.Direction.Mul(hit.T))
	wantNormal := hitPoint.Normalize() // unit sphere centered at origin: normal == hit point direction

	// A proper barycentric blend of all three hit-triangle vertex
	// normals should track the analytic surface normal closely; an
	// unweighted two-vertex average would drift well past this.
	require.InDelta(t, wantNormal.X(), hit.Normal.X(), 0.05)
	require.InDelta(t, wantNormal.Y(), hit.Normal.Y(), 0.05)
	require.InDelta(t, wantNormal.Z(), hit.Normal.Z(), 0.05)
}

func TestRayBuildsForwardDirectionAtCenterOfScreen(t *testing.T) {
	cam := scene.NewCamera()
	ray := Ray(cam, 0, 0, 1.0)
	toTarget := cam.Target.Sub(cam.Position()).Normalize()
	require.InDelta(t, toTarget.X(), ray.Direction.X(), 1e-3)
	require.InDelta(t, toTarget.Y(), ray.Direction.Y(), 1e-3)
	require.InDelta(t, toTarget.Z(), ray.Direction.Z(), 1e-3)
}
