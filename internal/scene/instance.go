package scene

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/rayforge/pathtrace/internal/mathx"
	"github.com/rayforge/pathtrace/internal/meshlib"
)

// Instance is the GPU-facing record derived from an Object: its mesh
// reference, transform matrices, material, world AABB, and a
// selection flag. Renderer/picker code walks Instances, never Objects
// directly.
type Instance struct {
	MeshID        meshlib.MeshID
	Transform     Transform // source Position/Rotation/Scale, kept alongside the derived matrices below
	ObjectToWorld mgl32.Mat4
	WorldToObject mgl32.Mat4
	Material      Material
	WorldAABB     mathx.AABB
	Selected      bool
}

// NewInstance derives an Instance from an Object and its mesh's local
// AABB (meshlib.Library.AABBMin/AABBMax for obj.Type.MeshID()).
func NewInstance(obj Object, localMin, localMax mgl32.Vec3, selected bool) Instance {
	o2w := obj.Transform.ObjectToWorld()
	return Instance{
		MeshID:        obj.Type.MeshID(),
		Transform:     obj.Transform,
		ObjectToWorld: o2w,
		WorldToObject: obj.Transform.WorldToObject(),
		Material:      obj.Material,
		WorldAABB:     computeWorldAABB(o2w, localMin, localMax),
		Selected:      selected,
	}
}

// computeWorldAABB transforms a mesh's object-space AABB through all
// 8 corners and re-bounds — cheaper than recomputing from triangle
// data and correct under rotation, unlike transforming only min/max.
func computeWorldAABB(objectToWorld mgl32.Mat4, localMin, localMax mgl32.Vec3) mathx.AABB {
	local := mathx.AABB{Min: localMin, Max: localMax}
	return mathx.TransformAABB(local, objectToWorld)
}
