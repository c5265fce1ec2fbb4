// Package picker implements the CPU ray picker: given a screen-space
// mouse position, find the closest visible instance the ray hits. The
// broad/narrow-phase structure (world AABB reject, then transform into
// object space) mirrors the teacher's Editor.Pick/GetPickRay
// (voxelrt/rt/editor/editor.go), with the teacher's per-voxel RayMarch
// narrow phase replaced by a BLAS walk + Möller-Trumbore test over the
// same mesh library the GPU path tracer reads.
package picker

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/rayforge/pathtrace/internal/mathx"
	"github.com/rayforge/pathtrace/internal/meshlib"
	"github.com/rayforge/pathtrace/internal/scene"
)

// Hit is the result of a successful pick: the hit instance's index into
// the snapshot's visible-instance slice, the world-space distance, and
// the world-space hit normal.
type Hit struct {
	InstanceIndex int
	T             float32
	Normal        mgl32.Vec3
}

// Ray builds a world-space ray from normalized device coordinates. nx
// and ny are in [-1, 1], with ny already flipped so +1 is the top of
// the viewport — callers compute these from raw mouse pixels the same
// way GetPickRay did in the teacher.
func Ray(cam scene.Camera, nx, ny, aspect float32) mathx.Ray {
	invProj := cam.InverseProjection(aspect)
	invView := cam.InverseView()

	clipNear := mgl32.Vec4{nx, ny, -1, 1}
	viewPos := invProj.Mul4x1(clipNear)
	viewPos = viewPos.Mul(1.0 / viewPos.W())
	worldPos := invView.Mul4x1(viewPos).Vec3()

	origin := cam.Position()
	dir := worldPos.Sub(origin).Normalize()
	return mathx.Ray{Origin: origin, Direction: dir}
}

// Pick finds the closest instance the ray hits, or ok=false. instances
// must be the same visible, packed slice the renderer uploads to the
// GPU this frame, so InstanceIndex lines up with the GPU's
// selectedObjectIndex.
func Pick(ray mathx.Ray, library *meshlib.Library, instances []scene.Instance) (hit Hit, ok bool) {
	closestT := float32(math.MaxFloat32)
	found := false

	for i, inst := range instances {
		tMin, tMax := mathx.IntersectAABB(ray, inst.WorldAABB)
		if tMin > tMax || tMax < 0 || tMin > closestT {
			continue
		}

		localRay := mathx.Ray{
			Origin:    inst.WorldToObject.Mul4x1(ray.Origin.Vec4(1)).Vec3(),
			Direction: inst.WorldToObject.Mul4x1(ray.Direction.Vec4(0)).Vec3(),
		}

		t, normal, hitOk := intersectMeshBLAS(localRay, library, inst.MeshID, closestT)
		if !hitOk {
			continue
		}

		localHit := localRay.Origin.Add(localRay.Direction.Mul(t))
		worldHit := inst.ObjectToWorld.Mul4x1(localHit.Vec4(1)).Vec3()
		worldT := worldHit.Sub(ray.Origin).Len()
		if worldT >= closestT {
			continue
		}

		worldNormal := inst.ObjectToWorld.Mul4x1(normal.Vec4(0)).Vec3().Normalize()

		closestT = worldT
		found = true
		hit = Hit{InstanceIndex: i, T: worldT, Normal: worldNormal}
	}

	return hit, found
}

// intersectMeshBLAS walks the packed BLAS for one mesh, in the mesh's
// own local (object) space, with an explicit stack mirroring the
// near-first traversal order of the GPU path tracer's kernel.
func intersectMeshBLAS(ray mathx.Ray, library *meshlib.Library, meshID meshlib.MeshID, bestT float32) (t float32, normal mgl32.Vec3, ok bool) {
	meta := library.Meta[meshID]
	if meta.NodeCount == 0 {
		return 0, mgl32.Vec3{}, false
	}

	stack := make([]int32, 0, 64)
	stack = append(stack, int32(meta.NodeOffset))

	found := false
	var bestNormal mgl32.Vec3

	for len(stack) > 0 {
		nodeIdx := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		node := library.Nodes[nodeIdx]
		box := mathx.AABB{Min: node.Min, Max: node.Max}
		tMin, tMax := mathx.IntersectAABB(ray, box)
		if tMin > tMax || tMax < 0 || tMin > bestT {
			continue
		}

		if node.Left < 0 {
			for tri := uint32(0); tri < node.TriCount; tri++ {
				base := node.TriOffset + tri*3
				i0 := library.Indices[base]
				i1 := library.Indices[base+1]
				i2 := library.Indices[base+2]
				v0 := library.Vertices[i0].Position
				v1 := library.Vertices[i1].Position
				v2 := library.Vertices[i2].Position

				triHit, triOk := mathx.IntersectTriangle(ray, v0, v1, v2)
				if !triOk || triHit.T <= 1e-4 || triHit.T >= bestT {
					continue
				}
				bestT = triHit.T
				found = true
				n0 := library.Vertices[i0].Normal
				n1 := library.Vertices[i1].Normal
				n2 := library.Vertices[i2].Normal
				w0 := 1 - triHit.U - triHit.V
				bestNormal = n0.Mul(w0).Add(n1.Mul(triHit.U)).Add(n2.Mul(triHit.V)).Normalize()
			}
			continue
		}

		leftBox := mathx.AABB{Min: library.Nodes[node.Left].Min, Max: library.Nodes[node.Left].Max}
		rightBox := mathx.AABB{Min: library.Nodes[node.Right].Min, Max: library.Nodes[node.Right].Max}
		leftMin, leftMax := mathx.IntersectAABB(ray, leftBox)
		rightMin, rightMax := mathx.IntersectAABB(ray, rightBox)
		leftHit := leftMin <= leftMax && leftMax >= 0 && leftMin <= bestT
		rightHit := rightMin <= rightMax && rightMax >= 0 && rightMin <= bestT

		switch {
		case leftHit && rightHit:
			if leftMin <= rightMin {
				stack = append(stack, node.Right, node.Left)
			} else {
				stack = append(stack, node.Left, node.Right)
			}
		case leftHit:
			stack = append(stack, node.Left)
		case rightHit:
			stack = append(stack, node.Right)
		}
	}

	return bestT, bestNormal, found
}
