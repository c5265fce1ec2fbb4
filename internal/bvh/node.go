// Package bvh builds a per-mesh bottom-level acceleration structure
// (BLAS): a BVH over one mesh's triangles.
package bvh

import "github.com/go-gl/mathgl/mgl32"

// Node mirrors the WGSL BlasNode layout (see internal/gpu for the
// 48-byte wire encoding). Interior nodes have Left/Right >= 0 and
// TriCount == 0; leaves have Left == Right == -1 and TriCount > 0,
// except the single root leaf of an empty mesh, which has TriCount 0.
type Node struct {
	Min       mgl32.Vec3
	Max       mgl32.Vec3
	Left      int32
	Right     int32
	TriOffset uint32 // index into TriRefs (local to this mesh's BLAS)
	TriCount  uint32
}

// BLAS is the acceleration structure for one mesh: a node array rooted
// at index 0, and triRefs — a permutation of triangle indices such
// that each leaf's triangles occupy a contiguous slice.
type BLAS struct {
	Nodes   []Node
	TriRefs []uint32
}
