package bvh

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/rayforge/pathtrace/internal/mesh"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDeterministic(t *testing.T) {
	m := mesh.Sphere()
	a := Build(m.Positions, m.Indices, DefaultMaxTrisPerLeaf)
	b := Build(m.Positions, m.Indices, DefaultMaxTrisPerLeaf)
	require.Equal(t, a.Nodes, b.Nodes)
	require.Equal(t, a.TriRefs, b.TriRefs)
}

func TestEveryTriangleInExactlyOneLeaf(t *testing.T) {
	for _, m := range []*mesh.Mesh{mesh.Sphere(), mesh.Cuboid(), mesh.Torus(), mesh.Capsule()} {
		blas := Build(m.Positions, m.Indices, DefaultMaxTrisPerLeaf)
		seen := make(map[uint32]int)
		for _, n := range blas.Nodes {
			if n.Left == -1 && n.Right == -1 {
				for i := uint32(0); i < n.TriCount; i++ {
					seen[blas.TriRefs[n.TriOffset+i]]++
				}
			}
		}
		require.Len(t, seen, m.NumTriangles())
		for tri, count := range seen {
			assert.Equal(t, 1, count, "triangle %d appears %d times", tri, count)
		}
	}
}

func TestSubtreeAABBContainsTriangles(t *testing.T) {
	m := mesh.Torus()
	blas := Build(m.Positions, m.Indices, DefaultMaxTrisPerLeaf)

	var checkNode func(idx int32) (mgl32.Vec3, mgl32.Vec3)
	checkNode = func(idx int32) (mgl32.Vec3, mgl32.Vec3) {
		n := blas.Nodes[idx]
		if n.Left == -1 && n.Right == -1 {
			for i := uint32(0); i < n.TriCount; i++ {
				tri := blas.TriRefs[n.TriOffset+i]
				a, b, c := m.Indices[tri*3], m.Indices[tri*3+1], m.Indices[tri*3+2]
				for _, vi := range []uint32{a, b, c} {
					v := m.Vertex(vi)
					assertWithin(t, v, n.Min, n.Max)
				}
			}
			return n.Min, n.Max
		}
		lMin, lMax := checkNode(n.Left)
		rMin, rMax := checkNode(n.Right)
		assertWithin(t, lMin, n.Min, n.Max)
		assertWithin(t, lMax, n.Min, n.Max)
		assertWithin(t, rMin, n.Min, n.Max)
		assertWithin(t, rMax, n.Min, n.Max)
		return n.Min, n.Max
	}
	checkNode(0)
}

func assertWithin(t *testing.T, v, min, max mgl32.Vec3) {
	t.Helper()
	const eps = 1e-4
	assert.True(t, v.X() >= min.X()-eps && v.X() <= max.X()+eps)
	assert.True(t, v.Y() >= min.Y()-eps && v.Y() <= max.Y()+eps)
	assert.True(t, v.Z() >= min.Z()-eps && v.Z() <= max.Z()+eps)
}

func TestEmptyMeshProducesEmptyRoot(t *testing.T) {
	blas := Build(nil, nil, DefaultMaxTrisPerLeaf)
	require.Len(t, blas.Nodes, 1)
	assert.Equal(t, uint32(0), blas.Nodes[0].TriCount)
}
