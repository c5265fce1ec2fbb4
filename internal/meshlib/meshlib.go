// Package meshlib concatenates every primitive mesh and its BLAS into
// flat, GPU-friendly buffers indexed by a shared MeshID. It is built
// once at renderer init and never mutated afterward.
package meshlib

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/rayforge/pathtrace/internal/bvh"
	"github.com/rayforge/pathtrace/internal/mesh"
)

// MeshID is the stable u32 mesh identifier shared by the CPU scene
// model and the GPU mesh-library buffers.
type MeshID uint32

const (
	MeshSphere MeshID = iota
	MeshCuboid
	MeshCylinder
	MeshCone
	MeshCapsule
	MeshTorus
	MeshCount
)

// Vertex is one packed GPU vertex record (see internal/gpu for the
// 32-byte wire encoding): position + normal.
type Vertex struct {
	Position mgl32.Vec3
	Normal   mgl32.Vec3
}

// Meta is the per-mesh metadata record the GPU kernel uses to slice
// the packed vertex/index/node buffers down to one mesh's range.
type Meta struct {
	VertexOffset uint32
	VertexCount  uint32
	IndexOffset  uint32
	IndexCount   uint32
	NodeOffset   uint32
	NodeCount    uint32
}

// Library is the packed, immutable mesh library: one flat vertex
// buffer, one flat (already vertex-offset) index buffer, one flat
// (already node-offset) BLAS node buffer, and one Meta per mesh. The
// per-mesh object-space AABB is retained out-of-band for instance AABB
// computation.
type Library struct {
	Vertices []Vertex
	Indices  []uint32
	Nodes    []bvh.Node
	Meta     [MeshCount]Meta
	AABBMin  [MeshCount]mgl32.Vec3
	AABBMax  [MeshCount]mgl32.Vec3
}

// Generators returns the ordered primitive generator functions, indexed
// by MeshID — the single source of truth for primitive order.
func Generators() [MeshCount]func() *mesh.Mesh {
	return [MeshCount]func() *mesh.Mesh{
		MeshSphere:   mesh.Sphere,
		MeshCuboid:   mesh.Cuboid,
		MeshCylinder: mesh.Cylinder,
		MeshCone:     mesh.Cone,
		MeshCapsule:  mesh.Capsule,
		MeshTorus:    mesh.Torus,
	}
}

// Build generates all six primitives, builds a BLAS per mesh, and packs
// everything into one Library with globally-rewritten offsets:
//   - index buffer entries are offset by the prior cumulative vertex count
//   - BLAS child indices are offset by the prior cumulative node count
//   - a leaf's TriOffset is rewritten into the packed index buffer,
//     measured in u32 entries (iCursor + triOffsetLocal*3)
func Build(maxTrisPerLeaf int) *Library {
	lib := &Library{}
	gens := Generators()

	for id := MeshID(0); id < MeshCount; id++ {
		m := gens[id]()
		blas := bvh.Build(m.Positions, m.Indices, maxTrisPerLeaf)

		vertexOffset := uint32(len(lib.Vertices))
		indexOffset := uint32(len(lib.Indices))
		nodeOffset := uint32(len(lib.Nodes))

		for v := 0; v < m.NumVertices(); v++ {
			lib.Vertices = append(lib.Vertices, Vertex{
				Position: m.Vertex(uint32(v)),
				Normal:   m.Normal(uint32(v)),
			})
		}

		// Reorder indices into BLAS leaf-triangle order and offset by
		// the cumulative vertex count so the GPU can index the flat
		// packed vertex array directly.
		for _, triRef := range blas.TriRefs {
			a, b, c := m.Indices[triRef*3], m.Indices[triRef*3+1], m.Indices[triRef*3+2]
			lib.Indices = append(lib.Indices, a+vertexOffset, b+vertexOffset, c+vertexOffset)
		}

		for _, n := range blas.Nodes {
			packed := n
			if n.Left >= 0 {
				packed.Left = n.Left + int32(nodeOffset)
				packed.Right = n.Right + int32(nodeOffset)
			} else {
				packed.TriOffset = indexOffset + n.TriOffset*3
			}
			lib.Nodes = append(lib.Nodes, packed)
		}

		lib.Meta[id] = Meta{
			VertexOffset: vertexOffset,
			VertexCount:  uint32(m.NumVertices()),
			IndexOffset:  indexOffset,
			IndexCount:   uint32(len(m.Indices)),
			NodeOffset:   nodeOffset,
			NodeCount:    uint32(len(blas.Nodes)),
		}
		lib.AABBMin[id] = m.AABBMin
		lib.AABBMax[id] = m.AABBMax
	}

	return lib
}
