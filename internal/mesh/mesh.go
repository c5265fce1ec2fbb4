// Package mesh generates deterministic object-space triangle meshes for
// the six supported primitives.
package mesh

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/rayforge/pathtrace/internal/mathx"
)

// Mesh is a triangle mesh in object space: positions/normals are flat
// xyz triples, indices are flat triangle triples.
type Mesh struct {
	Positions []float32
	Normals   []float32
	Indices   []uint32
	AABBMin   mgl32.Vec3
	AABBMax   mgl32.Vec3
}

// NumVertices returns the vertex count implied by Positions.
func (m *Mesh) NumVertices() int {
	return len(m.Positions) / 3
}

// NumTriangles returns the triangle count implied by Indices.
func (m *Mesh) NumTriangles() int {
	return len(m.Indices) / 3
}

// Vertex returns vertex i's position.
func (m *Mesh) Vertex(i uint32) mgl32.Vec3 {
	o := i * 3
	return mgl32.Vec3{m.Positions[o], m.Positions[o+1], m.Positions[o+2]}
}

// Normal returns vertex i's normal.
func (m *Mesh) Normal(i uint32) mgl32.Vec3 {
	o := i * 3
	return mgl32.Vec3{m.Normals[o], m.Normals[o+1], m.Normals[o+2]}
}

// Triangle returns the three vertex indices of triangle t.
func (m *Mesh) Triangle(t int) (a, b, c uint32) {
	o := t * 3
	return m.Indices[o], m.Indices[o+1], m.Indices[o+2]
}

// builder accumulates vertices/normals/indices and tracks bounds as
// vertices are appended, so every generator can stay a straight-line
// function instead of a two-pass compute-then-bound dance.
type builder struct {
	positions []float32
	normals   []float32
	indices   []uint32
	bounds    mathx.AABB
}

func newBuilder() *builder {
	return &builder{bounds: mathx.EmptyAABB()}
}

func (b *builder) addVertex(p, n mgl32.Vec3) uint32 {
	idx := uint32(len(b.positions) / 3)
	b.positions = append(b.positions, p.X(), p.Y(), p.Z())
	b.normals = append(b.normals, n.X(), n.Y(), n.Z())
	b.bounds = b.bounds.ExtendPoint(p)
	return idx
}

func (b *builder) addTriangle(a, c, d uint32) {
	b.indices = append(b.indices, a, c, d)
}

func (b *builder) build() *Mesh {
	return &Mesh{
		Positions: b.positions,
		Normals:   b.normals,
		Indices:   b.indices,
		AABBMin:   b.bounds.Min,
		AABBMax:   b.bounds.Max,
	}
}
