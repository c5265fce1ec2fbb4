package mesh

import "github.com/go-gl/mathgl/mgl32"

// Cuboid generates an origin-centered box with half-extents (1,1,1).
// Flat-shaded: each of the 6 faces gets its own 4 duplicated vertices
// so normals never average across an edge.
func Cuboid() *Mesh {
	b := newBuilder()

	type face struct {
		normal   mgl32.Vec3
		corners  [4]mgl32.Vec3
	}

	faces := [6]face{
		{mgl32.Vec3{0, 0, 1}, [4]mgl32.Vec3{{-1, -1, 1}, {1, -1, 1}, {1, 1, 1}, {-1, 1, 1}}},   // +Z
		{mgl32.Vec3{0, 0, -1}, [4]mgl32.Vec3{{1, -1, -1}, {-1, -1, -1}, {-1, 1, -1}, {1, 1, -1}}}, // -Z
		{mgl32.Vec3{1, 0, 0}, [4]mgl32.Vec3{{1, -1, 1}, {1, -1, -1}, {1, 1, -1}, {1, 1, 1}}},     // +X
		{mgl32.Vec3{-1, 0, 0}, [4]mgl32.Vec3{{-1, -1, -1}, {-1, -1, 1}, {-1, 1, 1}, {-1, 1, -1}}}, // -X
		{mgl32.Vec3{0, 1, 0}, [4]mgl32.Vec3{{-1, 1, 1}, {1, 1, 1}, {1, 1, -1}, {-1, 1, -1}}},     // +Y
		{mgl32.Vec3{0, -1, 0}, [4]mgl32.Vec3{{-1, -1, -1}, {1, -1, -1}, {1, -1, 1}, {-1, -1, 1}}}, // -Y
	}

	for _, f := range faces {
		i0 := b.addVertex(f.corners[0], f.normal)
		i1 := b.addVertex(f.corners[1], f.normal)
		i2 := b.addVertex(f.corners[2], f.normal)
		i3 := b.addVertex(f.corners[3], f.normal)
		b.addTriangle(i0, i1, i2)
		b.addTriangle(i0, i2, i3)
	}

	return b.build()
}
