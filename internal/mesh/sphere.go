package mesh

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	sphereSegments = 32
	sphereRings    = 16
)

// Sphere generates a unit-radius, origin-centered UV sphere: 32
// longitude segments x 16 latitude rings. Smooth-shaded (shared
// vertices, normal = position on the unit sphere).
func Sphere() *Mesh {
	b := newBuilder()

	// index[ring][seg] -> vertex index, ring in [0,rings], seg in [0,segments]
	idx := make([][]uint32, sphereRings+1)
	for r := 0; r <= sphereRings; r++ {
		theta := math.Pi * float64(r) / float64(sphereRings) // 0 (top) .. pi (bottom)
		st, ct := math.Sincos(theta)
		idx[r] = make([]uint32, sphereSegments+1)
		for s := 0; s <= sphereSegments; s++ {
			phi := 2 * math.Pi * float64(s) / float64(sphereSegments)
			sp, cp := math.Sincos(phi)
			p := mgl32.Vec3{
				float32(st * cp),
				float32(ct),
				float32(st * sp),
			}
			idx[r][s] = b.addVertex(p, p)
		}
	}

	for r := 0; r < sphereRings; r++ {
		for s := 0; s < sphereSegments; s++ {
			a := idx[r][s]
			bI := idx[r][s+1]
			c := idx[r+1][s]
			d := idx[r+1][s+1]
			// Skip degenerate triangles at the poles (top/bottom ring collapses to a point).
			if r != 0 {
				b.addTriangle(a, c, bI)
			}
			if r != sphereRings-1 {
				b.addTriangle(bI, c, d)
			}
		}
	}

	return b.build()
}
