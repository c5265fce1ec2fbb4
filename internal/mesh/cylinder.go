package mesh

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

const cylinderSegments = 32

// Cylinder generates a capped cylinder: radius 1, half-height 1 along
// +Y (spans y in [-1,1]). 32 radial segments. Flat-shaded caps,
// smooth-shaded side (duplicated rim vertices so the cap/side edge
// stays hard).
func Cylinder() *Mesh {
	b := newBuilder()

	sideTop := make([]uint32, cylinderSegments+1)
	sideBottom := make([]uint32, cylinderSegments+1)
	for s := 0; s <= cylinderSegments; s++ {
		phi := 2 * math.Pi * float64(s) / float64(cylinderSegments)
		sp, cp := math.Sincos(phi)
		normal := mgl32.Vec3{float32(cp), 0, float32(sp)}
		sideTop[s] = b.addVertex(mgl32.Vec3{float32(cp), 1, float32(sp)}, normal)
		sideBottom[s] = b.addVertex(mgl32.Vec3{float32(cp), -1, float32(sp)}, normal)
	}
	for s := 0; s < cylinderSegments; s++ {
		b.addTriangle(sideBottom[s], sideBottom[s+1], sideTop[s])
		b.addTriangle(sideTop[s], sideBottom[s+1], sideTop[s+1])
	}

	addCircularCap(b, cylinderSegments, 1, 1, 0)
	addCircularCap(b, cylinderSegments, -1, 1, 0)

	return b.build()
}

// addCircularCap builds a flat triangle-fan cap at height y with radius
// r. The cap faces +Y when y >= 0 and -Y when y < 0. The last argument
// is unused.
func addCircularCap(b *builder, segments int, y float32, r float32, _ float32) {
	dir := float32(1)
	if y < 0 {
		dir = -1
	}
	normal := mgl32.Vec3{0, dir, 0}
	center := b.addVertex(mgl32.Vec3{0, y, 0}, normal)
	rim := make([]uint32, segments+1)
	for s := 0; s <= segments; s++ {
		phi := 2 * math.Pi * float64(s) / float64(segments)
		sp, cp := math.Sincos(phi)
		rim[s] = b.addVertex(mgl32.Vec3{float32(cp) * r, y, float32(sp) * r}, normal)
	}
	for s := 0; s < segments; s++ {
		if dir > 0 {
			b.addTriangle(center, rim[s], rim[s+1])
		} else {
			b.addTriangle(center, rim[s+1], rim[s])
		}
	}
}
