package mesh

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	capsuleSegments        = 32
	capsuleHemisphereRings = sphereRings / 2 // each hemisphere spans half the sphere's rings over pi/2, so the ring density matches the sphere's
)

// Capsule generates a capsule: cylinder radius 1, cylinder half-height
// 1 (side spans y in [-1,1]), with hemispherical caps extending the
// shape to y in [-2,2]. 32 radial segments. Smooth-shaded throughout —
// the hemisphere rings are generated down to their equator (theta=pi/2),
// where the normal is already purely radial, so the cylindrical side
// connects directly with no seam.
func Capsule() *Mesh {
	b := newBuilder()

	// ring builds one latitude ring of a unit hemisphere centered at
	// centerY, theta measured from the pole (0) to the equator (pi/2).
	ring := func(centerY float32, theta float64) []uint32 {
		st, ct := math.Sincos(theta)
		out := make([]uint32, capsuleSegments+1)
		for s := 0; s <= capsuleSegments; s++ {
			phi := 2 * math.Pi * float64(s) / float64(capsuleSegments)
			sp, cp := math.Sincos(phi)
			p := mgl32.Vec3{float32(st * cp), centerY + float32(ct), float32(st * sp)}
			n := mgl32.Vec3{float32(st * cp), float32(ct), float32(st * sp)}
			out[s] = b.addVertex(p, n)
		}
		return out
	}

	connect := func(top, bottom []uint32) {
		for s := 0; s < capsuleSegments; s++ {
			b.addTriangle(bottom[s], bottom[s+1], top[s])
			b.addTriangle(top[s], bottom[s+1], top[s+1])
		}
	}

	// Top hemisphere: pole (theta=0, y=2) down to the equator (theta=pi/2, y=1).
	topRings := make([][]uint32, capsuleHemisphereRings+1)
	for r := 0; r <= capsuleHemisphereRings; r++ {
		theta := (math.Pi / 2) * float64(r) / float64(capsuleHemisphereRings)
		topRings[r] = ring(1, theta)
	}
	for s := 0; s < capsuleSegments; s++ {
		b.addTriangle(topRings[0][0], topRings[1][s], topRings[1][s+1])
	}
	for r := 1; r < capsuleHemisphereRings; r++ {
		connect(topRings[r], topRings[r+1])
	}

	// Bottom hemisphere: equator (theta=pi/2, y=-1) down to the pole (theta=pi, y=-2).
	bottomRings := make([][]uint32, capsuleHemisphereRings+1)
	for r := 0; r <= capsuleHemisphereRings; r++ {
		theta := math.Pi/2 + (math.Pi/2)*float64(r)/float64(capsuleHemisphereRings)
		bottomRings[r] = ring(-1, theta)
	}
	for r := 0; r < capsuleHemisphereRings-1; r++ {
		connect(bottomRings[r], bottomRings[r+1])
	}
	for s := 0; s < capsuleSegments; s++ {
		last := capsuleHemisphereRings
		b.addTriangle(bottomRings[last-1][s], bottomRings[last-1][s+1], bottomRings[last][0])
	}

	// Cylindrical side: top hemisphere's equator ring to bottom hemisphere's equator ring.
	connect(topRings[capsuleHemisphereRings], bottomRings[0])

	return b.build()
}
