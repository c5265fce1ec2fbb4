package mesh

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

const coneSegments = 32

// Cone generates a capped cone: base radius 1 at y=-1, apex at y=+1.
// 32 radial segments. The apex vertex is duplicated once per wedge so
// each lateral triangle keeps its own (non-averaged) slant normal; the
// base is a flat-shaded circular cap.
func Cone() *Mesh {
	b := newBuilder()

	const height = 2.0      // apex y(1) - base y(-1)
	const baseRadius = 1.0
	slope := baseRadius / height // tan of the cone's half-angle; the lateral normal's y component per unit of radial component

	rim := make([]uint32, coneSegments+1)
	rimNormalAt := func(phi float64) mgl32.Vec3 {
		sp, cp := math.Sincos(phi)
		n := mgl32.Vec3{float32(cp), float32(slope), float32(sp)}
		return n.Normalize()
	}
	for s := 0; s <= coneSegments; s++ {
		phi := 2 * math.Pi * float64(s) / float64(coneSegments)
		sp, cp := math.Sincos(phi)
		rim[s] = b.addVertex(mgl32.Vec3{float32(cp) * baseRadius, -1, float32(sp) * baseRadius}, rimNormalAt(phi))
	}

	for s := 0; s < coneSegments; s++ {
		phi0 := 2 * math.Pi * float64(s) / float64(coneSegments)
		phi1 := 2 * math.Pi * float64(s+1) / float64(coneSegments)
		wedgeNormal := rimNormalAt((phi0 + phi1) / 2)
		apex := b.addVertex(mgl32.Vec3{0, 1, 0}, wedgeNormal)
		b.addTriangle(rim[s], rim[s+1], apex)
	}

	addCircularCap(b, coneSegments, -1, baseRadius, 0)

	return b.build()
}
