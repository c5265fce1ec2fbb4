package mesh

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	torusMajorSegments = 32
	torusMinorSegments = 16
	torusMajorRadius   = 1.0
	torusMinorRadius   = 0.35
)

// Torus generates a torus ring in the XZ plane: major radius 1, minor
// radius 0.35, 32 major segments x 16 minor segments. Smooth-shaded.
func Torus() *Mesh {
	b := newBuilder()

	grid := make([][]uint32, torusMajorSegments+1)
	for i := 0; i <= torusMajorSegments; i++ {
		theta := 2 * math.Pi * float64(i) / float64(torusMajorSegments)
		st, ct := math.Sincos(theta)
		grid[i] = make([]uint32, torusMinorSegments+1)
		for j := 0; j <= torusMinorSegments; j++ {
			phi := 2 * math.Pi * float64(j) / float64(torusMinorSegments)
			sp, cp := math.Sincos(phi)
			tubeRadius := torusMajorRadius + torusMinorRadius*cp
			p := mgl32.Vec3{
				float32(tubeRadius * ct),
				float32(torusMinorRadius * sp),
				float32(tubeRadius * st),
			}
			n := mgl32.Vec3{
				float32(cp * ct),
				float32(sp),
				float32(cp * st),
			}
			grid[i][j] = b.addVertex(p, n)
		}
	}

	for i := 0; i < torusMajorSegments; i++ {
		for j := 0; j < torusMinorSegments; j++ {
			a := grid[i][j]
			c := grid[i][j+1]
			d := grid[i+1][j]
			e := grid[i+1][j+1]
			b.addTriangle(a, d, c)
			b.addTriangle(c, d, e)
		}
	}

	return b.build()
}
