package mesh

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func allGenerators() map[string]func() *Mesh {
	return map[string]func() *Mesh{
		"sphere":   Sphere,
		"cuboid":   Cuboid,
		"cylinder": Cylinder,
		"cone":     Cone,
		"capsule":  Capsule,
		"torus":    Torus,
	}
}

func TestPrimitiveInvariants(t *testing.T) {
	for name, gen := range allGenerators() {
		t.Run(name, func(t *testing.T) {
			m := gen()
			require.NotZero(t, len(m.Indices))
			require.Zero(t, len(m.Indices)%3, "index count must be a multiple of 3")

			n := uint32(m.NumVertices())
			for _, idx := range m.Indices {
				require.Less(t, idx, n, "index out of range")
			}

			for v := 0; v < m.NumVertices(); v++ {
				nrm := m.Normal(uint32(v))
				length := math.Sqrt(float64(nrm.X()*nrm.X() + nrm.Y()*nrm.Y() + nrm.Z()*nrm.Z()))
				assert.InDelta(t, 1.0, length, 1e-3, "normal %d not unit length", v)

				p := m.Vertex(uint32(v))
				assert.True(t, p.X() >= m.AABBMin.X()-1e-4 && p.X() <= m.AABBMax.X()+1e-4)
				assert.True(t, p.Y() >= m.AABBMin.Y()-1e-4 && p.Y() <= m.AABBMax.Y()+1e-4)
				assert.True(t, p.Z() >= m.AABBMin.Z()-1e-4 && p.Z() <= m.AABBMax.Z()+1e-4)
			}
		})
	}
}

func TestPrimitiveDeterminism(t *testing.T) {
	for name, gen := range allGenerators() {
		t.Run(name, func(t *testing.T) {
			a := gen()
			b := gen()
			require.Equal(t, a.Positions, b.Positions)
			require.Equal(t, a.Normals, b.Normals)
			require.Equal(t, a.Indices, b.Indices)
		})
	}
}

func TestCanonicalAABBs(t *testing.T) {
	cases := []struct {
		name       string
		gen        func() *Mesh
		min, max   [3]float32
		tol        float32
	}{
		{"sphere", Sphere, [3]float32{-1, -1, -1}, [3]float32{1, 1, 1}, 1e-2},
		{"cuboid", Cuboid, [3]float32{-1, -1, -1}, [3]float32{1, 1, 1}, 1e-4},
		{"cylinder", Cylinder, [3]float32{-1, -1, -1}, [3]float32{1, 1, 1}, 1e-2},
		{"cone", Cone, [3]float32{-1, -1, -1}, [3]float32{1, 1, 1}, 1e-2},
		{"torus", Torus, [3]float32{-1.35, -0.35, -1.35}, [3]float32{1.35, 0.35, 1.35}, 1e-2},
		{"capsule", Capsule, [3]float32{-1, -2, -1}, [3]float32{1, 2, 1}, 1e-2},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			m := c.gen()
			assert.InDelta(t, c.min[0], m.AABBMin.X(), float64(c.tol))
			assert.InDelta(t, c.min[1], m.AABBMin.Y(), float64(c.tol))
			assert.InDelta(t, c.min[2], m.AABBMin.Z(), float64(c.tol))
			assert.InDelta(t, c.max[0], m.AABBMax.X(), float64(c.tol))
			assert.InDelta(t, c.max[1], m.AABBMax.Y(), float64(c.tol))
			assert.InDelta(t, c.max[2], m.AABBMax.Z(), float64(c.tol))
		})
	}
}
