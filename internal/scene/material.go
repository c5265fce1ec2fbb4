package scene

import "github.com/go-gl/mathgl/mgl32"

// MaterialKind is the GPU-encoded (u32, 0..3) material family.
type MaterialKind uint32

const (
	Plastic MaterialKind = iota
	Metal
	Glass
	Light
)

// Material is always the full record regardless of kind (IOR only
// matters for Glass, Intensity only for Light) so the GPU layout stays
// uniform across every instance.
type Material struct {
	Kind      MaterialKind
	Color     mgl32.Vec3 // in [0,1]
	IOR       float32    // in [1.0, 2.5]
	Intensity float32    // in [0.1, 20]
}

// DefaultMaterial is a neutral white plastic.
func DefaultMaterial() Material {
	return Material{
		Kind:      Plastic,
		Color:     mgl32.Vec3{0.8, 0.8, 0.8},
		IOR:       1.5,
		Intensity: 1.0,
	}
}
