package scene

import "github.com/rayforge/pathtrace/internal/meshlib"

// PrimitiveKind is the user-facing primitive family; MeshID (see
// internal/meshlib) is the stable renderer-facing identifier it maps to.
type PrimitiveKind int

const (
	Sphere PrimitiveKind = iota
	Cuboid
	Cylinder
	Cone
	Capsule
	Torus
)

// MeshID maps a PrimitiveKind to its stable mesh library identifier.
func (k PrimitiveKind) MeshID() meshlib.MeshID {
	switch k {
	case Sphere:
		return meshlib.MeshSphere
	case Cuboid:
		return meshlib.MeshCuboid
	case Cylinder:
		return meshlib.MeshCylinder
	case Cone:
		return meshlib.MeshCone
	case Capsule:
		return meshlib.MeshCapsule
	case Torus:
		return meshlib.MeshTorus
	default:
		return meshlib.MeshSphere
	}
}

// Object is a SceneObject: an opaque id, a display name, its primitive
// type, transform, material, and visibility. Invariants: sphere objects
// carry uniform scale; torus objects encode (R, r, r) with R > r > 0.
// The core does not enforce these — the external kernel that owns
// SceneObject mutation does — but picker/renderer code never assumes
// them beyond "Scale components are nonzero".
type Object struct {
	ID       string
	Name     string
	Type     PrimitiveKind
	Transform Transform
	Material  Material
	Visible   bool
}
