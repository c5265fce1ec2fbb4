package mathx

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// EulerZYXMat3 builds a rotation matrix from Euler angles (radians)
// using the ZYX convention: the vector is rotated about X, then Y,
// then Z — R = Rz(e.Z) * Ry(e.Y) * Rx(e.X).
func EulerZYXMat3(e mgl32.Vec3) mgl32.Mat3 {
	sx, cx := math.Sincos(float64(e.X()))
	sy, cy := math.Sincos(float64(e.Y()))
	sz, cz := math.Sincos(float64(e.Z()))

	rx := mgl32.Mat3{
		1, 0, 0,
		0, float32(cx), float32(sx),
		0, -float32(sx), float32(cx),
	}
	ry := mgl32.Mat3{
		float32(cy), 0, -float32(sy),
		0, 1, 0,
		float32(sy), 0, float32(cy),
	}
	rz := mgl32.Mat3{
		float32(cz), float32(sz), 0,
		-float32(sz), float32(cz), 0,
		0, 0, 1,
	}
	return rz.Mul3(ry).Mul3(rx)
}

// EulerZYXMat4 is EulerZYXMat3 embedded in a 4x4 matrix with no translation.
func EulerZYXMat4(e mgl32.Vec3) mgl32.Mat4 {
	return EulerZYXMat3(e).Mat4()
}
