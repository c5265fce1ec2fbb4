package gpu

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/rayforge/pathtrace/internal/bvh"
	"github.com/rayforge/pathtrace/internal/meshlib"
	"github.com/rayforge/pathtrace/internal/scene"
)

// Wire-format byte sizes for the GPU-side uniform/storage layouts.
const (
	cameraUniformSize    = 144
	settingsUniformSize  = 48
	meshSceneHeaderSize  = 16
	meshMetaRecordSize   = 32
	meshVertexRecordSize = 32
	blasNodeRecordSize   = 48
	instanceRecordSize   = 128
)

// putF32/putU32/putI32/putVec3 follow the teacher's UpdateCamera byte
// packing style: little-endian, float bits reinterpreted as u32.
func putF32(buf []byte, offset int, v float32) {
	binary.LittleEndian.PutUint32(buf[offset:], math.Float32bits(v))
}

func putU32(buf []byte, offset int, v uint32) {
	binary.LittleEndian.PutUint32(buf[offset:], v)
}

func putI32(buf []byte, offset int, v int32) {
	binary.LittleEndian.PutUint32(buf[offset:], uint32(v))
}

func putVec3(buf []byte, offset int, v mgl32.Vec3) {
	putF32(buf, offset, v.X())
	putF32(buf, offset+4, v.Y())
	putF32(buf, offset+8, v.Z())
}

func putMat4(buf []byte, offset int, m mgl32.Mat4) {
	for i, v := range m {
		putF32(buf, offset+i*4, v)
	}
}

// packCamera writes the 144-byte camera uniform: inverseProjection(64),
// inverseView(64), position(12)+pad(4).
func packCamera(invProj, invView mgl32.Mat4, position mgl32.Vec3) []byte {
	buf := make([]byte, cameraUniformSize)
	putMat4(buf, 0, invProj)
	putMat4(buf, 64, invView)
	putVec3(buf, 128, position)
	return buf
}

// Settings mirrors the 48-byte settings uniform the WGSL kernel reads.
type Settings struct {
	FrameIndex          uint32
	SamplesPerPixel     uint32
	MaxBounces          uint32
	Accumulate          bool
	SelectedObjectIndex int32
	BackgroundColor     uint32 // packed 0xRRGGBB
}

const flagAccumulate = uint32(1)

func packSettings(s Settings) []byte {
	buf := make([]byte, settingsUniformSize)
	flags := uint32(0)
	if s.Accumulate {
		flags |= flagAccumulate
	}
	putU32(buf, 0, s.FrameIndex)
	putU32(buf, 4, s.SamplesPerPixel)
	putU32(buf, 8, s.MaxBounces)
	putU32(buf, 12, flags)
	putI32(buf, 16, s.SelectedObjectIndex)
	// bytes 20..31 reserved padding
	putU32(buf, 32, s.BackgroundColor)
	// bytes 36..47 reserved padding
	return buf
}

// packMeshSceneHeader is the 16-byte {instanceCount, meshCount, pad, pad}
// uniform bound at binding 6.
func packMeshSceneHeader(instanceCount, meshCount uint32) []byte {
	buf := make([]byte, meshSceneHeaderSize)
	putU32(buf, 0, instanceCount)
	putU32(buf, 4, meshCount)
	return buf
}

// packMeshMeta packs a meshlib.Library's per-mesh metadata table into
// the GPU's 32-byte-per-record layout (6 u32 fields + 2 padding words).
func packMeshMeta(meta []meshlib.Meta) []byte {
	buf := make([]byte, len(meta)*meshMetaRecordSize)
	for i, m := range meta {
		o := i * meshMetaRecordSize
		putU32(buf, o+0, m.VertexOffset)
		putU32(buf, o+4, m.VertexCount)
		putU32(buf, o+8, m.IndexOffset)
		putU32(buf, o+12, m.IndexCount)
		putU32(buf, o+16, m.NodeOffset)
		putU32(buf, o+20, m.NodeCount)
	}
	return buf
}

// packMeshVertices packs meshlib.Vertex records into the GPU's
// 32-byte-per-vertex layout (vec3+pad position, vec3+pad normal).
func packMeshVertices(vertices []meshlib.Vertex) []byte {
	buf := make([]byte, len(vertices)*meshVertexRecordSize)
	for i, v := range vertices {
		o := i * meshVertexRecordSize
		putVec3(buf, o+0, v.Position)
		putVec3(buf, o+16, v.Normal)
	}
	return buf
}

// packMeshIndices packs the u32 index buffer verbatim.
func packMeshIndices(indices []uint32) []byte {
	buf := make([]byte, len(indices)*4)
	for i, idx := range indices {
		putU32(buf, i*4, idx)
	}
	return buf
}

// packBLASNodes packs bvh.Node records into the GPU's 48-byte layout:
// min(vec3+pad) max(vec3+pad) left(i32) right(i32) triOffset(u32) triCount(u32).
func packBLASNodes(nodes []bvh.Node) []byte {
	buf := make([]byte, len(nodes)*blasNodeRecordSize)
	for i, n := range nodes {
		o := i * blasNodeRecordSize
		putVec3(buf, o+0, n.Min)
		putVec3(buf, o+16, n.Max)
		putI32(buf, o+32, n.Left)
		putI32(buf, o+36, n.Right)
		putU32(buf, o+40, n.TriOffset)
		putU32(buf, o+44, n.TriCount)
	}
	return buf
}

// packInstances packs scene.Instance records into the GPU's 128-byte
// per-instance layout.
func packInstances(instances []scene.Instance) []byte {
	buf := make([]byte, len(instances)*instanceRecordSize)
	for i, inst := range instances {
		o := i * instanceRecordSize

		putVec3(buf, o+0, inst.Transform.Position)
		putU32(buf, o+12, uint32(inst.MeshID))

		putVec3(buf, o+16, inst.Transform.Scale)
		// bytes 28..31 pad

		putVec3(buf, o+32, inst.Transform.Rotation)
		// bytes 44..47 pad

		// bytes 48..63 reserved

		putVec3(buf, o+64, inst.Material.Color)
		putU32(buf, o+76, uint32(inst.Material.Kind))

		putF32(buf, o+80, inst.Material.IOR)
		putF32(buf, o+84, inst.Material.Intensity)
		// bytes 88..95 pad

		putVec3(buf, o+96, inst.WorldAABB.Min)
		// bytes 108..111 pad
		putVec3(buf, o+112, inst.WorldAABB.Max)
		// bytes 124..127 pad
	}
	return buf
}
