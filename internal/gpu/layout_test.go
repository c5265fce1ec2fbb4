package gpu

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/rayforge/pathtrace/internal/bvh"
	"github.com/rayforge/pathtrace/internal/meshlib"
	"github.com/rayforge/pathtrace/internal/scene"
	"github.com/stretchr/testify/assert"
)

func TestPackedRecordSizes(t *testing.T) {
	assert.Len(t, packCamera(mgl32.Ident4(), mgl32.Ident4(), mgl32.Vec3{}), cameraUniformSize)
	assert.Len(t, packSettings(Settings{}), settingsUniformSize)
	assert.Len(t, packMeshSceneHeader(0, 0), meshSceneHeaderSize)
	assert.Len(t, packMeshMeta(make([]meshlib.Meta, 3)), 3*meshMetaRecordSize)
	assert.Len(t, packMeshVertices(make([]meshlib.Vertex, 5)), 5*meshVertexRecordSize)
	assert.Len(t, packBLASNodes(make([]bvh.Node, 2)), 2*blasNodeRecordSize)
	assert.Len(t, packInstances(make([]scene.Instance, 4)), 4*instanceRecordSize)
}

func TestPackSettingsFlagsAndSelection(t *testing.T) {
	buf := packSettings(Settings{
		FrameIndex:          7,
		SamplesPerPixel:     1,
		MaxBounces:          6,
		Accumulate:          true,
		SelectedObjectIndex: -1,
		BackgroundColor:     0x112233,
	})
	assert.Equal(t, uint32(7), leU32(buf, 0))
	assert.Equal(t, uint32(1), leU32(buf, 4))
	assert.Equal(t, uint32(6), leU32(buf, 8))
	assert.Equal(t, flagAccumulate, leU32(buf, 12))
	assert.Equal(t, int32(-1), int32(leU32(buf, 16)))
	assert.Equal(t, uint32(0x112233), leU32(buf, 32))
}

func leU32(buf []byte, off int) uint32 {
	return uint32(buf[off]) | uint32(buf[off+1])<<8 | uint32(buf[off+2])<<16 | uint32(buf[off+3])<<24
}
