package meshlib

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPacksAllMeshes(t *testing.T) {
	lib := Build(4)
	require.NotEmpty(t, lib.Vertices)
	require.NotEmpty(t, lib.Indices)
	require.NotEmpty(t, lib.Nodes)

	for id := MeshID(0); id < MeshCount; id++ {
		meta := lib.Meta[id]
		require.Greater(t, meta.VertexCount, uint32(0))
		require.Greater(t, meta.IndexCount, uint32(0))
		require.Greater(t, meta.NodeCount, uint32(0))

		// every index in this mesh's slice must resolve within its own vertex range
		for i := meta.IndexOffset; i < meta.IndexOffset+meta.IndexCount; i++ {
			idx := lib.Indices[i]
			assert.GreaterOrEqual(t, idx, meta.VertexOffset)
			assert.Less(t, idx, meta.VertexOffset+meta.VertexCount)
		}

		// every node's child indices, when interior, must land inside
		// this mesh's node range; leaf TriOffsets must land inside its
		// index range.
		for n := meta.NodeOffset; n < meta.NodeOffset+meta.NodeCount; n++ {
			node := lib.Nodes[n]
			if node.Left >= 0 {
				assert.GreaterOrEqual(t, uint32(node.Left), meta.NodeOffset)
				assert.Less(t, uint32(node.Left), meta.NodeOffset+meta.NodeCount)
				assert.GreaterOrEqual(t, uint32(node.Right), meta.NodeOffset)
				assert.Less(t, uint32(node.Right), meta.NodeOffset+meta.NodeCount)
			} else {
				assert.GreaterOrEqual(t, node.TriOffset, meta.IndexOffset)
				assert.Less(t, node.TriOffset+node.TriCount*3, meta.IndexOffset+meta.IndexCount+1)
			}
		}
	}
}

func TestBuildDeterministic(t *testing.T) {
	a := Build(4)
	b := Build(4)
	require.Equal(t, a.Vertices, b.Vertices)
	require.Equal(t, a.Indices, b.Indices)
	require.Equal(t, a.Nodes, b.Nodes)
	require.Equal(t, a.Meta, b.Meta)
}
