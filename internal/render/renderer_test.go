package render

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/rayforge/pathtrace/internal/logging"
	"github.com/rayforge/pathtrace/internal/meshlib"
	"github.com/rayforge/pathtrace/internal/scene"
	"github.com/stretchr/testify/require"
)

func TestVisibleInstancesSkipsHiddenObjects(t *testing.T) {
	lib := meshlib.Build(8)
	snap := scene.Snapshot{
		Objects: []scene.Object{
			{ID: "a", Type: scene.Sphere, Transform: scene.NewTransform(), Material: scene.DefaultMaterial(), Visible: true},
			{ID: "b", Type: scene.Cuboid, Transform: scene.NewTransform(), Material: scene.DefaultMaterial(), Visible: false},
		},
		SelectedID: "a",
	}

	instances, selectedIndex := visibleInstances(lib, snap, logging.NewNopLogger())
	require.Len(t, instances, 1)
	require.Equal(t, int32(0), selectedIndex)
}

func TestVisibleInstancesReturnsNoSelectionIndexWhenNothingSelected(t *testing.T) {
	lib := meshlib.Build(8)
	snap := scene.Snapshot{
		Objects: []scene.Object{
			{ID: "a", Type: scene.Sphere, Transform: scene.NewTransform(), Material: scene.DefaultMaterial(), Visible: true},
		},
	}

	_, selectedIndex := visibleInstances(lib, snap, logging.NewNopLogger())
	require.Equal(t, int32(-1), selectedIndex)
}

func TestVisibleInstancesSkipsObjectsWithNaNTransform(t *testing.T) {
	lib := meshlib.Build(8)
	badTransform := scene.NewTransform()
	badTransform.Position = mgl32.Vec3{float32(math.NaN()), 0, 0}
	snap := scene.Snapshot{
		Objects: []scene.Object{
			{ID: "a", Type: scene.Sphere, Transform: scene.NewTransform(), Material: scene.DefaultMaterial(), Visible: true},
			{ID: "b", Type: scene.Sphere, Transform: badTransform, Material: scene.DefaultMaterial(), Visible: true},
		},
	}

	instances, _ := visibleInstances(lib, snap, logging.NewNopLogger())
	require.Len(t, instances, 1)
}

func TestPackBackgroundRoundTripsChannels(t *testing.T) {
	packed := packBackground([3]float32{1, 0, 0.5})
	require.Equal(t, uint32(0xFF007F), packed)
}

func TestPackBackgroundClampsOutOfRangeChannels(t *testing.T) {
	packed := packBackground([3]float32{-1, 2, 0})
	require.Equal(t, uint32(0x00FF00), packed)
}

func TestStatsLineFormatsAllFields(t *testing.T) {
	line := StatsLine(Stats{FPS: 60.25, FrameTime: 0.0166, FrameCount: 42, SampleCount: 7})
	require.Contains(t, line, "fps 60.2")
	require.Contains(t, line, "#42")
	require.Contains(t, line, "spp 7")
}

func TestProfilerRecordsScopeDuration(t *testing.T) {
	p := NewProfiler()
	p.BeginScope("x")
	p.EndScope("x")
	require.True(t, p.Scope("x") >= 0)
}
