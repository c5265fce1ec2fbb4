package main

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/rayforge/pathtrace/internal/scene"
	"github.com/stretchr/testify/require"
)

func TestAddObjectSelectsTheNewObject(t *testing.T) {
	k := NewKernel()
	id := k.AddObject(scene.Sphere, "Ball")
	require.NotEmpty(t, id)

	snap := k.Snapshot()
	require.Len(t, snap.Objects, 1)
	require.Equal(t, id, snap.SelectedID)
}

func TestAddObjectRejectsPastInstanceCap(t *testing.T) {
	k := NewKernel()
	for i := 0; i < scene.MaxInstances; i++ {
		require.NotEmpty(t, k.AddObject(scene.Sphere, "o"))
	}
	versionBefore := k.Snapshot().Version

	id := k.AddObject(scene.Sphere, "overflow")
	require.Empty(t, id)
	require.Len(t, k.Snapshot().Objects, scene.MaxInstances)
	require.Equal(t, versionBefore, k.Snapshot().Version, "a rejected add must not leave a dangling undo entry or bump Version")
}

func TestRemoveObjectClearsSelection(t *testing.T) {
	k := NewKernel()
	id := k.AddObject(scene.Sphere, "Ball")
	k.RemoveObject(id)

	snap := k.Snapshot()
	require.Empty(t, snap.Objects)
	require.Empty(t, snap.SelectedID)
}

func TestDuplicateCreatesDistinctNudgedCopy(t *testing.T) {
	k := NewKernel()
	id := k.AddObject(scene.Sphere, "Ball")
	copyID := k.Duplicate(id)

	require.NotEmpty(t, copyID)
	require.NotEqual(t, id, copyID)

	snap := k.Snapshot()
	require.Len(t, snap.Objects, 2)
	require.Equal(t, copyID, snap.SelectedID)

	orig := snap.Objects[0]
	dup := snap.Objects[1]
	require.NotEqual(t, orig.Transform.Position, dup.Transform.Position)
}

func TestUndoRedoRoundTripsObjectList(t *testing.T) {
	k := NewKernel()
	id := k.AddObject(scene.Sphere, "Ball")
	require.Len(t, k.Snapshot().Objects, 1)

	k.RemoveObject(id)
	require.Empty(t, k.Snapshot().Objects)

	k.Undo()
	require.Len(t, k.Snapshot().Objects, 1)
	require.Equal(t, id, k.Snapshot().Objects[0].ID)

	k.Redo()
	require.Empty(t, k.Snapshot().Objects)
}

func TestUndoPastHistoryStartIsANoOp(t *testing.T) {
	k := NewKernel()
	snapBefore := k.Snapshot()
	k.Undo()
	require.Equal(t, snapBefore, k.Snapshot())
}

func TestUndoRedoAlwaysAdvanceVersionEvenOnRepeatedState(t *testing.T) {
	k := NewKernel()
	id := k.AddObject(scene.Sphere, "Ball")
	k.SetVisibility(id, false)
	v1 := k.Snapshot().Version

	k.Undo()
	v2 := k.Snapshot().Version
	require.NotEqual(t, v1, v2)

	k.Redo()
	v3 := k.Snapshot().Version
	require.NotEqual(t, v2, v3)
}

func TestSetBackgroundPresetIgnoresUnknownName(t *testing.T) {
	k := NewKernel()
	before := k.Snapshot().Background

	k.SetBackgroundPreset("not-a-real-preset")
	require.Equal(t, before, k.Snapshot().Background)

	k.SetBackgroundPreset("night")
	require.NotEqual(t, before, k.Snapshot().Background)
}

func TestUpdateCameraIsNotUndoable(t *testing.T) {
	k := NewKernel()
	before := k.Snapshot().Camera

	cam := before
	cam.Azimuth += 1.0
	k.UpdateCamera(cam)
	require.NotEqual(t, before, k.Snapshot().Camera)

	k.Undo()
	require.Equal(t, cam, k.Snapshot().Camera, "camera motion must not be on the undo stack")
}

func TestRenameBumpsVersionWithoutTouchingSelection(t *testing.T) {
	k := NewKernel()
	id := k.AddObject(scene.Sphere, "Ball")
	before := k.Snapshot()

	k.Rename(id, "Renamed")
	after := k.Snapshot()

	require.Equal(t, before.SelectedID, after.SelectedID)
	require.NotEqual(t, before.Version, after.Version)
	require.Equal(t, "Renamed", after.Objects[0].Name)
}

func TestUpdateTransformIsANoOpForUnknownID(t *testing.T) {
	k := NewKernel()
	before := k.Snapshot()

	k.UpdateTransform("missing", scene.Transform{Position: mgl32.Vec3{1, 2, 3}})
	require.Equal(t, before, k.Snapshot())
}
