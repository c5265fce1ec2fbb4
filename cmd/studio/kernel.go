package main

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"github.com/rayforge/pathtrace/internal/scene"
)

// backgroundPresets are exposed as configuration rather than embedded
// shader constants: the exact day/dusk/night RGB values are this
// kernel's call, not the renderer's.
var backgroundPresets = map[string]mgl32.Vec3{
	"day":   {0.45, 0.62, 0.85},
	"dusk":  {0.55, 0.35, 0.30},
	"night": {0.03, 0.03, 0.06},
}

// Kernel is the in-memory demo scene kernel: it implements scene.Source
// for the renderer and accepts scene-editing commands through a
// collaborator interface, without itself being part of the core.
// Single-threaded, matching the host's cooperative, display-callback-
// driven concurrency model — no locks.
type Kernel struct {
	scene      *scene.Scene
	undoStack  []scene.Snapshot
	redoStack  []scene.Snapshot
	maxHistory int
}

func NewKernel() *Kernel {
	return &Kernel{
		scene:      scene.NewScene(),
		maxHistory: 50,
	}
}

// Snapshot implements scene.Source for the renderer.
func (k *Kernel) Snapshot() scene.Snapshot {
	return k.scene.Snapshot()
}

func (k *Kernel) pushUndo() {
	k.undoStack = append(k.undoStack, k.scene.Snapshot())
	if len(k.undoStack) > k.maxHistory {
		k.undoStack = k.undoStack[1:]
	}
	k.redoStack = k.redoStack[:0]
}

// restore applies a prior snapshot's state but always mints a fresh
// version number, so the renderer's version-based change detection
// never mistakes an undo/redo round trip for "nothing changed" just
// because it landed back on a previously-seen version number.
func (k *Kernel) restore(snap scene.Snapshot) {
	k.scene.Objects = snap.Objects
	k.scene.SelectedID = snap.SelectedID
	k.scene.Camera = snap.Camera
	k.scene.Background = snap.Background
	k.scene.Version++
}

// AddObject implements object.add{primitive}: creates a default-material
// instance of kind at the origin and selects it.
func (k *Kernel) AddObject(kind scene.PrimitiveKind, name string) string {
	k.pushUndo()
	id := uuid.NewString()
	obj := scene.Object{
		ID:        id,
		Name:      name,
		Type:      kind,
		Transform: scene.NewTransform(),
		Material:  scene.DefaultMaterial(),
		Visible:   true,
	}
	if err := k.scene.AddObject(obj); err != nil {
		// instance cap reached: undo the no-op push and report nothing.
		k.undoStack = k.undoStack[:len(k.undoStack)-1]
		return ""
	}
	k.scene.SetSelected(id)
	return id
}

// RemoveObject implements object.remove{id}.
func (k *Kernel) RemoveObject(id string) {
	k.pushUndo()
	k.scene.RemoveObject(id)
}

// Rename implements object.rename.
func (k *Kernel) Rename(id, name string) {
	obj := k.scene.Find(id)
	if obj == nil {
		return
	}
	k.pushUndo()
	obj = k.scene.Find(id)
	obj.Name = name
	k.scene.Touch()
}

// SetVisibility implements object.visibility.set.
func (k *Kernel) SetVisibility(id string, visible bool) {
	obj := k.scene.Find(id)
	if obj == nil {
		return
	}
	k.pushUndo()
	obj = k.scene.Find(id)
	obj.Visible = visible
	k.scene.Touch()
}

// Duplicate implements object.duplicate: clones id with a new identity,
// nudged along X so it doesn't perfectly overlap its source.
func (k *Kernel) Duplicate(id string) string {
	src := k.scene.Find(id)
	if src == nil {
		return ""
	}
	k.pushUndo()
	clone := *src
	clone.ID = uuid.NewString()
	clone.Name = fmt.Sprintf("%s copy", src.Name)
	clone.Transform.Position = clone.Transform.Position.Add(mgl32.Vec3{1, 0, 0})
	if err := k.scene.AddObject(clone); err != nil {
		k.undoStack = k.undoStack[:len(k.undoStack)-1]
		return ""
	}
	k.scene.SetSelected(clone.ID)
	return clone.ID
}

// SetSelected implements selection.set. Selection changes are not
// undoable history entries — only structural/value edits need an undo
// record.
func (k *Kernel) SetSelected(id string) {
	k.scene.SetSelected(id)
}

// UpdateCamera applies the host's orbit-camera input (drag/scroll) to
// the live scene. Like selection, camera motion is not pushed onto the
// undo stack — only a mid-drag history entry would make "undo" useless
// during a single orbit gesture.
func (k *Kernel) UpdateCamera(cam scene.Camera) {
	k.scene.Camera = cam
	k.scene.Touch()
}

// UpdateTransform implements transform.update.
func (k *Kernel) UpdateTransform(id string, t scene.Transform) {
	if k.scene.Find(id) == nil {
		return
	}
	k.pushUndo()
	k.scene.UpdateTransform(id, t)
}

// UpdateMaterial implements material.update.
func (k *Kernel) UpdateMaterial(id string, m scene.Material) {
	if k.scene.Find(id) == nil {
		return
	}
	k.pushUndo()
	k.scene.UpdateMaterial(id, m)
}

// SetBackground implements environment.background.set.
func (k *Kernel) SetBackground(c mgl32.Vec3) {
	k.pushUndo()
	k.scene.SetBackground(c)
}

// SetBackgroundPreset implements environment.background.preset.
func (k *Kernel) SetBackgroundPreset(name string) {
	c, ok := backgroundPresets[name]
	if !ok {
		return
	}
	k.SetBackground(c)
}

// Undo implements history.undo.
func (k *Kernel) Undo() {
	if len(k.undoStack) == 0 {
		return
	}
	prev := k.undoStack[len(k.undoStack)-1]
	k.undoStack = k.undoStack[:len(k.undoStack)-1]
	k.redoStack = append(k.redoStack, k.scene.Snapshot())
	k.restore(prev)
}

// Redo implements history.redo.
func (k *Kernel) Redo() {
	if len(k.redoStack) == 0 {
		return
	}
	next := k.redoStack[len(k.redoStack)-1]
	k.redoStack = k.redoStack[:len(k.redoStack)-1]
	k.undoStack = append(k.undoStack, k.scene.Snapshot())
	k.restore(next)
}
