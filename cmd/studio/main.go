// Command studio is the interactive scene editor host: a glfw window
// driving the internal/render frame loop, grounded on the teacher's
// rt_main.go (window/callback setup) and App.Init (voxelrt/rt/app/app.go,
// WebGPU instance/surface/adapter/device bring-up).
package main

import (
	"flag"
	"runtime"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/rayforge/pathtrace/internal/logging"
	"github.com/rayforge/pathtrace/internal/meshlib"
	"github.com/rayforge/pathtrace/internal/picker"
	"github.com/rayforge/pathtrace/internal/render"
	"github.com/rayforge/pathtrace/internal/scene"
	"github.com/rayforge/pathtrace/internal/shaders"
)

func init() {
	runtime.LockOSThread()
}

// orbitSensitivity and scrollSensitivity tune mouse-drag-to-orbit and
// wheel-to-zoom.
const (
	orbitSensitivity  = 0.005
	scrollSensitivity = 0.5
)

// input tracks the drag gesture state across callbacks; glfw callbacks
// are closures over it rather than methods, matching the teacher's
// rt_main.go style of inline callback bodies.
type input struct {
	dragging   bool
	lastX      float64
	lastY      float64
	baseCamera scene.Camera
}

func main() {
	debug := flag.Bool("debug", false, "enable debug logging")
	leafSize := flag.Int("leaf-size", 8, "max triangles per BVH leaf")
	flag.Parse()

	log := logging.NewDefaultLogger("studio", *debug)

	if err := glfw.Init(); err != nil {
		log.Errorf("glfw init: %v", err)
		return
	}
	defer glfw.Terminate()

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	window, err := glfw.CreateWindow(1280, 720, "Path Trace Studio", nil, nil)
	if err != nil {
		log.Errorf("create window: %v", err)
		return
	}
	defer window.Destroy()

	library := meshlib.Build(*leafSize)
	kernel := NewKernel()

	seedDemoScene(kernel)

	instance := wgpu.CreateInstance(nil)
	surface := instance.CreateSurface(wgpuglfw.GetSurfaceDescriptor(window))

	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: surface,
		PowerPreference:   wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		log.Errorf("request adapter: %v", err)
		return
	}

	device, err := adapter.RequestDevice(nil)
	if err != nil {
		log.Errorf("request device: %v", err)
		return
	}

	width, height := window.GetFramebufferSize()
	caps := surface.GetCapabilities(adapter)
	surfaceFormat := caps.Formats[0]

	config := &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      surfaceFormat,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: wgpu.PresentModeFifo,
		AlphaMode:   caps.AlphaModes[0],
	}
	surface.Configure(adapter, device, config)

	renderer, err := render.New(device, log, library, kernel, surfaceFormat,
		shaders.PathTracerWGSL, shaders.BlitWGSL, shaders.GizmoWGSL,
		render.Config{SamplesPerPixel: 1, MaxBounces: 6})
	if err != nil {
		log.Errorf("build renderer: %v", err)
		return
	}
	if err := renderer.Resize(uint32(width), uint32(height)); err != nil {
		log.Errorf("initial resize: %v", err)
		return
	}

	in := &input{}

	window.SetFramebufferSizeCallback(func(w *glfw.Window, width, height int) {
		if width == 0 || height == 0 {
			return
		}
		config.Width, config.Height = uint32(width), uint32(height)
		surface.Configure(adapter, device, config)
		if err := renderer.Resize(uint32(width), uint32(height)); err != nil {
			log.Errorf("resize: %v", err)
		}
	})

	window.SetMouseButtonCallback(func(w *glfw.Window, button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
		switch button {
		case glfw.MouseButtonRight:
			if action == glfw.Press {
				in.dragging = true
				in.lastX, in.lastY = w.GetCursorPos()
				in.baseCamera = kernel.Snapshot().Camera
			} else if action == glfw.Release {
				in.dragging = false
			}
		case glfw.MouseButtonLeft:
			if action == glfw.Press {
				handlePick(w, kernel, library)
			}
		}
	})

	window.SetCursorPosCallback(func(w *glfw.Window, xpos, ypos float64) {
		if !in.dragging {
			return
		}
		dx := float32(xpos - in.lastX)
		dy := float32(ypos - in.lastY)
		cam := in.baseCamera
		cam.Azimuth -= dx * orbitSensitivity
		cam.Elevation += dy * orbitSensitivity
		kernel.UpdateCamera(cam.Clamped())
	})

	window.SetScrollCallback(func(w *glfw.Window, xoff, yoff float64) {
		cam := kernel.Snapshot().Camera
		cam.Distance -= float32(yoff) * scrollSensitivity
		kernel.UpdateCamera(cam.Clamped())
	})

	window.SetKeyCallback(func(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if action != glfw.Press {
			return
		}
		switch key {
		case glfw.KeyEscape:
			w.SetShouldClose(true)
		case glfw.KeyZ:
			if mods&glfw.ModControl != 0 {
				kernel.Undo()
			}
		case glfw.KeyY:
			if mods&glfw.ModControl != 0 {
				kernel.Redo()
			}
		case glfw.KeyDelete:
			if sel := kernel.Snapshot().SelectedID; sel != "" {
				kernel.RemoveObject(sel)
			}
		}
	})

	lastTime := glfw.GetTime()
	for !window.ShouldClose() {
		glfw.PollEvents()

		now := glfw.GetTime()
		frameTime := now - lastTime
		lastTime = now

		nextTexture, err := surface.GetCurrentTexture()
		if err != nil {
			log.Warnf("get current texture: %v", err)
			continue
		}
		view, err := nextTexture.CreateView(nil)
		if err != nil {
			log.Warnf("create surface view: %v", err)
			nextTexture.Release()
			continue
		}

		if err := renderer.Frame(view, frameTime); err != nil {
			log.Errorf("frame: %v", err)
		}

		surface.Present()
		view.Release()
		nextTexture.Release()
	}
}

// handlePick casts a ray from the cursor position and selects whatever
// instance it hits first, clearing the selection on a miss.
func handlePick(w *glfw.Window, kernel *Kernel, library *meshlib.Library) {
	width, height := w.GetFramebufferSize()
	if width == 0 || height == 0 {
		return
	}
	x, y := w.GetCursorPos()

	nx := float32(x)/float32(width)*2.0 - 1.0
	ny := 1.0 - float32(y)/float32(height)*2.0
	aspect := float32(width) / float32(height)

	snap := kernel.Snapshot()
	ray := picker.Ray(snap.Camera, nx, ny, aspect)

	instances := make([]scene.Instance, 0, len(snap.Objects))
	ids := make([]string, 0, len(snap.Objects))
	for _, obj := range snap.Objects {
		if !obj.Visible {
			continue
		}
		meshID := obj.Type.MeshID()
		instances = append(instances, scene.NewInstance(obj, library.AABBMin[meshID], library.AABBMax[meshID], false))
		ids = append(ids, obj.ID)
	}

	hit, ok := picker.Pick(ray, library, instances)
	if !ok {
		kernel.SetSelected("")
		return
	}
	kernel.SetSelected(ids[hit.InstanceIndex])
}

// seedDemoScene populates a small starting scene so the window isn't
// empty on first launch.
func seedDemoScene(kernel *Kernel) {
	ground := kernel.AddObject(scene.Cuboid, "Ground")
	kernel.UpdateTransform(ground, scene.Transform{
		Position: mgl32.Vec3{0, -1.5, 0},
		Rotation: mgl32.Vec3{0, 0, 0},
		Scale:    mgl32.Vec3{8, 0.2, 8},
	})

	sphere := kernel.AddObject(scene.Sphere, "Sphere")
	kernel.UpdateTransform(sphere, scene.Transform{
		Position: mgl32.Vec3{-1.2, 0, 0},
		Rotation: mgl32.Vec3{0, 0, 0},
		Scale:    mgl32.Vec3{1, 1, 1},
	})
	kernel.UpdateMaterial(sphere, scene.Material{Kind: scene.Metal, Color: mgl32.Vec3{0.9, 0.9, 0.95}})

	glassSphere := kernel.AddObject(scene.Sphere, "Glass Sphere")
	kernel.UpdateTransform(glassSphere, scene.Transform{
		Position: mgl32.Vec3{1.2, 0, 0},
		Rotation: mgl32.Vec3{0, 0, 0},
		Scale:    mgl32.Vec3{1, 1, 1},
	})
	kernel.UpdateMaterial(glassSphere, scene.Material{Kind: scene.Glass, IOR: 1.5})

	light := kernel.AddObject(scene.Cuboid, "Light")
	kernel.UpdateTransform(light, scene.Transform{
		Position: mgl32.Vec3{0, 4, 0},
		Rotation: mgl32.Vec3{0, 0, 0},
		Scale:    mgl32.Vec3{2, 0.1, 2},
	})
	kernel.UpdateMaterial(light, scene.Material{Kind: scene.Light, Intensity: 8})

	kernel.SetSelected("")
}
