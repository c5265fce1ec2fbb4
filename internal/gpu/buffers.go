package gpu

import (
	"github.com/cogentcore/webgpu/wgpu"
)

const safeBufferSizeLimit = 1024 * 1024 * 1024

// ensureBuffer (re)allocates *buf so it holds len(data)+headroom bytes,
// growing geometrically (1.5x) like the teacher's manager.go so a
// slowly-growing scene doesn't reallocate every frame, then writes data.
// Returns true if a new buffer was allocated (bind groups referencing it
// must be rebuilt).
func ensureBuffer(device *wgpu.Device, label string, buf **wgpu.Buffer, data []byte, usage wgpu.BufferUsage) (bool, error) {
	needed := uint64(len(data))
	if needed%4 != 0 {
		needed += 4 - (needed % 4)
	}
	if needed == 0 {
		needed = 4
	}

	usage = usage | wgpu.BufferUsageCopyDst

	current := *buf
	if current == nil || current.GetSize() < needed {
		newSize := needed
		if current != nil {
			grown := uint64(float64(current.GetSize()) * 1.5)
			if grown > newSize {
				newSize = grown
			}
		}
		if newSize > safeBufferSizeLimit {
			return false, &Error{Kind: FaultAllocFailed}
		}

		newBuf, err := device.CreateBuffer(&wgpu.BufferDescriptor{
			Label:            label,
			Size:             newSize,
			Usage:            usage,
			MappedAtCreation: false,
		})
		if err != nil {
			return false, &Error{Kind: FaultAllocFailed, Cause: err}
		}
		if current != nil {
			current.Release()
		}
		*buf = newBuf
		if len(data) > 0 {
			device.GetQueue().WriteBuffer(*buf, 0, data)
		}
		return true, nil
	}

	if len(data) > 0 {
		device.GetQueue().WriteBuffer(*buf, 0, data)
	}
	return false, nil
}
