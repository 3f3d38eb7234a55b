package renderer

import (
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-volume/engine/layer"
	"github.com/go-gl/mathgl/mgl32"
)

// RendererBackendType identifies the backend implementation used by the Renderer.
type RendererBackendType int

const (
	// BackendTypeHeadless keeps uploaded volumes in host memory and draws nothing.
	BackendTypeHeadless RendererBackendType = iota

	// BackendTypeWGPU selects the WebGPU-based backend with a GLFW window.
	BackendTypeWGPU
)

func (t RendererBackendType) String() string {
	switch t {
	case BackendTypeHeadless:
		return "headless"
	case BackendTypeWGPU:
		return "wgpu"
	default:
		return fmt.Sprintf("RendererBackendType(%d)", int(t))
	}
}

// ParseBackendType maps a backend name to its RendererBackendType.
//
// Parameters:
//   - name: "headless" or "wgpu", case-insensitive
//
// Returns:
//   - RendererBackendType: the backend type
//   - error: an error if the name is unknown
func ParseBackendType(name string) (RendererBackendType, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "headless":
		return BackendTypeHeadless, nil
	case "wgpu":
		return BackendTypeWGPU, nil
	default:
		return 0, fmt.Errorf("renderer: unknown backend %q", name)
	}
}

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting, capping frame rate
	// to the monitor's refresh rate. Eliminates tearing.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	// May cause screen tearing but provides the lowest latency.
	PresentModeUncapped
)

// RendererBackend performs the API-specific work of the render loop.
// All methods except SetVisible and IsShowing are called from the render goroutine only.
type RendererBackend interface {
	// UploadVolume copies a published layer buffer into backend storage.
	// The buffer may be recycled by its producer as soon as this returns.
	//
	// Parameters:
	//   - data: the published buffer and its dimensions
	//   - bytesPerVoxel: the voxel format
	//   - reallocate: true when any layer's dimensions changed since the previous frame
	//
	// Returns:
	//   - error: an error if the upload failed
	UploadVolume(data layer.VolumeData, bytesPerVoxel int, reallocate bool) error

	// UpdateParameters refreshes per-layer render parameters and the view transform.
	//
	// Parameters:
	//   - states: a snapshot of every layer
	//   - viewProjection: the camera's combined view-projection matrix
	//
	// Returns:
	//   - error: an error if the parameters could not be applied
	UpdateParameters(states []layer.Snapshot, viewProjection mgl32.Mat4) error

	// DrawFrame renders and presents one frame.
	//
	// Returns:
	//   - error: an error if the frame could not be drawn
	DrawFrame() error

	// SetVisible shows or hides the backend's output surface.
	//
	// Parameters:
	//   - visible: true to show
	SetVisible(visible bool)

	// IsShowing reports whether the output surface is currently shown.
	//
	// Returns:
	//   - bool: true if showing
	IsShowing() bool

	// Close releases every backend resource.
	//
	// Returns:
	//   - error: an error if a resource could not be released
	Close() error
}
