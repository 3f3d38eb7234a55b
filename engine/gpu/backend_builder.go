package gpu

import (
	"time"

	"github.com/Carmen-Shannon/oxy-volume/engine/renderer"
	"github.com/cogentcore/webgpu/wgpu"
)

// BackendBuilderOption is a functional option applied to a backend during construction via NewBackend.
type BackendBuilderOption func(*backend)

// WithPresentMode sets the surface present mode. The default is VSync.
//
// Parameters:
//   - mode: the PresentMode to use
//
// Returns:
//   - BackendBuilderOption: a function that applies the present mode to a backend
func WithPresentMode(mode renderer.PresentMode) BackendBuilderOption {
	return func(b *backend) {
		switch mode {
		case renderer.PresentModeUncapped:
			b.presentMode = wgpu.PresentModeImmediate
		default:
			b.presentMode = wgpu.PresentModeFifo
		}
	}
}

// WithForceFallbackAdapter requests the software fallback adapter.
//
// Parameters:
//   - force: true to force the fallback adapter
//
// Returns:
//   - BackendBuilderOption: a function that applies the adapter option to a backend
func WithForceFallbackAdapter(force bool) BackendBuilderOption {
	return func(b *backend) {
		b.forceFallbackAdapter = force
	}
}

// WithClearColor sets the background color of presented frames.
//
// Parameters:
//   - r, g, b, a: color components in [0,1]
//
// Returns:
//   - BackendBuilderOption: a function that applies the clear color to a backend
func WithClearColor(r, g, b, a float64) BackendBuilderOption {
	return func(be *backend) {
		be.clearColor = wgpu.Color{R: r, G: g, B: b, A: a}
	}
}

// WithPollInterval sets how often window events are polled between render calls.
//
// Parameters:
//   - d: the poll interval, ignored if not positive
//
// Returns:
//   - BackendBuilderOption: a function that applies the interval to a backend
func WithPollInterval(d time.Duration) BackendBuilderOption {
	return func(b *backend) {
		if d > 0 {
			b.pollInterval = d
		}
	}
}

// WithStartVisible shows the window as soon as it is created.
//
// Parameters:
//   - visible: the initial visibility
//
// Returns:
//   - BackendBuilderOption: a function that applies the visibility to a backend
func WithStartVisible(visible bool) BackendBuilderOption {
	return func(b *backend) {
		b.startVisible = visible
	}
}
