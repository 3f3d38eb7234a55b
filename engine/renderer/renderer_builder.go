package renderer

import (
	"time"

	"github.com/Carmen-Shannon/oxy-volume/engine/profiler"
)

// RendererBuilderOption is a functional option applied to a renderer during construction via NewRenderer.
type RendererBuilderOption func(*renderer)

// WithRenderFrameLimit makes the render loop also run on a fixed cadence.
// Pass 0 to render only when RequestDisplay is called (default).
//
// Parameters:
//   - fps: render frames per second (0 = on request only)
//
// Returns:
//   - RendererBuilderOption: a function that applies the frame limit option to a renderer
func WithRenderFrameLimit(fps float64) RendererBuilderOption {
	return func(r *renderer) {
		if fps <= 0 {
			r.renderFrameLimit = 0
			return
		}
		r.renderFrameLimit = time.Duration(float64(time.Second) / fps)
	}
}

// WithRenderCallback registers a function called after every render loop iteration.
//
// Parameters:
//   - callback: function receiving the delta time in seconds since the previous iteration
//
// Returns:
//   - RendererBuilderOption: a function that applies the callback option to a renderer
func WithRenderCallback(callback func(deltaTime float32)) RendererBuilderOption {
	return func(r *renderer) {
		r.renderCallback = callback
	}
}

// WithProfiling enables or disables once-per-second frame statistics in the log.
//
// Parameters:
//   - enabled: if true, enables performance profiling
//
// Returns:
//   - RendererBuilderOption: a function that applies the profiling option to a renderer
func WithProfiling(enabled bool) RendererBuilderOption {
	return func(r *renderer) {
		r.profilingEnabled = enabled
	}
}

// WithMetrics records render loop counters on m.
//
// Parameters:
//   - m: the metrics sink, nil disables metrics
//
// Returns:
//   - RendererBuilderOption: a function that applies the metrics option to a renderer
func WithMetrics(m *profiler.Metrics) RendererBuilderOption {
	return func(r *renderer) {
		r.metrics = m
	}
}
