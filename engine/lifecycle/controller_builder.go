package lifecycle

import "github.com/Carmen-Shannon/oxy-volume/engine/profiler"

// ControllerBuilderOption is a functional option applied to a controller during construction via NewController.
type ControllerBuilderOption func(*controller)

// WithTitle sets the title passed to every renderer the controller builds.
//
// Parameters:
//   - title: the window title
//
// Returns:
//   - ControllerBuilderOption: a function that applies the title to a controller
func WithTitle(title string) ControllerBuilderOption {
	return func(c *controller) {
		c.title = title
	}
}

// WithWindowSize sets the window size passed to every renderer the controller builds.
//
// Parameters:
//   - width: window width in pixels
//   - height: window height in pixels
//
// Returns:
//   - ControllerBuilderOption: a function that applies the size to a controller
func WithWindowSize(width, height int) ControllerBuilderOption {
	return func(c *controller) {
		c.width = width
		c.height = height
	}
}

// WithMinLayers sets the smallest layer count a renderer is built with, so that the first
// channels do not each force a reconfiguration.
//
// Parameters:
//   - layers: the minimum layer count, values below 1 are ignored
//
// Returns:
//   - ControllerBuilderOption: a function that applies the minimum to a controller
func WithMinLayers(layers int) ControllerBuilderOption {
	return func(c *controller) {
		if layers >= 1 {
			c.minLayers = layers
		}
	}
}

// WithPoolCapacity sets the capacity of every frame pool the controller creates.
//
// Parameters:
//   - capacity: the maximum number of outstanding frames
//
// Returns:
//   - ControllerBuilderOption: a function that applies the capacity to a controller
func WithPoolCapacity(capacity int) ControllerBuilderOption {
	return func(c *controller) {
		if capacity > 0 {
			c.poolCapacity = capacity
		}
	}
}

// WithVisible sets whether renderers are shown as soon as they are built.
//
// Parameters:
//   - visible: true to show new renderers
//
// Returns:
//   - ControllerBuilderOption: a function that applies the visibility to a controller
func WithVisible(visible bool) ControllerBuilderOption {
	return func(c *controller) {
		c.visible = visible
	}
}

// WithMetrics records reconfigurations on m.
//
// Parameters:
//   - m: the metrics sink, nil disables metrics
//
// Returns:
//   - ControllerBuilderOption: a function that applies the metrics to a controller
func WithMetrics(m *profiler.Metrics) ControllerBuilderOption {
	return func(c *controller) {
		c.metrics = m
	}
}
