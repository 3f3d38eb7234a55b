package controls

// ControlsBuilderOption is a functional option applied to Controls during construction via NewControls.
type ControlsBuilderOption func(*Controls)

// WithBrightnessStep sets the brightness change per key press.
//
// Parameters:
//   - step: the brightness delta
//
// Returns:
//   - ControlsBuilderOption: a function that applies the step
func WithBrightnessStep(step float64) ControlsBuilderOption {
	return func(c *Controls) {
		c.brightnessStep = step
	}
}

// WithRangeStep sets the transfer range position and width change per key press.
//
// Parameters:
//   - step: the range delta, in normalized intensity units
//
// Returns:
//   - ControlsBuilderOption: a function that applies the step
func WithRangeStep(step float64) ControlsBuilderOption {
	return func(c *Controls) {
		c.rangeStep = step
	}
}

// WithZoomStep sets the translation per scroll unit.
//
// Parameters:
//   - step: the Z translation per scroll unit
//
// Returns:
//   - ControlsBuilderOption: a function that applies the step
func WithZoomStep(step float32) ControlsBuilderOption {
	return func(c *Controls) {
		c.zoomStep = step
	}
}

// WithRotateSpeed sets the rotation per dragged pixel.
//
// Parameters:
//   - speed: radians per pixel
//
// Returns:
//   - ControlsBuilderOption: a function that applies the speed
func WithRotateSpeed(speed float32) ControlsBuilderOption {
	return func(c *Controls) {
		c.rotateSpeed = speed
	}
}
