package controls

import (
	"github.com/Carmen-Shannon/oxy-volume/common"
	"github.com/Carmen-Shannon/oxy-volume/engine/camera"
	"github.com/Carmen-Shannon/oxy-volume/engine/layer"
	"github.com/go-gl/mathgl/mgl32"
)

// InputSource is the part of a window the controls listen to.
type InputSource interface {
	SetKeyDownCallback(callback func(keyCode uint32))
	SetScrollCallback(callback func(delta float32))
	SetDragCallback(callback func(dx, dy float32))
}

// Controls maps keyboard and mouse input onto the current layer and the view camera.
//
// Keys:
//   - 1..9: select layer, Tab / N: next layer, V: toggle visibility
//   - Up / Down: brightness, Left / Right: move the transfer range, W / S: widen or narrow it
//   - G / F: gamma, E / Q: quality, R: reset camera and photometry
//
// Scroll zooms, left-drag rotates.
type Controls struct {
	cursor *layer.Cursor
	camera camera.Camera

	brightnessStep float64
	gammaStep      float64
	qualityStep    float64
	rangeStep      float64
	zoomStep       float32
	rotateSpeed    float32
}

// NewControls creates controls over a layer cursor and a camera.
//
// Parameters:
//   - cursor: the current-layer cursor
//   - cam: the view camera
//   - options: variadic list of ControlsBuilderOption functions
//
// Returns:
//   - *Controls: the controls, not yet bound to an input source
func NewControls(cursor *layer.Cursor, cam camera.Camera, options ...ControlsBuilderOption) *Controls {
	c := &Controls{
		cursor:         cursor,
		camera:         cam,
		brightnessStep: 0.25,
		gammaStep:      0.1,
		qualityStep:    0.05,
		rangeStep:      0.02,
		zoomStep:       0.25,
		rotateSpeed:    0.005,
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// Bind registers the controls' callbacks on src.
//
// Parameters:
//   - src: the input source, usually a window
func (c *Controls) Bind(src InputSource) {
	src.SetKeyDownCallback(func(keyCode uint32) {
		c.HandleKey(keyCode)
	})
	src.SetScrollCallback(c.HandleScroll)
	src.SetDragCallback(c.HandleDrag)
}

// HandleKey applies the action bound to a key.
//
// Parameters:
//   - keyCode: the GLFW key code
//
// Returns:
//   - bool: false if the key has no binding
func (c *Controls) HandleKey(keyCode uint32) bool {
	switch {
	case keyCode >= common.Key1 && keyCode <= common.Key9:
		index := int(keyCode - common.Key1)
		if index >= c.cursor.Manager().Count() {
			return false
		}
		c.cursor.SetCurrent(index)
	case keyCode == common.KeyTab || keyCode == common.KeyN:
		c.cursor.Next()
	case keyCode == common.KeyV:
		c.cursor.ToggleVisible()
	case keyCode == common.KeyUp:
		c.cursor.AddBrightness(c.brightnessStep)
	case keyCode == common.KeyDown:
		c.cursor.AddBrightness(-c.brightnessStep)
	case keyCode == common.KeyRight:
		c.cursor.AddTransferFunctionRangePosition(c.rangeStep)
	case keyCode == common.KeyLeft:
		c.cursor.AddTransferFunctionRangePosition(-c.rangeStep)
	case keyCode == common.KeyW:
		c.cursor.AddTransferFunctionRangeWidth(c.rangeStep)
	case keyCode == common.KeyS:
		c.cursor.AddTransferFunctionRangeWidth(-c.rangeStep)
	case keyCode == common.KeyG:
		c.cursor.SetGamma(c.cursor.Gamma() + c.gammaStep)
	case keyCode == common.KeyF:
		c.cursor.SetGamma(c.cursor.Gamma() - c.gammaStep)
	case keyCode == common.KeyE:
		c.cursor.SetQuality(c.cursor.Quality() + c.qualityStep)
	case keyCode == common.KeyQ:
		c.cursor.SetQuality(c.cursor.Quality() - c.qualityStep)
	case keyCode == common.KeyR:
		c.camera.Reset()
		c.cursor.Manager().ResetPhotometry()
	default:
		return false
	}
	return true
}

// HandleScroll moves the volume towards (positive delta) or away from the viewer.
func (c *Controls) HandleScroll(delta float32) {
	c.camera.AddTranslation(mgl32.Vec3{0, 0, delta * c.zoomStep})
}

// HandleDrag rotates the volume; horizontal motion turns it around Y, vertical around X.
func (c *Controls) HandleDrag(dx, dy float32) {
	c.camera.AddRotation(dy*c.rotateSpeed, dx*c.rotateSpeed)
}
