package camera

import "github.com/go-gl/mathgl/mgl32"

// CameraBuilderOption is a functional option applied to a camera during construction via NewCamera.
type CameraBuilderOption func(*cameraImpl)

// WithFov sets the camera's field of view in radians.
//
// Parameters:
//   - fov: field of view in radians
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's field of view
func WithFov(fov float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.fov = fov
	}
}

// WithAspect sets the camera's aspect ratio (width / height).
//
// Parameters:
//   - aspect: the aspect ratio to set
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's aspect ratio
func WithAspect(aspect float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		if aspect > 0 {
			c.aspect = aspect
		}
	}
}

// WithClipPlanes sets the near and far clipping plane distances.
//
// Parameters:
//   - near: near plane distance
//   - far: far plane distance
//
// Returns:
//   - CameraBuilderOption: a function that sets the clipping planes
func WithClipPlanes(near, far float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.near = near
		c.far = far
	}
}

// WithTranslation sets the initial volume translation instead of the reset pose.
//
// Parameters:
//   - t: the initial translation
//
// Returns:
//   - CameraBuilderOption: a function that sets the translation
func WithTranslation(t mgl32.Vec3) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.translation = t
	}
}

// WithChangeCallback registers the function called after every mutation.
//
// Parameters:
//   - callback: the function to call
//
// Returns:
//   - CameraBuilderOption: a function that sets the change callback
func WithChangeCallback(callback func()) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.onChange = callback
	}
}
