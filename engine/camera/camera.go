package camera

import (
	"math"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
)

// DefaultTranslationZ is the distance the volume is pushed away from the eye after a reset.
const DefaultTranslationZ float32 = -4

type cameraImpl struct {
	mu *sync.Mutex

	translation mgl32.Vec3
	rotation    mgl32.Quat

	fov    float32
	aspect float32
	near   float32
	far    float32

	viewMatrix           mgl32.Mat4
	projectionMatrix     mgl32.Mat4
	viewProjectionMatrix mgl32.Mat4

	onChange func()
}

// Camera defines the view transform applied to the volume stack.
// The volume sits at the origin; the camera holds a global translation and rotation of the
// volume relative to the eye and a perspective projection. Every mutation recomputes the
// matrices and fires the change callback so the renderer refreshes its parameters.
type Camera interface {
	// Translation returns the global translation of the volume.
	//
	// Returns:
	//   - mgl32.Vec3: the translation
	Translation() mgl32.Vec3

	// SetTranslation sets the global translation of the volume.
	//
	// Parameters:
	//   - t: the new translation
	SetTranslation(t mgl32.Vec3)

	// AddTranslation moves the volume by delta.
	//
	// Parameters:
	//   - delta: the translation to add
	AddTranslation(delta mgl32.Vec3)

	// Rotation returns the global rotation of the volume.
	//
	// Returns:
	//   - mgl32.Quat: the rotation
	Rotation() mgl32.Quat

	// SetRotation sets the global rotation of the volume.
	//
	// Parameters:
	//   - q: the new rotation, normalized before use
	SetRotation(q mgl32.Quat)

	// AddRotation rotates the volume by the given angles around the view X and Y axes.
	//
	// Parameters:
	//   - dx: rotation around X in radians
	//   - dy: rotation around Y in radians
	AddRotation(dx, dy float32)

	// Reset restores the identity rotation and the default translation (0, 0, DefaultTranslationZ).
	Reset()

	// Fov returns the vertical field of view in radians.
	//
	// Returns:
	//   - float32: field of view in radians
	Fov() float32

	// Aspect returns the aspect ratio (width / height).
	//
	// Returns:
	//   - float32: the aspect ratio
	Aspect() float32

	// SetAspect sets the aspect ratio and recomputes matrices.
	//
	// Parameters:
	//   - aspect: the aspect ratio
	SetAspect(aspect float32)

	// ViewMatrix returns the model-view matrix (translation × rotation).
	//
	// Returns:
	//   - mgl32.Mat4: the view matrix, column-major
	ViewMatrix() mgl32.Mat4

	// ProjectionMatrix returns the perspective projection matrix.
	//
	// Returns:
	//   - mgl32.Mat4: the projection matrix, column-major
	ProjectionMatrix() mgl32.Mat4

	// ViewProjectionMatrix returns projection × view.
	//
	// Returns:
	//   - mgl32.Mat4: the combined matrix, column-major
	ViewProjectionMatrix() mgl32.Mat4

	// SetChangeCallback registers the function called after every mutation.
	//
	// Parameters:
	//   - callback: the function to call, or nil to disable
	SetChangeCallback(callback func())
}

var _ Camera = &cameraImpl{}

// NewCamera creates a new Camera in its reset pose with a 45° field of view.
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the newly created camera
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		mu:          &sync.Mutex{},
		translation: mgl32.Vec3{0, 0, DefaultTranslationZ},
		rotation:    mgl32.QuatIdent(),
		fov:         45.0 * (math.Pi / 180.0),
		aspect:      1.0,
		near:        0.1,
		far:         100.0,
	}
	for _, option := range options {
		option(c)
	}
	c.updateMatrices()
	return c
}

func (c *cameraImpl) Translation() mgl32.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.translation
}

func (c *cameraImpl) SetTranslation(t mgl32.Vec3) {
	c.mutate(func() { c.translation = t })
}

func (c *cameraImpl) AddTranslation(delta mgl32.Vec3) {
	c.mutate(func() { c.translation = c.translation.Add(delta) })
}

func (c *cameraImpl) Rotation() mgl32.Quat {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rotation
}

func (c *cameraImpl) SetRotation(q mgl32.Quat) {
	c.mutate(func() { c.rotation = q.Normalize() })
}

func (c *cameraImpl) AddRotation(dx, dy float32) {
	c.mutate(func() {
		qx := mgl32.QuatRotate(dx, mgl32.Vec3{1, 0, 0})
		qy := mgl32.QuatRotate(dy, mgl32.Vec3{0, 1, 0})
		c.rotation = qy.Mul(qx).Mul(c.rotation).Normalize()
	})
}

func (c *cameraImpl) Reset() {
	c.mutate(func() {
		c.translation = mgl32.Vec3{0, 0, DefaultTranslationZ}
		c.rotation = mgl32.QuatIdent()
	})
}

func (c *cameraImpl) Fov() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fov
}

func (c *cameraImpl) Aspect() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aspect
}

func (c *cameraImpl) SetAspect(aspect float32) {
	if aspect <= 0 {
		return
	}
	c.mutate(func() { c.aspect = aspect })
}

func (c *cameraImpl) ViewMatrix() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewMatrix
}

func (c *cameraImpl) ProjectionMatrix() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.projectionMatrix
}

func (c *cameraImpl) ViewProjectionMatrix() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewProjectionMatrix
}

func (c *cameraImpl) SetChangeCallback(callback func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = callback
}

// mutate applies fn under the lock, recomputes matrices and fires the change callback outside the lock.
func (c *cameraImpl) mutate(fn func()) {
	c.mu.Lock()
	fn()
	c.updateMatrices()
	cb := c.onChange
	c.mu.Unlock()

	if cb != nil {
		cb()
	}
}

// updateMatrices recalculates the view, projection and view-projection matrices.
// Caller must hold the mutex.
func (c *cameraImpl) updateMatrices() {
	c.viewMatrix = mgl32.Translate3D(c.translation[0], c.translation[1], c.translation[2]).Mul4(c.rotation.Mat4())
	c.projectionMatrix = mgl32.Perspective(c.fov, c.aspect, c.near, c.far)
	c.viewProjectionMatrix = c.projectionMatrix.Mul4(c.viewMatrix)
}
