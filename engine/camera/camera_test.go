package camera

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestNewCameraStartsInResetPose(t *testing.T) {
	c := NewCamera()
	assert.Equal(t, mgl32.Vec3{0, 0, DefaultTranslationZ}, c.Translation())
	assert.True(t, c.Rotation().ApproxEqual(mgl32.QuatIdent()))

	origin := c.ViewMatrix().Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	assert.True(t, origin.ApproxEqual(mgl32.Vec4{0, 0, DefaultTranslationZ, 1}))
}

func TestMutationsFireChangeCallback(t *testing.T) {
	calls := 0
	c := NewCamera(WithChangeCallback(func() { calls++ }))

	c.AddTranslation(mgl32.Vec3{1, 0, 0})
	c.AddRotation(0.1, 0.2)
	c.SetAspect(2)
	c.SetAspect(-1)
	c.Reset()

	assert.Equal(t, 4, calls)
}

func TestResetRestoresPose(t *testing.T) {
	c := NewCamera()
	c.AddTranslation(mgl32.Vec3{1, 2, 3})
	c.AddRotation(0.5, -0.5)

	c.Reset()

	assert.Equal(t, mgl32.Vec3{0, 0, DefaultTranslationZ}, c.Translation())
	assert.True(t, c.Rotation().ApproxEqual(mgl32.QuatIdent()))
}

func TestAddRotationRotatesAroundY(t *testing.T) {
	c := NewCamera(WithTranslation(mgl32.Vec3{}))
	c.AddRotation(0, math.Pi/2)

	v := c.ViewMatrix().Mul4x1(mgl32.Vec4{1, 0, 0, 1})
	assertVec4InDelta(t, mgl32.Vec4{0, 0, -1, 1}, v, 1e-5)
}

// assertVec4InDelta compares componentwise with an absolute tolerance, unlike ApproxEqual
// which treats zero components with a squared epsilon.
func assertVec4InDelta(t *testing.T, want, got mgl32.Vec4, delta float64) {
	t.Helper()
	for i := range want {
		assert.InDelta(t, want[i], got[i], delta, "component %d of %v", i, got)
	}
}

func TestViewProjectionIsProduct(t *testing.T) {
	c := NewCamera(WithAspect(1.5), WithClipPlanes(0.5, 50))
	expected := c.ProjectionMatrix().Mul4(c.ViewMatrix())
	assert.True(t, c.ViewProjectionMatrix().ApproxEqual(expected))
	assert.Equal(t, float32(1.5), c.Aspect())
}
