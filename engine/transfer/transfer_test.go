package transfer

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestGradientForColorEndpoints(t *testing.T) {
	f := GradientForColor(mgl32.Vec3{0.5, 1, 0})

	assert.Equal(t, mgl32.Vec4{0, 0, 0, 0}, f.Sample(0))
	assert.Equal(t, mgl32.Vec4{0.5, 1, 0, 1}, f.Sample(1))
	assert.True(t, f.Sample(0.5).ApproxEqual(mgl32.Vec4{0.25, 0.5, 0, 0.5}))
}

func TestSampleClampsIntensity(t *testing.T) {
	f := Gray()
	assert.Equal(t, f.Sample(1), f.Sample(3))
	assert.Equal(t, f.Sample(0), f.Sample(-1))
}

func TestGradientForIndexCycles(t *testing.T) {
	assert.True(t, GradientForIndex(0).Equal(GradientForIndex(len(palette))))
	assert.False(t, GradientForIndex(0).Equal(GradientForIndex(1)))
	assert.True(t, GradientForIndex(-2).Equal(GradientForIndex(2)))
}

func TestTable(t *testing.T) {
	table := Gray().Table(3)
	assert.Equal(t, []byte{0, 0, 0, 0, 128, 128, 128, 128, 255, 255, 255, 255}, table)
}
