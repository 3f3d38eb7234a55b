// Package transfer maps normalized voxel intensities to RGBA colors.
package transfer

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// palette is cycled by GradientForIndex so neighbouring layers get distinct colors.
var palette = []mgl32.Vec3{
	{1, 0, 0},
	{0, 1, 0},
	{0, 0, 1},
	{1, 1, 0},
	{1, 0, 1},
	{0, 1, 1},
}

// Function is a piecewise linear transfer function over [0,1].
// Points are evenly spaced control colors; Points[0] maps intensity 0 and the last point maps 1.
type Function struct {
	Name   string
	Points []mgl32.Vec4
}

// Gray returns a transparent-black to opaque-white ramp.
func Gray() Function {
	return Function{
		Name:   "gray",
		Points: []mgl32.Vec4{{0, 0, 0, 0}, {1, 1, 1, 1}},
	}
}

// GradientForColor returns a ramp from transparent black to the given opaque color.
//
// Parameters:
//   - color: the RGB color reached at full intensity, components in [0,1]
//
// Returns:
//   - Function: the gradient transfer function
func GradientForColor(color mgl32.Vec3) Function {
	return Function{
		Name:   fmt.Sprintf("gradient(%.2f,%.2f,%.2f)", color[0], color[1], color[2]),
		Points: []mgl32.Vec4{{0, 0, 0, 0}, color.Vec4(1)},
	}
}

// GradientForIndex returns the gradient of the palette color at index, cycling through the palette.
//
// Parameters:
//   - index: the layer or channel index, negative values are folded to positive
//
// Returns:
//   - Function: the gradient transfer function
func GradientForIndex(index int) Function {
	if index < 0 {
		index = -index
	}
	return GradientForColor(palette[index%len(palette)])
}

// Sample evaluates the function at intensity t, clamped to [0,1].
func (f Function) Sample(t float32) mgl32.Vec4 {
	switch len(f.Points) {
	case 0:
		return mgl32.Vec4{t, t, t, t}
	case 1:
		return f.Points[0]
	}
	t = mgl32.Clamp(t, 0, 1)
	pos := t * float32(len(f.Points)-1)
	i := int(pos)
	if i >= len(f.Points)-1 {
		return f.Points[len(f.Points)-1]
	}
	frac := pos - float32(i)
	a, b := f.Points[i], f.Points[i+1]
	return a.Add(b.Sub(a).Mul(frac))
}

// Table samples the function at n evenly spaced intensities and packs the results as RGBA8.
// The table is suitable for a 1D lookup texture.
//
// Parameters:
//   - n: the number of entries, at least 2
//
// Returns:
//   - []byte: n*4 bytes of RGBA data
func (f Function) Table(n int) []byte {
	if n < 2 {
		n = 2
	}
	out := make([]byte, n*4)
	for i := 0; i < n; i++ {
		c := f.Sample(float32(i) / float32(n-1))
		for k := 0; k < 4; k++ {
			out[i*4+k] = uint8(mgl32.Clamp(c[k], 0, 1)*255 + 0.5)
		}
	}
	return out
}

// Equal reports whether both functions have the same control points.
func (f Function) Equal(other Function) bool {
	if len(f.Points) != len(other.Points) {
		return false
	}
	for i := range f.Points {
		if !f.Points[i].ApproxEqual(other.Points[i]) {
			return false
		}
	}
	return true
}
