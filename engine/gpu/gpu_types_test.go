package gpu

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-volume/engine/layer"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatAt(buf []byte, offset int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(buf[offset : offset+4]))
}

func TestLayerUniformLayout(t *testing.T) {
	s := layer.Snapshot{
		Visible:         true,
		Brightness:      2,
		Gamma:           0.5,
		Quality:         0.75,
		Dithering:       1,
		RangeMin:        0.25,
		RangeMax:        0.75,
		MaxRayCastSteps: 130,
		Scale:           mgl64.Vec3{1, 0.5, 0.25},
	}
	vp := mgl32.Translate3D(1, 2, 3)

	u := NewGPULayerUniform(s, vp)
	buf := u.Marshal()
	require.Len(t, buf, GPULayerUniformSize)

	assert.Equal(t, float32(1), floatAt(buf, 0))
	assert.Equal(t, float32(1), floatAt(buf, 48))
	assert.Equal(t, float32(2), floatAt(buf, 52))
	assert.Equal(t, float32(3), floatAt(buf, 56))

	assert.Equal(t, float32(0.5), floatAt(buf, 68))
	assert.Equal(t, float32(1), floatAt(buf, 76))
	assert.Equal(t, float32(2), floatAt(buf, 80))
	assert.Equal(t, float32(0.75), floatAt(buf, 88))
	assert.Equal(t, float32(0.25), floatAt(buf, 96))
	assert.Equal(t, float32(130), floatAt(buf, 104))

	// inverse translation
	assert.InDelta(t, -1, floatAt(buf, 112+48), 1e-6)
	assert.InDelta(t, -2, floatAt(buf, 112+52), 1e-6)
	assert.InDelta(t, -3, floatAt(buf, 112+56), 1e-6)
}

func TestRaycastShaderVariants(t *testing.T) {
	src, vs, err := raycastShader(1)
	require.NoError(t, err)
	assert.Contains(t, src, "texture_3d<f32>")
	assert.NotContains(t, src, "@oxy:")
	assert.Equal(t, wgpu.TextureSampleTypeUnfilterableFloat, vs.sampleType)

	src, vs, err = raycastShader(2)
	require.NoError(t, err)
	assert.Contains(t, src, "texture_3d<u32>")
	assert.Contains(t, src, "/ 65535.0")
	assert.Equal(t, wgpu.TextureSampleTypeUint, vs.sampleType)

	_, _, err = raycastShader(3)
	assert.Error(t, err)
}

func TestRaycastBindGroupLayout(t *testing.T) {
	desc := raycastBindGroupLayout(wgpu.TextureSampleTypeUint)
	require.Len(t, desc.Entries, 4)
	assert.Equal(t, uint64(GPULayerUniformSize), desc.Entries[bindingUniform].Buffer.MinBindingSize)
	assert.Equal(t, wgpu.TextureViewDimension3D, desc.Entries[bindingVolume].Texture.ViewDimension)
	assert.Equal(t, wgpu.TextureSampleTypeUint, desc.Entries[bindingVolume].Texture.SampleType)
}

func TestHiddenLayerUniform(t *testing.T) {
	u := NewGPULayerUniform(layer.Snapshot{Visible: false}, mgl32.Ident4())
	assert.Equal(t, float32(0), u.Scale[3])
}

func TestVolumeTextureFormat(t *testing.T) {
	f, err := volumeTextureFormat(1)
	require.NoError(t, err)
	assert.Equal(t, wgpu.TextureFormatR8Unorm, f)

	f, err = volumeTextureFormat(2)
	require.NoError(t, err)
	assert.Equal(t, wgpu.TextureFormatR16Uint, f)

	f, err = volumeTextureFormat(4)
	require.NoError(t, err)
	assert.Equal(t, wgpu.TextureFormatR32Float, f)

	_, err = volumeTextureFormat(3)
	assert.Error(t, err)
}
